package onestore

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the store's enumerated configuration options.
type Config struct {
	WipeStorage          bool          `yaml:"wipeStorage"`
	EncryptStorage       bool          `yaml:"encryptStorage"`
	SecretForStorageKey  string        `yaml:"secretForStorageKey"`
	NHashCharsForSubDirs int           `yaml:"nHashCharsForSubDirs"`
	StorageInitTimeout   time.Duration `yaml:"storageInitTimeout"`

	// EnabledReverseMapTypes maps referencingType -> set of target types
	// for which reverse-map edges are recorded for object references.
	EnabledReverseMapTypes map[string]map[string]bool `yaml:"enabledReverseMapTypes"`

	// EnabledReverseMapTypesForIdObjects is the same map for identity
	// references.
	EnabledReverseMapTypesForIdObjects map[string]map[string]bool `yaml:"enabledReverseMapTypesForIdObjects"`

	// InitialRecipes are registered on the Registry at Open time.
	InitialRecipes []Recipe `yaml:"-"`
}

// DefaultConfig returns a Config with no encryption, no bucketing, and
// empty reverse-map enablement maps.
func DefaultConfig() Config {
	return Config{
		EnabledReverseMapTypes:             map[string]map[string]bool{},
		EnabledReverseMapTypesForIdObjects: map[string]map[string]bool{},
		StorageInitTimeout:                 30 * time.Second,
	}
}

// LoadYAMLConfig reads a YAML configuration document from path. InitialRecipes
// cannot be expressed in YAML (they carry Go ValueType trees) and must be
// registered programmatically after loading.
func LoadYAMLConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// reverseMapEnabled reports whether a reverse-map entry should be recorded
// for a reference from referencingType to targetType, for either object or
// id-object references.
func (c Config) reverseMapEnabled(referencingType, targetType string, idObject bool) bool {
	table := c.EnabledReverseMapTypes
	if idObject {
		table = c.EnabledReverseMapTypesForIdObjects
	}
	targets, ok := table[referencingType]
	if !ok {
		return false
	}
	return targets[targetType] || targets["*"]
}
