package onestore

import (
	"errors"
	"fmt"

	"github.com/onestore/core/internal/fsblob"
)

// Store is the top-level handle applications open: a BlobStore adapter,
// optional at-rest encryption, a Recipe Registry, and the per-key locking
// needed for the concurrency rules in the design (serialized version-head
// updates per idHash, lock-free-or-mutexed reverse-map appends).
type Store struct {
	blobs     BlobStore
	enc       Encryptor // nil when no SecretForStorageKey is configured
	config    Config
	Registry  *Registry
	headLocks *keyLocks
	rmapLocks *keyLocks
}

// Open wires a filesystem BlobStore adapter at dir according to cfg and
// registers cfg.InitialRecipes. Private is always encrypted when an
// encryptor is configured, regardless of EncryptStorage (private holds
// keychain/settings material and is the one space the spec says is
// "always encrypted").
func Open(dir string, cfg Config) (*Store, error) {
	if cfg.WipeStorage {
		if err := fsblob.Wipe(dir); err != nil {
			return nil, fmt.Errorf("wipe storage: %w", err)
		}
	}

	fs, err := fsblob.Open(dir, cfg.NHashCharsForSubDirs)
	if err != nil {
		return nil, err
	}

	enc, err := deriveEncryptor(cfg)
	if err != nil {
		return nil, err
	}

	return newStore(&adapter{fs: fs, enc: enc, encryptAll: cfg.EncryptStorage}, enc, cfg)
}

// OpenWithBackend wires an already-constructed BlobStore instead of the
// filesystem adapter, registering cfg.InitialRecipes the same way Open
// does. Used to run the store against an in-memory backend in tests, or
// against any other BlobStore implementation an embedder supplies.
func OpenWithBackend(blobs BlobStore, cfg Config) (*Store, error) {
	if cfg.NHashCharsForSubDirs != 0 && !blobs.SupportsSubDirBucketing() {
		return nil, fmt.Errorf("onestore: backend cannot honour nHashCharsForSubDirs=%d", cfg.NHashCharsForSubDirs)
	}
	enc, err := deriveEncryptor(cfg)
	if err != nil {
		return nil, err
	}
	return newStore(blobs, enc, cfg)
}

// deriveEncryptor derives the at-rest encryptor from cfg.SecretForStorageKey
// when either EncryptStorage is set or a secret is present at all - the
// private space is always encrypted once a secret is configured, regardless
// of EncryptStorage, since it is the one space the design always protects.
func deriveEncryptor(cfg Config) (Encryptor, error) {
	if cfg.EncryptStorage && cfg.SecretForStorageKey == "" {
		return nil, errors.New("onestore: encryptStorage requires secretForStorageKey")
	}
	if cfg.SecretForStorageKey == "" {
		return nil, nil
	}
	return NewSecretEncryptor([]byte(cfg.SecretForStorageKey))
}

func newStore(blobs BlobStore, enc Encryptor, cfg Config) (*Store, error) {
	s := &Store{
		blobs:     blobs,
		enc:       enc,
		config:    cfg,
		Registry:  NewRegistry(),
		headLocks: newKeyLocks(),
		rmapLocks: newKeyLocks(),
	}

	if err := registerSystemRecipes(s.Registry); err != nil {
		return nil, fmt.Errorf("register system recipes: %w", err)
	}
	for _, recipe := range cfg.InitialRecipes {
		if err := s.Registry.Register(recipe); err != nil {
			return nil, fmt.Errorf("register initial recipe %s: %w", recipe.Name, err)
		}
	}

	return s, nil
}

// Close releases the underlying BlobStore's resources.
func (s *Store) Close() error {
	return s.blobs.Close()
}

// adapter wraps a filesystem store and optionally encrypts/decrypts every
// payload crossing the boundary, translating fsblob's sentinel errors to
// the core's. encryptAll gates objects/vheads/rmaps; the private space is
// sealed whenever enc is non-nil regardless of encryptAll.
type adapter struct {
	fs         *fsblob.Store
	enc        Encryptor
	encryptAll bool
}

func (a *adapter) sealed(space Space) bool {
	if a.enc == nil {
		return false
	}
	return a.encryptAll || space == SpacePrivate
}

func (a *adapter) seal(space Space, data []byte) ([]byte, error) {
	if !a.sealed(space) {
		return data, nil
	}
	return a.enc.Encrypt(data)
}

func (a *adapter) unseal(space Space, data []byte) ([]byte, error) {
	if !a.sealed(space) {
		return data, nil
	}
	return a.enc.Decrypt(data)
}

func (a *adapter) WriteOnce(space Space, key string, data []byte) (bool, error) {
	sealed, err := a.seal(space, data)
	if err != nil {
		return false, err
	}
	existed, err := a.fs.WriteOnce(string(space), key, sealed)
	if errors.Is(err, fsblob.ErrWriteOnceViolation) {
		return false, newStoreErr(ErrWriteOnceViolation, "WriteOnce", key, err)
	}
	return existed, err
}

func (a *adapter) Put(space Space, key string, data []byte) error {
	sealed, err := a.seal(space, data)
	if err != nil {
		return err
	}
	return a.fs.Put(string(space), key, sealed)
}

func (a *adapter) Get(space Space, key string) ([]byte, error) {
	data, err := a.fs.Get(string(space), key)
	if errors.Is(err, fsblob.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return a.unseal(space, data)
}

func (a *adapter) Has(space Space, key string) (bool, error) {
	return a.fs.Has(string(space), key)
}

func (a *adapter) Delete(space Space, key string) error {
	return a.fs.Delete(string(space), key)
}

func (a *adapter) List(space Space) ([]string, error) {
	return a.fs.List(string(space))
}

func (a *adapter) SupportsSubDirBucketing() bool { return a.fs.SupportsSubDirBucketing() }

func (a *adapter) Close() error { return a.fs.Close() }
