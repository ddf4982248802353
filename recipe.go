package onestore

import (
	"reflect"
	"strings"
	"sync"
)

// Rule is one field schema within a Recipe.
type Rule struct {
	Itemprop     string
	Type         ValueType
	IsID         bool
	Optional     bool
	InheritFrom  string // dotted "Type.itemprop" path, resolved at register time
}

// Recipe is the declarative schema for one object type.
type Recipe struct {
	Name  string
	Rules []Rule
}

// Versioned reports whether any top-level rule is marked IsID - the codec's
// definition of "this type carries an identity".
func (r Recipe) Versioned() bool {
	for _, rule := range r.Rules {
		if rule.IsID {
			return true
		}
	}
	return false
}

func (r Recipe) equal(other Recipe) bool {
	if r.Name != other.Name || len(r.Rules) != len(other.Rules) {
		return false
	}
	for i := range r.Rules {
		if !rulesEqual(r.Rules[i], other.Rules[i]) {
			return false
		}
	}
	return true
}

func rulesEqual(a, b Rule) bool {
	return a.Itemprop == b.Itemprop &&
		a.IsID == b.IsID &&
		a.Optional == b.Optional &&
		a.InheritFrom == b.InheritFrom &&
		reflect.DeepEqual(a.Type, b.Type)
}

// Registry resolves type name to compiled Recipe the way a reflection-based
// field-plan cache resolves reflect.Type to a plan: build once, cache
// forever. Lookup takes the read lock; Register resolves the recipe outside
// the lock, then takes the write lock and checks for an existing entry
// before storing.
type Registry struct {
	mu    sync.RWMutex
	table map[string]Recipe
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{table: make(map[string]Recipe)}
}

// Register resolves InheritFrom references against already-registered
// recipes, validates the result, and stores it under recipe.Name.
//
// Re-registering the same name with byte-identical content is a no-op.
// Re-registering with different content returns ErrRecipeConflict.
func (reg *Registry) Register(recipe Recipe) error {
	resolved, err := reg.resolve(recipe)
	if err != nil {
		return err
	}
	if err := validateRecipe(resolved); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing, ok := reg.table[resolved.Name]; ok {
		if existing.equal(resolved) {
			return nil
		}
		return newCodecErr(ErrRecipeConflict, resolved.Name, 0)
	}
	reg.table[resolved.Name] = resolved
	emitRecipeRegistered(resolved.Name, len(resolved.Rules))
	return nil
}

// Lookup returns the compiled recipe for name, or ok=false.
func (reg *Registry) Lookup(name string) (Recipe, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.table[name]
	return r, ok
}

// resolve copies itemtype from the referenced type.property for every rule
// with InheritFrom set. Inheritance is single-level and pre-registration:
// the referenced type must already be registered.
func (reg *Registry) resolve(recipe Recipe) (Recipe, error) {
	out := Recipe{Name: recipe.Name, Rules: make([]Rule, len(recipe.Rules))}
	copy(out.Rules, recipe.Rules)

	for i, rule := range out.Rules {
		if rule.InheritFrom == "" {
			continue
		}
		parts := strings.SplitN(rule.InheritFrom, ".", 2)
		if len(parts) != 2 {
			return Recipe{}, newCodecErr(ErrRecipeConflict, recipe.Name, 0)
		}
		srcType, srcProp := parts[0], parts[1]

		reg.mu.RLock()
		src, ok := reg.table[srcType]
		reg.mu.RUnlock()
		if !ok {
			return Recipe{}, newCodecErr(ErrUnknownType, srcType, 0)
		}

		var found *Rule
		for j := range src.Rules {
			if src.Rules[j].Itemprop == srcProp {
				found = &src.Rules[j]
				break
			}
		}
		if found == nil {
			return Recipe{}, newCodecErr(ErrUnknownProperty, srcProp, 0)
		}

		inherited := out.Rules[i]
		inherited.Type = found.Type
		out.Rules[i] = inherited
	}

	return out, nil
}

// validateRecipe enforces: regexp only on string rules, allowedTypes is
// non-empty for reference rules, and rule names are unique within the same
// nesting level (nested object rules get their own namespace).
func validateRecipe(r Recipe) error {
	return validateRules(r.Rules)
}

func validateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if seen[rule.Itemprop] {
			return newCodecErr(ErrRecipeConflict, rule.Itemprop, 0)
		}
		seen[rule.Itemprop] = true

		if rule.Type.Regexp != "" && rule.Type.Kind != KindString {
			return newCodecErr(ErrRegexpMismatch, rule.Itemprop, 0)
		}

		switch rule.Type.Kind {
		case KindReferenceToObj, KindReferenceToID:
			if len(rule.Type.AllowedTypes) == 0 {
				return newCodecErr(ErrUnknownType, rule.Itemprop, 0)
			}
		case KindObject:
			if err := validateRules(rule.Type.Rules); err != nil {
				return err
			}
		case KindArray, KindBag, KindSet:
			if rule.Type.Item != nil && rule.Type.Item.Kind == KindObject {
				if err := validateRules(rule.Type.Item.Rules); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
