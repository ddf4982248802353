package onestore_test

import (
	"testing"

	onestore "github.com/onestore/core"
)

func TestRegistryInheritFromResolvesItemtype(t *testing.T) {
	reg := onestore.NewRegistry()

	base := onestore.Recipe{
		Name: "Base",
		Rules: []onestore.Rule{
			{Itemprop: "code", Type: onestore.ValueType{Kind: onestore.KindString, Regexp: `^[A-Z]+$`}},
		},
	}
	if err := reg.Register(base); err != nil {
		t.Fatalf("register Base: %v", err)
	}

	derived := onestore.Recipe{
		Name: "Derived",
		Rules: []onestore.Rule{
			{Itemprop: "code", InheritFrom: "Base.code"},
		},
	}
	if err := reg.Register(derived); err != nil {
		t.Fatalf("register Derived: %v", err)
	}

	resolved, ok := reg.Lookup("Derived")
	if !ok {
		t.Fatal("Derived not found after registration")
	}
	if resolved.Rules[0].Type.Kind != onestore.KindString || resolved.Rules[0].Type.Regexp != `^[A-Z]+$` {
		t.Fatalf("inherited rule type not resolved: %+v", resolved.Rules[0].Type)
	}
}

func TestRegistryRejectsConflictingReregistration(t *testing.T) {
	reg := onestore.NewRegistry()

	v1 := onestore.Recipe{
		Name: "Conflict",
		Rules: []onestore.Rule{
			{Itemprop: "a", Type: onestore.ValueType{Kind: onestore.KindString}},
		},
	}
	if err := reg.Register(v1); err != nil {
		t.Fatalf("register v1: %v", err)
	}

	v2 := onestore.Recipe{
		Name: "Conflict",
		Rules: []onestore.Rule{
			{Itemprop: "a", Type: onestore.ValueType{Kind: onestore.KindInteger}},
		},
	}
	if err := reg.Register(v2); err == nil {
		t.Fatal("expected ErrRecipeConflict registering differing content under the same name")
	}

	// Re-registering byte-identical content is a no-op, not a conflict.
	if err := reg.Register(v1); err != nil {
		t.Fatalf("re-registering identical recipe should be a no-op, got %v", err)
	}
}

func TestRegistryRejectsUnallowedReferenceType(t *testing.T) {
	reg := onestore.NewRegistry()
	bad := onestore.Recipe{
		Name: "Bad",
		Rules: []onestore.Rule{
			{Itemprop: "ref", Type: onestore.ValueType{Kind: onestore.KindReferenceToObj}},
		},
	}
	if err := reg.Register(bad); err == nil {
		t.Fatal("expected an error registering a reference rule with no AllowedTypes")
	}
}
