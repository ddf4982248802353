package onestore_test

import (
	"testing"

	onestore "github.com/onestore/core"
	"github.com/onestore/core/onestoretest"
)

func TestDefaultConfigReverseMapDisabledByDefault(t *testing.T) {
	cfg := onestore.DefaultConfig()
	s, err := onestore.OpenWithBackend(onestoretest.NewMemStore(), cfg)
	if err != nil {
		t.Fatalf("OpenWithBackend: %v", err)
	}
	defer s.Close()

	if err := s.Registry.Register(onestore.Recipe{
		Name:  "Plain",
		Rules: []onestore.Rule{{Itemprop: "v", Type: onestore.ValueType{Kind: onestore.KindString}}},
	}); err != nil {
		t.Fatalf("register Plain: %v", err)
	}

	target, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "Plain",
		Fields: map[string]onestore.Value{"v": {Kind: onestore.KindString, Str: "t"}},
	})
	if err != nil {
		t.Fatalf("store target: %v", err)
	}

	if err := s.Registry.Register(onestore.Recipe{
		Name: "Referencer",
		Rules: []onestore.Rule{
			{Itemprop: "ref", Type: onestore.ValueType{Kind: onestore.KindReferenceToObj, AllowedTypes: []string{"Plain"}}},
		},
	}); err != nil {
		t.Fatalf("register Referencer: %v", err)
	}

	if _, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "Referencer",
		Fields: map[string]onestore.Value{"ref": {Kind: onestore.KindReferenceToObj, Hash: target}},
	}); err != nil {
		t.Fatalf("store referencer: %v", err)
	}

	entries, err := s.GetAllEntries(target, onestore.RefKindObject, "Referencer")
	if err != nil {
		t.Fatalf("GetAllEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no reverse-map entries with reverse-map disabled, got %v", entries)
	}
}
