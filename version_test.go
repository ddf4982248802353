package onestore_test

import (
	"errors"
	"testing"

	onestore "github.com/onestore/core"
	"github.com/onestore/core/onestoretest"
)

func storePersonVersion(t *testing.T, s *onestore.Store, email, name string, age int64) (hash, idHash string) {
	t.Helper()
	obj := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: email},
			"name":  {Kind: onestore.KindString, Str: name},
			"age":   {Kind: onestore.KindInteger, Int: age},
		},
	}
	hash, idHash, _, err := s.StoreVersioned(obj, onestore.StoreAsChange)
	if err != nil {
		t.Fatalf("StoreVersioned(%s): %v", name, err)
	}
	return hash, idHash
}

func TestVersionDAGThreeVersions(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	h1, idHash := storePersonVersion(t, s, "dave@example.com", "Dave", 20)
	h2, idHash2 := storePersonVersion(t, s, "dave@example.com", "Dave", 21)
	h3, idHash3 := storePersonVersion(t, s, "dave@example.com", "Dave", 22)

	if idHash != idHash2 || idHash != idHash3 {
		t.Fatalf("identity hash changed across versions: %s, %s, %s", idHash, idHash2, idHash3)
	}

	nodes, err := s.GetAllVersionNodes(idHash)
	if err != nil {
		t.Fatalf("GetAllVersionNodes: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 version nodes, got %d", len(nodes))
	}
	if !nodes[0].IsEdge() {
		t.Fatal("oldest node must be the Edge")
	}
	if nodes[0].Data != h1 || nodes[1].Data != h2 || nodes[2].Data != h3 {
		t.Fatalf("version node order/data mismatch: %+v", nodes)
	}

	current, err := s.GetCurrentVersionNode(idHash)
	if err != nil {
		t.Fatalf("GetCurrentVersionNode: %v", err)
	}
	if current.Data != h3 {
		t.Fatalf("expected head data %s, got %s", h3, current.Data)
	}
}

func TestMergeIsIdempotentOnKnownPair(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "erin@example.com"},
			"name":  {Kind: onestore.KindString, Str: "Erin"},
			"age":   {Kind: onestore.KindInteger, Int: 40},
		},
	}

	hash, idHash, _, err := s.StoreVersioned(obj, onestore.StoreAsMerge)
	if err != nil {
		t.Fatalf("StoreVersioned(merge, first): %v", err)
	}

	hash2, idHash2, _, err := s.StoreVersioned(obj, onestore.StoreAsMerge)
	if err != nil {
		t.Fatalf("StoreVersioned(merge, replay): %v", err)
	}
	if hash2 != hash || idHash2 != idHash {
		t.Fatalf("replayed merge produced a different result: (%s,%s) vs (%s,%s)", hash2, idHash2, hash, idHash)
	}

	nodes, err := s.GetAllVersionNodes(idHash)
	if err != nil {
		t.Fatalf("GetAllVersionNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected the idempotent replay to add no node, got %d nodes", len(nodes))
	}
}

func TestMergeRejectsNonFastForward(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	storePersonVersion(t, s, "frank@example.com", "Frank", 50)

	divergent := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "frank@example.com"},
			"name":  {Kind: onestore.KindString, Str: "Frank"},
			"age":   {Kind: onestore.KindInteger, Int: 999},
		},
	}
	_, _, _, err = s.StoreVersioned(divergent, onestore.StoreAsMerge)
	if err == nil {
		t.Fatal("expected ErrNonFastForward merging a divergent payload onto an existing head")
	}
	if !errors.Is(err, onestore.ErrNonFastForward) {
		t.Fatalf("expected ErrNonFastForward, got %v", err)
	}
}
