// Package integration runs cross-component round-trip scenarios against a
// fully wired Store, as opposed to the unit tests in the root package that
// exercise one component at a time.
package integration

import (
	"strings"
	"testing"

	onestore "github.com/onestore/core"
	"github.com/onestore/core/onestoretest"
)

func openStore(t *testing.T) *onestore.Store {
	t.Helper()
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Scenario 1: round-trip Person, and idHash derived from the identity-only
// microdata frame.
func TestScenarioRoundTripPerson(t *testing.T) {
	s := openStore(t)

	obj := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "a@b"},
			"name":  {Kind: onestore.KindString, Str: "A"},
			"age":   {Kind: onestore.KindInteger, Int: 1},
		},
	}

	hash, idHash, _, err := s.StoreVersioned(obj, onestore.StoreAsChange)
	if err != nil {
		t.Fatalf("StoreVersioned: %v", err)
	}

	microdata, err := onestore.Serialize(s.Registry, obj)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if onestore.Hash([]byte(microdata)) != hash {
		t.Fatalf("object hash mismatch between persistObject and direct Serialize")
	}

	idMicrodata, err := onestore.SerializeIdentity(s.Registry, obj)
	if err != nil {
		t.Fatalf("SerializeIdentity: %v", err)
	}
	if !strings.Contains(idMicrodata, `data-id-object="true"`) {
		t.Fatalf("identity microdata missing data-id-object frame: %s", idMicrodata)
	}
	if onestore.Hash([]byte(idMicrodata)) != idHash {
		t.Fatalf("idHash mismatch between StoreVersioned and direct SerializeIdentity")
	}
}

// Scenario 2: bag ordering is canonical on the wire and order-independent
// on reparse.
func TestScenarioBagOrdering(t *testing.T) {
	s := openStore(t)

	obj := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "bag@example.com"},
			"name":  {Kind: onestore.KindString, Str: "Bag"},
			"age":   {Kind: onestore.KindInteger, Int: 1},
			"tags": {Kind: onestore.KindBag, Items: []onestore.Value{
				{Kind: onestore.KindString, Str: "c"},
				{Kind: onestore.KindString, Str: "a"},
				{Kind: onestore.KindString, Str: "b"},
			}},
		},
	}

	microdata, err := onestore.Serialize(s.Registry, obj)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(microdata, "<li>a</li><li>b</li><li>c</li>") {
		t.Fatalf("expected lexicographic bag order in wire form:\n%s", microdata)
	}

	parsed, err := onestore.Parse(s.Registry, microdata)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Fields["tags"].Items) != 3 {
		t.Fatalf("expected 3 tags after reparse, got %d", len(parsed.Fields["tags"].Items))
	}
}

// Scenario 3: a reverse-map entry is recorded for an enabled
// (referencing-type, target-type) pair.
func TestScenarioReverseMap(t *testing.T) {
	s := openStore(t)

	yHash, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "YType",
		Fields: map[string]onestore.Value{"label": {Kind: onestore.KindString, Str: "y"}},
	})
	if err != nil {
		t.Fatalf("store Y: %v", err)
	}
	xHash, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "XType",
		Fields: map[string]onestore.Value{"target": {Kind: onestore.KindReferenceToObj, Hash: yHash}},
	})
	if err != nil {
		t.Fatalf("store X: %v", err)
	}

	entries, err := s.GetAllEntries(yHash, onestore.RefKindObject, "XType")
	if err != nil {
		t.Fatalf("GetAllEntries: %v", err)
	}
	if len(entries) != 1 || entries[0] != xHash {
		t.Fatalf("expected [%s], got %v", xHash, entries)
	}
}

// Scenario 4: three versions of an identity form a linear chain terminating
// in an Edge.
func TestScenarioVersionDAG(t *testing.T) {
	s := openStore(t)

	store := func(age int64) (hash, idHash string) {
		hash, idHash, _, err := s.StoreVersioned(onestore.Object{
			Type: "Person",
			Fields: map[string]onestore.Value{
				"email": {Kind: onestore.KindString, Str: "dag@example.com"},
				"name":  {Kind: onestore.KindString, Str: "Dag"},
				"age":   {Kind: onestore.KindInteger, Int: age},
			},
		}, onestore.StoreAsChange)
		if err != nil {
			t.Fatalf("StoreVersioned: %v", err)
		}
		return hash, idHash
	}

	h1, idHash := store(1)
	h2, _ := store(2)
	h3, _ := store(3)

	head, err := s.GetCurrentVersionNode(idHash)
	if err != nil {
		t.Fatalf("GetCurrentVersionNode: %v", err)
	}
	if head.Data != h3 {
		t.Fatalf("head data mismatch: got %s want %s", head.Data, h3)
	}

	nodes, err := s.GetAllVersionNodes(idHash)
	if err != nil {
		t.Fatalf("GetAllVersionNodes: %v", err)
	}
	if len(nodes) != 3 || nodes[0].Data != h1 || nodes[1].Data != h2 || nodes[2].Data != h3 {
		t.Fatalf("version chain mismatch: %+v", nodes)
	}
	if !nodes[0].IsEdge() {
		t.Fatal("oldest node must be the Edge")
	}
}

// Scenario 5: implode/explode a multi-level Matryoschka tree; the exploded
// root re-hashes to the original and re-persists as StatusExists since it
// was already written before implode ran.
func TestScenarioImplodeExplode(t *testing.T) {
	s := openStore(t)

	leaf, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "Matryoschka",
		Fields: map[string]onestore.Value{"depth": {Kind: onestore.KindInteger, Int: 3}},
	})
	if err != nil {
		t.Fatalf("store leaf: %v", err)
	}
	mid, _, err := s.StoreUnversioned(onestore.Object{
		Type: "Matryoschka",
		Fields: map[string]onestore.Value{
			"depth": {Kind: onestore.KindInteger, Int: 2},
			"child": {Kind: onestore.KindReferenceToObj, Hash: leaf},
		},
	})
	if err != nil {
		t.Fatalf("store mid: %v", err)
	}
	root, _, err := s.StoreUnversioned(onestore.Object{
		Type: "Matryoschka",
		Fields: map[string]onestore.Value{
			"depth": {Kind: onestore.KindInteger, Int: 1},
			"child": {Kind: onestore.KindReferenceToObj, Hash: mid},
		},
	})
	if err != nil {
		t.Fatalf("store root: %v", err)
	}

	imploded, err := s.Implode(root)
	if err != nil {
		t.Fatalf("Implode: %v", err)
	}

	hash, _, status, err := s.Explode(imploded)
	if err != nil {
		t.Fatalf("Explode: %v", err)
	}
	if hash != root {
		t.Fatalf("exploded hash mismatch: got %s want %s", hash, root)
	}
	if status != onestore.StatusExists {
		t.Fatalf("expected root to re-persist as exists, got %s", status)
	}
}

// Scenario 6: latest-only reverse map follows only the current head among
// several versions of the same referencing identity.
func TestScenarioLatestOnlyReverseMap(t *testing.T) {
	s := openStore(t)

	targetHash, _, err := s.StoreUnversioned(onestore.Object{
		Type:   "YType",
		Fields: map[string]onestore.Value{"label": {Kind: onestore.KindString, Str: "t"}},
	})
	if err != nil {
		t.Fatalf("store target: %v", err)
	}

	storeReferrer := func(seq int64) string {
		hash, _, _, err := s.StoreVersioned(onestore.Object{
			Type: "Referrer",
			Fields: map[string]onestore.Value{
				"key":    {Kind: onestore.KindString, Str: "r"},
				"seq":    {Kind: onestore.KindInteger, Int: seq},
				"target": {Kind: onestore.KindReferenceToObj, Hash: targetHash},
			},
		}, onestore.StoreAsChange)
		if err != nil {
			t.Fatalf("StoreVersioned Referrer: %v", err)
		}
		return hash
	}

	v1 := storeReferrer(1)
	v2 := storeReferrer(2)
	v3 := storeReferrer(3)

	all, err := s.GetAllEntries(targetHash, onestore.RefKindObject, "Referrer")
	if err != nil {
		t.Fatalf("GetAllEntries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 append-order entries %v,%v,%v; got %v", v1, v2, v3, all)
	}

	latest, err := s.GetOnlyLatestReferencingObjsHash(targetHash, onestore.RefKindObject, "Referrer")
	if err != nil {
		t.Fatalf("GetOnlyLatestReferencingObjsHash: %v", err)
	}
	if len(latest) != 1 || latest[0] != v3 {
		t.Fatalf("expected only [%s], got %v", v3, latest)
	}
}
