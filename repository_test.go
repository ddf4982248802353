package onestore_test

import (
	"testing"

	onestore "github.com/onestore/core"
	"github.com/onestore/core/onestoretest"
)

func TestStoreVersionedThenLoadById(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "carol@example.com"},
			"name":  {Kind: onestore.KindString, Str: "Carol"},
			"age":   {Kind: onestore.KindInteger, Int: 29},
		},
	}

	hash, idHash, status, err := s.StoreVersioned(obj, onestore.StoreAsChange)
	if err != nil {
		t.Fatalf("StoreVersioned: %v", err)
	}
	if status != onestore.StatusNew {
		t.Fatalf("expected StatusNew, got %s", status)
	}

	loaded, headHash, err := s.LoadById(idHash)
	if err != nil {
		t.Fatalf("LoadById: %v", err)
	}
	if headHash != hash {
		t.Fatalf("head hash mismatch: got %s want %s", headHash, hash)
	}
	if loaded.Fields["name"].Str != "Carol" {
		t.Fatalf("loaded name mismatch: %+v", loaded.Fields["name"])
	}
}

func TestStoreVersionedRejectsUnversionedRecipe(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{Type: "YType", Fields: map[string]onestore.Value{
		"label": {Kind: onestore.KindString, Str: "y1"},
	}}
	if _, _, _, err := s.StoreVersioned(obj, onestore.StoreAsChange); err == nil {
		t.Fatal("expected error storing an unversioned recipe as versioned")
	}
}

func TestStoreUnversionedRejectsVersionedRecipe(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{Type: "Person", Fields: map[string]onestore.Value{
		"email": {Kind: onestore.KindString, Str: "x@example.com"},
		"name":  {Kind: onestore.KindString, Str: "X"},
		"age":   {Kind: onestore.KindInteger, Int: 1},
	}}
	if _, _, err := s.StoreUnversioned(obj); err == nil {
		t.Fatal("expected error storing a versioned recipe as unversioned")
	}
}

func TestPersistObjectIsContentAddressedAndIdempotent(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{Type: "YType", Fields: map[string]onestore.Value{
		"label": {Kind: onestore.KindString, Str: "same label"},
	}}

	h1, st1, err := s.StoreUnversioned(obj)
	if err != nil {
		t.Fatalf("StoreUnversioned (first): %v", err)
	}
	if st1 != onestore.StatusNew {
		t.Fatalf("expected StatusNew, got %s", st1)
	}

	h2, st2, err := s.StoreUnversioned(obj)
	if err != nil {
		t.Fatalf("StoreUnversioned (second): %v", err)
	}
	if h2 != h1 {
		t.Fatalf("expected identical content address, got %s vs %s", h2, h1)
	}
	if st2 != onestore.StatusExists {
		t.Fatalf("expected StatusExists on repeat store, got %s", st2)
	}
}

func TestPersistObjectIsIdempotentUnderEncryption(t *testing.T) {
	dir := t.TempDir()

	cfg := onestoretest.NewConfig()
	cfg.EncryptStorage = true
	cfg.SecretForStorageKey = "idempotency-test-secret"

	s, err := onestore.Open(dir, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	obj := onestore.Object{Type: "YType", Fields: map[string]onestore.Value{
		"label": {Kind: onestore.KindString, Str: "same label, encrypted"},
	}}

	h1, st1, err := s.StoreUnversioned(obj)
	if err != nil {
		t.Fatalf("StoreUnversioned (first): %v", err)
	}
	if st1 != onestore.StatusNew {
		t.Fatalf("expected StatusNew, got %s", st1)
	}

	h2, st2, err := s.StoreUnversioned(obj)
	if err != nil {
		t.Fatalf("StoreUnversioned (second): %v", err)
	}
	if h2 != h1 {
		t.Fatalf("expected identical content address, got %s vs %s", h2, h1)
	}
	if st2 != onestore.StatusExists {
		t.Fatalf("expected StatusExists re-storing identical content under encryption, got %s", st2)
	}

	c1, cst1, err := s.StoreClob("encrypted clob content")
	if err != nil {
		t.Fatalf("StoreClob (first): %v", err)
	}
	if cst1 != onestore.StatusNew {
		t.Fatalf("expected StatusNew, got %s", cst1)
	}
	c2, cst2, err := s.StoreClob("encrypted clob content")
	if err != nil {
		t.Fatalf("StoreClob (second): %v", err)
	}
	if c2 != c1 {
		t.Fatalf("expected identical clob address, got %s vs %s", c2, c1)
	}
	if cst2 != onestore.StatusExists {
		t.Fatalf("expected StatusExists re-storing identical clob under encryption, got %s", cst2)
	}

	// private/ is always encrypted regardless of EncryptStorage; rewriting
	// the same bytes there must also be observably stable (Put, not
	// write-once, so this exercises seal() determinism rather than
	// WriteOnce, but both paths share the same aesEncryptor).
	if err := s.PutPrivate("k", []byte("same value")); err != nil {
		t.Fatalf("PutPrivate (first): %v", err)
	}
	if err := s.PutPrivate("k", []byte("same value")); err != nil {
		t.Fatalf("PutPrivate (second): %v", err)
	}
	got, err := s.GetPrivate("k")
	if err != nil {
		t.Fatalf("GetPrivate: %v", err)
	}
	if string(got) != "same value" {
		t.Fatalf("private value mismatch: %q", got)
	}
}

func TestClobAndBlobStorage(t *testing.T) {
	s, err := onestoretest.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer s.Close()

	hash, status, err := s.StoreClob("hello, world")
	if err != nil {
		t.Fatalf("StoreClob: %v", err)
	}
	if status != onestore.StatusNew {
		t.Fatalf("expected StatusNew, got %s", status)
	}
	text, err := s.LoadClob(hash)
	if err != nil {
		t.Fatalf("LoadClob: %v", err)
	}
	if text != "hello, world" {
		t.Fatalf("clob round-trip mismatch: %q", text)
	}

	blobHash, _, err := s.StoreBlob([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("StoreBlob: %v", err)
	}
	data, err := s.LoadBlob(blobHash)
	if err != nil {
		t.Fatalf("LoadBlob: %v", err)
	}
	if len(data) != 4 || data[0] != 1 || data[3] != 4 {
		t.Fatalf("blob round-trip mismatch: %v", data)
	}
}
