// Package onestoretest provides shared fixtures for exercising the core
// package without a filesystem: an in-memory BlobStore, a fixed test
// encryptor, and a handful of sample recipes used across the test suite.
package onestoretest

import (
	"bytes"
	"sort"
	"sync"

	"github.com/onestore/core"
)

// MemStore is an in-memory onestore.BlobStore, used in tests that need a
// fast Store without touching the filesystem adapter.
type MemStore struct {
	mu   sync.Mutex
	data map[onestore.Space]map[string][]byte
}

// NewMemStore returns an empty in-memory BlobStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[onestore.Space]map[string][]byte)}
}

func (m *MemStore) space(s onestore.Space) map[string][]byte {
	bucket, ok := m.data[s]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[s] = bucket
	}
	return bucket
}

func (m *MemStore) WriteOnce(space onestore.Space, key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.space(space)
	existing, ok := bucket[key]
	if ok {
		if bytes.Equal(existing, data) {
			return true, nil
		}
		return false, onestore.ErrWriteOnceViolation
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	bucket[key] = stored
	return false, nil
}

func (m *MemStore) Put(space onestore.Space, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.space(space)[key] = stored
	return nil
}

func (m *MemStore) Get(space onestore.Space, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.space(space)[key]
	if !ok {
		return nil, onestore.ErrFileNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) Has(space onestore.Space, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.space(space)[key]
	return ok, nil
}

func (m *MemStore) Delete(space onestore.Space, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.space(space), key)
	return nil
}

func (m *MemStore) List(space onestore.Space) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := m.space(space)
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemStore) SupportsSubDirBucketing() bool { return false }

func (m *MemStore) Close() error { return nil }

// TestSecret is a fixed passphrase used to derive a reproducible test
// encryptor - never use this outside tests.
var TestSecret = []byte("onestoretest-fixed-passphrase-do-not-use-in-prod")

// NewTestEncryptor returns the encryptor derived from TestSecret.
func NewTestEncryptor() (onestore.Encryptor, error) {
	return onestore.NewSecretEncryptor(TestSecret)
}

// PersonRecipe is a small versioned recipe used for round-trip and version
// DAG scenarios: an identity (email) plus mutable fields.
var PersonRecipe = onestore.Recipe{
	Name: "Person",
	Rules: []onestore.Rule{
		{Itemprop: "email", Type: onestore.ValueType{Kind: onestore.KindString, Regexp: `^[^@]+@[^@]+$`}, IsID: true},
		{Itemprop: "name", Type: onestore.ValueType{Kind: onestore.KindString}},
		{Itemprop: "age", Type: onestore.ValueType{Kind: onestore.KindInteger}},
		{Itemprop: "tags", Type: onestore.ValueType{Kind: onestore.KindBag, Item: &onestore.ValueType{Kind: onestore.KindString}}, Optional: true},
		{Itemprop: "bio", Type: onestore.ValueType{Kind: onestore.KindString}, Optional: true},
	},
}

// XTypeRecipe and YTypeRecipe exercise object references for reverse-map
// tests: an X references a Y.
var YTypeRecipe = onestore.Recipe{
	Name: "YType",
	Rules: []onestore.Rule{
		{Itemprop: "label", Type: onestore.ValueType{Kind: onestore.KindString}},
	},
}

var XTypeRecipe = onestore.Recipe{
	Name: "XType",
	Rules: []onestore.Rule{
		{Itemprop: "target", Type: onestore.ValueType{Kind: onestore.KindReferenceToObj, AllowedTypes: []string{"YType"}}},
	},
}

// MatryoschkaRecipe nests a self-typed optional child reference, giving
// implode/explode tests a multi-level tree to inline and re-expand.
var MatryoschkaRecipe = onestore.Recipe{
	Name: "Matryoschka",
	Rules: []onestore.Rule{
		{Itemprop: "depth", Type: onestore.ValueType{Kind: onestore.KindInteger}},
		{Itemprop: "note", Type: onestore.ValueType{Kind: onestore.KindReferenceToClob, AllowedTypes: []string{"*"}}, Optional: true},
		{Itemprop: "payload", Type: onestore.ValueType{Kind: onestore.KindReferenceToBlob, AllowedTypes: []string{"*"}}, Optional: true},
		{Itemprop: "child", Type: onestore.ValueType{Kind: onestore.KindReferenceToObj, AllowedTypes: []string{"Matryoschka"}}, Optional: true},
	},
}

// ReferrerRecipe is a versioned type with a reference field, used to test
// latest-only reverse-map resolution: successive versions of the same
// identity can point at different targets, and only the current head's
// outbound reference should count as "latest".
var ReferrerRecipe = onestore.Recipe{
	Name: "Referrer",
	Rules: []onestore.Rule{
		{Itemprop: "key", Type: onestore.ValueType{Kind: onestore.KindString}, IsID: true},
		{Itemprop: "seq", Type: onestore.ValueType{Kind: onestore.KindInteger}},
		{Itemprop: "target", Type: onestore.ValueType{Kind: onestore.KindReferenceToObj, AllowedTypes: []string{"YType"}}},
	},
}

// NewConfig returns a DefaultConfig with the sample recipes registered and
// reverse-map recording enabled for XType/Referrer -> YType.
func NewConfig() onestore.Config {
	cfg := onestore.DefaultConfig()
	cfg.InitialRecipes = []onestore.Recipe{PersonRecipe, YTypeRecipe, XTypeRecipe, MatryoschkaRecipe, ReferrerRecipe}
	cfg.EnabledReverseMapTypes = map[string]map[string]bool{
		"XType":    {"YType": true},
		"Referrer": {"YType": true},
	}
	return cfg
}

// OpenStore returns a Store backed by a fresh MemStore with the sample
// recipes registered, ready to exercise in a unit test.
func OpenStore() (*onestore.Store, error) {
	return onestore.OpenWithBackend(NewMemStore(), NewConfig())
}
