// Package privatekv is a host-facing convenience codec over the store's
// opaque private/ space: the core never interprets private/ content itself,
// but hosts packing structured settings or keychain values into it can use
// this MessagePack encoder/decoder instead of hand-rolling one.
package privatekv

import (
	onestore "github.com/onestore/core"
	"github.com/onestore/core/internal/privatekv"
)

var msgpackCodec = privatekv.New()

// Put msgpack-encodes v and writes it to the private space under key,
// unconditionally overwriting any prior value.
func Put(s *onestore.Store, key string, v any) error {
	data, err := msgpackCodec.Marshal(v)
	if err != nil {
		return err
	}
	return s.PutPrivate(key, data)
}

// Get reads key from the private space and msgpack-decodes it into v.
func Get(s *onestore.Store, key string, v any) error {
	data, err := s.GetPrivate(key)
	if err != nil {
		return err
	}
	return msgpackCodec.Unmarshal(data, v)
}

// Has reports whether key exists in the private space.
func Has(s *onestore.Store, key string) (bool, error) {
	return s.HasPrivate(key)
}

// Delete removes key from the private space.
func Delete(s *onestore.Store, key string) error {
	return s.DeletePrivate(key)
}
