// Package privatekv is a convenience codec for the store's `private` space.
// The core never interprets `private/` content - it is opaque host storage
// for keys and settings - but hosts that want a structured value format
// without pulling in their own dependency can use this MessagePack codec.
package privatekv

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/onestore/core/internal/codec"
)

// msgpackCodec implements codec.Codec for MessagePack.
type msgpackCodec struct{}

// New returns the MessagePack convenience codec for private-space values.
func New() codec.Codec {
	return &msgpackCodec{}
}

func (c *msgpackCodec) ContentType() string { return "application/msgpack" }

func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
