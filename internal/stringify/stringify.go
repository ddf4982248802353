// Package stringify renders arbitrary stringifiable values (the
// `stringifiable` ValueType) as deterministic JSON: object keys sorted by
// UTF-16 code unit, Go maps rendered as Map{...} pairs ([[k,v],...]), and
// sets rendered as Set{...} elements ([...]) - matching the microdata
// spec's "Stringifiable" production exactly, which stdlib json.Marshal
// cannot express on its own (map key ordering is close but the Map/Set
// wrapper shapes need custom handling).
package stringify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/onestore/core/internal/codec"
)

// MapPairs represents a Map{key,value} stringifiable payload: an
// insertion-independent collection rendered as [[k,v],...] with keys
// sorted deterministically.
type MapPairs struct {
	Pairs [][2]any
}

// SetItems represents an unordered stringifiable collection rendered as
// [...] with elements sorted by the UTF-16 order of their fmt.Sprint form.
type SetItems struct {
	Items []any
}

// jsonCodec implements codec.Codec for the stringifiable JSON rendering.
type jsonCodec struct{}

// New returns the stringifiable JSON codec.
func New() codec.Codec { return &jsonCodec{} }

func (c *jsonCodec) ContentType() string { return "application/json" }

// Marshal encodes v with sorted object keys and Map/Set special-cased.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON data into v using stdlib encoding/json; the
// Map/Set wrapper shapes only matter for encoding determinism, not
// decoding, since decoding targets a caller-supplied Go value.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case MapPairs:
		return encodeMapPairs(buf, val)
	case SetItems:
		return encodeSetItems(buf, val)
	case map[string]any:
		return encodeSortedObject(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("stringify: %w", err)
		}
		buf.Write(raw)
		return nil
	}
}

func encodeSortedObject(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortUTF16(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := encode(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeMapPairs(buf *bytes.Buffer, m MapPairs) error {
	pairs := append([][2]any(nil), m.Pairs...)
	sort.SliceStable(pairs, func(i, j int) bool {
		return lessUTF16(fmt.Sprint(pairs[i][0]), fmt.Sprint(pairs[j][0]))
	})

	buf.WriteByte('[')
	for i, pair := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		if err := encode(buf, pair[0]); err != nil {
			return err
		}
		buf.WriteByte(',')
		if err := encode(buf, pair[1]); err != nil {
			return err
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return nil
}

func encodeSetItems(buf *bytes.Buffer, s SetItems) error {
	items := append([]any(nil), s.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		return lessUTF16(fmt.Sprint(items[i]), fmt.Sprint(items[j]))
	})

	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// sortUTF16 sorts strings by UTF-16 code unit, the deterministic ordering
// rule this spec fixes for stringifiable JSON object keys (see the Open
// Questions in the design notes).
func sortUTF16(keys []string) {
	sort.Slice(keys, func(i, j int) bool { return lessUTF16(keys[i], keys[j]) })
}

func lessUTF16(a, b string) bool {
	ua, ub := utf16Units(a), utf16Units(b)
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

func utf16Units(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r <= 0xFFFF {
			units = append(units, uint16(r))
			continue
		}
		r -= 0x10000
		units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return units
}
