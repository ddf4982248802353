package onestore

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Implode renders rootHash's object as a single self-contained microdata
// string: every reference is inlined inside a <span data-hash="...">
// wrapper around the referenced object/CLOB/BLOB, recursively, so the
// result carries no dangling hash.
func (s *Store) Implode(rootHash string) (string, error) {
	start := time.Now()
	emitImplodeStart(rootHash)
	refCount := 0

	obj, err := s.loadObject(rootHash)
	if err != nil {
		emitImplodeComplete(rootHash, refCount, time.Since(start), err)
		return "", err
	}
	recipe, ok := s.Registry.Lookup(obj.Type)
	if !ok {
		err := newCodecErr(ErrUnknownType, obj.Type, 0)
		emitImplodeComplete(rootHash, refCount, time.Since(start), err)
		return "", err
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, `<div itemscope itemtype="%s%s">`, itemtypePrefix, escapeText(obj.Type))
	if err := s.implodeRules(&buf, recipe.Rules, obj.Fields, &refCount); err != nil {
		emitImplodeComplete(rootHash, refCount, time.Since(start), err)
		return "", err
	}
	buf.WriteString("</div>")

	emitImplodeComplete(rootHash, refCount, time.Since(start), nil)
	return buf.String(), nil
}

func (s *Store) implodeRules(buf *strings.Builder, rules []Rule, fields map[string]Value, refCount *int) error {
	for _, rule := range rules {
		val, present := fields[rule.Itemprop]
		if !present {
			if rule.Optional {
				continue
			}
			return newCodecErr(ErrMissingMandatory, rule.Itemprop, 0)
		}
		if err := s.implodeTyped(buf, rule.Itemprop, rule.Type, val, true, refCount); err != nil {
			return err
		}
	}
	return nil
}

func attrProp(name string, withItemprop bool) string {
	if !withItemprop {
		return ""
	}
	return fmt.Sprintf(` itemprop="%s"`, escapeText(name))
}

// implodeTyped renders val per vt, inlining reference kinds and otherwise
// delegating to the plain encoder for primitives.
func (s *Store) implodeTyped(buf *strings.Builder, name string, vt ValueType, val Value, withItemprop bool, refCount *int) error {
	switch vt.Kind {
	case KindReferenceToObj:
		return s.implodeObjRef(buf, name, val, withItemprop, refCount)
	case KindReferenceToID:
		return s.implodeIdRef(buf, name, val, withItemprop, refCount)
	case KindReferenceToClob:
		return s.implodeClobRef(buf, name, val, withItemprop, refCount)
	case KindReferenceToBlob:
		return s.implodeBlobRef(buf, name, val, withItemprop, refCount)

	case KindArray, KindBag, KindSet:
		tag := "ol"
		items := val.Items
		if vt.Kind != KindArray {
			tag = "ul"
			items = sortedItems(val.Items)
		}
		prop := attrProp(name, withItemprop)
		if len(items) == 0 {
			fmt.Fprintf(buf, "<%s%s></%s>", tag, prop, tag)
			return nil
		}
		fmt.Fprintf(buf, "<%s%s>", tag, prop)
		for _, item := range items {
			buf.WriteString("<li>")
			if vt.Item == nil {
				return newCodecErr(ErrUnknownProperty, name, 0)
			}
			if err := s.implodeTyped(buf, "", *vt.Item, item, false, refCount); err != nil {
				return err
			}
			buf.WriteString("</li>")
		}
		fmt.Fprintf(buf, "</%s>", tag)
		return nil

	case KindMap:
		prop := attrProp(name, withItemprop)
		if len(val.Pairs) == 0 {
			fmt.Fprintf(buf, "<dl%s></dl>", prop)
			return nil
		}
		pairs := sortedPairs(val.Pairs)
		fmt.Fprintf(buf, "<dl%s>", prop)
		for _, p := range pairs {
			fmt.Fprintf(buf, "<dt>%s</dt><dd>", escapeText(p.Key))
			if vt.Value == nil {
				return newCodecErr(ErrUnknownProperty, name, 0)
			}
			if err := s.implodeTyped(buf, "", *vt.Value, p.Value, false, refCount); err != nil {
				return err
			}
			buf.WriteString("</dd>")
		}
		buf.WriteString("</dl>")
		return nil

	case KindObject:
		prop := attrProp(name, withItemprop)
		fmt.Fprintf(buf, "<div%s>", prop)
		if err := s.implodeRules(buf, vt.Rules, val.Fields, refCount); err != nil {
			return err
		}
		buf.WriteString("</div>")
		return nil

	default:
		return encodeTyped(buf, name, vt, val, withItemprop)
	}
}

func (s *Store) implodeObjRef(buf *strings.Builder, name string, val Value, withItemprop bool, refCount *int) error {
	if err := checkHash(val.Hash); err != nil {
		return err
	}
	*refCount++

	target, err := s.loadObject(val.Hash)
	if err != nil {
		return err
	}
	recipe, ok := s.Registry.Lookup(target.Type)
	if !ok {
		return newCodecErr(ErrUnknownType, target.Type, 0)
	}

	fmt.Fprintf(buf, `<span%s data-hash="%s">`, attrProp(name, withItemprop), val.Hash)
	fmt.Fprintf(buf, `<div itemscope itemtype="%s%s">`, itemtypePrefix, escapeText(target.Type))
	if err := s.implodeRules(buf, recipe.Rules, target.Fields, refCount); err != nil {
		return err
	}
	buf.WriteString("</div></span>")
	return nil
}

func (s *Store) implodeIdRef(buf *strings.Builder, name string, val Value, withItemprop bool, refCount *int) error {
	if err := checkHash(val.Hash); err != nil {
		return err
	}
	*refCount++

	target, dataHash, err := s.LoadById(val.Hash)
	if err != nil {
		return err
	}
	recipe, ok := s.Registry.Lookup(target.Type)
	if !ok {
		return newCodecErr(ErrUnknownType, target.Type, 0)
	}

	fmt.Fprintf(buf, `<span%s data-hash="%s" data-id-hash="%s">`, attrProp(name, withItemprop), dataHash, val.Hash)
	fmt.Fprintf(buf, `<div itemscope itemtype="%s%s">`, itemtypePrefix, escapeText(target.Type))
	if err := s.implodeRules(buf, recipe.Rules, target.Fields, refCount); err != nil {
		return err
	}
	buf.WriteString("</div></span>")
	return nil
}

func (s *Store) implodeClobRef(buf *strings.Builder, name string, val Value, withItemprop bool, refCount *int) error {
	if err := checkHash(val.Hash); err != nil {
		return err
	}
	*refCount++

	text, err := s.LoadClob(val.Hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, `<span%s data-hash="%s">%s</span>`, attrProp(name, withItemprop), val.Hash, escapeText(text))
	return nil
}

func (s *Store) implodeBlobRef(buf *strings.Builder, name string, val Value, withItemprop bool, refCount *int) error {
	if err := checkHash(val.Hash); err != nil {
		return err
	}
	*refCount++

	data, err := s.LoadBlob(val.Hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, `<span%s data-hash="%s">%s</span>`, attrProp(name, withItemprop), val.Hash, base64.StdEncoding.EncodeToString(data))
	return nil
}
