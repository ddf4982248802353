package onestore

import (
	"encoding/base64"
	"strings"
	"time"
)

// Explode parses an imploded microdata string, recursively re-persisting
// every inlined child (leaves first, since the grammar nests them that
// way) via the repository's store operations, verifying each child's
// re-stored hash against its data-hash wrapper, and finally stores the
// root.
func (s *Store) Explode(imploded string) (hash, idHash string, status Status, err error) {
	start := time.Now()
	emitExplodeStart()

	cur := &cursor{s: imploded}
	tag, attrs, perr := parseOpenTag(cur)
	if perr != nil {
		emitExplodeComplete("", time.Since(start), perr)
		return "", "", "", perr
	}
	if tag != "div" {
		e := newCodecErr(ErrBadEndTag, tag, 0)
		emitExplodeComplete("", time.Since(start), e)
		return "", "", "", e
	}

	itemtype := attrs["itemtype"]
	if !strings.HasPrefix(itemtype, itemtypePrefix) {
		e := newCodecErr(ErrUnknownType, itemtype, 0)
		emitExplodeComplete("", time.Since(start), e)
		return "", "", "", e
	}
	typeName := unescapeText(strings.TrimPrefix(itemtype, itemtypePrefix))

	recipe, ok := s.Registry.Lookup(typeName)
	if !ok {
		e := newCodecErr(ErrUnknownType, typeName, 0)
		emitExplodeComplete("", time.Since(start), e)
		return "", "", "", e
	}

	fields, ferr := s.explodeRules(cur, recipe.Rules)
	if ferr != nil {
		emitExplodeComplete("", time.Since(start), ferr)
		return "", "", "", ferr
	}
	if cerr := parseCloseTag(cur, "div"); cerr != nil {
		emitExplodeComplete("", time.Since(start), cerr)
		return "", "", "", cerr
	}
	if cur.pos != len(cur.s) {
		e := newCodecErr(ErrTrailingData, "", cur.pos)
		emitExplodeComplete("", time.Since(start), e)
		return "", "", "", e
	}

	obj := Object{Type: typeName, Fields: fields}

	var hashOut string
	var st Status
	if recipe.Versioned() {
		hashOut, idHash, st, err = s.StoreVersioned(obj, StoreAsMerge)
	} else {
		hashOut, st, err = s.StoreUnversioned(obj)
	}
	if err != nil {
		emitExplodeComplete(hashOut, time.Since(start), err)
		return "", "", "", err
	}

	emitExplodeComplete(hashOut, time.Since(start), nil)
	return hashOut, idHash, st, nil
}

// explodeRules mirrors parseRules but re-persists inlined children as it
// encounters them.
func (s *Store) explodeRules(cur *cursor, rules []Rule) (map[string]Value, error) {
	fields := make(map[string]Value)

	for {
		if cur.pos >= len(cur.s) {
			return nil, newCodecErr(ErrBadEndTag, "", cur.pos)
		}
		if cur.hasPrefix("</") {
			break
		}

		startPos := cur.pos
		tag, attrs, err := parseOpenTag(cur)
		if err != nil {
			return nil, err
		}
		itemprop := unescapeText(attrs["itemprop"])
		rule, ok := findRule(rules, itemprop)
		if !ok {
			return nil, newCodecErr(ErrUnknownProperty, itemprop, startPos)
		}

		val, err := s.explodeBody(cur, tag, attrs, rule.Type, startPos)
		if err != nil {
			return nil, err
		}
		if err := parseCloseTag(cur, tag); err != nil {
			return nil, err
		}
		fields[itemprop] = val
	}

	for _, rule := range rules {
		if rule.Optional {
			continue
		}
		if _, ok := fields[rule.Itemprop]; !ok {
			return nil, newCodecErr(ErrMissingMandatory, rule.Itemprop, cur.pos)
		}
	}
	return fields, nil
}

// explodeValue mirrors decodeValue: parses one complete, itemprop-less
// element, re-persisting it if it is an inlined reference.
func (s *Store) explodeValue(cur *cursor, vt ValueType) (Value, error) {
	startPos := cur.pos
	tag, attrs, err := parseOpenTag(cur)
	if err != nil {
		return Value{}, err
	}
	val, err := s.explodeBody(cur, tag, attrs, vt, startPos)
	if err != nil {
		return Value{}, err
	}
	if err := parseCloseTag(cur, tag); err != nil {
		return Value{}, err
	}
	return val, nil
}

// explodeBody parses the body of an already-opened tag. Reference kinds
// are inlined as <span data-hash="...">...</span>; a bare <a> is accepted
// unchanged (explode tolerates a mix of inlined and un-inlined references).
func (s *Store) explodeBody(cur *cursor, tag string, attrs map[string]string, vt ValueType, offset int) (Value, error) {
	switch vt.Kind {
	case KindReferenceToObj, KindReferenceToID:
		if tag != "span" {
			return decodeBody(cur, tag, attrs, vt, offset)
		}
		return s.explodeObjOrIdRef(cur, attrs, vt, offset)

	case KindReferenceToClob:
		if tag != "span" {
			return decodeBody(cur, tag, attrs, vt, offset)
		}
		dataHash := attrs["data-hash"]
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		hash, _, err := s.StoreClob(unescapeText(text))
		if err != nil {
			return Value{}, err
		}
		if hash != dataHash {
			return Value{}, newStoreErr(ErrImplodeHashMismatch, "explode", dataHash, nil)
		}
		return Value{Kind: KindReferenceToClob, Hash: hash}, nil

	case KindReferenceToBlob:
		if tag != "span" {
			return decodeBody(cur, tag, attrs, vt, offset)
		}
		dataHash := attrs["data-hash"]
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		data, derr := base64.StdEncoding.DecodeString(text)
		if derr != nil {
			return Value{}, newCodecErr(ErrBadEndTag, text, offset)
		}
		hash, _, err := s.StoreBlob(data)
		if err != nil {
			return Value{}, err
		}
		if hash != dataHash {
			return Value{}, newStoreErr(ErrImplodeHashMismatch, "explode", dataHash, nil)
		}
		return Value{Kind: KindReferenceToBlob, Hash: hash}, nil

	case KindArray, KindBag, KindSet:
		wantTag := "ol"
		if vt.Kind != KindArray {
			wantTag = "ul"
		}
		if tag != wantTag {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		var items []Value
		for !cur.hasPrefix("</" + wantTag) {
			if err := cur.expectLiteral("<li>"); err != nil {
				return Value{}, err
			}
			if vt.Item == nil {
				return Value{}, newCodecErr(ErrUnknownType, tag, offset)
			}
			item, err := s.explodeValue(cur, *vt.Item)
			if err != nil {
				return Value{}, err
			}
			if err := cur.expectLiteral("</li>"); err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{Kind: vt.Kind, Items: items}, nil

	case KindMap:
		if tag != "dl" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		var pairs []Pair
		for !cur.hasPrefix("</dl") {
			if err := cur.expectLiteral("<dt>"); err != nil {
				return Value{}, err
			}
			keyText, err := cur.readUntilTag("</dt>")
			if err != nil {
				return Value{}, err
			}
			if err := cur.expectLiteral("<dd>"); err != nil {
				return Value{}, err
			}
			if vt.Value == nil {
				return Value{}, newCodecErr(ErrUnknownType, tag, offset)
			}
			val, err := s.explodeValue(cur, *vt.Value)
			if err != nil {
				return Value{}, err
			}
			if err := cur.expectLiteral("</dd>"); err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: unescapeText(keyText), Value: val})
		}
		return Value{Kind: KindMap, Pairs: pairs}, nil

	case KindObject:
		if tag != "div" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		fields, err := s.explodeRules(cur, vt.Rules)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindObject, Fields: fields}, nil

	default:
		return decodeBody(cur, tag, attrs, vt, offset)
	}
}

// explodeObjOrIdRef handles an inlined <span data-hash="..."[ data-id-hash="..."]>
// wrapping a nested <div itemscope itemtype="...">...</div>, re-persisting
// the nested object and verifying the wrapper's hash claims.
func (s *Store) explodeObjOrIdRef(cur *cursor, attrs map[string]string, vt ValueType, offset int) (Value, error) {
	dataHash := attrs["data-hash"]
	if err := checkHash(dataHash); err != nil {
		return Value{}, err
	}

	childTag, childAttrs, err := parseOpenTag(cur)
	if err != nil {
		return Value{}, err
	}
	if childTag != "div" {
		return Value{}, newCodecErr(ErrBadEndTag, childTag, offset)
	}
	itemtype := childAttrs["itemtype"]
	if !strings.HasPrefix(itemtype, itemtypePrefix) {
		return Value{}, newCodecErr(ErrUnknownType, itemtype, offset)
	}
	typeName := unescapeText(strings.TrimPrefix(itemtype, itemtypePrefix))

	recipe, ok := s.Registry.Lookup(typeName)
	if !ok {
		return Value{}, newCodecErr(ErrUnknownType, typeName, offset)
	}

	childFields, err := s.explodeRules(cur, recipe.Rules)
	if err != nil {
		return Value{}, err
	}
	if err := parseCloseTag(cur, "div"); err != nil {
		return Value{}, err
	}

	childObj := Object{Type: typeName, Fields: childFields}

	var hash, childIDHash string
	if recipe.Versioned() {
		hash, childIDHash, _, err = s.StoreVersioned(childObj, StoreAsMerge)
	} else {
		hash, _, err = s.StoreUnversioned(childObj)
	}
	if err != nil {
		return Value{}, err
	}
	if hash != dataHash {
		return Value{}, newStoreErr(ErrImplodeHashMismatch, "explode", dataHash, nil)
	}
	if wantIDHash := attrs["data-id-hash"]; wantIDHash != "" && wantIDHash != childIDHash {
		return Value{}, newStoreErr(ErrImplodeHashMismatch, "explode", wantIDHash, nil)
	}

	if vt.Kind == KindReferenceToID {
		return Value{Kind: KindReferenceToID, Hash: childIDHash}, nil
	}
	return Value{Kind: KindReferenceToObj, Hash: hash}, nil
}
