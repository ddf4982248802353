package onestore

import (
	"strconv"
	"strings"
)

// cursor is a forward-only, non-backtracking read head over a microdata
// string. The grammar is prefix-free at every point a tag can begin, so a
// single pass with no lookahead buffer is sufficient - the parser never
// retains more than the current position.
type cursor struct {
	s   string
	pos int
}

func (c *cursor) hasPrefix(p string) bool {
	return strings.HasPrefix(c.s[c.pos:], p)
}

func (c *cursor) expectLiteral(lit string) error {
	if !c.hasPrefix(lit) {
		return newCodecErr(ErrBadEndTag, lit, c.pos)
	}
	c.pos += len(lit)
	return nil
}

// readUntilTag reads text up to (not including) closeTag and advances past
// closeTag, returning the text between. Used where the caller manages its
// own wrapper tags directly rather than through the generic decodeValue /
// parseRules close-tag step (e.g. the <dt>key</dt> text of a map entry).
func (c *cursor) readUntilTag(closeTag string) (string, error) {
	idx := strings.Index(c.s[c.pos:], closeTag)
	if idx < 0 {
		return "", newCodecErr(ErrBadEndTag, closeTag, c.pos)
	}
	text := c.s[c.pos : c.pos+idx]
	c.pos += idx + len(closeTag)
	return text, nil
}

// readTextBefore reads text up to (not including) closeTag and leaves the
// cursor positioned at closeTag itself, so a subsequent parseCloseTag call
// consumes it. Used by decodeBody's scalar/reference cases, whose callers
// (decodeValue, parseRules) always consume the matching close tag themselves.
func (c *cursor) readTextBefore(closeTag string) (string, error) {
	idx := strings.Index(c.s[c.pos:], closeTag)
	if idx < 0 {
		return "", newCodecErr(ErrBadEndTag, closeTag, c.pos)
	}
	text := c.s[c.pos : c.pos+idx]
	c.pos += idx
	return text, nil
}

// parseOpenTag reads one opening tag ("<name attr=\"v\" bare>") starting at
// the cursor, returning the tag name and its attributes.
func parseOpenTag(cur *cursor) (string, map[string]string, error) {
	if cur.pos >= len(cur.s) || cur.s[cur.pos] != '<' {
		return "", nil, newCodecErr(ErrBadEndTag, "<", cur.pos)
	}
	end := strings.IndexByte(cur.s[cur.pos:], '>')
	if end < 0 {
		return "", nil, newCodecErr(ErrBadEndTag, ">", cur.pos)
	}
	inner := cur.s[cur.pos+1 : cur.pos+end]
	cur.pos += end + 1

	fields := splitTagFields(inner)
	if len(fields) == 0 {
		return "", nil, newCodecErr(ErrBadEndTag, "<>", cur.pos)
	}
	attrs := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k, v := splitAttr(f)
		attrs[k] = v
	}
	return fields[0], attrs, nil
}

func parseCloseTag(cur *cursor, tag string) error {
	return cur.expectLiteral("</" + tag + ">")
}

// splitTagFields tokenizes the inside of a tag on whitespace, respecting
// double-quoted attribute values.
func splitTagFields(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			cur.WriteByte(ch)
		case ch == ' ' && !inQuotes:
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func splitAttr(f string) (string, string) {
	eq := strings.IndexByte(f, '=')
	if eq < 0 {
		return f, ""
	}
	return f[:eq], strings.Trim(f[eq+1:], `"`)
}

func findRule(rules []Rule, itemprop string) (Rule, bool) {
	for _, r := range rules {
		if r.Itemprop == itemprop {
			return r, true
		}
	}
	return Rule{}, false
}

// Parse decodes canonical microdata into an Object, driven by the rules of
// its recipe. The outer frame's data-id-object attribute selects between
// the full recipe and its identity-only rule subset.
func Parse(reg *Registry, microdata string) (Object, error) {
	cur := &cursor{s: microdata}

	tag, attrs, err := parseOpenTag(cur)
	if err != nil {
		return Object{}, err
	}
	if tag != "div" {
		return Object{}, newCodecErr(ErrBadEndTag, tag, 0)
	}

	itemtype := attrs["itemtype"]
	if !strings.HasPrefix(itemtype, itemtypePrefix) {
		return Object{}, newCodecErr(ErrUnknownType, itemtype, 0)
	}
	typeName := unescapeText(strings.TrimPrefix(itemtype, itemtypePrefix))

	recipe, ok := reg.Lookup(typeName)
	if !ok {
		return Object{}, newCodecErr(ErrUnknownType, typeName, 0)
	}

	rules := recipe.Rules
	if attrs["data-id-object"] == "true" {
		var idRules []Rule
		for _, r := range rules {
			if r.IsID {
				idRules = append(idRules, r)
			}
		}
		rules = idRules
	}

	fields, err := parseRules(cur, rules)
	if err != nil {
		return Object{}, err
	}
	if err := parseCloseTag(cur, "div"); err != nil {
		return Object{}, err
	}
	if cur.pos != len(cur.s) {
		return Object{}, newCodecErr(ErrTrailingData, "", cur.pos)
	}

	return Object{Type: typeName, Fields: fields}, nil
}

// parseRules reads zero or more field elements until the next closing tag,
// dispatching each by the itemprop attribute of its opening tag against
// rules, then checks every non-optional rule was present.
func parseRules(cur *cursor, rules []Rule) (map[string]Value, error) {
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

		val, err := decodeBody(cur, tag, attrs, rule.Type, startPos)
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

// decodeValue parses one complete element (open tag, body, close tag) whose
// expected shape is vt and whose opening tag carries no itemprop - used for
// collection items, map values, and other contexts without a field name.
func decodeValue(cur *cursor, vt ValueType) (Value, error) {
	startPos := cur.pos
	tag, attrs, err := parseOpenTag(cur)
	if err != nil {
		return Value{}, err
	}
	val, err := decodeBody(cur, tag, attrs, vt, startPos)
	if err != nil {
		return Value{}, err
	}
	if err := parseCloseTag(cur, tag); err != nil {
		return Value{}, err
	}
	return val, nil
}

// decodeBody parses the body of an already-opened tag into a Value of
// shape vt. The caller consumes the matching close tag.
func decodeBody(cur *cursor, tag string, attrs map[string]string, vt ValueType, offset int) (Value, error) {
	switch vt.Kind {
	case KindString:
		if tag != "span" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		s := unescapeText(text)
		if vt.Regexp != "" {
			ok, err := regexpMatch(vt.Regexp, s)
			if err != nil || !ok {
				return Value{}, newCodecErr(ErrRegexpMismatch, s, offset)
			}
		}
		return Value{Kind: KindString, Str: s}, nil

	case KindInteger:
		if tag != "span" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		n, perr := strconv.ParseInt(text, 10, 64)
		if perr != nil {
			return Value{}, newCodecErr(ErrIntegerCheck, text, offset)
		}
		return Value{Kind: KindInteger, Int: n}, nil

	case KindNumber:
		if tag != "span" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		f, perr := parseNumber(text)
		if perr != nil {
			return Value{}, newCodecErr(ErrIntegerCheck, text, offset)
		}
		return Value{Kind: KindNumber, Num: f}, nil

	case KindBoolean:
		if tag != "span" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		switch text {
		case "true":
			return Value{Kind: KindBoolean, Bool: true}, nil
		case "false":
			return Value{Kind: KindBoolean, Bool: false}, nil
		default:
			return Value{}, newCodecErr(ErrIntegerCheck, text, offset)
		}

	case KindStringifiable:
		if tag != "span" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		text, err := cur.readTextBefore("</span>")
		if err != nil {
			return Value{}, err
		}
		raw, derr := decodeStringifiable(unescapeText(text))
		if derr != nil {
			return Value{}, newCodecErr(ErrBadEndTag, text, offset)
		}
		return Value{Kind: KindStringifiable, Raw: raw}, nil

	case KindReferenceToObj, KindReferenceToID, KindReferenceToClob, KindReferenceToBlob:
		if tag != "a" {
			return Value{}, newCodecErr(ErrBadEndTag, tag, offset)
		}
		if attrs["data-type"] != referenceDataType(vt.Kind) {
			return Value{}, newCodecErr(ErrUnknownType, attrs["data-type"], offset)
		}
		text, err := cur.readTextBefore("</a>")
		if err != nil {
			return Value{}, err
		}
		if err := checkHash(text); err != nil {
			return Value{}, err
		}
		return Value{Kind: vt.Kind, Hash: text}, nil

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
			item, err := decodeValue(cur, *vt.Item)
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
			val, err := decodeValue(cur, *vt.Value)
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
		fields, err := parseRules(cur, vt.Rules)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindObject, Fields: fields}, nil

	default:
		return Value{}, newCodecErr(ErrUnknownType, tag, offset)
	}
}
