package onestore

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/onestore/core/internal/stringify"
)

const itemtypePrefix = "//refin.io/"

var stringifyCodec = stringify.New()

// Serialize renders obj as canonical microdata, per its registered recipe.
func Serialize(reg *Registry, obj Object) (string, error) {
	recipe, ok := reg.Lookup(obj.Type)
	if !ok {
		return "", newCodecErr(ErrUnknownType, obj.Type, 0)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, `<div itemscope itemtype="%s%s">`, itemtypePrefix, escapeText(obj.Type))
	if err := encodeRules(&buf, recipe.Rules, obj.Fields); err != nil {
		return "", err
	}
	buf.WriteString("</div>")
	return buf.String(), nil
}

// SerializeIdentity renders the identity microdata for obj: only top-level
// IsID rules, under the data-id-object outer frame.
func SerializeIdentity(reg *Registry, obj Object) (string, error) {
	recipe, ok := reg.Lookup(obj.Type)
	if !ok {
		return "", newCodecErr(ErrUnknownType, obj.Type, 0)
	}

	var idRules []Rule
	idFields := make(map[string]Value)
	for _, r := range recipe.Rules {
		if r.IsID {
			idRules = append(idRules, r)
			if v, ok := obj.Fields[r.Itemprop]; ok {
				idFields[r.Itemprop] = v
			}
		}
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, `<div data-id-object="true" itemscope itemtype="%s%s">`, itemtypePrefix, escapeText(obj.Type))
	if err := encodeRules(&buf, idRules, idFields); err != nil {
		return "", err
	}
	buf.WriteString("</div>")
	return buf.String(), nil
}

// encodeRules walks rules in order against fields, the same discipline the
// teacher's field-plan walker uses against reflected struct fields, except
// here the "fields" are a recipe-typed map rather than reflected Go fields.
func encodeRules(buf *strings.Builder, rules []Rule, fields map[string]Value) error {
	for _, rule := range rules {
		val, present := fields[rule.Itemprop]
		if !present {
			if rule.Optional {
				continue
			}
			return newCodecErr(ErrMissingMandatory, rule.Itemprop, 0)
		}
		if err := encodeRule(buf, rule, val, true); err != nil {
			return err
		}
	}

	declared := make(map[string]bool, len(rules))
	for _, rule := range rules {
		declared[rule.Itemprop] = true
	}
	for name := range fields {
		if !declared[name] {
			return newCodecErr(ErrUnknownProperty, name, 0)
		}
	}
	return nil
}

// encodeRule renders one rule's value. withItemprop is false when rendering
// a collection item or map value, where the grammar drops the itemprop
// attribute since there is no field name at that point.
func encodeRule(buf *strings.Builder, rule Rule, val Value, withItemprop bool) error {
	return encodeTyped(buf, rule.Itemprop, rule.Type, val, withItemprop)
}

func encodeTyped(buf *strings.Builder, name string, vt ValueType, val Value, withItemprop bool) error {
	prop := ""
	if withItemprop {
		prop = fmt.Sprintf(` itemprop="%s"`, escapeText(name))
	}

	switch vt.Kind {
	case KindString:
		if val.Kind != KindString {
			return newCodecErr(ErrUnknownProperty, name, 0)
		}
		if vt.Regexp != "" {
			if ok, err := regexpMatch(vt.Regexp, val.Str); err != nil || !ok {
				return newCodecErr(ErrRegexpMismatch, name, 0)
			}
		}
		fmt.Fprintf(buf, "<span%s>%s</span>", prop, escapeText(val.Str))
		return nil

	case KindInteger:
		fmt.Fprintf(buf, "<span%s>%s</span>", prop, strconv.FormatInt(val.Int, 10))
		return nil

	case KindNumber:
		fmt.Fprintf(buf, "<span%s>%s</span>", prop, formatNumber(val.Num))
		return nil

	case KindBoolean:
		b := "false"
		if val.Bool {
			b = "true"
		}
		fmt.Fprintf(buf, "<span%s>%s</span>", prop, b)
		return nil

	case KindStringifiable:
		raw, err := stringifyCodec.Marshal(val.Raw)
		if err != nil {
			return newCodecErr(ErrUnknownProperty, name, 0)
		}
		fmt.Fprintf(buf, "<span%s>%s</span>", prop, escapeText(string(raw)))
		return nil

	case KindReferenceToObj, KindReferenceToID, KindReferenceToClob, KindReferenceToBlob:
		if err := checkHash(val.Hash); err != nil {
			return err
		}
		dataType := referenceDataType(vt.Kind)
		fmt.Fprintf(buf, `<a%s data-type="%s">%s</a>`, prop, dataType, val.Hash)
		return nil

	case KindArray, KindBag, KindSet:
		tag := "ol"
		items := val.Items
		if vt.Kind != KindArray {
			tag = "ul"
			items = sortedItems(val.Items)
		}
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
			if err := encodeTyped(buf, "", *vt.Item, item, false); err != nil {
				return err
			}
			buf.WriteString("</li>")
		}
		fmt.Fprintf(buf, "</%s>", tag)
		return nil

	case KindMap:
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
			if err := encodeTyped(buf, "", *vt.Value, p.Value, false); err != nil {
				return err
			}
			buf.WriteString("</dd>")
		}
		buf.WriteString("</dl>")
		return nil

	case KindObject:
		fmt.Fprintf(buf, "<div%s>", prop)
		if err := encodeRules(buf, vt.Rules, val.Fields); err != nil {
			return err
		}
		buf.WriteString("</div>")
		return nil

	default:
		return newCodecErr(ErrUnknownType, name, 0)
	}
}

func referenceDataType(kind ValueKind) string {
	switch kind {
	case KindReferenceToObj:
		return "obj"
	case KindReferenceToID:
		return "id"
	case KindReferenceToClob:
		return "clob"
	case KindReferenceToBlob:
		return "blob"
	}
	return ""
}

// sortedItems orders bag/set items deterministically: strings by
// code-point, hashes lexicographically. Array order is never touched here;
// callers only pass sortedItems for bag/set.
func sortedItems(items []Value) []Value {
	out := append([]Value(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

func sortedPairs(pairs []Pair) []Pair {
	out := append([]Pair(nil), pairs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// sortKey produces the byte-wise comparison key for a bag/set element.
// Strings compare by their raw UTF-8 bytes (equivalent to code-point order
// for valid UTF-8); references compare by their hex hash; everything else
// falls back to its rendered form so ordering is still well-defined.
func sortKey(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindReferenceToObj, KindReferenceToID, KindReferenceToClob, KindReferenceToBlob:
		return v.Hash
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindNumber:
		return formatNumber(v.Num)
	default:
		var buf strings.Builder
		_ = encodeTyped(&buf, "", ValueType{Kind: v.Kind}, v, false)
		return buf.String()
	}
}

// formatNumber renders f the way JS's shortest-round-trip double
// formatting does for the common cases: an integral float loses its
// fractional part (1 not 1.0), otherwise the shortest decimal that
// round-trips is used.
func formatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// escapeText replaces <, >, &, " with their HTML entities. The replacer
// substitutes in a single pass, so the entities it emits are never
// re-escaped.
func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// unescapeText inverts escapeText.
func unescapeText(s string) string {
	r := strings.NewReplacer("&quot;", `"`, "&gt;", ">", "&lt;", "<", "&amp;", "&")
	return r.Replace(s)
}

// decodeStringifiable parses arbitrary JSON text into a generic Go value
// for a stringifiable field.
func decodeStringifiable(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
