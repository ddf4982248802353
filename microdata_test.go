package onestore_test

import (
	"testing"

	onestore "github.com/onestore/core"
	"github.com/onestore/core/onestoretest"
)

func personObject() onestore.Object {
	return onestore.Object{
		Type: "Person",
		Fields: map[string]onestore.Value{
			"email": {Kind: onestore.KindString, Str: "alice@example.com"},
			"name":  {Kind: onestore.KindString, Str: "Alice & <Bob>"},
			"age":   {Kind: onestore.KindInteger, Int: 33},
			"tags": {Kind: onestore.KindBag, Items: []onestore.Value{
				{Kind: onestore.KindString, Str: "z"},
				{Kind: onestore.KindString, Str: "a"},
				{Kind: onestore.KindString, Str: "m"},
			}},
		},
	}
}

func newTestRegistry(t *testing.T) *onestore.Registry {
	t.Helper()
	reg := onestore.NewRegistry()
	for _, r := range []onestore.Recipe{onestoretest.PersonRecipe} {
		if err := reg.Register(r); err != nil {
			t.Fatalf("register %s: %v", r.Name, err)
		}
	}
	return reg
}

func TestSerializeParseRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	obj := personObject()

	microdata, err := onestore.Serialize(reg, obj)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	parsed, err := onestore.Parse(reg, microdata)
	if err != nil {
		t.Fatalf("Parse: %v\nmicrodata: %s", err, microdata)
	}

	if parsed.Type != obj.Type {
		t.Fatalf("type mismatch: got %s want %s", parsed.Type, obj.Type)
	}
	if parsed.Fields["email"].Str != "alice@example.com" {
		t.Fatalf("email mismatch: %+v", parsed.Fields["email"])
	}
	if parsed.Fields["name"].Str != "Alice & <Bob>" {
		t.Fatalf("name round-trip through escaping failed: %q", parsed.Fields["name"].Str)
	}
	if parsed.Fields["age"].Int != 33 {
		t.Fatalf("age mismatch: %+v", parsed.Fields["age"])
	}
}

func TestSerializeEscapesEntities(t *testing.T) {
	reg := newTestRegistry(t)
	obj := personObject()

	microdata, err := onestore.Serialize(reg, obj)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if want := "Alice &amp; &lt;Bob&gt;"; !contains(microdata, want) {
		t.Fatalf("expected escaped name %q in microdata:\n%s", want, microdata)
	}
}

func TestBagOrderIsCanonicalAndUnordered(t *testing.T) {
	reg := newTestRegistry(t)
	obj := personObject()

	first, err := onestore.Serialize(reg, obj)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Same bag contents, different input order: must serialize identically,
	// since bag canonicalization sorts by wire key rather than preserving
	// caller order.
	shuffled := obj
	shuffled.Fields["tags"] = onestore.Value{Kind: onestore.KindBag, Items: []onestore.Value{
		{Kind: onestore.KindString, Str: "a"},
		{Kind: onestore.KindString, Str: "m"},
		{Kind: onestore.KindString, Str: "z"},
	}}
	second, err := onestore.Serialize(reg, shuffled)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	if first != second {
		t.Fatalf("bag serialization is not order-independent:\nfirst:  %s\nsecond: %s", first, second)
	}
}

func TestParseRejectsUnknownProperty(t *testing.T) {
	reg := newTestRegistry(t)
	microdata := `<div itemscope itemtype="//refin.io/Person">` +
		`<span itemprop="email">a@b.c</span>` +
		`<span itemprop="name">A</span>` +
		`<span itemprop="age" data-type="integer">1</span>` +
		`<span itemprop="bogus">x</span>` +
		`</div>`
	if _, err := onestore.Parse(reg, microdata); err == nil {
		t.Fatal("expected error for unknown property, got nil")
	}
}

func TestParseRejectsMissingMandatory(t *testing.T) {
	reg := newTestRegistry(t)
	microdata := `<div itemscope itemtype="//refin.io/Person">` +
		`<span itemprop="email">a@b.c</span>` +
		`</div>`
	if _, err := onestore.Parse(reg, microdata); err == nil {
		t.Fatal("expected error for missing mandatory fields, got nil")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
