package onestore

// ValueKind tags the fourteen value shapes a Rule can describe. The codec
// switches on Kind, never on a Go static type, because recipes are
// registered at runtime by name rather than compiled as Go structs.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindNumber
	KindBoolean
	KindStringifiable
	KindReferenceToObj
	KindReferenceToID
	KindReferenceToClob
	KindReferenceToBlob
	KindArray
	KindBag
	KindSet
	KindMap
	KindObject
)

// ValueType is the declarative schema for one Rule's value shape.
type ValueType struct {
	Kind ValueKind

	// KindString only.
	Regexp string

	// KindReferenceToObj / KindReferenceToID only. "*" allows any type.
	AllowedTypes []string

	// KindArray / KindBag / KindSet only: the element schema.
	Item *ValueType

	// KindMap only: key and value schemas. Map keys are always strings on
	// the wire (microdata <dt> text), so Key is informational/validating
	// only and is not itself recursively encoded as a value.
	Key   *ValueType
	Value *ValueType

	// KindObject only: an anonymous nested record.
	Rules []Rule
}

// Value is the in-memory representation of one recipe-typed field. Exactly
// one of the fields below is meaningful, selected by the Rule's Kind -
// mirroring the codec's rule-driven walk rather than a Go type switch on
// concrete structs.
type Value struct {
	Kind ValueKind

	Str  string
	Int  int64
	Num  float64
	Bool bool

	// KindStringifiable: arbitrary JSON-able data (map[string]any, []any,
	// scalars, or a Go map/set represented as stringify.MapPairs /
	// stringify.SetItems).
	Raw any

	// KindReferenceToObj / ToID / ToClob / ToBlob: a 64-hex-char hash.
	Hash string

	// KindArray / KindBag / KindSet.
	Items []Value

	// KindMap: deterministic-order pairs; order is fixed at encode time by
	// sorting keys byte-wise (see sortedPairs).
	Pairs []Pair

	// KindObject: nested field values.
	Fields map[string]Value
}

// Pair is one key/value entry of a KindMap value.
type Pair struct {
	Key   string
	Value Value
}

// Object is a top-level recipe-typed record: the discriminator type name
// plus its field values.
type Object struct {
	Type   string
	Fields map[string]Value
}
