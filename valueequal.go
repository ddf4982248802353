package onestore

// valuesEquivalent compares two Values for the round-trip assertion:
// bag/set/map compare as unordered collections (their wire order is a
// canonicalization detail, not part of their identity); array and object
// compare positionally/by field.
func valuesEquivalent(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindInteger:
		return a.Int == b.Int
	case KindNumber:
		return a.Num == b.Num
	case KindBoolean:
		return a.Bool == b.Bool
	case KindStringifiable:
		encA, errA := stringifyCodec.Marshal(a.Raw)
		encB, errB := stringifyCodec.Marshal(b.Raw)
		return errA == nil && errB == nil && string(encA) == string(encB)
	case KindReferenceToObj, KindReferenceToID, KindReferenceToClob, KindReferenceToBlob:
		return a.Hash == b.Hash
	case KindArray:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !valuesEquivalent(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindBag, KindSet:
		if len(a.Items) != len(b.Items) {
			return false
		}
		sa, sb := sortedItems(a.Items), sortedItems(b.Items)
		for i := range sa {
			if !valuesEquivalent(sa[i], sb[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		pa, pb := sortedPairs(a.Pairs), sortedPairs(b.Pairs)
		for i := range pa {
			if pa[i].Key != pb[i].Key || !valuesEquivalent(pa[i].Value, pb[i].Value) {
				return false
			}
		}
		return true
	case KindObject:
		return fieldsEquivalent(a.Fields, b.Fields)
	}
	return false
}

func fieldsEquivalent(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEquivalent(av, bv) {
			return false
		}
	}
	return true
}

func objectsEquivalent(a, b Object) bool {
	return a.Type == b.Type && fieldsEquivalent(a.Fields, b.Fields)
}
