package onestore

// ObjectHash renders obj's full microdata and returns its SHA-256 hash -
// the content address under which the object is written in objects/.
func ObjectHash(reg *Registry, obj Object) (hash, microdata string, err error) {
	microdata, err = Serialize(reg, obj)
	if err != nil {
		return "", "", err
	}
	return Hash([]byte(microdata)), microdata, nil
}

// IdentityHash renders obj's identity-only microdata (its IsID rules under
// the data-id-object frame) and returns its SHA-256 hash - the idHash that
// names this identity's version DAG, stable across every Change appended
// to it.
func IdentityHash(reg *Registry, obj Object) (idHash, idMicrodata string, err error) {
	idMicrodata, err = SerializeIdentity(reg, obj)
	if err != nil {
		return "", "", err
	}
	return Hash([]byte(idMicrodata)), idMicrodata, nil
}

// IsVersioned reports whether obj's recipe carries at least one IsID rule.
func IsVersioned(reg *Registry, obj Object) (bool, error) {
	recipe, ok := reg.Lookup(obj.Type)
	if !ok {
		return false, newCodecErr(ErrUnknownType, obj.Type, 0)
	}
	return recipe.Versioned(), nil
}
