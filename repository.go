package onestore

import "time"

// Status is the outcome of a store operation: whether the content address
// was newly created or already present.
type Status string

const (
	StatusNew    Status = "new"
	StatusExists Status = "exists"
)

// outboundRef is one reference discovered while walking a persisted
// object's value tree, destined for the reverse-map indexer.
type outboundRef struct {
	Hash string
	Kind RefKind
}

func collectReferences(v Value) []outboundRef {
	switch v.Kind {
	case KindReferenceToObj:
		return []outboundRef{{Hash: v.Hash, Kind: RefKindObject}}
	case KindReferenceToID:
		return []outboundRef{{Hash: v.Hash, Kind: RefKindIdObject}}
	case KindArray, KindBag, KindSet:
		var out []outboundRef
		for _, item := range v.Items {
			out = append(out, collectReferences(item)...)
		}
		return out
	case KindMap:
		var out []outboundRef
		for _, p := range v.Pairs {
			out = append(out, collectReferences(p.Value)...)
		}
		return out
	case KindObject:
		var out []outboundRef
		for _, fv := range v.Fields {
			out = append(out, collectReferences(fv)...)
		}
		return out
	default:
		return nil
	}
}

func collectObjectReferences(obj Object) []outboundRef {
	var out []outboundRef
	for _, v := range obj.Fields {
		out = append(out, collectReferences(v)...)
	}
	return out
}

// persistObject canonicalizes obj, asserts the round-trip invariant, and
// writes it under its content hash. It never touches the version DAG or
// reverse maps - callers layer those on top per versioned/unversioned
// semantics.
func (s *Store) persistObject(obj Object) (hash, status, microdata string, err error) {
	start := time.Now()
	emitStoreStart(obj.Type)

	hash, microdata, err = ObjectHash(s.Registry, obj)
	if err != nil {
		emitStoreComplete(obj.Type, "", "", 0, time.Since(start), err)
		return "", "", "", err
	}

	parsed, perr := Parse(s.Registry, microdata)
	if perr != nil {
		err = newStoreErr(ErrRoundTripMismatch, "persistObject", hash, perr)
		emitStoreComplete(obj.Type, hash, "", len(microdata), time.Since(start), err)
		return "", "", "", err
	}
	if !objectsEquivalent(obj, parsed) {
		err = newStoreErr(ErrRoundTripMismatch, "persistObject", hash, nil)
		emitStoreComplete(obj.Type, hash, "", len(microdata), time.Since(start), err)
		return "", "", "", err
	}

	existed, werr := s.blobs.WriteOnce(SpaceObjects, hash, []byte(microdata))
	if werr != nil {
		emitStoreComplete(obj.Type, hash, "", len(microdata), time.Since(start), werr)
		return "", "", "", werr
	}

	status = string(StatusNew)
	if existed {
		status = string(StatusExists)
	}
	emitStoreComplete(obj.Type, hash, status, len(microdata), time.Since(start), nil)
	return hash, status, microdata, nil
}

// recordOutboundReferences walks obj's reference fields and records a
// reverse-map entry for each one enabled in configuration. This runs after
// the object itself is durably written, so a query racing the caller
// either sees no edge yet or the fully-recorded edge - never a partial one.
func (s *Store) recordOutboundReferences(obj Object, referencingHash string) error {
	for _, ref := range collectObjectReferences(obj) {
		var targetType string

		switch ref.Kind {
		case RefKindObject:
			target, err := s.loadObject(ref.Hash)
			if err != nil {
				if err == ErrFileNotFound {
					continue
				}
				return err
			}
			targetType = target.Type

		case RefKindIdObject:
			head, err := s.currentHead(ref.Hash)
			if err != nil {
				return err
			}
			if head == "" {
				continue
			}
			node, err := s.loadVersionNode(head)
			if err != nil {
				return err
			}
			target, err := s.loadObject(node.Data)
			if err != nil {
				return err
			}
			targetType = target.Type
		}

		if !s.config.reverseMapEnabled(obj.Type, targetType, ref.Kind == RefKindIdObject) {
			continue
		}
		if err := s.appendReverseMap(ref.Hash, ref.Kind, obj.Type, referencingHash); err != nil {
			return err
		}
	}
	return nil
}

// StoreUnversioned persists obj, whose recipe must not carry any isId
// rule, and records its outbound reverse-map edges.
func (s *Store) StoreUnversioned(obj Object) (hash string, status Status, err error) {
	recipe, ok := s.Registry.Lookup(obj.Type)
	if !ok {
		return "", "", newCodecErr(ErrUnknownType, obj.Type, 0)
	}
	if recipe.Versioned() {
		return "", "", newStoreErr(ErrVersionedMismatch, "StoreUnversioned", "", nil)
	}

	hash, statusStr, _, err := s.persistObject(obj)
	if err != nil {
		return "", "", err
	}
	if err := s.recordOutboundReferences(obj, hash); err != nil {
		return "", "", err
	}
	return hash, Status(statusStr), nil
}

// StoreVersioned persists obj under its identity's version DAG per
// storeAs, requiring a versioned recipe.
func (s *Store) StoreVersioned(obj Object, storeAs StoreAs) (hash, idHash string, status Status, err error) {
	recipe, ok := s.Registry.Lookup(obj.Type)
	if !ok {
		return "", "", "", newCodecErr(ErrUnknownType, obj.Type, 0)
	}
	if !recipe.Versioned() {
		return "", "", "", newStoreErr(ErrVersionedMismatch, "StoreVersioned", "", nil)
	}

	idHash, _, err = IdentityHash(s.Registry, obj)
	if err != nil {
		return "", "", "", err
	}

	hash, statusStr, _, err := s.persistObject(obj)
	if err != nil {
		return "", "", "", err
	}

	if _, err := s.appendVersion(idHash, hash, storeAs); err != nil {
		return "", "", "", err
	}
	if err := s.recordOutboundReferences(obj, hash); err != nil {
		return "", "", "", err
	}

	return hash, idHash, Status(statusStr), nil
}

// StoreIdObject persists only obj's identity microdata, allocating the
// identity's address without committing any version to its DAG.
func (s *Store) StoreIdObject(obj Object) (idHash string, status Status, err error) {
	recipe, ok := s.Registry.Lookup(obj.Type)
	if !ok {
		return "", "", newCodecErr(ErrUnknownType, obj.Type, 0)
	}
	if !recipe.Versioned() {
		return "", "", newStoreErr(ErrVersionedMismatch, "StoreIdObject", "", nil)
	}

	idHash, idMicrodata, err := IdentityHash(s.Registry, obj)
	if err != nil {
		return "", "", err
	}

	parsedID, err := Parse(s.Registry, idMicrodata)
	if err != nil {
		return "", "", newStoreErr(ErrRoundTripMismatch, "StoreIdObject", idHash, err)
	}
	idFields := make(map[string]Value)
	for _, r := range recipe.Rules {
		if r.IsID {
			idFields[r.Itemprop] = obj.Fields[r.Itemprop]
		}
	}
	if !fieldsEquivalent(idFields, parsedID.Fields) {
		return "", "", newStoreErr(ErrRoundTripMismatch, "StoreIdObject", idHash, nil)
	}

	existed, err := s.blobs.WriteOnce(SpaceObjects, idHash, []byte(idMicrodata))
	if err != nil {
		return "", "", err
	}
	status = StatusNew
	if existed {
		status = StatusExists
	}
	return idHash, status, nil
}

// loadObject reads and parses the object stored at hash.
func (s *Store) loadObject(hash string) (Object, error) {
	start := time.Now()
	emitLoadStart(hash)

	if err := checkHash(hash); err != nil {
		emitLoadComplete(hash, time.Since(start), err)
		return Object{}, err
	}
	data, err := s.blobs.Get(SpaceObjects, hash)
	if err != nil {
		emitLoadComplete(hash, time.Since(start), err)
		return Object{}, err
	}
	obj, err := Parse(s.Registry, string(data))
	emitLoadComplete(hash, time.Since(start), err)
	return obj, err
}

// LoadObject reads and parses the object stored at hash.
func (s *Store) LoadObject(hash string) (Object, error) {
	return s.loadObject(hash)
}

// LoadById returns the payload object currently at idHash's version-DAG
// head, along with its hash.
func (s *Store) LoadById(idHash string) (Object, string, error) {
	node, err := s.GetCurrentVersionNode(idHash)
	if err != nil {
		return Object{}, "", err
	}
	obj, err := s.loadObject(node.Data)
	return obj, node.Data, err
}

// LoadByIdObj derives the idHash of partial (an object carrying at least
// its isId fields) and returns its current head payload.
func (s *Store) LoadByIdObj(partial Object) (Object, string, error) {
	idHash, _, err := IdentityHash(s.Registry, partial)
	if err != nil {
		return Object{}, "", err
	}
	return s.LoadById(idHash)
}
