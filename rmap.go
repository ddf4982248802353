package onestore

import "strings"

// RefKind distinguishes a reverse-map key addressed by a target object's
// hash from one addressed by a target identity's idHash.
type RefKind string

const (
	RefKindObject   RefKind = "Object"
	RefKindIdObject RefKind = "IdObject"
)

func rmapKey(targetHash string, kind RefKind, referencingType string) string {
	return targetHash + "." + string(kind) + "." + referencingType
}

// appendReverseMap records that referencingHash (of type referencingType)
// references targetHash, under a per-key lock so the append-read-modify-
// write cycle never races with itself. Duplicate appends are no-ops.
func (s *Store) appendReverseMap(targetHash string, kind RefKind, referencingType, referencingHash string) error {
	key := rmapKey(targetHash, kind, referencingType)
	unlock := s.rmapLocks.lock(key)
	defer unlock()

	existing, err := s.blobs.Get(SpaceRMaps, key)
	if err != nil && err != ErrFileNotFound {
		return err
	}

	lines := splitLines(existing)
	for _, l := range lines {
		if l == referencingHash {
			return nil
		}
	}
	lines = append(lines, referencingHash)

	if err := s.blobs.Put(SpaceRMaps, key, []byte(strings.Join(lines, "\n")+"\n")); err != nil {
		return err
	}
	emitReverseMapAppended(targetHash, referencingType)
	return nil
}

// getAllEntries returns every hash recorded as referencing targetHash via
// referencingType, in append order.
func (s *Store) getAllEntries(targetHash string, kind RefKind, referencingType string) ([]string, error) {
	data, err := s.blobs.Get(SpaceRMaps, rmapKey(targetHash, kind, referencingType))
	if err == ErrFileNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return splitLines(data), nil
}

// getOnlyLatestReferencingObjsHash returns, for each distinct identity
// among the referencing objects, only the hash that is the current head
// of that identity's version DAG.
func (s *Store) getOnlyLatestReferencingObjsHash(targetHash string, kind RefKind, referencingType string) ([]string, error) {
	all, err := s.getAllEntries(targetHash, kind, referencingType)
	if err != nil {
		return nil, err
	}

	recorded := make(map[string]bool, len(all))
	for _, hash := range all {
		recorded[hash] = true
	}

	seen := make(map[string]bool)
	var result []string
	for _, hash := range all {
		obj, err := s.loadObject(hash)
		if err != nil {
			return nil, err
		}
		idHash, _, err := IdentityHash(s.Registry, obj)
		if err != nil {
			return nil, err
		}
		if seen[idHash] {
			continue
		}
		seen[idHash] = true

		node, err := s.GetCurrentVersionNode(idHash)
		if err != nil {
			if err == ErrFileNotFound {
				continue
			}
			return nil, err
		}
		if recorded[node.Data] {
			result = append(result, node.Data)
		}
	}
	return result, nil
}

func splitLines(data []byte) []string {
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
