package onestore

// System recipe names for version-node records. These are ordinary
// objects under the hood - persisted and hashed exactly like any other
// recipe-typed value - so the version DAG reuses the same write-once
// object storage the repository already provides.
const (
	recipeVersionNodeEdge   = "VersionNodeEdge"
	recipeVersionNodeChange = "VersionNodeChange"
)

func registerSystemRecipes(reg *Registry) error {
	if err := reg.Register(Recipe{
		Name: recipeVersionNodeEdge,
		Rules: []Rule{
			{Itemprop: "data", Type: ValueType{Kind: KindReferenceToObj, AllowedTypes: []string{"*"}}},
		},
	}); err != nil {
		return err
	}
	return reg.Register(Recipe{
		Name: recipeVersionNodeChange,
		Rules: []Rule{
			{Itemprop: "data", Type: ValueType{Kind: KindReferenceToObj, AllowedTypes: []string{"*"}}},
			{Itemprop: "prev", Type: ValueType{Kind: KindReferenceToObj, AllowedTypes: []string{recipeVersionNodeEdge, recipeVersionNodeChange}}},
		},
	})
}

// VersionNode is the decoded form of a persisted VersionNodeEdge/Change
// object: Hash is the node's own object hash, Data is the payload object
// it points at, and Prev is empty for an Edge (root) node.
type VersionNode struct {
	Hash string
	Data string
	Prev string
}

func (v VersionNode) IsEdge() bool { return v.Prev == "" }

func versionNodeToObject(dataHash, prevHash string) Object {
	if prevHash == "" {
		return Object{
			Type: recipeVersionNodeEdge,
			Fields: map[string]Value{
				"data": {Kind: KindReferenceToObj, Hash: dataHash},
			},
		}
	}
	return Object{
		Type: recipeVersionNodeChange,
		Fields: map[string]Value{
			"data": {Kind: KindReferenceToObj, Hash: dataHash},
			"prev": {Kind: KindReferenceToObj, Hash: prevHash},
		},
	}
}

func objectToVersionNode(hash string, obj Object) VersionNode {
	node := VersionNode{Hash: hash, Data: obj.Fields["data"].Hash}
	if obj.Type == recipeVersionNodeChange {
		node.Prev = obj.Fields["prev"].Hash
	}
	return node
}

// StoreAs selects how storeVersioned links a new payload into an
// identity's history.
type StoreAs string

const (
	StoreAsChange StoreAs = "change"
	StoreAsMerge  StoreAs = "merge"
)

// appendVersionNode persists a VersionNode object for dataHash, linking it
// to prevHash ("" for the identity's first version), and returns the
// decoded node. Callers must hold the per-idHash head lock.
func (s *Store) appendVersionNode(dataHash, prevHash string) (VersionNode, error) {
	obj := versionNodeToObject(dataHash, prevHash)
	hash, _, _, err := s.persistObject(obj)
	if err != nil {
		return VersionNode{}, err
	}
	return VersionNode{Hash: hash, Data: dataHash, Prev: prevHash}, nil
}

// currentHead returns the version-node hash at the head of idHash's
// history, or "" if the identity has no recorded history yet.
func (s *Store) currentHead(idHash string) (string, error) {
	data, err := s.blobs.Get(SpaceVHeads, idHash)
	if err != nil {
		if err == ErrFileNotFound {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func (s *Store) setHead(idHash, nodeHash string) error {
	return s.blobs.Put(SpaceVHeads, idHash, []byte(nodeHash))
}

// loadVersionNode loads and decodes the VersionNode object at nodeHash.
func (s *Store) loadVersionNode(nodeHash string) (VersionNode, error) {
	obj, err := s.loadObject(nodeHash)
	if err != nil {
		return VersionNode{}, err
	}
	if obj.Type != recipeVersionNodeEdge && obj.Type != recipeVersionNodeChange {
		return VersionNode{}, newStoreErr(ErrDanglingPrev, "loadVersionNode", nodeHash, nil)
	}
	return objectToVersionNode(nodeHash, obj), nil
}

// GetCurrentVersionNode returns the head version node for idHash.
func (s *Store) GetCurrentVersionNode(idHash string) (VersionNode, error) {
	head, err := s.currentHead(idHash)
	if err != nil {
		return VersionNode{}, err
	}
	if head == "" {
		return VersionNode{}, ErrFileNotFound
	}
	return s.loadVersionNode(head)
}

// GetAllVersionNodes walks from the head back to the Edge node, returning
// nodes oldest-first.
func (s *Store) GetAllVersionNodes(idHash string) ([]VersionNode, error) {
	head, err := s.currentHead(idHash)
	if err != nil {
		return nil, err
	}
	if head == "" {
		return nil, nil
	}

	var nodes []VersionNode
	visited := make(map[string]bool)
	cur := head
	for cur != "" {
		if visited[cur] {
			return nil, newStoreErr(ErrDanglingPrev, "GetAllVersionNodes", cur, nil)
		}
		visited[cur] = true

		node, err := s.loadVersionNode(cur)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
		cur = node.Prev
	}

	// reverse into oldest-first order
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes, nil
}

// appendVersion links dataHash into idHash's history per storeAs, under
// the per-idHash head lock so concurrent storeVersioned calls on the same
// identity serialize while unrelated identities proceed in parallel.
func (s *Store) appendVersion(idHash, dataHash string, storeAs StoreAs) (VersionNode, error) {
	unlock := s.headLocks.lock(idHash)
	defer unlock()

	head, err := s.currentHead(idHash)
	if err != nil {
		return VersionNode{}, err
	}

	switch storeAs {
	case StoreAsChange, "":
		node, err := s.appendVersionNode(dataHash, head)
		if err != nil {
			return VersionNode{}, err
		}
		if err := s.setHead(idHash, node.Hash); err != nil {
			return VersionNode{}, err
		}
		emitVersionAppended(idHash, node.Hash)
		return node, nil

	case StoreAsMerge:
		if head != "" {
			headNode, err := s.loadVersionNode(head)
			if err != nil {
				return VersionNode{}, err
			}
			if headNode.Data == dataHash {
				// already-recorded pair: idempotent no-op.
				return headNode, nil
			}
		}
		// A merge takes no prev of its own: it starts a new history with an
		// Edge when the identity has none, and any other merge onto an
		// existing head returns ErrNonFastForward. Branch reconciliation
		// is left to a higher-level reconciler.
		if head == "" {
			node, err := s.appendVersionNode(dataHash, "")
			if err != nil {
				return VersionNode{}, err
			}
			if err := s.setHead(idHash, node.Hash); err != nil {
				return VersionNode{}, err
			}
			emitVersionAppended(idHash, node.Hash)
			return node, nil
		}
		return VersionNode{}, newStoreErr(ErrNonFastForward, "appendVersion", idHash, nil)

	default:
		return VersionNode{}, newStoreErr(ErrVersionedMismatch, "appendVersion", idHash, nil)
	}
}
