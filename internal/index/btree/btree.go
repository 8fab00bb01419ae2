// Package btree implements a persistent B+ tree primary-key index:
// on-disk node layout, split propagation, root promotion, and
// key→offset lookup, built on top of internal/storage/pagestore.
//
// All records live in leaves; internal nodes carry only separator keys.
// The tree does not reject duplicate keys itself — the caller
// (internal/engine) must Search first and treat a hit as a
// duplicate-key error before calling Insert.
package btree

import (
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"godb/internal/storage/pagestore"
)

// Tree is one table's primary-key B+ tree index, backed by one index file.
type Tree struct {
	store *pagestore.Store
	log   *zap.SugaredLogger
}

// Open opens or creates the index file at path. A brand-new file is
// initialized with a single empty leaf as node 0.
func Open(fs afero.Fs, path string, log *zap.SugaredLogger) (*Tree, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	store, err := pagestore.Open(fs, path, NodeSize, newEmptyLeaf().encode(), log)
	if err != nil {
		return nil, err
	}
	return &Tree{store: store, log: log}, nil
}

// Close flushes and closes the underlying index file.
func (t *Tree) Close() error {
	return t.store.Close()
}

func (t *Tree) readNode(id int32) (Node, error) {
	buf, err := t.store.ReadNode(id)
	if err != nil {
		return Node{}, err
	}
	return decodeNode(buf), nil
}

func (t *Tree) writeNode(id int32, n Node) error {
	return t.store.WriteNode(id, n.encode())
}

// childIndexFor returns the child index an internal node descends to for
// key: the first i such that key < keys[i], or num_keys if none.
func childIndexFor(n Node, key int32) int32 {
	var i int32
	for i = 0; i < n.NumKeys; i++ {
		if key < n.Keys[i] {
			break
		}
	}
	return i
}

// Search returns the offset stored for key, and whether it was found.
func (t *Tree) Search(key int32) (int64, bool, error) {
	id := t.store.RootID()
	for {
		n, err := t.readNode(id)
		if err != nil {
			return 0, false, err
		}
		if n.IsLeaf {
			for i := int32(0); i < n.NumKeys; i++ {
				if n.Keys[i] == key {
					return n.Offsets[i], true, nil
				}
			}
			return 0, false, nil
		}
		i := childIndexFor(n, key)
		id = n.Children[i]
	}
}

// FirstLeaf walks children[0] from the root to the leftmost leaf, for
// tests that traverse the next_leaf chain from the start.
func (t *Tree) FirstLeaf() (int32, error) {
	id := t.store.RootID()
	for {
		n, err := t.readNode(id)
		if err != nil {
			return 0, err
		}
		if n.IsLeaf {
			return id, nil
		}
		id = n.Children[0]
	}
}

// ReadLeaf exposes a leaf's decoded contents, for tests walking the
// next_leaf chain.
func (t *Tree) ReadLeaf(id int32) (Node, error) {
	return t.readNode(id)
}

// splitResult carries a promoted separator key back up the path after a
// child split, mirroring InsertResult in original_source/src/structs.h.
type splitResult struct {
	didSplit  bool
	sepKey    int32
	newNodeID int32
}

// Insert adds key→offset to the tree, splitting leaves and propagating
// separator keys up through internal nodes, growing the root when the
// root itself splits. The tree does not check for duplicate keys; see
// the package doc comment.
func (t *Tree) Insert(key int32, offset int64) error {
	path, err := t.descendPath(key)
	if err != nil {
		return err
	}

	leafID := path[len(path)-1]
	leaf, err := t.readNode(leafID)
	if err != nil {
		return err
	}

	result, err := t.insertIntoLeaf(leafID, leaf, key, offset)
	if err != nil {
		return err
	}

	// Propagate the split up through ancestors, innermost first.
	for i := len(path) - 2; i >= 0 && result.didSplit; i-- {
		parentID := path[i]
		parent, err := t.readNode(parentID)
		if err != nil {
			return err
		}
		childID := path[i+1]
		result, err = t.insertIntoInternal(parentID, parent, childID, result.sepKey, result.newNodeID)
		if err != nil {
			return err
		}
	}

	if result.didSplit {
		return t.growRoot(path[0], result.sepKey, result.newNodeID)
	}
	return nil
}

// descendPath walks from the root to the target leaf, returning the full
// path of node IDs visited (path[len-1] is always the leaf).
func (t *Tree) descendPath(key int32) ([]int32, error) {
	var path []int32
	id := t.store.RootID()
	for {
		path = append(path, id)
		n, err := t.readNode(id)
		if err != nil {
			return nil, err
		}
		if n.IsLeaf {
			return path, nil
		}
		id = n.Children[childIndexFor(n, key)]
	}
}

// insertIntoLeaf inserts (key, offset) into leaf, splitting it if full.
// Mirrors the leaf branch of insert_into_node in
// original_source/src/btree/btree.c.
func (t *Tree) insertIntoLeaf(leafID int32, leaf Node, key int32, offset int64) (splitResult, error) {
	if leaf.NumKeys < maxKeys {
		i := leaf.NumKeys - 1
		for i >= 0 && key < leaf.Keys[i] {
			leaf.Keys[i+1] = leaf.Keys[i]
			leaf.Offsets[i+1] = leaf.Offsets[i]
			i--
		}
		leaf.Keys[i+1] = key
		leaf.Offsets[i+1] = offset
		leaf.NumKeys++
		return splitResult{}, t.writeNode(leafID, leaf)
	}

	// Leaf is full: merge existing + new entry into a sorted temp array,
	// then split at s = Order/2 (left keeps [0,s), right gets [s,Order)).
	var tempKeys [Order]int32
	var tempOffsets [Order]int64
	i, j := 0, 0
	for i < maxKeys && leaf.Keys[i] < key {
		tempKeys[j] = leaf.Keys[i]
		tempOffsets[j] = leaf.Offsets[i]
		i++
		j++
	}
	tempKeys[j] = key
	tempOffsets[j] = offset
	j++
	for i < maxKeys {
		tempKeys[j] = leaf.Keys[i]
		tempOffsets[j] = leaf.Offsets[i]
		i++
		j++
	}

	splitPoint := Order / 2

	var left Node
	left.IsLeaf = true
	left.NumKeys = int32(splitPoint)
	for k := 0; k < splitPoint; k++ {
		left.Keys[k] = tempKeys[k]
		left.Offsets[k] = tempOffsets[k]
	}

	var right Node
	right.IsLeaf = true
	right.NumKeys = int32(Order - splitPoint)
	for k := 0; k < Order-splitPoint; k++ {
		right.Keys[k] = tempKeys[k+splitPoint]
		right.Offsets[k] = tempOffsets[k+splitPoint]
	}

	rightID, err := t.store.Allocate()
	if err != nil {
		return splitResult{}, err
	}

	right.NextLeaf = leaf.NextLeaf
	left.NextLeaf = rightID

	if err := t.writeNode(rightID, right); err != nil {
		return splitResult{}, err
	}
	if err := t.writeNode(leafID, left); err != nil {
		return splitResult{}, err
	}

	t.log.Debugw("leaf split", "left", leafID, "right", rightID, "separator", right.Keys[0])

	return splitResult{didSplit: true, sepKey: right.Keys[0], newNodeID: rightID}, nil
}

// insertIntoInternal inserts a promoted separator key and right-child
// pointer into parent, splitting it if full. Mirrors the internal-node
// branch of insert_into_node in original_source/src/btree/btree.c.
func (t *Tree) insertIntoInternal(parentID int32, parent Node, leftChildID int32, sepKey int32, rightChildID int32) (splitResult, error) {
	// Locate the position of leftChildID among parent's children.
	pos := -1
	for i := int32(0); i <= parent.NumKeys; i++ {
		if parent.Children[i] == leftChildID {
			pos = int(i)
			break
		}
	}
	if pos == -1 {
		return splitResult{}, errors.Errorf("btree: parent %d does not reference child %d", parentID, leftChildID)
	}

	if parent.NumKeys < maxKeys {
		for j := int(parent.NumKeys); j > pos; j-- {
			parent.Keys[j] = parent.Keys[j-1]
			parent.Children[j+1] = parent.Children[j]
		}
		parent.Keys[pos] = sepKey
		parent.Children[pos+1] = rightChildID
		parent.NumKeys++
		return splitResult{}, t.writeNode(parentID, parent)
	}

	// Internal node is full: merge into temp arrays and split, promoting
	// the middle key (removed from both children).
	var tempKeys [Order]int32
	var tempChildren [Order + 1]int32
	k, c := 0, 0
	for j := 0; j < pos; j++ {
		tempKeys[k] = parent.Keys[j]
		k++
		tempChildren[c] = parent.Children[j]
		c++
	}
	tempChildren[c] = parent.Children[pos]
	c++
	tempKeys[k] = sepKey
	k++
	tempChildren[c] = rightChildID
	c++
	for j := pos; j < maxKeys; j++ {
		tempKeys[k] = parent.Keys[j]
		k++
		tempChildren[c] = parent.Children[j+1]
		c++
	}

	splitKeyIndex := Order / 2
	middleKey := tempKeys[splitKeyIndex]

	var left Node
	left.NumKeys = int32(splitKeyIndex)
	for j := 0; j < splitKeyIndex; j++ {
		left.Keys[j] = tempKeys[j]
		left.Children[j] = tempChildren[j]
	}
	left.Children[splitKeyIndex] = tempChildren[splitKeyIndex]

	var right Node
	right.NumKeys = int32(maxKeys - splitKeyIndex)
	for j := 0; j < int(right.NumKeys); j++ {
		right.Keys[j] = tempKeys[j+splitKeyIndex+1]
		right.Children[j] = tempChildren[j+splitKeyIndex+1]
	}
	right.Children[right.NumKeys] = tempChildren[Order]

	rightID, err := t.store.Allocate()
	if err != nil {
		return splitResult{}, err
	}

	if err := t.writeNode(rightID, right); err != nil {
		return splitResult{}, err
	}
	if err := t.writeNode(parentID, left); err != nil {
		return splitResult{}, err
	}

	t.log.Debugw("internal split", "left", parentID, "right", rightID, "separator", middleKey)

	return splitResult{didSplit: true, sepKey: middleKey, newNodeID: rightID}, nil
}

// growRoot allocates a fresh internal root with oldRootID and newRightID
// as its two children.
func (t *Tree) growRoot(oldRootID int32, sepKey int32, newRightID int32) error {
	var root Node
	root.NumKeys = 1
	root.Keys[0] = sepKey
	root.Children[0] = oldRootID
	root.Children[1] = newRightID

	newRootID, err := t.store.Allocate()
	if err != nil {
		return err
	}
	if err := t.writeNode(newRootID, root); err != nil {
		return err
	}
	if err := t.store.SetRootID(newRootID); err != nil {
		return err
	}
	t.log.Debugw("root grown", "new_root", newRootID, "left", oldRootID, "right", newRightID)
	return nil
}
