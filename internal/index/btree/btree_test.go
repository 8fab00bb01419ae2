package btree

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func openTree(t *testing.T) *Tree {
	t.Helper()
	fs := afero.NewMemMapFs()
	tr, err := Open(fs, "/t/pk.idx", nil)
	require.NoError(t, err)
	return tr
}

func TestSearchMissOnEmptyTree(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	_, found, err := tr.Search(42)
	require.NoError(t, err)
	require.False(t, found)
}

func TestInsertThenSearchFindsExactOffset(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	require.NoError(t, tr.Insert(10, 100))
	require.NoError(t, tr.Insert(20, 200))

	off, found, err := tr.Search(10)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 100, off)

	off, found, err = tr.Search(20)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 200, off)

	_, found, err = tr.Search(15)
	require.NoError(t, err)
	require.False(t, found)
}

// TestLeafSplitsWhenFull inserts Order keys into the root leaf, forcing
// exactly one leaf split (Order=3: a 3rd insert overflows the 2-key leaf).
func TestLeafSplitsWhenFull(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	require.NoError(t, tr.Insert(30, 300))
	require.NoError(t, tr.Insert(10, 100))
	require.NoError(t, tr.Insert(20, 200))

	for _, tc := range []struct {
		key int32
		off int64
	}{{10, 100}, {20, 200}, {30, 300}} {
		off, found, err := tr.Search(tc.key)
		require.NoError(t, err)
		require.True(t, found, "key %d", tc.key)
		require.EqualValues(t, tc.off, off)
	}
}

// TestLeafChainIsAscendingAfterSplits verifies that walking next_leaf
// from FirstLeaf yields all keys in strictly ascending order with no
// duplicates.
func TestLeafChainIsAscendingAfterSplits(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	keys := []int32{50, 10, 40, 20, 60, 30, 5, 70, 25, 35}
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, int64(i)))
	}

	id, err := tr.FirstLeaf()
	require.NoError(t, err)

	var seen []int32
	for id != NoNextLeaf {
		leaf, err := tr.ReadLeaf(id)
		require.NoError(t, err)
		require.True(t, leaf.IsLeaf)
		for i := int32(0); i < leaf.NumKeys; i++ {
			seen = append(seen, leaf.Keys[i])
		}
		id = leaf.NextLeaf
	}

	require.Len(t, seen, len(keys))
	for i := 1; i < len(seen); i++ {
		require.Less(t, seen[i-1], seen[i], "leaf chain must be strictly ascending")
	}
}

// TestManyInsertsForceRootGrowth drives enough splits to promote separator
// keys through at least two levels of internal nodes, exercising root
// growth.
func TestManyInsertsForceRootGrowth(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	const n = 40
	for i := int32(0); i < n; i++ {
		require.NoError(t, tr.Insert(i, int64(i*10)))
	}

	for i := int32(0); i < n; i++ {
		off, found, err := tr.Search(i)
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		require.EqualValues(t, i*10, off)
	}

	_, found, err := tr.Search(n + 1)
	require.NoError(t, err)
	require.False(t, found)
}

// TestInsertDescendingOrder exercises splits where every new key lands at
// the front of the leaf, the mirror case of ascending inserts.
func TestInsertDescendingOrder(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	const n = 25
	for i := int32(n); i > 0; i-- {
		require.NoError(t, tr.Insert(i, int64(i)))
	}
	for i := int32(1); i <= n; i++ {
		off, found, err := tr.Search(i)
		require.NoError(t, err)
		require.True(t, found, "key %d", i)
		require.EqualValues(t, i, off)
	}
}

// TestAllLeavesAtEqualDepth verifies that after any insert sequence,
// every leaf sits at the same depth from the root.
func TestAllLeavesAtEqualDepth(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	for i := int32(0); i < 30; i++ {
		require.NoError(t, tr.Insert(i, int64(i)))
	}

	depths := map[int32]bool{}
	var walk func(id int32, depth int32) error
	walk = func(id int32, depth int32) error {
		n, err := tr.readNode(id)
		if err != nil {
			return err
		}
		if n.IsLeaf {
			depths[depth] = true
			return nil
		}
		for i := int32(0); i <= n.NumKeys; i++ {
			if err := walk(n.Children[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	require.NoError(t, walk(tr.store.RootID(), 0))
	require.Len(t, depths, 1, "all leaves must be at equal depth, saw %v", depths)
}

// TestInternalNodeSeparatorsBoundSubtrees verifies that for every
// internal node, each separator key correctly bounds its left and right
// subtrees.
func TestInternalNodeSeparatorsBoundSubtrees(t *testing.T) {
	tr := openTree(t)
	defer tr.Close()

	for i := int32(0); i < 30; i++ {
		require.NoError(t, tr.Insert(i*3%37, int64(i)))
	}

	var maxInSubtree func(id int32) (int32, int32, error)
	maxInSubtree = func(id int32) (int32, int32, error) {
		n, err := tr.readNode(id)
		if err != nil {
			return 0, 0, err
		}
		if n.IsLeaf {
			if n.NumKeys == 0 {
				return 0, 0, nil
			}
			return n.Keys[0], n.Keys[n.NumKeys-1], nil
		}
		minV, _, err := maxInSubtree(n.Children[0])
		if err != nil {
			return 0, 0, err
		}
		_, maxV, err := maxInSubtree(n.Children[n.NumKeys])
		if err != nil {
			return 0, 0, err
		}
		return minV, maxV, nil
	}

	var check func(id int32) error
	check = func(id int32) error {
		n, err := tr.readNode(id)
		if err != nil {
			return err
		}
		if n.IsLeaf {
			return nil
		}
		for i := int32(0); i < n.NumKeys; i++ {
			_, leftMax, err := maxInSubtree(n.Children[i])
			if err != nil {
				return err
			}
			rightMin, _, err := maxInSubtree(n.Children[i+1])
			if err != nil {
				return err
			}
			require.Less(t, leftMax, n.Keys[i])
			require.GreaterOrEqual(t, rightMin, n.Keys[i])
		}
		for i := int32(0); i <= n.NumKeys; i++ {
			if err := check(n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	require.NoError(t, check(tr.store.RootID()))
}

// TestReopenPreservesTree closes and reopens the index file, confirming
// the tree is reproducible from disk alone.
func TestReopenPreservesTree(t *testing.T) {
	fs := afero.NewMemMapFs()
	tr, err := Open(fs, "/t/pk.idx", nil)
	require.NoError(t, err)

	keys := []int32{5, 15, 25, 35, 45, 55, 65}
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, int64(i)))
	}
	require.NoError(t, tr.Close())

	tr2, err := Open(fs, "/t/pk.idx", nil)
	require.NoError(t, err)
	defer tr2.Close()

	for i, k := range keys {
		off, found, err := tr2.Search(k)
		require.NoError(t, err)
		require.True(t, found, "key %d", k)
		require.EqualValues(t, i, off)
	}
}
