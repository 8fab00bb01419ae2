package btree

import "encoding/binary"

// Order is the B+ tree's order M: at most Order-1 keys per node, at most
// Order children in an internal node. Fixed at 3 to match the reference
// implementation; the split-point arithmetic below generalizes to any
// Order >= 3.
const Order = 3

const maxKeys = Order - 1

// NodeSize is the fixed byte size of one encoded node record:
//
//	is_leaf   int32
//	num_keys  int32
//	keys      int32 * (Order-1)
//	offsets   int64 * (Order-1)
//	children  int32 * Order
//	next_leaf int32
const NodeSize = 4 + 4 + 4*maxKeys + 8*maxKeys + 4*Order + 4

// NoNextLeaf is the sentinel next_leaf value marking the rightmost leaf.
const NoNextLeaf int32 = -1

// Node is the fixed layout shared by leaves and internal nodes. Keys and
// offsets are only meaningful up to NumKeys; children only exist on
// internal nodes; NextLeaf only on leaves.
type Node struct {
	IsLeaf   bool
	NumKeys  int32
	Keys     [maxKeys]int32
	Offsets  [maxKeys]int64
	Children [Order]int32
	NextLeaf int32
}

func newEmptyLeaf() Node {
	return Node{IsLeaf: true, NextLeaf: NoNextLeaf}
}

func (n Node) encode() []byte {
	buf := make([]byte, NodeSize)
	off := 0
	putBool := func(b bool) {
		if b {
			binary.LittleEndian.PutUint32(buf[off:off+4], 1)
		} else {
			binary.LittleEndian.PutUint32(buf[off:off+4], 0)
		}
		off += 4
	}
	putI32 := func(v int32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v))
		off += 4
	}
	putI64 := func(v int64) {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(v))
		off += 8
	}

	putBool(n.IsLeaf)
	putI32(n.NumKeys)
	for _, k := range n.Keys {
		putI32(k)
	}
	for _, o := range n.Offsets {
		putI64(o)
	}
	for _, c := range n.Children {
		putI32(c)
	}
	putI32(n.NextLeaf)
	return buf
}

func decodeNode(buf []byte) Node {
	var n Node
	off := 0
	getI32 := func() int32 {
		v := int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		return v
	}
	getI64 := func() int64 {
		v := int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
		return v
	}

	n.IsLeaf = getI32() != 0
	n.NumKeys = getI32()
	for i := range n.Keys {
		n.Keys[i] = getI32()
	}
	for i := range n.Offsets {
		n.Offsets[i] = getI64()
	}
	for i := range n.Children {
		n.Children[i] = getI32()
	}
	n.NextLeaf = getI32()
	return n
}
