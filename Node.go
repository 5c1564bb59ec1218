package tangle

import (
	"encoding/binary"
	"errors"
)


//============================================= B-Tree Node Layout


// EntryStatus is the status of one value entry slot.
type EntryStatus uint8

const (
	// StatusEmpty marks a slot with no live entry (initial state, or a deleted one)
	StatusEmpty EntryStatus = 0
	// StatusValid marks an entry visible to readers
	StatusValid EntryStatus = 1
	// StatusInModification marks a slot mid-write; an entry found in this state on
	//	reopen after an unclean shutdown is skipped as absent, the same as StatusEmpty
	StatusInModification EntryStatus = 2
)

const (
	// NodeSize is the fixed on-disk record size for one B-tree node
	NodeSize = 4096
	// ValueEntrySize is the encoded width of one ValueEntry
	ValueEntrySize = 16
	// nodeHeaderSize: is_leaf(1) + is_modifying(1) + num_values(2) + parent_index(8)
	nodeHeaderSize = 12
	// MaxValuesPerNode is derived so the node fits in NodeSize together with
	//	max_values_per_node+1 child indices.
	MaxValuesPerNode = (NodeSize - nodeHeaderSize - 8) / (ValueEntrySize + 8)
	// MinValuesPerNode is the split/merge floor, half of MaxValuesPerNode.
	MinValuesPerNode = MaxValuesPerNode / 2
)

const (
	ndIsLeafIdx      = 0
	ndIsModifyingIdx = 1
	ndNumValuesIdx   = 2
	ndParentIdxIdx   = 4
	ndValuesIdx      = nodeHeaderSize
	ndChildrenIdx    = ndValuesIdx + MaxValuesPerNode*ValueEntrySize
)

const (
	veKeyOffsetIdx  = 0
	veKeyLengthIdx  = 4
	veDataOffsetIdx = 6
	veDataLengthIdx = 10
	veKeyTypeIdx    = 14
	veStatusIdx     = 15
)

// RootNodeIndex is always node 0.
const RootNodeIndex uint64 = 0

// noChild marks an unset child slot.
const noChild = ^uint64(0)

var errShortNodeRecord = errors.New("tangle: short node record")

// ValueEntry locates one live key's bytes (in the keys segment) and one
//	value's bytes (in the data segment), or marks the slot deleted/in-flight.
type ValueEntry struct {
	KeyOffset  uint32
	KeyLength  uint16
	DataOffset uint32
	DataLength uint32
	KeyType    KeyType
	Status     EntryStatus
}

// BTreeNode is the decoded, in-memory form of one fixed-size on-disk node.
type BTreeNode struct {
	Index       uint64
	IsLeaf      bool
	IsModifying bool
	ParentIndex int64
	Values      []ValueEntry
	// Children holds len(Values)+1 node indices when IsLeaf is false; nil otherwise.
	Children []uint64
}

func newLeafNode(index uint64, parent int64) *BTreeNode {
	return &BTreeNode{ Index: index, IsLeaf: true, ParentIndex: parent }
}

func newInternalNode(index uint64, parent int64) *BTreeNode {
	return &BTreeNode{ Index: index, IsLeaf: false, ParentIndex: parent }
}

// serializeNode encodes node into a NodeSize-byte record.
func serializeNode(node *BTreeNode) []byte {
	buf := make([]byte, NodeSize)

	if node.IsLeaf {
		buf[ndIsLeafIdx] = 1
	}
	if node.IsModifying {
		buf[ndIsModifyingIdx] = 1
	}

	binary.LittleEndian.PutUint16(buf[ndNumValuesIdx:], uint16(len(node.Values)))
	binary.LittleEndian.PutUint64(buf[ndParentIdxIdx:], uint64(node.ParentIndex))

	for i, ve := range node.Values {
		off := ndValuesIdx + i*ValueEntrySize
		binary.LittleEndian.PutUint32(buf[off+veKeyOffsetIdx:], ve.KeyOffset)
		binary.LittleEndian.PutUint16(buf[off+veKeyLengthIdx:], ve.KeyLength)
		binary.LittleEndian.PutUint32(buf[off+veDataOffsetIdx:], ve.DataOffset)
		binary.LittleEndian.PutUint32(buf[off+veDataLengthIdx:], ve.DataLength)
		buf[off+veKeyTypeIdx] = byte(ve.KeyType)
		buf[off+veStatusIdx] = byte(ve.Status)
	}

	if ! node.IsLeaf {
		for i, child := range node.Children {
			off := ndChildrenIdx + i*8
			binary.LittleEndian.PutUint64(buf[off:], child)
		}
	}

	return buf
}

// populateNode decodes a NodeSize-byte record read from the index segment
//	into node, reusing its existing Values/Children backing arrays when they
//	have enough capacity — the form readNode needs to fill a pooled node
//	without an allocation on every read.
func populateNode(node *BTreeNode, index uint64, raw []byte) error {
	if len(raw) < NodeSize { return newInvalidDataErr(errShortNodeRecord) }

	node.Index = index
	node.IsLeaf = raw[ndIsLeafIdx] == 1
	node.IsModifying = raw[ndIsModifyingIdx] == 1
	node.ParentIndex = int64(binary.LittleEndian.Uint64(raw[ndParentIdxIdx:]))

	numValues := int(binary.LittleEndian.Uint16(raw[ndNumValuesIdx:]))
	node.Values = growValueEntries(node.Values, numValues)

	for i := 0; i < numValues; i++ {
		off := ndValuesIdx + i*ValueEntrySize

		node.Values[i] = ValueEntry{
			KeyOffset:  binary.LittleEndian.Uint32(raw[off+veKeyOffsetIdx:]),
			KeyLength:  binary.LittleEndian.Uint16(raw[off+veKeyLengthIdx:]),
			DataOffset: binary.LittleEndian.Uint32(raw[off+veDataOffsetIdx:]),
			DataLength: binary.LittleEndian.Uint32(raw[off+veDataLengthIdx:]),
			KeyType:    KeyType(raw[off+veKeyTypeIdx]),
			Status:     EntryStatus(raw[off+veStatusIdx]),
		}
	}

	if node.IsLeaf {
		node.Children = node.Children[:0]
		return nil
	}

	node.Children = growChildren(node.Children, numValues+1)
	for i := 0; i < numValues+1; i++ {
		off := ndChildrenIdx + i*8
		node.Children[i] = binary.LittleEndian.Uint64(raw[off:])
	}

	return nil
}

func growValueEntries(values []ValueEntry, n int) []ValueEntry {
	if cap(values) >= n { return values[:n] }
	return make([]ValueEntry, n)
}

func growChildren(children []uint64, n int) []uint64 {
	if cap(children) >= n { return children[:n] }
	return make([]uint64, n)
}

// cloneNode returns a deep-enough copy of node for copy-on-write-style
//	editing: Values and Children are freshly allocated so mutating the clone
//	never touches the original's backing arrays.
func cloneNode(node *BTreeNode) *BTreeNode {
	clone := &BTreeNode{
		Index:       node.Index,
		IsLeaf:      node.IsLeaf,
		IsModifying: node.IsModifying,
		ParentIndex: node.ParentIndex,
	}

	clone.Values = make([]ValueEntry, len(node.Values))
	copy(clone.Values, node.Values)

	if ! node.IsLeaf {
		clone.Children = make([]uint64, len(node.Children))
		copy(clone.Children, node.Children)
	}

	return clone
}
