package tangle

import (
	"bytes"
	"fmt"
	"sync/atomic"
)


//============================================= Ordered B-Tree Index


// BTree is the ordered index over keys, backed by three segments: index
//	(fixed-size node records), keys, and data (both append-only byte heaps).
//	All exported methods assume single-writer discipline — they are only ever
//	called from the operation queue's worker goroutine.
type BTree struct {
	index *Segment
	keys  *Segment
	data  *Segment
	pool  *NodePool

	wastedBytes uint64
}

// NewBTree opens the B-tree over the given segments, initializing an empty
//	leaf root at node 0 if the index segment is freshly created.
func NewBTree(index, keys, data *Segment, pool *NodePool) (*BTree, error) {
	bt := &BTree{ index: index, keys: keys, data: data, pool: pool }

	if bt.index.Length() == 0 {
		if err := bt.initRoot(); err != nil { return nil, err }
	}

	return bt, nil
}

func (bt *BTree) initRoot() error {
	rootIndex, err := bt.allocateNode()
	if err != nil { return err }

	if rootIndex != RootNodeIndex {
		return newStorageIOErr(fmt.Errorf("expected root at node 0, allocated node %d", rootIndex))
	}

	return bt.writeNode(newLeafNode(RootNodeIndex, -1))
}

// WastedBytes reports bytes in the keys/data segments made unreachable by
//	in-place updates and deletes — storage this engine never reclaims.
func (bt *BTree) WastedBytes() uint64 {
	return atomic.LoadUint64(&bt.wastedBytes)
}


//============================================= Node I/O


func (bt *BTree) allocateNode() (uint64, error) {
	offset, err := bt.index.Allocate(NodeSize)
	if err != nil { return 0, err }

	return offset / NodeSize, nil
}

// readNode decodes node nodeIndex into a node struct drawn from the pool.
//	Callers that are done with the returned node and know it has not escaped
//	their call frame should return it via bt.pool.Put.
func (bt *BTree) readNode(nodeIndex uint64) (*BTreeNode, error) {
	raw, err := bt.index.Read(nodeIndex*NodeSize, NodeSize)
	if err != nil { return nil, err }

	node := bt.pool.Get()
	if err := populateNode(node, nodeIndex, raw); err != nil {
		bt.pool.Put(node)
		return nil, err
	}

	return node, nil
}

func (bt *BTree) writeNode(node *BTreeNode) error {
	return bt.index.Write(node.Index*NodeSize, serializeNode(node))
}

func (bt *BTree) reparent(nodeIndex, newParent uint64) error {
	node, err := bt.readNode(nodeIndex)
	if err != nil { return err }

	node.ParentIndex = int64(newParent)
	return bt.writeNode(node)
}


//============================================= Search


// searchNode binary searches node's values for key, materializing each
//	candidate's bytes out of the keys segment to compare. Returns the slot a
//	match occupies, or the slot a new entry/child for key belongs at.
func (bt *BTree) searchNode(node *BTreeNode, key TangleKey) (slot int, found bool, err error) {
	lo, hi := 0, len(node.Values)

	for lo < hi {
		mid := (lo + hi) / 2

		entryKey, readErr := readKeyBytes(bt.keys, node.Values[mid])
		if readErr != nil { return 0, false, readErr }

		switch cmp := bytes.Compare(key.Bytes(), entryKey); {
			case cmp == 0:
				return mid, true, nil
			case cmp < 0:
				hi = mid
			default:
				lo = mid + 1
		}
	}

	return lo, false, nil
}

// Find descends the tree for an exact match on key.
func (bt *BTree) Find(key TangleKey) (nodeIndex uint64, slot int, entry ValueEntry, found bool, err error) {
	nodeIndex = RootNodeIndex

	for {
		node, readErr := bt.readNode(nodeIndex)
		if readErr != nil { return 0, 0, ValueEntry{}, false, readErr }

		s, ok, searchErr := bt.searchNode(node, key)
		if searchErr != nil { bt.pool.Put(node); return 0, 0, ValueEntry{}, false, searchErr }

		if ok {
			entry := node.Values[s]
			bt.pool.Put(node)

			if entry.Status != StatusValid { return 0, 0, ValueEntry{}, false, nil }
			return nodeIndex, s, entry, true, nil
		}

		if node.IsLeaf { bt.pool.Put(node); return 0, 0, ValueEntry{}, false, nil }

		nodeIndex = node.Children[s]
		bt.pool.Put(node)
	}
}


//============================================= Insert / Update


// Upsert writes valueBytes under key: replacing the value in place if key
//	already exists and allowOverwrite is true, leaving it untouched if it
//	exists and allowOverwrite is false (the Add semantics), or inserting a
//	new leaf entry (splitting full nodes on the way down) otherwise. Returns
//	the node/slot the entry occupies and whether the key already existed.
func (bt *BTree) Upsert(key TangleKey, valueBytes []byte, allowOverwrite bool) (uint64, int, bool, error) {
	root, err := bt.readNode(RootNodeIndex)
	if err != nil { return 0, 0, false, err }

	if len(root.Values) == MaxValuesPerNode {
		if splitErr := bt.splitRoot(root); splitErr != nil { bt.pool.Put(root); return 0, 0, false, splitErr }
	}
	bt.pool.Put(root)

	return bt.upsertNonfull(RootNodeIndex, key, valueBytes, allowOverwrite)
}

func (bt *BTree) upsertNonfull(nodeIndex uint64, key TangleKey, valueBytes []byte, allowOverwrite bool) (uint64, int, bool, error) {
	node, err := bt.readNode(nodeIndex)
	if err != nil { return 0, 0, false, err }

	slot, found, err := bt.searchNode(node, key)
	if err != nil { return 0, 0, false, err }

	if found && node.Values[slot].Status != StatusValid {
		dataOffset, dataLength, writeErr := writeValueBytes(bt.data, valueBytes)
		if writeErr != nil { bt.pool.Put(node); return 0, 0, false, writeErr }

		atomic.AddUint64(&bt.wastedBytes, -uint64(node.Values[slot].KeyLength))

		node.Values[slot].DataOffset = dataOffset
		node.Values[slot].DataLength = dataLength
		node.Values[slot].KeyType = key.Type()
		node.Values[slot].Status = StatusValid

		writeErr = bt.writeNode(node)
		bt.pool.Put(node)
		if writeErr != nil { return 0, 0, false, writeErr }

		return nodeIndex, slot, false, nil
	}

	if found {
		if ! allowOverwrite {
			bt.pool.Put(node)
			return nodeIndex, slot, true, nil
		}

		if replaceErr := bt.replaceValue(&node.Values[slot], valueBytes); replaceErr != nil {
			bt.pool.Put(node)
			return 0, 0, false, replaceErr
		}
		node.Values[slot].Status = StatusValid

		writeErr := bt.writeNode(node)
		bt.pool.Put(node)
		if writeErr != nil { return 0, 0, false, writeErr }

		return nodeIndex, slot, true, nil
	}

	if node.IsLeaf {
		keyOffset, keyLength, writeErr := writeKeyBytes(bt.keys, key.Bytes())
		if writeErr != nil { bt.pool.Put(node); return 0, 0, false, writeErr }

		dataOffset, dataLength, writeErr := writeValueBytes(bt.data, valueBytes)
		if writeErr != nil { bt.pool.Put(node); return 0, 0, false, writeErr }

		entry := ValueEntry{
			KeyOffset:  keyOffset,
			KeyLength:  keyLength,
			DataOffset: dataOffset,
			DataLength: dataLength,
			KeyType:    key.Type(),
			Status:     StatusValid,
		}

		node.Values = insertEntryAt(node.Values, slot, entry)

		writeErr = bt.writeNode(node)
		bt.pool.Put(node)
		if writeErr != nil { return 0, 0, false, writeErr }

		return nodeIndex, slot, false, nil
	}

	childIndex := node.Children[slot]

	child, err := bt.readNode(childIndex)
	if err != nil { bt.pool.Put(node); return 0, 0, false, err }

	if len(child.Values) == MaxValuesPerNode {
		if splitErr := bt.splitChild(node, slot, child); splitErr != nil {
			bt.pool.Put(node)
			bt.pool.Put(child)
			return 0, 0, false, splitErr
		}

		slot, found, err = bt.searchNode(node, key)
		if err != nil {
			bt.pool.Put(node)
			bt.pool.Put(child)
			return 0, 0, false, err
		}

		if found {
			bt.pool.Put(node)
			bt.pool.Put(child)
			return bt.upsertNonfull(nodeIndex, key, valueBytes, allowOverwrite)
		}

		childIndex = node.Children[slot]
	}
	bt.pool.Put(child)

	bt.pool.Put(node)
	return bt.upsertNonfull(childIndex, key, valueBytes, allowOverwrite)
}

// replaceValue applies the replace-in-place policy: if newBytes fits in
//	entry's current data-segment region it is written over that region in
//	place (trailing bytes zeroed, entry.DataLength shrinks to match); the
//	bytes freed this way are never reused so the difference is counted as
//	wasted. If newBytes is larger, a fresh region is allocated and the whole
//	old region is counted as wasted. Key bytes are never touched.
func (bt *BTree) replaceValue(entry *ValueEntry, newBytes []byte) error {
	newLen := uint32(len(newBytes))

	if newLen <= entry.DataLength {
		if err := bt.data.Write(uint64(entry.DataOffset), newBytes); err != nil { return err }

		if trailing := entry.DataLength - newLen; trailing > 0 {
			if err := bt.data.Write(uint64(entry.DataOffset)+uint64(newLen), make([]byte, trailing)); err != nil { return err }
			atomic.AddUint64(&bt.wastedBytes, uint64(trailing))
		}

		entry.DataLength = newLen
		return nil
	}

	atomic.AddUint64(&bt.wastedBytes, uint64(entry.DataLength))

	dataOffset, dataLength, err := writeValueBytes(bt.data, newBytes)
	if err != nil { return err }

	entry.DataOffset = dataOffset
	entry.DataLength = dataLength
	return nil
}

// splitChild splits the full child occupying parent.Children[childSlot],
//	promoting its median entry into parent at childSlot and inserting the new
//	right sibling into parent.Children at childSlot+1. child, the new right
//	sibling, and parent are all written back before it returns.
func (bt *BTree) splitChild(parent *BTreeNode, childSlot int, child *BTreeNode) error {
	mid := len(child.Values) / 2
	median := child.Values[mid]

	rightIndex, err := bt.allocateNode()
	if err != nil { return err }

	right := &BTreeNode{
		Index:       rightIndex,
		IsLeaf:      child.IsLeaf,
		ParentIndex: int64(parent.Index),
		Values:      append([]ValueEntry{}, child.Values[mid+1:]...),
	}

	child.Values = append([]ValueEntry{}, child.Values[:mid]...)

	if ! child.IsLeaf {
		right.Children = append([]uint64{}, child.Children[mid+1:]...)
		child.Children = append([]uint64{}, child.Children[:mid+1]...)

		for _, ci := range right.Children {
			if err := bt.reparent(ci, rightIndex); err != nil { return err }
		}
	}

	if err := bt.writeNode(child); err != nil { return err }
	if err := bt.writeNode(right); err != nil { return err }

	parent.Values = insertEntryAt(parent.Values, childSlot, median)
	parent.Children = insertChildAt(parent.Children, childSlot+1, rightIndex)

	return bt.writeNode(parent)
}

// splitRoot splits an overfull root while keeping the root permanently at
//	node 0: the current root's two halves are written out to freshly
//	allocated nodes, and node 0 is overwritten with a new two-child root.
func (bt *BTree) splitRoot(root *BTreeNode) error {
	mid := len(root.Values) / 2
	median := root.Values[mid]

	leftIndex, err := bt.allocateNode()
	if err != nil { return err }

	rightIndex, err := bt.allocateNode()
	if err != nil { return err }

	left := &BTreeNode{
		Index:       leftIndex,
		IsLeaf:      root.IsLeaf,
		ParentIndex: int64(RootNodeIndex),
		Values:      append([]ValueEntry{}, root.Values[:mid]...),
	}

	right := &BTreeNode{
		Index:       rightIndex,
		IsLeaf:      root.IsLeaf,
		ParentIndex: int64(RootNodeIndex),
		Values:      append([]ValueEntry{}, root.Values[mid+1:]...),
	}

	if ! root.IsLeaf {
		left.Children = append([]uint64{}, root.Children[:mid+1]...)
		right.Children = append([]uint64{}, root.Children[mid+1:]...)

		for _, ci := range left.Children {
			if err := bt.reparent(ci, leftIndex); err != nil { return err }
		}
		for _, ci := range right.Children {
			if err := bt.reparent(ci, rightIndex); err != nil { return err }
		}
	}

	newRoot := &BTreeNode{
		Index:       RootNodeIndex,
		IsLeaf:      false,
		ParentIndex: -1,
		Values:      []ValueEntry{ median },
		Children:    []uint64{ leftIndex, rightIndex },
	}

	if err := bt.writeNode(left); err != nil { return err }
	if err := bt.writeNode(right); err != nil { return err }

	return bt.writeNode(newRoot)
}


//============================================= Delete


// Delete tombstones the entry for key by marking its slot StatusEmpty.
//	The B-tree never merges nodes or reclaims space for a deleted entry — see
//	WastedBytes, and DESIGN.md for why physical compaction is out of scope.
func (bt *BTree) Delete(key TangleKey) (bool, error) {
	nodeIndex, slot, entry, found, err := bt.Find(key)
	if err != nil || ! found { return false, err }

	node, err := bt.readNode(nodeIndex)
	if err != nil { return false, err }

	atomic.AddUint64(&bt.wastedBytes, uint64(entry.KeyLength)+uint64(entry.DataLength))

	node.Values[slot].Status = StatusEmpty
	writeErr := bt.writeNode(node)
	bt.pool.Put(node)
	if writeErr != nil { return false, writeErr }

	return true, nil
}


//============================================= Ordered Traversal


// ForEach visits every live entry in ascending key order.
func (bt *BTree) ForEach(visit func(key TangleKey, valueBytes []byte) error) error {
	return bt.forEachNode(RootNodeIndex, visit)
}

func (bt *BTree) forEachNode(nodeIndex uint64, visit func(TangleKey, []byte) error) error {
	node, err := bt.readNode(nodeIndex)
	if err != nil { return err }

	if node.IsLeaf {
		values := node.Values
		bt.pool.Put(node)

		for _, entry := range values {
			if entry.Status != StatusValid { continue }
			if err := bt.visitEntry(entry, visit); err != nil { return err }
		}
		return nil
	}

	values := append([]ValueEntry{}, node.Values...)
	children := append([]uint64{}, node.Children...)
	bt.pool.Put(node)

	for i, entry := range values {
		if err := bt.forEachNode(children[i], visit); err != nil { return err }

		if entry.Status == StatusValid {
			if err := bt.visitEntry(entry, visit); err != nil { return err }
		}
	}

	return bt.forEachNode(children[len(children)-1], visit)
}

func (bt *BTree) visitEntry(entry ValueEntry, visit func(TangleKey, []byte) error) error {
	keyBytes, err := readKeyBytes(bt.keys, entry)
	if err != nil { return err }

	valueBytes, err := readValueBytes(bt.data, entry)
	if err != nil { return err }

	return visit(keyFromStored(entry.KeyType, keyBytes), valueBytes)
}


//============================================= Clear


// Clear discards every segment's content and reinitializes an empty root.
//	Freed keys/data bytes are abandoned, not reclaimed — the same policy
//	tombstoned deletes follow.
func (bt *BTree) Clear() error {
	if err := bt.index.Reset(); err != nil { return err }
	if err := bt.keys.Reset(); err != nil { return err }
	if err := bt.data.Reset(); err != nil { return err }

	atomic.StoreUint64(&bt.wastedBytes, 0)

	return bt.initRoot()
}


//============================================= Slice Helpers


func insertEntryAt(values []ValueEntry, at int, entry ValueEntry) []ValueEntry {
	values = append(values, ValueEntry{})
	copy(values[at+1:], values[at:])
	values[at] = entry

	return values
}

func insertChildAt(children []uint64, at int, child uint64) []uint64 {
	children = append(children, 0)
	copy(children[at+1:], children[at:])
	children[at] = child

	return children
}
