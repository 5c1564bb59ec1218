package tangle

import (
	"sync"
	"sync/atomic"
)


//============================================= B-Tree Node Pool


// NodePool recycles *BTreeNode instances across operations instead of
//	leaving garbage collection to reclaim one per read/write/split.
type NodePool struct {
	pool    *sync.Pool
	maxSize int64
	size    int64
}

// NewNodePool builds a node pool pre-warmed to maxSize/2 entries.
func NewNodePool(maxSize int64) *NodePool {
	np := &NodePool{ maxSize: maxSize }

	np.pool = &sync.Pool{
		New: func() interface{} { return resetNode(&BTreeNode{}) },
	}

	for range make([]int, maxSize/2) {
		np.pool.Put(resetNode(&BTreeNode{}))
		atomic.AddInt64(&np.size, 1)
	}

	return np
}

// Get returns a recycled or freshly allocated node, zeroed of all field state.
func (np *NodePool) Get() *BTreeNode {
	node := np.pool.Get().(*BTreeNode)
	if atomic.LoadInt64(&np.size) > 0 { atomic.AddInt64(&np.size, -1) }

	return node
}

// Put returns node to the pool once its content has been serialized out,
//	dropping it for the garbage collector to reclaim if the pool is full.
func (np *NodePool) Put(node *BTreeNode) {
	if atomic.LoadInt64(&np.size) < np.maxSize {
		np.pool.Put(resetNode(node))
		atomic.AddInt64(&np.size, 1)
	}
}

func resetNode(node *BTreeNode) *BTreeNode {
	node.Index = 0
	node.IsLeaf = false
	node.IsModifying = false
	node.ParentIndex = -1
	node.Values = node.Values[:0]
	node.Children = node.Children[:0]

	return node
}
