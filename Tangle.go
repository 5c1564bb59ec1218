package tangle

import (
	"sync"
	"sync/atomic"
	"time"
)


//============================================= Tangle Lifecycle


// Tangle is one persistent, embedded, ordered key/value store: three
//	memory-mapped segments (index/keys/data), a B-tree index over them, and a
//	single worker goroutine that performs every mutation and read. Every
//	exported accessor either enqueues work through queue or reads a plain
//	atomic counter safe to call from any goroutine.
type Tangle struct {
	opts   TangleOpts
	source StorageSource

	indexSeg *Segment
	keysSeg  *Segment
	dataSeg  *Segment

	btree   *BTree
	pool    *NodePool
	queue   *opQueue
	log     *Log
	metrics *Metrics

	version uint64
	count   uint64

	closeOnce sync.Once
}

// Open creates or reopens a tangle per opts. When opts.Source is nil, a
//	DirSource rooted at opts.Filepath is used, naming each of the three
//	streams "<FileName>.<index|keys|data>" under that directory.
func Open(opts TangleOpts) (*Tangle, error) {
	source := opts.Source
	if source == nil { source = NewDirSource(opts.Filepath, opts.FileName) }

	viewCacheSize := opts.ViewCacheSize
	if viewCacheSize <= 0 { viewCacheSize = DefaultViewCacheSize }

	idleTimeout := opts.IdleTimeoutMillis
	if idleTimeout <= 0 { idleTimeout = DefaultIdleTimeoutMillis }

	nodePoolSize := opts.NodePoolSize
	if nodePoolSize <= 0 { nodePoolSize = DefaultNodePoolSize }

	t := &Tangle{ opts: opts, source: source, log: NewLog(nil) }
	if opts.Logger != nil { t.log = opts.Logger }

	indexStream, err := source.Open(streamNameIndex)
	if err != nil { return nil, newStorageIOErr(err) }

	keysStream, err := source.Open(streamNameKeys)
	if err != nil { return nil, newStorageIOErr(err) }

	dataStream, err := source.Open(streamNameData)
	if err != nil { return nil, newStorageIOErr(err) }

	t.indexSeg, err = OpenSegment(indexStream, IndexGrowthQuantum, viewCacheSize)
	if err != nil { return nil, err }

	t.keysSeg, err = OpenSegment(keysStream, DataGrowthQuantum, viewCacheSize)
	if err != nil { return nil, err }

	t.dataSeg, err = OpenSegment(dataStream, DataGrowthQuantum, viewCacheSize)
	if err != nil { return nil, err }

	t.pool = NewNodePool(nodePoolSize)

	t.btree, err = NewBTree(t.indexSeg, t.keysSeg, t.dataSeg, t.pool)
	if err != nil { return nil, err }

	t.metrics = newMetrics()
	t.queue = newOpQueue(time.Duration(idleTimeout)*time.Millisecond, t.log, t.metrics)

	if countErr := t.recount(); countErr != nil { return nil, countErr }

	return t, nil
}

// recount walks the index once at open to seed the in-memory live-entry
//	counter, since Count is a plain atomic read afterward rather than a
//	per-operation tree walk.
func (t *Tangle) recount() error {
	var n uint64

	err := t.btree.ForEach(func(TangleKey, []byte) error {
		n++
		return nil
	})
	if err != nil { return err }

	atomic.StoreUint64(&t.count, n)
	return nil
}

// run submits fn to the worker and waits for it to complete, surfacing
//	either the queue's own disposal error or fn's own returned error.
func (t *Tangle) run(fn func() error) error {
	var opErr error

	if subErr := t.queue.submit(func() { opErr = fn() }); subErr != nil { return subErr }

	return opErr
}

// Count returns the number of live value entries. Safe from any goroutine.
func (t *Tangle) Count() uint64 { return atomic.LoadUint64(&t.count) }

// Version returns the mutation counter invalidating outstanding FindResults. Safe from any goroutine.
func (t *Tangle) Version() uint64 { return atomic.LoadUint64(&t.version) }

// WastedDataBytes returns bytes orphaned by in-place updates and deletes. Safe from any goroutine.
func (t *Tangle) WastedDataBytes() uint64 { return t.btree.WastedBytes() }

// NodeCount returns the index segment's capacity divided by the node size. Safe from any goroutine.
func (t *Tangle) NodeCount() uint64 { return t.indexSeg.NodeCount(NodeSize) }

func (t *Tangle) bumpVersion() { atomic.AddUint64(&t.version, 1) }

// Close stops accepting new operations, fails everything still pending in the
//	queue with TangleDisposed, flushes every segment, and closes its streams.
func (t *Tangle) Close() error {
	var closeErr error

	t.closeOnce.Do(func() {
		// dispose blocks until any item the worker was already running finishes,
		//	then fails everything still waiting in the channel with TangleDisposed
		//	instead of running it, so the worker never runs concurrently with
		//	Close's own Sync/Close calls below.
		t.queue.dispose()

		for _, seg := range []*Segment{ t.indexSeg, t.keysSeg, t.dataSeg } {
			if syncErr := seg.Sync(); syncErr != nil {
				t.log.flushFailed(seg.stream.Name(), syncErr)
			}

			if err := seg.Close(); err != nil && closeErr == nil { closeErr = err }
		}
	})

	return closeErr
}

// Remove closes the tangle and deletes its backing streams.
func (t *Tangle) Remove() error {
	if err := t.Close(); err != nil { return err }

	for _, name := range []string{ streamNameIndex, streamNameKeys, streamNameData } {
		if err := t.source.Remove(name); err != nil { return err }
	}

	return nil
}
