package tangle

import (
	"bytes"
	"io"
)


//============================================= Find Result


// FindResult is an opaque, reusable reference to one entry's location,
//	captured at Find time: the tangle it came from, the key searched for, the
//	(node, slot) coordinates, and the tangle's version at that moment. Every
//	method revalidates the version before touching the B-tree and fails with
//	ErrTangleModified on mismatch — including a FindResult's own SetValue,
//	which bumps the version as its last step and so invalidates the handle
//	even against itself for any further call.
type FindResult struct {
	tangle    *Tangle
	key       TangleKey
	nodeIndex uint64
	slot      int
	version   uint64
}

func newFindResult(t *Tangle, key TangleKey, nodeIndex uint64, slot int, version uint64) *FindResult {
	return &FindResult{ tangle: t, key: key, nodeIndex: nodeIndex, slot: slot, version: version }
}

// Key returns the key this handle was found under.
func (fr *FindResult) Key() TangleKey { return fr.key }

func (fr *FindResult) checkVersion() error {
	if fr.tangle.Version() != fr.version { return newTangleModifiedErr() }
	return nil
}

// getByIndex re-reads the live ValueEntry at fr's captured coordinates,
//	failing with KeyNotFound if the slot has since been tombstoned or shifted
//	out of range by a split. Must only be called from the worker goroutine.
func (bt *BTree) getByIndex(nodeIndex uint64, slot int, key TangleKey) (ValueEntry, error) {
	node, err := bt.readNode(nodeIndex)
	if err != nil { return ValueEntry{}, err }
	defer bt.pool.Put(node)

	if slot >= len(node.Values) { return ValueEntry{}, newKeyNotFoundErr(key.Bytes()) }

	entry := node.Values[slot]
	if entry.Status != StatusValid { return ValueEntry{}, newKeyNotFoundErr(key.Bytes()) }

	return entry, nil
}

// setByIndexRaw applies the replace-in-place policy to the entry at
//	(nodeIndex, slot), bypassing any codec. Must only be called from the
//	worker goroutine.
func (bt *BTree) setByIndexRaw(nodeIndex uint64, slot int, key TangleKey, newBytes []byte) error {
	node, err := bt.readNode(nodeIndex)
	if err != nil { return err }
	defer bt.pool.Put(node)

	if slot >= len(node.Values) { return newKeyNotFoundErr(key.Bytes()) }
	if node.Values[slot].Status != StatusValid { return newKeyNotFoundErr(key.Bytes()) }

	if err := bt.replaceValue(&node.Values[slot], newBytes); err != nil { return err }
	node.Values[slot].Status = StatusValid

	return bt.writeNode(node)
}

// GetValue decodes the entry's current value bytes through codec.
func GetValue[T any](fr *FindResult, codec Codec[T]) (T, error) {
	var out T

	err := fr.tangle.run(func() error {
		if err := fr.checkVersion(); err != nil { return err }

		entry, err := fr.tangle.btree.getByIndex(fr.nodeIndex, fr.slot, fr.key)
		if err != nil { return err }

		raw, err := readValueBytes(fr.tangle.btree.data, entry)
		if err != nil { return err }

		if decErr := codec.Deserialize(bytes.NewReader(raw), &out); decErr != nil {
			return newSerializerFailedErr(fr.key.Bytes(), decErr)
		}

		return nil
	})

	if err != nil {
		var zero T
		return zero, err
	}

	return out, nil
}

// SetValue replaces the entry's value (in place, or via a fresh allocation,
//	per the usual wasted-bytes policy) and bumps the tangle's version,
//	invalidating fr and every other outstanding FindResult.
func SetValue[T any](fr *FindResult, value T, codec Codec[T]) error {
	var buf bytes.Buffer
	if err := codec.Serialize(value, &buf); err != nil {
		return newSerializerFailedErr(fr.key.Bytes(), err)
	}
	newBytes := buf.Bytes()

	return fr.tangle.run(func() error {
		if err := fr.checkVersion(); err != nil { return err }

		if err := fr.tangle.btree.setByIndexRaw(fr.nodeIndex, fr.slot, fr.key, newBytes); err != nil { return err }

		fr.tangle.bumpVersion()
		return nil
	})
}

// CopyTo writes the entry's raw, undecoded value bytes to w, without
//	involving a codec.
func (fr *FindResult) CopyTo(w io.Writer) error {
	return fr.tangle.run(func() error {
		if err := fr.checkVersion(); err != nil { return err }

		entry, err := fr.tangle.btree.getByIndex(fr.nodeIndex, fr.slot, fr.key)
		if err != nil { return err }

		raw, err := readValueBytes(fr.tangle.btree.data, entry)
		if err != nil { return err }

		_, writeErr := w.Write(raw)
		return writeErr
	})
}

// CopyFrom replaces the entry's value with raw, undecoded bytes, without
//	involving a codec, and bumps the tangle's version.
func (fr *FindResult) CopyFrom(raw []byte) error {
	return fr.tangle.run(func() error {
		if err := fr.checkVersion(); err != nil { return err }

		if err := fr.tangle.btree.setByIndexRaw(fr.nodeIndex, fr.slot, fr.key, raw); err != nil { return err }

		fr.tangle.bumpVersion()
		return nil
	})
}

// LockData gives fn direct access to the entry's raw value bytes for the
//	duration of one queued operation; the backing Range is acquired and
//	released entirely on the worker thread and must not be retained by fn
//	past return, matching the view-cache's worker-scoped lifetime contract.
func (fr *FindResult) LockData(fn func(raw []byte) error) error {
	return fr.tangle.run(func() error {
		if err := fr.checkVersion(); err != nil { return err }

		entry, err := fr.tangle.btree.getByIndex(fr.nodeIndex, fr.slot, fr.key)
		if err != nil { return err }

		rng, err := fr.tangle.btree.data.Access(uint64(entry.DataOffset), uint64(entry.DataLength), AccessWrite)
		if err != nil { return err }
		defer rng.Release()

		return fn(rng.Bytes())
	})
}
