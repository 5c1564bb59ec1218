package tangle

import (
	"bytes"
	"sync/atomic"
)


//============================================= Tangle Operations


// Pair is one key's result from a multi-key read: Found is false when the
//	key was absent and Value holds the caller-supplied default instead.
type Pair[T any] struct {
	Key   TangleKey
	Value T
	Found bool
}

// Decision is what an AddOrUpdate callback returns for an existing value:
//	either Replace(newValue) or KeepOld(). Modeled as a return value rather
//	than an in-place mutable reference so the callback never aliases the
//	tangle's own memory.
type Decision[T any] struct {
	replace  bool
	newValue T
}

// Replace instructs AddOrUpdate to write newValue over the existing entry.
func Replace[T any](newValue T) Decision[T] { return Decision[T]{ replace: true, newValue: newValue } }

// KeepOld instructs AddOrUpdate to leave the existing entry untouched.
func KeepOld[T any]() Decision[T] {
	var zero T
	return Decision[T]{ replace: false, newValue: zero }
}

// Get decodes the current value stored under key through codec, failing
//	with KeyNotFound if key is absent.
func Get[T any](t *Tangle, key TangleKey, codec Codec[T]) (T, error) {
	var out T

	err := t.run(func() error {
		_, _, entry, found, findErr := t.btree.Find(key)
		if findErr != nil { return findErr }
		if ! found { return newKeyNotFoundErr(key.Bytes()) }

		raw, readErr := readValueBytes(t.btree.data, entry)
		if readErr != nil { return readErr }

		if decErr := codec.Deserialize(bytes.NewReader(raw), &out); decErr != nil {
			return newSerializerFailedErr(key.Bytes(), decErr)
		}

		return nil
	})

	if err != nil {
		var zero T
		return zero, err
	}

	return out, nil
}

// Set writes value under key through codec. allowOverwrite false and an
//	existing key leaves the stored value untouched and returns false (the
//	Add semantics); otherwise the write happens and true is returned. value
//	is serialized before the operation is queued, so a failing codec never
//	reaches the B-tree and never leaves a zero-length slot inserted.
func Set[T any](t *Tangle, key TangleKey, value T, codec Codec[T], allowOverwrite bool) (bool, error) {
	var buf bytes.Buffer
	if err := codec.Serialize(value, &buf); err != nil {
		return false, newSerializerFailedErr(key.Bytes(), err)
	}
	valueBytes := buf.Bytes()

	var wrote bool

	err := t.run(func() error {
		_, _, existed, upsertErr := t.btree.Upsert(key, valueBytes, allowOverwrite)
		if upsertErr != nil { return upsertErr }

		if existed && ! allowOverwrite {
			wrote = false
			return nil
		}

		if ! existed { atomic.AddUint64(&t.count, 1) }
		t.bumpVersion()
		wrote = true
		return nil
	})

	if err != nil { return false, err }
	return wrote, nil
}

// Add is Set with allowOverwrite = false: it never overwrites an existing key.
func Add[T any](t *Tangle, key TangleKey, value T, codec Codec[T]) (bool, error) {
	return Set(t, key, value, codec, false)
}

// AddOrUpdate inserts defaultValue if key is absent, otherwise decodes the
//	existing value and calls callback with it: Replace(v) writes v back,
//	KeepOld() leaves the entry untouched. Returns the value now stored.
func AddOrUpdate[T any](t *Tangle, key TangleKey, defaultValue T, callback func(old T) Decision[T], codec Codec[T]) (T, error) {
	var result T

	err := t.run(func() error {
		nodeIndex, slot, entry, found, findErr := t.btree.Find(key)
		if findErr != nil { return findErr }

		if ! found {
			var buf bytes.Buffer
			if err := codec.Serialize(defaultValue, &buf); err != nil {
				return newSerializerFailedErr(key.Bytes(), err)
			}

			if _, _, _, err := t.btree.Upsert(key, buf.Bytes(), true); err != nil { return err }

			atomic.AddUint64(&t.count, 1)
			t.bumpVersion()
			result = defaultValue
			return nil
		}

		raw, readErr := readValueBytes(t.btree.data, entry)
		if readErr != nil { return readErr }

		var old T
		if err := codec.Deserialize(bytes.NewReader(raw), &old); err != nil {
			return newSerializerFailedErr(key.Bytes(), err)
		}

		decision := callback(old)
		if ! decision.replace {
			result = old
			return nil
		}

		var buf bytes.Buffer
		if err := codec.Serialize(decision.newValue, &buf); err != nil {
			return newSerializerFailedErr(key.Bytes(), err)
		}

		if err := t.btree.setByIndexRaw(nodeIndex, slot, key, buf.Bytes()); err != nil { return err }

		t.bumpVersion()
		result = decision.newValue
		return nil
	})

	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

// Delete tombstones key. Returns false if key was already absent.
func Delete(t *Tangle, key TangleKey) (bool, error) {
	var deleted bool

	err := t.run(func() error {
		ok, delErr := t.btree.Delete(key)
		if delErr != nil { return delErr }

		deleted = ok
		if ok {
			atomic.AddUint64(&t.count, ^uint64(0))
			t.bumpVersion()
		}

		return nil
	})

	return deleted, err
}

// Find locates key and returns a reusable handle to it, failing with
//	KeyNotFound if key is absent.
func Find(t *Tangle, key TangleKey) (*FindResult, error) {
	var fr *FindResult

	err := t.run(func() error {
		nodeIndex, slot, _, found, findErr := t.btree.Find(key)
		if findErr != nil { return findErr }
		if ! found { return newKeyNotFoundErr(key.Bytes()) }

		fr = newFindResult(t, key, nodeIndex, slot, t.Version())
		return nil
	})

	if err != nil { return nil, err }
	return fr, nil
}

// Select reads every key in keys, one queued operation for the whole
//	sequence, pairing each absent key with defaultValue in request order.
func Select[T any](t *Tangle, keys []TangleKey, defaultValue T, codec Codec[T]) ([]Pair[T], error) {
	results := make([]Pair[T], len(keys))

	err := t.run(func() error {
		for i, key := range keys {
			_, _, entry, found, findErr := t.btree.Find(key)
			if findErr != nil { return findErr }

			if ! found {
				results[i] = Pair[T]{ Key: key, Value: defaultValue, Found: false }
				continue
			}

			raw, readErr := readValueBytes(t.btree.data, entry)
			if readErr != nil { return readErr }

			var v T
			if decErr := codec.Deserialize(bytes.NewReader(raw), &v); decErr != nil {
				return newSerializerFailedErr(key.Bytes(), decErr)
			}

			results[i] = Pair[T]{ Key: key, Value: v, Found: true }
		}

		return nil
	})

	if err != nil { return nil, err }
	return results, nil
}

// MapReduce selects keys (absent keys paired with defaultValue), maps each
//	pair through mapFn, and folds the results through reduceFn starting at zero.
func MapReduce[T any, A any](t *Tangle, keys []TangleKey, defaultValue T, codec Codec[T], mapFn func(TangleKey, T) A, reduceFn func(acc, next A) A, zero A) (A, error) {
	pairs, err := Select(t, keys, defaultValue, codec)
	if err != nil { return zero, err }

	acc := zero
	for _, p := range pairs {
		acc = reduceFn(acc, mapFn(p.Key, p.Value))
	}

	return acc, nil
}

// ForEach visits every live entry in ascending key order, decoding each
//	value through codec as one queued operation.
func ForEach[T any](t *Tangle, codec Codec[T], visit func(TangleKey, T) error) error {
	return t.run(func() error {
		return t.btree.ForEach(func(key TangleKey, raw []byte) error {
			var v T
			if decErr := codec.Deserialize(bytes.NewReader(raw), &v); decErr != nil {
				return newSerializerFailedErr(key.Bytes(), decErr)
			}

			return visit(key, v)
		})
	})
}

// Keys returns every live key in ascending lexicographic byte order.
func Keys(t *Tangle) ([]TangleKey, error) {
	var keys []TangleKey

	err := t.run(func() error {
		return t.btree.ForEach(func(key TangleKey, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
	})

	return keys, err
}

// GetAllValues decodes and returns every live value in ascending key order.
func GetAllValues[T any](t *Tangle, codec Codec[T]) ([]T, error) {
	var values []T

	err := ForEach(t, codec, func(_ TangleKey, v T) error {
		values = append(values, v)
		return nil
	})

	return values, err
}

// JoinPair is one key's result from Join: PrimaryFound/SecondaryFound are
//	false when the key was absent from that tangle, in which case
//	PrimaryValue/SecondaryValue hold defaultValue.
type JoinPair[T any] struct {
	Key            TangleKey
	PrimaryValue   T
	PrimaryFound   bool
	SecondaryValue T
	SecondaryFound bool
}

// Join reads keys out of both primary and secondary (e.g. a tangle and a
//	SecondaryIndex's backing tangle), pairing results by request order.
func Join[T any](primary, secondary *Tangle, keys []TangleKey, defaultValue T, codec Codec[T]) ([]JoinPair[T], error) {
	primaryPairs, err := Select(primary, keys, defaultValue, codec)
	if err != nil { return nil, err }

	secondaryPairs, err := Select(secondary, keys, defaultValue, codec)
	if err != nil { return nil, err }

	out := make([]JoinPair[T], len(keys))
	for i, key := range keys {
		out[i] = JoinPair[T]{
			Key:            key,
			PrimaryValue:   primaryPairs[i].Value,
			PrimaryFound:   primaryPairs[i].Found,
			SecondaryValue: secondaryPairs[i].Value,
			SecondaryFound: secondaryPairs[i].Found,
		}
	}

	return out, nil
}

// CascadingSelect tries tangles in order and returns the value from the
//	first one that has key, or defaultValue if none do.
func CascadingSelect[T any](tangles []*Tangle, key TangleKey, defaultValue T, codec Codec[T]) (T, error) {
	for _, t := range tangles {
		value, err := Get(t, key, codec)

		switch {
			case err == nil:
				return value, nil
			case IsKeyNotFound(err):
				continue
			default:
				return defaultValue, err
		}
	}

	return defaultValue, nil
}

// BatchEntry is one pre-encoded key/value pair submitted to Batch. Callers
//	serialize each value through whatever codec fits it before building the
//	batch — Go generics cannot express a single Batch[T] spanning
//	heterogeneously-typed values as one method.
type BatchEntry struct {
	Key   TangleKey
	Value []byte
}

// Batch upserts every entry as a single queued operation, executed as one
//	contiguous block with no other operation interleaved.
func Batch(t *Tangle, entries []BatchEntry) error {
	err := t.run(func() error {
		for _, e := range entries {
			_, _, existed, err := t.btree.Upsert(e.Key, e.Value, true)
			if err != nil { return err }

			if ! existed { atomic.AddUint64(&t.count, 1) }
		}

		t.bumpVersion()
		return nil
	})

	if err == nil { t.metrics.recordBatch() }
	return err
}

// EnqueueBarrier queues b as a work item: the worker blocks here, once
//	reached, until b.Open() is called, holding back every operation enqueued
//	after it. Unlike every other operation here, this does not block the
//	caller — use b.Wait() to block until the worker has reached it.
func (t *Tangle) EnqueueBarrier(b *Barrier) error {
	err := t.queue.enqueue(func() { b.wait() })
	if err == nil { t.metrics.recordBarrier() }
	return err
}

// EnqueueBarrierCollection queues every barrier in bc, in order, as its own
//	work item. Use bc.Wait() to block until the worker has reached all of
//	them and bc.Open() to release all of them atomically.
func (t *Tangle) EnqueueBarrierCollection(bc *BarrierCollection) error {
	for _, b := range bc.Barriers() {
		b := b
		if err := t.queue.enqueue(func() { b.wait() }); err != nil { return err }
		t.metrics.recordBarrier()
	}

	return nil
}

// Clear resets the tangle to a single empty root, abandoning keys/data bytes.
func Clear(t *Tangle) error {
	return t.run(func() error {
		if err := t.btree.Clear(); err != nil { return err }

		atomic.StoreUint64(&t.count, 0)
		t.bumpVersion()
		return nil
	})
}
