package tangle


//============================================= Secondary Index


// SecondaryIndex maintains a derived tangle keyed by a projection of values
//	written to a primary tangle. Each primary write is followed by a separate
//	queued write to the secondary tangle; the projection runs on the calling
//	goroutine, and each write goes through its own tangle's worker, so the
//	index needs no locking of its own.
type SecondaryIndex[T any] struct {
	primary   *Tangle
	secondary *Tangle
	codec     Codec[T]
	project   func(key TangleKey, value T) TangleKey
}

// NewSecondaryIndex wires secondary to track primary: project derives the
//	secondary key from a primary (key, value) pair. secondary is a distinct
//	*Tangle the caller opened separately (its own segments and worker).
func NewSecondaryIndex[T any](primary, secondary *Tangle, codec Codec[T], project func(TangleKey, T) TangleKey) *SecondaryIndex[T] {
	return &SecondaryIndex[T]{ primary: primary, secondary: secondary, codec: codec, project: project }
}

// Set writes value under key in the primary tangle, then derives and writes
//	the secondary key in the secondary tangle. Each write is its own queued
//	operation against its own tangle's worker — the two writes are not
//	atomic as a pair, matching the single-writer-per-tangle model this
//	engine carries (no cross-tangle transactions).
func (si *SecondaryIndex[T]) Set(key TangleKey, value T, allowOverwrite bool) (bool, error) {
	wrote, err := Set(si.primary, key, value, si.codec, allowOverwrite)
	if err != nil || ! wrote { return wrote, err }

	secondaryKey := si.project(key, value)
	if _, err := Set(si.secondary, secondaryKey, value, si.codec, true); err != nil { return wrote, err }

	return wrote, nil
}

// Delete removes key from the primary tangle. The secondary entry is left
//	in place: rebuilding the projection requires re-reading the deleted
//	value, which Delete (a tombstone, not a read-then-erase) does not do;
//	callers needing a live secondary index should project a stable key
//	(e.g. the primary key itself) or rebuild the secondary tangle via Clear
//	and a full ForEach replay.
func (si *SecondaryIndex[T]) Delete(key TangleKey) (bool, error) {
	return Delete(si.primary, key)
}

// Lookup reads through the secondary tangle by its derived key.
func (si *SecondaryIndex[T]) Lookup(secondaryKey TangleKey) (T, error) {
	return Get(si.secondary, secondaryKey, si.codec)
}
