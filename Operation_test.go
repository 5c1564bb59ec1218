package tangle_test

import (
	"sort"
	"testing"

	"github.com/sirgallo/tangle"
)


func TestAddOrUpdateAppliesCallbackOrDefault(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	if _, err := tangle.Set(tg, tangle.NewTextKey("a"), int32(1), codec, true); err != nil { t.Fatalf("Set: %v", err) }

	incr := func(old int32) tangle.Decision[int32] { return tangle.Replace(old + 1) }

	got, err := tangle.AddOrUpdate(tg, tangle.NewTextKey("a"), int32(999), incr, codec)
	if err != nil { t.Fatalf("AddOrUpdate: %v", err) }
	if got != 2 { t.Fatalf("AddOrUpdate on existing key = %d, want 2", got) }

	got, err = tangle.AddOrUpdate(tg, tangle.NewTextKey("b"), int32(128), incr, codec)
	if err != nil { t.Fatalf("AddOrUpdate: %v", err) }
	if got != 128 { t.Fatalf("AddOrUpdate on absent key = %d, want 128 (default)", got) }

	stored, err := tangle.Get(tg, tangle.NewTextKey("b"), codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if stored != 128 { t.Fatalf("stored value for absent-key default = %d, want 128", stored) }
}

func TestAddOrUpdateKeepOldLeavesEntryUntouched(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	if _, err := tangle.Set(tg, tangle.NewTextKey("a"), int32(5), codec, true); err != nil { t.Fatalf("Set: %v", err) }

	keep := func(old int32) tangle.Decision[int32] { return tangle.KeepOld[int32]() }

	got, err := tangle.AddOrUpdate(tg, tangle.NewTextKey("a"), int32(0), keep, codec)
	if err != nil { t.Fatalf("AddOrUpdate: %v", err) }
	if got != 5 { t.Fatalf("AddOrUpdate KeepOld = %d, want 5 (unchanged)", got) }

	stored, err := tangle.Get(tg, tangle.NewTextKey("a"), codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if stored != 5 { t.Fatalf("stored value after KeepOld = %d, want 5", stored) }
}

func TestSelectOnEmptyTangleReturnsDefaults(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	keys := []tangle.TangleKey{ tangle.NewU32Key(1), tangle.NewU32Key(2) }
	pairs, err := tangle.Select(tg, keys, int32(-1), codec)
	if err != nil { t.Fatalf("Select: %v", err) }

	if len(pairs) != 2 { t.Fatalf("len(pairs) = %d, want 2", len(pairs)) }
	for i, p := range pairs {
		if p.Found { t.Fatalf("pair %d: Found = true, want false on empty tangle", i) }
		if p.Value != -1 { t.Fatalf("pair %d: Value = %d, want default -1", i, p.Value) }
		if ! p.Key.Equal(keys[i]) { t.Fatalf("pair %d: Key mismatch", i) }
	}
}

func TestBatchInsertsAllEntriesAtomically(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	const n = 5000
	entries := make([]tangle.BatchEntry, 0, n)
	for i := n - 1; i >= 0; i-- {
		entries = append(entries, encodeBatchEntry(t, tangle.NewU32Key(uint32(i)), int32(i), codec))
	}

	const chunk = 256
	for start := 0; start < len(entries); start += chunk {
		end := start + chunk
		if end > len(entries) { end = len(entries) }

		if err := tangle.Batch(tg, entries[start:end]); err != nil { t.Fatalf("Batch: %v", err) }
	}

	if tg.Count() != n { t.Fatalf("Count = %d, want %d", tg.Count(), n) }

	values, err := tangle.GetAllValues(tg, codec)
	if err != nil { t.Fatalf("GetAllValues: %v", err) }
	if len(values) != n { t.Fatalf("len(values) = %d, want %d", len(values), n) }

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		if v != int32(i) { t.Fatalf("sorted values[%d] = %d, want %d", i, v, i) }
	}

	if tg.Metrics().Batches() == 0 { t.Fatalf("Metrics().Batches() = 0, want > 0 after running batches") }
}

func encodeBatchEntry[T any](t *testing.T, key tangle.TangleKey, value T, codec tangle.Codec[T]) tangle.BatchEntry {
	t.Helper()

	var buf writerBuffer
	if err := codec.Serialize(value, &buf); err != nil { t.Fatalf("codec.Serialize: %v", err) }

	return tangle.BatchEntry{ Key: key, Value: buf.bytes }
}

// writerBuffer is the smallest io.Writer that appends, avoiding an import of
//	bytes.Buffer just to compose a []byte for BatchEntry.
type writerBuffer struct{ bytes []byte }

func (w *writerBuffer) Write(p []byte) (int, error) {
	w.bytes = append(w.bytes, p...)
	return len(p), nil
}

func TestMapReduceSumsSelectedValues(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	for i := 1; i <= 5; i++ {
		if _, err := tangle.Set(tg, tangle.NewU32Key(uint32(i)), int32(i), codec, true); err != nil { t.Fatalf("Set: %v", err) }
	}

	keys := []tangle.TangleKey{ tangle.NewU32Key(1), tangle.NewU32Key(2), tangle.NewU32Key(3), tangle.NewU32Key(4), tangle.NewU32Key(5) }
	sum, err := tangle.MapReduce(tg, keys, int32(0), codec,
		func(_ tangle.TangleKey, v int32) int32 { return v },
		func(acc, next int32) int32 { return acc + next },
		int32(0))
	if err != nil { t.Fatalf("MapReduce: %v", err) }

	if sum != 15 { t.Fatalf("MapReduce sum = %d, want 15", sum) }
}

func TestSetRejectsKeyLongerThanMaxKeyLength(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}

	oversized := make([]byte, tangle.MaxKeyLength+1)
	_, err := tangle.Set(tg, tangle.NewBytesKey(oversized), "v", codec, true)
	if ! tangle.IsInvalidData(err) { t.Fatalf("Set with oversized key: err = %v, want InvalidData", err) }

	if tg.Count() != 0 { t.Fatalf("Count after rejected Set = %d, want 0", tg.Count()) }
}

func TestCascadingSelectFindsFirstMatch(t *testing.T) {
	primary := openTestTangle(t)
	fallback := openTestTangle(t)
	codec := tangle.StringCodec{}

	if _, err := tangle.Set(fallback, tangle.NewTextKey("k"), "from-fallback", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.CascadingSelect([]*tangle.Tangle{ primary, fallback }, tangle.NewTextKey("k"), "default", codec)
	if err != nil { t.Fatalf("CascadingSelect: %v", err) }
	if got != "from-fallback" { t.Fatalf("CascadingSelect = %q, want %q", got, "from-fallback") }

	got, err = tangle.CascadingSelect([]*tangle.Tangle{ primary }, tangle.NewTextKey("missing"), "default", codec)
	if err != nil { t.Fatalf("CascadingSelect with no match: %v", err) }
	if got != "default" { t.Fatalf("CascadingSelect with no match = %q, want default", got) }
}
