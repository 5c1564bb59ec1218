package tangle_test

import (
	"testing"

	"github.com/sirgallo/tangle"
)


func TestKeysAreAscendingRegardlessOfInsertionOrder(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}

	forward := []string{ "aa", "ea", "qa", "za" }
	for _, s := range forward {
		if _, err := tangle.Set(tg, tangle.NewTextKey(s), s, codec, true); err != nil { t.Fatalf("Set(%s): %v", s, err) }
	}

	keys, err := tangle.Keys(tg)
	if err != nil { t.Fatalf("Keys: %v", err) }

	got := keysToStrings(keys)
	assertStringSliceEqual(t, got, forward)

	reverse := []string{ "za", "qa", "ea", "aa" }
	for _, s := range reverse {
		if _, err := tangle.Set(tg, tangle.NewTextKey(s), s, codec, true); err != nil { t.Fatalf("Set(%s): %v", s, err) }
	}

	keys, err = tangle.Keys(tg)
	if err != nil { t.Fatalf("Keys: %v", err) }

	got = keysToStrings(keys)
	assertStringSliceEqual(t, got, forward)
}

func keysToStrings(keys []tangle.TangleKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys { out[i] = string(k.Bytes()) }
	return out
}

func assertStringSliceEqual(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) { t.Fatalf("got %v, want %v", got, want) }
	for i := range got {
		if got[i] != want[i] { t.Fatalf("got %v, want %v", got, want) }
	}
}

func TestInsertingNDistinctKeysYieldsCountN(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[uint32]{}

	const n = 2000
	for i := 0; i < n; i++ {
		if _, err := tangle.Set(tg, tangle.NewU32Key(uint32(i)), uint32(i), codec, true); err != nil { t.Fatalf("Set(%d): %v", i, err) }
	}

	if tg.Count() != n { t.Fatalf("Count = %d, want %d", tg.Count(), n) }

	keys, err := tangle.Keys(tg)
	if err != nil { t.Fatalf("Keys: %v", err) }
	if len(keys) != n { t.Fatalf("len(Keys) = %d, want %d", len(keys), n) }
}

func TestWastedBytesTracksReplacePolicy(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewU32Key(1)

	if tg.WastedDataBytes() != 0 { t.Fatalf("initial WastedDataBytes = %d, want 0", tg.WastedDataBytes()) }

	if _, err := tangle.Set(tg, key, "abcd", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	if tg.WastedDataBytes() != 0 { t.Fatalf("after 4-byte insert, WastedDataBytes = %d, want 0", tg.WastedDataBytes()) }

	if _, err := tangle.Set(tg, key, "abcdefgh", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	if tg.WastedDataBytes() != 4 { t.Fatalf("after growing to 8 bytes, WastedDataBytes = %d, want 4", tg.WastedDataBytes()) }

	if _, err := tangle.Set(tg, key, "abc", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	if tg.WastedDataBytes() != 4 { t.Fatalf("after shrinking to 3 bytes in place, WastedDataBytes = %d, want 4", tg.WastedDataBytes()) }

	if _, err := tangle.Set(tg, key, "abcdefgh", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	if tg.WastedDataBytes() != 4 { t.Fatalf("after growing again past the 8-byte allocation, WastedDataBytes = %d, want 4", tg.WastedDataBytes()) }
}

func TestNumericKeyRoundTripIgnoresConstructionOrder(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	key := tangle.NewU32Key(1234)
	if _, err := tangle.Set(tg, key, int32(1), codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.Get(tg, tangle.NewU32Key(1234), codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != 1 { t.Fatalf("Get = %d, want 1", got) }
}

func TestDeleteTombstonesEntry(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("k")

	if _, err := tangle.Set(tg, key, "v", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	deleted, err := tangle.Delete(tg, key)
	if err != nil { t.Fatalf("Delete: %v", err) }
	if ! deleted { t.Fatalf("Delete should report true for an existing key") }

	if tg.Count() != 0 { t.Fatalf("Count after Delete = %d, want 0", tg.Count()) }

	_, err = tangle.Get(tg, key, codec)
	if ! tangle.IsKeyNotFound(err) { t.Fatalf("Get after Delete: err = %v, want KeyNotFound", err) }

	deleted, err = tangle.Delete(tg, key)
	if err != nil { t.Fatalf("second Delete: %v", err) }
	if deleted { t.Fatalf("second Delete should report false") }
}
