package tangle_test

import (
	"testing"
	"time"

	"github.com/sirgallo/tangle"
)


func TestBarrierBlocksSubsequentOperationsUntilOpened(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	barrier := tangle.NewBarrier()
	if err := tg.EnqueueBarrier(barrier); err != nil { t.Fatalf("EnqueueBarrier: %v", err) }

	done := make(chan error, 1)
	go func() {
		_, err := tangle.Add(tg, tangle.NewU32Key(1), int32(1), codec)
		done <- err
	}()

	barrier.Wait()
	if tg.Count() != 0 { t.Fatalf("Count while barrier closed = %d, want 0", tg.Count()) }

	select {
		case <-done:
			t.Fatalf("Add completed before barrier was opened")
		case <-time.After(50 * time.Millisecond):
	}

	barrier.Open()

	select {
		case err := <-done:
			if err != nil { t.Fatalf("Add after Open: %v", err) }
		case <-time.After(time.Second):
			t.Fatalf("Add did not complete after barrier.Open()")
	}

	if tg.Count() != 1 { t.Fatalf("Count after barrier opened = %d, want 1", tg.Count()) }
}

func TestBarrierCollectionReleasesAllAtomically(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.BlittableCodec[int32]{}

	bc := tangle.NewBarrierCollection(3)
	if err := tg.EnqueueBarrierCollection(bc); err != nil { t.Fatalf("EnqueueBarrierCollection: %v", err) }

	done := make(chan error, 1)
	go func() {
		_, err := tangle.Add(tg, tangle.NewU32Key(1), int32(1), codec)
		done <- err
	}()

	bc.Wait()
	if tg.Count() != 0 { t.Fatalf("Count while collection closed = %d, want 0", tg.Count()) }

	select {
		case <-done:
			t.Fatalf("Add completed before the collection was opened")
		case <-time.After(50 * time.Millisecond):
	}

	bc.Open()

	select {
		case err := <-done:
			if err != nil { t.Fatalf("Add after Open: %v", err) }
		case <-time.After(time.Second):
			t.Fatalf("Add did not complete after bc.Open()")
	}

	if tg.Count() != 1 { t.Fatalf("Count after collection opened = %d, want 1", tg.Count()) }
}

func TestFindResultInvalidatedByInterveningMutation(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("k")

	if _, err := tangle.Set(tg, key, "v1", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	fr, err := tangle.Find(tg, key)
	if err != nil { t.Fatalf("Find: %v", err) }

	got, err := tangle.GetValue(fr, codec)
	if err != nil { t.Fatalf("GetValue before mutation: %v", err) }
	if got != "v1" { t.Fatalf("GetValue = %q, want %q", got, "v1") }

	if _, err := tangle.Set(tg, key, "v2", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	_, err = tangle.GetValue(fr, codec)
	if ! tangle.IsTangleModified(err) { t.Fatalf("GetValue after intervening mutation: err = %v, want TangleModified", err) }
}

func TestFindResultSetValueInvalidatesItself(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("k")

	if _, err := tangle.Set(tg, key, "v1", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	fr, err := tangle.Find(tg, key)
	if err != nil { t.Fatalf("Find: %v", err) }

	if err := tangle.SetValue(fr, "v2", codec); err != nil { t.Fatalf("SetValue: %v", err) }

	_, err = tangle.GetValue(fr, codec)
	if ! tangle.IsTangleModified(err) { t.Fatalf("GetValue after own SetValue: err = %v, want TangleModified", err) }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != "v2" { t.Fatalf("Get = %q, want %q", got, "v2") }
}
