package tangle_test

import (
	"testing"
	"time"

	"github.com/sirgallo/tangle"
)


func openTestTangle(t *testing.T) *tangle.Tangle {
	t.Helper()

	tg, err := tangle.Open(tangle.TangleOpts{ Filepath: t.TempDir(), FileName: "test" })
	if err != nil { t.Fatalf("Open: %v", err) }

	t.Cleanup(func() { _ = tg.Close() })
	return tg
}

func TestSetThenGet(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}

	key := tangle.NewTextKey("hello")
	if _, err := tangle.Set(tg, key, "world", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != "world" { t.Fatalf("Get = %q, want %q", got, "world") }

	if tg.Count() != 1 { t.Fatalf("Count = %d, want 1", tg.Count()) }
}

func TestAddDoesNotOverwrite(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("k")

	wrote, err := tangle.Add(tg, key, "v1", codec)
	if err != nil { t.Fatalf("Add: %v", err) }
	if ! wrote { t.Fatalf("first Add should report wrote=true") }

	wrote, err = tangle.Add(tg, key, "v2", codec)
	if err != nil { t.Fatalf("Add: %v", err) }
	if wrote { t.Fatalf("second Add should report wrote=false") }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != "v1" { t.Fatalf("Get = %q, want %q (unchanged)", got, "v1") }
}

func TestSetOverwritesWithAllowOverwrite(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("k")

	if _, err := tangle.Set(tg, key, "v1", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	if _, err := tangle.Set(tg, key, "v2", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != "v2" { t.Fatalf("Get = %q, want %q", got, "v2") }
}

func TestGetMissingKeyFails(t *testing.T) {
	tg := openTestTangle(t)

	_, err := tangle.Get(tg, tangle.NewTextKey("absent"), tangle.StringCodec{})
	if ! tangle.IsKeyNotFound(err) { t.Fatalf("Get on absent key: err = %v, want KeyNotFound", err) }
}

func TestZeroLengthValueRoundTrips(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewTextKey("empty")

	if _, err := tangle.Set(tg, key, "", codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != "" { t.Fatalf("Get = %q, want empty string", got) }
}

func TestHugeValueRoundTrips(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}
	key := tangle.NewU32Key(1)

	huge := make([]byte, 32*1024*1024)
	for i := range huge { huge[i] = 'a' }

	if _, err := tangle.Set(tg, key, string(huge), codec, true); err != nil { t.Fatalf("Set: %v", err) }

	got, err := tangle.Get(tg, key, codec)
	if err != nil { t.Fatalf("Get: %v", err) }
	if got != string(huge) { t.Fatalf("huge value did not round-trip, got length %d want %d", len(got), len(huge)) }
}

func TestClearResetsTangle(t *testing.T) {
	tg := openTestTangle(t)
	codec := tangle.StringCodec{}

	for i := 0; i < 10; i++ {
		if _, err := tangle.Set(tg, tangle.NewU32Key(uint32(i)), "v", codec, true); err != nil { t.Fatalf("Set: %v", err) }
	}
	if tg.Count() != 10 { t.Fatalf("Count = %d, want 10", tg.Count()) }

	if err := tangle.Clear(tg); err != nil { t.Fatalf("Clear: %v", err) }

	if tg.Count() != 0 { t.Fatalf("Count after Clear = %d, want 0", tg.Count()) }

	keys, err := tangle.Keys(tg)
	if err != nil { t.Fatalf("Keys: %v", err) }
	if len(keys) != 0 { t.Fatalf("Keys after Clear = %v, want empty", keys) }

	if _, err := tangle.Set(tg, tangle.NewU32Key(1), "v", codec, true); err != nil { t.Fatalf("Set after Clear: %v", err) }
}

func TestCloseFailsFurtherOperations(t *testing.T) {
	tg, err := tangle.Open(tangle.TangleOpts{ Filepath: t.TempDir(), FileName: "test" })
	if err != nil { t.Fatalf("Open: %v", err) }

	if err := tg.Close(); err != nil { t.Fatalf("Close: %v", err) }

	_, err = tangle.Set(tg, tangle.NewTextKey("k"), "v", tangle.StringCodec{}, true)
	if ! tangle.IsTangleDisposed(err) { t.Fatalf("Set after Close: err = %v, want TangleDisposed", err) }
}

func TestCloseFailsOperationStillPendingInQueue(t *testing.T) {
	tg, err := tangle.Open(tangle.TangleOpts{ Filepath: t.TempDir(), FileName: "test" })
	if err != nil { t.Fatalf("Open: %v", err) }

	// Hold the worker on an unopened barrier so the Set below is genuinely still
	//	sitting in the queue, never started, when Close runs.
	barrier := tangle.NewBarrier()
	if err := tg.EnqueueBarrier(barrier); err != nil { t.Fatalf("EnqueueBarrier: %v", err) }
	barrier.Wait()

	pending := make(chan error, 1)
	go func() {
		_, err := tangle.Set(tg, tangle.NewTextKey("k"), "v", tangle.StringCodec{}, true)
		pending <- err
	}()
	time.Sleep(50 * time.Millisecond)

	// Close blocks in its own worker-drain step until the barrier is released,
	//	so it must run concurrently with the Open below.
	closeDone := make(chan error, 1)
	go func() { closeDone <- tg.Close() }()
	time.Sleep(50 * time.Millisecond)

	barrier.Open()

	select {
		case err := <-pending:
			if ! tangle.IsTangleDisposed(err) { t.Fatalf("pending Set after Close: err = %v, want TangleDisposed", err) }
		case <-time.After(time.Second):
			t.Fatalf("pending Set never completed after Close")
	}

	select {
		case err := <-closeDone:
			if err != nil { t.Fatalf("Close: %v", err) }
		case <-time.After(time.Second):
			t.Fatalf("Close never returned")
	}
}
