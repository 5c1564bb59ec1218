package tangle_test

import (
	"path/filepath"
	"testing"

	"github.com/sirgallo/tangle"
)


func TestSingleFileSourceRoundTripsAcrossGrowthAndReopen(t *testing.T) {
	hostPath := filepath.Join(t.TempDir(), "host.tangle")
	codec := tangle.StringCodec{}

	source, err := tangle.NewSingleFileSource(hostPath)
	if err != nil { t.Fatalf("NewSingleFileSource: %v", err) }

	tg, err := tangle.Open(tangle.TangleOpts{ Source: source, Filepath: t.TempDir(), FileName: "test" })
	if err != nil { t.Fatalf("Open: %v", err) }

	// Insert enough entries to force the index segment to grow more than
	//	once after the keys/data streams already occupy the tail of the host
	//	file, so at least one of those growths must relocate the index region
	//	rather than extend it in place.
	const n = 2000
	for i := 0; i < n; i++ {
		if _, err := tangle.Set(tg, tangle.NewU32Key(uint32(i)), "value", codec, true); err != nil {
			t.Fatalf("Set(%d): %v", i, err)
		}
	}

	if err := tg.Close(); err != nil { t.Fatalf("Close: %v", err) }

	reopened, err := tangle.NewSingleFileSource(hostPath)
	if err != nil { t.Fatalf("NewSingleFileSource (reopen): %v", err) }

	tg2, err := tangle.Open(tangle.TangleOpts{ Source: reopened, Filepath: t.TempDir(), FileName: "test" })
	if err != nil { t.Fatalf("Open (reopen): %v", err) }
	t.Cleanup(func() { _ = tg2.Close() })

	if tg2.Count() != n { t.Fatalf("Count after reopen = %d, want %d", tg2.Count(), n) }

	for i := 0; i < n; i++ {
		got, err := tangle.Get(tg2, tangle.NewU32Key(uint32(i)), codec)
		if err != nil { t.Fatalf("Get(%d) after reopen: %v", i, err) }
		if got != "value" { t.Fatalf("Get(%d) after reopen = %q, want %q", i, got, "value") }
	}
}
