package tangle

import (
	"fmt"
	"io"
)


//============================================= Debug Export


// ExportKeys writes every live key to w, one per line, in ascending order.
func ExportKeys(t *Tangle, w io.Writer) error {
	return t.run(func() error {
		return t.btree.ForEach(func(key TangleKey, _ []byte) error {
			_, err := fmt.Fprintf(w, "%x\n", key.Bytes())
			return err
		})
	})
}

// ExportValues decodes and writes every live value through codec, one per
//	line via fmt.Fprintf, in ascending key order.
func ExportValues[T any](t *Tangle, codec Codec[T], w io.Writer) error {
	return ForEach(t, codec, func(key TangleKey, value T) error {
		_, err := fmt.Fprintf(w, "%x\t%v\n", key.Bytes(), value)
		return err
	})
}

// ExportSummary writes a one-line digest of the tangle's live counters.
func ExportSummary(t *Tangle, w io.Writer) error {
	_, err := fmt.Fprintf(w, "count=%d version=%d nodes=%d wasted_bytes=%d\n",
		t.Count(), t.Version(), t.NodeCount(), t.WastedDataBytes())
	return err
}
