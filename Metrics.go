package tangle

import "sync/atomic"


//============================================= Operation Metrics


// Metrics is a set of plain atomic counters tracking queue throughput,
//	kept as raw uint64s mutated with sync/atomic rather than behind a
//	mutex or a metrics library (see DESIGN.md for the stdlib-only
//	justification).
type Metrics struct {
	submitted uint64
	completed uint64
	failed    uint64
	barriers  uint64
	batches   uint64
}

func newMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) recordSubmitted() { atomic.AddUint64(&m.submitted, 1) }
func (m *Metrics) recordCompleted() { atomic.AddUint64(&m.completed, 1) }
func (m *Metrics) recordFailed()    { atomic.AddUint64(&m.failed, 1) }
func (m *Metrics) recordBarrier()   { atomic.AddUint64(&m.barriers, 1) }
func (m *Metrics) recordBatch()     { atomic.AddUint64(&m.batches, 1) }

// Submitted returns the number of operations enqueued so far.
func (m *Metrics) Submitted() uint64 { return atomic.LoadUint64(&m.submitted) }

// Completed returns the number of operations the worker ran without panicking.
func (m *Metrics) Completed() uint64 { return atomic.LoadUint64(&m.completed) }

// Failed returns the number of operations the worker recovered a panic from.
func (m *Metrics) Failed() uint64 { return atomic.LoadUint64(&m.failed) }

// Barriers returns the number of barriers enqueued so far.
func (m *Metrics) Barriers() uint64 { return atomic.LoadUint64(&m.barriers) }

// Batches returns the number of batches the worker has executed.
func (m *Metrics) Batches() uint64 { return atomic.LoadUint64(&m.batches) }

// Metrics returns the tangle's queue throughput counters. Safe from any goroutine.
func (t *Tangle) Metrics() *Metrics { return t.metrics }
