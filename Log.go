package tangle

import "go.uber.org/zap"


//============================================= Structured Logging


// Log wraps the *zap.Logger a Tangle reports recoverable failures through.
//	TangleOpts.Logger may be left nil, in which case NewLog falls back to
//	zap.NewNop(); flush failures and worker panics carry structured fields
//	for the failing stream or recovered value.
type Log struct {
	z *zap.Logger
}

// NewLog wraps logger, defaulting to a no-op logger when logger is nil.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil { logger = zap.NewNop() }
	return &Log{ z: logger }
}

func (l *Log) flushFailed(stream string, err error) {
	l.z.Warn("segment flush failed", zap.String("stream", stream), zap.Error(err))
}

func (l *Log) workerPanic(recovered interface{}) {
	l.z.Error("operation queue worker recovered from panic", zap.Any("recovered", recovered))
}

func (l *Log) workerStarted() {
	l.z.Debug("operation queue worker started")
}

func (l *Log) workerIdleExit() {
	l.z.Debug("operation queue worker exiting after idle timeout")
}
