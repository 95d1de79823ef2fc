package utils

import (
	"context"
	"time"

	"github.com/iov-one/mesh"
)

// Logging is a decorator to log requests as they pass through
type Logging struct {
	msg     string
	lowPrio bool
}

var _ Decorator = Logging{}

// NewLogging creates a Logging decorator that reports success of the call
// with the info level.
func NewLogging(msg string) Logging {
	return Logging{msg: msg}
}

// Quiet returns a decorator that reports success with the debug level. Use
// it for read only requests.
func (l Logging) Quiet() Logging {
	return Logging{msg: l.msg, lowPrio: true}
}

// Handle logs error -> error, success -> info or debug
func (l Logging) Handle(ctx context.Context, db mesh.KVStore, next Handler) error {
	start := time.Now()
	err := next.Handle(ctx, db)
	logDuration(ctx, start, l.msg, err, l.lowPrio)
	return err
}

// logDuration writes information about the time and result to the logger
func logDuration(ctx context.Context, start time.Time, msg string, err error, lowPrio bool) {
	delta := time.Since(start)
	logger := mesh.GetLogger(ctx).With("duration", delta/time.Microsecond)

	if err != nil {
		logger = logger.With("err", err)
	}

	if err != nil {
		logger.Error(msg)
	} else {
		if lowPrio {
			logger.Debug(msg)
		} else {
			logger.Info(msg)
		}
	}
}
