package seqlog

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// ZeroTraceLogger forwards pgx trace events to Zero. Trace data becomes
// event fields.
type ZeroTraceLogger struct{}

var _ tracelog.Logger = &ZeroTraceLogger{}

func zeroEvent(level tracelog.LogLevel) *zerolog.Event {
	switch level {
	case tracelog.LogLevelTrace:
		return Zero.Trace()
	case tracelog.LogLevelDebug:
		return Zero.Debug()
	case tracelog.LogLevelInfo:
		return Zero.Info()
	case tracelog.LogLevelWarn:
		return Zero.Warn()
	case tracelog.LogLevelError:
		return Zero.Error()
	default:
		return nil
	}
}

// Log implements [tracelog.Logger].
func (z *ZeroTraceLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	event := zeroEvent(level)
	if event == nil {
		return
	}
	event.Str("source", "pgx").Fields(data).Msg(msg)
}
