package ch

import (
	"context"

	"storeuptime/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one query or insert sent to ClickHouse
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
}

// QueryTracer receives one event per query/insert
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a logger that always prints queries, independent of the
// process-wide root level, mirroring pg.Tracer
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "ch").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	elapsedMs := float64(ev.ElapsedUS) / 1000.0
	evt := z.log.Info()
	if ev.Err != nil {
		evt = z.log.Warn()
	}

	evt.Float64("elapsed_ms", elapsedMs).
		Str("sql", compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("ch query")
}

func compact(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
