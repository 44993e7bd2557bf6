// Package ch provides a ClickHouse client used to read the observation
// snapshot (store status rows, business-hour rules, store timezones) that
// backs the metrics engine's report orchestrator.
package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/cenkalti/backoff/v4"
)

// Config mirrors the subset of clickhouse.Options callers need to set
// explicitly, plus the retry/insert/tracing knobs this package adds on top.
type Config struct {
	Addrs    []string
	Protocol clickhouse.Protocol
	TLS      *tls.Config
	Auth     clickhouse.Auth
	Dialer   func(ctx context.Context, addr string) (net.Conn, error)

	Settings   clickhouse.Settings
	ClientInfo clickhouse.ClientInfo

	DialTimeout time.Duration
	ReadTimeout time.Duration
	Compression *clickhouse.Compression

	// InsertChunk caps how many rows go into a single batch append before
	// Send is called; 0 means "send everything in one batch"
	InsertChunk int
	// MaxRetries bounds retry attempts for Insert and Query; 0 disables
	MaxRetries int
	RetryBase  time.Duration

	// Tracer, when non nil, receives one event per query/insert
	Tracer QueryTracer

	// URL is a fallback single-address form, used by tests and callers
	// that don't need the full Addrs/TLS/Auth breakdown
	URL string
}

// Rows is the minimal result-set surface this package needs from the
// ClickHouse driver. Columns lets store.Rows adapters map positional scan
// targets back onto column names.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH is a thin wrapper around a pooled ClickHouse connection
type CH struct {
	conn   clickhouse.Conn
	cfg    Config
	tracer QueryTracer
}

// Open dials ClickHouse per cfg and verifies connectivity with a ping
func Open(ctx context.Context, cfg Config) (*CH, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.URL != "" {
		addrs = []string{cfg.URL}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("ch: no addresses configured")
	}

	opts := &clickhouse.Options{
		Addr:        addrs,
		Protocol:    cfg.Protocol,
		TLS:         cfg.TLS,
		Auth:        cfg.Auth,
		DialContext: cfg.Dialer,
		Settings:    cfg.Settings,
		ClientInfo:  cfg.ClientInfo,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		Compression: cfg.Compression,
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ch: ping: %w", err)
	}

	return &CH{conn: conn, cfg: cfg, tracer: cfg.Tracer}, nil
}

// Insert appends rows to table in chunks of cfg.InsertChunk (all at once
// when InsertChunk is 0), retrying each chunk's send per cfg.MaxRetries
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	chunk := c.cfg.InsertChunk
	if chunk <= 0 {
		chunk = len(rows)
	}

	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		if err := c.insertChunk(ctx, table, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *CH) insertChunk(ctx context.Context, table string, rows [][]any) error {
	started := time.Now()
	err := c.withRetry(ctx, func() error {
		batch, berr := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", table))
		if berr != nil {
			return berr
		}
		for _, r := range rows {
			if aerr := batch.Append(r...); aerr != nil {
				return aerr
			}
		}
		return batch.Send()
	})

	if c.tracer != nil {
		c.tracer.OnQuery(ctx, QueryEvent{
			SQL:       fmt.Sprintf("INSERT INTO %s (%d rows)", table, len(rows)),
			ElapsedUS: time.Since(started).Microseconds(),
			Err:       err,
		})
	}
	return err
}

// Query runs sql and returns the driver rows wrapped as Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	started := time.Now()
	var rows driverRows
	err := c.withRetry(ctx, func() error {
		r, qerr := c.conn.Query(ctx, sql, args...)
		if qerr != nil {
			return qerr
		}
		rows = r
		return nil
	})

	if c.tracer != nil {
		c.tracer.OnQuery(ctx, QueryEvent{
			SQL:       sql,
			Args:      args,
			ElapsedUS: time.Since(started).Microseconds(),
			Err:       err,
		})
	}
	if err != nil {
		return nil, err
	}
	return &driverRowsAdapter{rows: rows}, nil
}

// Close releases the underlying connection pool
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *CH) withRetry(ctx context.Context, fn func() error) error {
	if c.cfg.MaxRetries <= 0 {
		return fn()
	}

	base := c.cfg.RetryBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	return backoff.Retry(fn, bo)
}

// driverRows is the slice of clickhouse.Rows this package actually uses
type driverRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// driverRowsAdapter satisfies Rows over the real driver's row cursor
type driverRowsAdapter struct {
	rows driverRows
}

func (a *driverRowsAdapter) Next() bool             { return a.rows.Next() }
func (a *driverRowsAdapter) Scan(dest ...any) error { return a.rows.Scan(dest...) }
func (a *driverRowsAdapter) Err() error             { return a.rows.Err() }
func (a *driverRowsAdapter) Close() error           { return a.rows.Close() }
func (a *driverRowsAdapter) Columns() []string      { return a.rows.Columns() }
