// Package cube executes statements against the Cube SQL API, which speaks the
// Postgres wire protocol.
package cube

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/splax/cubedash/internal/query"
	"github.com/splax/cubedash/internal/result"
)

// Options configures the connection. ConnString is treated as an opaque
// credential and never logged.
type Options struct {
	ConnString     string
	SimpleProtocol bool
	MaxOpenConns   int
}

// QueryExecutionError wraps any failure to run a statement or read its rows.
type QueryExecutionError struct {
	Measure string
	Err     error
}

func (e *QueryExecutionError) Error() string {
	if e.Measure == "" {
		return fmt.Sprintf("cube: query failed: %v", e.Err)
	}
	return fmt.Sprintf("cube: query for %s failed: %v", e.Measure, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// Client runs metric statements on a shared handle.
type Client struct {
	db *sql.DB
}

// Open parses the connection string, opens a pool and verifies it with a ping.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.ConnString) == "" {
		return nil, errors.New("cube: empty connection string")
	}
	connCfg, err := pgx.ParseConfig(opts.ConnString)
	if err != nil {
		// pgx errors can echo the DSN; keep the credential out of logs.
		return nil, errors.New("cube: invalid connection string")
	}
	if opts.SimpleProtocol {
		connCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	db := stdlib.OpenDB(*connCfg)
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	client := New(db)
	if err := client.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Client {
	initMetrics()
	return &Client{db: db}
}

// Query runs stmt and returns its rows positionally. The result must have
// exactly two columns: the truncated time and the measure value.
func (c *Client) Query(ctx context.Context, stmt query.Statement) ([]result.RawRow, error) {
	start := time.Now()
	rows, err := c.query(ctx, stmt)
	recordQuery(stmt.Measure, time.Since(start), err)
	if err != nil {
		return nil, &QueryExecutionError{Measure: stmt.Measure, Err: err}
	}
	return rows, nil
}

func (c *Client) query(ctx context.Context, stmt query.Statement) ([]result.RawRow, error) {
	rows, err := c.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(cols) != 2 {
		return nil, fmt.Errorf("expected 2 columns, got %d (%s)", len(cols), strings.Join(cols, ", "))
	}

	out := make([]result.RawRow, 0, 16)
	for rows.Next() {
		var row result.RawRow
		if err := rows.Scan(&row.Time, &row.Value); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Ping checks the connection is usable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("cube: ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (c *Client) Close() error {
	return c.db.Close()
}
