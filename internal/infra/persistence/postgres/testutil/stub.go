// Package testutil provides a stub database driver for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

var stubSeq uint64

// StubConn emulates the small SQL surface the snapshot store uses: a ping, a
// state table holding bucket/payload pairs, and upserts inside a transaction.
type StubConn struct {
	Execs      []string
	State      map[string][]byte
	FailPing   bool
	FailBegin  bool
	FailExec   bool
	FailCommit bool
	RowsErr    error
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext. CREATE TABLE is a no-op;
// INSERT upserts into the state map keyed by bucket.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(upper, "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload, got %d args", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket must be a string")
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload must be bytes")
		}
		if c.State == nil {
			c.State = make(map[string][]byte)
		}
		c.State[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext for the snapshot load query.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToUpper(query), "FROM STATE") {
		return nil, fmt.Errorf("unexpected query: %s", query)
	}
	rows := make([][]driver.Value, 0, len(c.State))
	for bucket, payload := range c.State {
		rows = append(rows, []driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: rows, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
