// Package dbtest adapts pgxmock to db.Pool and db.Conn so handlers and
// stores can be tested without a running PostgreSQL.
package dbtest

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/sosecurity/api/internal/platform/db"
)

// Conn is a pgxmock connection that can be released like a pooled one.
// Statements are matched with pgxmock's regexp matcher.
type Conn struct {
	pgxmock.PgxConnIface
	released atomic.Int64
}

var _ db.Conn = (*Conn)(nil)

// NewConn returns a mock connection whose expectations must all be met by
// the end of the test.
func NewConn(t testing.TB) *Conn {
	t.Helper()
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("dbtest: new mock connection: %v", err)
	}
	c := &Conn{PgxConnIface: mock}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("dbtest: %v", err)
		}
	})
	return c
}

func (c *Conn) Release() {
	c.released.Add(1)
}

// Released reports how many times Release was called.
func (c *Conn) Released() int {
	return int(c.released.Load())
}

// ExpectCommitted queues the end of a transaction run through
// pgx.BeginFunc whose body succeeded. BeginFunc always calls Rollback after
// Commit, and a finished transaction answers it with pgx.ErrTxClosed.
func (c *Conn) ExpectCommitted() {
	c.ExpectCommit()
	c.ExpectRollback().WillReturnError(pgx.ErrTxClosed)
}

// ExpectRolledBack is ExpectCommitted for a body that returned an error.
func (c *Conn) ExpectRolledBack() {
	c.ExpectRollback()
	c.ExpectRollback().WillReturnError(pgx.ErrTxClosed)
}

// Context attaches the connection the way db.ConnMiddleware does.
func (c *Conn) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, db.DBConnKey, db.Conn(c))
}

// Pool hands out Conn and counts checkouts.
type Pool struct {
	Conn       *Conn
	AcquireErr error

	acquired atomic.Int64
}

func NewPool(t testing.TB) *Pool {
	return &Pool{Conn: NewConn(t)}
}

func (p *Pool) Acquire(ctx context.Context) (db.Conn, error) {
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.acquired.Add(1)
	return p.Conn, nil
}

// Acquired reports how many connections were handed out.
func (p *Pool) Acquired() int {
	return int(p.acquired.Load())
}

// Outstanding is acquisitions minus releases; zero means nothing leaked.
func (p *Pool) Outstanding() int {
	return p.Acquired() - p.Conn.Released()
}

// PgError builds a PostgreSQL error with the given SQLSTATE code.
func PgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "dbtest " + strings.ToLower(code)}
}
