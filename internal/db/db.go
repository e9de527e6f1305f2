package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"rail-booking/internal/booking"
	"rail-booking/internal/rail"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schema string

const ticketSeatConstraint = "tickets_journey_cargo_seat_key"

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL backend.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// NewStore wraps an open pool; loc is the zone journey date filters use.
func NewStore(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

// InTx runs fn inside one database transaction, rolling back if fn fails.
func (s *Store) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return s.withTx(ctx, func(q *sql.Tx) error { return fn(&pgTx{q: q}) })
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// translate maps constraint violations onto the rail sentinels.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == ticketSeatConstraint {
			return fmt.Errorf("%w: %s", rail.ErrSeatTaken, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", rail.ErrDuplicate, pgErr.Detail)
	case "23503": // foreign_key_violation
		if strings.HasPrefix(pgErr.Message, "update or delete") {
			return fmt.Errorf("%w: %s", rail.ErrReferenced, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", rail.ErrInvalidReference, pgErr.Detail)
	}
	return err
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, rail.ErrNotFound)
}

// scanErr turns sql.ErrNoRows into a not-found error.
func scanErr(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	return translate(err)
}

// mustAffect reports not-found when an UPDATE or DELETE matched nothing.
func mustAffect(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}
