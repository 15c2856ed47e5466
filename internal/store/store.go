// Package store provides typed per-entity query families over PostgreSQL,
// one transaction per mutation, and row-level SELECT ... FOR UPDATE locking
// ahead of a mutation. Implemented as a single hand-written database/sql +
// lib/pq layer throughout — see DESIGN.md for why sqlc codegen was dropped.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/modhub/platform/internal/idcodec"
)

// Store wraps the connection pool every entity store shares.
type Store struct {
	db *sql.DB
}

func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// querier is satisfied by both *sql.DB and *sql.Tx, letting every entity
// store method run either standalone or inside an ambient transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txKey is the context key WithTx stores the ambient transaction under.
type txKey struct{}

// WithTx runs fn inside a single Store transaction ( "all
// multi-statement mutations within one request run in a single Store
// transaction"). A panic or returned error rolls the transaction back;
// returning nil commits. Ctx cancellation during fn rolls back too, since
// the underlying *sql.Tx's methods fail once ctx is done.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	return err
}

// q returns the ambient transaction if WithTx put one on ctx, else the
// pool itself — every entity store method calls this instead of touching
// s.db directly so it transparently participates in the caller's
// transaction.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// ErrNoTx is returned by operations that require an ambient transaction
// (row locking only makes sense inside one).
var ErrNoTx = errors.New("store: operation requires an ambient transaction from WithTx")

func (s *Store) tx(ctx context.Context) (*sql.Tx, error) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok {
		return nil, ErrNoTx
	}
	return tx, nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation on
// the named constraint — the pattern used throughout this package to
// translate pq errors into domain sentinel errors.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}

// SequenceAllocator implements idcodec.Allocator by backing each entity
// kind with its own Postgres sequence, idcodec_<kind>_seq, which must
// already exist; this code does not create it.
type SequenceAllocator struct {
	store *Store
}

func NewSequenceAllocator(s *Store) *SequenceAllocator {
	return &SequenceAllocator{store: s}
}

var _ idcodec.Allocator = (*SequenceAllocator)(nil)

func (a *SequenceAllocator) NextValue(ctx context.Context, kind string) (uint64, error) {
	seqName := fmt.Sprintf("idcodec_%s_seq", kind)
	var v int64
	// nextval auto-creates nothing; the migration that creates each kind's
	// table is expected to also create its sequence (see migrations/ —
	// deployment detail, not part of the core).
	err := a.store.q(ctx).QueryRowContext(ctx, fmt.Sprintf(`SELECT nextval('%s')`, seqName)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("store: allocate %s id: %w", kind, err)
	}
	// id_allocations pairs the issued public id with a freshly minted
	// uuid.UUID; entity rows themselves are keyed by the public id.
	if _, err := a.store.q(ctx).ExecContext(ctx, `
		INSERT INTO id_allocations (public_id, kind, row_uuid, allocated_at)
		VALUES ($1, $2, $3, $4)`,
		v, kind, uuid.New(), time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("store: record %s id allocation: %w", kind, err)
	}
	return uint64(v), nil
}
