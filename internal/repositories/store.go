package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anonto42/microblog/backend/internal/models"
)

// Error kinds surfaced by every repository. Callers test them with Has.
var (
	// ErrNotFound is returned when a user, tweet or edge does not exist, or
	// when the caller does not own the tweet it tries to delete.
	ErrNotFound = errs.Class("not found")
	// ErrConflict is returned on a uniqueness violation.
	ErrConflict = errs.Class("conflict")
	// ErrInvalidOperation is returned when a request breaks a structural rule.
	ErrInvalidOperation = errs.Class("invalid operation")
	// ErrUnavailable is returned when the transaction could not complete. It
	// is the only kind that is safe to retry blindly.
	ErrUnavailable = errs.Class("unavailable")
)

const defaultMaxRetries = 5

// Store owns the gorm handle and runs every repository operation in a
// transaction with the configured isolation.
type Store struct {
	db         *gorm.DB
	log        *zap.Logger
	now        func() time.Time
	writeOpts  *sql.TxOptions
	readOpts   *sql.TxOptions
	maxRetries int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces the time source used for created_at columns.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithWriteIsolation sets the isolation level of mutating transactions.
func WithWriteIsolation(level sql.IsolationLevel) StoreOption {
	return func(s *Store) { s.writeOpts = &sql.TxOptions{Isolation: level} }
}

// WithReadIsolation sets the isolation level of read-only transactions.
func WithReadIsolation(level sql.IsolationLevel) StoreOption {
	return func(s *Store) { s.readOpts = &sql.TxOptions{Isolation: level, ReadOnly: true} }
}

// WithMaxRetries bounds how often a transaction is restarted after a
// serialization failure or deadlock.
func WithMaxRetries(n int) StoreOption {
	return func(s *Store) { s.maxRetries = n }
}

// NewStore creates a Store. Without options transactions use the driver's
// default isolation.
func NewStore(db *gorm.DB, log *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{
		db:         db,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Tweet{},
		&models.Media{},
		&models.Like{},
	)
}

// WithTx runs fn in a write transaction. fn may run more than once, so it must
// not have side effects outside the database.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.withTx(ctx, s.writeOpts, fn)
}

// WithReadTx runs fn in a read-only transaction so that every query inside
// sees the same snapshot.
func (s *Store) WithReadTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.withTx(ctx, s.readOpts, fn)
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error {
	var txOpts []*sql.TxOptions
	if opts != nil {
		txOpts = append(txOpts, opts)
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn, txOpts...)
		if err == nil || !shouldRetry(err) || attempt >= s.maxRetries || ctx.Err() != nil {
			break
		}
		s.log.Debug("restarting transaction",
			zap.Int("attempt", attempt+1),
			zap.String("sqlstate", sqlState(err)),
		)
	}
	return classify(err)
}

// query returns a plain handle bound to ctx for single-statement reads.
func (s *Store) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate adds a row lock to the next SELECT. SQLite has no row locks; its
// writers are already serialized.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// shouldRetry reports serialization failures and deadlocks.
func shouldRetry(err error) bool {
	switch sqlState(err) {
	case "40001", "40P01":
		return true
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps whatever came out of gorm to one of the four error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case ErrNotFound.Has(err), ErrConflict.Has(err), ErrInvalidOperation.Has(err), ErrUnavailable.Has(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound.Wrap(err)
	case errors.Is(err, gorm.ErrDuplicatedKey), sqlState(err) == "23505":
		return ErrConflict.Wrap(err)
	default:
		return ErrUnavailable.Wrap(err)
	}
}
