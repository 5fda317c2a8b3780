package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"livepoll/internal/domain"
)

// PostgresStore persists polls in PostgreSQL. Per-poll serialization comes
// from locking the poll row inside the vote transaction; the primary key on
// poll_voters backstops the duplicate-vote check, so a race can never
// double-count even if the row lock were bypassed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens a connection pool, waits for the database to become
// reachable and ensures the schema exists.
func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	deadline := time.Now().Add(15 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			_ = db.Close()
			return nil, err
		}
		time.Sleep(500 * time.Millisecond)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

// DB exposes the underlying pool for readiness probes.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, question string, options []string) (*domain.Snapshot, error) {
	poll, err := domain.NewPoll(uuid.New().String(), question, options)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO polls (id, question, created_at)
        VALUES ($1, $2, $3)
    `, poll.ID, poll.Question, poll.CreatedAt); err != nil {
		return nil, err
	}

	for i, opt := range poll.Options {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO poll_options (poll_id, idx, text)
            VALUES ($1, $2, $3)
        `, poll.ID, i, opt.Text); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return poll.Snapshot(), nil
}

func (s *PostgresStore) Get(ctx context.Context, pollID string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{PollID: pollID}
	err := s.db.QueryRowContext(ctx, `
        SELECT question, created_at FROM polls WHERE id = $1
    `, pollID).Scan(&snap.Question, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	if snap.Options, snap.TotalVotes, err = s.options(ctx, s.db.QueryContext, pollID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) ApplyVote(ctx context.Context, pollID string, optionIndex int, voterID string) (*domain.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Row lock serializes concurrent votes for this poll.
	snap := &domain.Snapshot{PollID: pollID}
	err = tx.QueryRowContext(ctx, `
        SELECT question, created_at FROM polls WHERE id = $1 FOR UPDATE
    `, pollID).Scan(&snap.Question, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
        UPDATE poll_options SET votes = votes + 1
        WHERE poll_id = $1 AND idx = $2
    `, pollID, optionIndex)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, domain.ErrInvalidOption
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO poll_voters (poll_id, voter_id)
        VALUES ($1, $2)
    `, pollID, voterID); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyVoted
		}
		return nil, err
	}

	if snap.Options, snap.TotalVotes, err = s.options(ctx, tx.QueryContext, pollID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (s *PostgresStore) options(ctx context.Context, query queryFunc, pollID string) ([]domain.OptionCount, int, error) {
	rows, err := query(ctx, `
        SELECT text, votes FROM poll_options
        WHERE poll_id = $1 ORDER BY idx
    `, pollID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var opts []domain.OptionCount
	var total int
	for rows.Next() {
		var o domain.OptionCount
		if err := rows.Scan(&o.Text, &o.Votes); err != nil {
			return nil, 0, err
		}
		opts = append(opts, o)
		total += o.Votes
	}
	return opts, total, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// createSchema creates all tables needed by the store.
// Safe to call multiple times - uses IF NOT EXISTS.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS polls (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS poll_options (
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    idx INT NOT NULL,
    text TEXT NOT NULL,
    votes BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (poll_id, idx)
);

CREATE TABLE IF NOT EXISTS poll_voters (
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (poll_id, voter_id)
);
`
