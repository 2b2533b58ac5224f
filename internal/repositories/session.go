package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/session"
	"github.com/desertthunder/splitx/internal/shared"
)

// SessionRepository implements [session.Store] on the auth_sessions table.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection.
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &SessionRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *SessionRepository) cutoff(now time.Time) int64 {
	return now.Add(-r.ttl).UnixMilli()
}

// Get retrieves an unexpired session by state.
func (r *SessionRepository) Get(ctx context.Context, state string) (*session.Record, error) {
	query := `
		SELECT state, redirect_uri, tokens, created_at
		FROM auth_sessions
		WHERE state = ? AND created_at >= ?
	`

	var (
		record    session.Record
		tokens    sql.NullString
		createdAt int64
	)

	err := r.db.QueryRowContext(ctx, query, state, r.cutoff(r.now())).Scan(&record.State, &record.RedirectURI, &tokens, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, state)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	record.CreatedAt = time.UnixMilli(createdAt)
	if record.Tokens, err = decodeTokens(tokens); err != nil {
		return nil, err
	}
	return &record, nil
}

// Put inserts or replaces a session, stamping CreatedAt when unset.
func (r *SessionRepository) Put(ctx context.Context, record session.Record) error {
	if record.State == "" {
		return fmt.Errorf("%w: empty state", shared.ErrInvalidInput)
	}

	now := r.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	var tokens sql.NullString
	if record.Tokens != nil {
		data, err := json.Marshal(record.Tokens)
		if err != nil {
			return fmt.Errorf("failed to encode tokens: %w", err)
		}
		tokens = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO auth_sessions (state, redirect_uri, tokens, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(state) DO UPDATE SET redirect_uri = excluded.redirect_uri, tokens = excluded.tokens, updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, record.State, record.RedirectURI, tokens, record.CreatedAt.UnixMilli(), now.UnixMilli()); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Consume deletes a session holding tokens and returns them. The select and delete share a transaction so
// concurrent callers cannot both succeed.
func (r *SessionRepository) Consume(ctx context.Context, state string) (*models.AuthTokens, error) {
	var tokens *models.AuthTokens

	err := withTx(r.db, func(tx *sql.Tx) error {
		var raw sql.NullString
		err := tx.QueryRowContext(ctx,
			"SELECT tokens FROM auth_sessions WHERE state = ? AND tokens IS NOT NULL AND created_at >= ?",
			state, r.cutoff(r.now()),
		).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, state)
		}
		if err != nil {
			return fmt.Errorf("failed to query session: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM auth_sessions WHERE state = ?", state)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if rows, err := res.RowsAffected(); err != nil || rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, state)
		}

		tokens, err = decodeTokens(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Expire deletes every session created more than the TTL before now.
func (r *SessionRepository) Expire(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE created_at < ?", r.cutoff(now))
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(rows), nil
}

func decodeTokens(raw sql.NullString) (*models.AuthTokens, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	var tokens models.AuthTokens
	if err := json.Unmarshal([]byte(raw.String), &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode tokens: %w", err)
	}
	return &tokens, nil
}

// OpenSessionStore opens the configured database, applies migrations and returns a [SessionRepository].
// The returned close function releases the database.
func OpenSessionStore(cfg shared.DatabaseConfig, ttl time.Duration) (*SessionRepository, func() error, error) {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	if !shared.IsMemoryDSN(cfg.Path) && cfg.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewSessionRepository(db, ttl), db.Close, nil
}

var _ session.Store = (*SessionRepository)(nil)
