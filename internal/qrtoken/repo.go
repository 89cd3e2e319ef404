package qrtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"esalama/internal/apperr"
)

// Repo is the persistence surface the verification engine needs: point
// lookup plus one conditional update.
type Repo interface {
	Insert(ctx context.Context, tok Token) error
	Get(ctx context.Context, id string) (Token, error)
	// Consume atomically flips consumed=false to true for an unexpired
	// token and reports whether this caller won the transition.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
}

// Repository persists tokens in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Repo = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a fresh token row.
func (r *Repository) Insert(ctx context.Context, tok Token) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_tokens (token, student_id, direction, consumed, expires_at)
		VALUES ($1, $2, $3, FALSE, $4)
	`, tok.ID, tok.StudentID, tok.Direction, tok.ExpiresAt)
	return err
}

// Get returns a token by identifier.
func (r *Repository) Get(ctx context.Context, id string) (Token, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token, student_id, direction, consumed, expires_at, created_at
		FROM qr_tokens WHERE token = $1
	`, id)
	var tok Token
	err := row.Scan(&tok.ID, &tok.StudentID, &tok.Direction, &tok.Consumed, &tok.ExpiresAt, &tok.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, fmt.Errorf("token: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Consume is the single synchronization point for token use. The
// conditional update guarantees at most one winner per token; concurrent
// scanners racing the same QR image serialize on this row.
func (r *Repository) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE qr_tokens SET consumed = TRUE
		WHERE token = $1 AND consumed = FALSE AND expires_at > $2
	`, id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
