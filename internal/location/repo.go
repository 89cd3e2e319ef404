package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esalama/internal/apperr"
)

// Ping is an immutable fact: a device reported a position at a time.
type Ping struct {
	ID        string    `json:"id"`
	StudentID string    `json:"-"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"-"`
}

// PingStore is the persistence surface for location pings.
type PingStore interface {
	Insert(ctx context.Context, p Ping) (Ping, error)
	Last(ctx context.Context, studentID string) (Ping, error)
	History(ctx context.Context, studentID string, limit int) ([]Ping, error)
}

// Repository persists location pings in Postgres.
type Repository struct {
	db *sql.DB
}

var _ PingStore = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends a ping.
func (r *Repository) Insert(ctx context.Context, p Ping) (Ping, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO location_tracking (id, student_id, latitude, longitude, accuracy, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, p.ID, p.StudentID, p.Latitude, p.Longitude, p.Accuracy, p.Timestamp)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Ping{}, err
	}
	return p, nil
}

// Last returns the most recent ping for a student.
func (r *Repository) Last(ctx context.Context, studentID string) (Ping, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, latitude, longitude, accuracy, timestamp, created_at
		FROM location_tracking
		WHERE student_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`, studentID)
	var p Ping
	err := row.Scan(&p.ID, &p.StudentID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.Timestamp, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Ping{}, fmt.Errorf("no location data: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return Ping{}, err
	}
	return p, nil
}

// History returns up to limit pings, newest first.
func (r *Repository) History(ctx context.Context, studentID string, limit int) ([]Ping, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, latitude, longitude, accuracy, timestamp, created_at
		FROM location_tracking
		WHERE student_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Ping
	for rows.Next() {
		var p Ping
		if err := rows.Scan(&p.ID, &p.StudentID, &p.Latitude, &p.Longitude, &p.Accuracy, &p.Timestamp, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
