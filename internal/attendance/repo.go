package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esalama/internal/qrtoken"
)

// Event is an immutable fact: a student crossed the gate at a time and
// place, authorized by a consumed token.
type Event struct {
	ID        string            `json:"id"`
	StudentID string            `json:"-"`
	Direction qrtoken.Direction `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	TokenID   string            `json:"-"`
	ScannerID string            `json:"scanner_id"`
	CreatedAt time.Time         `json:"created_at"`
}

// EventStore is the persistence surface for attendance events.
type EventStore interface {
	Insert(ctx context.Context, evt Event) (Event, error)
	List(ctx context.Context, studentID string, day *time.Time, limit, offset int) ([]Event, error)
}

// Repository persists attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

var _ EventStore = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new event. Events are append-only; there is no update
// path.
func (r *Repository) Insert(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, type, timestamp, latitude, longitude, qr_code_token, scanner_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, evt.ID, evt.StudentID, evt.Direction, evt.Timestamp, evt.Latitude, evt.Longitude, evt.TokenID, evt.ScannerID)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// List returns events with optional student and day filters, newest first.
func (r *Repository) List(ctx context.Context, studentID string, day *time.Time, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, student_id, type, timestamp, latitude, longitude, qr_code_token, scanner_id, created_at FROM attendance`
	args := []any{}
	clauses := []string{}
	if studentID != "" {
		args = append(args, studentID)
		clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if day != nil {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		args = append(args, start)
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", len(args)))
		args = append(args, start.AddDate(0, 0, 1))
		clauses = append(clauses, fmt.Sprintf("timestamp < $%d", len(args)))
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Direction, &evt.Timestamp, &evt.Latitude, &evt.Longitude, &evt.TokenID, &evt.ScannerID, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
