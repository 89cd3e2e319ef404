package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"esalama/internal/apperr"
)

// Record is a queued, persisted message to a recipient. It exists whether
// or not the recipient is connected to the realtime hub; the hub only
// mirrors it to live channels.
type Record struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	StudentID   *string   `json:"student_id,omitempty"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	SentAt      time.Time `json:"sent_at"`
}

// RecordStore is the persistence surface for notification records.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	ListForRecipient(ctx context.Context, recipientID string, studentID *string, unreadOnly bool) ([]Record, error)
	MarkRead(ctx context.Context, id, recipientID string) error
}

// Repository persists notification records in Postgres.
type Repository struct {
	db *sql.DB
}

var _ RecordStore = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new notification record.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, recipient_id, student_id, type, message, is_read)
		VALUES ($1,$2,$3,$4,$5,FALSE)
		RETURNING sent_at
	`, rec.ID, rec.RecipientID, rec.StudentID, rec.Type, rec.Message)
	if err := row.Scan(&rec.SentAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListForRecipient returns a recipient's notifications, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID string, studentID *string, unreadOnly bool) ([]Record, error) {
	query := `SELECT id, recipient_id, student_id, type, message, is_read, sent_at FROM notifications WHERE recipient_id = $1`
	args := []any{recipientID}
	if studentID != nil {
		args = append(args, *studentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY sent_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RecipientID, &rec.StudentID, &rec.Type, &rec.Message, &rec.IsRead, &rec.SentAt); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// MarkRead flips the read flag; the recipient scope keeps users from
// acknowledging someone else's notifications.
func (r *Repository) MarkRead(ctx context.Context, id, recipientID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notification: %w", apperr.ErrNotFound)
	}
	return nil
}
