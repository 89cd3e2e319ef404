package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded system action.
type Entry struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id,omitempty"`
	Action       string    `json:"action"`
	ResourceType *string   `json:"resource_type,omitempty"`
	ResourceID   *string   `json:"resource_id,omitempty"`
	Details      *string   `json:"details,omitempty"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Filter narrows an audit query.
type Filter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Start        *time.Time
	End          *time.Time
	Limit        int
	Offset       int
}

// Recorder writes and queries the audit trail.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a recorder.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends an entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details, ip_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, e.Details, e.IPAddress)
	return err
}

// Query returns entries matching the filter, newest first.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	query := `SELECT id, user_id, action, resource_type, resource_id, details, ip_address, timestamp FROM audit_logs`
	args := []any{}
	clauses := []string{}
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action ILIKE $%d", "%"+f.Action+"%")
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if f.Start != nil {
		add("timestamp >= $%d", *f.Start)
	}
	if f.End != nil {
		add("timestamp <= $%d", *f.End)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.Details, &e.IPAddress, &e.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
