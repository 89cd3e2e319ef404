package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"esalama/internal/apperr"
	"esalama/internal/audit"
	"esalama/internal/directory"
	"esalama/internal/metrics"
	"esalama/internal/qrtoken"
)

// TokenVerifier is the slice of the verification engine the write path
// needs: a read-only check plus the atomic validate+consume pair.
type TokenVerifier interface {
	Validate(ctx context.Context, id string) (qrtoken.StudentInfo, error)
	ValidateAndConsume(ctx context.Context, id string) (qrtoken.StudentInfo, error)
}

// StudentDirectory resolves students by their external key.
type StudentDirectory interface {
	GetStudentByKey(ctx context.Context, key string) (directory.Student, error)
}

// Notifier is invoked after every recorded event; it owns record creation,
// realtime push and outbound delivery.
type Notifier interface {
	AttendanceRecorded(ctx context.Context, student directory.Student, direction string, ts time.Time) error
}

// AuditTrail records scan actions for the audit log.
type AuditTrail interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Service is the attendance write path: it turns a valid scan into an
// event row plus its notification fan-out.
type Service struct {
	repo     EventStore
	tokens   TokenVerifier
	students StudentDirectory
	notifier Notifier
	trail    AuditTrail
}

// NewService wires the scan path. notifier and trail may be nil.
func NewService(repo EventStore, tokens TokenVerifier, students StudentDirectory, notifier Notifier, trail AuditTrail) *Service {
	return &Service{repo: repo, tokens: tokens, students: students, notifier: notifier, trail: trail}
}

// Scan is what a gate device submits: the parsed QR payload triple plus
// the scan context.
type Scan struct {
	StudentKey string
	Direction  qrtoken.Direction
	Token      string
	Timestamp  time.Time
	Latitude   *float64
	Longitude  *float64
	ScannerID  string
}

// RecordScan validates and consumes the token, then persists the event.
// The token consumption is the only synchronization point: two scanners
// racing the same QR image produce exactly one event, and the loser gets
// AlreadyUsed.
func (s *Service) RecordScan(ctx context.Context, scan Scan) (Event, error) {
	student, err := s.students.GetStudentByKey(ctx, scan.StudentKey)
	if err != nil {
		return Event{}, s.counted(err)
	}

	// The cross-check runs on a read-only validation first: a scanner
	// claiming the wrong student or direction must not burn a token that
	// is still valid for its real owner.
	info, err := s.tokens.Validate(ctx, scan.Token)
	if err != nil {
		return Event{}, s.counted(err)
	}
	if info.StudentKey != student.StudentKey || info.Direction != scan.Direction {
		return Event{}, s.counted(fmt.Errorf("token does not match scan: %w", apperr.ErrInvalidToken))
	}

	// The token's student and direction are immutable, so the pre-checked
	// info stays true for whichever caller wins the consumption.
	if _, err := s.tokens.ValidateAndConsume(ctx, scan.Token); err != nil {
		return Event{}, s.counted(err)
	}

	ts := scan.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	evt, err := s.repo.Insert(ctx, Event{
		StudentID: student.ID,
		Direction: scan.Direction,
		Timestamp: ts,
		Latitude:  scan.Latitude,
		Longitude: scan.Longitude,
		TokenID:   scan.Token,
		ScannerID: scan.ScannerID,
	})
	if err != nil {
		return Event{}, s.counted(err)
	}
	metrics.ScansTotal.WithLabelValues("recorded").Inc()

	// The event row is the fact; notification and audit failures must not
	// undo a recorded crossing.
	if s.notifier != nil {
		if err := s.notifier.AttendanceRecorded(ctx, student, string(scan.Direction), ts); err != nil {
			log.Printf("notifying for event %s failed: %v", evt.ID, err)
		}
	}
	if s.trail != nil {
		action := "attendance." + string(scan.Direction)
		if err := s.trail.Record(ctx, audit.Entry{
			Action:       action,
			ResourceType: ptr("student"),
			ResourceID:   &student.StudentKey,
			Details:      ptr("scanner " + scan.ScannerID),
		}); err != nil {
			log.Printf("audit for event %s failed: %v", evt.ID, err)
		}
	}
	return evt, nil
}

// List returns attendance records, scoped by role: parents and teachers
// only see their own students.
func (s *Service) List(ctx context.Context, role, userID, studentKey string, day *time.Time, limit, offset int) ([]Event, error) {
	studentID := ""
	if studentKey != "" {
		student, err := s.students.GetStudentByKey(ctx, studentKey)
		if err != nil {
			return nil, err
		}
		if err := directory.CanViewStudent(role, userID, student); err != nil {
			return nil, err
		}
		studentID = student.ID
	}
	return s.repo.List(ctx, studentID, day, limit, offset)
}

func (s *Service) counted(err error) error {
	switch {
	case errors.Is(err, apperr.ErrAlreadyUsed):
		metrics.ScansTotal.WithLabelValues("already_used").Inc()
	case errors.Is(err, apperr.ErrExpired):
		metrics.ScansTotal.WithLabelValues("expired").Inc()
	case errors.Is(err, apperr.ErrInvalidToken):
		metrics.ScansTotal.WithLabelValues("invalid_token").Inc()
	case errors.Is(err, apperr.ErrNotFound):
		metrics.ScansTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.ScansTotal.WithLabelValues("error").Inc()
	}
	return err
}

func ptr(s string) *string { return &s }
