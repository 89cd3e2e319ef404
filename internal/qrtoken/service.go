package qrtoken

import (
	"context"
	"errors"
	"time"

	"esalama/internal/apperr"
	"esalama/internal/directory"
)

// StudentResolver is the slice of the directory the engine depends on.
type StudentResolver interface {
	GetStudentByKey(ctx context.Context, key string) (directory.Student, error)
	GetStudent(ctx context.Context, id string) (directory.Student, error)
}

// Service issues and verifies single-use attendance tokens.
type Service struct {
	repo     Repo
	students StudentResolver
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a verification engine with the given token lifetime.
func NewService(repo Repo, students StudentResolver, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{repo: repo, students: students, ttl: ttl, now: time.Now}
}

// Issued describes a freshly issued token.
type Issued struct {
	Token     string    `json:"token"`
	QRCodeURL string    `json:"qr_code_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue generates a token for one attendance event and renders its QR
// image. Earlier unconsumed tokens for the same student stay valid until
// they expire or are consumed; issuance never invalidates them.
func (s *Service) Issue(ctx context.Context, studentKey string, dir Direction) (Issued, error) {
	student, err := s.students.GetStudentByKey(ctx, studentKey)
	if err != nil {
		return Issued{}, err
	}

	id, err := newIdentifier()
	if err != nil {
		return Issued{}, err
	}
	tok := Token{
		ID:        id,
		StudentID: student.ID,
		Direction: dir,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.Insert(ctx, tok); err != nil {
		return Issued{}, err
	}

	url, err := renderDataURL(EncodePayload(student.StudentKey, dir, id))
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: id, QRCodeURL: url, ExpiresAt: tok.ExpiresAt}, nil
}

// StudentInfo is what a successful validation tells the scanner.
type StudentInfo struct {
	StudentKey  string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Direction   Direction `json:"type"`
}

// Validate checks a token without consuming it. Absent tokens report
// InvalidToken, expired ones Expired (whether or not already consumed),
// consumed ones AlreadyUsed.
func (s *Service) Validate(ctx context.Context, id string) (StudentInfo, error) {
	tok, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return StudentInfo{}, apperr.ErrInvalidToken
		}
		return StudentInfo{}, err
	}
	if err := s.classify(tok); err != nil {
		return StudentInfo{}, err
	}
	return s.info(ctx, tok)
}

// ValidateAndConsume performs validation and consumption as one atomic
// unit. Under concurrent calls with the same identifier exactly one caller
// succeeds; losers observe AlreadyUsed (or Expired past the deadline).
func (s *Service) ValidateAndConsume(ctx context.Context, id string) (StudentInfo, error) {
	won, err := s.repo.Consume(ctx, id, s.now())
	if err != nil {
		return StudentInfo{}, err
	}
	if won {
		tok, err := s.repo.Get(ctx, id)
		if err != nil {
			return StudentInfo{}, err
		}
		return s.info(ctx, tok)
	}

	// Lost the conditional update: re-read to classify the failure.
	tok, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return StudentInfo{}, apperr.ErrInvalidToken
		}
		return StudentInfo{}, err
	}
	if err := s.classify(tok); err != nil {
		return StudentInfo{}, err
	}
	// Unconsumed, unexpired, yet the update matched nothing: someone else
	// is mid-flight. Report it as the race it is.
	return StudentInfo{}, apperr.ErrAlreadyUsed
}

func (s *Service) classify(tok Token) error {
	if !s.now().Before(tok.ExpiresAt) {
		return apperr.ErrExpired
	}
	if tok.Consumed {
		return apperr.ErrAlreadyUsed
	}
	return nil
}

func (s *Service) info(ctx context.Context, tok Token) (StudentInfo, error) {
	student, err := s.students.GetStudent(ctx, tok.StudentID)
	if err != nil {
		return StudentInfo{}, err
	}
	return StudentInfo{
		StudentKey:  student.StudentKey,
		StudentName: student.FullName,
		Direction:   tok.Direction,
	}, nil
}
