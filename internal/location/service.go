package location

import (
	"context"
	"time"

	"esalama/internal/directory"
	"esalama/internal/hub"
)

// StudentDirectory is the directory slice the service depends on.
type StudentDirectory interface {
	GetStudentByKey(ctx context.Context, key string) (directory.Student, error)
}

// Service ingests device pings and serves last/history reads.
type Service struct {
	repo     PingStore
	students StudentDirectory
	hub      *hub.Hub
}

// NewService wires the location path.
func NewService(repo PingStore, students StudentDirectory, h *hub.Hub) *Service {
	return &Service{repo: repo, students: students, hub: h}
}

// Fix is a reported GPS position.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64
	Timestamp time.Time
}

// Record persists a ping and pushes it to every live channel watching the
// student. Hub delivery is best-effort; the row is the source of truth.
func (s *Service) Record(ctx context.Context, studentKey string, fix Fix) (Ping, error) {
	student, err := s.students.GetStudentByKey(ctx, studentKey)
	if err != nil {
		return Ping{}, err
	}

	ping, err := s.repo.Insert(ctx, Ping{
		StudentID: student.ID,
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Accuracy:  fix.Accuracy,
		Timestamp: fix.Timestamp,
	})
	if err != nil {
		return Ping{}, err
	}

	s.hub.Publish(hub.TopicLocation, student.StudentKey,
		hub.LocationFrame(student.StudentKey, ping.Latitude, ping.Longitude, ping.Accuracy))
	return ping, nil
}

// Last returns the student's most recent position, enforcing read scoping.
func (s *Service) Last(ctx context.Context, role, userID, studentKey string) (Ping, error) {
	student, err := s.authorize(ctx, role, userID, studentKey)
	if err != nil {
		return Ping{}, err
	}
	return s.repo.Last(ctx, student.ID)
}

// History returns recent positions, newest first, enforcing read scoping.
func (s *Service) History(ctx context.Context, role, userID, studentKey string, limit int) ([]Ping, error) {
	student, err := s.authorize(ctx, role, userID, studentKey)
	if err != nil {
		return nil, err
	}
	return s.repo.History(ctx, student.ID, limit)
}

func (s *Service) authorize(ctx context.Context, role, userID, studentKey string) (directory.Student, error) {
	student, err := s.students.GetStudentByKey(ctx, studentKey)
	if err != nil {
		return directory.Student{}, err
	}
	if err := directory.CanViewStudent(role, userID, student); err != nil {
		return directory.Student{}, err
	}
	return student, nil
}
