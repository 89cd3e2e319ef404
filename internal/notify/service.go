package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"esalama/internal/directory"
	"esalama/internal/hub"
	"esalama/internal/queue"
)

// QueueMessageType tags delivery jobs on the queue toward the worker.
const QueueMessageType = "notification"

// StudentDirectory is the directory slice the service depends on.
type StudentDirectory interface {
	GetStudentByKey(ctx context.Context, key string) (directory.Student, error)
}

// Service creates notification records and fans them out: a persisted row
// per recipient, a realtime frame for connected channels, and a queued
// delivery job for external channels.
type Service struct {
	repo     RecordStore
	students StudentDirectory
	hub      *hub.Hub
	q        queue.Queue
}

// NewService wires the notification write path.
func NewService(repo RecordStore, students StudentDirectory, h *hub.Hub, q queue.Queue) *Service {
	return &Service{repo: repo, students: students, hub: h, q: q}
}

// AttendanceRecorded notifies a student's parent and teacher that the
// student crossed the gate.
func (s *Service) AttendanceRecorded(ctx context.Context, student directory.Student, direction string, ts time.Time) error {
	verb := "arrived at"
	if direction == "departure" {
		verb = "departed from"
	}
	message := fmt.Sprintf("%s has %s school at %s", student.FullName, verb, ts.UTC().Format(time.RFC3339))

	var recipients []string
	if student.ParentID != nil {
		recipients = append(recipients, *student.ParentID)
	}
	if student.TeacherID != nil {
		recipients = append(recipients, *student.TeacherID)
	}
	return s.notifyAll(ctx, recipients, student, direction, message)
}

// Send delivers an explicit notification to a student's parent or teacher,
// chosen by role.
func (s *Service) Send(ctx context.Context, studentKey, recipientRole, notificationType, message string) error {
	student, err := s.students.GetStudentByKey(ctx, studentKey)
	if err != nil {
		return err
	}

	var recipients []string
	switch recipientRole {
	case directory.RoleParent:
		if student.ParentID != nil {
			recipients = append(recipients, *student.ParentID)
		}
	case directory.RoleTeacher:
		if student.TeacherID != nil {
			recipients = append(recipients, *student.TeacherID)
		}
	}
	return s.notifyAll(ctx, recipients, student, notificationType, message)
}

func (s *Service) notifyAll(ctx context.Context, recipients []string, student directory.Student, notificationType, message string) error {
	for _, recipientID := range recipients {
		rec := Record{
			RecipientID: recipientID,
			StudentID:   &student.ID,
			Type:        notificationType,
			Message:     message,
		}
		if _, err := s.repo.Insert(ctx, rec); err != nil {
			return err
		}

		s.hub.Publish(hub.TopicNotification, recipientID, hub.NotificationFrame(notificationType, message, map[string]any{
			"student_id": student.StudentKey,
		}))

		if err := s.enqueue(ctx, Delivery{RecipientID: recipientID, Message: message, Type: notificationType}); err != nil {
			// Best effort: the record and the realtime push already exist.
			log.Printf("queueing delivery for %s failed: %v", recipientID, err)
		}
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, d Delivery) error {
	if s.q == nil {
		return nil
	}
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.q.Publish(ctx, queue.Message{Type: QueueMessageType, Body: body})
}

// List returns the caller's notifications.
func (s *Service) List(ctx context.Context, recipientID string, studentKey string, unreadOnly bool) ([]Record, error) {
	var studentID *string
	if studentKey != "" {
		student, err := s.students.GetStudentByKey(ctx, studentKey)
		if err != nil {
			return nil, err
		}
		studentID = &student.ID
	}
	return s.repo.ListForRecipient(ctx, recipientID, studentID, unreadOnly)
}

// MarkRead acknowledges one of the caller's notifications.
func (s *Service) MarkRead(ctx context.Context, id, recipientID string) error {
	return s.repo.MarkRead(ctx, id, recipientID)
}
