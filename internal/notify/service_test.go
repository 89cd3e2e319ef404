package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"esalama/internal/apperr"
	"esalama/internal/directory"
	"esalama/internal/hub"
	"esalama/internal/queue"
)

type memRecords struct {
	mu   sync.Mutex
	rows []Record
}

func (m *memRecords) Insert(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = "rec-" + rec.RecipientID
	rec.SentAt = time.Now().UTC()
	m.rows = append(m.rows, rec)
	return rec, nil
}

func (m *memRecords) ListForRecipient(_ context.Context, recipientID string, studentID *string, unreadOnly bool) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for _, rec := range m.rows {
		if rec.RecipientID != recipientID {
			continue
		}
		if studentID != nil && (rec.StudentID == nil || *rec.StudentID != *studentID) {
			continue
		}
		if unreadOnly && rec.IsRead {
			continue
		}
		res = append(res, rec)
	}
	return res, nil
}

func (m *memRecords) MarkRead(_ context.Context, id, recipientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.rows {
		if rec.ID == id && rec.RecipientID == recipientID {
			m.rows[i].IsRead = true
			return nil
		}
	}
	return apperr.ErrNotFound
}

type memDirectory struct {
	students map[string]directory.Student
}

func (m *memDirectory) GetStudentByKey(_ context.Context, key string) (directory.Student, error) {
	s, ok := m.students[key]
	if !ok {
		return directory.Student{}, apperr.ErrNotFound
	}
	return s, nil
}

func ptr(s string) *string { return &s }

func fixture() (*Service, *memRecords, *queue.InMemory) {
	records := &memRecords{}
	dir := &memDirectory{students: map[string]directory.Student{
		"S001": {
			ID:         "stu-1",
			StudentKey: "S001",
			FullName:   "Asha Mwangi",
			ParentID:   ptr("parent-1"),
			TeacherID:  ptr("teacher-1"),
		},
	}}
	q := queue.NewInMemory(16)
	return NewService(records, dir, hub.New(), q), records, q
}

func TestAttendanceRecordedNotifiesParentAndTeacher(t *testing.T) {
	svc, records, q := fixture()
	ts := time.Date(2026, 3, 2, 7, 45, 0, 0, time.UTC)

	student, _ := svc.students.GetStudentByKey(context.Background(), "S001")
	if err := svc.AttendanceRecorded(context.Background(), student, "arrival", ts); err != nil {
		t.Fatalf("AttendanceRecorded: %v", err)
	}

	if len(records.rows) != 2 {
		t.Fatalf("records = %d, want 2", len(records.rows))
	}
	want := "Asha Mwangi has arrived at school at 2026-03-02T07:45:00Z"
	for _, rec := range records.rows {
		if rec.Message != want {
			t.Errorf("message = %q, want %q", rec.Message, want)
		}
		if rec.Type != "arrival" {
			t.Errorf("type = %q, want arrival", rec.Type)
		}
	}
	if records.rows[0].RecipientID != "parent-1" || records.rows[1].RecipientID != "teacher-1" {
		t.Errorf("recipients = %s, %s", records.rows[0].RecipientID, records.rows[1].RecipientID)
	}

	// Each record gets a queued delivery job.
	messages, err := q.Consume(context.Background())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-messages:
			if msg.Type != QueueMessageType {
				t.Fatalf("msg type = %q", msg.Type)
			}
			var d Delivery
			if err := json.Unmarshal(msg.Body, &d); err != nil {
				t.Fatalf("unmarshal delivery: %v", err)
			}
			if d.Message != want {
				t.Errorf("delivery message = %q", d.Message)
			}
		case <-time.After(time.Second):
			t.Fatal("delivery job not queued")
		}
	}
}

func TestAttendanceRecordedDepartureWording(t *testing.T) {
	svc, records, _ := fixture()
	ts := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	student, _ := svc.students.GetStudentByKey(context.Background(), "S001")
	if err := svc.AttendanceRecorded(context.Background(), student, "departure", ts); err != nil {
		t.Fatalf("AttendanceRecorded: %v", err)
	}
	want := "Asha Mwangi has departed from school at 2026-03-02T15:30:00Z"
	if records.rows[0].Message != want {
		t.Errorf("message = %q, want %q", records.rows[0].Message, want)
	}
}

func TestSendSelectsRecipientByRole(t *testing.T) {
	svc, records, _ := fixture()

	if err := svc.Send(context.Background(), "S001", directory.RoleTeacher, "alert", "pickup changed"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(records.rows) != 1 {
		t.Fatalf("records = %d, want 1", len(records.rows))
	}
	if records.rows[0].RecipientID != "teacher-1" {
		t.Errorf("recipient = %q, want teacher-1", records.rows[0].RecipientID)
	}
}

func TestSendUnknownStudent(t *testing.T) {
	svc, _, _ := fixture()
	err := svc.Send(context.Background(), "NOPE", directory.RoleParent, "alert", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	svc, records, _ := fixture()

	student, _ := svc.students.GetStudentByKey(context.Background(), "S001")
	if err := svc.AttendanceRecorded(context.Background(), student, "arrival", time.Now()); err != nil {
		t.Fatalf("AttendanceRecorded: %v", err)
	}

	id := records.rows[0].ID
	if err := svc.MarkRead(context.Background(), id, "teacher-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign recipient err = %v, want ErrNotFound", err)
	}
	if err := svc.MarkRead(context.Background(), id, "parent-1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	unread, err := svc.List(context.Background(), "parent-1", "", true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(unread) != 0 {
		t.Errorf("unread = %d, want 0", len(unread))
	}
}
