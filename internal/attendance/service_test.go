package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"esalama/internal/apperr"
	"esalama/internal/directory"
	"esalama/internal/qrtoken"
)

type fakeToken struct {
	info     qrtoken.StudentInfo
	expires  time.Time
	consumed bool
}

// fakeVerifier mimics the engine's compare-and-set consumption.
type fakeVerifier struct {
	mu     sync.Mutex
	tokens map[string]*fakeToken
}

func (f *fakeVerifier) Validate(_ context.Context, id string) (qrtoken.StudentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[id]
	if !ok {
		return qrtoken.StudentInfo{}, apperr.ErrInvalidToken
	}
	if !time.Now().Before(tok.expires) {
		return qrtoken.StudentInfo{}, apperr.ErrExpired
	}
	if tok.consumed {
		return qrtoken.StudentInfo{}, apperr.ErrAlreadyUsed
	}
	return tok.info, nil
}

func (f *fakeVerifier) ValidateAndConsume(_ context.Context, id string) (qrtoken.StudentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[id]
	if !ok {
		return qrtoken.StudentInfo{}, apperr.ErrInvalidToken
	}
	if !time.Now().Before(tok.expires) {
		return qrtoken.StudentInfo{}, apperr.ErrExpired
	}
	if tok.consumed {
		return qrtoken.StudentInfo{}, apperr.ErrAlreadyUsed
	}
	tok.consumed = true
	return tok.info, nil
}

type fakeDirectory struct {
	students map[string]directory.Student // by external key
}

func (f *fakeDirectory) GetStudentByKey(_ context.Context, key string) (directory.Student, error) {
	s, ok := f.students[key]
	if !ok {
		return directory.Student{}, apperr.ErrNotFound
	}
	return s, nil
}

type memEvents struct {
	mu   sync.Mutex
	rows []Event
}

func (m *memEvents) Insert(_ context.Context, evt Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.CreatedAt = time.Now()
	m.rows = append(m.rows, evt)
	return evt, nil
}

func (m *memEvents) List(_ context.Context, studentID string, day *time.Time, limit, offset int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Event
	for _, evt := range m.rows {
		if studentID != "" && evt.StudentID != studentID {
			continue
		}
		res = append(res, evt)
	}
	return res, nil
}

type recordedNotification struct {
	student   directory.Student
	direction string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (n *recordingNotifier) AttendanceRecorded(_ context.Context, student directory.Student, direction string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{student: student, direction: direction})
	return nil
}

func fixture() (*Service, *fakeVerifier, *memEvents, *recordingNotifier) {
	parent := "parent-1"
	teacher := "teacher-1"
	dir := &fakeDirectory{students: map[string]directory.Student{
		"S001": {ID: "uuid-1", StudentKey: "S001", FullName: "Asha K", ParentID: &parent, TeacherID: &teacher},
	}}
	verifier := &fakeVerifier{tokens: map[string]*fakeToken{}}
	events := &memEvents{}
	notifier := &recordingNotifier{}
	svc := NewService(events, verifier, dir, notifier, nil)
	return svc, verifier, events, notifier
}

func grantToken(v *fakeVerifier, id, studentKey string, dir qrtoken.Direction) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[id] = &fakeToken{
		info:    qrtoken.StudentInfo{StudentKey: studentKey, StudentName: "Asha K", Direction: dir},
		expires: time.Now().Add(15 * time.Minute),
	}
}

func TestRecordScan(t *testing.T) {
	svc, verifier, events, notifier := fixture()
	grantToken(verifier, "tok-1", "S001", qrtoken.Arrival)

	lat, lng := 1.0, 2.0
	evt, err := svc.RecordScan(context.Background(), Scan{
		StudentKey: "S001",
		Direction:  qrtoken.Arrival,
		Token:      "tok-1",
		Latitude:   &lat,
		Longitude:  &lng,
		ScannerID:  "gate-1",
	})
	if err != nil {
		t.Fatalf("RecordScan() error = %v", err)
	}
	if evt.StudentID != "uuid-1" || evt.Direction != qrtoken.Arrival {
		t.Errorf("event = %+v", evt)
	}
	if evt.TokenID != "tok-1" || evt.ScannerID != "gate-1" {
		t.Errorf("event provenance = token %q scanner %q", evt.TokenID, evt.ScannerID)
	}
	if len(events.rows) != 1 {
		t.Fatalf("events = %d, want 1", len(events.rows))
	}
	if len(notifier.calls) != 1 || notifier.calls[0].direction != "arrival" {
		t.Errorf("notifier calls = %+v", notifier.calls)
	}
}

func TestRecordScanFailures(t *testing.T) {
	tests := []struct {
		name    string
		scan    Scan
		setup   func(*fakeVerifier)
		wantErr error
	}{
		{
			name:    "unknown student",
			scan:    Scan{StudentKey: "NOPE", Direction: qrtoken.Arrival, Token: "tok-1"},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "unknown token",
			scan:    Scan{StudentKey: "S001", Direction: qrtoken.Arrival, Token: "bogus"},
			wantErr: apperr.ErrInvalidToken,
		},
		{
			name: "token for other student",
			scan: Scan{StudentKey: "S001", Direction: qrtoken.Arrival, Token: "tok-other"},
			setup: func(v *fakeVerifier) {
				grantToken(v, "tok-other", "S999", qrtoken.Arrival)
			},
			wantErr: apperr.ErrInvalidToken,
		},
		{
			name: "direction mismatch",
			scan: Scan{StudentKey: "S001", Direction: qrtoken.Departure, Token: "tok-arr"},
			setup: func(v *fakeVerifier) {
				grantToken(v, "tok-arr", "S001", qrtoken.Arrival)
			},
			wantErr: apperr.ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, verifier, events, notifier := fixture()
			if tt.setup != nil {
				tt.setup(verifier)
			}
			if _, err := svc.RecordScan(context.Background(), tt.scan); !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordScan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(events.rows) != 0 {
				t.Error("failed scan persisted an event")
			}
			if len(notifier.calls) != 0 {
				t.Error("failed scan triggered notifications")
			}
		})
	}
}

func TestMismatchedScanLeavesTokenLive(t *testing.T) {
	svc, verifier, events, _ := fixture()
	grantToken(verifier, "tok-1", "S001", qrtoken.Arrival)

	// Wrong direction first: the cross-check must fail before consumption.
	_, err := svc.RecordScan(context.Background(), Scan{
		StudentKey: "S001",
		Direction:  qrtoken.Departure,
		Token:      "tok-1",
	})
	if !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("mismatched scan error = %v, want ErrInvalidToken", err)
	}

	// The same token still authorizes the scan it was issued for.
	if _, err := svc.RecordScan(context.Background(), Scan{
		StudentKey: "S001",
		Direction:  qrtoken.Arrival,
		Token:      "tok-1",
	}); err != nil {
		t.Fatalf("matching scan after mismatch error = %v", err)
	}
	if len(events.rows) != 1 {
		t.Errorf("events = %d, want 1", len(events.rows))
	}
}

func TestConcurrentScansSingleEvent(t *testing.T) {
	svc, verifier, events, notifier := fixture()
	grantToken(verifier, "tok-race", "S001", qrtoken.Arrival)

	scan := Scan{StudentKey: "S001", Direction: qrtoken.Arrival, Token: "tok-race", ScannerID: "gate-1"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordScan(context.Background(), scan)
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, apperr.ErrAlreadyUsed):
			losers++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != 1 {
		t.Fatalf("winners=%d losers=%d, want 1/1", winners, losers)
	}
	if len(events.rows) != 1 {
		t.Errorf("events = %d, want 1", len(events.rows))
	}
	if len(notifier.calls) != 1 {
		t.Errorf("notifier calls = %d, want 1", len(notifier.calls))
	}
}
