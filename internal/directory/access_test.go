package directory

import (
	"errors"
	"testing"

	"esalama/internal/apperr"
)

func TestCanViewStudent(t *testing.T) {
	parent := "parent-1"
	teacher := "teacher-1"
	student := Student{
		ID:         "uuid-1",
		StudentKey: "S001",
		ParentID:   &parent,
		TeacherID:  &teacher,
	}
	orphan := Student{ID: "uuid-2", StudentKey: "S002"}

	tests := []struct {
		name      string
		role      string
		userID    string
		student   Student
		forbidden bool
	}{
		{"parent own child", RoleParent, "parent-1", student, false},
		{"parent other child", RoleParent, "parent-2", student, true},
		{"parent unlinked student", RoleParent, "parent-1", orphan, true},
		{"teacher own student", RoleTeacher, "teacher-1", student, false},
		{"teacher other student", RoleTeacher, "teacher-2", student, true},
		{"admin any student", RoleAdmin, "admin-1", student, false},
		{"system admin any student", RoleSystemAdmin, "sys-1", orphan, false},
		{"gate scanner any student", RoleGateScanner, "gate-1", student, false},
		{"unknown role", "visitor", "user-1", student, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanViewStudent(tt.role, tt.userID, tt.student)
			if tt.forbidden {
				if !errors.Is(err, apperr.ErrForbidden) {
					t.Fatalf("err = %v, want ErrForbidden", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
		})
	}
}
