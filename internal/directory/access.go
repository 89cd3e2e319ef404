package directory

import (
	"fmt"

	"esalama/internal/apperr"
)

// CanViewStudent checks whether a user may read a student's data:
// parents their own children, teachers their own students, admins anyone.
func CanViewStudent(role, userID string, s Student) error {
	switch role {
	case RoleAdmin, RoleSystemAdmin, RoleGateScanner:
		return nil
	case RoleParent:
		if s.ParentID != nil && *s.ParentID == userID {
			return nil
		}
	case RoleTeacher:
		if s.TeacherID != nil && *s.TeacherID == userID {
			return nil
		}
	}
	return fmt.Errorf("not authorized for student %s: %w", s.StudentKey, apperr.ErrForbidden)
}
