package directory

import "time"

// Roles known to the system.
const (
	RoleParent      = "parent"
	RoleTeacher     = "teacher"
	RoleAdmin       = "admin"
	RoleSystemAdmin = "system_admin"
	RoleGateScanner = "gate_scanner"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleParent, RoleTeacher, RoleAdmin, RoleSystemAdmin, RoleGateScanner:
		return true
	}
	return false
}

// User is any account in the system: parents, teachers, admins and
// gate-scanning devices all authenticate the same way.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FullName       string     `json:"full_name"`
	Phone          *string    `json:"phone,omitempty"`
	Role           string     `json:"role"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// School groups students.
type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a tracked student. StudentKey is the external identifier
// printed on badges and embedded in QR payloads; ID is the row id.
type Student struct {
	ID         string    `json:"id"`
	StudentKey string    `json:"student_id"`
	FullName   string    `json:"full_name"`
	ClassName  *string   `json:"class_name,omitempty"`
	SchoolID   *string   `json:"school_id,omitempty"`
	ParentID   *string   `json:"parent_id,omitempty"`
	TeacherID  *string   `json:"teacher_id,omitempty"`
	DeviceID   *string   `json:"device_id,omitempty"`
	DeviceType *string   `json:"device_type,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}
