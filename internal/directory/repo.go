package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"esalama/internal/apperr"
)

// Repository persists users, schools and students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// CreateUser inserts a user. Duplicate emails report apperr.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, hashed_password, full_name, phone, role, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, u.ID, u.Email, u.HashedPassword, u.FullName, u.Phone, u.Role, u.IsActive)
	if err := row.Scan(&u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("email already registered: %w", apperr.ErrConflict)
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail returns a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, hashed_password, full_name, phone, role, is_active, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
	return scanUser(row)
}

// GetUser returns a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, hashed_password, full_name, phone, role, is_active, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.Phone, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateStudent inserts a student. Duplicate student keys report apperr.ErrConflict.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, student_id, full_name, class_name, school_id, parent_id, teacher_id, device_id, device_type, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, s.ID, s.StudentKey, s.FullName, s.ClassName, s.SchoolID, s.ParentID, s.TeacherID, s.DeviceID, s.DeviceType, s.IsActive)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Student{}, fmt.Errorf("student id already exists: %w", apperr.ErrConflict)
		}
		return Student{}, err
	}
	return s, nil
}

// GetStudentByKey returns a student by the external student id.
func (r *Repository) GetStudentByKey(ctx context.Context, key string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, full_name, class_name, school_id, parent_id, teacher_id, device_id, device_type, is_active, created_at
		FROM students WHERE student_id = $1
	`, key)
	return scanStudent(row)
}

// GetStudent returns a student by row id.
func (r *Repository) GetStudent(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, full_name, class_name, school_id, parent_id, teacher_id, device_id, device_type, is_active, created_at
		FROM students WHERE id = $1
	`, id)
	return scanStudent(row)
}

func scanStudent(row *sql.Row) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.StudentKey, &s.FullName, &s.ClassName, &s.SchoolID, &s.ParentID, &s.TeacherID, &s.DeviceID, &s.DeviceType, &s.IsActive, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, fmt.Errorf("student: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return Student{}, err
	}
	return s, nil
}

// ListStudents returns students visible to the caller: parents see their
// children, teachers their students, admins everyone.
func (r *Repository) ListStudents(ctx context.Context, role, userID string, limit, offset int) ([]Student, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, student_id, full_name, class_name, school_id, parent_id, teacher_id, device_id, device_type, is_active, created_at FROM students`
	args := []any{}
	switch role {
	case RoleParent:
		query += " WHERE parent_id = $1"
		args = append(args, userID)
	case RoleTeacher:
		query += " WHERE teacher_id = $1"
		args = append(args, userID)
	}
	query += fmt.Sprintf(" ORDER BY student_id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.StudentKey, &s.FullName, &s.ClassName, &s.SchoolID, &s.ParentID, &s.TeacherID, &s.DeviceID, &s.DeviceType, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// GetSchool returns a school by id.
func (r *Repository) GetSchool(ctx context.Context, id string) (School, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, address, phone, email, latitude, longitude, created_at
		FROM schools WHERE id = $1
	`, id)
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.Code, &s.Address, &s.Phone, &s.Email, &s.Latitude, &s.Longitude, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return School{}, fmt.Errorf("school: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return School{}, err
	}
	return s, nil
}
