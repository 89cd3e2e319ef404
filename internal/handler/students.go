package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esalama/internal/audit"
	"esalama/internal/auth"
	"esalama/internal/directory"
)

func (h *Handler) createStudent(c *gin.Context) {
	var req struct {
		StudentKey string  `json:"student_id" binding:"required"`
		FullName   string  `json:"full_name" binding:"required"`
		ClassName  *string `json:"class_name"`
		SchoolID   *string `json:"school_id"`
		ParentID   *string `json:"parent_id"`
		TeacherID  *string `json:"teacher_id"`
		DeviceID   *string `json:"device_id"`
		DeviceType *string `json:"device_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, err := h.dir.CreateStudent(c.Request.Context(), directory.Student{
		StudentKey: req.StudentKey,
		FullName:   req.FullName,
		ClassName:  req.ClassName,
		SchoolID:   req.SchoolID,
		ParentID:   req.ParentID,
		TeacherID:  req.TeacherID,
		DeviceID:   req.DeviceID,
		DeviceType: req.DeviceType,
		IsActive:   true,
	})
	if err != nil {
		fail(c, err)
		return
	}

	claims := auth.FromContext(c)
	h.record(c, audit.Entry{
		UserID:       &claims.Subject,
		Action:       "student.create",
		ResourceType: strptr("student"),
		ResourceID:   &student.StudentKey,
	})
	c.JSON(http.StatusCreated, student)
}

func (h *Handler) getStudent(c *gin.Context) {
	claims := auth.FromContext(c)
	student, err := h.dir.GetStudentByKey(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := directory.CanViewStudent(claims.Role, claims.Subject, student); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h *Handler) getSchool(c *gin.Context) {
	school, err := h.dir.GetSchool(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, school)
}

func (h *Handler) listStudents(c *gin.Context) {
	claims := auth.FromContext(c)
	limit, offset := intQuery(c, "limit", 50), intQuery(c, "offset", 0)
	students, err := h.dir.ListStudents(c.Request.Context(), claims.Role, claims.Subject, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}
