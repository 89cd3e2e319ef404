package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"esalama/internal/attendance"
	"esalama/internal/auth"
	"esalama/internal/qrtoken"
)

func (h *Handler) recordAttendance(c *gin.Context) {
	var req struct {
		// Either the raw scanned payload or the separated triple.
		Payload   string    `json:"payload"`
		StudentID string    `json:"student_id"`
		Type      string    `json:"type"`
		Token     string    `json:"qr_code_token"`
		Timestamp time.Time `json:"timestamp"`
		ScannerID string    `json:"scanner_id"`
		Location  *struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dir qrtoken.Direction
	if req.Payload != "" {
		var err error
		req.StudentID, dir, req.Token, err = qrtoken.ParsePayload(req.Payload)
		if err != nil {
			fail(c, err)
			return
		}
	} else {
		if req.StudentID == "" || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload or student_id, type and qr_code_token required"})
			return
		}
		var err error
		dir, err = qrtoken.ParseDirection(req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be arrival or departure"})
			return
		}
	}

	scan := attendance.Scan{
		StudentKey: req.StudentID,
		Direction:  dir,
		Token:      req.Token,
		Timestamp:  req.Timestamp,
		ScannerID:  req.ScannerID,
	}
	if req.Location != nil {
		scan.Latitude = &req.Location.Lat
		scan.Longitude = &req.Location.Lng
	}
	if scan.ScannerID == "" {
		scan.ScannerID = auth.FromContext(c).Subject
	}

	evt, err := h.attendance.RecordScan(c.Request.Context(), scan)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

func (h *Handler) listAttendance(c *gin.Context) {
	claims := auth.FromContext(c)

	var day *time.Time
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = &parsed
	}
	limit, offset := intQuery(c, "limit", 50), intQuery(c, "offset", 0)

	events, err := h.attendance.List(c.Request.Context(), claims.Role, claims.Subject, c.Query("student_id"), day, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": events})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
