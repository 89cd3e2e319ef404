package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"esalama/internal/auth"
	"esalama/internal/location"
)

func (h *Handler) postLocation(c *gin.Context) {
	var req struct {
		StudentID string    `json:"student_id" binding:"required"`
		Latitude  *float64  `json:"latitude" binding:"required"`
		Longitude *float64  `json:"longitude" binding:"required"`
		Accuracy  *float64  `json:"accuracy"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	ping, err := h.location.Record(c.Request.Context(), req.StudentID, location.Fix{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ping)
}

func (h *Handler) lastLocation(c *gin.Context) {
	claims := auth.FromContext(c)
	ping, err := h.location.Last(c.Request.Context(), claims.Role, claims.Subject, c.Param("student_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ping)
}

func (h *Handler) locationHistory(c *gin.Context) {
	claims := auth.FromContext(c)
	limit := intQuery(c, "limit", 100)
	pings, err := h.location.History(c.Request.Context(), claims.Role, claims.Subject, c.Param("student_id"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": pings})
}
