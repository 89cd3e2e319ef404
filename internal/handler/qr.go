package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esalama/internal/qrtoken"
)

func (h *Handler) generateQR(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
		Type      string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir, err := qrtoken.ParseDirection(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be arrival or departure"})
		return
	}

	issued, err := h.tokens.Issue(c.Request.Context(), req.StudentID, dir)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issued)
}

func (h *Handler) validateQR(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.tokens.Validate(c.Request.Context(), req.Token)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "valid",
		"student_id":   info.StudentKey,
		"student_name": info.StudentName,
		"type":         info.Direction,
	})
}
