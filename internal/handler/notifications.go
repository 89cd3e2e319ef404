package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"esalama/internal/auth"
)

func (h *Handler) sendNotification(c *gin.Context) {
	var req struct {
		StudentID     string `json:"student_id" binding:"required"`
		RecipientRole string `json:"recipient_role" binding:"required"`
		Type          string `json:"type" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.notify.Send(c.Request.Context(), req.StudentID, req.RecipientRole, req.Type, req.Message); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "sent"})
}

func (h *Handler) listNotifications(c *gin.Context) {
	claims := auth.FromContext(c)
	unreadOnly := c.Query("unread") == "true"
	records, err := h.notify.List(c.Request.Context(), claims.Subject, c.Query("student_id"), unreadOnly)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	claims := auth.FromContext(c)
	if err := h.notify.MarkRead(c.Request.Context(), c.Param("id"), claims.Subject); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
