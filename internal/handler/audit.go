package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"esalama/internal/audit"
)

func (h *Handler) listAuditLogs(c *gin.Context) {
	f := audit.Filter{
		UserID:       c.Query("user_id"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Limit:        intQuery(c, "limit", 100),
		Offset:       intQuery(c, "offset", 0),
	}
	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
			return
		}
		f.Start = &parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
			return
		}
		f.End = &parsed
	}

	entries, err := h.trail.Query(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": entries})
}
