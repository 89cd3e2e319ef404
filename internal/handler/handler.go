// Package handler holds the HTTP and websocket route handlers.
package handler

import (
	"log"

	"github.com/gin-gonic/gin"

	"esalama/internal/apperr"
	"esalama/internal/attendance"
	"esalama/internal/audit"
	"esalama/internal/auth"
	"esalama/internal/config"
	"esalama/internal/directory"
	"esalama/internal/hub"
	"esalama/internal/location"
	"esalama/internal/notify"
	"esalama/internal/qrtoken"
)

// Handler bundles the services behind the API surface.
type Handler struct {
	cfg        config.App
	dir        *directory.Repository
	tokens     *qrtoken.Service
	attendance *attendance.Service
	location   *location.Service
	notify     *notify.Service
	trail      *audit.Recorder
	hub        *hub.Hub
}

// New creates a handler.
func New(
	cfg config.App,
	dir *directory.Repository,
	tokens *qrtoken.Service,
	att *attendance.Service,
	loc *location.Service,
	ntf *notify.Service,
	trail *audit.Recorder,
	h *hub.Hub,
) *Handler {
	return &Handler{
		cfg:        cfg,
		dir:        dir,
		tokens:     tokens,
		attendance: att,
		location:   loc,
		notify:     ntf,
		trail:      trail,
		hub:        h,
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	v1.POST("/auth/login", h.login)
	v1.POST("/auth/register", h.register)

	authed := v1.Group("", auth.UserAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	authed.GET("/auth/me", h.me)

	authed.POST("/qr/generate",
		auth.RequireRole(directory.RoleParent, directory.RoleTeacher, directory.RoleAdmin, directory.RoleSystemAdmin),
		h.generateQR)
	authed.POST("/qr/validate",
		auth.RequireRole(directory.RoleGateScanner, directory.RoleAdmin, directory.RoleSystemAdmin),
		h.validateQR)

	authed.POST("/attendance",
		auth.RequireRole(directory.RoleGateScanner, directory.RoleAdmin, directory.RoleSystemAdmin),
		h.recordAttendance)
	authed.GET("/attendance", h.listAttendance)

	authed.POST("/location", h.postLocation)
	authed.GET("/location/:student_id/last", h.lastLocation)
	authed.GET("/location/:student_id/history", h.locationHistory)

	authed.POST("/notifications",
		auth.RequireRole(directory.RoleAdmin, directory.RoleSystemAdmin, directory.RoleGateScanner),
		h.sendNotification)
	authed.GET("/notifications", h.listNotifications)
	authed.PUT("/notifications/:id/read", h.markNotificationRead)

	authed.GET("/audit-logs",
		auth.RequireRole(directory.RoleAdmin, directory.RoleSystemAdmin),
		h.listAuditLogs)

	authed.POST("/students",
		auth.RequireRole(directory.RoleAdmin, directory.RoleSystemAdmin),
		h.createStudent)
	authed.GET("/students", h.listStudents)
	authed.GET("/students/:student_id", h.getStudent)
	authed.GET("/schools/:id", h.getSchool)

	// Websocket handshakes authenticate via query token; the browser
	// websocket API cannot set headers.
	v1.GET("/ws/location/:student_id", h.wsLocation)
	v1.GET("/ws/notifications", h.wsNotifications)
}

// fail writes the error with its taxonomy status.
func fail(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
}

// record appends an audit entry, stamping the client IP. Audit failures
// never fail the request that triggered them.
func (h *Handler) record(c *gin.Context, e audit.Entry) {
	if h.trail == nil {
		return
	}
	if ip := c.ClientIP(); ip != "" {
		e.IPAddress = &ip
	}
	if err := h.trail.Record(c.Request.Context(), e); err != nil {
		log.Printf("audit %s failed: %v", e.Action, err)
	}
}

func strptr(s string) *string { return &s }
