package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"esalama/internal/auth"
	"esalama/internal/directory"
	"esalama/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The handshake is already authenticated by the query token; browser
	// clients connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClaims authenticates a websocket handshake. Identity is resolved
// before any subject binding so a bad token never opens a session.
func (h *Handler) wsClaims(c *gin.Context) (auth.Claims, bool) {
	claims, err := auth.Parse(c.Query("token"), h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	if err != nil {
		fail(c, err)
		return auth.Claims{}, false
	}
	return claims, true
}

func (h *Handler) wsLocation(c *gin.Context) {
	claims, ok := h.wsClaims(c)
	if !ok {
		return
	}

	student, err := h.dir.GetStudentByKey(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := directory.CanViewStudent(claims.Role, claims.Subject, student); err != nil {
		fail(c, err)
		return
	}

	h.serveWS(c, hub.TopicLocation, student.StudentKey,
		"connected to location updates for "+student.StudentKey)
}

func (h *Handler) wsNotifications(c *gin.Context) {
	claims, ok := h.wsClaims(c)
	if !ok {
		return
	}
	h.serveWS(c, hub.TopicNotification, claims.Subject, "connected to notifications")
}

func (h *Handler) serveWS(c *gin.Context, topic hub.Topic, subject, greeting string) {
	session, err := h.hub.Connect(topic, subject)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Disconnect(session)
		log.Printf("ws upgrade failed for %s/%s: %v", topic, session.Subject(), err)
		return
	}

	session.SendJSON(hub.ConnectionFrame(greeting))
	hub.Serve(h.hub, session, conn)
}
