package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512
)

// Serve bridges a websocket connection to a hub session and blocks until
// either side goes away. The session is disconnected from the hub before
// Serve returns, so an abrupt client drop cleans up every reference to
// the channel.
//
// The write pump is the only writer on the connection: published events,
// application-level pongs and the hello frame all flow through the
// session's outbound stream in enqueue order.
func Serve(h *Hub, s *Session, conn *websocket.Conn) {
	defer func() {
		h.Disconnect(s)
		conn.Close()
	}()

	go writePump(s, conn)
	readPump(s, conn)
}

// readPump consumes inbound client messages. The only inbound message in
// the protocol is the "ping" liveness probe, answered with a pong frame
// on the outbound stream.
func readPump(s *Session, conn *websocket.Conn) {
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType == websocket.TextMessage && string(data) == "ping" {
			s.SendJSON(PongFrame())
		}
	}
}

// writePump drains the session's outbound stream onto the wire and keeps
// the connection alive with protocol-level pings.
func writePump(s *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-s.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-s.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
