package hub

import "time"

// Wire frames for the realtime channel protocol. Every frame carries a
// "type" discriminator and an RFC 3339 UTC timestamp.

func stamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// ConnectionFrame is emitted once on a successful handshake.
func ConnectionFrame(message string) map[string]any {
	return map[string]any{
		"type":      "connection",
		"message":   message,
		"timestamp": stamp(),
	}
}

// PongFrame answers an inbound "ping" liveness probe.
func PongFrame() map[string]any {
	return map[string]any{
		"type":      "pong",
		"timestamp": stamp(),
	}
}

// LocationFrame carries one location update for a student.
func LocationFrame(studentKey string, lat, lng float64, accuracy *float64) map[string]any {
	return map[string]any{
		"type":       "location_update",
		"student_id": studentKey,
		"latitude":   lat,
		"longitude":  lng,
		"accuracy":   accuracy,
		"timestamp":  stamp(),
	}
}

// NotificationFrame carries one notification for a user.
func NotificationFrame(notificationType, message string, data map[string]any) map[string]any {
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"type":              "notification",
		"notification_type": notificationType,
		"message":           message,
		"data":              data,
		"timestamp":         stamp(),
	}
}
