package qrtoken

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"esalama/internal/apperr"
)

// Direction is the semantic type of an attendance event.
type Direction string

const (
	Arrival   Direction = "arrival"
	Departure Direction = "departure"
)

// ParseDirection validates a wire-level direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Arrival, Departure:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q: %w", s, apperr.ErrInvalidToken)
}

// Token is a single-use, time-boxed authorization for one attendance event.
// Rows are never deleted; a consumed or expired token is permanently inert.
type Token struct {
	ID        string
	StudentID string
	Direction Direction
	Consumed  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// newIdentifier returns 32 bytes of randomness, base64url without padding.
func newIdentifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EncodePayload builds the scannable payload triple.
// Wire format: "<student_id>|<arrival|departure>|<token>".
func EncodePayload(studentKey string, dir Direction, token string) string {
	return studentKey + "|" + string(dir) + "|" + token
}

// ParsePayload splits a scanned payload into its three fields.
func ParsePayload(payload string) (studentKey string, dir Direction, token string, err error) {
	parts := strings.SplitN(payload, "|", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed QR payload: %w", apperr.ErrInvalidToken)
	}
	dir, err = ParseDirection(parts[1])
	if err != nil {
		return "", "", "", err
	}
	return parts[0], dir, parts[2], nil
}
