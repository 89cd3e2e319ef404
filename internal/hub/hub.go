// Package hub is the realtime fan-out layer: it keeps the mapping from
// subject keys to live channels and pushes events to every channel
// subscribed to a subject. Delivery is best-effort and at-most-once per
// channel; subscribers reconcile missed events from persisted state.
package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"esalama/internal/metrics"
)

// Topic is one of the two independent event categories.
type Topic string

const (
	TopicLocation     Topic = "location"     // subject = student id
	TopicNotification Topic = "notification" // subject = user id
)

// sessionBuffer bounds the per-session outbound stream. A session that
// cannot drain this many frames is considered stalled and is dropped.
const sessionBuffer = 16

// Session is one live channel bound to a single subject.
type Session struct {
	topic   Topic
	subject string

	out  chan []byte
	done chan struct{}
	once sync.Once
}

// Out is the ordered outbound frame stream for this session.
func (s *Session) Out() <-chan []byte { return s.out }

// Done is closed when the session is removed from the hub.
func (s *Session) Done() <-chan struct{} { return s.done }

// Subject returns the subject key the session is bound to.
func (s *Session) Subject() string { return s.subject }

// Send enqueues a frame on the session's outbound stream. It reports
// false when the session is closed or its buffer is full; the caller is
// expected to treat that as a dead channel.
func (s *Session) Send(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// SendJSON marshals v and enqueues it.
func (s *Session) SendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return s.Send(data)
}

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

// subjectEntry owns the channel set for one subject. Its mutex serializes
// connect, disconnect and publish iteration for that subject only;
// publishes to different subjects never share it.
type subjectEntry struct {
	mu       sync.Mutex
	sessions []*Session
}

// Hub owns the per-topic subject registries. It is created at process
// start, injected into the write paths, and torn down at shutdown.
type Hub struct {
	mu     sync.RWMutex
	topics map[Topic]map[string]*subjectEntry
	closed bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		topics: map[Topic]map[string]*subjectEntry{
			TopicLocation:     {},
			TopicNotification: {},
		},
	}
}

// Connect registers a new channel under the subject's set. A subject may
// hold any number of concurrent channels.
func (h *Hub) Connect(topic Topic, subject string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("hub is shut down")
	}
	subjects, ok := h.topics[topic]
	if !ok {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}

	s := &Session{
		topic:   topic,
		subject: subject,
		out:     make(chan []byte, sessionBuffer),
		done:    make(chan struct{}),
	}
	entry, ok := subjects[subject]
	if !ok {
		entry = &subjectEntry{}
		subjects[subject] = entry
	}
	entry.mu.Lock()
	entry.sessions = append(entry.sessions, s)
	entry.mu.Unlock()

	metrics.HubSessions.WithLabelValues(string(topic)).Inc()
	return s, nil
}

// Disconnect removes exactly that session from its subject's set. Empty
// subject entries are deleted so the registry does not accumulate them.
func (h *Hub) Disconnect(s *Session) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

// removeLocked drops s from its entry; caller holds h.mu for writing.
func (h *Hub) removeLocked(s *Session) {
	subjects, ok := h.topics[s.topic]
	if !ok {
		return
	}
	entry, ok := subjects[s.subject]
	if !ok {
		s.close()
		return
	}
	entry.mu.Lock()
	removed := false
	for i, cur := range entry.sessions {
		if cur == s {
			entry.sessions = append(entry.sessions[:i], entry.sessions[i+1:]...)
			removed = true
			break
		}
	}
	empty := len(entry.sessions) == 0
	entry.mu.Unlock()

	if empty {
		delete(subjects, s.subject)
	}
	s.close()
	if removed {
		metrics.HubSessions.WithLabelValues(string(s.topic)).Dec()
	}
}

// Publish delivers event to every channel currently registered for the
// subject, in invocation order per subject. A channel whose send fails is
// removed from the set without affecting delivery to its siblings.
// Publishing to a subject with no channels is a no-op.
func (h *Hub) Publish(topic Topic, subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	metrics.HubPublished.WithLabelValues(string(topic)).Inc()

	h.mu.RLock()
	subjects, ok := h.topics[topic]
	if !ok {
		h.mu.RUnlock()
		return
	}
	entry, ok := subjects[subject]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var dead []*Session
	entry.mu.Lock()
	for _, s := range entry.sessions {
		if !s.Send(data) {
			dead = append(dead, s)
		}
	}
	entry.mu.Unlock()

	for _, s := range dead {
		metrics.HubDropped.WithLabelValues(string(topic)).Inc()
		h.Disconnect(s)
	}
}

// Close drains the hub: every session is closed and all registries
// cleared. Connect fails afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for topic, subjects := range h.topics {
		for subject, entry := range subjects {
			entry.mu.Lock()
			for _, s := range entry.sessions {
				s.close()
				metrics.HubSessions.WithLabelValues(string(topic)).Dec()
			}
			entry.sessions = nil
			entry.mu.Unlock()
			delete(subjects, subject)
		}
	}
}
