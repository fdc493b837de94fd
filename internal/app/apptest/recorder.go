// Package apptest provides test doubles for the app package.
package apptest

import (
	"sort"
	"sync"
	"time"

	"live-trivia-service/internal/domain"
)

// Delivery is one recorded Publish or Send call. Recipients lists the
// connections that would have received it.
type Delivery struct {
	SessionID  string
	ConnID     string
	Recipients []string
	Event      domain.Event
}

// Recorder is an in-memory app.Broadcaster that remembers everything it was
// asked to deliver.
type Recorder struct {
	mu         sync.Mutex
	rooms      map[string]map[string]struct{}
	deliveries []Delivery
}

func NewRecorder() *Recorder {
	return &Recorder{rooms: make(map[string]map[string]struct{})}
}

func (r *Recorder) Join(sessionID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[sessionID] == nil {
		r.rooms[sessionID] = make(map[string]struct{})
	}
	r.rooms[sessionID][connID] = struct{}{}
}

func (r *Recorder) Leave(sessionID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms[sessionID], connID)
}

func (r *Recorder) Close(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, sessionID)
}

func (r *Recorder) Publish(sessionID string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{SessionID: sessionID, Recipients: r.membersLocked(sessionID), Event: event})
}

func (r *Recorder) Send(connID string, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{ConnID: connID, Recipients: []string{connID}, Event: event})
}

// Members returns the connections currently joined to a session room.
func (r *Recorder) Members(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.membersLocked(sessionID)
}

// Deliveries returns every delivery of the given type, in order.
func (r *Recorder) Deliveries(typ domain.EventType) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Delivery
	for _, d := range r.deliveries {
		if d.Event.Type == typ {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many deliveries of the given type were recorded.
func (r *Recorder) Count(typ domain.EventType) int {
	return len(r.Deliveries(typ))
}

// SentTo returns the events of the given type addressed directly to connID.
func (r *Recorder) SentTo(connID string, typ domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, d := range r.deliveries {
		if d.ConnID == connID && d.Event.Type == typ {
			out = append(out, d.Event)
		}
	}
	return out
}

// Wait blocks until at least n deliveries of typ exist or the timeout passes,
// and returns them.
func (r *Recorder) Wait(typ domain.EventType, n int, timeout time.Duration) ([]Delivery, bool) {
	deadline := time.Now().Add(timeout)
	for {
		got := r.Deliveries(typ)
		if len(got) >= n {
			return got, true
		}
		if time.Now().After(deadline) {
			return got, false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (r *Recorder) membersLocked(sessionID string) []string {
	members := make([]string, 0, len(r.rooms[sessionID]))
	for connID := range r.rooms[sessionID] {
		members = append(members, connID)
	}
	sort.Strings(members)
	return members
}
