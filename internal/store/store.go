// Package store holds the in-memory detection collection shared by every
// producer (live feed, synthetic generator) and consumer (HTTP API, push hub,
// Kafka publisher) of a session.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
)

// DefaultActiveWindow is the recency window used when ActiveSubset is called
// with a zero window.
const DefaultActiveWindow = 15 * time.Minute

// Subscriber is called once per successful insert.
type Subscriber func(d domain.Detection)

// Store is an ordered, unique collection of detections. Entries are kept in
// descending timestamp order; equal timestamps keep arrival order. The zero
// value is not usable; call New.
type Store struct {
	mu          sync.RWMutex
	detections  []domain.Detection
	ids         map[string]struct{}
	subscribers map[int]Subscriber
	nextSubID   int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ids:         make(map[string]struct{}),
		subscribers: make(map[int]Subscriber),
	}
}

// Insert adds d at its position in timestamp order. It returns
// domain.ErrDuplicateEventID and leaves the store unchanged when an entry with
// the same event ID is already present. Subscribers are notified after the
// write lock is released.
func (s *Store) Insert(d domain.Detection) error {
	s.mu.Lock()
	if _, ok := s.ids[d.EventID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDuplicateEventID, d.EventID)
	}

	ms := d.Millis()
	// First index whose timestamp is strictly older than d.
	i := sort.Search(len(s.detections), func(i int) bool {
		return s.detections[i].Millis() < ms
	})
	s.detections = append(s.detections, domain.Detection{})
	copy(s.detections[i+1:], s.detections[i:])
	s.detections[i] = d
	s.ids[d.EventID] = struct{}{}

	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(d)
	}
	return nil
}

// Query returns the detections matching f in store order. The result is a
// copy and may be modified by the caller.
func (s *Store) Query(f domain.Filter) []domain.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Detection, 0, len(s.detections))
	for _, d := range s.detections {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// ActiveSubset returns the detections matching f whose timestamp lies in
// (now-window, now] at millisecond resolution. A zero window means
// DefaultActiveWindow.
func (s *Store) ActiveSubset(f domain.Filter, now time.Time, window time.Duration) []domain.Detection {
	if window <= 0 {
		window = DefaultActiveWindow
	}
	upper := now.UnixMilli()
	lower := upper - window.Milliseconds()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Detection, 0)
	for _, d := range s.detections {
		ms := d.Millis()
		if ms > upper {
			continue
		}
		if ms <= lower {
			// Descending order: nothing further can be inside the window.
			break
		}
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// StatsBySeverity counts the detections matching f per severity.
func (s *Store) StatsBySeverity(f domain.Filter) domain.SeverityStats {
	stats := domain.NewSeverityStats()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.detections {
		if !f.Matches(d) {
			continue
		}
		stats.Counts[d.Severity]++
		stats.Total++
	}
	return stats
}

// Get returns the detection with the given event ID.
func (s *Store) Get(eventID string) (domain.Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.ids[eventID]; !ok {
		return domain.Detection{}, false
	}
	for _, d := range s.detections {
		if d.EventID == eventID {
			return d, true
		}
	}
	return domain.Detection{}, false
}

// Len returns the number of stored detections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.detections)
}

// Subscribe registers fn for insert notifications and returns a function
// that removes the registration. Subscribers run on the inserting goroutine
// and must not block.
func (s *Store) Subscribe(fn Subscriber) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}
