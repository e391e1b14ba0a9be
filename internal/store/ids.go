package store

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// IDSource yields provisional client-side identifiers for cart lines created
// locally before the backend has assigned an authoritative id. The ids are
// derived from the current millisecond with a random tie-breaker so two adds
// in the same millisecond do not collide within a session. They are replaced
// by the backend's ids on the next full cart reload.
type IDSource interface {
	NextID() int64
	NextOrderNumber() string
}

type clockIDSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewIDSource returns the default clock-and-random id source.
func NewIDSource() IDSource {
	return &clockIDSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

func (s *clockIDSource) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().UnixMilli()*1000 + s.rng.Int63n(1000)
}

// NextOrderNumber builds a human-displayable order number. It is unique
// within a session, not globally; the backend remains the final arbiter of
// order identity.
func (s *clockIDSource) NextOrderNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("PO%d%03d", s.now().UnixMilli(), s.rng.Int63n(1000))
}
