package cooldown

import (
	"context"
	"sync"
	"time"

	"SpikeWatch/internal/domain/models"
)

// MemoryStore is the in-process cooldown used when Redis is not
// configured. State does not survive restarts.
type MemoryStore struct {
	mu   sync.Mutex
	day  string
	seen map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]bool)}
}

func (s *MemoryStore) Mark(_ context.Context, symbol string, stage models.Stage, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := day.Format("2006-01-02")
	if d != s.day {
		s.day = d
		s.seen = make(map[string]bool)
	}
	key := symbol + ":" + stage.String()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}
