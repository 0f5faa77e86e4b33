package presence

import (
	"context"
	"sync"
)

// Store tracks which doctors currently hold at least one live connection.
// A doctor may be connected from several tabs or devices; the store counts
// connections so online/offline transitions fire only on the first and last.
type Store interface {
	// MarkOnline records a new connection and reports whether it is the
	// doctor's first one (i.e. a doctorOnline broadcast is due).
	MarkOnline(ctx context.Context, doctorID string) (first bool, err error)
	// MarkOffline records a closed connection and reports whether it was the
	// doctor's last one.
	MarkOffline(ctx context.Context, doctorID string) (last bool, err error)
	IsOnline(ctx context.Context, doctorID string) (bool, error)
	OnlineDoctors(ctx context.Context) ([]string, error)
	Close() error
}

// memoryStore is the single-instance default.
type memoryStore struct {
	mu    sync.Mutex
	conns map[string]int
}

func NewMemoryStore() Store {
	return &memoryStore{conns: make(map[string]int)}
}

func (s *memoryStore) MarkOnline(_ context.Context, doctorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[doctorID]++
	return s.conns[doctorID] == 1, nil
}

func (s *memoryStore) MarkOffline(_ context.Context, doctorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.conns[doctorID]
	if !ok {
		return false, nil
	}
	if n <= 1 {
		delete(s.conns, doctorID)
		return true, nil
	}
	s.conns[doctorID] = n - 1
	return false, nil
}

func (s *memoryStore) IsOnline(_ context.Context, doctorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[doctorID] > 0, nil
}

func (s *memoryStore) OnlineDoctors(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memoryStore) Close() error { return nil }
