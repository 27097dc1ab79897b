package scanner

import (
	"sync"
	"time"

	"bybit-volume-scanner/internal/domain"
)

// VolumeStore keeps the rolling per-symbol volume history. It is shared
// between the scan loop and the HTTP control surface, so every access goes
// through the lock. Histories are mutated only by append-then-prune.
type VolumeStore struct {
	mu      sync.RWMutex
	history map[string][]domain.Sample
}

// NewVolumeStore creates an empty store.
func NewVolumeStore() *VolumeStore {
	return &VolumeStore{history: make(map[string][]domain.Sample)}
}

// Update appends a sample for the symbol and prunes everything older than
// now-window. Samples sharing the same instant are permitted, e.g. from
// rapid rescans.
func (s *VolumeStore) Update(symbol string, volume float64, now time.Time, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := append(s.history[symbol], domain.Sample{Timestamp: now, Volume: volume})

	cutoff := now.Add(-window)
	kept := samples[:0]
	for _, sample := range samples {
		if sample.Timestamp.After(cutoff) {
			kept = append(kept, sample)
		}
	}

	s.history[symbol] = kept
}

// History returns a copy of the symbol's samples, oldest first.
// The second return value is false when the symbol is not tracked.
func (s *VolumeStore) History(symbol string) ([]domain.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples, ok := s.history[symbol]
	if !ok {
		return nil, false
	}

	out := make([]domain.Sample, len(samples))
	copy(out, samples)

	return out, true
}

// Symbols returns all tracked symbols in unspecified order.
func (s *VolumeStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.history))
	for symbol := range s.history {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// Len returns the number of tracked symbols.
func (s *VolumeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.history)
}

// Reset drops all histories.
func (s *VolumeStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make(map[string][]domain.Sample)
}

// Snapshot returns a deep copy of the full history map for persistence.
func (s *VolumeStore) Snapshot() map[string][]domain.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string][]domain.Sample, len(s.history))
	for symbol, samples := range s.history {
		out := make([]domain.Sample, len(samples))
		copy(out, samples)
		snapshot[symbol] = out
	}

	return snapshot
}

// Restore replaces the store contents with a previously persisted snapshot.
func (s *VolumeStore) Restore(snapshot map[string][]domain.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make(map[string][]domain.Sample, len(snapshot))
	for symbol, samples := range snapshot {
		out := make([]domain.Sample, len(samples))
		copy(out, samples)
		s.history[symbol] = out
	}
}
