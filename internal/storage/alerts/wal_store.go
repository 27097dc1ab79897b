// Package alerts persists emitted volume spike alerts in a WAL so the
// dashboard can stream them and restarts keep the recent alert feed.
package alerts

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"bybit-volume-scanner/internal/domain"
)

const (
	defaultAlertDir   = "./wal/alerts"
	alertSegmentLimit = 100
	alertMaxSegments  = 10
	alertKeyPrefix    = "alert_"
)

// WALStore persists alerts in a WAL for recovery/streaming purposes.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed alert store under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultAlertDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "alert_",
		SegmentThreshold: alertSegmentLimit,
		MaxSegments:      alertMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init alert WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends the alert to the WAL.
func (s *WALStore) Save(alert domain.Alert) error {
	if s == nil || s.wal == nil {
		return errors.New("alert store is not initialized")
	}
	if alert.Symbol == "" {
		return errors.New("alert symbol is required")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "marshal alert")
	}

	key := fmt.Sprintf("%s%s", alertKeyPrefix, alert.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all alerts written after the provided WAL index.
func (s *WALStore) EventsAfter(index uint64) ([]domain.AlertRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("alert store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.AlertRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, alertKeyPrefix) {
			continue
		}

		var alert domain.Alert
		if err := json.Unmarshal(payload, &alert); err != nil {
			return nil, errors.Wrap(err, "decode alert")
		}

		records = append(records, domain.AlertRecord{
			Index: idx,
			Alert: alert,
		})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("alert store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
