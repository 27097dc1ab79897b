// Package volumes persists the per-symbol volume history as a JSON snapshot
// on disk. Persistence is best effort: the scanner works without it, restarts
// just lose the accumulated baseline.
package volumes

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"bybit-volume-scanner/internal/domain"
)

const defaultDataFile = "volume_data.json"

// Store reads and writes the volume history snapshot file.
type Store struct {
	path string
}

// NewStore creates a snapshot store at the given path.
func NewStore(path string) *Store {
	if path == "" {
		path = defaultDataFile
	}

	return &Store{path: path}
}

// Load reads the persisted history. A missing or empty file yields an empty
// map; a corrupt file is an error the caller may downgrade to a fresh start.
func (s *Store) Load() (map[string][]domain.Sample, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]domain.Sample{}, nil
		}

		return nil, errors.Wrap(err, "read volume history")
	}

	if len(payload) == 0 {
		return map[string][]domain.Sample{}, nil
	}

	var history map[string][]domain.Sample
	if err := json.Unmarshal(payload, &history); err != nil {
		return nil, errors.Wrap(err, "decode volume history")
	}

	if history == nil {
		history = map[string][]domain.Sample{}
	}

	return history, nil
}

// Save writes the history to disk atomically via temp file.
func (s *Store) Save(history map[string][]domain.Sample) error {
	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode volume history")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create volume history dir")
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write volume history temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist volume history")
	}

	return nil
}
