package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// store reads and writes one directory of JSON records.
type store struct {
	mu  sync.RWMutex
	dir string
}

func newStore(root, kind string) *store {
	return &store{dir: filepath.Join(root, kind)}
}

func (s *store) path(id string) string {
	return filepath.Clean(filepath.Join(s.dir, filepath.Base(id)+".json"))
}

func (s *store) write(id string, record any) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	if err := os.WriteFile(s.path(id), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}

	return nil
}

// read returns false when the record does not exist.
func (s *store) read(id string, record any) (bool, error) {
	body, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", id, err)
	}

	if err := json.Unmarshal(body, record); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}

	return true, nil
}

func (s *store) remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}

	return nil
}

func (s *store) ids() ([]string, error) {
	matches, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.TrimSuffix(match, ".json"))
	}

	return ids, nil
}

// scan decodes every record in the directory, keeping those accepted by keep.
func scan[T any](s *store, keep func(*T) bool) ([]*T, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))

	for _, id := range ids {
		var record T

		found, err := s.read(id, &record)
		if err != nil {
			return nil, err
		}

		if found && (keep == nil || keep(&record)) {
			out = append(out, &record)
		}
	}

	return out, nil
}
