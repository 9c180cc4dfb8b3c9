// Package catalog owns the persisted list of conference events. The list is
// kept in memory, guarded by a mutex, and written to a JSON file on every
// change. Queries never touch the disk.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/logging"
)

type Store struct {
	path     string
	seedFile string

	mu     sync.RWMutex
	events []domain.Event
}

type Option func(*Store)

// WithSeedFile copies seed into place when the data file does not exist yet,
// for deployments that serve from a writable scratch directory.
func WithSeedFile(seed string) Option {
	return func(s *Store) { s.seedFile = seed }
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the data file, recomputes every id, drops duplicates and writes
// the cleaned list back. A missing file yields an empty catalog. On any error
// the previous in-memory list is kept.
//
// The id/dedupe pass repairs files written before ids were stable; it is a
// migration shim and is a no-op on files this package wrote.
func (s *Store) Load() error {
	if err := s.seed(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.events = nil
		s.mu.Unlock()
		logging.Info("no catalog file, starting empty", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	var events []domain.Event
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &events); err != nil {
			return fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
		}
	}

	for i := range events {
		events[i].RefreshID()
	}
	cleaned := Dedupe(events)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(cleaned); err != nil {
		return err
	}
	s.events = cleaned

	logging.Info("catalog loaded", "path", s.path, "events", len(cleaned), "dropped", len(events)-len(cleaned))
	return nil
}

func (s *Store) seed() error {
	if s.seedFile == "" {
		return nil
	}
	if _, err := os.Stat(s.path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	data, err := os.ReadFile(s.seedFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seed catalog: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to copy seed catalog: %w", err)
	}
	logging.Info("catalog seeded", "from", s.seedFile, "to", s.path)
	return nil
}

// Dedupe keeps one event per id. An event with coordinates replaces one
// without; otherwise the later event replaces the earlier. Survivors keep
// the position of the first event seen with their id.
func Dedupe(events []domain.Event) []domain.Event {
	pos := make(map[string]int, len(events))
	out := make([]domain.Event, 0, len(events))

	for _, e := range events {
		i, seen := pos[e.ID]
		if !seen {
			pos[e.ID] = len(out)
			out = append(out, e)
			continue
		}
		if out[i].HasCoordinates() && !e.HasCoordinates() {
			continue
		}
		out[i] = e
	}
	return out
}

// Save writes the current list to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.events)
}

// Replace swaps the whole catalog for events. The in-memory list only
// changes once the file has been written.
func (s *Store) Replace(events []domain.Event) error {
	next := make([]domain.Event, len(events))
	copy(next, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(next); err != nil {
		return err
	}
	s.events = next
	return nil
}

// write must be called with mu held.
func (s *Store) write(events []domain.Event) error {
	if events == nil {
		events = []domain.Event{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	if err := writeAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path, so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// All returns a copy of every event in catalog order.
func (s *Store) All() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Find(id string) (domain.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
