// Package geocache persists place-name geocoding results between runs and
// resolves places through that cache before asking a geocoder.
package geocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/cyberattack-map/internal/atomicfile"
	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

// CorruptSuffix is appended to a malformed cache file when it is moved aside.
const CorruptSuffix = ".corrupt"

// Store is a flat place-key → coordinates map backed by a human-editable
// file. A nil value is the unresolvable marker and is written as null.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*domain.Coordinates
}

// Open loads the cache file at path. A missing file yields an empty cache.
// An unreadable or malformed file also yields an empty cache and a warning,
// so a damaged cache never blocks a run. A malformed file is first renamed to
// path+CorruptSuffix so the next Save cannot overwrite hand-edited entries.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]*domain.Coordinates),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		logger.Warn("geocode cache unreadable, starting empty", "path", path, "error", err)
		return s
	}

	entries, err := decode(path, data)
	if err != nil {
		backup := path + CorruptSuffix
		if renameErr := os.Rename(path, backup); renameErr != nil {
			logger.Warn("geocode cache malformed, starting empty", "path", path, "error", err, "rename_error", renameErr)
			return s
		}
		logger.Warn("geocode cache malformed, moved aside and starting empty", "path", path, "backup", backup, "error", err)
		return s
	}
	s.entries = entries
	logger.Debug("geocode cache loaded", "path", path, "entries", len(entries))
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get returns the entry for key. The second value reports whether the key
// is present; a present key with a nil value is the unresolvable marker.
func (s *Store) Get(key string) (*domain.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[key]
	if !ok || c == nil {
		return nil, ok
	}
	cp := *c
	return &cp, true
}

// Put records coordinates for key, or the unresolvable marker when c is nil.
func (s *Store) Put(key string, c *domain.Coordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c != nil {
		cp := *c
		c = &cp
	}
	s.entries[key] = c
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries, markers included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Save writes the whole cache to its file. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := encode(s.path, s.entries)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode geocode cache: %w", err)
	}
	if err := atomicfile.Write(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save geocode cache: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func decode(path string, data []byte) (map[string]*domain.Coordinates, error) {
	entries := make(map[string]*domain.Coordinates)
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	var err error
	if isYAML(path) {
		err = yaml.Unmarshal(data, &entries)
	} else {
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]*domain.Coordinates)
	}
	return entries, nil
}

func encode(path string, entries map[string]*domain.Coordinates) ([]byte, error) {
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
