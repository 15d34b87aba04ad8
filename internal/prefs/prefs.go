// Package prefs persists per-product viewer preferences as small JSON
// files, one per key.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Faultbox/modelview/internal/logger"
)

// KeyPrefix starts every preference key.
const KeyPrefix = "3d-viewer-"

// Sensitivity holds the orbit and dolly multipliers.
type Sensitivity struct {
	Rotation float64 `json:"rotation"`
	Zoom     float64 `json:"zoom"`
}

// Key returns the storage key for a product. Whitespace runs in the
// lowercased name become single hyphens; an empty name maps to the shared
// "sensitivity" key.
func Key(productName string) string {
	token := strings.Join(strings.FieldsFunc(cases.Lower(language.Und).String(productName), unicode.IsSpace), "-")
	if token == "" {
		token = "sensitivity"
	}
	return KeyPrefix + token
}

// Store is a directory of JSON records guarded by a mutex. Writes replace
// a record whole. Background writes go through a single writer that keeps
// only the newest value per key.
type Store struct {
	dir string

	mu sync.Mutex // guards files

	qmu     sync.Mutex
	queued  map[string]Sensitivity
	writing bool
	pending sync.WaitGroup
}

// NewStore opens a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("prefs: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefs: create dir: %w", err)
	}
	return &Store{dir: dir, queued: make(map[string]Sensitivity)}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.dir, safe+".json")
}

// Get reads the record for key. Missing or malformed records report false.
func (s *Store) Get(key string) (Sensitivity, bool) {
	s.qmu.Lock()
	v, ok := s.queued[key]
	s.qmu.Unlock()
	if ok {
		return v, true
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path(key))
	s.mu.Unlock()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read preferences", zap.String("key", key), zap.Error(err))
		}
		return Sensitivity{}, false
	}

	if err := json.Unmarshal(data, &v); err != nil {
		logger.Debug("ignoring malformed preferences", zap.String("key", key), zap.Error(err))
		return Sensitivity{}, false
	}
	if !finitePositive(v.Rotation) || !finitePositive(v.Zoom) {
		logger.Debug("ignoring out-of-range preferences", zap.String("key", key))
		return Sensitivity{}, false
	}
	return v, true
}

// Put writes the record for key, superseding any queued background write.
func (s *Store) Put(key string, v Sensitivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qmu.Lock()
	delete(s.queued, key)
	s.qmu.Unlock()
	return s.write(key, v)
}

// write replaces the record file. s.mu must be held.
func (s *Store) write(key string, v Sensitivity) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("prefs: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("prefs: replace: %w", err)
	}
	return nil
}

// PutAsync queues a background write. A newer value for the same key
// replaces one that has not been written yet. Failures are logged and
// dropped.
func (s *Store) PutAsync(key string, v Sensitivity) {
	if !finitePositive(v.Rotation) || !finitePositive(v.Zoom) {
		logger.Debug("ignoring out-of-range preferences", zap.String("key", key))
		return
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.queued[key] = v
	if s.writing {
		return
	}
	s.writing = true
	s.pending.Add(1)
	go s.flush()
}

// flush writes queued records until the queue is empty. A value is picked
// and written under s.mu so a concurrent Put is never overwritten by an
// older queued value.
func (s *Store) flush() {
	defer s.pending.Done()
	for s.flushOne() {
	}
}

func (s *Store) flushOne() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.qmu.Lock()
	var (
		key   string
		v     Sensitivity
		found bool
	)
	for k, q := range s.queued {
		key, v, found = k, q, true
		break
	}
	if !found {
		s.writing = false
		s.qmu.Unlock()
		return false
	}
	s.qmu.Unlock()

	if err := s.write(key, v); err != nil {
		logger.Warn("failed to save preferences", zap.String("key", key), zap.Error(err))
	}

	// A value queued during the write stays for the next round.
	s.qmu.Lock()
	if q, ok := s.queued[key]; ok && q == v {
		delete(s.queued, key)
	}
	s.qmu.Unlock()
	return true
}

// Wait blocks until background writes finish.
func (s *Store) Wait() {
	s.pending.Wait()
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}
