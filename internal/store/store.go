// Package store owns the bot's durable state: one JSON document, loaded at
// startup and atomically replaced on every save. It is the single
// persistence boundary; every handler and background task mutates state
// through the same guarded document.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"highrise-room-bot/internal/model"
)

// Store guards the persisted document behind a mutex.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *model.Document
}

// Open loads the document at path, or starts empty when the file is absent.
// A corrupt file is logged and replaced with empty state rather than
// aborting startup; the next save overwrites it.
func Open(path string) *Store {
	s := &Store{path: path, doc: model.NewDocument()}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", path).Msg("Could not read data file, starting empty")
		}
		return s
	}

	doc := &model.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Corrupt data file, starting empty")
		return s
	}
	doc.Normalize()
	s.doc = doc
	log.Info().Str("file", path).Msg("Persistent data loaded")
	return s
}

// Do runs fn with exclusive access to the document. fn must not retain the
// pointer past its return.
func (s *Store) Do(fn func(d *model.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// Save writes the document to disk via write-to-temp-then-rename so a
// crash mid-write never truncates the previous snapshot. Failures are
// returned for logging but the in-memory state stays authoritative.
func (s *Store) Save() error {
	s.mu.Lock()
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// SaveLogged saves and logs any failure; persistence errors never
// propagate to callers.
func (s *Store) SaveLogged() {
	if err := s.Save(); err != nil {
		log.Error().Err(err).Msg("Could not persist state")
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return filepath.Clean(s.path)
}
