package store

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/timesapp/times-bot/internal/validation"
)

// document is the on-disk layout of the file backend: one JSON object holding
// every guild's mappings and trigger, overwritten wholesale on each mutation.
type document struct {
	RoleMappings map[string]map[string]string  `json:"roleMappings"`
	Triggers     map[string]*TriggerDefinition `json:"triggers"`
}

// FileStore persists configuration as a single JSON document. Writes go to a
// temp file in the same directory followed by a rename, so a crash mid-write
// can never leave a truncated document behind.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	logger   *slog.Logger
	validate *validation.Validator
	set      configSet
}

var _ Store = (*FileStore)(nil)

// NewFile creates a file-backed store and loads the persisted document.
// A missing or malformed document is not an error: the store starts empty and
// logs the condition.
func NewFile(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}

	s := &FileStore{
		path:     path,
		logger:   logger,
		validate: validation.New(),
		set:      newConfigSet(),
	}
	s.load()
	return s, nil
}

// load reads the persisted document into memory, falling back to an empty
// store on any failure.
func (s *FileStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
}

func (s *FileStore) loadLocked() {
	s.set = newConfigSet()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no persisted config, starting empty", "path", s.path)
		} else {
			s.logger.Warn("failed to read persisted config, starting empty",
				"path", s.path, "error", err)
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("persisted config is malformed, starting empty",
			"path", s.path, "error", err)
		return
	}

	for guildID, mappings := range doc.RoleMappings {
		for roleID, category := range mappings {
			s.set.setMapping(guildID, roleID, category)
		}
	}
	for guildID, trigger := range doc.Triggers {
		if trigger == nil {
			continue
		}
		if err := s.validate.Validate(trigger); err != nil {
			s.logger.Warn("dropping invalid persisted trigger",
				"guild_id", guildID, "error", err)
			continue
		}
		s.set.setTrigger(guildID, *trigger)
	}
}

// Reload re-reads the document from disk, replacing in-memory state.
// Used by the config watcher when the file is edited externally.
func (s *FileStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.logger.Info("config store reloaded from disk",
		"path", s.path, "guilds", s.set.count())
}

// persistLocked serializes the full state atomically (temp file + rename).
func (s *FileStore) persistLocked() error {
	doc := document{
		RoleMappings: make(map[string]map[string]string),
		Triggers:     make(map[string]*TriggerDefinition),
	}
	for guildID, g := range s.set.guilds {
		if g.empty() {
			continue
		}
		if len(g.RoleMappings) > 0 {
			cp := g.clone()
			doc.RoleMappings[guildID] = cp.RoleMappings
		}
		if g.Trigger != nil {
			t := *g.Trigger
			doc.Triggers[guildID] = &t
		}
	}

	data, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal config document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace config document: %w", err)
	}
	return nil
}

// GetMapping implements Store.
func (s *FileStore) GetMapping(guildID, roleID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.getMapping(guildID, roleID)
}

// SetMapping implements Store.
func (s *FileStore) SetMapping(guildID, roleID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.setMapping(guildID, roleID, category)
	return s.persistLocked()
}

// RemoveMapping implements Store.
func (s *FileStore) RemoveMapping(guildID, roleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set.removeMapping(guildID, roleID) {
		return false, nil
	}
	return true, s.persistLocked()
}

// Mappings implements Store.
func (s *FileStore) Mappings(guildID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.mappings(guildID)
}

// GetTrigger implements Store.
func (s *FileStore) GetTrigger(guildID string) (*TriggerDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.getTrigger(guildID)
}

// SetTrigger implements Store.
func (s *FileStore) SetTrigger(guildID string, def TriggerDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.setTrigger(guildID, def)
	return s.persistLocked()
}

// ClearTrigger implements Store.
func (s *FileStore) ClearTrigger(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.clearTrigger(guildID)
	return s.persistLocked()
}

// GuildCount implements Store.
func (s *FileStore) GuildCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.count()
}

// Path returns the document path. Used by the config watcher.
func (s *FileStore) Path() string {
	return s.path
}

// Close implements Store. The file backend holds no open resources.
func (s *FileStore) Close() error {
	return nil
}
