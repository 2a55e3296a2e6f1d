package store

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// guildKeyPrefix namespaces guild records inside the Badger keyspace.
const guildKeyPrefix = "guild:"

// BadgerStore persists one record per guild in a Badger database. SyncWrites
// is enabled so a mutation acknowledged to the admin survives a crash.
type BadgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	logger *slog.Logger
	set    configSet
}

var _ Store = (*BadgerStore)(nil)

// NewBadger opens (or creates) a Badger-backed store at path and loads every
// guild record into memory. Individual malformed records are skipped with a
// warning; only failure to open the database is fatal to construction.
func NewBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Mutations are acknowledged to admins; don't lose them

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: logger,
		set:    newConfigSet(),
	}

	if err := s.loadAll(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// loadAll scans the guild keyspace into the in-memory set.
func (s *BadgerStore) loadAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(guildKeyPrefix)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			guildID := string(item.Key()[len(prefix):])

			err := item.Value(func(val []byte) error {
				var g GuildConfig
				if err := json.Unmarshal(val, &g); err != nil {
					s.logger.Warn("skipping malformed guild record",
						"guild_id", guildID, "error", err)
					return nil
				}
				if g.RoleMappings == nil {
					g.RoleMappings = make(map[string]string)
				}
				s.set.guilds[guildID] = &g
				return nil
			})
			if err != nil {
				return fmt.Errorf("read guild record %s: %w", guildID, err)
			}
		}
		return nil
	})
}

// persistGuildLocked writes (or deletes, when empty) a single guild record.
func (s *BadgerStore) persistGuildLocked(guildID string) error {
	key := []byte(guildKeyPrefix + guildID)
	g, ok := s.set.guilds[guildID]

	return s.db.Update(func(txn *badger.Txn) error {
		if !ok || g.empty() {
			err := txn.Delete(key)
			if err != nil && err != badger.ErrKeyNotFound {
				return fmt.Errorf("delete guild record: %w", err)
			}
			return nil
		}

		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal guild record: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set guild record: %w", err)
		}
		return nil
	})
}

// GetMapping implements Store.
func (s *BadgerStore) GetMapping(guildID, roleID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.getMapping(guildID, roleID)
}

// SetMapping implements Store.
func (s *BadgerStore) SetMapping(guildID, roleID, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.setMapping(guildID, roleID, category)
	return s.persistGuildLocked(guildID)
}

// RemoveMapping implements Store.
func (s *BadgerStore) RemoveMapping(guildID, roleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set.removeMapping(guildID, roleID) {
		return false, nil
	}
	return true, s.persistGuildLocked(guildID)
}

// Mappings implements Store.
func (s *BadgerStore) Mappings(guildID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.mappings(guildID)
}

// GetTrigger implements Store.
func (s *BadgerStore) GetTrigger(guildID string) (*TriggerDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.getTrigger(guildID)
}

// SetTrigger implements Store.
func (s *BadgerStore) SetTrigger(guildID string, def TriggerDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.setTrigger(guildID, def)
	return s.persistGuildLocked(guildID)
}

// ClearTrigger implements Store.
func (s *BadgerStore) ClearTrigger(guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.clearTrigger(guildID)
	return s.persistGuildLocked(guildID)
}

// GuildCount implements Store.
func (s *BadgerStore) GuildCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.count()
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
