// Package configstore loads scoring configuration records from disk into
// immutable snapshots.
//
// A directory may hold any mix of .json, .yaml and .yml files; each file holds
// one record or a list of records. A single invalid record fails the whole
// load so a batch never runs against a partially valid configuration set.
package configstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-adhere/internal/domain"
)

// ErrNoConfigs is returned when a directory holds no configuration files.
var ErrNoConfigs = errors.New("no configuration records found")

// LoadError reports which file failed to load.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.File, e.Err) }

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error { return e.Err }

// Snapshot is an immutable set of validated configurations. It implements
// domain.ConfigLookup and is safe for concurrent use.
type Snapshot struct {
	// Version is a content hash of every loaded record.
	Version  string
	LoadedAt time.Time
	Source   string
	index    domain.ConfigIndex
}

// NewSnapshot indexes already validated configurations.
func NewSnapshot(source string, cfgs ...*domain.AlgorithmConfig) (*Snapshot, error) {
	index, err := domain.NewConfigIndex(cfgs...)
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	for _, id := range index.IDs() {
		data, err := json.Marshal(index[id])
		if err != nil {
			return nil, fmt.Errorf("hash config %s: %w", id, err)
		}
		h.Write(data)
	}
	return &Snapshot{
		Version:  hex.EncodeToString(h.Sum(nil))[:16],
		LoadedAt: time.Now(),
		Source:   source,
		index:    index,
	}, nil
}

// Config implements domain.ConfigLookup.
func (s *Snapshot) Config(id string) (*domain.AlgorithmConfig, bool) {
	return s.index.Config(id)
}

// IDs returns the configuration IDs in sorted order.
func (s *Snapshot) IDs() []string { return s.index.IDs() }

// Len returns the number of configurations.
func (s *Snapshot) Len() int { return len(s.index) }

// Configs returns the configurations ordered by ID.
func (s *Snapshot) Configs() []*domain.AlgorithmConfig {
	ids := s.index.IDs()
	out := make([]*domain.AlgorithmConfig, len(ids))
	for i, id := range ids {
		out[i] = s.index[id]
	}
	return out
}

// LoadDir parses every configuration file in dir. Files are read in name order
// and subdirectories are ignored.
func LoadDir(dir string) (*Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isConfigFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var cfgs []*domain.AlgorithmConfig
	for _, name := range names {
		path := filepath.Join(dir, name)
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, loaded...)
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoConfigs)
	}
	snap, err := NewSnapshot(dir, cfgs...)
	if err != nil {
		return nil, &LoadError{File: dir, Err: err}
	}
	return snap, nil
}

// LoadFile parses one configuration file.
func LoadFile(path string) ([]*domain.AlgorithmConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	records, err := splitRecords(path, data)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	cfgs := make([]*domain.AlgorithmConfig, 0, len(records))
	for i, rec := range records {
		cfg, err := domain.ParseConfig(rec)
		if err != nil {
			return nil, &LoadError{File: fmt.Sprintf("%s[%d]", path, i), Err: err}
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// splitRecords returns each record of a file as JSON.
func splitRecords(path string, data []byte) ([]json.RawMessage, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var list []json.RawMessage
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		return []json.RawMessage{trimmed}, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	items, ok := doc.([]any)
	if !ok {
		items = []any{doc}
	}
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = raw
	}
	return out, nil
}

// Store holds the current snapshot. Readers take a snapshot once and keep it
// for the duration of a batch, so a concurrent Reload never changes the
// configurations a running batch sees.
type Store struct {
	dir     string
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore loads dir and returns a store holding the result.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{dir: dir, logger: logger}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Reload re-reads the directory. On failure the previous snapshot stays active.
func (s *Store) Reload() (*Snapshot, error) {
	snap, err := LoadDir(s.dir)
	if err != nil {
		s.logger.Error("config reload failed", "dir", s.dir, "error", err)
		return nil, err
	}
	prev := s.current.Swap(snap)
	attrs := []any{"dir", s.dir, "configs", snap.Len(), "version", snap.Version}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version)
	}
	s.logger.Info("config snapshot loaded", attrs...)
	return snap, nil
}
