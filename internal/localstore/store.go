// Package localstore owns the in-memory dataset and its backing data file.
package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/storage"
)

// DefaultDataKey is the storage key of the data file.
const DefaultDataKey = "data.json"

// ErrMalformed marks a data file that cannot be decoded into a dataset.
var ErrMalformed = errors.New("malformed data file")

var allowedRootKeys = map[string]bool{
	"users":              true,
	"projects":           true,
	"nextId":             true,
	"securityMigrations": true,
	"schemaVersion":      true,
}

// Source tells where a loaded dataset came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceDefaults Source = "defaults"
)

// LoadResult describes the outcome of Load.
type LoadResult struct {
	Source Source
	// BackupKey is set when a corrupt data file was copied aside.
	BackupKey string
	// Dirty reports that the in-memory dataset differs from the stored bytes
	// and should be saved.
	Dirty bool
}

// Options configures a Store.
type Options struct {
	DataKey      string
	InitialAdmin InitialAdmin
	Logger       *slog.Logger
	Now          func() time.Time
}

// Store holds the authoritative dataset. All access goes through View and
// Mutate so concurrent requests never observe a half-applied change.
type Store struct {
	storage storage.Storage
	dataKey string
	admin   InitialAdmin
	logger  *slog.Logger
	now     func() time.Time

	mu   sync.RWMutex
	data *model.Dataset
}

// New creates a store over st. Call Load before use.
func New(st storage.Storage, opts Options) *Store {
	if opts.DataKey == "" {
		opts.DataKey = DefaultDataKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		storage: st,
		dataKey: opts.DataKey,
		admin:   opts.InitialAdmin,
		logger:  opts.Logger,
		now:     opts.Now,
		data:    &model.Dataset{},
	}
}

// Load reads and normalizes the data file. It never fails: a missing or
// unreadable file yields the default dataset, and a corrupt file is copied
// aside under a timestamped key first.
func (s *Store) Load() LoadResult {
	now := s.now()
	stamp := model.Timestamp(now)
	result := LoadResult{Source: SourceFile}

	raw, err := s.storage.Read(s.dataKey)
	var d *model.Dataset
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("no data file, starting with defaults", "key", s.dataKey)
		d = DefaultDataset(stamp)
		result.Source = SourceDefaults
		result.Dirty = true
	case err != nil:
		s.logger.Error("failed to read data file, starting with defaults", "key", s.dataKey, "error", err)
		d = DefaultDataset(stamp)
		result.Source = SourceDefaults
	default:
		d, err = Decode(raw, stamp)
		if err != nil {
			result.Source = SourceDefaults
			result.Dirty = true
			result.BackupKey = s.backupCorrupt(raw, now, err)
			d = DefaultDataset(stamp)
		}
	}

	if _, err := ensureInitialUsers(d, s.admin, stamp); err != nil {
		s.logger.Error("failed to seed initial admin", "error", err)
	}
	normalize(d, stamp)
	if len(d.Users) == 0 {
		s.logger.Warn("no admin users configured; set INITIAL_ADMIN_EMAIL and INITIAL_ADMIN_PASSWORD")
	}

	if result.Source == SourceFile {
		encoded, err := Encode(d)
		result.Dirty = err != nil || !bytes.Equal(encoded, raw)
	}

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
	return result
}

func (s *Store) backupCorrupt(raw []byte, now time.Time, cause error) string {
	key := fmt.Sprintf("%s.corrupt.%d", s.dataKey, now.UnixMilli())
	s.logger.Error("failed to parse data file, starting with defaults", "key", s.dataKey, "error", cause)
	if err := s.storage.Write(key, raw); err != nil {
		s.logger.Error("failed to back up corrupt data file", "backup", key, "error", err)
		return ""
	}
	s.logger.Error("corrupt data file backed up", "backup", key)
	return key
}

// Save writes the full dataset atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := Encode(s.data)
	if err != nil {
		return err
	}
	if err := s.storage.Write(s.dataKey, data); err != nil {
		return fmt.Errorf("saving dataset: %w", err)
	}
	return nil
}

// NextID issues a new id. Callers persist it with Save or by issuing it
// inside Mutate.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.IssueID()
}

// View runs fn with read access to the dataset. fn must not retain or
// modify d.
func (s *Store) View(fn func(d *model.Dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// Mutate runs fn with write access to the dataset and saves when fn
// succeeds. fn should validate before it changes anything: a returned error
// skips the save but does not undo in-place edits.
func (s *Store) Mutate(fn func(d *model.Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.data); err != nil {
		return err
	}
	return s.saveLocked()
}

// Replace swaps in a new dataset and saves it.
func (s *Store) Replace(d *model.Dataset) error {
	normalize(d, model.Timestamp(s.now()))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	return s.saveLocked()
}

// Encode serializes a dataset the way it is stored on disk.
func Encode(d *model.Dataset) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding dataset: %w", err)
	}
	return data, nil
}

// Decode parses stored bytes, runs pending schema migrations, drops unknown
// top-level keys and normalizes the result.
func Decode(raw []byte, now string) (*model.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformed)
	}
	if err := migrate(doc, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for key := range doc {
		if !allowedRootKeys[key] {
			delete(doc, key)
		}
	}

	cleaned, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var d model.Dataset
	if err := json.Unmarshal(cleaned, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	normalize(&d, now)
	return &d, nil
}
