package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

var (
	// ErrPersist is returned when the subscriber file could not be written.
	// The in-memory set is left unchanged.
	ErrPersist = errors.New("persist subscribers")
)

// record is the on-disk layout: {"enabledChatIds":[...]}.
type record struct {
	EnabledChatIDs []int64 `json:"enabledChatIds"`
}

// SubscriberStore is the durable set of chat IDs that opted into alerts.
// Every mutation rewrites the whole file (write to temp, fsync, rename)
// before it is applied in memory, all under one mutex.
type SubscriberStore struct {
	mu   sync.Mutex
	path string
	ids  map[int64]struct{}
	log  *zap.Logger

	writeFile func(path string, data []byte, perm os.FileMode) error
}

// Open creates the parent directory of path if needed and loads the set.
func Open(path string, log *zap.Logger) (*SubscriberStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	s := &SubscriberStore{
		path: path,
		ids:  make(map[int64]struct{}),
		log:  log,
		writeFile: func(path string, data []byte, perm os.FileMode) error {
			return renameio.WriteFile(path, data, perm)
		},
	}
	s.Load()
	return s, nil
}

// Load replaces the in-memory set with the file contents and returns a
// snapshot. A missing or unreadable file yields an empty set.
func (s *SubscriberStore) Load() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[int64]struct{})

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no subscriber file yet, starting empty", zap.String("path", s.path))
		} else {
			s.log.Error("read subscriber file failed, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return []int64{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Error("subscriber file is corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return []int64{}
	}

	for _, id := range rec.EnabledChatIDs {
		s.ids[id] = struct{}{}
	}
	s.log.Info("subscribers loaded", zap.String("path", s.path), zap.Int("count", len(s.ids)))
	return s.snapshotLocked()
}

// Add subscribes id. Adding a present id still rewrites the file.
func (s *SubscriberStore) Add(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[int64]struct{}, len(s.ids)+1)
	for k := range s.ids {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}

	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.ids = next
	return nil
}

// Remove unsubscribes id. Removing an absent id does nothing.
func (s *SubscriberStore) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return nil
	}

	next := make(map[int64]struct{}, len(s.ids))
	for k := range s.ids {
		if k != id {
			next[k] = struct{}{}
		}
	}

	if err := s.persistLocked(next); err != nil {
		return err
	}
	s.ids = next
	return nil
}

// ListAll returns the subscribers in ascending order. The slice is a copy.
func (s *SubscriberStore) ListAll() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Contains reports whether id is subscribed.
func (s *SubscriberStore) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of subscribers.
func (s *SubscriberStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *SubscriberStore) snapshotLocked() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s *SubscriberStore) persistLocked(ids map[int64]struct{}) error {
	rec := record{EnabledChatIDs: make([]int64, 0, len(ids))}
	for id := range ids {
		rec.EnabledChatIDs = append(rec.EnabledChatIDs, id)
	}
	slices.Sort(rec.EnabledChatIDs)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := s.writeFile(s.path, data, 0o644); err != nil {
		s.log.Error("write subscriber file failed", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
