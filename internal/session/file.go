package session

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/models"
)

// FileStore keeps an opaque key -> JSON object in a single file.
// Other keys in the file are preserved on write.
type FileStore struct {
	fs   afero.Fs
	path string
	key  string
	log  logrus.FieldLogger
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store
func NewFileStore(fs afero.Fs, path, key string, log logrus.FieldLogger) *FileStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &FileStore{
		fs:   fs,
		path: path,
		key:  key,
		log:  log.WithFields(logrus.Fields{"store": "file", "path": path}),
	}
}

// Restore implements Store
func (s *FileStore) Restore(ctx context.Context) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readEntries()
	if err != nil {
		s.log.WithError(err).Debug("No stored session")
		return models.Session{}
	}

	raw, ok := entries[s.key]
	if !ok {
		return models.Session{}
	}

	sess, err := decode(raw)
	if err != nil {
		s.log.WithError(err).Debug("Stored session is corrupt, ignoring it")
		return models.Session{}
	}
	return sess
}

// Persist implements Store
func (s *FileStore) Persist(ctx context.Context, sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(sess); err != nil {
		s.log.WithError(err).Warn("Failed to persist session")
	}
}

func (s *FileStore) readEntries() (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, errors.Wrap(err, "read session file")
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "parse session file")
	}
	return entries, nil
}

func (s *FileStore) write(sess models.Session) error {
	entries, err := s.readEntries()
	if err != nil {
		// Missing or corrupt: start over
		entries = map[string]json.RawMessage{}
	}

	raw, err := encode(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	entries[s.key] = raw

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session file")
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}

	// Write then rename so a crash never leaves a truncated file behind
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write session file")
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, "replace session file")
	}
	return nil
}

// Path returns the file backing the store
func (s *FileStore) Path() string {
	return s.path
}

var _ Store = (*FileStore)(nil)
