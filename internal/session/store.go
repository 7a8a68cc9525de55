// Package session persists the authentication token across restarts.
//
// Stores never surface failures: Restore degrades to an empty session and
// Persist logs and drops write errors.
package session

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/threatflux/violetearClient/internal/config"
	"github.com/threatflux/violetearClient/internal/database"
	"github.com/threatflux/violetearClient/internal/models"
)

// DefaultKey is the storage key holding the serialized session
const DefaultKey = "violetear.web-client.database"

// Store restores and persists the session
type Store interface {
	// Restore returns the stored session, or an empty one if nothing usable is stored
	Restore(ctx context.Context) models.Session
	// Persist writes the session on a best-effort basis
	Persist(ctx context.Context, s models.Session)
}

// New builds the store selected by cfg.Storage. The returned closer releases
// any underlying database handle.
func New(cfg *config.Config, fs afero.Fs, log *logrus.Logger) (Store, io.Closer, error) {
	key := cfg.Storage.Key
	if key == "" {
		key = DefaultKey
	}

	switch cfg.Storage.Type {
	case config.StorageSQLite:
		db, err := database.Open(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewGormStore(db.Gorm(), key, log)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	case config.StorageMemory:
		return NewMemoryStore(key), nopCloser{}, nil
	default:
		return NewFileStore(fs, cfg.Storage.ResolvedPath(), key, log), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func encode(s models.Session) ([]byte, error) {
	return json.Marshal(s)
}

// decode parses a stored value. Any failure yields an empty session.
func decode(raw []byte) (models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Session{}, err
	}
	return s, nil
}
