package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/threatflux/violetearClient/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one key/value row
type Entry struct {
	Key       string `gorm:"column:storage_key;primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName overrides the table name used by Entry
func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore keeps the session in a key/value table
type GormStore struct {
	db  *gorm.DB
	key string
	log logrus.FieldLogger
}

// NewGormStore migrates the key/value table and returns a store bound to key
func NewGormStore(db *gorm.DB, key string, log logrus.FieldLogger) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("database cannot be nil")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.Wrap(err, "migrate kv_entries")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GormStore{
		db:  db,
		key: key,
		log: log.WithField("store", "sqlite"),
	}, nil
}

// Restore implements Store
func (s *GormStore) Restore(ctx context.Context) models.Session {
	var entry Entry
	err := s.db.WithContext(ctx).Where("storage_key = ?", s.key).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).Debug("Failed to read stored session")
		}
		return models.Session{}
	}

	sess, err := decode([]byte(entry.Value))
	if err != nil {
		s.log.WithError(err).Debug("Stored session is corrupt, ignoring it")
		return models.Session{}
	}
	return sess
}

// Persist implements Store
func (s *GormStore) Persist(ctx context.Context, sess models.Session) {
	if err := s.put(ctx, sess); err != nil {
		s.log.WithError(err).Warn("Failed to persist session")
	}
}

func (s *GormStore) put(ctx context.Context, sess models.Session) error {
	raw, err := encode(sess)
	if err != nil {
		return err
	}

	entry := Entry{Key: s.key, Value: string(raw), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	return errors.Wrap(err, "upsert session")
}

var _ Store = (*GormStore)(nil)
