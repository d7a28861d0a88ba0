// Package gormstore provides a SQL-backed kv.Store using GORM, holding one
// row per key with an optional expiry instant. MySQL is the production
// backend; any GORM dialect works through New.
package gormstore

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fundexplorer/datakit/kv"
	"github.com/fundexplorer/datakit/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// Item is the persisted row shape.
type Item struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"type:blob"`
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

// TableName implements the GORM table name convention.
func (Item) TableName() string { return "datakit_kv" }

// Store is a GORM implementation of kv.Store.
type Store struct {
	logger logger.Logger
	db     *gorm.DB
	closed atomic.Bool

	// now is swappable for TTL tests
	now func() time.Time
}

// Open connects to MySQL using cfg and migrates the kv table.
func Open(log logger.Logger, cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// map config log level onto gorm's
	var gormLogLevel glogger.LogLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "silent":
		gormLogLevel = glogger.Silent
	case "error":
		gormLogLevel = glogger.Error
	case "info":
		gormLogLevel = glogger.Info
	default:
		gormLogLevel = glogger.Warn
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: &gormLogger{
			logger:        log,
			level:         gormLogLevel,
			slowThreshold: cfg.SlowThreshold,
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnection(err)
	}

	log.Info("gorm store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return New(log, db)
}

// New wraps an existing GORM handle, migrating the kv table.
// The caller keeps ownership of connection settings.
func New(log logger.Logger, db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, ErrInvalidConfig("db handle is required")
	}
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, ErrMigration(err)
	}
	return &Store{logger: log, db: db, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}

	var item Item
	err := s.db.WithContext(ctx).First(&item, "`key` = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, kv.ErrBackend(err)
	}

	if item.ExpiresAt != nil && s.now().After(*item.ExpiresAt) {
		// lazy expiry, best effort
		_ = s.db.WithContext(ctx).Delete(&Item{}, "`key` = ?", key).Error
		return nil, kv.ErrNotFound
	}
	return item.Value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}

	item := Item{Key: key, Value: value}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		item.ExpiresAt = &exp
	}

	err := s.db.WithContext(ctx).Save(&item).Error
	if err != nil {
		return kv.ErrBackend(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	if err := s.db.WithContext(ctx).Delete(&Item{}, "`key` = ?", key).Error; err != nil {
		return kv.ErrBackend(err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.closed.Load() {
		return nil, kv.ErrStoreClosed
	}

	var keys []string
	err := s.db.WithContext(ctx).
		Model(&Item{}).
		Where("`key` LIKE ?", prefix+"%").
		Where("expires_at IS NULL OR expires_at > ?", s.now()).
		Order("`key` ASC").
		Pluck("`key`", &keys).Error
	if err != nil {
		return nil, kv.ErrBackend(err)
	}
	return keys, nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	sqldb, err := s.db.DB()
	if err != nil {
		return nil
	}
	return sqldb.Close()
}

// SetClock overrides the store's clock. Test use only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}
