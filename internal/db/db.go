package db

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KVEntry is one persisted collection, stored as a JSON document.
type KVEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

// KV is the durable key-value storage behind the Store.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// SQLiteKV keeps the key-value table in a single SQLite file.
type SQLiteKV struct {
	conn *gorm.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*SQLiteKV, error) {
	conn, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &SQLiteKV{conn: conn}, nil
}

func (s *SQLiteKV) Get(key string) ([]byte, bool, error) {
	var e KVEntry
	err := s.conn.Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(e.Value), true, nil
}

func (s *SQLiteKV) Put(key string, value []byte) error {
	return s.conn.Save(&KVEntry{Key: key, Value: string(value)}).Error
}

// Keys lists every stored key, for diagnostics.
func (s *SQLiteKV) Keys() ([]string, error) {
	var keys []string
	err := s.conn.Model(&KVEntry{}).Order("key asc").Pluck("key", &keys).Error
	return keys, err
}

func (s *SQLiteKV) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
