package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"virtual-campus/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormKV stores entries in the campus_kv table of a SQL database.
type GormKV struct {
	DB *gorm.DB
}

// OpenGormKV connects to sqlite or postgres and migrates the table.
func OpenGormKV(driver, dsn string) (*GormKV, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewGormKV(db)
}

// NewGormKV wraps an existing connection and migrates the table.
func NewGormKV(db *gorm.DB) (*GormKV, error) {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv table: %w", err)
	}
	return &GormKV{DB: db}, nil
}

func (g *GormKV) Get(ctx context.Context, key string) (string, error) {
	var entry models.KVEntry
	err := g.DB.WithContext(ctx).Where("kv_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

func (g *GormKV) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value}
	return g.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(&entry).Error
}

func (g *GormKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return g.DB.WithContext(ctx).Where("kv_key IN ?", keys).Delete(&models.KVEntry{}).Error
}

func (g *GormKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := g.DB.WithContext(ctx).
		Model(&models.KVEntry{}).
		Where(`kv_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("kv_key ASC").
		Pluck("kv_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (g *GormKV) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// escapeLike escapes the LIKE wildcards. The campus key prefix itself contains "_".
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
