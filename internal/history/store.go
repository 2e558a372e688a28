// Package history persists processed queries to a relational store for
// auditing and the /status endpoint. SQLite (pure Go) is the default
// backend; PostgreSQL and MySQL are selectable via configuration.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config 查询历史存储配置.
type Config struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 数据库驱动: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 连接串（sqlite 为文件路径）
	DSN string `yaml:"dsn" env:"DSN"`
	// Recent 查询的默认条数上限
	MaxRecent int `yaml:"max_recent" env:"MAX_RECENT"`
}

// Record 一条已处理查询的留痕.
type Record struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"size:64;index"`
	Query      string
	Answer     string
	Status     string `gorm:"size:16;index"`
	Sources    int
	Iterations int
	DurationMs int64
	CreatedAt  time.Time
}

// TableName 固定表名，避免不同方言下的复数化差异.
func (Record) TableName() string { return "query_records" }

// Store 查询历史存储.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 按配置打开数据库并迁移表结构.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "vector_store/history.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}

	logger.Info("history store opened", zap.String("driver", cfg.Driver))
	return NewStore(db, logger), nil
}

// NewStore 用已打开的 gorm.DB 构造存储，不执行迁移.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}
}

// Record 写入一条留痕，失败时只记日志不向上传播.
func (s *Store) Record(ctx context.Context, rec Record) {
	if s == nil {
		return
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		s.logger.Warn("failed to record query", zap.Error(err))
	}
}

// Recent 返回最近 n 条记录，按时间倒序.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 20
	}
	var records []Record
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Limit(n).
		Find(&records).Error
	return records, err
}

// Count 返回留痕总数.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&Record{}).Count(&count).Error
	return count, err
}

// Close 关闭底层连接.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
