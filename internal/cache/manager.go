package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 答案缓存管理器
// =============================================================================

// Config 答案缓存配置.
// Addr 为空时缓存禁用，调用方应跳过创建 Manager.
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 缓存条目过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
}

// Manager 以 Redis 为后端缓存完整的查询结果 JSON.
// 键由查询文本与检索选项派生，同一查询在 TTL 内直接命中，
// 不再经过检索与答案生成.
type Manager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager 创建答案缓存管理器并探测连接.
func NewManager(ctx context.Context, cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	logger.Info("answer cache initialized",
		zap.String("addr", cfg.Addr),
		zap.Duration("ttl", ttl))

	return &Manager{
		redis:  client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "answer_cache")),
	}, nil
}

// Key 由查询文本与检索选项派生缓存键.
// 选项参与哈希：同一查询在不同检索开关下的结果互不串扰.
func (m *Manager) Key(query string, useGraph, useInternet bool, maxResults int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%t|%t|%d", query, useGraph, useInternet, maxResults))
	return "queryflow:answer:" + hex.EncodeToString(h[:])
}

// Get 读取缓存的结果 JSON；未命中或出错时返回 (nil, false).
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.logger.Warn("answer cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Set 写入结果 JSON，失败时只记日志不向上传播.
func (m *Manager) Set(ctx context.Context, key string, value []byte) {
	if m == nil {
		return
	}
	if err := m.redis.Set(ctx, key, value, m.ttl).Err(); err != nil {
		m.logger.Warn("answer cache write failed", zap.Error(err))
	}
}

// Close 关闭 Redis 连接.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	return m.redis.Close()
}
