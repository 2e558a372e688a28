package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/types"
)

const (
	// defaultSaveInterval 是自动落盘间隔（每 N 次插入写一次快照）.
	defaultSaveInterval = 5
	// maxEmbedContentLength 是参与嵌入的内容截断长度.
	maxEmbedContentLength = 500
)

// CacheConfig 是相似度缓存配置.
type CacheConfig struct {
	// SnapshotPath 是 JSON 快照文件路径，为空时禁用持久化.
	SnapshotPath string `yaml:"snapshot_path" env:"SNAPSHOT_PATH"`
	// SaveInterval 是自动落盘的插入次数间隔.
	SaveInterval int `yaml:"save_interval" env:"SAVE_INTERVAL"`
	// Dimension 是嵌入向量维度.
	Dimension int `yaml:"dimension" env:"DIMENSION"`
}

// SimilarityCache 是嵌入向量相似度缓存.
// 向量索引与文档切片并行存储，二者长度在任何可观测时刻严格相等；
// 插入在同一把写锁内完成 嵌入→追加文档→追加向量，保证原子性.
type SimilarityCache struct {
	mu           sync.RWMutex
	index        *FlatIndex
	documents    []types.Document
	embedder     Embedder
	config       CacheConfig
	insertsSince int
	logger       *zap.Logger
}

// snapshot 是快照文件的序列化结构.
type snapshot struct {
	Dimension int              `json:"dimension"`
	Vectors   [][]float64      `json:"vectors"`
	Documents []types.Document `json:"documents"`
}

// NewSimilarityCache 创建缓存并尝试加载历史快照.
// 快照缺失或损坏不是错误：缓存以空状态启动.
func NewSimilarityCache(config CacheConfig, embedder Embedder, logger *zap.Logger) *SimilarityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SaveInterval <= 0 {
		config.SaveInterval = defaultSaveInterval
	}
	if embedder == nil {
		embedder = NewLocalEmbedder(config.Dimension)
	}

	c := &SimilarityCache{
		index:    NewFlatIndex(embedder.Dimension()),
		embedder: embedder,
		config:   config,
		logger:   logger.With(zap.String("component", "similarity_cache")),
	}
	c.Load()
	return c
}

// Size 返回当前缓存的文档数.
func (c *SimilarityCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

// Insert 把一条检索结果写入缓存.
// 永不向调用方返回错误：嵌入或索引失败记录日志后丢弃该条目.
func (c *SimilarityCache) Insert(doc types.Document) {
	vector := c.embedder.Embed(embedText(doc))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.Add(vector); err != nil {
		c.logger.Warn("Failed to index document, entry dropped",
			zap.String("title", doc.Title),
			zap.Error(err))
		return
	}
	c.documents = append(c.documents, doc)

	c.insertsSince++
	if c.config.SnapshotPath != "" && c.insertsSince >= c.config.SaveInterval {
		if err := c.saveLocked(); err != nil {
			c.logger.Warn("Failed to persist cache snapshot", zap.Error(err))
		} else {
			c.insertsSince = 0
		}
	}
}

// Query 返回与 text 最相似的至多 k 条文档副本.
// 副本的 Kind 固定为 semantic，Confidence = max(0.1, 1 - distance/10).
// 空缓存或 k <= 0 返回空切片，永不返回错误.
func (c *SimilarityCache) Query(text string, k int) []types.Document {
	if k <= 0 {
		return nil
	}
	vector := c.embedder.Embed(text)

	c.mu.RLock()
	defer c.mu.RUnlock()

	results := c.index.Search(vector, k)
	docs := make([]types.Document, 0, len(results))
	for _, r := range results {
		doc := c.documents[r.Index]
		doc.Kind = types.KindSemantic
		doc.Confidence = semanticConfidence(r.Distance)
		docs = append(docs, doc)
	}
	return docs
}

// Save 立即写一次快照.
func (c *SimilarityCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked 原子落盘：先写临时文件再 rename.
// 调用方必须持有写锁.
func (c *SimilarityCache) saveLocked() error {
	if c.config.SnapshotPath == "" {
		return nil
	}

	snap := snapshot{
		Dimension: c.index.Dimension(),
		Vectors:   c.index.Vectors(),
		Documents: c.documents,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	dir := filepath.Dir(c.config.SnapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.config.SnapshotPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	c.logger.Debug("Cache snapshot persisted",
		zap.String("path", c.config.SnapshotPath),
		zap.Int("documents", len(c.documents)))
	return nil
}

// Load 从快照恢复缓存状态.
// 容错加载：文件缺失、解析失败或形状不一致时清空状态并告警，绝不报错.
func (c *SimilarityCache) Load() {
	if c.config.SnapshotPath == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.config.SnapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Failed to read cache snapshot, starting empty", zap.Error(err))
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("Cache snapshot is corrupted, starting empty", zap.Error(err))
		c.resetLocked()
		return
	}
	if len(snap.Vectors) != len(snap.Documents) {
		c.logger.Warn("Cache snapshot shape mismatch, starting empty",
			zap.Int("vectors", len(snap.Vectors)),
			zap.Int("documents", len(snap.Documents)))
		c.resetLocked()
		return
	}

	index := NewFlatIndex(snap.Dimension)
	for _, v := range snap.Vectors {
		if err := index.Add(v); err != nil {
			c.logger.Warn("Cache snapshot has inconsistent vectors, starting empty", zap.Error(err))
			c.resetLocked()
			return
		}
	}

	c.index = index
	c.documents = snap.Documents
	c.logger.Info("Cache snapshot loaded",
		zap.String("path", c.config.SnapshotPath),
		zap.Int("documents", len(c.documents)))
}

// Close 落盘并关闭缓存.
func (c *SimilarityCache) Close() error {
	return c.Save()
}

func (c *SimilarityCache) resetLocked() {
	c.index = NewFlatIndex(c.embedder.Dimension())
	c.documents = nil
}

// embedText 构造参与嵌入的文本：标题 + 截断后的内容.
func embedText(doc types.Document) string {
	content := doc.Content
	if len(content) > maxEmbedContentLength {
		content = content[:maxEmbedContentLength]
	}
	return doc.Title + " " + content
}

// semanticConfidence 把 L2 距离映射为 [0.1, 1] 的置信度.
func semanticConfidence(distance float64) float64 {
	confidence := 1 - distance/10
	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}
