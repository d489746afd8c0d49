package cache

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// DedupCache 签名去重缓存，使用 go-cache 实现 TTL 自动过期
// 只是主库唯一键之前的快速通道：命中直接按重复计数，
// 未命中仍由主库唯一约束兜底
type DedupCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewDedupCache 创建签名去重缓存
// 清理间隔自动设为 2×TTL
func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// IsSeen 检查签名是否已入库
func (c *DedupCache) IsSeen(signature string) bool {
	_, exists := c.cache.Get(signature)
	return exists
}

// Mark 标记签名为已入库
func (c *DedupCache) Mark(signature string) {
	c.cache.Set(signature, time.Now(), cache.DefaultExpiration)
}

// SignatureSource 主库近期签名来源
type SignatureSource interface {
	RecentSignatures(window time.Duration) ([]string, error)
}

// Warm 从主库加载近期签名
// 用于服务重启后避免对已知重复再打一次主库
func (c *DedupCache) Warm(window time.Duration, sources ...SignatureSource) error {
	count := 0
	for _, src := range sources {
		sigs, err := src.RecentSignatures(window)
		if err != nil {
			return err
		}
		for _, sig := range sigs {
			c.Mark(sig)
		}
		count += len(sigs)
	}

	logger.Info().
		Int("count", count).
		Dur("window", window).
		Msg("dedup cache warmed from master store")

	return nil
}

// Stats 获取统计信息
func (c *DedupCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"item_count":  c.cache.ItemCount(),
		"ttl_minutes": c.ttl.Minutes(),
	}
}
