package cleaner

import (
	"time"

	"github.com/utrading/utrading-sol-ingest/internal/hotstore"
	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// Cleaner 热存储保留期清理器，定时删除过期行
// 失败只记日志，下一轮会删掉更大的积压
type Cleaner struct {
	store     *hotstore.Store
	retention time.Duration // 保留窗口
	interval  time.Duration // 清理间隔
	maxRows   int64         // 单表数量兜底，0 表示不启用
	done      chan struct{} // 停止信号
}

// NewCleaner 创建清理器
func NewCleaner(store *hotstore.Store, retention, interval time.Duration, maxRows int64) *Cleaner {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &Cleaner{
		store:     store,
		retention: retention,
		interval:  interval,
		maxRows:   maxRows,
		done:      make(chan struct{}),
	}
}

// Start 启动清理任务
func (c *Cleaner) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		logger.Info().
			Dur("retention", c.retention).
			Dur("interval", c.interval).
			Msg("cleaner started")

		// 启动时立即执行一次
		c.clean()

		for {
			select {
			case <-ticker.C:
				c.clean()
			case <-c.done:
				logger.Info().Msg("cleaner stopped")
				return
			}
		}
	}()
}

// Stop 停止清理器
func (c *Cleaner) Stop() {
	close(c.done)
}

// clean 执行清理任务
// 策略：时间优先（保留窗口外删除），数量兜底（单表行数上限）
func (c *Cleaner) clean() {
	logger.Debug().Msg("running cleanup task")

	cutoff := time.Now().Add(-c.retention)
	trades, movements, err := c.store.SweepBefore(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("hot store sweep failed")
	} else if trades > 0 || movements > 0 {
		monitor.GetMetrics().AddSweepDeleted("trade", trades)
		monitor.GetMetrics().AddSweepDeleted("whale_movement", movements)
		logger.Info().
			Int64("trades", trades).
			Int64("whale_movements", movements).
			Time("cutoff", cutoff).
			Msg("swept expired hot store rows")
	}

	if c.maxRows > 0 {
		deleted, err := c.store.TrimExcess(c.maxRows)
		if err != nil {
			logger.Error().Err(err).Msg("hot store trim failed")
		} else if deleted > 0 {
			logger.Info().
				Int64("deleted", deleted).
				Int64("limit", c.maxRows).
				Msg("trimmed excess hot store rows by count")
		}
	}
}
