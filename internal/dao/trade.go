package dao

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

type TradeDAO struct {
	db *gorm.DB
}

var (
	_trade     *TradeDAO
	_tradeOnce sync.Once
)

// InitTradeDAO 初始化 TradeDAO
func InitTradeDAO(db *gorm.DB) {
	_tradeOnce.Do(func() {
		_trade = &TradeDAO{db: db}
	})
}

// Trade 获取 TradeDAO 单例
func Trade() *TradeDAO {
	return _trade
}

// Insert 写入主库并归档
// 唯一键冲突视为重复（至少一次投递下的正常情况），不算失败；
// 归档失败只记日志，主表提交即视为入库成功。
func (d *TradeDAO) Insert(t *models.Trade) (Outcome, error) {
	if err := validateTrade(t); err != nil {
		return 0, err
	}

	if err := d.db.Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return OutcomeDuplicate, nil
		}
		return 0, err
	}

	if err := d.db.Create(t.Archive()).Error; err != nil {
		logger.Error().Err(err).
			Str("signature", t.Signature).
			Uint64("id", t.ID).
			Msg("trade archive write failed")
		monitor.GetMetrics().IncArchiveFailure("trade")
	}

	return OutcomeInserted, nil
}

// RecentCount 统计窗口内入库的交易数（健康检查用）
func (d *TradeDAO) RecentCount(window time.Duration) (int64, error) {
	var count int64
	err := d.db.Model(&models.Trade{}).
		Where("created_at > ?", time.Now().Add(-window)).
		Count(&count).Error
	return count, err
}

// RecentSignatures 返回窗口内入库的签名（去重缓存预热用）
func (d *TradeDAO) RecentSignatures(window time.Duration) ([]string, error) {
	var sigs []string
	err := d.db.Model(&models.Trade{}).
		Where("created_at > ?", time.Now().Add(-window)).
		Pluck("signature", &sigs).Error
	return sigs, err
}
