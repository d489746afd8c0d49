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

type WhaleMovementDAO struct {
	db *gorm.DB
}

var (
	_movement     *WhaleMovementDAO
	_movementOnce sync.Once
)

// InitWhaleMovementDAO 初始化 WhaleMovementDAO
func InitWhaleMovementDAO(db *gorm.DB) {
	_movementOnce.Do(func() {
		_movement = &WhaleMovementDAO{db: db}
	})
}

// WhaleMovement 获取 WhaleMovementDAO 单例
func WhaleMovement() *WhaleMovementDAO {
	return _movement
}

// Insert 写入主库并归档，语义与 TradeDAO.Insert 相同
func (d *WhaleMovementDAO) Insert(m *models.WhaleMovement) (Outcome, error) {
	if err := validateMovement(m); err != nil {
		return 0, err
	}

	if err := d.db.Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return OutcomeDuplicate, nil
		}
		return 0, err
	}

	if err := d.db.Create(m.Archive()).Error; err != nil {
		logger.Error().Err(err).
			Str("signature", m.Signature).
			Uint64("id", m.ID).
			Msg("whale movement archive write failed")
		monitor.GetMetrics().IncArchiveFailure("whale_movement")
	}

	return OutcomeInserted, nil
}

// RecentCount 统计窗口内入库的变动数（健康检查用）
func (d *WhaleMovementDAO) RecentCount(window time.Duration) (int64, error) {
	var count int64
	err := d.db.Model(&models.WhaleMovement{}).
		Where("created_at > ?", time.Now().Add(-window)).
		Count(&count).Error
	return count, err
}

// RecentSignatures 返回窗口内入库的签名（去重缓存预热用）
func (d *WhaleMovementDAO) RecentSignatures(window time.Duration) ([]string, error) {
	var sigs []string
	err := d.db.Model(&models.WhaleMovement{}).
		Where("created_at > ?", time.Now().Add(-window)).
		Pluck("signature", &sigs).Error
	return sigs, err
}
