package hotstore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// Store 热存储：进程内 sqlite 内存库
// 库本身没有并发控制，写入器、清理器、查询全部串行通过 mu，
// 外部永远拿不到数据库句柄。
// id 由每个实体独立的分配器给出，进程生命周期内严格递增，
// 与主库的自增主键不是同一套编号，重启后从 1 重新开始。
type Store struct {
	db *gorm.DB
	mu sync.Mutex

	tradeID    atomic.Int64
	movementID atomic.Int64
}

// Open 打开热存储并建表
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open hot store failed: %w", err)
	}

	// 内存库只允许一条连接，防止 shared cache 下的表锁竞争
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&models.HotTrade{}, &models.HotWhaleMovement{}); err != nil {
		return nil, fmt.Errorf("migrate hot store failed: %w", err)
	}

	logger.Info().Str("dsn", dsn).Msg("hot store opened")

	return &Store{db: db}, nil
}

// AllocTradeID 分配下一个交易行 id
func (s *Store) AllocTradeID() int64 {
	return s.tradeID.Add(1)
}

// AllocMovementID 分配下一个大户变动行 id
func (s *Store) AllocMovementID() int64 {
	return s.movementID.Add(1)
}

// WriteTrade 写入一行交易，row.ID 必须由 AllocTradeID 给出
func (s *Store) WriteTrade(row *models.HotTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Create(row).Error
}

// WriteWhaleMovement 写入一行大户变动
func (s *Store) WriteWhaleMovement(row *models.HotWhaleMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Create(row).Error
}

// RecentTrades 窗口查询：按 id 倒序（最新在前），可选 block_time 上下界
func (s *Store) RecentTrades(limit int, start, end *int64) ([]*models.HotTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Model(&models.HotTrade{})
	if start != nil {
		q = q.Where("block_time >= ?", *start)
	}
	if end != nil {
		q = q.Where("block_time <= ?", *end)
	}

	var rows []*models.HotTrade
	err := q.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// TradesAfter 增量查询：id > afterID，按 id 升序（最旧未读在前）
// 与窗口查询的排序方向相反，增量消费方必须按 id 顺序处理以避免漏读
func (s *Store) TradesAfter(afterID int64, limit int) ([]*models.HotTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*models.HotTrade
	err := s.db.Model(&models.HotTrade{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RecentWhaleMovements 窗口查询大户变动
func (s *Store) RecentWhaleMovements(limit int, start, end *int64) ([]*models.HotWhaleMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Model(&models.HotWhaleMovement{})
	if start != nil {
		q = q.Where("block_time >= ?", *start)
	}
	if end != nil {
		q = q.Where("block_time <= ?", *end)
	}

	var rows []*models.HotWhaleMovement
	err := q.Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// SweepBefore 删除 created_at 早于 cutoff 的行，返回每张表的删除数
func (s *Store) SweepBefore(cutoff time.Time) (trades, movements int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Where("created_at < ?", cutoff).Delete(&models.HotTrade{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	trades = res.RowsAffected

	res = s.db.Where("created_at < ?", cutoff).Delete(&models.HotWhaleMovement{})
	if res.Error != nil {
		return trades, 0, res.Error
	}
	movements = res.RowsAffected

	return trades, movements, nil
}

// TrimExcess 数量兜底：单表超过 maxRows 时删除最旧的多余行
func (s *Store) TrimExcess(maxRows int64) (deleted int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, model := range []interface{}{&models.HotTrade{}, &models.HotWhaleMovement{}} {
		var count int64
		if err = s.db.Model(model).Count(&count).Error; err != nil {
			return deleted, err
		}
		if count <= maxRows {
			continue
		}

		res := s.db.Where(
			"id IN (?)",
			s.db.Model(model).Select("id").Order("id ASC").Limit(int(count-maxRows)),
		).Delete(model)
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += res.RowsAffected
	}

	return deleted, nil
}

// Counts 返回当前驻留行数
func (s *Store) Counts() (trades, movements int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.db.Model(&models.HotTrade{}).Count(&trades).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.Model(&models.HotWhaleMovement{}).Count(&movements).Error; err != nil {
		return trades, 0, err
	}
	return trades, movements, nil
}

// Close 关闭热存储
func (s *Store) Close() {
	sqlDB, err := s.db.DB()
	if err != nil {
		logger.Error().Err(err).Msg("get hot store sql.DB failed")
		return
	}
	if err = sqlDB.Close(); err != nil {
		logger.Error().Err(err).Msg("close hot store failed")
	}
}
