package ingest

import (
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/tidwall/gjson"

	"github.com/utrading/utrading-sol-ingest/internal/cache"
	"github.com/utrading/utrading-sol-ingest/internal/dao"
	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/internal/nats"
	"github.com/utrading/utrading-sol-ingest/internal/normalizer"
	"github.com/utrading/utrading-sol-ingest/pkg/goplus"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// HotStore 热存储端口
type HotStore interface {
	AllocTradeID() int64
	AllocMovementID() int64
	WriteTrade(row *models.HotTrade) error
	WriteWhaleMovement(row *models.HotWhaleMovement) error
}

// MasterStore 主库端口
type MasterStore interface {
	InsertTrade(t *models.Trade) (dao.Outcome, error)
	InsertWhaleMovement(m *models.WhaleMovement) (dao.Outcome, error)
}

// Broadcaster 实时推送端口
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

// MovementPublisher NATS 发布端口
type MovementPublisher interface {
	PublishWhaleMovement(event *nats.WhaleMovementEvent) error
}

// DAOMaster 把 dao 单例适配成 MasterStore 端口
type DAOMaster struct{}

func (DAOMaster) InsertTrade(t *models.Trade) (dao.Outcome, error) {
	return dao.Trade().Insert(t)
}

func (DAOMaster) InsertWhaleMovement(m *models.WhaleMovement) (dao.Outcome, error) {
	return dao.WhaleMovement().Insert(m)
}

// batchStats 单批次计数器
type batchStats struct {
	received   int
	inserted   int
	duplicates int
	errors     int
	hotFailed  int
}

// Processor 双写编排器
// 响应已经发出之后才开始工作，所以任何失败都不会外漏到 HTTP 层；
// 每条记录独立处理，热写失败不影响主库写入，反之亦然。
type Processor struct {
	hot       HotStore
	master    MasterStore
	dedup     *cache.DedupCache
	hub       Broadcaster       // 可为 nil
	publisher MovementPublisher // 可为 nil
	pool      *ants.Pool
}

// NewProcessor 创建双写编排器
func NewProcessor(hot HotStore, master MasterStore, dedup *cache.DedupCache, hub Broadcaster, publisher MovementPublisher, poolSize int) (*Processor, error) {
	if poolSize <= 0 {
		poolSize = 30
	}

	// 非阻塞模式：池满时 Submit 立即报错而不是把提交方挂起，
	// 提交方在 webhook 确认之后调用，绝不能在这里排队
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Processor{
		hot:       hot,
		master:    master,
		dedup:     dedup,
		hub:       hub,
		publisher: publisher,
		pool:      pool,
	}, nil
}

// SubmitTrades 提交一批交易做后台处理
// 协程池满时降级为新起协程处理，批次照常落库，提交方从不等待
func (p *Processor) SubmitTrades(batch []gjson.Result, requestID string) {
	p.submit(func() { p.processTrades(batch, requestID) })
}

// SubmitWhaleMovements 提交一批大户变动做后台处理
func (p *Processor) SubmitWhaleMovements(batch []gjson.Result, requestID string) {
	p.submit(func() { p.processWhaleMovements(batch, requestID) })
}

func (p *Processor) submit(task func()) {
	if err := p.pool.Submit(task); err != nil {
		logger.Warn().Err(err).Msg("ingest pool saturated, processing on overflow goroutine")
		goplus.Go(task)
	}
	monitor.GetMetrics().SetPoolRunning(p.pool.Running())
}

// Stop 关闭协程池，等待在途任务完成
func (p *Processor) Stop() {
	p.pool.Release()
}

func (p *Processor) processTrades(batch []gjson.Result, requestID string) {
	start := time.Now()
	stats := batchStats{received: len(batch)}
	metrics := monitor.GetMetrics()
	metrics.IncReceived("trade", len(batch))

	for _, raw := range batch {
		t, err := normalizer.Trade(raw)
		if err != nil {
			stats.errors++
			metrics.IncFailed("trade", "validation")
			logger.Warn().Err(err).Str("request_id", requestID).Msg("trade rejected")
			continue
		}

		if p.dedup.IsSeen(t.Signature) {
			stats.duplicates++
			metrics.IncDuplicate("trade")
			continue
		}

		now := time.Now()
		row := t.HotRow(p.hot.AllocTradeID(), now)
		if err = p.hot.WriteTrade(row); err != nil {
			// 热存储只是性能缓存，失败不阻断主库写入
			stats.hotFailed++
			metrics.IncHotWriteFailure("trade")
			logger.Error().Err(err).Str("signature", t.Signature).Msg("hot store trade write failed")
		}

		outcome, err := p.master.InsertTrade(t)
		if err != nil {
			stats.errors++
			if dao.IsSchemaViolation(err) {
				metrics.IncFailed("trade", "schema")
				logger.Error().Err(err).
					Str("signature", t.Signature).
					Str("request_id", requestID).
					Msg("SCHEMA DRIFT: trade rejected by vocabulary check")
			} else {
				metrics.IncFailed("trade", "storage")
				logger.Error().Err(err).Str("signature", t.Signature).Msg("master store trade write failed")
			}
			continue
		}

		if outcome == dao.OutcomeDuplicate {
			stats.duplicates++
			metrics.IncDuplicate("trade")
			p.dedup.Mark(t.Signature)
			continue
		}

		stats.inserted++
		metrics.IncInserted("trade")
		p.dedup.Mark(t.Signature)

		if p.hub != nil {
			p.hub.Broadcast("trade", row)
		}
	}

	p.logBatch("trade", requestID, stats, start)
}

func (p *Processor) processWhaleMovements(batch []gjson.Result, requestID string) {
	start := time.Now()
	stats := batchStats{received: len(batch)}
	metrics := monitor.GetMetrics()
	metrics.IncReceived("whale_movement", len(batch))

	for _, raw := range batch {
		m, err := normalizer.WhaleMovement(raw, time.Now())
		if err != nil {
			stats.errors++
			metrics.IncFailed("whale_movement", "validation")
			logger.Warn().Err(err).Str("request_id", requestID).Msg("whale movement rejected")
			continue
		}

		if p.dedup.IsSeen(m.Signature) {
			stats.duplicates++
			metrics.IncDuplicate("whale_movement")
			continue
		}

		now := time.Now()
		row := m.HotRow(p.hot.AllocMovementID(), now)
		if err = p.hot.WriteWhaleMovement(row); err != nil {
			stats.hotFailed++
			metrics.IncHotWriteFailure("whale_movement")
			logger.Error().Err(err).Str("signature", m.Signature).Msg("hot store movement write failed")
		}

		outcome, err := p.master.InsertWhaleMovement(m)
		if err != nil {
			stats.errors++
			if dao.IsSchemaViolation(err) {
				metrics.IncFailed("whale_movement", "schema")
				logger.Error().Err(err).
					Str("signature", m.Signature).
					Str("request_id", requestID).
					Msg("SCHEMA DRIFT: whale movement rejected by vocabulary check")
			} else {
				metrics.IncFailed("whale_movement", "storage")
				logger.Error().Err(err).Str("signature", m.Signature).Msg("master store movement write failed")
			}
			continue
		}

		if outcome == dao.OutcomeDuplicate {
			stats.duplicates++
			metrics.IncDuplicate("whale_movement")
			p.dedup.Mark(m.Signature)
			continue
		}

		stats.inserted++
		metrics.IncInserted("whale_movement")
		p.dedup.Mark(m.Signature)

		if p.hub != nil {
			p.hub.Broadcast("whale_movement", row)
		}
		if p.publisher != nil {
			if err = p.publisher.PublishWhaleMovement(nats.NewWhaleMovementEvent(m)); err != nil {
				metrics.IncNATSErrors()
				logger.Error().Err(err).Str("signature", m.Signature).Msg("nats publish failed")
			} else {
				metrics.IncNATSPublished()
			}
		}
	}

	p.logBatch("whale_movement", requestID, stats, start)
}

func (p *Processor) logBatch(entity, requestID string, stats batchStats, start time.Time) {
	elapsed := time.Since(start)
	monitor.GetMetrics().ObserveBatch(stats.received, elapsed.Seconds())

	logger.Info().
		Str("entity", entity).
		Str("request_id", requestID).
		Int("received", stats.received).
		Int("inserted", stats.inserted).
		Int("duplicates", stats.duplicates).
		Int("errors", stats.errors).
		Int("hot_failed", stats.hotFailed).
		Dur("elapsed", elapsed).
		Msg("batch processed")
}
