package query

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// Store 查询侧只读端口（只读热存储，主库不经过这里）
type Store interface {
	RecentTrades(limit int, start, end *int64) ([]*models.HotTrade, error)
	TradesAfter(afterID int64, limit int) ([]*models.HotTrade, error)
	RecentWhaleMovements(limit int, start, end *int64) ([]*models.HotWhaleMovement, error)
}

// Config 查询上限配置
type Config struct {
	DefaultLimit  int // 无时间范围时的上限
	RangedLimit   int // 给出时间范围时的上限（范围有界，允许更大）
	SyncBatchSize int // 增量同步固定批大小
}

// Handler 热存储读取端点
// 任何失败都以 {success:false,error} 返回，HTTP 状态码始终 200：
// 读路径和写入器、清理器抢同一把锁，必须优雅退化而不是抛错
type Handler struct {
	store Store
	cfg   Config
}

// NewHandler 创建查询处理器
func NewHandler(store Store, cfg Config) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.RangedLimit <= 0 {
		cfg.RangedLimit = 1000
	}
	if cfg.SyncBatchSize <= 0 {
		cfg.SyncBatchSize = 500
	}
	return &Handler{store: store, cfg: cfg}
}

// Response 读取端点响应
type Response struct {
	Success   bool        `json:"success"`
	Source    string      `json:"source"`
	Count     int         `json:"count"`
	MaxID     int64       `json:"max_id"`
	Results   interface{} `json:"results"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Trades 处理 GET /api/trades
// after_id 给出时走增量游标（id 升序，固定批大小，返回本批最大 id 作为下一个游标）；
// 否则走窗口查询（id 倒序，可选 start/end 块时间界）
func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if after := q.Get("after_id"); after != "" {
		rows, err := h.store.TradesAfter(cast.ToInt64(after), h.cfg.SyncBatchSize)
		if err != nil {
			h.writeError(w, "trades incremental read failed", err)
			return
		}

		// 升序返回，最大 id 即最后一行
		var maxID int64
		if len(rows) > 0 {
			maxID = rows[len(rows)-1].ID
		}
		h.writeOK(w, len(rows), maxID, rows)
		return
	}

	limit, start, end := h.windowParams(q.Get("limit"), q.Get("start"), q.Get("end"))
	rows, err := h.store.RecentTrades(limit, start, end)
	if err != nil {
		h.writeError(w, "trades windowed read failed", err)
		return
	}

	// 倒序返回，最大 id 即第一行
	var maxID int64
	if len(rows) > 0 {
		maxID = rows[0].ID
	}
	h.writeOK(w, len(rows), maxID, rows)
}

// WhaleMovements 处理 GET /api/whale-movements（仅窗口查询）
func (h *Handler) WhaleMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, start, end := h.windowParams(q.Get("limit"), q.Get("start"), q.Get("end"))
	rows, err := h.store.RecentWhaleMovements(limit, start, end)
	if err != nil {
		h.writeError(w, "whale movements windowed read failed", err)
		return
	}

	var maxID int64
	if len(rows) > 0 {
		maxID = rows[0].ID
	}
	h.writeOK(w, len(rows), maxID, rows)
}

// windowParams 解析窗口查询参数并施加上限
// 无时间范围意味着潜在结果集无界，上限取小；有范围时允许更大
func (h *Handler) windowParams(limitStr, startStr, endStr string) (limit int, start, end *int64) {
	if startStr != "" {
		v := cast.ToInt64(startStr)
		start = &v
	}
	if endStr != "" {
		v := cast.ToInt64(endStr)
		end = &v
	}

	capLimit := h.cfg.DefaultLimit
	if start != nil || end != nil {
		capLimit = h.cfg.RangedLimit
	}

	limit = cast.ToInt(limitStr)
	if limit <= 0 || limit > capLimit {
		limit = capLimit
	}
	return limit, start, end
}

func (h *Handler) writeOK(w http.ResponseWriter, count int, maxID int64, results interface{}) {
	h.writeJSON(w, Response{
		Success:   true,
		Source:    "hot",
		Count:     count,
		MaxID:     maxID,
		Results:   results,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	logger.Error().Err(err).Msg(msg)
	h.writeJSON(w, Response{
		Success:   false,
		Source:    "hot",
		Results:   []struct{}{},
		Error:     msg,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("write query response failed")
	}
}
