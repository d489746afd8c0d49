package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"

	"github.com/utrading/utrading-sol-ingest/config"
	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/internal/query"
	"github.com/utrading/utrading-sol-ingest/pkg/goplus"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

const maxBodyBytes = 10 << 20 // 10MB

// HotCounter 健康检查用的热存储行数端口
type HotCounter interface {
	Counts() (trades, movements int64, err error)
}

// RecentCounter 健康检查用的主库近期入库计数端口
type RecentCounter interface {
	RecentCount(window time.Duration) (int64, error)
}

// Server webhook 接入 + 读取 API 的 HTTP 服务器
// 上游只认 JSON body 里的 status 字段，不看 HTTP 状态码，
// 所以所有响应一律 200，这是与上游的行为契约，不可更改
type Server struct {
	addr      string
	server    *http.Server
	processor *Processor
	queries   *query.Handler
	streamWS  http.HandlerFunc // 可为 nil
	hot       HotCounter
	trades    RecentCounter
	movements RecentCounter
	startTime time.Time
}

// NewServer 创建 HTTP 服务器
func NewServer(cfg config.Server, processor *Processor, queries *query.Handler, streamWS http.HandlerFunc, hot HotCounter, trades, movements RecentCounter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		addr:      cfg.ListenAddr,
		processor: processor,
		queries:   queries,
		streamWS:  streamWS,
		hot:       hot,
		trades:    trades,
		movements: movements,
		startTime: time.Now(),
	}

	// webhook 接入端点
	mux.HandleFunc("POST /webhooks/trades", s.handleTrades)
	mux.HandleFunc("POST /webhooks/whale-activity", s.handleWhaleActivity)

	// 读取端点（只读热存储）
	mux.HandleFunc("GET /api/trades", queries.Trades)
	mux.HandleFunc("GET /api/whale-movements", queries.WhaleMovements)

	// 健康检查与指标
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// 实时推送
	if streamWS != nil {
		mux.HandleFunc("GET /ws/stream", streamWS)
	}

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start 启动HTTP服务器
func (s *Server) Start() {
	logger.Info().Str("addr", s.addr).Msg("ingest server starting")

	goplus.Go(func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ingest server error")
		}
	})
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ackResponse webhook 确认响应
type ackResponse struct {
	Status    string `json:"status"` // accepted / error / success
	Message   string `json:"message,omitempty"`
	Received  int    `json:"received,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleTrades 处理 POST /webhooks/trades
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	s.handleWebhook(w, r, "trades", s.processor.SubmitTrades)
}

// handleWhaleActivity 处理 POST /webhooks/whale-activity
func (s *Server) handleWhaleActivity(w http.ResponseWriter, r *http.Request) {
	s.handleWebhook(w, r, "movements", s.processor.SubmitWhaleMovements)
}

// handleWebhook 响应路径上只做解析，绝不等待任何存储操作
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request, listKey string, submit func([]gjson.Result, string)) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeAck(w, ackResponse{Status: "error", Error: "read body failed"})
		return
	}

	if !gjson.ValidBytes(body) {
		s.writeAck(w, ackResponse{Status: "error", Error: "invalid JSON body"})
		return
	}
	parsed := gjson.ParseBytes(body)

	// 存活探测：不碰存储直接回 PONG
	if parsed.Get("message").String() == "PING" {
		s.writeAck(w, ackResponse{Status: "success", Message: "PONG"})
		return
	}

	batch := extractBatch(parsed, listKey)
	if len(batch) == 0 {
		s.writeAck(w, ackResponse{Status: "success", Message: "PONG"})
		return
	}

	requestID := uuid.NewString()
	s.writeAck(w, ackResponse{
		Status:    "accepted",
		Received:  len(batch),
		RequestID: requestID,
	})

	// 确认已经写出，之后的一切都是 fire-and-forget
	submit(batch, requestID)
}

// extractBatch 取出记录数组：裸数组或对象里的约定字段
func extractBatch(parsed gjson.Result, listKey string) []gjson.Result {
	if parsed.IsArray() {
		return parsed.Array()
	}
	for _, key := range []string{listKey, "data", "events"} {
		if v := parsed.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// healthStatus /health 响应
type healthStatus struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Master struct {
		Trades5m         int64 `json:"trades_5m"`
		WhaleMovements5m int64 `json:"whale_movements_5m"`
	} `json:"master"`
	Hot struct {
		Trades         int64 `json:"trades"`
		WhaleMovements int64 `json:"whale_movements"`
	} `json:"hot"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// healthHandler 返回两个存储的近况：主库最近 5 分钟入库数 + 热存储驻留行数
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UnixMilli(),
	}

	const window = 5 * time.Minute
	if n, err := s.trades.RecentCount(window); err != nil {
		status.Status = "degraded"
		status.Error = err.Error()
	} else {
		status.Master.Trades5m = n
	}
	if n, err := s.movements.RecentCount(window); err != nil {
		status.Status = "degraded"
		status.Error = err.Error()
	} else {
		status.Master.WhaleMovements5m = n
	}

	if trades, movements, err := s.hot.Counts(); err != nil {
		status.Status = "degraded"
		status.Error = err.Error()
	} else {
		status.Hot.Trades = trades
		status.Hot.WhaleMovements = movements
		monitor.GetMetrics().SetHotRows("trade", trades)
		monitor.GetMetrics().SetHotRows("whale_movement", movements)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (s *Server) writeAck(w http.ResponseWriter, ack ackResponse) {
	ack.Timestamp = time.Now().UnixMilli()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ack); err != nil {
		logger.Error().Err(err).Msg("write webhook ack failed")
	}
}
