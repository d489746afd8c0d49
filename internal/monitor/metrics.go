package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 指标收集器
type Metrics struct {
	recordsReceived  *prometheus.CounterVec
	recordsInserted  *prometheus.CounterVec
	recordsDuplicate *prometheus.CounterVec
	recordsFailed    *prometheus.CounterVec
	hotWriteFailures *prometheus.CounterVec
	archiveFailures  *prometheus.CounterVec
	sweepDeleted     *prometheus.CounterVec
	natsPublished    prometheus.Counter
	natsErrors       prometheus.Counter
	natsConnected    prometheus.Gauge
	hotRows          *prometheus.GaugeVec
	streamClients    prometheus.Gauge
	poolRunning      prometheus.Gauge
	batchSize        prometheus.Histogram
	batchDuration    prometheus.Histogram
}

// NewMetrics 创建指标收集器
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		recordsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_received_total",
				Help:      "Webhook 收到的记录总数",
			},
			[]string{"entity"},
		),
		recordsInserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_inserted_total",
				Help:      "主库成功入库的记录总数",
			},
			[]string{"entity"},
		),
		recordsDuplicate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_duplicate_total",
				Help:      "自然键重复的记录总数（幂等跳过）",
			},
			[]string{"entity"},
		),
		recordsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_failed_total",
				Help:      "处理失败的记录总数（按原因）",
			},
			[]string{"entity", "reason"}, // validation, schema, storage
		),
		hotWriteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hot_write_failures_total",
				Help:      "热存储写入失败总数（非致命）",
			},
			[]string{"entity"},
		),
		archiveFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_failures_total",
				Help:      "归档副本写入失败总数（非致命）",
			},
			[]string{"entity"},
		),
		sweepDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_deleted_total",
				Help:      "保留期清理删除的热存储行总数",
			},
			[]string{"entity"},
		),
		natsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nats_published_total",
				Help:      "发布到 NATS 的消息总数",
			},
		),
		natsErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nats_errors_total",
				Help:      "NATS 发布失败总数",
			},
		),
		natsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nats_connected",
				Help:      "NATS 连接状态 (1=connected, 0=disconnected)",
			},
		),
		hotRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hot_rows",
				Help:      "热存储当前驻留行数",
			},
			[]string{"entity"},
		),
		streamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_clients",
				Help:      "当前 WebSocket 订阅客户端数",
			},
		),
		poolRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ingest_pool_running",
				Help:      "后台处理协程池当前占用数",
			},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_size",
				Help:      "单个 webhook 批次的记录数分布",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "批次后台处理耗时分布（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
	}

	prometheus.MustRegister(
		m.recordsReceived,
		m.recordsInserted,
		m.recordsDuplicate,
		m.recordsFailed,
		m.hotWriteFailures,
		m.archiveFailures,
		m.sweepDeleted,
		m.natsPublished,
		m.natsErrors,
		m.natsConnected,
		m.hotRows,
		m.streamClients,
		m.poolRunning,
		m.batchSize,
		m.batchDuration,
	)

	return m
}

// IncReceived 增加收到的记录计数
func (m *Metrics) IncReceived(entity string, n int) {
	m.recordsReceived.WithLabelValues(entity).Add(float64(n))
}

// IncInserted 增加入库计数
func (m *Metrics) IncInserted(entity string) {
	m.recordsInserted.WithLabelValues(entity).Inc()
}

// IncDuplicate 增加重复计数
func (m *Metrics) IncDuplicate(entity string) {
	m.recordsDuplicate.WithLabelValues(entity).Inc()
}

// IncFailed 增加失败计数
func (m *Metrics) IncFailed(entity, reason string) {
	m.recordsFailed.WithLabelValues(entity, reason).Inc()
}

// IncHotWriteFailure 增加热存储写入失败计数
func (m *Metrics) IncHotWriteFailure(entity string) {
	m.hotWriteFailures.WithLabelValues(entity).Inc()
}

// IncArchiveFailure 增加归档失败计数
func (m *Metrics) IncArchiveFailure(entity string) {
	m.archiveFailures.WithLabelValues(entity).Inc()
}

// AddSweepDeleted 增加清理删除行数
func (m *Metrics) AddSweepDeleted(entity string, n int64) {
	m.sweepDeleted.WithLabelValues(entity).Add(float64(n))
}

// IncNATSPublished 增加 NATS 发布计数
func (m *Metrics) IncNATSPublished() {
	m.natsPublished.Inc()
}

// IncNATSErrors 增加 NATS 发布失败计数
func (m *Metrics) IncNATSErrors() {
	m.natsErrors.Inc()
}

// SetNATSConnected 设置 NATS 连接状态
func (m *Metrics) SetNATSConnected(connected bool) {
	if connected {
		m.natsConnected.Set(1)
	} else {
		m.natsConnected.Set(0)
	}
}

// SetHotRows 设置热存储行数
func (m *Metrics) SetHotRows(entity string, n int64) {
	m.hotRows.WithLabelValues(entity).Set(float64(n))
}

// SetStreamClients 设置 WebSocket 客户端数
func (m *Metrics) SetStreamClients(n int64) {
	m.streamClients.Set(float64(n))
}

// SetPoolRunning 设置协程池占用数
func (m *Metrics) SetPoolRunning(n int) {
	m.poolRunning.Set(float64(n))
}

// ObserveBatch 观察一个批次的大小和处理耗时
func (m *Metrics) ObserveBatch(size int, seconds float64) {
	m.batchSize.Observe(float64(size))
	m.batchDuration.Observe(seconds)
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics 获取全局指标收集器
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics("sol_ingest")
	})
	return globalMetrics
}

// InitMetrics 初始化指标收集器（供main使用）
func InitMetrics() {
	GetMetrics()
}
