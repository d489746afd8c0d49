package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/utrading/utrading-sol-ingest/internal/monitor"
	"github.com/utrading/utrading-sol-ingest/pkg/concurrent"
	"github.com/utrading/utrading-sol-ingest/pkg/goplus"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 64
)

// Envelope 推送给客户端的消息
type Envelope struct {
	Type      string      `json:"type"` // trade / whale_movement
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 实时推送中心
// 每条成功入库的记录广播给所有看板客户端；
// 发送缓冲满的客户端直接断开，绝不反压入库链路
type Hub struct {
	upgrader websocket.Upgrader
	clients  concurrent.Map[*client, struct{}]
	done     chan struct{}
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 看板来源不固定，接入鉴权不在本服务范围内
			CheckOrigin: func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// HandleWS 处理 /ws/stream 升级请求
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.clients.Store(c, struct{}{})
	monitor.GetMetrics().SetStreamClients(h.clients.Len())

	logger.Info().Str("remote", r.RemoteAddr).Int64("clients", h.clients.Len()).Msg("stream client connected")

	goplus.Go(func() { h.writeLoop(c) })
	goplus.Go(func() { h.readLoop(c) })
}

// Broadcast 广播一条入库记录
func (h *Hub) Broadcast(eventType string, data interface{}) {
	if h.clients.Len() == 0 {
		return
	}

	payload, err := json.Marshal(Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logger.Error().Err(err).Str("type", eventType).Msg("marshal stream envelope failed")
		return
	}

	h.clients.Range(func(c *client, _ struct{}) bool {
		select {
		case c.send <- payload:
		default:
			// 发送缓冲满说明客户端已经跟不上，丢弃它
			logger.Warn().Msg("stream client too slow, dropping")
			h.drop(c)
		}
		return true
	})
}

// ClientCount 当前客户端数
func (h *Hub) ClientCount() int64 {
	return h.clients.Len()
}

// Close 关闭推送中心，断开所有客户端
func (h *Hub) Close() {
	close(h.done)
	h.clients.Range(func(c *client, _ struct{}) bool {
		h.drop(c)
		return true
	})
}

func (h *Hub) drop(c *client) {
	// send 通道不关闭，避免与并发广播竞争；
	// writeLoop 靠连接错误或 ping 失败退出
	if _, loaded := h.clients.LoadAndDelete(c); loaded {
		c.conn.Close()
		monitor.GetMetrics().SetStreamClients(h.clients.Len())
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		case <-h.done:
			return
		}
	}
}

// readLoop 只为感知客户端断开，入站消息全部丢弃
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
