package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utrading/utrading-sol-ingest/config"
	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/internal/query"
)

type fakeHotCounter struct {
	trades, movements int64
	err               error
}

func (f *fakeHotCounter) Counts() (int64, int64, error) {
	return f.trades, f.movements, f.err
}

type fakeRecentCounter struct {
	n   int64
	err error
}

func (f *fakeRecentCounter) RecentCount(_ time.Duration) (int64, error) {
	return f.n, f.err
}

type serverFixture struct {
	server *Server
	master *fakeMaster
	hot    *fakeHot
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()

	hot := &fakeHot{}
	master := &fakeMaster{}
	p := newTestProcessor(t, hot, master, nil, nil)

	qh := query.NewHandler(&nopQueryStore{}, query.Config{})
	s := NewServer(
		config.Server{ListenAddr: ":0"},
		p, qh, nil,
		&fakeHotCounter{trades: 3, movements: 1},
		&fakeRecentCounter{n: 12},
		&fakeRecentCounter{n: 4},
	)
	return &serverFixture{server: s, master: master, hot: hot}
}

type nopQueryStore struct{}

func (nopQueryStore) RecentTrades(int, *int64, *int64) ([]*models.HotTrade, error) {
	return nil, nil
}

func (nopQueryStore) TradesAfter(int64, int) ([]*models.HotTrade, error) {
	return nil, nil
}

func (nopQueryStore) RecentWhaleMovements(int, *int64, *int64) ([]*models.HotWhaleMovement, error) {
	return nil, nil
}

func postJSON(t *testing.T, fx *serverFixture, path, body string) (*httptest.ResponseRecorder, ackResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.server.server.Handler.ServeHTTP(rec, req)

	var ack ackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	return rec, ack
}

// TestWebhook_Ping 存活探测直接回 PONG
func TestWebhook_Ping(t *testing.T) {
	fx := newTestServer(t)

	rec, ack := postJSON(t, fx, "/webhooks/trades", `{"message":"PING"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", ack.Status)
	assert.Equal(t, "PONG", ack.Message)
}

// TestWebhook_MalformedJSON 解析失败也回 200，body 里带 error
func TestWebhook_MalformedJSON(t *testing.T) {
	fx := newTestServer(t)

	rec, ack := postJSON(t, fx, "/webhooks/trades", `{not json`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", ack.Status)
	assert.NotEmpty(t, ack.Error)
}

// TestWebhook_EmptyBatch 空批次按探测处理
func TestWebhook_EmptyBatch(t *testing.T) {
	fx := newTestServer(t)

	for _, body := range []string{`{}`, `[]`, `{"trades":[]}`, `{"data":[]}`} {
		_, ack := postJSON(t, fx, "/webhooks/trades", body)
		assert.Equal(t, "success", ack.Status, "body %s", body)
		assert.Equal(t, "PONG", ack.Message, "body %s", body)
	}
}

// TestWebhook_BareArray 裸数组批次被接收并异步落库
func TestWebhook_BareArray(t *testing.T) {
	fx := newTestServer(t)

	_, ack := postJSON(t, fx, "/webhooks/trades",
		`[{"signature":"s1","wallet_address":"a1","direction":"buy"},
		  {"signature":"s2","wallet_address":"a2","direction":"sell"}]`)

	assert.Equal(t, "accepted", ack.Status)
	assert.Equal(t, 2, ack.Received)
	assert.NotEmpty(t, ack.RequestID)

	require.Eventually(t, func() bool {
		return fx.server.processor.dedup.IsSeen("s1") && fx.server.processor.dedup.IsSeen("s2")
	}, time.Second, 10*time.Millisecond)

	assert.Len(t, fx.master.trades, 2)
	assert.Len(t, fx.hot.trades, 2)
}

// TestWebhook_WrappedBatch 对象包装的批次按约定字段取数组
func TestWebhook_WrappedBatch(t *testing.T) {
	fx := newTestServer(t)

	tests := []struct {
		path string
		body string
		sig  string
	}{
		{"/webhooks/trades", `{"trades":[{"signature":"w1","wallet_address":"a","direction":"buy"}]}`, "w1"},
		{"/webhooks/trades", `{"data":[{"signature":"w2","wallet_address":"a","direction":"buy"}]}`, "w2"},
		{"/webhooks/whale-activity", `{"events":[{"signature":"w3","wallet_address":"a","whale_type":"whale","direction":"in"}]}`, "w3"},
		{"/webhooks/whale-activity", `{"movements":[{"signature":"w4","wallet_address":"a","whale_type":"whale","direction":"in"}]}`, "w4"},
	}

	for _, tt := range tests {
		_, ack := postJSON(t, fx, tt.path, tt.body)
		assert.Equal(t, "accepted", ack.Status, "body %s", tt.body)
		assert.Equal(t, 1, ack.Received)

		sig := tt.sig
		require.Eventually(t, func() bool {
			return fx.server.processor.dedup.IsSeen(sig)
		}, time.Second, 10*time.Millisecond, "signature %s", sig)
	}
}

// TestHealth 健康检查汇总两个存储的近况
func TestHealth(t *testing.T) {
	fx := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	fx.server.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, int64(12), status.Master.Trades5m)
	assert.Equal(t, int64(4), status.Master.WhaleMovements5m)
	assert.Equal(t, int64(3), status.Hot.Trades)
	assert.Equal(t, int64(1), status.Hot.WhaleMovements)
}

// TestHealth_Degraded 任一存储报错时降级但不 5xx
func TestHealth_Degraded(t *testing.T) {
	hot := &fakeHot{}
	master := &fakeMaster{}
	p := newTestProcessor(t, hot, master, nil, nil)

	s := NewServer(
		config.Server{ListenAddr: ":0"},
		p, query.NewHandler(&nopQueryStore{}, query.Config{}), nil,
		&fakeHotCounter{err: errors.New("store closed")},
		&fakeRecentCounter{n: 1},
		&fakeRecentCounter{n: 1},
	)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.NotEmpty(t, status.Error)
}
