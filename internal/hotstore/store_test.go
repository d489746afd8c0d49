package hotstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utrading/utrading-sol-ingest/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func writeTrades(t *testing.T, s *Store, n int, now time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		bt := now.Unix() + int64(i)
		row := &models.HotTrade{
			ID:            s.AllocTradeID(),
			Signature:     fmt.Sprintf("sig-%d", i),
			WalletAddress: "addr1",
			Direction:     "buy",
			BlockTime:     &bt,
			CreatedAt:     now,
		}
		require.NoError(t, s.WriteTrade(row))
	}
}

// TestAllocID_Monotonic 分配器并发下严格递增不重复
func TestAllocID_Monotonic(t *testing.T) {
	s := newTestStore(t)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	ids := make(chan int64, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- s.AllocTradeID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)

	// 两个实体的编号空间互相独立
	assert.Equal(t, int64(1), s.AllocMovementID())
}

// TestRecentTrades_Ordering 窗口查询最新在前
func TestRecentTrades_Ordering(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeTrades(t, s, 5, now)

	rows, err := s.RecentTrades(3, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(5), rows[0].ID)
	assert.Equal(t, int64(4), rows[1].ID)
	assert.Equal(t, int64(3), rows[2].ID)
}

// TestRecentTrades_Window block_time 上下界过滤
func TestRecentTrades_Window(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeTrades(t, s, 10, now) // block_time = now..now+9

	start := now.Unix() + 2
	end := now.Unix() + 5

	rows, err := s.RecentTrades(100, &start, &end)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		require.NotNil(t, r.BlockTime)
		assert.GreaterOrEqual(t, *r.BlockTime, start)
		assert.LessOrEqual(t, *r.BlockTime, end)
	}
}

// TestTradesAfter_Cursor 增量游标：升序、不重不漏
func TestTradesAfter_Cursor(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeTrades(t, s, 7, now)

	// 第一页
	page1, err := s.TradesAfter(0, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	assert.Equal(t, int64(1), page1[0].ID)
	assert.Equal(t, int64(3), page1[2].ID)

	// 用上一页最大 id 续读
	page2, err := s.TradesAfter(page1[len(page1)-1].ID, 3)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, int64(4), page2[0].ID)

	// 两页无交集
	seen := make(map[int64]bool)
	for _, r := range append(page1, page2...) {
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}

	// 读到尾部
	page3, err := s.TradesAfter(page2[len(page2)-1].ID, 3)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, int64(7), page3[0].ID)

	// 游标超过尾部返回空集而非报错
	empty, err := s.TradesAfter(999, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestWriteTrade_DuplicateSignature 热存储签名唯一
func TestWriteTrade_DuplicateSignature(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	row := &models.HotTrade{ID: s.AllocTradeID(), Signature: "dup", WalletAddress: "a", Direction: "buy", CreatedAt: now}
	require.NoError(t, s.WriteTrade(row))

	again := &models.HotTrade{ID: s.AllocTradeID(), Signature: "dup", WalletAddress: "a", Direction: "buy", CreatedAt: now}
	assert.Error(t, s.WriteTrade(again))
}

// TestSweepBefore 只删保留期之外的行
func TestSweepBefore(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	old := now.Add(-25 * time.Hour)

	// 两行过期，一行未过期
	for i, created := range []time.Time{old, old, now} {
		require.NoError(t, s.WriteTrade(&models.HotTrade{
			ID: s.AllocTradeID(), Signature: fmt.Sprintf("s%d", i),
			WalletAddress: "a", Direction: "buy", CreatedAt: created,
		}))
	}
	require.NoError(t, s.WriteWhaleMovement(&models.HotWhaleMovement{
		ID: s.AllocMovementID(), Signature: "m0", WalletAddress: "a",
		WhaleType: "whale", Direction: "in",
		EventTime: old, ReceivedAt: old, CreatedAt: old,
	}))

	trades, movements, err := s.SweepBefore(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), trades)
	assert.Equal(t, int64(1), movements)

	tc, mc, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tc)
	assert.Equal(t, int64(0), mc)
}

// TestTrimExcess 数量兜底删最旧的行
func TestTrimExcess(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	writeTrades(t, s, 10, now)

	deleted, err := s.TrimExcess(6)
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	// 留下的是编号最大的 6 行
	rows, err := s.TradesAfter(0, 100)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, int64(5), rows[0].ID)

	// 未超限时不动
	deleted, err = s.TrimExcess(6)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

// TestHotRow_RoundTrip 含指令轨迹的行写入读回不丢字段
func TestHotRow_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	data := "3xQP"
	trade := &models.Trade{
		Signature:     "rt1",
		WalletAddress: "addr",
		Direction:     "buy",
		Amount:        1.5,
		Instructions: []models.Instruction{
			{ProgramID: "TokenkegQ"},
			{ProgramID: "JUP6Lkb", Base58Data: &data, Accounts: []byte(`[0,1,2]`)},
		},
	}
	require.NoError(t, s.WriteTrade(trade.HotRow(s.AllocTradeID(), now)))

	rows, err := s.RecentTrades(1, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, "rt1", got.Signature)
	require.Len(t, got.Instructions, 2)
	assert.Equal(t, "TokenkegQ", got.Instructions[0].ProgramID)
	require.NotNil(t, got.Instructions[1].Base58Data)
	assert.Equal(t, "3xQP", *got.Instructions[1].Base58Data)
	assert.JSONEq(t, `[0,1,2]`, string(got.Instructions[1].Accounts))
}
