package cleaner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utrading/utrading-sol-ingest/internal/hotstore"
	"github.com/utrading/utrading-sol-ingest/internal/models"
)

func seedTrades(t *testing.T, s *hotstore.Store, n int, created time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.WriteTrade(&models.HotTrade{
			ID:            s.AllocTradeID(),
			Signature:     fmt.Sprintf("sig-%d-%d", created.UnixNano(), i),
			WalletAddress: "addr",
			Direction:     "buy",
			CreatedAt:     created,
		}))
	}
}

// TestClean_RetentionSweep 保留窗口外的行被删，窗口内保留
func TestClean_RetentionSweep(t *testing.T) {
	s, err := hotstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	now := time.Now()
	seedTrades(t, s, 3, now.Add(-25*time.Hour))
	seedTrades(t, s, 2, now)

	c := NewCleaner(s, 24*time.Hour, time.Hour, 0)
	c.clean()

	trades, _, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(2), trades)
}

// TestClean_CountBackstop 行数兜底在保留期内也生效
func TestClean_CountBackstop(t *testing.T) {
	s, err := hotstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	seedTrades(t, s, 10, time.Now())

	c := NewCleaner(s, 24*time.Hour, time.Hour, 4)
	c.clean()

	trades, _, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, int64(4), trades)
}

// TestCleaner_StartStop 启动即清理一轮，Stop 幂等退出
func TestCleaner_StartStop(t *testing.T) {
	s, err := hotstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	seedTrades(t, s, 3, time.Now().Add(-48*time.Hour))

	c := NewCleaner(s, 24*time.Hour, time.Hour, 0)
	c.Start()

	require.Eventually(t, func() bool {
		trades, _, err := s.Counts()
		return err == nil && trades == 0
	}, time.Second, 10*time.Millisecond)

	c.Stop()
}

// TestNewCleaner_Defaults 非法参数回退到缺省值
func TestNewCleaner_Defaults(t *testing.T) {
	c := NewCleaner(nil, 0, -time.Second, 0)
	assert.Equal(t, 24*time.Hour, c.retention)
	assert.Equal(t, time.Hour, c.interval)
}
