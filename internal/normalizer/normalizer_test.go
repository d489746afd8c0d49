package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// TestTrade_RequiredFields 测试必填字段校验
func TestTrade_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "完整记录",
			payload: `{"signature":"5KtP3","wallet_address":"7xKXtg","direction":"buy","amount":1.5}`,
			wantErr: false,
		},
		{
			name:    "缺少 signature",
			payload: `{"wallet_address":"7xKXtg","direction":"buy"}`,
			wantErr: true,
		},
		{
			name:    "缺少 wallet_address",
			payload: `{"signature":"5KtP3","direction":"buy"}`,
			wantErr: true,
		},
		{
			name:    "缺少 direction",
			payload: `{"signature":"5KtP3","wallet_address":"7xKXtg"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Trade(gjson.Parse(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestTrade_DirectionPassthrough Trade 不使用 in/out 词表，方向原样保留
func TestTrade_DirectionPassthrough(t *testing.T) {
	trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"sell"}`))
	require.NoError(t, err)
	assert.Equal(t, "sell", trade.Direction)
}

// TestTrade_OptionalNestedFields 可选嵌套字段整体缺失、部分缺失、显式 null 都要容忍
func TestTrade_OptionalNestedFields(t *testing.T) {
	t.Run("perp 快照完全缺失", func(t *testing.T) {
		trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"buy"}`))
		require.NoError(t, err)
		assert.Nil(t, trade.PerpPlatform)
		assert.Nil(t, trade.PerpSize)
		assert.Nil(t, trade.Instructions)
	})

	t.Run("perp 快照显式 null", func(t *testing.T) {
		trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"buy","perp_position":null}`))
		require.NoError(t, err)
		assert.Nil(t, trade.PerpPlatform)
	})

	t.Run("perp 快照部分字段", func(t *testing.T) {
		trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"buy",
			"perp_position":{"platform":"drift","size":2.5,"entry_price":null}}`))
		require.NoError(t, err)
		require.NotNil(t, trade.PerpPlatform)
		assert.Equal(t, "drift", *trade.PerpPlatform)
		require.NotNil(t, trade.PerpSize)
		assert.Equal(t, 2.5, *trade.PerpSize)
		assert.Nil(t, trade.PerpEntryPrice)
		assert.Nil(t, trade.PerpLeverage)
	})

	t.Run("完整 perp 快照", func(t *testing.T) {
		trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"buy",
			"perp_position":{"platform":"drift","direction":"long","size":2.5,"leverage":10,"entry_price":150.25,"liquidation_price":120.5}}`))
		require.NoError(t, err)
		require.NotNil(t, trade.PerpDirection)
		assert.Equal(t, "long", *trade.PerpDirection)
		require.NotNil(t, trade.PerpLeverage)
		assert.Equal(t, 10.0, *trade.PerpLeverage)
		require.NotNil(t, trade.PerpLiquidationPrice)
		assert.Equal(t, 120.5, *trade.PerpLiquidationPrice)
	})
}

// TestTrade_Instructions 指令轨迹：只有 program_id 的条目也要接受
func TestTrade_Instructions(t *testing.T) {
	trade, err := Trade(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","direction":"buy",
		"instructions":[
			{"program_id":"TokenkegQ"},
			{"program_id":"JUP6Lkb","base58_data":"3xQP","accounts":[0,1,2]},
			{"program_id":"whirLbM","accounts":[{"pubkey":"abc","is_signer":true},"def"]},
			{"base58_data":"orphan"}
		]}`))
	require.NoError(t, err)
	require.Len(t, trade.Instructions, 3) // 没有 program_id 的条目被丢弃

	// 只有 program_id 的条目，另两个字段为 null
	assert.Equal(t, "TokenkegQ", trade.Instructions[0].ProgramID)
	assert.Nil(t, trade.Instructions[0].Base58Data)
	assert.Nil(t, trade.Instructions[0].Accounts)

	// accounts 是索引数组，原样保留
	assert.JSONEq(t, `[0,1,2]`, string(trade.Instructions[1].Accounts))

	// accounts 是异构数组（对象+字符串），不强转形状
	assert.JSONEq(t, `[{"pubkey":"abc","is_signer":true},"def"]`, string(trade.Instructions[2].Accounts))
}

// TestWhaleMovement_DirectionNormalization 方向同义词归一化
func TestWhaleMovement_DirectionNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"sending", "out"},
		{"sent", "out"},
		{"outbound", "out"},
		{"receiving", "in"},
		{"received", "in"},
		{"inbound", "in"},
		{"in", "in"},
		{"out", "out"},
		{"teleporting", "teleporting"}, // 未识别取值原样透传，由存储边界兜底
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDirection(tt.raw), "direction %q", tt.raw)
	}
}

// TestWhaleMovement_AbsChangeBackfill 上游把 0 当 "未提供"，需要回填
func TestWhaleMovement_AbsChangeBackfill(t *testing.T) {
	m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
		"direction":"sending","sol_change":-12.5,"abs_change":0}`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 12.5, m.AbsChange)
	assert.Equal(t, "out", m.Direction)
}

// TestWhaleMovement_AbsChangeKept 上游给出的非零绝对值不覆盖
func TestWhaleMovement_AbsChangeKept(t *testing.T) {
	m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
		"direction":"in","sol_change":-12.5,"abs_change":13.0}`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 13.0, m.AbsChange)
}

// TestWhaleMovement_TimestampFallback 时间解析失败退回接收时刻，不拒收
func TestWhaleMovement_TimestampFallback(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("合法 RFC3339", func(t *testing.T) {
		m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
			"direction":"in","timestamp":"2025-05-31T08:30:00Z"}`), now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 31, 8, 30, 0, 0, time.UTC), m.EventTime)
	})

	t.Run("垃圾时间串", func(t *testing.T) {
		m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
			"direction":"in","timestamp":"not-a-time"}`), now)
		require.NoError(t, err)
		assert.Equal(t, now, m.EventTime)
	})

	t.Run("缺失时间", func(t *testing.T) {
		m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
			"direction":"in"}`), now)
		require.NoError(t, err)
		assert.Equal(t, now, m.EventTime)
		assert.Equal(t, now, m.ReceivedAt)
	})
}

// TestWhaleMovement_RawPayloadPreserved 原始报文保留用于排障
func TestWhaleMovement_RawPayloadPreserved(t *testing.T) {
	payload := `{"signature":"sig1","wallet_address":"addr1","whale_type":"whale","direction":"in","extra_field":42}`
	m, err := WhaleMovement(gjson.Parse(payload), time.Now())
	require.NoError(t, err)
	require.NotNil(t, m.RawPayload)
	assert.JSONEq(t, payload, *m.RawPayload)
}

// TestOptFloat_StringNumbers 上游数值字段可能以字符串形式给出
func TestOptFloat_StringNumbers(t *testing.T) {
	m, err := WhaleMovement(gjson.Parse(`{"signature":"sig1","wallet_address":"addr1","whale_type":"whale",
		"direction":"in","sol_balance":"1234.5","fee":"0.000005"}`), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1234.5, m.SolBalance)
	assert.Equal(t, 0.000005, m.Fee)
}
