package nats

import (
	"encoding/json"

	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

const TopicWhaleMovements = "sol.whale.movements"

// WhaleMovementEvent 下游消费的大户变动消息
type WhaleMovementEvent struct {
	Signature     string  `json:"signature"`      // 交易签名
	WalletAddress string  `json:"wallet_address"` // 监控地址
	WhaleType     string  `json:"whale_type"`     // 规模档位
	Direction     string  `json:"direction"`      // in/out
	Significance  string  `json:"significance"`   // 变动档位
	SolChange     float64 `json:"sol_change"`     // 带符号变动量
	AbsChange     float64 `json:"abs_change"`     // 变动量绝对值
	SolBalance    float64 `json:"sol_balance"`    // 当前余额
	BlockTime     *int64  `json:"block_time"`     // 块时间(unix秒)
	Timestamp     int64   `json:"timestamp"`      // 事件时间(unix毫秒)
}

// NewWhaleMovementEvent 由主库记录生成消息
func NewWhaleMovementEvent(m *models.WhaleMovement) *WhaleMovementEvent {
	return &WhaleMovementEvent{
		Signature:     m.Signature,
		WalletAddress: m.WalletAddress,
		WhaleType:     m.WhaleType,
		Direction:     m.Direction,
		Significance:  m.Significance,
		SolChange:     m.SolChange,
		AbsChange:     m.AbsChange,
		SolBalance:    m.SolBalance,
		BlockTime:     m.BlockTime,
		Timestamp:     m.EventTime.UnixMilli(),
	}
}

// Marshal 序列化消息
func (e *WhaleMovementEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.Error().Err(err).Msg("marshal whale movement event failed")
		return nil, err
	}
	return data, nil
}
