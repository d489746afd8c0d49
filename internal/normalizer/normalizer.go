package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/utrading/utrading-sol-ingest/internal/models"
	"github.com/utrading/utrading-sol-ingest/pkg/logger"
)

// ValidationError 必填字段缺失
type ValidationError struct {
	Entity string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Entity, e.Field)
}

// 上游对 in/out 的同义词
var directionSynonyms = map[string]string{
	"sending":   "out",
	"sent":      "out",
	"outbound":  "out",
	"receiving": "in",
	"received":  "in",
	"inbound":   "in",
}

// NormalizeDirection 归一化大户变动方向
// 未识别的取值原样透传，由存储边界的词表校验兜底
func NormalizeDirection(raw string) string {
	if v, ok := directionSynonyms[strings.ToLower(raw)]; ok {
		return v
	}
	return raw
}

// Trade 把一条松散的上游记录转换为规范 Trade
func Trade(raw gjson.Result) (*models.Trade, error) {
	sig := raw.Get("signature").String()
	wallet := raw.Get("wallet_address").String()
	direction := raw.Get("direction").String()

	switch {
	case sig == "":
		return nil, &ValidationError{Entity: "trade", Field: "signature"}
	case wallet == "":
		return nil, &ValidationError{Entity: "trade", Field: "wallet_address"}
	case direction == "":
		return nil, &ValidationError{Entity: "trade", Field: "direction"}
	}
	checkBase58("wallet_address", wallet)

	t := &models.Trade{
		Signature:     sig,
		WalletAddress: wallet,
		Direction:     direction,
		Amount:        optFloat(raw, "amount"),
		TokenSymbol:   raw.Get("token_symbol").String(),
		TokenAmount:   optFloat(raw, "token_amount"),
		Price:         optFloat(raw, "price"),
		BlockHeight:   optInt(raw, "block_height"),
		Slot:          optInt(raw, "slot"),
		BlockTime:     optInt(raw, "block_time"),
		PerpSnapshot:  perpSnapshot(raw.Get("perp_position")),
		Instructions:  instructions(raw.Get("instructions")),
	}

	return t, nil
}

// WhaleMovement 把一条松散的上游记录转换为规范 WhaleMovement
func WhaleMovement(raw gjson.Result, now time.Time) (*models.WhaleMovement, error) {
	sig := raw.Get("signature").String()
	wallet := raw.Get("wallet_address").String()
	whaleType := raw.Get("whale_type").String()

	switch {
	case sig == "":
		return nil, &ValidationError{Entity: "whale_movement", Field: "signature"}
	case wallet == "":
		return nil, &ValidationError{Entity: "whale_movement", Field: "wallet_address"}
	case whaleType == "":
		return nil, &ValidationError{Entity: "whale_movement", Field: "whale_type"}
	}
	checkBase58("wallet_address", wallet)

	m := &models.WhaleMovement{
		Signature:       sig,
		WalletAddress:   wallet,
		WhaleType:       whaleType,
		Direction:       NormalizeDirection(raw.Get("direction").String()),
		Significance:    raw.Get("significance").String(),
		SolBalance:      optFloat(raw, "sol_balance"),
		PreviousBalance: optFloat(raw, "previous_balance"),
		SolChange:       optFloat(raw, "sol_change"),
		AbsChange:       optFloat(raw, "abs_change"),
		PercentChange:   optFloat(raw, "percent_change"),
		Fee:             optFloat(raw, "fee"),
		BlockTime:       optInt(raw, "block_time"),
		EventTime:       parseTime(raw.Get("timestamp").String(), now),
		ReceivedAt:      parseTime(raw.Get("received_at").String(), now),
		Slot:            optInt(raw, "slot"),
		PerpSnapshot:    perpSnapshot(raw.Get("perp_position")),
	}

	// 上游把 0 当 "未提供"，用带符号变动量回填
	if m.AbsChange == 0 && m.SolChange != 0 {
		if m.SolChange < 0 {
			m.AbsChange = -m.SolChange
		} else {
			m.AbsChange = m.SolChange
		}
	}

	// 上游没有单独的 raw 字段，整条入站记录原样保留用于排障
	if payload := raw.Raw; payload != "" {
		m.RawPayload = &payload
	}

	return m, nil
}

// perpSnapshot 容忍整体缺失、部分缺失、显式 null 的永续快照
func perpSnapshot(v gjson.Result) models.PerpSnapshot {
	if !v.Exists() || v.Type == gjson.Null {
		return models.PerpSnapshot{}
	}

	return models.PerpSnapshot{
		PerpPlatform:         optStrIn(v, "platform"),
		PerpDirection:        optStrIn(v, "direction"),
		PerpSize:             optFloatIn(v, "size"),
		PerpLeverage:         optFloatIn(v, "leverage"),
		PerpEntryPrice:       optFloatIn(v, "entry_price"),
		PerpLiquidationPrice: optFloatIn(v, "liquidation_price"),
	}
}

// instructions 解析原始指令轨迹
// accounts 在链路上形态不定，原样保留为 JSON，不强转为统一形状；
// 缺少 program_id 的条目丢弃（记日志）
func instructions(v gjson.Result) []models.Instruction {
	if !v.Exists() || !v.IsArray() {
		return nil
	}

	var out []models.Instruction
	v.ForEach(func(_, item gjson.Result) bool {
		programID := item.Get("program_id").String()
		if programID == "" {
			logger.Debug().Str("instruction", item.Raw).Msg("instruction without program_id dropped")
			return true
		}

		ins := models.Instruction{ProgramID: programID}
		if d := item.Get("base58_data"); d.Exists() && d.Type != gjson.Null {
			s := d.String()
			ins.Base58Data = &s
		}
		if a := item.Get("accounts"); a.Exists() && a.Type != gjson.Null {
			ins.Accounts = json.RawMessage(a.Raw)
		}
		out = append(out, ins)
		return true
	})

	return out
}

// parseTime 解析 ISO-8601 风格时间串，失败时退回接收时刻，绝不因此拒收
func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	logger.Debug().Str("value", s).Msg("timestamp parse failed, using ingest time")
	return fallback
}

// checkBase58 形状检查，只告警不拒收
func checkBase58(field, v string) {
	if _, err := base58.Decode(v); err != nil {
		logger.Warn().Str("field", field).Str("value", v).Msg("value is not valid base58")
	}
}

func optFloat(raw gjson.Result, key string) float64 {
	v := raw.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return 0
	}
	return cast.ToFloat64(v.Value())
}

func optInt(raw gjson.Result, key string) *int64 {
	v := raw.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	n := cast.ToInt64(v.Value())
	return &n
}

func optStrIn(v gjson.Result, key string) *string {
	f := v.Get(key)
	if !f.Exists() || f.Type == gjson.Null || f.String() == "" {
		return nil
	}
	s := f.String()
	return &s
}

func optFloatIn(v gjson.Result, key string) *float64 {
	f := v.Get(key)
	if !f.Exists() || f.Type == gjson.Null {
		return nil
	}
	n := cast.ToFloat64(f.Value())
	return &n
}
