package models

import (
	"encoding/json"
	"time"
)

// Instruction 原始指令轨迹中的一条指令
// Accounts 在链路上形态不定（索引/公钥/对象数组），按原样保留
type Instruction struct {
	ProgramID  string          `json:"program_id"`
	Base58Data *string         `json:"base58_data"`
	Accounts   json.RawMessage `json:"accounts"`
}

// PerpSnapshot 可选的永续仓位快照，六个字段均可单独为空
type PerpSnapshot struct {
	PerpPlatform         *string  `gorm:"column:perp_platform;type:varchar(16);comment:永续平台" json:"perp_platform"`
	PerpDirection        *string  `gorm:"column:perp_direction;type:varchar(8);comment:仓位方向 long/short" json:"perp_direction"`
	PerpSize             *float64 `gorm:"column:perp_size;type:decimal(28,12);comment:仓位数量" json:"perp_size"`
	PerpLeverage         *float64 `gorm:"column:perp_leverage;type:decimal(10,2);comment:杠杆倍数" json:"perp_leverage"`
	PerpEntryPrice       *float64 `gorm:"column:perp_entry_price;type:decimal(28,12);comment:开仓价" json:"perp_entry_price"`
	PerpLiquidationPrice *float64 `gorm:"column:perp_liquidation_price;type:decimal(28,12);comment:强平价" json:"perp_liquidation_price"`
}

// Trade 现货买卖事件（主库）
type Trade struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// 自然键，由上游分配，全局唯一
	Signature     string `gorm:"type:varchar(96);not null;uniqueIndex:uidx_signature;comment:交易签名" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null;index:idx_wallet;comment:钱包地址" json:"wallet_address"`
	Direction     string `gorm:"type:varchar(8);not null;comment:方向 buy/sell" json:"direction"`

	// 交易信息
	Amount      float64 `gorm:"type:decimal(28,12);not null;default:0;comment:基础资产数量" json:"amount"`
	TokenSymbol string  `gorm:"type:varchar(24);not null;default:'';comment:计价资产符号" json:"token_symbol"`
	TokenAmount float64 `gorm:"type:decimal(28,12);not null;default:0;comment:计价资产数量" json:"token_amount"`
	Price       float64 `gorm:"type:decimal(28,12);not null;default:0;comment:单价" json:"price"`

	// 链上位置
	BlockHeight *int64 `gorm:"comment:块高度" json:"block_height"`
	Slot        *int64 `gorm:"index;comment:slot" json:"slot"`
	BlockTime   *int64 `gorm:"index;comment:块时间(unix秒)" json:"block_time"`

	PerpSnapshot `gorm:"embedded"`

	// 原始指令轨迹，可为空
	Instructions []Instruction `gorm:"type:json;serializer:json" json:"instructions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_created;comment:入库时间" json:"created_at"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// TradeArchive 交易审计副本，主键为主库分配的 ID
type TradeArchive struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	Signature     string `gorm:"type:varchar(96);not null;index;comment:交易签名" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null;comment:钱包地址" json:"wallet_address"`
	Direction     string `gorm:"type:varchar(8);not null" json:"direction"`

	Amount      float64 `gorm:"type:decimal(28,12);not null;default:0" json:"amount"`
	TokenSymbol string  `gorm:"type:varchar(24);not null;default:''" json:"token_symbol"`
	TokenAmount float64 `gorm:"type:decimal(28,12);not null;default:0" json:"token_amount"`
	Price       float64 `gorm:"type:decimal(28,12);not null;default:0" json:"price"`

	BlockHeight *int64 `json:"block_height"`
	Slot        *int64 `json:"slot"`
	BlockTime   *int64 `json:"block_time"`

	PerpSnapshot `gorm:"embedded"`

	Instructions []Instruction `gorm:"type:json;serializer:json" json:"instructions,omitempty"`

	ArchivedAt time.Time `gorm:"autoCreateTime;comment:归档时间" json:"archived_at"`
}

// TableName 指定表名
func (TradeArchive) TableName() string {
	return "trade_archive"
}

// Archive 由主库记录生成审计副本
func (t *Trade) Archive() *TradeArchive {
	return &TradeArchive{
		ID:            t.ID,
		Signature:     t.Signature,
		WalletAddress: t.WalletAddress,
		Direction:     t.Direction,
		Amount:        t.Amount,
		TokenSymbol:   t.TokenSymbol,
		TokenAmount:   t.TokenAmount,
		Price:         t.Price,
		BlockHeight:   t.BlockHeight,
		Slot:          t.Slot,
		BlockTime:     t.BlockTime,
		PerpSnapshot:  t.PerpSnapshot,
		Instructions:  t.Instructions,
	}
}
