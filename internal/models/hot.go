package models

import "time"

// 热存储行：在主库字段之外携带分配器 id 和 created_at，
// 仅用于保留期清理和增量同步游标。
// 两套主键空间相互独立，不能混用。

// HotTrade 热存储中的交易行
type HotTrade struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	Signature     string `gorm:"type:varchar(96);not null;uniqueIndex:uidx_hot_trade_signature" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null;index" json:"wallet_address"`
	Direction     string `gorm:"type:varchar(8);not null" json:"direction"`

	Amount      float64 `gorm:"not null;default:0" json:"amount"`
	TokenSymbol string  `gorm:"type:varchar(24);not null;default:''" json:"token_symbol"`
	TokenAmount float64 `gorm:"not null;default:0" json:"token_amount"`
	Price       float64 `gorm:"not null;default:0" json:"price"`

	BlockHeight *int64 `json:"block_height"`
	Slot        *int64 `json:"slot"`
	BlockTime   *int64 `gorm:"index" json:"block_time"`

	PerpSnapshot `gorm:"embedded"`

	Instructions []Instruction `gorm:"serializer:json" json:"instructions,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (HotTrade) TableName() string {
	return "hot_trades"
}

// HotWhaleMovement 热存储中的大户变动行
type HotWhaleMovement struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	Signature     string `gorm:"type:varchar(96);not null;uniqueIndex:uidx_hot_movement_signature" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null;index" json:"wallet_address"`

	WhaleType    string `gorm:"type:varchar(16);not null" json:"whale_type"`
	Direction    string `gorm:"type:varchar(16);not null" json:"direction"`
	Significance string `gorm:"type:varchar(16);not null;default:''" json:"significance"`

	SolBalance      float64 `gorm:"not null;default:0" json:"sol_balance"`
	PreviousBalance float64 `gorm:"not null;default:0" json:"previous_balance"`
	SolChange       float64 `gorm:"not null;default:0" json:"sol_change"`
	AbsChange       float64 `gorm:"not null;default:0" json:"abs_change"`
	PercentChange   float64 `gorm:"not null;default:0" json:"percent_change"`
	Fee             float64 `gorm:"not null;default:0" json:"fee"`

	BlockTime  *int64    `gorm:"index" json:"block_time"`
	EventTime  time.Time `gorm:"not null" json:"event_time"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
	Slot       *int64    `json:"slot"`

	PerpSnapshot `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName 指定表名
func (HotWhaleMovement) TableName() string {
	return "hot_whale_movements"
}

// HotRow 由主库记录生成热存储行（id 由调用方的分配器给出）
func (t *Trade) HotRow(id int64, now time.Time) *HotTrade {
	return &HotTrade{
		ID:            id,
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
		CreatedAt:     now,
	}
}

// HotRow 由主库记录生成热存储行
func (m *WhaleMovement) HotRow(id int64, now time.Time) *HotWhaleMovement {
	return &HotWhaleMovement{
		ID:              id,
		Signature:       m.Signature,
		WalletAddress:   m.WalletAddress,
		WhaleType:       m.WhaleType,
		Direction:       m.Direction,
		Significance:    m.Significance,
		SolBalance:      m.SolBalance,
		PreviousBalance: m.PreviousBalance,
		SolChange:       m.SolChange,
		AbsChange:       m.AbsChange,
		PercentChange:   m.PercentChange,
		Fee:             m.Fee,
		BlockTime:       m.BlockTime,
		EventTime:       m.EventTime,
		ReceivedAt:      m.ReceivedAt,
		Slot:            m.Slot,
		PerpSnapshot:    m.PerpSnapshot,
		CreatedAt:       now,
	}
}
