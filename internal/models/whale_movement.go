package models

import "time"

// WhaleMovement 大户余额变动事件（主库）
type WhaleMovement struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// 自然键
	Signature     string `gorm:"type:varchar(96);not null;uniqueIndex:uidx_signature;comment:交易签名" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null;index:idx_wallet;comment:监控地址" json:"wallet_address"`

	// 分类字段，词表在存储层校验
	WhaleType    string `gorm:"type:varchar(16);not null;comment:规模档位" json:"whale_type"`
	Direction    string `gorm:"type:varchar(16);not null;comment:方向 in/out" json:"direction"`
	Significance string `gorm:"type:varchar(16);not null;default:'';comment:变动档位" json:"significance"`

	// 余额信息
	SolBalance      float64 `gorm:"type:decimal(28,12);not null;default:0;comment:当前余额" json:"sol_balance"`
	PreviousBalance float64 `gorm:"type:decimal(28,12);not null;default:0;comment:变动前余额" json:"previous_balance"`
	SolChange       float64 `gorm:"type:decimal(28,12);not null;default:0;comment:带符号变动量" json:"sol_change"`
	AbsChange       float64 `gorm:"type:decimal(28,12);not null;default:0;comment:变动量绝对值" json:"abs_change"`
	PercentChange   float64 `gorm:"type:decimal(18,6);not null;default:0;comment:占变动前余额百分比" json:"percent_change"`
	Fee             float64 `gorm:"type:decimal(28,12);not null;default:0;comment:手续费" json:"fee"`

	// 时间与链上位置
	BlockTime  *int64    `gorm:"index;comment:块时间(unix秒)" json:"block_time"`
	EventTime  time.Time `gorm:"not null;index;comment:事件时间" json:"event_time"`
	ReceivedAt time.Time `gorm:"not null;comment:上游接收时间" json:"received_at"`
	Slot       *int64    `gorm:"comment:slot" json:"slot"`

	PerpSnapshot `gorm:"embedded"`

	// 原始报文，仅用于排障。上游没有单独的 raw 字段，
	// 归一化层把整条入站记录原样存这里，便于追查字段漂移
	RawPayload *string `gorm:"type:text" json:"raw_payload,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_created;comment:入库时间" json:"created_at"`
}

// TableName 指定表名
func (WhaleMovement) TableName() string {
	return "whale_movements"
}

// WhaleMovementArchive 大户变动审计副本，主键为主库分配的 ID
type WhaleMovementArchive struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	Signature     string `gorm:"type:varchar(96);not null;index;comment:交易签名" json:"signature"`
	WalletAddress string `gorm:"type:varchar(48);not null" json:"wallet_address"`

	WhaleType    string `gorm:"type:varchar(16);not null" json:"whale_type"`
	Direction    string `gorm:"type:varchar(16);not null" json:"direction"`
	Significance string `gorm:"type:varchar(16);not null;default:''" json:"significance"`

	SolBalance      float64 `gorm:"type:decimal(28,12);not null;default:0" json:"sol_balance"`
	PreviousBalance float64 `gorm:"type:decimal(28,12);not null;default:0" json:"previous_balance"`
	SolChange       float64 `gorm:"type:decimal(28,12);not null;default:0" json:"sol_change"`
	AbsChange       float64 `gorm:"type:decimal(28,12);not null;default:0" json:"abs_change"`
	PercentChange   float64 `gorm:"type:decimal(18,6);not null;default:0" json:"percent_change"`
	Fee             float64 `gorm:"type:decimal(28,12);not null;default:0" json:"fee"`

	BlockTime  *int64    `json:"block_time"`
	EventTime  time.Time `gorm:"not null" json:"event_time"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
	Slot       *int64    `json:"slot"`

	PerpSnapshot `gorm:"embedded"`

	RawPayload *string `gorm:"type:text" json:"raw_payload,omitempty"`

	ArchivedAt time.Time `gorm:"autoCreateTime;comment:归档时间" json:"archived_at"`
}

// TableName 指定表名
func (WhaleMovementArchive) TableName() string {
	return "whale_movement_archive"
}

// Archive 由主库记录生成审计副本
func (m *WhaleMovement) Archive() *WhaleMovementArchive {
	return &WhaleMovementArchive{
		ID:              m.ID,
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
		RawPayload:      m.RawPayload,
	}
}
