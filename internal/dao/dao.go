package dao

import "gorm.io/gorm"

// Outcome 主库写入结果
type Outcome int

const (
	// OutcomeInserted 新记录已落库
	OutcomeInserted Outcome = iota
	// OutcomeDuplicate 自然键已存在，按幂等处理
	OutcomeDuplicate
)

// InitDAO 初始化所有 DAO（应用启动时调用）
func InitDAO(db *gorm.DB) {
	InitTradeDAO(db)
	InitWhaleMovementDAO(db)
}
