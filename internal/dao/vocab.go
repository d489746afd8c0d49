package dao

import "github.com/utrading/utrading-sol-ingest/internal/models"

// 分类字段的固定词表，在存储边界校验。
// 归一化层对这些值不做语义判断，未识别的值会在这里被拒绝。
var (
	tradeDirections = map[string]struct{}{
		"buy": {}, "sell": {},
	}
	movementDirections = map[string]struct{}{
		"in": {}, "out": {},
	}
	whaleTypes = map[string]struct{}{
		"dolphin": {}, "whale": {}, "mega_whale": {}, "ultra_whale": {},
	}
	significances = map[string]struct{}{
		"low": {}, "medium": {}, "high": {}, "critical": {},
	}
	perpPlatforms = map[string]struct{}{
		"drift": {}, "jupiter": {}, "zeta": {}, "mango": {},
	}
	perpDirections = map[string]struct{}{
		"long": {}, "short": {},
	}
)

func inVocab(vocab map[string]struct{}, v string) bool {
	_, ok := vocab[v]
	return ok
}

// validatePerp 校验永续快照的枚举字段（仅在给出时）
func validatePerp(entity string, p models.PerpSnapshot) error {
	if p.PerpPlatform != nil && !inVocab(perpPlatforms, *p.PerpPlatform) {
		return &SchemaViolationError{Entity: entity, Field: "perp_platform", Value: *p.PerpPlatform}
	}
	if p.PerpDirection != nil && !inVocab(perpDirections, *p.PerpDirection) {
		return &SchemaViolationError{Entity: entity, Field: "perp_direction", Value: *p.PerpDirection}
	}
	return nil
}

func validateTrade(t *models.Trade) error {
	if !inVocab(tradeDirections, t.Direction) {
		return &SchemaViolationError{Entity: "trade", Field: "direction", Value: t.Direction}
	}
	return validatePerp("trade", t.PerpSnapshot)
}

func validateMovement(m *models.WhaleMovement) error {
	if !inVocab(movementDirections, m.Direction) {
		return &SchemaViolationError{Entity: "whale_movement", Field: "direction", Value: m.Direction}
	}
	if !inVocab(whaleTypes, m.WhaleType) {
		return &SchemaViolationError{Entity: "whale_movement", Field: "whale_type", Value: m.WhaleType}
	}
	// significance 允许为空（上游未给出时不拦截）
	if m.Significance != "" && !inVocab(significances, m.Significance) {
		return &SchemaViolationError{Entity: "whale_movement", Field: "significance", Value: m.Significance}
	}
	return validatePerp("whale_movement", m.PerpSnapshot)
}
