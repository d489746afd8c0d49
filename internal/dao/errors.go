package dao

import (
	"errors"
	"fmt"
)

// SchemaViolationError 分类字段取值超出固定词表
// 意味着上游 schema 漂移，必须让运维看到，不能吞掉
type SchemaViolationError struct {
	Entity string
	Field  string
	Value  string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %s.%s = %q not in vocabulary", e.Entity, e.Field, e.Value)
}

// IsSchemaViolation 判断是否为词表校验失败
func IsSchemaViolation(err error) bool {
	var sv *SchemaViolationError
	return errors.As(err, &sv)
}
