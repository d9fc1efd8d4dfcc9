// Package query 实现了声明式查询规格的编译、访问控制收窄与执行。
package query

import "fmt"

// UnknownFilterKeyError 表示过滤规格中出现了注册表里不存在的键。
// 这是调用方的编程错误，直接拒绝整次编译，不做部分生效。
type UnknownFilterKeyError struct {
	Entity string
	Key    string
}

func (e *UnknownFilterKeyError) Error() string {
	return fmt.Sprintf("未知的过滤键 %q（实体: %s）", e.Key, e.Entity)
}

// DuplicateFieldError 表示同一个规格组内同一个键出现了两次。
// 意图不明确，拒绝而不是静默覆盖。
type DuplicateFieldError struct {
	Entity string
	Key    string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("规格组内过滤键 %q 重复（实体: %s）", e.Key, e.Entity)
}

// EmptyResultError 表示调用方通过 RaiseIfEmpty 显式要求非空结果，
// 但查询没有命中任何行。
type EmptyResultError struct {
	Entity string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("未找到符合条件的 %s 记录", e.Entity)
}

// NotRestrictableError 表示对一个没有归属组列的实体施加了组级过滤。
// 此类实体只能由可信调用点以 Unrestricted 方式查询。
type NotRestrictableError struct {
	Entity string
}

func (e *NotRestrictableError) Error() string {
	return fmt.Sprintf("实体 %s 不支持组级访问过滤", e.Entity)
}
