// Package service 包含了应用的业务逻辑层。
package service

import "fmt"

// OffsetMismatchError 表示续传分片携带的偏移与磁盘上已写入的
// 字节数不一致（乱序或重复投递）。该分片被拒绝，存储不被改动，
// 客户端应从偏移 0 重传该文件。
type OffsetMismatchError struct {
	FileName string
	Expected int64
	Got      int64
}

func (e *OffsetMismatchError) Error() string {
	return fmt.Sprintf("文件 %q 的分片偏移不匹配：磁盘上已有 %d 字节，收到偏移 %d", e.FileName, e.Expected, e.Got)
}

// ItemNotPreparedError 表示收到了某个文件的续传分片，
// 但该文件从未发送过偏移 0 的起始分片。
type ItemNotPreparedError struct {
	FileName string
}

func (e *ItemNotPreparedError) Error() string {
	return fmt.Sprintf("文件 %q 没有起始分片，无法续传", e.FileName)
}

// DeclaredSizeExceededError 表示接受该分片后文件将超过声明的总大小。
// 分片被拒绝，已写入的字节保持不变。
type DeclaredSizeExceededError struct {
	FileName string
	Declared int64
	WouldBe  int64
}

func (e *DeclaredSizeExceededError) Error() string {
	return fmt.Sprintf("文件 %q 超过声明大小：声明 %d 字节，接受该分片后将达到 %d 字节", e.FileName, e.Declared, e.WouldBe)
}

// SessionNotFoundError 表示会话键没有对应的上传会话。
type SessionNotFoundError struct {
	SessionKey string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("上传会话 %q 不存在", e.SessionKey)
}

// NotOwnerError 表示调用者既不是会话的所有者也不是管理员。
// 与"不存在"区分开，应用层可按需要伪装成 404 以避免泄露存在性。
type NotOwnerError struct {
	SessionKey string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("无权访问上传会话 %q", e.SessionKey)
}

// SessionClosedError 表示会话已提交或已丢弃，不再接受任何操作。
type SessionClosedError struct {
	SessionKey string
	Status     string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("上传会话 %q 已关闭（状态: %s）", e.SessionKey, e.Status)
}

// SessionNotCompleteError 表示在所有声明的文件完整接收之前请求了提交。
type SessionNotCompleteError struct {
	SessionKey string
	Declared   int
	Completed  int
}

func (e *SessionNotCompleteError) Error() string {
	return fmt.Sprintf("上传会话 %q 尚未完成，无法提交（声明 %d 个文件，完成 %d 个）", e.SessionKey, e.Declared, e.Completed)
}

// BadFileNameError 表示文件名为空或带有路径成分，拒绝落盘。
type BadFileNameError struct {
	FileName string
}

func (e *BadFileNameError) Error() string {
	return fmt.Sprintf("非法的文件名: %q", e.FileName)
}
