// Package tasks defines the event payloads that are sent to Kafka.
package tasks

// SessionCommittedTask 在上传会话成功提交为领域记录后发布，
// 供全文索引边车等下游消费者使用。
type SessionCommittedTask struct {
	SessionKey   string   `json:"session_key"`
	UserID       uint     `json:"user_id"`
	FileNames    []string `json:"file_names"`
	Method       string   `json:"method"`
	AddedCount   int      `json:"added_count"`
	UpdatedCount int      `json:"updated_count"`
}
