// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"strings"
	"time"
)

// 上传会话的状态常量。
const (
	// SessionStatusOpen 会话已创建，仍在接收分片。
	SessionStatusOpen = "open"
	// SessionStatusComplete 所有声明的文件均已完整接收。
	// 该状态由条目派生得出，数据库中的值只是派生结果的镜像。
	SessionStatusComplete = "complete"
	// SessionStatusCommitted 会话内容已通过提交事务写入领域表。
	SessionStatusCommitted = "committed"
	// SessionStatusDiscarded 会话已被显式删除。
	SessionStatusDiscarded = "discarded"
)

// UploadSession 对应于数据库中的 'upload_sessions' 表。
// 它代表一次进行中的多文件上传，由会话键唯一标识，归创建它的用户所有。
type UploadSession struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionKey string `gorm:"type:varchar(64);uniqueIndex;not null" json:"sessionKey"`
	UserID     uint   `gorm:"not null;index" json:"userId"`
	// DeclaredSlots 是逗号分隔的文件槽位名列表（例如 "read-1,read-2"）。
	// 会话完成与否根据槽位与已完成条目派生，不单独记账。
	DeclaredSlots string     `gorm:"type:varchar(1024)" json:"declaredSlots"`
	Status        string     `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	CommittedAt   *time.Time `gorm:"default:null" json:"committedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UploadSession) TableName() string {
	return "upload_sessions"
}

// SlotList 解析 DeclaredSlots 字段，返回会话声明的槽位名列表。
func (s *UploadSession) SlotList() []string {
	slots := make([]string, 0)
	if s.DeclaredSlots == "" {
		return slots
	}
	for _, slot := range strings.Split(s.DeclaredSlots, ",") {
		slot = strings.TrimSpace(slot)
		if slot != "" {
			slots = append(slots, slot)
		}
	}
	return slots
}

// HasSlot 判断会话是否已声明指定槽位。
func (s *UploadSession) HasSlot(name string) bool {
	for _, slot := range s.SlotList() {
		if slot == name {
			return true
		}
	}
	return false
}

// UploadItem 对应于数据库中的 'upload_items' 表。
// 一个条目代表会话内一个文件的传输状态。条目只在收到 offset=0 的
// 起始分片时创建；BytesReceived 必须与磁盘上的实际文件大小一致，
// 偏移校验始终以磁盘大小为准。
type UploadItem struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     uint   `gorm:"not null;uniqueIndex:idx_session_file" json:"sessionId"`
	FileName      string `gorm:"type:varchar(255);not null;uniqueIndex:idx_session_file" json:"fileName"`
	DeclaredSize  int64  `gorm:"not null" json:"declaredSize"`
	BytesReceived int64  `gorm:"not null;default:0" json:"bytesReceived"`
	Completed     bool   `gorm:"not null;default:false" json:"completed"`
	// StoragePath 是临时存储文件的路径，由会话键和文件名确定性地推导，
	// 进程重启后可以重新计算出同一路径并继续做偏移校验。
	StoragePath string    `gorm:"type:varchar(512);not null" json:"storagePath"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UploadItem) TableName() string {
	return "upload_items"
}
