// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"strconv"
	"strings"
	"time"
)

// User 对应于数据库中的 'users' 表。
type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password string `gorm:"type:varchar(100);not null" json:"-"`
	// Role 取值为 "USER" 或 "ADMIN"。
	Role string `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	// GroupIDs 是逗号分隔的研究组 ID 列表，表示用户所属的研究组。
	GroupIDs  string    `gorm:"type:varchar(255)" json:"groupIds"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// IsAdmin 判断用户是否具有管理员角色。
func (u *User) IsAdmin() bool {
	return u.Role == "ADMIN"
}

// GroupIDList 将逗号分隔的 GroupIDs 字段解析为 ID 切片。
// 非法的片段会被忽略；空字段返回空切片（表示不属于任何研究组）。
func (u *User) GroupIDList() []uint {
	ids := make([]uint, 0)
	if u.GroupIDs == "" {
		return ids
	}
	for _, part := range strings.Split(u.GroupIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
