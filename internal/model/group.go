// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// ResearchGroup 对应于数据库中的 'research_groups' 表。
// 研究组是访问控制的基本单位：样本集、测序批次等实体通过
// owning group 字段归属于某个研究组，只有组内成员可见。
type ResearchGroup struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// Code 是研究组的唯一编码。
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	// Name 是研究组的显示名称。
	Name string `gorm:"type:varchar(100);not null" json:"name"`
	// Description 提供了对该研究组更详细的描述。
	Description string `gorm:"type:text" json:"description"`
	// CreatedBy 记录了创建此研究组的用户的 ID。
	CreatedBy uint `gorm:"not null" json:"createdBy"`
	// CreatedAt 由 GORM 自动管理，记录创建时间。
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	// UpdatedAt 由 GORM 自动管理，记录最后更新时间。
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ResearchGroup) TableName() string {
	return "research_groups"
}
