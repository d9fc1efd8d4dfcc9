// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Institution 对应于数据库中的 'institutions' 表。
// 机构没有归属研究组，属于全局目录数据，不参与组级访问过滤。
type Institution struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Institution) TableName() string {
	return "institutions"
}

// SampleCollection 对应于数据库中的 'sample_collections' 表。
// 样本集归属于一个机构，并由一个研究组持有（GroupID 是组级可见性的判定列）。
type SampleCollection struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	InstitutionID uint      `gorm:"not null;index" json:"institutionId"`
	GroupID       uint      `gorm:"not null;index" json:"groupId"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SampleCollection) TableName() string {
	return "sample_collections"
}

// Sample 对应于数据库中的 'samples' 表。
// 样本自身不带归属组，其可见性跟随所属样本集的研究组。
type Sample struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name string `gorm:"type:varchar(255)" json:"name"`
	// CollectionID 为 0 表示样本尚未归入任何样本集（上传导入后待整理）。
	CollectionID uint      `gorm:"index" json:"collectionId"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Sample) TableName() string {
	return "samples"
}

// SequencingRun 对应于数据库中的 'sequencing_runs' 表。
// 测序批次直接由研究组持有。
type SequencingRun struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	GroupID   uint      `gorm:"not null;index" json:"groupId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SequencingRun) TableName() string {
	return "sequencing_runs"
}
