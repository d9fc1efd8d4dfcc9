// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"seqbank-go/internal/model"

	"gorm.io/gorm"
)

// GroupRepository 接口定义了研究组的数据操作方法。
type GroupRepository interface {
	Create(group *model.ResearchGroup) error
	FindByID(id uint) (*model.ResearchGroup, error)
	FindByCode(code string) (*model.ResearchGroup, error)
	FindAll() ([]model.ResearchGroup, error)
	FindBatchByIDs(ids []uint) ([]model.ResearchGroup, error)
	Update(group *model.ResearchGroup) error
	Delete(id uint) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository 创建一个新的 GroupRepository 实例。
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Create 在数据库中插入一个新的研究组记录。
func (r *groupRepository) Create(group *model.ResearchGroup) error {
	if err := r.db.Create(group).Error; err != nil {
		return classifyIntegrityError(err, "code", group.Code)
	}
	return nil
}

// FindByID 根据 ID 从数据库中查找一个研究组。
func (r *groupRepository) FindByID(id uint) (*model.ResearchGroup, error) {
	var group model.ResearchGroup
	err := r.db.First(&group, id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByCode 根据编码从数据库中查找一个研究组。
func (r *groupRepository) FindByCode(code string) (*model.ResearchGroup, error) {
	var group model.ResearchGroup
	err := r.db.Where("code = ?", code).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindAll 从数据库中检索所有的研究组记录。
func (r *groupRepository) FindAll() ([]model.ResearchGroup, error) {
	var groups []model.ResearchGroup
	err := r.db.Order("code asc").Find(&groups).Error
	return groups, err
}

// FindBatchByIDs 按 ID 批量查询研究组。
func (r *groupRepository) FindBatchByIDs(ids []uint) ([]model.ResearchGroup, error) {
	var groups []model.ResearchGroup
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&groups).Error
	return groups, err
}

// Update 更新数据库中一个已存在的研究组记录。
func (r *groupRepository) Update(group *model.ResearchGroup) error {
	if err := r.db.Save(group).Error; err != nil {
		return classifyIntegrityError(err, "code", group.Code)
	}
	return nil
}

// Delete 根据 ID 从数据库中删除一个研究组记录。
func (r *groupRepository) Delete(id uint) error {
	return r.db.Delete(&model.ResearchGroup{}, id).Error
}
