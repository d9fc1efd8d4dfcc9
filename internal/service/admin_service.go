// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"seqbank-go/internal/model"
	"seqbank-go/internal/repository"
	"seqbank-go/pkg/log"

	"gorm.io/gorm"
)

// AdminService 接口定义了研究组管理与用户管理的业务操作。
// 所有方法都应当由管理员角色的调用方触达（由中间件保证）。
type AdminService interface {
	CreateGroup(code, name, description string, createdBy uint) (*model.ResearchGroup, error)
	GetGroup(id uint) (*model.ResearchGroup, error)
	ListGroups() ([]model.ResearchGroup, error)
	UpdateGroup(id uint, name, description string) (*model.ResearchGroup, error)
	DeleteGroup(id uint) error

	AssignGroupsToUser(userID uint, groupIDs []uint) (*model.User, error)
	SetUserRole(userID uint, role string) (*model.User, error)
	ListUsers(page, size int) ([]model.User, int64, error)
}

// adminService 是 AdminService 接口的实现。
type adminService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(groupRepo repository.GroupRepository, userRepo repository.UserRepository) AdminService {
	return &adminService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
	}
}

// CreateGroup 创建一个新的研究组。编码在全系统内唯一。
func (s *adminService) CreateGroup(code, name, description string, createdBy uint) (*model.ResearchGroup, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, errors.New("研究组编码和名称不能为空")
	}

	group := &model.ResearchGroup{
		Code:        code,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}
	log.Infof("[AdminService] 创建研究组成功, code: %s, id: %d", code, group.ID)
	return group, nil
}

// GetGroup 根据 ID 获取研究组。
func (s *adminService) GetGroup(id uint) (*model.ResearchGroup, error) {
	return s.groupRepo.FindByID(id)
}

// ListGroups 获取全部研究组。
func (s *adminService) ListGroups() ([]model.ResearchGroup, error) {
	return s.groupRepo.FindAll()
}

// UpdateGroup 更新研究组的名称与描述。编码创建后不可变。
func (s *adminService) UpdateGroup(id uint, name, description string) (*model.ResearchGroup, error) {
	group, err := s.groupRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		group.Name = name
	}
	group.Description = description
	if err := s.groupRepo.Update(group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup 删除研究组。仍被任何用户引用的研究组不允许删除，
// 否则会留下悬空的可见性授权。
func (s *adminService) DeleteGroup(id uint) error {
	if _, err := s.groupRepo.FindByID(id); err != nil {
		return err
	}

	users, err := s.userRepo.FindAll()
	if err != nil {
		return err
	}
	for _, user := range users {
		for _, gid := range user.GroupIDList() {
			if gid == id {
				return fmt.Errorf("研究组仍被用户 %q 引用，无法删除", user.Username)
			}
		}
	}
	return s.groupRepo.Delete(id)
}

// AssignGroupsToUser 整体替换用户的研究组成员关系。
// 所有 ID 必须指向已存在的研究组；传空切片表示清空成员关系。
func (s *adminService) AssignGroupsToUser(userID uint, groupIDs []uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if len(groupIDs) > 0 {
		groups, err := s.groupRepo.FindBatchByIDs(groupIDs)
		if err != nil {
			return nil, err
		}
		found := make(map[uint]bool, len(groups))
		for _, g := range groups {
			found[g.ID] = true
		}
		for _, id := range groupIDs {
			if !found[id] {
				return nil, fmt.Errorf("研究组 %d 不存在", id)
			}
		}
	}

	parts := make([]string, 0, len(groupIDs))
	seen := make(map[uint]bool, len(groupIDs))
	for _, id := range groupIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	user.GroupIDs = strings.Join(parts, ",")

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	log.Infof("[AdminService] 已更新用户 %s 的研究组: [%s]", user.Username, user.GroupIDs)
	return user, nil
}

// SetUserRole 设置用户角色，只允许 USER 和 ADMIN。
func (s *adminService) SetUserRole(userID uint, role string) (*model.User, error) {
	if role != "USER" && role != "ADMIN" {
		return nil, fmt.Errorf("未知的用户角色: %q", role)
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户不存在")
		}
		return nil, err
	}
	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers 分页获取用户列表。page 从 1 开始。
func (s *adminService) ListUsers(page, size int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return s.userRepo.FindWithPagination((page-1)*size, size)
}
