// Package service 包含了应用的业务逻辑层。
package service

import (
	"fmt"
	"strings"

	"seqbank-go/internal/model"
	"seqbank-go/internal/query"
	"seqbank-go/internal/repository"
)

// CatalogService 接口定义了目录实体的查询与录入操作。
// 可见范围统一由调用方身份派生：管理员不受限，
// 普通用户只能看到其研究组持有的数据。
type CatalogService interface {
	ScopeFor(user *model.User) query.AccessScope

	ListInstitutions(specs query.FilterSpec) ([]model.Institution, error)
	ListCollections(user *model.User, specs query.FilterSpec) ([]model.SampleCollection, error)
	ListSamples(user *model.User, specs query.FilterSpec, order string) ([]model.Sample, error)
	ListRuns(user *model.User, specs query.FilterSpec) ([]model.SequencingRun, error)

	// PageSamples 分页查询样本。count 在追加 Offset/Limit 之前完成，
	// 两者共享同一套过滤与可见范围。
	PageSamples(user *model.User, specs query.FilterSpec, order string, page, size int) ([]model.Sample, int64, error)

	CreateInstitution(code, name string) (*model.Institution, error)
	CreateCollection(user *model.User, code, name, institutionCode string, groupID uint) (*model.SampleCollection, error)
	CreateRun(user *model.User, code, name string, groupID uint) (*model.SequencingRun, error)
}

// catalogService 是 CatalogService 接口的实现。
type catalogService struct {
	catalogRepo repository.CatalogRepository
}

// NewCatalogService 创建一个新的 CatalogService 实例。
func NewCatalogService(catalogRepo repository.CatalogRepository) CatalogService {
	return &catalogService{catalogRepo: catalogRepo}
}

// ScopeFor 由用户身份派生可见范围。
// 管理员不受限；普通用户限定在其研究组集合内，
// 不属于任何研究组的用户得到空集合（看不到任何受限数据）。
func (s *catalogService) ScopeFor(user *model.User) query.AccessScope {
	if user.IsAdmin() {
		return query.Unrestricted()
	}
	return query.GroupSet(user.GroupIDList())
}

// ListInstitutions 查询机构列表。机构是全局目录数据，
// 对所有已认证用户完全可见。
func (s *catalogService) ListInstitutions(specs query.FilterSpec) ([]model.Institution, error) {
	return s.catalogRepo.ListInstitutions(query.Unrestricted(), specs, query.Options{Fetch: true})
}

// ListCollections 查询调用方可见的样本集。
func (s *catalogService) ListCollections(user *model.User, specs query.FilterSpec) ([]model.SampleCollection, error) {
	return s.catalogRepo.ListCollections(s.ScopeFor(user), specs, query.Options{Fetch: true})
}

// ListSamples 查询调用方可见的样本。
func (s *catalogService) ListSamples(user *model.User, specs query.FilterSpec, order string) ([]model.Sample, error) {
	return s.catalogRepo.ListSamples(s.ScopeFor(user), specs, query.Options{Order: order, Fetch: true})
}

// ListRuns 查询调用方可见的测序批次。
func (s *catalogService) ListRuns(user *model.User, specs query.FilterSpec) ([]model.SequencingRun, error) {
	return s.catalogRepo.ListRuns(s.ScopeFor(user), specs, query.Options{Fetch: true})
}

// PageSamples 分页查询样本。page 从 1 开始。
func (s *catalogService) PageSamples(user *model.User, specs query.FilterSpec, order string, page, size int) ([]model.Sample, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}

	handle, err := s.catalogRepo.QuerySamples(s.ScopeFor(user), specs, order)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := handle.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var samples []model.Sample
	err = handle.Offset((page - 1) * size).Limit(size).Find(&samples).Error
	if err != nil {
		return nil, 0, err
	}
	return samples, total, nil
}

// CreateInstitution 录入一个机构。
func (s *catalogService) CreateInstitution(code, name string) (*model.Institution, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("机构编码和名称不能为空")
	}
	inst := &model.Institution{Code: code, Name: name}
	if err := s.catalogRepo.CreateInstitution(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// CreateCollection 录入一个样本集，归属于指定机构与研究组。
// 普通用户只能把样本集挂在自己所属的研究组下。
func (s *catalogService) CreateCollection(user *model.User, code, name, institutionCode string, groupID uint) (*model.SampleCollection, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("样本集编码不能为空")
	}
	if err := s.checkGroupMembership(user, groupID); err != nil {
		return nil, err
	}

	insts, err := s.catalogRepo.InstitutionsByCodes([]string{institutionCode}, query.Unrestricted())
	if err != nil {
		return nil, err
	}

	col := &model.SampleCollection{
		Code:          code,
		Name:          strings.TrimSpace(name),
		InstitutionID: insts[0].ID,
		GroupID:       groupID,
	}
	if err := s.catalogRepo.CreateCollection(col); err != nil {
		return nil, err
	}
	return col, nil
}

// CreateRun 录入一个测序批次，归属于指定研究组。
func (s *catalogService) CreateRun(user *model.User, code, name string, groupID uint) (*model.SequencingRun, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("测序批次编码不能为空")
	}
	if err := s.checkGroupMembership(user, groupID); err != nil {
		return nil, err
	}

	run := &model.SequencingRun{
		Code:    code,
		Name:    strings.TrimSpace(name),
		GroupID: groupID,
	}
	if err := s.catalogRepo.CreateRun(run); err != nil {
		return nil, err
	}
	return run, nil
}

// checkGroupMembership 校验调用方可以代表该研究组写入数据。
func (s *catalogService) checkGroupMembership(user *model.User, groupID uint) error {
	if groupID == 0 {
		return fmt.Errorf("必须指定归属研究组")
	}
	if user.IsAdmin() {
		return nil
	}
	for _, gid := range user.GroupIDList() {
		if gid == groupID {
			return nil
		}
	}
	return fmt.Errorf("用户不属于研究组 %d，无权在该组下写入数据", groupID)
}
