// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"seqbank-go/internal/model"
	"seqbank-go/internal/query"

	"gorm.io/gorm"
)

// CatalogRepository 接口定义了目录实体的统一查询访问。
// 所有读路径都经过同一条流水线：编译过滤规格 -> 叠加访问控制 -> 执行。
type CatalogRepository interface {
	ListInstitutions(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.Institution, error)
	ListCollections(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.SampleCollection, error)
	ListSamples(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.Sample, error)
	ListRuns(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.SequencingRun, error)

	// QuerySamples 返回未物化的查询句柄，供分页类调用方继续追加
	// Offset/Limit 后再执行。排序已经施加。
	QuerySamples(scope query.AccessScope, specs query.FilterSpec, order string) (*gorm.DB, error)

	// 便捷包装：构造单键规格后委托给对应的 List 方法。
	InstitutionsByCodes(codes []string, scope query.AccessScope) ([]model.Institution, error)
	SamplesByIDs(ids []uint, scope query.AccessScope) ([]model.Sample, error)
	SamplesByCodes(codes []string, scope query.AccessScope) ([]model.Sample, error)
	CollectionsByCodes(codes []string, scope query.AccessScope) ([]model.SampleCollection, error)
	RunsByCodes(codes []string, scope query.AccessScope) ([]model.SequencingRun, error)

	CreateInstitution(inst *model.Institution) error
	CreateCollection(col *model.SampleCollection) error
	CreateRun(run *model.SequencingRun) error
}

// catalogRepository 是 CatalogRepository 接口的 GORM 实现。
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建一个新的 CatalogRepository 实例。
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// prepare 执行读路径的公共前半段：编译规格、叠加访问控制、
// 必要时引入归属组判定列所在的 JOIN。
func (r *catalogRepository) prepare(entity *query.Entity, scope query.AccessScope, specs query.FilterSpec) (query.Predicate, []string, error) {
	pred, joins, err := query.Compile(entity, specs)
	if err != nil {
		return query.Predicate{}, nil, err
	}
	pred, err = query.Restrict(pred, scope, entity)
	if err != nil {
		return query.Predicate{}, nil, err
	}
	if !scope.IsUnrestricted() && entity.OwningJoin != "" {
		joins = appendJoin(joins, entity.OwningJoin)
	}
	return pred, joins, nil
}

// appendJoin 去重追加一个 JOIN 子句（编译器可能已经引入过同一条）。
func appendJoin(joins []string, j string) []string {
	for _, existing := range joins {
		if existing == j {
			return joins
		}
	}
	return append(joins, j)
}

func (r *catalogRepository) list(entity *query.Entity, scope query.AccessScope, specs query.FilterSpec, opts query.Options, dest interface{}) error {
	pred, joins, err := r.prepare(entity, scope, specs)
	if err != nil {
		return err
	}
	opts.Fetch = true
	_, err = query.Execute(r.db, entity, pred, joins, opts, dest)
	return err
}

// ListInstitutions 查询机构列表。机构没有归属组，
// 受限范围会得到 NotRestrictableError，由可信调用点传 Unrestricted。
func (r *catalogRepository) ListInstitutions(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.Institution, error) {
	var rows []model.Institution
	err := r.list(Institutions, scope, specs, opts, &rows)
	return rows, err
}

// ListCollections 查询调用方可见的样本集列表。
func (r *catalogRepository) ListCollections(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.SampleCollection, error) {
	var rows []model.SampleCollection
	err := r.list(Collections, scope, specs, opts, &rows)
	return rows, err
}

// ListSamples 查询调用方可见的样本列表（可见性经由样本集的归属组判定）。
func (r *catalogRepository) ListSamples(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.Sample, error) {
	var rows []model.Sample
	err := r.list(Samples, scope, specs, opts, &rows)
	return rows, err
}

// ListRuns 查询调用方可见的测序批次列表。
func (r *catalogRepository) ListRuns(scope query.AccessScope, specs query.FilterSpec, opts query.Options) ([]model.SequencingRun, error) {
	var rows []model.SequencingRun
	err := r.list(Runs, scope, specs, opts, &rows)
	return rows, err
}

// QuerySamples 返回带排序但未执行的样本查询句柄。
func (r *catalogRepository) QuerySamples(scope query.AccessScope, specs query.FilterSpec, order string) (*gorm.DB, error) {
	pred, joins, err := r.prepare(Samples, scope, specs)
	if err != nil {
		return nil, err
	}
	return query.Execute(r.db, Samples, pred, joins, query.Options{Order: order, Fetch: false}, nil)
}

// InstitutionsByCodes 按编码批量查询机构。
func (r *catalogRepository) InstitutionsByCodes(codes []string, scope query.AccessScope) ([]model.Institution, error) {
	specs := query.FilterSpec{{{Key: "code", Value: codes}}}
	return r.ListInstitutions(scope, specs, query.Options{Fetch: true, RaiseIfEmpty: true})
}

// SamplesByIDs 按 ID 批量查询样本。
func (r *catalogRepository) SamplesByIDs(ids []uint, scope query.AccessScope) ([]model.Sample, error) {
	specs := query.FilterSpec{{{Key: "id", Value: ids}}}
	return r.ListSamples(scope, specs, query.Options{Fetch: true, RaiseIfEmpty: true})
}

// SamplesByCodes 按编码批量查询样本。
func (r *catalogRepository) SamplesByCodes(codes []string, scope query.AccessScope) ([]model.Sample, error) {
	specs := query.FilterSpec{{{Key: "code", Value: codes}}}
	return r.ListSamples(scope, specs, query.Options{Fetch: true, RaiseIfEmpty: true})
}

// CollectionsByCodes 按编码批量查询样本集。
func (r *catalogRepository) CollectionsByCodes(codes []string, scope query.AccessScope) ([]model.SampleCollection, error) {
	specs := query.FilterSpec{{{Key: "code", Value: codes}}}
	return r.ListCollections(scope, specs, query.Options{Fetch: true, RaiseIfEmpty: true})
}

// RunsByCodes 按编码批量查询测序批次。
func (r *catalogRepository) RunsByCodes(codes []string, scope query.AccessScope) ([]model.SequencingRun, error) {
	specs := query.FilterSpec{{{Key: "code", Value: codes}}}
	return r.ListRuns(scope, specs, query.Options{Fetch: true, RaiseIfEmpty: true})
}

// CreateInstitution 在数据库中创建一个新的机构记录。
func (r *catalogRepository) CreateInstitution(inst *model.Institution) error {
	return r.db.Create(inst).Error
}

// CreateCollection 在数据库中创建一个新的样本集记录。
func (r *catalogRepository) CreateCollection(col *model.SampleCollection) error {
	return r.db.Create(col).Error
}

// CreateRun 在数据库中创建一个新的测序批次记录。
func (r *catalogRepository) CreateRun(run *model.SequencingRun) error {
	return r.db.Create(run).Error
}
