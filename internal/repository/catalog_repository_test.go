package repository

import (
	"errors"
	"path/filepath"
	"testing"

	"seqbank-go/internal/model"
	"seqbank-go/internal/query"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB 打开一个文件型 sqlite 数据库并迁移领域表。
// GORM 带连接池，内存模式下每个连接各有一份库，必须落盘。
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.ResearchGroup{},
		&model.Institution{},
		&model.SampleCollection{},
		&model.Sample{},
		&model.SequencingRun{},
		&model.UploadSession{},
		&model.UploadItem{},
	)
	if err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	return db
}

// seedCatalog 准备两个研究组各自持有的样本集与样本：
// 组 1 持有 C-1 (S-1)，组 2 持有 C-2 (S-2)，S-3 未归集。
func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	inst := model.Institution{Code: "INST-1", Name: "第一研究院"}
	if err := db.Create(&inst).Error; err != nil {
		t.Fatal(err)
	}
	cols := []model.SampleCollection{
		{Code: "C-1", Name: "血液样本集", InstitutionID: inst.ID, GroupID: 1},
		{Code: "C-2", Name: "组织样本集", InstitutionID: inst.ID, GroupID: 2},
	}
	if err := db.Create(&cols).Error; err != nil {
		t.Fatal(err)
	}
	samples := []model.Sample{
		{Code: "S-1", Name: "alpha", CollectionID: cols[0].ID},
		{Code: "S-2", Name: "beta", CollectionID: cols[1].ID},
		{Code: "S-3", Name: "gamma", CollectionID: 0},
	}
	if err := db.Create(&samples).Error; err != nil {
		t.Fatal(err)
	}
	runs := []model.SequencingRun{
		{Code: "R-1", Name: "run one", GroupID: 1},
		{Code: "R-2", Name: "run two", GroupID: 2},
	}
	if err := db.Create(&runs).Error; err != nil {
		t.Fatal(err)
	}
}

func TestListCollectionsScoped(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	rows, err := repo.ListCollections(query.GroupSet([]uint{1}), nil, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "C-1" {
		t.Fatalf("组 1 只应看到 C-1, 得到: %+v", rows)
	}

	rows, err = repo.ListCollections(query.Unrestricted(), nil, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("不受限范围应看到全部样本集, 得到 %d", len(rows))
	}
}

func TestListSamplesVisibilityFollowsCollection(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	// 样本的可见性经由样本集的归属组判定；
	// 未归集样本在受限范围下不可见
	rows, err := repo.ListSamples(query.GroupSet([]uint{1}), nil, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "S-1" {
		t.Fatalf("组 1 只应看到 S-1, 得到: %+v", rows)
	}

	// 不受限范围看到全部样本，包括未归集的
	rows, err = repo.ListSamples(query.Unrestricted(), nil, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("不受限范围应看到 3 个样本, 得到 %d", len(rows))
	}

	// 空授权集合一无所见
	rows, err = repo.ListSamples(query.GroupSet(nil), nil, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("空授权集合应得到空结果, 得到 %d 行", len(rows))
	}
}

func TestListSamplesByNestedKeys(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	// 经由样本集编码过滤
	specs := query.FilterSpec{{{Key: "collection_code", Value: "C-2"}}}
	rows, err := repo.ListSamples(query.Unrestricted(), specs, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "S-2" {
		t.Fatalf("按样本集编码过滤结果错误: %+v", rows)
	}

	// 经由两层关联的机构编码过滤
	specs = query.FilterSpec{{{Key: "institution_code", Value: "INST-1"}}}
	rows, err = repo.ListSamples(query.Unrestricted(), specs, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("按机构编码应命中已归集的 2 个样本, 得到 %d", len(rows))
	}
}

func TestListSamplesScopedWithFilter(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	// 过滤命中 S-1 和 S-2，但组 2 的范围只放行 S-2
	specs := query.FilterSpec{{{Key: "code", Value: []string{"S-1", "S-2"}}}}
	rows, err := repo.ListSamples(query.GroupSet([]uint{2}), specs, query.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "S-2" {
		t.Fatalf("范围应叠加在过滤之上, 得到: %+v", rows)
	}
}

func TestInstitutionsNotRestrictable(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	_, err := repo.ListInstitutions(query.GroupSet([]uint{1}), nil, query.Options{})
	var notRestrictable *query.NotRestrictableError
	if !errors.As(err, &notRestrictable) {
		t.Fatalf("对机构施加组过滤应报 NotRestrictableError, 得到 %v", err)
	}
}

func TestByCodesRaisesOnMiss(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	_, err := repo.SamplesByCodes([]string{"没有这个"}, query.Unrestricted())
	var empty *query.EmptyResultError
	if !errors.As(err, &empty) {
		t.Fatalf("期望 EmptyResultError, 得到 %v", err)
	}

	rows, err := repo.SamplesByCodes([]string{"S-1", "S-3"}, query.Unrestricted())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("按编码批量查询结果错误: %+v", rows)
	}
}

func TestUnknownFilterKeySurfaces(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	specs := query.FilterSpec{{{Key: "colour", Value: "red"}}}
	_, err := repo.ListRuns(query.Unrestricted(), specs, query.Options{})
	var unknown *query.UnknownFilterKeyError
	if !errors.As(err, &unknown) {
		t.Fatalf("期望 UnknownFilterKeyError, 得到 %v", err)
	}
}

func TestQuerySamplesLazyPagination(t *testing.T) {
	db := testDB(t)
	seedCatalog(t, db)
	repo := NewCatalogRepository(db)

	handle, err := repo.QuerySamples(query.Unrestricted(), nil, "")
	if err != nil {
		t.Fatal(err)
	}

	var rows []model.Sample
	if err := handle.Offset(1).Limit(1).Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	// 默认排序 code asc, 第二行是 S-2
	if len(rows) != 1 || rows[0].Code != "S-2" {
		t.Fatalf("惰性分页结果错误: %+v", rows)
	}
}
