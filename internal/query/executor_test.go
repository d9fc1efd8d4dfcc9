package query

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 执行器测试用的最小表结构。
type owner struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"uniqueIndex;not null"`
}

func (owner) TableName() string { return "owners" }

type thing struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Code    string `gorm:"uniqueIndex;not null"`
	Name    string
	GroupID uint
	OwnerID uint
}

func (thing) TableName() string { return "things" }

// testDB 打开一个文件型 sqlite 数据库。GORM 带连接池，
// 内存模式下每个连接各有一份库，必须落盘。
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&owner{}, &thing{}); err != nil {
		t.Fatalf("迁移测试表失败: %v", err)
	}
	return db
}

func seedThings(t *testing.T, db *gorm.DB) {
	t.Helper()
	owners := []owner{{Code: "O-1"}, {Code: "O-2"}}
	if err := db.Create(&owners).Error; err != nil {
		t.Fatal(err)
	}
	rows := []thing{
		{Code: "T-3", Name: "gamma", GroupID: 1, OwnerID: owners[0].ID},
		{Code: "T-1", Name: "alpha", GroupID: 1, OwnerID: owners[0].ID},
		{Code: "T-2", Name: "beta", GroupID: 2, OwnerID: owners[1].ID},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}
}

func TestExecuteAppliesDefaultOrder(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	var rows []thing
	_, err := Execute(db, entity, Predicate{}, nil, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("期望 3 行, 得到 %d", len(rows))
	}
	for i, want := range []string{"T-1", "T-2", "T-3"} {
		if rows[i].Code != want {
			t.Fatalf("默认排序未生效: 第 %d 行是 %s", i, rows[i].Code)
		}
	}
}

func TestExecuteUnionOfGroups(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	// "code 是 T-1 或者 name 含 bet" -> 两组的并集
	specs := FilterSpec{
		{{Key: "code", Value: "T-1"}},
		{{Key: "name", Value: "bet*"}},
	}
	pred, joins, err := Compile(entity, specs)
	if err != nil {
		t.Fatal(err)
	}

	var rows []thing
	_, err = Execute(db, entity, pred, joins, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("并集应命中 2 行, 得到 %d", len(rows))
	}
	if rows[0].Code != "T-1" || rows[1].Code != "T-2" {
		t.Fatalf("命中集合错误: %v, %v", rows[0].Code, rows[1].Code)
	}
}

func TestExecuteWildcardMatchesLiteralMeta(t *testing.T) {
	db := testDB(t)
	entity := testEntity()

	rows := []thing{
		{Code: "T-1", Name: "100% pure"},
		{Code: "T-2", Name: "1000 pure"},
		{Code: "T-3", Name: "a_b"},
		{Code: "T-4", Name: "axb"},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatal(err)
	}

	// 模式里的 % 与 _ 是字面量, 只有 * 是通配符
	cases := []struct {
		pattern string
		want    string
	}{
		{"100%*", "T-1"},
		{"a_b*", "T-3"},
	}
	for _, tc := range cases {
		pred, joins, err := Compile(entity, FilterSpec{{{Key: "name", Value: tc.pattern}}})
		if err != nil {
			t.Fatal(err)
		}
		var got []thing
		if _, err := Execute(db, entity, pred, joins, Options{Fetch: true}, &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Code != tc.want {
			t.Fatalf("模式 %q 应只命中 %s, 得到 %+v", tc.pattern, tc.want, got)
		}
	}
}

func TestExecuteWithJoinFilter(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	pred, joins, err := Compile(entity, FilterSpec{{{Key: "owner_code", Value: "O-2"}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(joins) != 1 {
		t.Fatalf("应引入 1 条 JOIN, 得到 %d", len(joins))
	}

	var rows []thing
	_, err = Execute(db, entity, pred, joins, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "T-2" {
		t.Fatalf("JOIN 过滤结果错误: %+v", rows)
	}
}

func TestExecuteDenyAllScope(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	pred, joins, err := Compile(entity, nil)
	if err != nil {
		t.Fatal(err)
	}
	pred, err = Restrict(pred, GroupSet(nil), entity)
	if err != nil {
		t.Fatal(err)
	}

	var rows []thing
	_, err = Execute(db, entity, pred, joins, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("空授权集合必须看不到任何行, 得到 %d 行", len(rows))
	}
}

func TestExecuteGroupScope(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	pred, err := Restrict(Predicate{}, GroupSet([]uint{2}), entity)
	if err != nil {
		t.Fatal(err)
	}

	var rows []thing
	_, err = Execute(db, entity, pred, nil, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].GroupID != 2 {
		t.Fatalf("组过滤结果错误: %+v", rows)
	}
}

func TestExecuteRaiseIfEmpty(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	pred, _, err := Compile(entity, FilterSpec{{{Key: "code", Value: "不存在"}}})
	if err != nil {
		t.Fatal(err)
	}

	var rows []thing
	_, err = Execute(db, entity, pred, nil, Options{Fetch: true, RaiseIfEmpty: true}, &rows)
	var empty *EmptyResultError
	if !errors.As(err, &empty) {
		t.Fatalf("期望 EmptyResultError, 得到 %v", err)
	}

	// 不要求非空时, 空结果正常返回
	rows = nil
	_, err = Execute(db, entity, pred, nil, Options{Fetch: true}, &rows)
	if err != nil {
		t.Fatalf("空结果不应报错: %v", err)
	}
}

func TestExecuteLazyHandle(t *testing.T) {
	db := testDB(t)
	seedThings(t, db)
	entity := testEntity()

	handle, err := Execute(db, entity, Predicate{}, nil, Options{Fetch: false}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// 句柄可以继续追加分页再执行
	var rows []thing
	if err := handle.Offset(1).Limit(1).Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "T-2" {
		t.Fatalf("惰性句柄分页结果错误: %+v", rows)
	}
}
