// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import "seqbank-go/internal/query"

// 目录实体间的 JOIN 子句。过滤键解析到关联表的列时，
// 编译器会按这里声明的顺序把 JOIN 带入查询。
const (
	joinCollectionInstitution = "JOIN institutions ON institutions.id = sample_collections.institution_id"
	joinSampleCollection      = "JOIN sample_collections ON sample_collections.id = samples.collection_id"
)

// 目录实体的元数据与过滤键注册表。进程启动时构建一次，之后只读。
var (
	// Institutions 没有归属组列：机构属于全局目录，只能以
	// Unrestricted 范围查询（可信调用点负责保证）。
	Institutions = &query.Entity{
		Name:         "Institution",
		Table:        "institutions",
		DefaultOrder: "institutions.code asc",
		Registry: query.NewRegistry().
			Register("id", query.FieldRef{Column: "institutions.id"}).
			Register("code", query.FieldRef{Column: "institutions.code"}).
			Register("name", query.FieldRef{Column: "institutions.name"}).
			// 领域别名，便于跨实体使用统一的键名
			Register("institution_code", query.FieldRef{Column: "institutions.code"}).
			Seal(),
	}

	Collections = &query.Entity{
		Name:              "SampleCollection",
		Table:             "sample_collections",
		OwningGroupColumn: "sample_collections.group_id",
		DefaultOrder:      "sample_collections.code asc",
		Registry: query.NewRegistry().
			Register("id", query.FieldRef{Column: "sample_collections.id"}).
			Register("code", query.FieldRef{Column: "sample_collections.code"}).
			Register("name", query.FieldRef{Column: "sample_collections.name"}).
			Register("collection_code", query.FieldRef{Column: "sample_collections.code"}).
			Register("institution_id", query.FieldRef{Column: "sample_collections.institution_id"}).
			Register("group_id", query.FieldRef{Column: "sample_collections.group_id"}).
			Register("institution_code", query.FieldRef{
				Column: "institutions.code",
				Joins:  []string{joinCollectionInstitution},
			}).
			Seal(),
	}

	// Samples 自身没有归属组，可见性跟随所属样本集，
	// 因此收窄查询时需要先 JOIN 样本集表。
	Samples = &query.Entity{
		Name:              "Sample",
		Table:             "samples",
		OwningGroupColumn: "sample_collections.group_id",
		OwningJoin:        joinSampleCollection,
		DefaultOrder:      "samples.code asc",
		Registry: query.NewRegistry().
			Register("id", query.FieldRef{Column: "samples.id"}).
			Register("code", query.FieldRef{Column: "samples.code"}).
			Register("name", query.FieldRef{Column: "samples.name"}).
			Register("sample_code", query.FieldRef{Column: "samples.code"}).
			Register("collection_id", query.FieldRef{Column: "samples.collection_id"}).
			Register("collection_code", query.FieldRef{
				Column: "sample_collections.code",
				Joins:  []string{joinSampleCollection},
			}).
			Register("institution_code", query.FieldRef{
				Column: "institutions.code",
				Joins:  []string{joinSampleCollection, joinCollectionInstitution},
			}).
			Seal(),
	}

	Runs = &query.Entity{
		Name:              "SequencingRun",
		Table:             "sequencing_runs",
		OwningGroupColumn: "sequencing_runs.group_id",
		DefaultOrder:      "sequencing_runs.code asc",
		Registry: query.NewRegistry().
			Register("id", query.FieldRef{Column: "sequencing_runs.id"}).
			Register("code", query.FieldRef{Column: "sequencing_runs.code"}).
			Register("name", query.FieldRef{Column: "sequencing_runs.name"}).
			Register("run_code", query.FieldRef{Column: "sequencing_runs.code"}).
			Register("group_id", query.FieldRef{Column: "sequencing_runs.group_id"}).
			Seal(),
	}
)
