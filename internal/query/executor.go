package query

import (
	"reflect"

	"gorm.io/gorm"
)

// Options 控制一次查询的执行方式。
type Options struct {
	// Order 覆盖实体的默认排序；为空时使用 Entity.DefaultOrder。
	// 排序属于查询形态的一部分，即使不取数也会施加，
	// 以保证重复调用间分页结果确定。
	Order string
	// Fetch 为 false 时不物化结果，返回可继续追加排序／分页的查询句柄。
	Fetch bool
	// RaiseIfEmpty 为 true 且 Fetch 取回空结果时返回 EmptyResultError，
	// 让调用方统一走"对象不存在"的短路分支。
	RaiseIfEmpty bool
}

// Build 组装出带 JOIN、过滤与排序的查询句柄，不触发执行。
func Build(db *gorm.DB, entity *Entity, pred Predicate, joins []string, order string) *gorm.DB {
	// 始终只选根实体的列，避免 JOIN 引入的同名列干扰扫描
	tx := db.Table(entity.Table).Select(entity.Table + ".*")
	for _, j := range joins {
		tx = tx.Joins(j)
	}
	tx = pred.Apply(tx)
	if order == "" {
		order = entity.DefaultOrder
	}
	if order != "" {
		tx = tx.Order(order)
	}
	return tx
}

// Execute 执行查询。dest 必须是指向切片的指针。
// Fetch=false 时返回查询句柄（惰性查询），dest 不被触碰；
// Fetch=true 时把结果物化进 dest，并按 RaiseIfEmpty 约定处理空结果。
func Execute(db *gorm.DB, entity *Entity, pred Predicate, joins []string, opts Options, dest interface{}) (*gorm.DB, error) {
	tx := Build(db, entity, pred, joins, opts.Order)

	if !opts.Fetch {
		return tx, nil
	}

	if err := tx.Find(dest).Error; err != nil {
		return nil, err
	}

	if opts.RaiseIfEmpty && resultLen(dest) == 0 {
		return nil, &EmptyResultError{Entity: entity.Name}
	}
	return tx, nil
}

// resultLen 取出 dest 指向的切片长度。
func resultLen(dest interface{}) int {
	rv := reflect.ValueOf(dest)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice {
		return rv.Len()
	}
	return 0
}
