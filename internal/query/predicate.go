package query

import "gorm.io/gorm"

// Predicate 是编译产物：一段参数化的布尔条件。
// 它可以继续与其它谓词做 AND/OR 组合（例如叠加访问控制子句），
// 组合不需要重新解析 SQL 文本。零值谓词表示"无条件"。
type Predicate struct {
	SQL  string
	Args []interface{}
}

// IsZero 判断谓词是否为空（不施加任何过滤）。
func (p Predicate) IsZero() bool {
	return p.SQL == ""
}

// None 返回一个恒假谓词，匹配零行。空的授权组集合会收窄到它。
func None() Predicate {
	return Predicate{SQL: "1 = 0"}
}

// And 将两个谓词用 AND 组合；任一方为空时返回另一方。
func And(a, b Predicate) Predicate {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	return Predicate{
		SQL:  "(" + a.SQL + ") AND (" + b.SQL + ")",
		Args: append(append([]interface{}{}, a.Args...), b.Args...),
	}
}

// Or 将两个谓词用 OR 组合；任一方为空时返回另一方。
func Or(a, b Predicate) Predicate {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	return Predicate{
		SQL:  "(" + a.SQL + ") OR (" + b.SQL + ")",
		Args: append(append([]interface{}{}, a.Args...), b.Args...),
	}
}

// Apply 将谓词施加到一个 GORM 查询句柄上。空谓词不做任何修改。
func (p Predicate) Apply(db *gorm.DB) *gorm.DB {
	if p.IsZero() {
		return db
	}
	return db.Where(p.SQL, p.Args...)
}
