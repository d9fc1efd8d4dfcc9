package query

// FieldRef 将一个过滤键绑定到具体的列引用。
// Column 带表前缀（例如 "samples.code"）；Joins 列出解析该键时
// 必须先引入的 JOIN 子句（按依赖顺序），使得对根实体的查询可以
// 透过关联表过滤嵌套属性。
type FieldRef struct {
	Column string
	Joins  []string
}

// Registry 保存某个根实体可用的全部过滤键。
// 它在进程启动时通过有序的 Register 调用构建（基础注册在前、
// 扩展模块在后，后注册者覆盖先注册者），随后调用 Seal 冻结。
// 冻结之后只读，任意数量的并发查询可以无锁使用。
type Registry struct {
	sealed bool
	fields map[string]FieldRef
}

// NewRegistry 创建一个空的过滤键注册表。
func NewRegistry() *Registry {
	return &Registry{fields: make(map[string]FieldRef)}
}

// Register 注册一个过滤键。同名键以最后一次注册为准，
// 这是扩展模块向基础实体追加或覆盖字段的合并语义。
// 在 Seal 之后调用属于初始化阶段的编程错误，直接 panic。
func (r *Registry) Register(key string, ref FieldRef) *Registry {
	if r.sealed {
		panic("query: 注册表已冻结，不允许再注册过滤键 " + key)
	}
	r.fields[key] = ref
	return r
}

// Seal 冻结注册表。之后的 Resolve 无需任何同步。
func (r *Registry) Seal() *Registry {
	r.sealed = true
	return r
}

// Resolve 查找过滤键对应的列引用。
func (r *Registry) Resolve(key string) (FieldRef, bool) {
	ref, ok := r.fields[key]
	return ref, ok
}

// Entity 描述一个可查询的根实体：表名、默认排序、
// 组级可见性的判定列，以及它的过滤键注册表。
type Entity struct {
	// Name 用于错误信息与诊断。
	Name  string
	Table string
	// OwningGroupColumn 是归属组判定列（带表前缀）。为空表示该实体
	// 没有归属组概念，只能以 Unrestricted 方式查询。
	OwningGroupColumn string
	// OwningJoin 非空时表示判定列位于关联表上，收窄查询时需要
	// 先引入该 JOIN（例如样本的可见性跟随其样本集）。
	OwningJoin string
	// DefaultOrder 是兜底排序，保证重复调用间分页结果确定。
	DefaultOrder string
	Registry     *Registry
}
