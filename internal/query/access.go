package query

// AccessScope 表示调用方的可见范围：要么是不受限的管理访问，
// 要么是一个有界的授权研究组 ID 集合。
// 空的组集合意味着"全部拒绝"，而不是"不过滤"。
type AccessScope struct {
	unrestricted bool
	groupIDs     []uint
}

// Unrestricted 返回不受限的访问范围（管理／系统调用）。
func Unrestricted() AccessScope {
	return AccessScope{unrestricted: true}
}

// GroupSet 返回限定在给定研究组集合内的访问范围。
func GroupSet(ids []uint) AccessScope {
	return AccessScope{groupIDs: ids}
}

// IsUnrestricted 判断范围是否不受限。
func (s AccessScope) IsUnrestricted() bool {
	return s.unrestricted
}

// GroupIDs 返回授权的研究组 ID 集合（仅在受限范围下有意义）。
func (s AccessScope) GroupIDs() []uint {
	return s.groupIDs
}

// Restrict 在已编译的谓词上叠加组可见性过滤。
// 它在编译之后、执行之前运行，访问过滤永远不混入用户可控的过滤规格。
//   - Unrestricted      -> 谓词原样返回；
//   - 空的 GroupSet     -> 收窄为恒假谓词（拒绝一切）；
//   - 非空 GroupSet     -> AND 上 "归属组列 IN 授权集合"。
//
// 对没有归属组列的实体施加受限范围是调用点错误，返回 NotRestrictableError。
func Restrict(pred Predicate, scope AccessScope, entity *Entity) (Predicate, error) {
	if scope.unrestricted {
		return pred, nil
	}
	if entity.OwningGroupColumn == "" {
		return Predicate{}, &NotRestrictableError{Entity: entity.Name}
	}
	if len(scope.groupIDs) == 0 {
		return And(pred, None()), nil
	}
	return And(pred, Predicate{
		SQL:  entity.OwningGroupColumn + " IN ?",
		Args: []interface{}{scope.groupIDs},
	}), nil
}
