package query

import (
	"reflect"
	"strings"
)

// Term 是规格组内的一个键值条件。
type Term struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// SpecGroup 是一组 AND 组合的过滤条件。使用有序的键值对而不是 map，
// 以便检测同一组内的重复键（重复意图不明确，必须拒绝）。
type SpecGroup []Term

// FilterSpec 是有序的规格组列表。组之间为 OR，组内条件为 AND
// （OR-of-ANDs），调用方依赖这一语义表达
// "id 在这批里 或者 code 在那批里" 之类的查询。
type FilterSpec []SpecGroup

// Wildcard 是值字符串中的通配符标记，出现时该条件按
// 大小写不敏感的模式匹配处理。
const Wildcard = "*"

// Compile 将过滤规格编译为单个谓词以及执行前需要引入的 JOIN 子句列表。
// 值的三种解释方式互斥，由值的形态决定：
//   - 切片／数组   -> 集合成员测试 (IN)
//   - 含 * 的字符串 -> 大小写不敏感的模式匹配 (LIKE)
//   - 其它标量     -> 等值测试
//
// 编译是只读操作，没有副作用，任何错误都不会产生部分结果。
func Compile(entity *Entity, specs FilterSpec) (Predicate, []string, error) {
	var pred Predicate
	joins := make([]string, 0)
	seenJoin := make(map[string]struct{})

	for _, group := range specs {
		if len(group) == 0 {
			continue
		}
		seenKey := make(map[string]struct{}, len(group))
		var groupPred Predicate

		for _, term := range group {
			if _, dup := seenKey[term.Key]; dup {
				return Predicate{}, nil, &DuplicateFieldError{Entity: entity.Name, Key: term.Key}
			}
			seenKey[term.Key] = struct{}{}

			ref, ok := entity.Registry.Resolve(term.Key)
			if !ok {
				return Predicate{}, nil, &UnknownFilterKeyError{Entity: entity.Name, Key: term.Key}
			}

			for _, j := range ref.Joins {
				if _, dup := seenJoin[j]; !dup {
					seenJoin[j] = struct{}{}
					joins = append(joins, j)
				}
			}

			groupPred = And(groupPred, termPredicate(ref.Column, term.Value))
		}

		pred = Or(pred, groupPred)
	}

	return pred, joins, nil
}

// termPredicate 根据值的形态为单个条件生成谓词。
func termPredicate(column string, value interface{}) Predicate {
	rv := reflect.ValueOf(value)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		// 空集合的成员测试恒假
		if rv.Len() == 0 {
			return None()
		}
		return Predicate{SQL: column + " IN ?", Args: []interface{}{value}}
	}

	if s, ok := value.(string); ok && strings.Contains(s, Wildcard) {
		return Predicate{
			SQL:  "LOWER(" + column + ") LIKE ? ESCAPE '" + likeEscape + "'",
			Args: []interface{}{wildcardPattern(s)},
		}
	}

	return Predicate{SQL: column + " = ?", Args: []interface{}{value}}
}

// likeEscape 是 LIKE 模式里使用的转义字符，随 ESCAPE 子句显式声明。
// 只有 MySQL 默认把反斜杠当转义字符，标准 SQL 与 sqlite 都不认；
// 反斜杠在各方言的字符串字面量里写法又不一致，选一个中性字符最稳。
const likeEscape = "#"

// wildcardPattern 将带 * 的用户输入转换为 LIKE 模式：
// 先转义 LIKE 自身的元字符与转义字符本身，再把 * 换成 %，并统一为小写。
func wildcardPattern(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, likeEscape, likeEscape+likeEscape)
	s = strings.ReplaceAll(s, "%", likeEscape+"%")
	s = strings.ReplaceAll(s, "_", likeEscape+"_")
	return strings.ReplaceAll(s, Wildcard, "%")
}
