// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// DuplicateValueError 表示某个唯一约束冲突已经被定位到具体字段，
// 应用层可以把它渲染成字段级的校验错误（例如"编码已被占用"）。
type DuplicateValueError struct {
	Field string
	Value string
}

func (e *DuplicateValueError) Error() string {
	return fmt.Sprintf("字段 %s 的值 %q 已存在", e.Field, e.Value)
}

// mysqlDuplicateEntry 是 MySQL 唯一键冲突的错误码 (ER_DUP_ENTRY)。
const mysqlDuplicateEntry = 1062

// isDuplicateKey 判断存储层报告的错误是否为唯一约束冲突。
// 需要区分"重复键"与其它完整性错误，调用方才能把前者映射为字段错误。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	// sqlite（测试环境）报文形如 "UNIQUE constraint failed: samples.code"
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

// classifyIntegrityError 在写入点对存储错误做分类：能定位到字段的
// 唯一键冲突转成 DuplicateValueError，其余原样向上传递。
func classifyIntegrityError(err error, field, value string) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return &DuplicateValueError{Field: field, Value: value}
	}
	return err
}
