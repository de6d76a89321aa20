package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// forUpdate 行级锁，sqlite 无行锁时退化为普通查询。
func forUpdate(db *gorm.DB) *gorm.DB {
	return forUpdateByDialect(db, dbDialectName(db))
}

func forUpdateByDialect(db *gorm.DB, dialect string) *gorm.DB {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return db
	}
}

// IsUniqueViolation 判断是否为唯一约束冲突，兼容 sqlite 与 postgres 的错误文本。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") || strings.Contains(msg, "23505")
}

// IsTransientStoreError 判断是否为可重试的存储错误（连接中断、锁冲突、超时）。
func IsTransientStoreError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || IsUniqueViolation(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var transientErrorMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"connection refused",
	"connection reset",
	"broken pipe",
	"bad connection",
	"i/o timeout",
	"deadlock detected",
	"could not serialize access",
	"too many connections",
	"server closed the connection",
}
