package repository

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork 单个处理单元的执行器
type UnitOfWork interface {
	Run(ctx context.Context, atomic bool, fn func(tx *gorm.DB) error) error
}

// GormUnitOfWork GORM 处理单元实现
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork 创建处理单元执行器
func NewUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Run 执行处理单元，atomic 为 true 时包裹在同一事务内
func (u *GormUnitOfWork) Run(ctx context.Context, atomic bool, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	db := u.db
	if ctx != nil {
		db = db.WithContext(ctx)
	}
	if !atomic {
		return fn(db)
	}
	return db.Transaction(fn)
}
