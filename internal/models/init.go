package models

import (
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/logger"

	"gorm.io/gorm"
)

// InitRootAccount 初始化平台根账户（推荐链终点）
func InitRootAccount(rootID uint) error {
	if rootID == 0 {
		return errors.New("根账户ID不能为 0")
	}
	var root Account
	err := DB.Unscoped().Where("id = ?", rootID).First(&root).Error
	if err == nil {
		if root.DeletedAt.Valid {
			logger.Warnw("root_account_soft_deleted", "account_id", rootID)
		}
		if root.UplineID != 0 {
			logger.Warnw("root_account_has_upline", "account_id", rootID, "upline_id", root.UplineID)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now()
	root = Account{
		ID:          rootID,
		DisplayName: "root",
		UplineID:    0,
		Status:      AccountActive,
		IsActivated: true,
		ActivatedAt: &now,
	}
	if err := DB.Create(&root).Error; err != nil {
		return err
	}
	// 显式主键插入后同步 postgres 自增序列
	if DB.Dialector.Name() == "postgres" {
		if err := DB.Exec("SELECT setval(pg_get_serial_sequence('accounts', 'id'), (SELECT MAX(id) FROM accounts))").Error; err != nil {
			logger.Warnw("root_account_sequence_sync_failed", "error", err)
		}
	}
	logger.Warnw("root_account_created", "account_id", rootID)
	return nil
}
