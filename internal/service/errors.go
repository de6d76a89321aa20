package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/repository"
)

var (
	ErrNotFound           = errors.New("记录不存在")
	ErrAccountNotFound    = fmt.Errorf("账户%w", ErrNotFound)
	ErrInvestmentNotFound = fmt.Errorf("投资%w", ErrNotFound)
	ErrRunNotFound        = fmt.Errorf("批次%w", ErrNotFound)
	ErrDuplicateEntry     = errors.New("流水已存在")
	ErrTransientStore     = errors.New("存储暂时不可用")
	ErrConfiguration      = errors.New("配置无效")
	ErrRunConflict        = errors.New("同周期已有运行中的批次")
	ErrItemTimeout        = errors.New("单项处理超时")
	ErrRunAborted         = errors.New("批次已中止")
	ErrInvalidCycleDate   = errors.New("周期日期无效")
	ErrLedgerNotPending   = errors.New("仅待入账流水可作废")
)

// ClassifyError 将错误映射为批次错误分类
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return constants.ErrorKindNotFound
	case errors.Is(err, ErrDuplicateEntry):
		return constants.ErrorKindDuplicate
	case errors.Is(err, ErrItemTimeout), errors.Is(err, context.DeadlineExceeded):
		return constants.ErrorKindTimeout
	case errors.Is(err, ErrRunAborted), errors.Is(err, context.Canceled):
		return constants.ErrorKindAborted
	case errors.Is(err, ErrTransientStore):
		return constants.ErrorKindTransient
	case errors.Is(err, ErrConfiguration):
		return constants.ErrorKindConfiguration
	case errors.Is(err, ErrRunConflict):
		return constants.ErrorKindRunConflict
	default:
		return constants.ErrorKindInternal
	}
}

// wrapStoreError 将可重试的存储错误包装为 ErrTransientStore
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransientStore) {
		return err
	}
	if repository.IsTransientStoreError(err) {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}
	return err
}

// isRetryable 单项处理是否可重试
func isRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

func truncateReason(msg string) string {
	const limit = 255
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit])
}
