package repository

import (
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// AccountRepository 账户数据访问接口
type AccountRepository interface {
	GetByID(id uint) (*models.Account, error)
	GetByIDForUpdate(id uint) (*models.Account, error)
	GetByIDs(ids []uint) ([]models.Account, error)
	Create(account *models.Account) error
	UpdateWallet(account *models.Account, updatedAt time.Time) error
	WithTx(tx *gorm.DB) AccountRepository
}

// GormAccountRepository GORM 账户仓储实现
type GormAccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository 创建账户仓储
func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAccountRepository) WithTx(tx *gorm.DB) AccountRepository {
	if tx == nil {
		return r
	}
	return &GormAccountRepository{db: tx}
}

// GetByID 按ID获取账户
func (r *GormAccountRepository) GetByID(id uint) (*models.Account, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDForUpdate 按ID加锁获取账户
func (r *GormAccountRepository) GetByIDForUpdate(id uint) (*models.Account, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.Account
	if err := forUpdate(r.db).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDs 批量获取账户
func (r *GormAccountRepository) GetByIDs(ids []uint) ([]models.Account, error) {
	if len(ids) == 0 {
		return []models.Account{}, nil
	}
	var accounts []models.Account
	if err := r.db.Where("id IN ?", ids).Order("id asc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Create 创建账户
func (r *GormAccountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// UpdateWallet 仅更新余额与累计字段
func (r *GormAccountRepository) UpdateWallet(account *models.Account, updatedAt time.Time) error {
	if account == nil || account.ID == 0 {
		return nil
	}
	return r.db.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"wallet_balance":   account.WalletBalance,
			"total_profit":     account.TotalProfit,
			"total_commission": account.TotalCommission,
			"updated_at":       updatedAt,
		}).Error
}
