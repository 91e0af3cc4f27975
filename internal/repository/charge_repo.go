package repository

import (
	"context"
	"errors"
	"strings"

	"chequegw/internal/model"

	"gorm.io/gorm"
)

var (
	ErrChargeNotFound = errors.New("charge record not found")

	// ErrDuplicateCollected is the unique index on collected_account firing:
	// a collected charge already exists for the account. This is the
	// authoritative enforcement of the at-most-once invariant; the service
	// pre-check only short-circuits the common case.
	ErrDuplicateCollected = errors.New("collected charge already exists for account")
)

type ChargeRepository struct {
	db *gorm.DB
}

func NewChargeRepository(db *gorm.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) Create(ctx context.Context, tx *gorm.DB, charge *model.Charge) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(charge).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrDuplicateCollected
	}
	return err
}

// GetCollected returns the collected charge for an account, or nil when
// none exists.
func (r *ChargeRepository) GetCollected(ctx context.Context, chargeAccount string) (*model.Charge, error) {
	var charge model.Charge
	err := r.db.WithContext(ctx).
		Where("charge_account = ? AND is_collected = ?", chargeAccount, true).
		First(&charge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (r *ChargeRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.Charge, error) {
	var charge model.Charge
	err := r.db.WithContext(ctx).Where("gateway_ref = ?", gatewayRef).First(&charge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	return &charge, nil
}

func (r *ChargeRepository) List(ctx context.Context, page, pageSize int) ([]*model.Charge, int64, error) {
	var charges []*model.Charge
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Charge{})

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&charges).Error

	return charges, total, err
}

// isDuplicateKeyError detects both gorm's translated error and the raw
// MySQL 1062 message.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
