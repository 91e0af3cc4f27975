package repository

import (
	"context"
	"errors"

	"chequegw/internal/model"

	"gorm.io/gorm"
)

var (
	ErrChequeNotFound = errors.New("unpaid cheque record not found")
)

type UnpaidChequeRepository struct {
	db *gorm.DB
}

func NewUnpaidChequeRepository(db *gorm.DB) *UnpaidChequeRepository {
	return &UnpaidChequeRepository{db: db}
}

func (r *UnpaidChequeRepository) Create(ctx context.Context, tx *gorm.DB, cheque *model.UnpaidCheque) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(cheque).Error
}

func (r *UnpaidChequeRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*model.UnpaidCheque, error) {
	var cheque model.UnpaidCheque
	err := r.db.WithContext(ctx).Where("gateway_ref = ?", gatewayRef).First(&cheque).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChequeNotFound
		}
		return nil, err
	}
	return &cheque, nil
}

func (r *UnpaidChequeRepository) GetByFtRef(ctx context.Context, ftRef string) (*model.UnpaidCheque, error) {
	var cheque model.UnpaidCheque
	err := r.db.WithContext(ctx).Where("ft_ref = ?", ftRef).Order("logged_at DESC").First(&cheque).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cheque, nil
}

func (r *UnpaidChequeRepository) List(ctx context.Context, page, pageSize int) ([]*model.UnpaidCheque, int64, error) {
	var cheques []*model.UnpaidCheque
	var total int64

	query := r.db.WithContext(ctx).Model(&model.UnpaidCheque{})

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("logged_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&cheques).Error

	return cheques, total, err
}

func (r *UnpaidChequeRepository) ListByOwner(ctx context.Context, owner string, page, pageSize int) ([]*model.UnpaidCheque, int64, error) {
	var cheques []*model.UnpaidCheque
	var total int64

	query := r.db.WithContext(ctx).Model(&model.UnpaidCheque{}).Where("owner = ?", owner)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("logged_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&cheques).Error

	return cheques, total, err
}
