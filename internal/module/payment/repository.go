package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for payment transaction data access.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new payment transaction repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *repository) GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := r.db.WithContext(ctx).First(&tx, "order_guid = ?", orderGuid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (r *repository) Update(ctx context.Context, tx *Transaction) error {
	if err := r.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}
