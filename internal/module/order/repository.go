package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/groveshop/storefront/internal/utils/pagination"
	"gorm.io/gorm"
)

// Repository defines the interface for order data access.
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderByGuid(ctx context.Context, guid uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, p *pagination.Pagination) ([]*Order, int64, error)
	UpdateOrder(ctx context.Context, order *Order) error

	InsertNote(ctx context.Context, note *OrderNote) error
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]*OrderNote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrder(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *repository) GetOrderByGuid(ctx context.Context, guid uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "order_guid = ?", guid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by guid: %w", err)
	}
	return &order, nil
}

func (r *repository) ListOrders(ctx context.Context, p *pagination.Pagination) ([]*Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Order{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []*Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(p.Offset()).
		Limit(p.Limit()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (r *repository) InsertNote(ctx context.Context, note *OrderNote) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("insert order note: %w", err)
	}
	return nil
}

func (r *repository) ListNotes(ctx context.Context, orderID uuid.UUID) ([]*OrderNote, error) {
	var notes []*OrderNote
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("list order notes: %w", err)
	}
	return notes, nil
}
