package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/groveshop/storefront/internal/utils/pagination"
	"go.uber.org/zap"
)

// Service provides order lookup and annotation for the rest of the system.
// The payment core treats orders as read-mostly references plus an
// append-only note log.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetOrder returns an order by internal ID.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// GetOrderByGuid resolves an order through its correlation token.
func (s *Service) GetOrderByGuid(ctx context.Context, guid uuid.UUID) (*Order, error) {
	return s.repo.GetOrderByGuid(ctx, guid)
}

// ListOrders returns a page of orders, newest first.
func (s *Service) ListOrders(ctx context.Context, p *pagination.Pagination) ([]*Order, int64, error) {
	return s.repo.ListOrders(ctx, p)
}

// AddNote appends an audit note to an order.
func (s *Service) AddNote(ctx context.Context, orderID uuid.UUID, note string, displayToCustomer bool) error {
	n := &OrderNote{
		ID:                uuid.New(),
		OrderID:           orderID,
		Note:              note,
		DisplayToCustomer: displayToCustomer,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.repo.InsertNote(ctx, n); err != nil {
		s.logger.Error("failed to insert order note",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// ListNotes returns all notes for an order, oldest first.
func (s *Service) ListNotes(ctx context.Context, orderID uuid.UUID) ([]*OrderNote, error) {
	return s.repo.ListNotes(ctx, orderID)
}
