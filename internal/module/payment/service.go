package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/utils/metrics"
)

// TransitionResult is the outcome of a guarded transition attempt.
type TransitionResult struct {
	Transaction *Transaction
	Applied     bool
	// Reason explains a skipped transition; empty when applied.
	Reason string
}

// Service applies guarded transitions to payment transactions. All state
// mutation of transactions goes through ApplyTransition; the guard is
// re-evaluated against freshly loaded state on every call so duplicate
// or racing notifications collapse into no-ops.
type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService creates a new payment transaction service.
func NewService(repo Repository, logger *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, logger: logger, metrics: m}
}

// CreateForOrder creates the pending transaction that tracks an order's
// payment lifecycle.
func (s *Service) CreateForOrder(ctx context.Context, orderGuid uuid.UUID, currencyCode string, amount decimal.Decimal) (*Transaction, error) {
	tx := &Transaction{
		ID:           uuid.New(),
		OrderGuid:    orderGuid,
		Status:       StatusPending,
		CurrencyCode: currencyCode,
		Amount:       amount,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetByOrderGuid loads the transaction for an order correlation token.
func (s *Service) GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*Transaction, error) {
	return s.repo.GetByOrderGuid(ctx, orderGuid)
}

// ApplyTransition loads the transaction fresh, evaluates the guard and
// persists the mutation when the guard holds. A rejected guard is not an
// error: the result reports Applied=false with the reason and the caller
// records it as an audit entry. Errors are returned only for persistence
// failures.
func (s *Service) ApplyTransition(ctx context.Context, orderGuid uuid.UUID, tr Transition) (*TransitionResult, error) {
	tx, err := s.repo.GetByOrderGuid(ctx, orderGuid)
	if err != nil {
		return nil, err
	}

	ok, reason := CanApply(tx, tr)
	if !ok {
		s.logger.Info("transition skipped",
			zap.String("order_guid", orderGuid.String()),
			zap.String("kind", string(tr.Kind)),
			zap.String("status", tx.Status.String()),
			zap.String("reason", reason))
		s.recordTransition(tr.Kind, "rejected")
		return &TransitionResult{Transaction: tx, Applied: false, Reason: reason}, nil
	}

	Apply(tx, tr)
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("transition applied",
		zap.String("order_guid", orderGuid.String()),
		zap.String("kind", string(tr.Kind)),
		zap.String("status", tx.Status.String()))
	s.recordTransition(tr.Kind, "applied")

	return &TransitionResult{Transaction: tx, Applied: true}, nil
}

func (s *Service) recordTransition(kind Kind, result string) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(kind), result)
	}
}
