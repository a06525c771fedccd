package payment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockRepository) GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, orderGuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func TestApplyTransition(t *testing.T) {
	ctx := context.Background()
	orderGuid := uuid.New()

	t.Run("applies and persists a valid transition", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, zap.NewNop(), nil)

		repo.On("GetByOrderGuid", ctx, orderGuid).Return(newTx(StatusPending), nil)
		repo.On("Update", ctx, mock.AnythingOfType("*payment.Transaction")).Return(nil)

		res, err := svc.ApplyTransition(ctx, orderGuid, Transition{Kind: KindMarkPaid, AuthorizationRef: "TX1"})

		assert.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, StatusPaid, res.Transaction.Status)
		assert.Equal(t, "TX1", res.Transaction.AuthorizationTransactionID)
		repo.AssertExpectations(t)
	})

	t.Run("guard rejection is a no-op, not an error", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, zap.NewNop(), nil)

		tx := newTx(StatusPending)
		repo.On("GetByOrderGuid", ctx, orderGuid).Return(tx, nil)

		res, err := svc.ApplyTransition(ctx, orderGuid, Transition{Kind: KindRefund})

		assert.NoError(t, err)
		assert.False(t, res.Applied)
		assert.NotEmpty(t, res.Reason)
		assert.Equal(t, StatusPending, tx.Status)
		repo.AssertNotCalled(t, "Update")
	})

	t.Run("duplicate delivery applies exactly once", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, zap.NewNop(), nil)

		// Same backing record across both deliveries, as the database
		// would return it.
		tx := newTx(StatusPending)
		repo.On("GetByOrderGuid", ctx, orderGuid).Return(tx, nil)
		repo.On("Update", ctx, tx).Return(nil)

		tr := Transition{Kind: KindMarkPaid, AuthorizationRef: "TX1"}

		first, err := svc.ApplyTransition(ctx, orderGuid, tr)
		assert.NoError(t, err)
		assert.True(t, first.Applied)

		second, err := svc.ApplyTransition(ctx, orderGuid, tr)
		assert.NoError(t, err)
		assert.False(t, second.Applied)

		assert.Equal(t, StatusPaid, tx.Status)
		assert.Equal(t, "TX1", tx.AuthorizationTransactionID)
		repo.AssertNumberOfCalls(t, "Update", 1)
	})

	t.Run("missing transaction surfaces as an error", func(t *testing.T) {
		repo := new(mockRepository)
		svc := NewService(repo, zap.NewNop(), nil)

		repo.On("GetByOrderGuid", ctx, orderGuid).Return(nil, ErrTransactionNotFound)

		res, err := svc.ApplyTransition(ctx, orderGuid, Transition{Kind: KindMarkPaid})

		assert.ErrorIs(t, err, ErrTransactionNotFound)
		assert.Nil(t, res)
	})
}

func TestCreateForOrder(t *testing.T) {
	ctx := context.Background()
	orderGuid := uuid.New()

	repo := new(mockRepository)
	svc := NewService(repo, zap.NewNop(), nil)

	repo.On("Create", ctx, mock.AnythingOfType("*payment.Transaction")).Return(nil)

	tx, err := svc.CreateForOrder(ctx, orderGuid, "USD", dec("25.00"))

	assert.NoError(t, err)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Equal(t, orderGuid, tx.OrderGuid)
	assert.True(t, tx.Amount.Equal(dec("25.00")))
	repo.AssertExpectations(t)
}
