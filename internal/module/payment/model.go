package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction tracks the financial lifecycle of one order's payment.
// It is created when the order is placed and only ever advances in
// status; rows are never deleted.
type Transaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderGuid uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Status    Status    `gorm:"size:32;not null;default:'pending'"`

	// AuthorizationTransactionID is the provider's transaction id,
	// written once when the payment is captured.
	AuthorizationTransactionID string `gorm:"size:128"`

	CurrencyCode   string          `gorm:"size:8;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	RefundedAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name.
func (Transaction) TableName() string {
	return "payment_transactions"
}

// RemainingAmount returns the part of the captured amount not yet refunded.
func (t *Transaction) RemainingAmount() decimal.Decimal {
	return t.Amount.Sub(t.RefundedAmount)
}
