package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfilment status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusComplete  OrderStatus = "complete"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order represents a placed storefront order.
//
// OrderGuid is the correlation token embedded in the payment request and
// echoed back by the gateway. It is the only identifier the gateway returns,
// so notification handling always resolves orders through it, never through
// the sequential OrderNumber shown to customers.
type Order struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderGuid    uuid.UUID       `json:"order_guid" gorm:"type:uuid;uniqueIndex;not null"`
	OrderNumber  int64           `json:"order_number" gorm:"uniqueIndex;not null"`
	Status       OrderStatus     `json:"status" gorm:"not null;default:pending"`
	OrderTotal   decimal.Decimal `json:"order_total" gorm:"type:numeric(18,2)"`
	CurrencyCode string          `json:"currency_code" gorm:"size:3;default:USD"`
	// CurrencyRate converts the store primary currency total into the
	// customer's presentment currency, which is what the gateway reports.
	CurrencyRate decimal.Decimal `json:"currency_rate" gorm:"type:numeric(18,8);default:1"`
	CustomerID   uuid.UUID       `json:"customer_id" gorm:"type:uuid;index"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// PresentmentTotal returns the order total in the currency the gateway
// settles in (order total multiplied by the currency rate).
func (o *Order) PresentmentTotal() decimal.Decimal {
	return o.OrderTotal.Mul(o.CurrencyRate)
}

// OrderNote is an append-only audit record attached to an order.
type OrderNote struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID           uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	Note              string    `json:"note" gorm:"type:text;not null"`
	DisplayToCustomer bool      `json:"display_to_customer" gorm:"default:false"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (OrderNote) TableName() string {
	return "order_notes"
}
