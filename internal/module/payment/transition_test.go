package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTx(status Status) *Transaction {
	return &Transaction{
		Status:       status,
		CurrencyCode: "USD",
		Amount:       dec("10.00"),
	}
}

func TestCanApply(t *testing.T) {
	tests := []struct {
		name    string
		tx      *Transaction
		tr      Transition
		allowed bool
	}{
		{"authorize from pending", newTx(StatusPending), Transition{Kind: KindAuthorize}, true},
		{"authorize from paid", newTx(StatusPaid), Transition{Kind: KindAuthorize}, false},
		{"mark paid from pending", newTx(StatusPending), Transition{Kind: KindMarkPaid}, true},
		{"mark paid from authorized", newTx(StatusAuthorized), Transition{Kind: KindMarkPaid}, true},
		{"mark paid from paid", newTx(StatusPaid), Transition{Kind: KindMarkPaid}, false},
		{"mark paid from refunded", newTx(StatusRefunded), Transition{Kind: KindMarkPaid}, false},
		{"refund from paid", newTx(StatusPaid), Transition{Kind: KindRefund}, true},
		{"refund from pending", newTx(StatusPending), Transition{Kind: KindRefund}, false},
		{"refund from partially refunded", newTx(StatusPartiallyRefunded), Transition{Kind: KindRefund}, true},
		{"partial refund from paid", newTx(StatusPaid), Transition{Kind: KindPartialRefund, Amount: dec("3.00")}, true},
		{"partial refund from pending", newTx(StatusPending), Transition{Kind: KindPartialRefund, Amount: dec("3.00")}, false},
		{"partial refund zero amount", newTx(StatusPaid), Transition{Kind: KindPartialRefund, Amount: dec("0")}, false},
		{"void from pending", newTx(StatusPending), Transition{Kind: KindVoid}, true},
		{"void from authorized", newTx(StatusAuthorized), Transition{Kind: KindVoid}, true},
		{"void from paid", newTx(StatusPaid), Transition{Kind: KindVoid}, true},
		{"void from refunded", newTx(StatusRefunded), Transition{Kind: KindVoid}, false},
		{"void from partially refunded", newTx(StatusPartiallyRefunded), Transition{Kind: KindVoid}, false},
		{"mark failed from pending", newTx(StatusPending), Transition{Kind: KindMarkFailed}, true},
		{"mark failed from paid", newTx(StatusPaid), Transition{Kind: KindMarkFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CanApply(tt.tx, tt.tr)
			assert.Equal(t, tt.allowed, ok)
			if !tt.allowed {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestCanApplyAuthorizationRef(t *testing.T) {
	t.Run("identical incoming reference is allowed", func(t *testing.T) {
		tx := newTx(StatusAuthorized)
		tx.AuthorizationTransactionID = "TX123"

		ok, _ := CanApply(tx, Transition{Kind: KindMarkPaid, AuthorizationRef: "TX123"})
		assert.True(t, ok)
	})

	t.Run("conflicting incoming reference is rejected", func(t *testing.T) {
		tx := newTx(StatusAuthorized)
		tx.AuthorizationTransactionID = "TX123"

		ok, reason := CanApply(tx, Transition{Kind: KindMarkPaid, AuthorizationRef: "TX999"})
		assert.False(t, ok)
		assert.Contains(t, reason, "authorization reference")
	})

	t.Run("empty incoming reference is allowed", func(t *testing.T) {
		tx := newTx(StatusAuthorized)
		tx.AuthorizationTransactionID = "TX123"

		ok, _ := CanApply(tx, Transition{Kind: KindMarkPaid})
		assert.True(t, ok)
	})
}

func TestCanApplyPartialRefundAccounting(t *testing.T) {
	t.Run("cumulative refunds within captured amount", func(t *testing.T) {
		tx := newTx(StatusPartiallyRefunded)
		tx.RefundedAmount = dec("4.00")

		ok, _ := CanApply(tx, Transition{Kind: KindPartialRefund, Amount: dec("6.00")})
		assert.True(t, ok)
	})

	t.Run("cumulative refunds exceeding captured amount rejected", func(t *testing.T) {
		tx := newTx(StatusPartiallyRefunded)
		tx.RefundedAmount = dec("4.00")

		ok, reason := CanApply(tx, Transition{Kind: KindPartialRefund, Amount: dec("6.01")})
		assert.False(t, ok)
		assert.Contains(t, reason, "exceeds")
	})
}

func TestApply(t *testing.T) {
	t.Run("mark paid sets status and reference once", func(t *testing.T) {
		tx := newTx(StatusPending)

		Apply(tx, Transition{Kind: KindMarkPaid, AuthorizationRef: "TX123"})

		assert.Equal(t, StatusPaid, tx.Status)
		assert.Equal(t, "TX123", tx.AuthorizationTransactionID)
	})

	t.Run("existing reference is never overwritten", func(t *testing.T) {
		tx := newTx(StatusPending)
		tx.AuthorizationTransactionID = "TX123"

		Apply(tx, Transition{Kind: KindMarkPaid, AuthorizationRef: "TX123"})

		assert.Equal(t, "TX123", tx.AuthorizationTransactionID)
	})

	t.Run("refund marks full amount refunded", func(t *testing.T) {
		tx := newTx(StatusPaid)

		Apply(tx, Transition{Kind: KindRefund})

		assert.Equal(t, StatusRefunded, tx.Status)
		assert.True(t, tx.RefundedAmount.Equal(tx.Amount))
	})

	t.Run("partial refund accumulates", func(t *testing.T) {
		tx := newTx(StatusPaid)

		Apply(tx, Transition{Kind: KindPartialRefund, Amount: dec("3.00")})
		assert.Equal(t, StatusPartiallyRefunded, tx.Status)
		assert.True(t, tx.RefundedAmount.Equal(dec("3.00")))

		Apply(tx, Transition{Kind: KindPartialRefund, Amount: dec("2.50")})
		assert.Equal(t, StatusPartiallyRefunded, tx.Status)
		assert.True(t, tx.RefundedAmount.Equal(dec("5.50")))
	})

	t.Run("partial refunds completing the amount become a full refund", func(t *testing.T) {
		tx := newTx(StatusPartiallyRefunded)
		tx.RefundedAmount = dec("7.00")

		Apply(tx, Transition{Kind: KindPartialRefund, Amount: dec("3.00")})

		assert.Equal(t, StatusRefunded, tx.Status)
		assert.True(t, tx.RefundedAmount.Equal(dec("10.00")))
	})
}
