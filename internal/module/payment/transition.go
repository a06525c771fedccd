package payment

import (
	"github.com/shopspring/decimal"
)

// Kind identifies a requested transaction transition.
type Kind string

// Transition kinds.
const (
	KindAuthorize     Kind = "authorize"
	KindMarkPaid      Kind = "mark_paid"
	KindRefund        Kind = "refund"
	KindPartialRefund Kind = "partial_refund"
	KindVoid          Kind = "void"
	KindMarkFailed    Kind = "mark_failed"
)

// Transition is a tagged transition request. Amount carries the refund
// magnitude for refund kinds; AuthorizationRef carries the provider's
// transaction id for authorize/capture kinds.
type Transition struct {
	Kind             Kind
	Amount           decimal.Decimal
	AuthorizationRef string
}

// CanApply reports whether tr is valid against the transaction's current
// state. It must be evaluated against freshly loaded state immediately
// before mutation; a false result means the notification is stale,
// duplicate, or inapplicable and the transition is skipped, not failed.
func CanApply(tx *Transaction, tr Transition) (bool, string) {
	switch tr.Kind {
	case KindAuthorize:
		if tx.Status != StatusPending {
			return false, "order is not pending"
		}
		if conflict := refConflict(tx, tr.AuthorizationRef); conflict != "" {
			return false, conflict
		}
		return true, ""

	case KindMarkPaid:
		if tx.Status != StatusPending && tx.Status != StatusAuthorized {
			return false, "order is not pending or authorized"
		}
		if conflict := refConflict(tx, tr.AuthorizationRef); conflict != "" {
			return false, conflict
		}
		return true, ""

	case KindRefund:
		if tx.Status != StatusPaid && tx.Status != StatusPartiallyRefunded {
			return false, "order is not paid"
		}
		return true, ""

	case KindPartialRefund:
		if tx.Status != StatusPaid && tx.Status != StatusPartiallyRefunded {
			return false, "order is not paid"
		}
		if !tr.Amount.IsPositive() {
			return false, "refund amount is not positive"
		}
		if tr.Amount.GreaterThan(tx.RemainingAmount()) {
			return false, "refund amount exceeds remaining captured amount"
		}
		return true, ""

	case KindVoid:
		if tx.Status.IsTerminal() || tx.Status == StatusPartiallyRefunded {
			return false, "order cannot be voided"
		}
		return true, ""

	case KindMarkFailed:
		if tx.Status != StatusPending && tx.Status != StatusAuthorized {
			return false, "order is already settled"
		}
		return true, ""
	}

	return false, "unknown transition kind"
}

// Apply mutates tx per the transition. Callers must check CanApply first.
func Apply(tx *Transaction, tr Transition) {
	switch tr.Kind {
	case KindAuthorize:
		tx.Status = StatusAuthorized
		setRefOnce(tx, tr.AuthorizationRef)

	case KindMarkPaid:
		tx.Status = StatusPaid
		setRefOnce(tx, tr.AuthorizationRef)

	case KindRefund:
		tx.Status = StatusRefunded
		tx.RefundedAmount = tx.Amount

	case KindPartialRefund:
		tx.RefundedAmount = tx.RefundedAmount.Add(tr.Amount)
		if tx.RefundedAmount.Equal(tx.Amount) {
			tx.Status = StatusRefunded
		} else {
			tx.Status = StatusPartiallyRefunded
		}

	case KindVoid:
		tx.Status = StatusVoided

	case KindMarkFailed:
		tx.Status = StatusFailed
	}
}

// refConflict guards the write-once authorization reference: a second
// notification carrying the same reference is a harmless duplicate, a
// different reference must never overwrite the stored one.
func refConflict(tx *Transaction, incoming string) string {
	if tx.AuthorizationTransactionID == "" || incoming == "" {
		return ""
	}
	if tx.AuthorizationTransactionID != incoming {
		return "authorization reference already set to a different value"
	}
	return ""
}

func setRefOnce(tx *Transaction, incoming string) {
	if tx.AuthorizationTransactionID == "" && incoming != "" {
		tx.AuthorizationTransactionID = incoming
	}
}
