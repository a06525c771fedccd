package paypal

import (
	"strings"

	"github.com/groveshop/storefront/internal/module/payment"
)

// MapStatus translates the provider's payment-status vocabulary into the
// internal status. Unknown inputs map to StatusOther, which callers
// treat as "log and ignore", never as an error.
//
// A provider may report a transaction completed yet still flag it with a
// pending reason (manual review, currency conversion); such payments are
// not treated as settled.
func MapStatus(paymentStatus, pendingReason string) payment.Status {
	switch strings.ToLower(paymentStatus) {
	case "pending":
		if strings.EqualFold(pendingReason, "authorization") {
			return payment.StatusAuthorized
		}
		return payment.StatusPending

	case "completed", "processed", "canceled_reversal":
		if pendingReason != "" {
			return payment.StatusPending
		}
		return payment.StatusPaid

	case "refunded", "reversed":
		return payment.StatusRefunded

	case "voided":
		return payment.StatusVoided

	case "denied", "expired", "failed":
		return payment.StatusFailed
	}

	return payment.StatusOther
}
