package paypal

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Notification is the typed decoding of a provider payload. The provider
// sends schema-less key/value pairs; decoding happens once at this
// boundary so the rest of the flow never does defensive map lookups.
// Missing fields decode to zero values, unparsable ones additionally
// land in Problems — a malformed field never aborts the notification.
type Notification struct {
	TxnID         string
	TxnType       string
	PaymentStatus string
	PendingReason string
	// GrossAmount is signed: refunds report a negative value.
	GrossAmount decimal.Decimal
	Currency    string
	// Custom carries the order correlation token for one-time payments.
	Custom string
	// RecurringInvoiceID is set on recurring-profile notifications.
	RecurringInvoiceID string
	ReceiverEmail      string
	ParentTxnID        string

	// Raw is the full decoded payload, kept for the audit note.
	Raw url.Values
	// Problems lists fields that were present but unparsable.
	Problems []string
}

// ParseNotification decodes provider form values into a Notification.
func ParseNotification(values url.Values) *Notification {
	n := &Notification{
		TxnID:              values.Get("txn_id"),
		TxnType:            values.Get("txn_type"),
		PaymentStatus:      values.Get("payment_status"),
		PendingReason:      values.Get("pending_reason"),
		Currency:           values.Get("mc_currency"),
		Custom:             values.Get("custom"),
		RecurringInvoiceID: values.Get("rp_invoice_id"),
		ReceiverEmail:      values.Get("receiver_email"),
		ParentTxnID:        values.Get("parent_txn_id"),
		Raw:                values,
	}

	if raw := values.Get("mc_gross"); raw != "" {
		gross, err := decimal.NewFromString(raw)
		if err != nil {
			n.Problems = append(n.Problems, fmt.Sprintf("mc_gross %q is not numeric", raw))
		} else {
			n.GrossAmount = gross
		}
	}

	return n
}

// IsRecurring reports whether the notification belongs to a recurring
// billing profile, which this gateway does not model.
func (n *Notification) IsRecurring() bool {
	switch strings.ToLower(n.TxnType) {
	case "recurring_payment", "recurring_payment_profile_created":
		return true
	}
	return false
}

// FieldSummary renders every received field as sorted "name: value"
// lines for the order audit note.
func (n *Notification) FieldSummary() string {
	keys := make([]string, 0, len(n.Raw))
	for k := range n.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, n.Raw.Get(k))
	}
	return b.String()
}
