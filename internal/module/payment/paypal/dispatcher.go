package paypal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/module/order"
	"github.com/groveshop/storefront/internal/module/payment"
	"github.com/groveshop/storefront/internal/module/settings"
	"github.com/groveshop/storefront/internal/utils/metrics"
)

// notificationVerifier is the outbound verification dependency.
type notificationVerifier interface {
	VerifyIPN(ctx context.Context, endpoint, rawBody string) error
	VerifyPDT(ctx context.Context, endpoint, pdtToken, txToken string) (url.Values, error)
}

// orderAccess is the slice of the order service the dispatcher consumes.
type orderAccess interface {
	GetOrderByGuid(ctx context.Context, guid uuid.UUID) (*order.Order, error)
	AddNote(ctx context.Context, orderID uuid.UUID, note string, displayToCustomer bool) error
}

// transactionAccess is the slice of the payment service the dispatcher consumes.
type transactionAccess interface {
	ApplyTransition(ctx context.Context, orderGuid uuid.UUID, tr payment.Transition) (*payment.TransitionResult, error)
}

// settingsAccess loads store-scoped gateway configuration.
type settingsAccess interface {
	Load(ctx context.Context, storeID, name string, dest any) error
}

// PDTOutcome is the browser-facing result of the synchronous return flow.
type PDTOutcome struct {
	// Completed selects the checkout-completed redirect; false selects
	// the generic home redirect.
	Completed bool
	OrderID   uuid.UUID
}

// Dispatcher reconciles provider notifications against orders. Each
// notification is verified, decoded, audited with exactly one order
// note, and mapped onto a guarded transaction transition. Errors are
// returned only when persistence fails; every other adverse outcome is
// absorbed after leaving an audit trail, because the provider retries on
// non-success responses and a notification that can never succeed must
// still be acknowledged.
type Dispatcher struct {
	verifier notificationVerifier
	settings settingsAccess
	orders   orderAccess
	payments transactionAccess
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(
	verifier notificationVerifier,
	settingsSvc settingsAccess,
	orders orderAccess,
	payments transactionAccess,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		verifier: verifier,
		settings: settingsSvc,
		orders:   orders,
		payments: payments,
		logger:   logger,
		metrics:  m,
	}
}

// HandleIPN processes an asynchronous provider notification. rawBody is
// the form-encoded request body exactly as received; the verifier echoes
// it back to the provider byte for byte, and only this dispatcher decodes
// it. A nil return means the notification was handled and the endpoint
// should acknowledge; a non-nil return means persistence failed and the
// provider should retry.
func (d *Dispatcher) HandleIPN(ctx context.Context, storeID, rawBody string) error {
	cfg := d.loadSettings(ctx, storeID)

	if err := d.verifier.VerifyIPN(ctx, cfg.EndpointURL(), rawBody); err != nil {
		outcome := "verification_inconclusive"
		if errors.Is(err, ErrVerificationRejected) {
			outcome = "verification_rejected"
		}
		d.logger.Error("ipn verification failed",
			zap.String("store_id", storeID),
			zap.Error(err))
		d.recordNotification("ipn", outcome)
		return nil
	}

	payload, err := url.ParseQuery(rawBody)
	if err != nil {
		d.logger.Error("ipn body is not form-encoded",
			zap.String("store_id", storeID),
			zap.Error(err))
		d.recordNotification("ipn", "malformed_payload")
		return nil
	}

	n := ParseNotification(payload)
	for _, p := range n.Problems {
		d.logger.Warn("ipn field unparsable", zap.String("problem", p))
	}

	if n.IsRecurring() {
		// Subscription billing is not modeled; acknowledge and move on.
		d.logger.Info("ignoring recurring-profile notification",
			zap.String("txn_type", n.TxnType),
			zap.String("rp_invoice_id", n.RecurringInvoiceID))
		d.recordNotification("ipn", "recurring_ignored")
		return nil
	}

	o, ok := d.resolveOrder(ctx, n.Custom, "ipn")
	if !ok {
		return nil
	}

	note := &strings.Builder{}
	fmt.Fprintf(note, "PayPal IPN:\n%s", n.FieldSummary())
	defer func() {
		if err := d.orders.AddNote(ctx, o.ID, note.String(), false); err != nil {
			d.logger.Error("failed to append ipn audit note",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
		}
	}()

	status := MapStatus(n.PaymentStatus, n.PendingReason)
	tr, ok := d.buildTransition(n, o, status, note)
	if !ok {
		d.recordNotification("ipn", "no_transition")
		return nil
	}

	res, err := d.payments.ApplyTransition(ctx, o.OrderGuid, tr)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			d.logger.Error("no payment transaction for order",
				zap.String("order_guid", o.OrderGuid.String()))
			fmt.Fprintf(note, "No payment transaction found for this order.\n")
			d.recordNotification("ipn", "transaction_not_found")
			return nil
		}
		return err
	}

	if res.Applied {
		fmt.Fprintf(note, "Transaction moved to %s.\n", res.Transaction.Status)
		d.recordNotification("ipn", "applied")
	} else {
		fmt.Fprintf(note, "Transition ignored: %s.\n", res.Reason)
		d.recordNotification("ipn", "guard_rejected")
	}
	return nil
}

// HandlePDT processes the synchronous return-redirect confirmation.
// fallbackCustom is the correlation token the provider appends to the
// return URL, used to locate the order when verification fails and the
// verified field set is unavailable.
func (d *Dispatcher) HandlePDT(ctx context.Context, storeID, txToken, fallbackCustom string) (PDTOutcome, error) {
	cfg := d.loadSettings(ctx, storeID)
	home := PDTOutcome{Completed: false}

	fields, err := d.verifier.VerifyPDT(ctx, cfg.EndpointURL(), cfg.PdtToken, txToken)
	if err != nil {
		d.logger.Error("pdt verification failed",
			zap.String("store_id", storeID),
			zap.Error(err))
		d.recordNotification("pdt", "verification_failed")

		custom := fallbackCustom
		if c := fields.Get("custom"); c != "" {
			custom = c
		}
		if o, ok := d.resolveOrder(ctx, custom, "pdt"); ok {
			note := fmt.Sprintf("PayPal PDT failed. tx: %s, error: %v", txToken, err)
			if nerr := d.orders.AddNote(ctx, o.ID, note, false); nerr != nil {
				return home, nerr
			}
		}
		return home, nil
	}

	n := ParseNotification(fields)
	for _, p := range n.Problems {
		d.logger.Warn("pdt field unparsable", zap.String("problem", p))
	}

	o, ok := d.resolveOrder(ctx, n.Custom, "pdt")
	if !ok {
		return home, nil
	}

	note := &strings.Builder{}
	fmt.Fprintf(note, "PayPal PDT:\n%s", n.FieldSummary())

	status := MapStatus(n.PaymentStatus, n.PendingReason)
	if status == payment.StatusPaid {
		if cfg.PdtValidateOrderTotal && !ValidateAmount(n.GrossAmount, o.OrderTotal, o.CurrencyRate) {
			fmt.Fprintf(note, "Order total %s doesn't match the reported amount %s (order #%d).\n",
				o.PresentmentTotal().Round(2), n.GrossAmount.Round(2), o.OrderNumber)
			if err := d.orders.AddNote(ctx, o.ID, note.String(), false); err != nil {
				return home, err
			}
			d.recordNotification("pdt", "amount_mismatch")
			return home, nil
		}

		res, err := d.payments.ApplyTransition(ctx, o.OrderGuid, payment.Transition{
			Kind:             payment.KindMarkPaid,
			AuthorizationRef: n.TxnID,
		})
		if err != nil && !errors.Is(err, payment.ErrTransactionNotFound) {
			return home, err
		}
		if err == nil {
			if res.Applied {
				fmt.Fprintf(note, "Transaction moved to %s.\n", res.Transaction.Status)
			} else {
				fmt.Fprintf(note, "Transition ignored: %s.\n", res.Reason)
			}
		}
	}

	if err := d.orders.AddNote(ctx, o.ID, note.String(), false); err != nil {
		return home, err
	}
	d.recordNotification("pdt", "completed")
	return PDTOutcome{Completed: true, OrderID: o.ID}, nil
}

// buildTransition maps an internal status onto a transition request,
// running amount validation for the branches that settle or move money.
// A false return means no transition should be attempted; the reason has
// already been written to the note.
func (d *Dispatcher) buildTransition(n *Notification, o *order.Order, status payment.Status, note *strings.Builder) (payment.Transition, bool) {
	switch status {
	case payment.StatusAuthorized:
		if !d.validateAmount(n, o, note) {
			return payment.Transition{}, false
		}
		return payment.Transition{Kind: payment.KindAuthorize, AuthorizationRef: n.TxnID}, true

	case payment.StatusPaid:
		if !d.validateAmount(n, o, note) {
			return payment.Transition{}, false
		}
		return payment.Transition{Kind: payment.KindMarkPaid, AuthorizationRef: n.TxnID}, true

	case payment.StatusRefunded:
		// Refund notifications report a negative gross amount; the
		// magnitude decides full versus partial refund.
		magnitude := n.GrossAmount.Abs().Round(2)
		total := o.PresentmentTotal().Round(2)
		switch {
		case magnitude.LessThan(total):
			return payment.Transition{Kind: payment.KindPartialRefund, Amount: magnitude}, true
		case magnitude.Equal(total):
			return payment.Transition{Kind: payment.KindRefund}, true
		}
		fmt.Fprintf(note, "Refund amount %s exceeds the order total %s (order #%d).\n",
			magnitude, total, o.OrderNumber)
		d.recordNotification("ipn", "amount_mismatch")
		return payment.Transition{}, false

	case payment.StatusVoided:
		return payment.Transition{Kind: payment.KindVoid}, true

	case payment.StatusFailed:
		return payment.Transition{Kind: payment.KindMarkFailed}, true

	case payment.StatusPending:
		fmt.Fprintf(note, "Payment is pending (reason: %s).\n", n.PendingReason)
		return payment.Transition{}, false
	}

	fmt.Fprintf(note, "Unrecognized payment status %q, nothing applied.\n", n.PaymentStatus)
	return payment.Transition{}, false
}

func (d *Dispatcher) validateAmount(n *Notification, o *order.Order, note *strings.Builder) bool {
	if ValidateAmount(n.GrossAmount, o.OrderTotal, o.CurrencyRate) {
		return true
	}
	d.logger.Error("reported amount doesn't match order total",
		zap.String("order_guid", o.OrderGuid.String()),
		zap.Int64("order_number", o.OrderNumber),
		zap.String("reported", n.GrossAmount.Round(2).String()),
		zap.String("expected", o.PresentmentTotal().Round(2).String()))
	fmt.Fprintf(note, "Order total %s doesn't match the reported amount %s (order #%d).\n",
		o.PresentmentTotal().Round(2), n.GrossAmount.Round(2), o.OrderNumber)
	d.recordNotification("ipn", "amount_mismatch")
	return false
}

// resolveOrder parses the correlation token and loads the order. Lookup
// failures are log-only: there is no order to attach a note to, and the
// provider must not be made to retry a notification that can never match.
func (d *Dispatcher) resolveOrder(ctx context.Context, custom, flow string) (*order.Order, bool) {
	guid, err := uuid.Parse(custom)
	if err != nil {
		d.logger.Error("malformed order correlation token",
			zap.String("custom", custom),
			zap.String("flow", flow))
		d.recordNotification(flow, "bad_token")
		return nil, false
	}

	o, err := d.orders.GetOrderByGuid(ctx, guid)
	if err != nil {
		d.logger.Error("order not found for correlation token",
			zap.String("order_guid", guid.String()),
			zap.String("flow", flow),
			zap.Error(err))
		d.recordNotification(flow, "order_not_found")
		return nil, false
	}
	return o, true
}

// loadSettings returns the store's gateway settings, falling back to
// defaults when the merchant has not configured anything yet.
func (d *Dispatcher) loadSettings(ctx context.Context, storeID string) Settings {
	var cfg Settings
	if err := d.settings.Load(ctx, storeID, SettingsName, &cfg); err != nil {
		if !errors.Is(err, settings.ErrSettingNotFound) {
			d.logger.Warn("failed to load gateway settings, using defaults",
				zap.String("store_id", storeID),
				zap.Error(err))
		}
		return DefaultSettings()
	}
	return cfg
}

func (d *Dispatcher) recordNotification(flow, outcome string) {
	if d.metrics != nil {
		d.metrics.RecordNotification("paypal", flow, outcome)
	}
}
