package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/module/payment"
	"github.com/groveshop/storefront/internal/utils/metrics"
)

// metadataOrderGuid is the metadata key carrying the order correlation
// token on payment intents and charges.
const metadataOrderGuid = "order_guid"

type transactionAccess interface {
	GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*payment.Transaction, error)
	ApplyTransition(ctx context.Context, orderGuid uuid.UUID, tr payment.Transition) (*payment.TransitionResult, error)
}

// WebhookHandler receives Stripe webhook events and maps them onto
// guarded transaction transitions. Unlike the PayPal flows, authenticity
// comes from the signed event envelope, so there is no outbound
// verification round trip.
type WebhookHandler struct {
	payments      transactionAccess
	webhookSecret string
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(payments transactionAccess, webhookSecret string, logger *zap.Logger, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		payments:      payments,
		webhookSecret: webhookSecret,
		logger:        logger,
		metrics:       m,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleWebhook)
}

// HandleWebhook handles incoming Stripe webhook events.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("invalid webhook signature", zap.Error(err))
		h.recordNotification("signature_rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ctx := c.Request.Context()

	var processErr error
	switch event.Type {
	case "payment_intent.succeeded":
		processErr = h.handlePaymentIntentSucceeded(ctx, &event)
	case "payment_intent.payment_failed":
		processErr = h.handlePaymentIntentFailed(ctx, &event)
	case "charge.refunded":
		processErr = h.handleChargeRefunded(ctx, &event)
	default:
		h.logger.Debug("unhandled webhook event type", zap.String("type", string(event.Type)))
	}

	if processErr != nil {
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(processErr),
		)
		h.recordNotification("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	h.recordNotification("processed")
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (h *WebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("unmarshal payment intent: %w", err)
	}

	orderGuid, ok := h.orderGuidFromMetadata(pi.Metadata, pi.ID)
	if !ok {
		return nil
	}

	h.logger.Info("payment intent succeeded",
		zap.String("payment_intent_id", pi.ID),
		zap.String("order_guid", orderGuid.String()),
	)

	return h.apply(ctx, orderGuid, payment.Transition{
		Kind:             payment.KindMarkPaid,
		AuthorizationRef: pi.ID,
	})
}

func (h *WebhookHandler) handlePaymentIntentFailed(ctx context.Context, event *stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("unmarshal payment intent: %w", err)
	}

	orderGuid, ok := h.orderGuidFromMetadata(pi.Metadata, pi.ID)
	if !ok {
		return nil
	}

	h.logger.Warn("payment intent failed",
		zap.String("payment_intent_id", pi.ID),
		zap.String("order_guid", orderGuid.String()),
	)

	return h.apply(ctx, orderGuid, payment.Transition{Kind: payment.KindMarkFailed})
}

func (h *WebhookHandler) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var ch stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
		return fmt.Errorf("unmarshal charge: %w", err)
	}

	orderGuid, ok := h.orderGuidFromMetadata(ch.Metadata, ch.ID)
	if !ok {
		return nil
	}

	// Stripe reports the cumulative refunded amount in minor units;
	// only the delta since the last event is applied.
	refunded := decimal.New(ch.AmountRefunded, -2)

	tx, err := h.payments.GetByOrderGuid(ctx, orderGuid)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			h.logger.Warn("no payment transaction for order",
				zap.String("order_guid", orderGuid.String()))
			return nil
		}
		return err
	}

	delta := refunded.Sub(tx.RefundedAmount)
	if !delta.IsPositive() {
		h.logger.Info("refund already accounted for",
			zap.String("charge_id", ch.ID),
			zap.String("order_guid", orderGuid.String()))
		return nil
	}

	tr := payment.Transition{Kind: payment.KindRefund}
	if ch.AmountRefunded < ch.Amount {
		tr = payment.Transition{Kind: payment.KindPartialRefund, Amount: delta}
	}

	h.logger.Info("charge refunded",
		zap.String("charge_id", ch.ID),
		zap.String("order_guid", orderGuid.String()),
		zap.String("refunded", refunded.String()),
	)

	return h.apply(ctx, orderGuid, tr)
}

// apply runs a guarded transition; a rejected guard or a missing
// transaction is logged and absorbed so Stripe does not retry an event
// that can never apply.
func (h *WebhookHandler) apply(ctx context.Context, orderGuid uuid.UUID, tr payment.Transition) error {
	res, err := h.payments.ApplyTransition(ctx, orderGuid, tr)
	if err != nil {
		if errors.Is(err, payment.ErrTransactionNotFound) {
			h.logger.Warn("no payment transaction for order",
				zap.String("order_guid", orderGuid.String()))
			return nil
		}
		return err
	}
	if !res.Applied {
		h.logger.Info("transition ignored",
			zap.String("order_guid", orderGuid.String()),
			zap.String("kind", string(tr.Kind)),
			zap.String("reason", res.Reason))
	}
	return nil
}

func (h *WebhookHandler) orderGuidFromMetadata(metadata map[string]string, objectID string) (uuid.UUID, bool) {
	raw, ok := metadata[metadataOrderGuid]
	if !ok {
		h.logger.Warn("webhook object carries no order correlation token",
			zap.String("object_id", objectID))
		return uuid.Nil, false
	}
	guid, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("malformed order correlation token",
			zap.String("object_id", objectID),
			zap.String("order_guid", raw))
		return uuid.Nil, false
	}
	return guid, true
}

func (h *WebhookHandler) recordNotification(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordNotification("stripe", "webhook", outcome)
	}
}
