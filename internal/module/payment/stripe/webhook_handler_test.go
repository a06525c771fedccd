package stripe

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/module/payment"
)

const testSecret = "whsec_test"

type mockTransactions struct {
	mock.Mock
}

func (m *mockTransactions) GetByOrderGuid(ctx context.Context, orderGuid uuid.UUID) (*payment.Transaction, error) {
	args := m.Called(ctx, orderGuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

func (m *mockTransactions) ApplyTransition(ctx context.Context, orderGuid uuid.UUID, tr payment.Transition) (*payment.TransitionResult, error) {
	args := m.Called(ctx, orderGuid, tr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.TransitionResult), args.Error(1)
}

// signPayload builds a Stripe-Signature header for the payload.
func signPayload(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postEvent(t *testing.T, h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router.Group("/webhooks"))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func eventPayload(eventType string, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","api_version":%q,"type":%q,"data":{"object":%s}}`, stripe.APIVersion, eventType, object))
}

func TestHandleWebhook(t *testing.T) {
	orderGuid := uuid.New()

	t.Run("payment intent succeeded marks the order paid", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		payments.On("ApplyTransition", mock.Anything, orderGuid, payment.Transition{
			Kind:             payment.KindMarkPaid,
			AuthorizationRef: "pi_123",
		}).Return(&payment.TransitionResult{Applied: true}, nil)

		payload := eventPayload("payment_intent.succeeded",
			fmt.Sprintf(`{"id":"pi_123","metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertExpectations(t)
	})

	t.Run("payment intent failure marks the order failed", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		payments.On("ApplyTransition", mock.Anything, orderGuid, payment.Transition{
			Kind: payment.KindMarkFailed,
		}).Return(&payment.TransitionResult{Applied: true}, nil)

		payload := eventPayload("payment_intent.payment_failed",
			fmt.Sprintf(`{"id":"pi_123","metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertExpectations(t)
	})

	t.Run("partial charge refund applies the delta", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		tx := &payment.Transaction{
			OrderGuid:      orderGuid,
			Status:         payment.StatusPartiallyRefunded,
			Amount:         decimal.RequireFromString("10.00"),
			RefundedAmount: decimal.RequireFromString("2.00"),
		}
		payments.On("GetByOrderGuid", mock.Anything, orderGuid).Return(tx, nil)
		payments.On("ApplyTransition", mock.Anything, orderGuid,
			mock.MatchedBy(func(tr payment.Transition) bool {
				return tr.Kind == payment.KindPartialRefund && tr.Amount.Equal(decimal.RequireFromString("3.00"))
			})).Return(&payment.TransitionResult{Applied: true}, nil)

		// Cumulative 5.00 refunded of a 10.00 charge, 2.00 already applied.
		payload := eventPayload("charge.refunded",
			fmt.Sprintf(`{"id":"ch_123","amount":1000,"amount_refunded":500,"metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertExpectations(t)
	})

	t.Run("full charge refund issues a refund transition", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		tx := &payment.Transaction{
			OrderGuid: orderGuid,
			Status:    payment.StatusPaid,
			Amount:    decimal.RequireFromString("10.00"),
		}
		payments.On("GetByOrderGuid", mock.Anything, orderGuid).Return(tx, nil)
		payments.On("ApplyTransition", mock.Anything, orderGuid, payment.Transition{
			Kind: payment.KindRefund,
		}).Return(&payment.TransitionResult{Applied: true}, nil)

		payload := eventPayload("charge.refunded",
			fmt.Sprintf(`{"id":"ch_123","amount":1000,"amount_refunded":1000,"metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertExpectations(t)
	})

	t.Run("already accounted refund is a no-op", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		tx := &payment.Transaction{
			OrderGuid:      orderGuid,
			Status:         payment.StatusPartiallyRefunded,
			Amount:         decimal.RequireFromString("10.00"),
			RefundedAmount: decimal.RequireFromString("5.00"),
		}
		payments.On("GetByOrderGuid", mock.Anything, orderGuid).Return(tx, nil)

		payload := eventPayload("charge.refunded",
			fmt.Sprintf(`{"id":"ch_123","amount":1000,"amount_refunded":500,"metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertNotCalled(t, "ApplyTransition")
	})

	t.Run("invalid signature is rejected without processing", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		payload := eventPayload("payment_intent.succeeded",
			fmt.Sprintf(`{"id":"pi_123","metadata":{"order_guid":%q}}`, orderGuid))

		rec := postEvent(t, h, payload, "t=1,v1=deadbeef")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		payments.AssertNotCalled(t, "ApplyTransition")
	})

	t.Run("missing correlation token is absorbed", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		payload := eventPayload("payment_intent.succeeded", `{"id":"pi_123","metadata":{}}`)

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
		payments.AssertNotCalled(t, "ApplyTransition")
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		payments := new(mockTransactions)
		h := NewWebhookHandler(payments, testSecret, zap.NewNop(), nil)

		payload := eventPayload("customer.created", `{"id":"cus_123"}`)

		rec := postEvent(t, h, payload, signPayload(payload))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
