package paypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/shared/config"
	"github.com/groveshop/storefront/internal/utils/metrics"
)

// Verification errors. Rejected means the provider answered and said no:
// the notification is not authentic and the payment may be treated as
// failed. Inconclusive means the provider could not be reached or gave a
// malformed answer: nothing may be finalized either way.
var (
	ErrVerificationRejected     = errors.New("provider rejected the notification")
	ErrVerificationInconclusive = errors.New("provider verification inconclusive")
)

// Verifier confirms notification authenticity with the provider by
// echoing the payload back to it. The outbound call is the only blocking
// external dependency of notification handling, so it is bounded by a
// timeout and wrapped in a circuit breaker; a tripped breaker reports
// inconclusive, never rejected.
type Verifier struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewVerifier creates a verifier using the configured timeouts.
func NewVerifier(cfg *config.PayPalConfig, logger *zap.Logger, m *metrics.Metrics) *Verifier {
	settings := gobreaker.Settings{
		Name:        "paypal-verify",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Verifier{
		client:  &http.Client{Timeout: cfg.VerifyTimeout},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
		metrics: m,
	}
}

// VerifyIPN re-posts the received body to the provider with the
// validation directive prepended. The echo must be byte-identical to
// what the provider sent; re-encoding or reordering the fields can make
// the provider disown its own notification. Only an exact "VERIFIED"
// acknowledgment passes; "INVALID" or any other answer is a rejection.
func (v *Verifier) VerifyIPN(ctx context.Context, endpoint, rawBody string) error {
	start := time.Now()
	defer v.recordVerify("ipn", start)

	ack, err := v.post(ctx, endpoint, "cmd=_notify-validate&"+rawBody)
	if err != nil {
		return err
	}

	if strings.TrimSpace(ack) != "VERIFIED" {
		return fmt.Errorf("%w: acknowledgment %q", ErrVerificationRejected, firstLine(ack))
	}
	return nil
}

// VerifyPDT exchanges a return-redirect transaction token for the
// verified field set. The response is "SUCCESS" followed by URL-encoded
// key=value lines, or "FAIL". Whatever fields could be parsed are
// returned alongside the error so callers can still locate the order for
// an audit note.
func (v *Verifier) VerifyPDT(ctx context.Context, endpoint, pdtToken, txToken string) (url.Values, error) {
	start := time.Now()
	defer v.recordVerify("pdt", start)

	form := url.Values{}
	form.Set("cmd", "_notify-synch")
	form.Set("at", pdtToken)
	form.Set("tx", txToken)

	resp, err := v.post(ctx, endpoint, form.Encode())
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(resp, "\r\n", "\n"), "\n")
	fields := parsePDTFields(lines)

	switch strings.TrimSpace(lines[0]) {
	case "SUCCESS":
		return fields, nil
	case "FAIL":
		return fields, ErrVerificationRejected
	}
	return fields, fmt.Errorf("%w: unrecognized response %q", ErrVerificationInconclusive, firstLine(resp))
}

func (v *Verifier) post(ctx context.Context, endpoint, body string) (string, error) {
	resp, err := v.breaker.Execute(func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		res, err := v.client.Do(req)
		if err != nil {
			return "", err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return "", fmt.Errorf("provider returned status %d", res.StatusCode)
		}

		raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	})
	if err != nil {
		v.logger.Warn("provider verification call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrVerificationInconclusive, err)
	}
	return resp, nil
}

func (v *Verifier) recordVerify(flow string, start time.Time) {
	if v.metrics != nil {
		v.metrics.RecordVerify("paypal", flow, time.Since(start))
	}
}

// parsePDTFields decodes "key=value" response lines, skipping the
// acknowledgment line and anything unparsable.
func parsePDTFields(lines []string) url.Values {
	fields := url.Values{}
	for _, line := range lines[1:] {
		key, rawValue, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key == "" {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			value = rawValue
		}
		fields.Set(key, value)
	}
	return fields
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
