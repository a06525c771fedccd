package paypal

import "github.com/shopspring/decimal"

// SettingsName is the settings-service key under which the gateway's
// store-scoped configuration is persisted.
const SettingsName = "payments.paypalstandard"

// Provider endpoints.
const (
	liveURL    = "https://www.paypal.com/us/cgi-bin/webscr"
	sandboxURL = "https://www.sandbox.paypal.com/us/cgi-bin/webscr"
)

// Settings is the merchant-facing gateway configuration, store-scoped
// and persisted through the settings service.
type Settings struct {
	UseSandbox     bool   `json:"use_sandbox"`
	BusinessEmail  string `json:"business_email"`
	PdtToken       string `json:"pdt_token"`
	// PdtValidateOrderTotal enables the order-total match guard on the
	// synchronous return flow before a payment is accepted as paid.
	PdtValidateOrderTotal     bool            `json:"pdt_validate_order_total"`
	AdditionalFee             decimal.Decimal `json:"additional_fee"`
	AdditionalFeePercentage   bool            `json:"additional_fee_percentage"`
	PassProductNamesAndTotals bool            `json:"pass_product_names_and_totals"`
}

// DefaultSettings returns the configuration used before a merchant has
// saved anything.
func DefaultSettings() Settings {
	return Settings{
		UseSandbox:            true,
		PdtValidateOrderTotal: true,
	}
}

// EndpointURL returns the provider endpoint for this configuration.
func (s Settings) EndpointURL() string {
	if s.UseSandbox {
		return sandboxURL
	}
	return liveURL
}
