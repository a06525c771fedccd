package paypal

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/groveshop/storefront/internal/module/settings"
	apperrors "github.com/groveshop/storefront/internal/shared/errors"
)

// Handler exposes the gateway's inbound endpoints and admin configuration.
type Handler struct {
	dispatcher *Dispatcher
	settings   *settings.Service
	logger     *zap.Logger
	// publicBaseURL is the externally reachable base for browser redirects.
	publicBaseURL string
}

// NewHandler creates a new gateway handler.
func NewHandler(dispatcher *Dispatcher, settingsSvc *settings.Service, publicBaseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		dispatcher:    dispatcher,
		settings:      settingsSvc,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// RegisterRoutes registers the provider-facing notification endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/paypal/ipn", h.IPN)
	// The provider redirects the customer's browser with GET; some
	// merchant configurations post the return instead.
	r.GET("/paypal/pdt", h.PDT)
	r.POST("/paypal/pdt", h.PDT)
	r.GET("/paypal/cancel", h.Cancel)
}

// RegisterAdminRoutes registers the merchant configuration endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/paypal/settings", h.GetSettings)
	r.PUT("/paypal/settings", h.UpdateSettings)
}

// IPN receives asynchronous provider notifications. The provider retries
// on non-2xx, so the endpoint acknowledges with an empty 200 for every
// handled notification, including rejected or unmatched ones; only a
// persistence failure surfaces as 5xx to request a retry.
func (h *Handler) IPN(c *gin.Context) {
	// The body is kept as raw bytes: verification echoes it back to the
	// provider unchanged, and any re-encoding would break that echo.
	raw, err := c.GetRawData()
	if err != nil {
		h.logger.Error("failed to read ipn body", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	storeID := c.Query("store")
	if err := h.dispatcher.HandleIPN(c.Request.Context(), storeID, string(raw)); err != nil {
		h.logger.Error("ipn handling failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}

// PDT receives the customer's return redirect carrying the short-lived
// transaction token and forwards the browser to either the completed
// page or the store front page.
func (h *Handler) PDT(c *gin.Context) {
	storeID := c.Query("store")
	txToken := c.Query("tx")
	// The provider appends the correlation token as "cm" on return.
	fallbackCustom := c.Query("cm")

	outcome, err := h.dispatcher.HandlePDT(c.Request.Context(), storeID, txToken, fallbackCustom)
	if err != nil {
		h.logger.Error("pdt handling failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.publicBaseURL+"/")
		return
	}

	if outcome.Completed {
		c.Redirect(http.StatusFound, fmt.Sprintf("%s/checkout/completed/%s", h.publicBaseURL, outcome.OrderID))
		return
	}
	c.Redirect(http.StatusFound, h.publicBaseURL+"/")
}

// Cancel receives the customer's cancel redirect and sends them back to
// the store front page.
func (h *Handler) Cancel(c *gin.Context) {
	c.Redirect(http.StatusFound, h.publicBaseURL+"/")
}

// GetSettings returns the store's gateway configuration.
func (h *Handler) GetSettings(c *gin.Context) {
	storeID := c.Query("store")

	var cfg Settings
	err := h.settings.Load(c.Request.Context(), storeID, SettingsName, &cfg)
	if err != nil {
		if errors.Is(err, settings.ErrSettingNotFound) {
			c.JSON(http.StatusOK, DefaultSettings())
			return
		}
		h.logger.Error("failed to load gateway settings", zap.Error(err))
		appErr := apperrors.Internal("failed to load settings", err)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateSettings replaces the store's gateway configuration.
func (h *Handler) UpdateSettings(c *gin.Context) {
	storeID := c.Query("store")

	var cfg Settings
	if err := c.ShouldBindJSON(&cfg); err != nil {
		appErr := apperrors.BadRequest(err.Error())
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	if err := h.settings.Save(c.Request.Context(), storeID, SettingsName, cfg); err != nil {
		h.logger.Error("failed to save gateway settings", zap.Error(err))
		appErr := apperrors.Internal("failed to save settings", err)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	c.JSON(http.StatusOK, cfg)
}
