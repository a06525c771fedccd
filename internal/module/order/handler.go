package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/groveshop/storefront/internal/shared/errors"
	"github.com/groveshop/storefront/internal/utils/pagination"
)

// Handler exposes the admin order API.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new order handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdminRoutes registers the admin order routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id/notes", h.ListNotes)
}

// ListOrders returns a page of orders.
func (h *Handler) ListOrders(c *gin.Context) {
	p := pagination.New()
	if err := c.ShouldBindQuery(p); err != nil {
		appErr := apperrors.BadRequest(err.Error())
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	orders, total, err := h.service.ListOrders(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		appErr := apperrors.Internal("failed to list orders", err)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":     orders,
		"pagination": p.Info(total),
	})
}

// ListNotes returns the audit note log for an order.
func (h *Handler) ListNotes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appErr := apperrors.BadRequest("invalid order id")
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	notes, err := h.service.ListNotes(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to list order notes", zap.String("order_id", id.String()), zap.Error(err))
		appErr := apperrors.Internal("failed to list notes", err)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}
