package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/logging"
	"github.com/daroosa/pharmacy_shop/internal/order"
)

// PaymentHandler receives gateway callbacks. The gateway retries on timeout,
// so Callback must stay idempotent end to end.
type PaymentHandler struct {
	Orders   *order.Service
	Producer *events.Producer
}

func (h *PaymentHandler) Callback(c echo.Context) error {
	var req struct {
		OrderID   uint   `json:"order_id"`
		Status    string `json:"status"`
		Authority string `json:"authority"`
		RefID     string `json:"ref_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OrderID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "order_id is required")
	}

	l := logging.With(c.Request().Context(), "order_id", req.OrderID)

	if req.Status != "OK" {
		o, err := h.Orders.MarkPaymentFailed(c.Request().Context(), req.OrderID, req.Authority)
		if err != nil {
			return httpError(c, err)
		}
		l.Info("payment failed", "authority", req.Authority)
		publish(c, h.Producer, events.TopicOrder, o.UserID, map[string]any{
			"type":         "payment_failed",
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
		})
		return c.JSON(http.StatusOK, o)
	}

	o, err := h.Orders.MarkPaid(c.Request().Context(), req.OrderID, req.Authority, req.RefID, time.Now())
	if err != nil {
		return httpError(c, err)
	}
	l.Info("payment confirmed", "ref_id", req.RefID)
	publish(c, h.Producer, events.TopicOrder, o.UserID, map[string]any{
		"type":         "payment_confirmed",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"ref_id":       req.RefID,
	})
	return c.JSON(http.StatusOK, o)
}
