package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/logging"
	"github.com/daroosa/pharmacy_shop/internal/order"
	"github.com/daroosa/pharmacy_shop/internal/util"
)

type OrderHandler struct {
	Orders   *order.Service
	Producer *events.Producer
}

// Checkout converts the cart into an order in one transaction.
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		AddressID uint   `json:"address_id"`
		Note      string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	o, items, err := h.Orders.Checkout(c.Request().Context(), userID, order.CheckoutInput{
		AddressID: req.AddressID,
		Note:      req.Note,
	})
	if err != nil {
		return httpError(c, err)
	}

	logging.With(c.Request().Context(),
		"order_number", o.OrderNumber, "user_id", userID, "total", o.TotalAmount).Info("order placed")
	publish(c, h.Producer, events.TopicOrder, userID, map[string]any{
		"type":         "order_created",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      userID,
		"total":        o.TotalAmount,
	})

	return c.JSON(http.StatusCreated, echo.Map{"order": o, "items": items})
}

func (h *OrderHandler) List(c echo.Context) error {
	userID := currentUserID(c)
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Window(page, size)

	orders, err := h.Orders.List(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": orders, "page": page, "size": limit})
}

func (h *OrderHandler) Get(c echo.Context) error {
	userID := currentUserID(c)
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	o, items, err := h.Orders.Get(c.Request().Context(), userID, orderID)
	if err != nil {
		return httpError(c, err)
	}
	history, err := h.Orders.History(c.Request().Context(), o.ID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o, "items": items, "history": history})
}

// Cancel aborts one of the caller's own unpaid orders and restocks it.
func (h *OrderHandler) Cancel(c echo.Context) error {
	userID := currentUserID(c)
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	// Ownership check before touching the lifecycle.
	if _, _, err := h.Orders.Get(c.Request().Context(), userID, orderID); err != nil {
		return httpError(c, err)
	}

	o, err := h.Orders.Cancel(c.Request().Context(), orderID, userID, "cancelled by customer")
	if err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicOrder, userID, map[string]any{
		"type":         "order_cancelled",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      userID,
	})
	return c.JSON(http.StatusOK, o)
}

// Return accepts a delivered, paid order back within the return window.
func (h *OrderHandler) Return(c echo.Context) error {
	userID := currentUserID(c)
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, _, err := h.Orders.Get(c.Request().Context(), userID, orderID); err != nil {
		return httpError(c, err)
	}

	o, err := h.Orders.Return(c.Request().Context(), orderID, userID, "returned by customer")
	if err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicOrder, userID, map[string]any{
		"type":         "order_returned",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      userID,
	})
	return c.JSON(http.StatusOK, o)
}

// Delete removes one of the caller's unpaid orders entirely.
func (h *OrderHandler) Delete(c echo.Context) error {
	userID := currentUserID(c)
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, _, err := h.Orders.Get(c.Request().Context(), userID, orderID); err != nil {
		return httpError(c, err)
	}
	if err := h.Orders.Delete(c.Request().Context(), orderID); err != nil {
		return httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus is the admin fulfilment operation: one step forward along the
// status path.
func (h *OrderHandler) SetStatus(c echo.Context) error {
	actorID := currentUserID(c)
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	o, err := h.Orders.SetStatus(c.Request().Context(), orderID, req.Status, actorID, req.Note)
	if err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicOrder, o.UserID, map[string]any{
		"type":         "order_status_changed",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"status":       o.Status,
	})
	return c.JSON(http.StatusOK, o)
}
