package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daroosa/pharmacy_shop/internal/cart"
	"github.com/daroosa/pharmacy_shop/internal/events"
)

type CartHandler struct {
	Cart     *cart.Service
	Producer *events.Producer
}

// GetCart returns the lines, derived totals and any anomalies that would block
// checkout.
func (h *CartHandler) GetCart(c echo.Context) error {
	userID := currentUserID(c)
	lines, err := h.Cart.Lines(c.Request().Context(), userID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"lines":     lines,
		"totals":    h.Cart.TotalsFor(lines),
		"anomalies": h.Cart.Anomalies(lines),
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID := currentUserID(c)

	var req struct {
		ProductID uint  `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	item, err := h.Cart.Add(c.Request().Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicCart, userID, map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID := currentUserID(c)
	productID, err := pathID(c, "productID")
	if err != nil {
		return err
	}

	var req struct {
		Quantity int64 `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := h.Cart.UpdateQuantity(c.Request().Context(), userID, productID, req.Quantity)
	if err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicCart, userID, map[string]any{
		"type":       "cart_item_updated",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID := currentUserID(c)
	productID, err := pathID(c, "productID")
	if err != nil {
		return err
	}

	if err := h.Cart.Remove(c.Request().Context(), userID, productID); err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicCart, userID, map[string]any{
		"type":       "cart_item_removed",
		"user_id":    userID,
		"product_id": productID,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID := currentUserID(c)
	if err := h.Cart.Clear(c.Request().Context(), userID); err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicCart, userID, map[string]any{
		"type":    "cart_cleared",
		"user_id": userID,
	})
	return c.NoContent(http.StatusNoContent)
}
