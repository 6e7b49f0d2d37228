package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/logging"
	"github.com/daroosa/pharmacy_shop/internal/shoperr"
)

// currentUserID reads the id stored by the auth middleware. Zero means the
// route was registered without it.
func currentUserID(c echo.Context) uint {
	id, _ := c.Get("userID").(uint)
	return id
}

func pathID(c echo.Context, name string) (uint, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// httpError translates service errors into responses. Anything outside the
// known taxonomy is a 500 with the details kept out of the body.
func httpError(c echo.Context, err error) error {
	var stockErr *shoperr.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      "insufficient_stock",
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
		})
	case errors.Is(err, shoperr.ErrValidation), errors.Is(err, shoperr.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, shoperr.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, shoperr.ErrUnavailable), errors.Is(err, shoperr.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, shoperr.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, shoperr.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		logging.With(c.Request().Context(), "error", err).Error("internal error")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func publish(c echo.Context, producer *events.Producer, topic string, key uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 5*time.Second)
	defer cancel()
	if err := producer.PublishEvent(ctx, topic, fmt.Sprint(key), event); err != nil {
		logging.With(c.Request().Context(), "topic", topic, "error", err).Error("kafka publish failed")
	}
}
