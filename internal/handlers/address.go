package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/models"
)

type AddressHandler struct {
	DB *gorm.DB
}

func (h *AddressHandler) List(c echo.Context) error {
	var addrs []models.Address
	if err := h.DB.Where("user_id = ?", currentUserID(c)).Order("id ASC").Find(&addrs).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, addrs)
}

func (h *AddressHandler) Create(c echo.Context) error {
	var req struct {
		Receiver   string `json:"receiver"`
		Phone      string `json:"phone"`
		Province   string `json:"province"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
		Line       string `json:"line"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Receiver == "" || req.Phone == "" || req.Province == "" || req.City == "" || req.Line == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "receiver, phone, province, city and line are required")
	}

	addr := models.Address{
		UserID:     currentUserID(c),
		Receiver:   req.Receiver,
		Phone:      req.Phone,
		Province:   req.Province,
		City:       req.City,
		PostalCode: req.PostalCode,
		Line:       req.Line,
	}
	if err := h.DB.Create(&addr).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusCreated, addr)
}

func (h *AddressHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res := h.DB.Where("id = ? AND user_id = ?", id, currentUserID(c)).Delete(&models.Address{})
	if res.Error != nil {
		return httpError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "address not found")
	}
	return c.NoContent(http.StatusNoContent)
}
