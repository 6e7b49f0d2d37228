package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/inventory"
	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/pricing"
	"github.com/daroosa/pharmacy_shop/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// GetProducts lists active products, paginated.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Window(page, size)

	q := h.DB.Model(&models.Product{}).Where("is_active = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return httpError(c, err)
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return httpError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": util.TotalPages(total, limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	return c.JSON(http.StatusOK, product)
}

type productRequest struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	SKU             string `json:"sku"`
	Description     string `json:"description"`
	UnitPrice       int64  `json:"unit_price"`
	ReorderLevel    int64  `json:"reorder_level"`
	IsActive        *bool  `json:"is_active"`
	DiscountPercent *int64 `json:"discount_percent"`
	DiscountPerUnit *int64 `json:"discount_per_unit"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Slug == "" || req.SKU == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, slug and sku are required")
	}
	if req.UnitPrice < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "unit price must not be negative")
	}

	prod := models.Product{
		Name:         req.Name,
		Slug:         req.Slug,
		SKU:          req.SKU,
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		ReorderLevel: req.ReorderLevel,
		IsActive:     true,
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}
	if req.DiscountPercent != nil {
		prod.DiscountPercent = *req.DiscountPercent
	}
	if req.DiscountPerUnit != nil {
		prod.DiscountPerUnit = *req.DiscountPerUnit
	}
	if err := pricing.ValidateDiscount(prod.DiscountPercent, prod.DiscountPerUnit); err != nil {
		return httpError(c, err)
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicProduct, prod.ID, map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if req.Name != "" {
		prod.Name = req.Name
	}
	if req.Slug != "" {
		prod.Slug = req.Slug
	}
	if req.SKU != "" {
		prod.SKU = req.SKU
	}
	if req.Description != "" {
		prod.Description = req.Description
	}
	if req.UnitPrice > 0 {
		prod.UnitPrice = req.UnitPrice
	}
	if req.ReorderLevel > 0 {
		prod.ReorderLevel = req.ReorderLevel
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}
	if req.DiscountPercent != nil {
		prod.DiscountPercent = *req.DiscountPercent
	}
	if req.DiscountPerUnit != nil {
		prod.DiscountPerUnit = *req.DiscountPerUnit
	}
	if err := pricing.ValidateDiscount(prod.DiscountPercent, prod.DiscountPerUnit); err != nil {
		return httpError(c, err)
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicProduct, prod.ID, map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	return c.JSON(http.StatusOK, prod)
}

// DeleteProduct deactivates rather than removes, so existing cart lines
// surface an anomaly instead of silently vanishing.
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return httpError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	publish(c, h.Producer, events.TopicProduct, id, map[string]any{
		"type":       "product_deactivated",
		"product_id": id,
	})
	return c.NoContent(http.StatusNoContent)
}

// AdjustStock applies a signed manual stock correction.
func (h *ProductHandler) AdjustStock(c echo.Context) error {
	actorID := currentUserID(c)
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Delta int64  `json:"delta"`
		Note  string `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var prod *models.Product
	txErr := h.DB.WithContext(c.Request().Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		prod, err = inventory.Adjust(tx, id, req.Delta, actorID, req.Note)
		return err
	})
	if txErr != nil {
		return httpError(c, txErr)
	}

	publish(c, h.Producer, events.TopicStock, prod.ID, map[string]any{
		"type":       "stock_adjusted",
		"product_id": prod.ID,
		"delta":      req.Delta,
		"quantity":   prod.Quantity,
		"low_stock":  prod.LowStock(),
	})
	return c.JSON(http.StatusOK, prod)
}
