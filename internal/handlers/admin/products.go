package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
	"github.com/brewhaus/coffee_shop/internal/mykafka"
	"github.com/brewhaus/coffee_shop/internal/service/inventory"
	"github.com/brewhaus/coffee_shop/internal/service/search"
)

// AdminHandler is reachable only behind the admin token middleware; the
// row-level authorization already happened by the time a method runs.
type AdminHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	ES        *elasticsearch.Client
	ESIndex   string
	JWTSecret []byte
	Inventory *inventory.Service
}

func (h *AdminHandler) publish(c echo.Context, topic string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, fmt.Sprint(event["id"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AdminHandler) indexProduct(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.ESIndex, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

type productRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	RoastLevel  models.RoastLevel  `json:"roast_level"`
	FlavorNotes models.FlavorNotes `json:"flavor_notes"`
	Origin      string             `json:"origin"`
	ImageURL    string             `json:"image_url"`
	Active      *bool              `json:"active"`
}

func validRoast(r models.RoastLevel) bool {
	return r == models.RoastLight || r == models.RoastMedium || r == models.RoastDark
}

func validGrind(g models.GrindType) bool {
	switch g {
	case models.GrindWholeBean, models.GrindCoarse, models.GrindMedium, models.GrindFine:
		return true
	}
	return false
}

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if !validRoast(req.RoastLevel) {
		return echo.NewHTTPError(http.StatusBadRequest, "roast_level must be light, medium or dark")
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		RoastLevel:  req.RoastLevel,
		FlavorNotes: req.FlavorNotes,
		Origin:      req.Origin,
		ImageURL:    req.ImageURL,
		Active:      true,
	}
	if req.Active != nil {
		prod.Active = *req.Active
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexProduct(c, &prod)
	h.publish(c, "product_events", map[string]any{
		"type": "product_created",
		"id":   prod.ID,
		"name": prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Name != "" {
		prod.Name = req.Name
	}
	if req.Description != "" {
		prod.Description = req.Description
	}
	if req.RoastLevel != "" {
		if !validRoast(req.RoastLevel) {
			return echo.NewHTTPError(http.StatusBadRequest, "roast_level must be light, medium or dark")
		}
		prod.RoastLevel = req.RoastLevel
	}
	if req.FlavorNotes != nil {
		prod.FlavorNotes = req.FlavorNotes
	}
	if req.Origin != "" {
		prod.Origin = req.Origin
	}
	if req.ImageURL != "" {
		prod.ImageURL = req.ImageURL
	}
	if req.Active != nil {
		prod.Active = *req.Active
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexProduct(c, &prod)
	h.publish(c, "product_events", map[string]any{
		"type": "product_updated",
		"id":   prod.ID,
		"name": prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.DB.Select("Variants").Delete(&models.Product{ID: uint(id)}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteProduct(ctx, h.ES, h.ESIndex, uint(id)); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}
	h.publish(c, "product_events", map[string]any{
		"type": "product_deleted",
		"id":   id,
	})

	return c.NoContent(http.StatusNoContent)
}

type variantRequest struct {
	Size       string           `json:"size"`
	GrindType  models.GrindType `json:"grind_type"`
	Price      *float64         `json:"price"`
	StockCount *int             `json:"stock_count"`
}

func (h *AdminHandler) CreateVariant(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req variantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Size == "" || !validGrind(req.GrindType) {
		return echo.NewHTTPError(http.StatusBadRequest, "size and a valid grind_type are required")
	}
	if req.Price == nil || *req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be non-negative")
	}

	var prod models.Product
	if err := h.DB.First(&prod, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	variant := models.Variant{
		ProductID: prod.ID,
		Size:      req.Size,
		GrindType: req.GrindType,
		Price:     *req.Price,
	}
	if req.StockCount != nil {
		if *req.StockCount < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock_count must be non-negative")
		}
		variant.StockCount = *req.StockCount
	}

	if err := h.DB.Create(&variant).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, "product_events", map[string]any{
		"type":       "variant_created",
		"id":         variant.ID,
		"product_id": prod.ID,
	})

	return c.JSON(http.StatusCreated, variant)
}

// PatchVariant is the back-office price/stock edit; admin writes are
// authoritative and bypass the decrement guard entirely.
func (h *AdminHandler) PatchVariant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req variantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var variant models.Variant
	if err := h.DB.First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "variant not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Size != "" {
		variant.Size = req.Size
	}
	if req.GrindType != "" {
		if !validGrind(req.GrindType) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid grind_type")
		}
		variant.GrindType = req.GrindType
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "price must be non-negative")
		}
		variant.Price = *req.Price
	}
	if req.StockCount != nil {
		if *req.StockCount < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock_count must be non-negative")
		}
		variant.StockCount = *req.StockCount
	}

	if err := h.DB.Save(&variant).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, "product_events", map[string]any{
		"type":       "variant_updated",
		"id":         variant.ID,
		"product_id": variant.ProductID,
	})

	return c.JSON(http.StatusOK, variant)
}

func (h *AdminHandler) DeleteVariant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	result := h.DB.Delete(&models.Variant{}, id)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "variant not found")
	}

	h.publish(c, "product_events", map[string]any{
		"type": "variant_deleted",
		"id":   id,
	})

	return c.NoContent(http.StatusNoContent)
}

// ListInventory groups every product with its variants for the back-office
// inventory view.
func (h *AdminHandler) ListInventory(c echo.Context) error {
	var products []models.Product
	if err := h.DB.Preload("Variants").Order("id ASC").Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, products)
}
