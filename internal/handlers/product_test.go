package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
)

func newProductEnv(t *testing.T) (*echo.Echo, *ProductHandler) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.Variant{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return echo.New(), &ProductHandler{DB: db}
}

func seedProduct(t *testing.T, h *ProductHandler, name string, roast models.RoastLevel, active bool) models.Product {
	prod := models.Product{
		Name:       name,
		RoastLevel: roast,
		Active:     active,
		Variants: []models.Variant{
			{Size: "250g", GrindType: models.GrindWholeBean, Price: 500, StockCount: 10},
		},
	}
	require.NoError(t, h.DB.Create(&prod).Error)
	return prod
}

type productPage struct {
	Data []models.Product `json:"data"`
	Meta struct {
		Page       int   `json:"page"`
		Size       int   `json:"size"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"total_pages"`
		HasPrev    bool  `json:"has_prev"`
		HasNext    bool  `json:"has_next"`
	} `json:"meta"`
}

func listProducts(t *testing.T, e *echo.Echo, h *ProductHandler, target string) productPage {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.GetProducts(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	var page productPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	return page
}

func TestGetProductsHidesInactive(t *testing.T) {
	e, h := newProductEnv(t)
	seedProduct(t, h, "Yirgacheffe", models.RoastLight, true)
	seedProduct(t, h, "Retired Blend", models.RoastDark, false)

	page := listProducts(t, e, h, "/api/v1/products")
	require.Len(t, page.Data, 1)
	require.Equal(t, "Yirgacheffe", page.Data[0].Name)
	require.EqualValues(t, 1, page.Meta.Total)
}

func TestGetProductsRoastFilter(t *testing.T) {
	e, h := newProductEnv(t)
	seedProduct(t, h, "Yirgacheffe", models.RoastLight, true)
	seedProduct(t, h, "French Roast", models.RoastDark, true)

	page := listProducts(t, e, h, "/api/v1/products?roast_level=dark")
	require.Len(t, page.Data, 1)
	require.Equal(t, "French Roast", page.Data[0].Name)
}

func TestGetProductsPagination(t *testing.T) {
	e, h := newProductEnv(t)
	for i := 0; i < 5; i++ {
		seedProduct(t, h, "Blend "+strconv.Itoa(i), models.RoastMedium, true)
	}

	page := listProducts(t, e, h, "/api/v1/products?page=2&size=2")
	require.Len(t, page.Data, 2)
	require.Equal(t, 2, page.Meta.Page)
	require.EqualValues(t, 5, page.Meta.Total)
	require.EqualValues(t, 3, page.Meta.TotalPages)
	require.True(t, page.Meta.HasPrev)
	require.True(t, page.Meta.HasNext)

	last := listProducts(t, e, h, "/api/v1/products?page=3&size=2")
	require.Len(t, last.Data, 1)
	require.False(t, last.Meta.HasNext)
}

func TestGetProductIncludesVariants(t *testing.T) {
	e, h := newProductEnv(t)
	prod := seedProduct(t, h, "Yirgacheffe", models.RoastLight, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(prod.ID), 10))
	require.NoError(t, h.GetProduct(c))

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, prod.ID, got.ID)
	require.Len(t, got.Variants, 1)
}

func TestGetProductNotFound(t *testing.T) {
	e, h := newProductEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	err := h.GetProduct(c)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, err.(*echo.HTTPError).Code)
}
