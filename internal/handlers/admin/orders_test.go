package admin

import (
	"bytes"
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
	"github.com/brewhaus/coffee_shop/internal/service/inventory"
)

func newAdminEnv(t *testing.T) (*echo.Echo, *AdminHandler) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{}, &models.Variant{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	h := &AdminHandler{
		DB:        db,
		Inventory: &inventory.Service{DB: db},
	}
	return echo.New(), h
}

func jsonCtx(e *echo.Echo, method, target string, payload any) (echo.Context, *httptest.ResponseRecorder) {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func seedPaidOrder(t *testing.T, h *AdminHandler, stock, quantity int) (orderID, variantID uint) {
	product := models.Product{Name: "House Blend", RoastLevel: models.RoastMedium}
	require.NoError(t, h.DB.Create(&product).Error)

	variant := models.Variant{
		ProductID:  product.ID,
		Size:       "500g",
		GrindType:  models.GrindCoarse,
		Price:      800,
		StockCount: stock,
	}
	require.NoError(t, h.DB.Create(&variant).Error)

	order := models.Order{
		UserID:        1,
		Status:        models.OrderStatusNew,
		PaymentStatus: models.PaymentStatusSuccess,
		PaymentMethod: models.PaymentMethodRazorpay,
		TotalAmount:   800,
		ShippingName:  "Asha Rao",
		ShippingEmail: "asha@example.com",
		ShippingPhone: "9876543210",
		ShippingLine:  "14 MG Road",
		ShippingCity:  "Bengaluru",
		ShippingState: "Karnataka",
		ShippingPin:   "560001",
	}
	require.NoError(t, h.DB.Create(&order).Error)

	vid := variant.ID
	item := models.OrderItem{
		OrderID:     order.ID,
		UserID:      1,
		VariantID:   &vid,
		ProductName: product.Name,
		GrindType:   variant.GrindType,
		BagSize:     variant.Size,
		Quantity:    quantity,
		UnitPrice:   variant.Price,
	}
	require.NoError(t, h.DB.Create(&item).Error)

	return order.ID, variant.ID
}

func patchStatus(t *testing.T, e *echo.Echo, h *AdminHandler, orderID uint, status string) (*httptest.ResponseRecorder, error) {
	c, rec := jsonCtx(e, http.MethodPatch, "/", map[string]string{"status": status})
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(orderID), 10))
	return rec, h.UpdateOrderStatus(c)
}

func variantStock(t *testing.T, h *AdminHandler, variantID uint) int {
	var v models.Variant
	require.NoError(t, h.DB.First(&v, variantID).Error)
	return v.StockCount
}

func TestUpdateOrderStatusShippedDecrementsStock(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, variantID := seedPaidOrder(t, h, 10, 2)

	rec, err := patchStatus(t, e, h, orderID, "shipped")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 8, variantStock(t, h, variantID))

	var order models.Order
	require.NoError(t, h.DB.First(&order, orderID).Error)
	require.Equal(t, models.OrderStatusShipped, order.Status)
	require.NotNil(t, order.StockAppliedAt)
}

func TestUpdateOrderStatusReplayDoesNotDoubleDecrement(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, variantID := seedPaidOrder(t, h, 10, 2)

	_, err := patchStatus(t, e, h, orderID, "shipped")
	require.NoError(t, err)

	// walking the order back and forward again must not apply stock twice
	_, err = patchStatus(t, e, h, orderID, "processing")
	require.NoError(t, err)
	_, err = patchStatus(t, e, h, orderID, "completed")
	require.NoError(t, err)

	require.Equal(t, 8, variantStock(t, h, variantID))
}

func TestUpdateOrderStatusProcessingKeepsStock(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, variantID := seedPaidOrder(t, h, 10, 2)

	_, err := patchStatus(t, e, h, orderID, "processing")
	require.NoError(t, err)
	require.Equal(t, 10, variantStock(t, h, variantID))
}

func TestUpdateOrderStatusUnknownValue(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, _ := seedPaidOrder(t, h, 10, 2)

	_, err := patchStatus(t, e, h, orderID, "teleported")
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	e, h := newAdminEnv(t)

	_, err := patchStatus(t, e, h, 999, "shipped")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, err.(*echo.HTTPError).Code)
}

func TestUpdatePaymentStatusNeverTouchesStock(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, variantID := seedPaidOrder(t, h, 10, 2)

	c, rec := jsonCtx(e, http.MethodPatch, "/", map[string]string{"payment_status": "failed"})
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(orderID), 10))
	require.NoError(t, h.UpdatePaymentStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 10, variantStock(t, h, variantID))

	var order models.Order
	require.NoError(t, h.DB.First(&order, orderID).Error)
	require.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
	require.Nil(t, order.StockAppliedAt)
}

func TestListOrdersStatusFilter(t *testing.T) {
	e, h := newAdminEnv(t)
	orderID, _ := seedPaidOrder(t, h, 10, 2)
	seedPaidOrder(t, h, 5, 1)

	_, err := patchStatus(t, e, h, orderID, "shipped")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/?status=shipped", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListOrders(e.NewContext(req, rec)))

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, orderID, orders[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/?status=lost", nil)
	err = h.ListOrders(e.NewContext(req, httptest.NewRecorder()))
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, err.(*echo.HTTPError).Code)
}
