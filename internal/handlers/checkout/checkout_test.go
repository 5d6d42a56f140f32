package checkout

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
)

var testSecret = []byte("test_secret")

// fakeGateway stands in for the payment collaborator.
type fakeGateway struct {
	orderID     string
	createErr   error
	validSig    bool
	lastAmount  int64
	lastReceipt string
}

func (g *fakeGateway) CreateOrder(amountPaise int64, currency, receipt string) (string, error) {
	g.lastAmount = amountPaise
	g.lastReceipt = receipt
	if g.createErr != nil {
		return "", g.createErr
	}
	return g.orderID, nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return g.validSig
}

type testEnv struct {
	T       *testing.T
	E       *echo.Echo
	H       *CheckoutHandler
	DB      *gorm.DB
	Gateway *fakeGateway
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{}, &models.Variant{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	gw := &fakeGateway{orderID: "order_rzp_test1", validSig: true}
	return &testEnv{
		T:       t,
		E:       echo.New(),
		H:       &CheckoutHandler{DB: db, JWTSecret: testSecret, Gateway: gw},
		DB:      db,
		Gateway: gw,
	}
}

func accessCookie(t *testing.T, userID uint) *http.Cookie {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": "customer",
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: signed, Path: "/"}
}

func (env *testEnv) doJSONRequest(method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	data, err := json.Marshal(body)
	require.NoError(env.T, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(accessCookie(env.T, 1))
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedCart() {
	env.DB.Create(&models.Product{Name: "Monsoon Malabar", RoastLevel: models.RoastDark})
	env.DB.Create(&models.Variant{ProductID: 1, Size: "250g", GrindType: models.GrindWholeBean, Price: 500, StockCount: 10})
	env.DB.Create(&models.CartItem{
		UserID: 1, ProductID: 1, ProductName: "Monsoon Malabar",
		Price: 500, GrindType: models.GrindWholeBean, BagSize: "250g", Quantity: 3,
	})
}

func placeOrderBody(method models.PaymentMethod) map[string]any {
	return map[string]any{
		"payment_method": method,
		"shipping": map[string]any{
			"name":    "Asha Rao",
			"email":   "asha@example.com",
			"phone":   "9876543210",
			"address": "14 MG Road",
			"city":    "Bengaluru",
			"state":   "Karnataka",
			"pincode": "400001",
		},
	}
}

func TestPlaceOrderCOD(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodCOD))
	require.NoError(t, env.H.PlaceOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, models.OrderStatusNew, resp.Order.Status)
	require.Equal(t, models.PaymentStatusPending, resp.Order.PaymentStatus)
	require.InDelta(t, 1500.00, resp.Order.TotalAmount, 1e-9)
	require.Len(t, resp.Items, 1)
	require.NotNil(t, resp.Items[0].VariantID)
	require.Equal(t, uint(1), *resp.Items[0].VariantID)

	// COD confirms immediately, so the cart is already empty
	var count int64
	env.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count)
	require.Zero(t, count)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodCOD))
	err := env.H.PlaceOrder(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestPlaceOrderInvalidShipping(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	body := placeOrderBody(models.PaymentMethodCOD)
	body["shipping"].(map[string]any)["phone"] = "12345"

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", body)
	err := env.H.PlaceOrder(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	// validation failed before anything was written
	var orders int64
	env.DB.Model(&models.Order{}).Count(&orders)
	require.Zero(t, orders)
}

func TestPlaceOrderGateway(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodRazorpay))
	require.NoError(t, env.H.PlaceOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "order_rzp_test1", resp.GatewayOrderID)
	require.Equal(t, int64(150000), resp.AmountPaise)
	require.Equal(t, int64(150000), env.Gateway.lastAmount)

	// cart survives until the payment callback is verified
	var count int64
	env.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count)
	require.Equal(t, int64(1), count)

	var order models.Order
	require.NoError(t, env.DB.First(&order, resp.Order.ID).Error)
	require.Equal(t, "order_rzp_test1", order.GatewayOrderID)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestVerifyPaymentSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodRazorpay))
	require.NoError(t, env.H.PlaceOrder(c))
	var placed placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/checkout/payment/verify", map[string]any{
		"order_id":            placed.Order.ID,
		"razorpay_order_id":   placed.GatewayOrderID,
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  "sig",
	})
	require.NoError(t, env.H.VerifyPayment(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, env.DB.First(&order, placed.Order.ID).Error)
	require.Equal(t, models.PaymentStatusSuccess, order.PaymentStatus)
	require.Equal(t, "pay_123", order.PaymentID)

	var count int64
	env.DB.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count)
	require.Zero(t, count)
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()
	env.Gateway.validSig = false

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodRazorpay))
	require.NoError(t, env.H.PlaceOrder(c))
	var placed placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/checkout/payment/verify", map[string]any{
		"order_id":            placed.Order.ID,
		"razorpay_order_id":   placed.GatewayOrderID,
		"razorpay_payment_id": "pay_123",
		"razorpay_signature":  "forged",
	})
	err := env.H.VerifyPayment(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	var order models.Order
	require.NoError(t, env.DB.First(&order, placed.Order.ID).Error)
	require.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
}

func TestPaymentFailedLeavesOrderRetrievable(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodRazorpay))
	require.NoError(t, env.H.PlaceOrder(c))
	var placed placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/checkout/payment/failed", map[string]any{
		"order_id": placed.Order.ID,
	})
	require.NoError(t, env.H.PaymentFailed(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil)
	require.NoError(t, env.H.ListOrders(c))

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, models.PaymentStatusFailed, orders[0].PaymentStatus)
}

func TestOrderItemsOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.seedCart()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/checkout/orders", placeOrderBody(models.PaymentMethodCOD))
	require.NoError(t, env.H.PlaceOrder(c))
	var placed placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))

	// another user's order is invisible
	data, _ := json.Marshal(map[string]any{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/1/items", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(accessCookie(t, 2))
	rec = httptest.NewRecorder()
	c = env.E.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	err := env.H.OrderItems(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}
