package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/handlers"
	"github.com/brewhaus/coffee_shop/internal/handlers/cart"
	"github.com/brewhaus/coffee_shop/internal/models"
	"github.com/brewhaus/coffee_shop/internal/mykafka"
	"github.com/brewhaus/coffee_shop/internal/payment"
)

type CheckoutHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
	Gateway   payment.Gateway
}

func (h *CheckoutHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type placeOrderRequest struct {
	Shipping      ShippingInfo         `json:"shipping"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

type placeOrderResponse struct {
	Order          models.Order       `json:"order"`
	Items          []models.OrderItem `json:"items"`
	GatewayOrderID string             `json:"gateway_order_id,omitempty"`
	AmountPaise    int64              `json:"amount_paise,omitempty"`
}

// PlaceOrder writes the order, its line items and (on COD) the cart clear
// in one transaction; a failure anywhere rolls everything back. The
// gateway order is created after commit, and the cart survives until the
// payment callback is verified.
func (h *CheckoutHandler) PlaceOrder(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Shipping.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PaymentMethod != models.PaymentMethodRazorpay && req.PaymentMethod != models.PaymentMethodCOD {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown payment method")
	}

	var (
		order      models.Order
		orderItems []models.OrderItem
	)

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
		}

		_, total := cart.Totals(items)

		order = models.Order{
			UserID:        userID,
			Status:        models.OrderStatusNew,
			PaymentStatus: models.PaymentStatusPending,
			PaymentMethod: req.PaymentMethod,
			TotalAmount:   total,
			ShippingName:  req.Shipping.Name,
			ShippingEmail: req.Shipping.Email,
			ShippingPhone: req.Shipping.Phone,
			ShippingLine:  req.Shipping.Address,
			ShippingCity:  req.Shipping.City,
			ShippingState: req.Shipping.State,
			ShippingPin:   req.Shipping.Pincode,
			CreatedAt:     time.Now().Unix(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		orderItems = make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			oi := models.OrderItem{
				OrderID:     order.ID,
				UserID:      userID,
				VariantID:   resolveVariantID(tx, &it),
				ProductName: it.ProductName,
				GrindType:   it.GrindType,
				BagSize:     it.BagSize,
				Quantity:    it.Quantity,
				UnitPrice:   it.Price,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			orderItems = append(orderItems, oi)
		}

		if req.PaymentMethod == models.PaymentMethodCOD {
			if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
		return nil
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "order failed")
	}

	resp := placeOrderResponse{Order: order, Items: orderItems}

	if req.PaymentMethod == models.PaymentMethodRazorpay {
		amountPaise := payment.ToPaise(order.TotalAmount)
		gatewayOrderID, err := h.Gateway.CreateOrder(amountPaise, "INR", fmt.Sprintf("order_%d", order.ID))
		if err != nil {
			c.Logger().Errorf("gateway order creation failed: %v", err)
			h.DB.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Update("payment_status", models.PaymentStatusFailed)
			return echo.NewHTTPError(http.StatusBadGateway, "order failed")
		}
		if err := h.DB.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("gateway_order_id", gatewayOrderID).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		order.GatewayOrderID = gatewayOrderID
		resp.Order = order
		resp.GatewayOrderID = gatewayOrderID
		resp.AmountPaise = amountPaise
	}

	h.publish(c, map[string]any{
		"type":           "order_created",
		"userID":         userID,
		"orderID":        order.ID,
		"payment_method": order.PaymentMethod,
		"total":          order.TotalAmount,
	})

	return c.JSON(http.StatusOK, resp)
}

// resolveVariantID pins the variant at order-creation time so the later
// stock decrement does not depend on a name lookup. A miss leaves the id
// null; the decrement routine logs and skips such lines.
func resolveVariantID(tx *gorm.DB, item *models.CartItem) *uint {
	var variant models.Variant
	if err := tx.Where(
		"product_id = ? AND grind_type = ? AND size = ?",
		item.ProductID, item.GrindType, item.BagSize,
	).First(&variant).Error; err != nil {
		return nil
	}
	id := variant.ID
	return &id
}

type verifyPaymentRequest struct {
	OrderID           uint   `json:"order_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPayment   string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPayment reconciles the gateway success callback onto the order.
// The signature is verified server-side before anything is trusted.
func (h *CheckoutHandler) VerifyPayment(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req verifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", req.OrderID, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if order.PaymentMethod != models.PaymentMethodRazorpay {
		return echo.NewHTTPError(http.StatusBadRequest, "order does not use the payment gateway")
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != req.RazorpayOrderID {
		return echo.NewHTTPError(http.StatusBadRequest, "gateway order mismatch")
	}

	if !h.Gateway.VerifySignature(order.GatewayOrderID, req.RazorpayPayment, req.RazorpaySignature) {
		h.DB.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("payment_status", models.PaymentStatusFailed)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payment signature")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"payment_status": models.PaymentStatusSuccess,
				"payment_id":     req.RazorpayPayment,
			}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.publish(c, map[string]any{
		"type":      "payment_succeeded",
		"userID":    userID,
		"orderID":   order.ID,
		"paymentID": req.RazorpayPayment,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":       order.ID,
		"payment_status": models.PaymentStatusSuccess,
	})
}

// PaymentFailed records a gateway failure or user dismissal; the order
// stays retrievable from history, retry is not offered from this flow.
func (h *CheckoutHandler) PaymentFailed(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		OrderID uint `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result := h.DB.Model(&models.Order{}).
		Where("id = ? AND user_id = ?", req.OrderID, userID).
		Update("payment_status", models.PaymentStatusFailed)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	h.publish(c, map[string]any{
		"type":    "payment_failed",
		"userID":  userID,
		"orderID": req.OrderID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":       req.OrderID,
		"payment_status": models.PaymentStatusFailed,
	})
}

func (h *CheckoutHandler) ListOrders(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", userID).Order("id DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *CheckoutHandler) OrderItems(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
