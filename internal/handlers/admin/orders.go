package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
	"github.com/brewhaus/coffee_shop/internal/service/inventory"
)

func validOrderStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusNew, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusCompleted, models.OrderStatusCanceled:
		return true
	}
	return false
}

func validPaymentStatus(s models.PaymentStatus) bool {
	switch s {
	case models.PaymentStatusPending, models.PaymentStatusSuccess, models.PaymentStatusFailed:
		return true
	}
	return false
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	query := h.DB.Model(&models.Order{})
	if status := c.QueryParam("status"); status != "" {
		if !validOrderStatus(models.OrderStatus(status)) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
		}
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("id DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *AdminHandler) OrderItems(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", id).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// UpdateOrderStatus persists any valid status value; there is no enforced
// transition graph. A transition out of the pre-fulfillment phase fires the
// stock decrement, which is idempotent per order.
func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !validOrderStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	previous := order.Status
	if err := h.DB.Model(&order).Update("status", req.Status).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if inventory.ShouldApply(previous, req.Status) {
		if err := h.Inventory.ApplyOrder(order.ID); err != nil {
			c.Logger().Errorf("inventory decrement failed for order %d: %v", order.ID, err)
			return echo.NewHTTPError(http.StatusInternalServerError, "status updated but stock decrement failed")
		}
	}

	h.publish(c, "order_events", map[string]any{
		"type":     "order_status_changed",
		"id":       order.ID,
		"previous": previous,
		"status":   req.Status,
	})

	order.Status = req.Status
	return c.JSON(http.StatusOK, order)
}

// UpdatePaymentStatus is a back-office correction; it never touches stock.
func (h *AdminHandler) UpdatePaymentStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		PaymentStatus models.PaymentStatus `json:"payment_status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !validPaymentStatus(req.PaymentStatus) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown payment status")
	}

	result := h.DB.Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_status", req.PaymentStatus)
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	h.publish(c, "order_events", map[string]any{
		"type":           "payment_status_changed",
		"id":             id,
		"payment_status": req.PaymentStatus,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":       id,
		"payment_status": req.PaymentStatus,
	})
}
