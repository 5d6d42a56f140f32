package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/handlers"
	"github.com/brewhaus/coffee_shop/internal/models"
	"github.com/brewhaus/coffee_shop/internal/mykafka"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

// CartResponse carries the line items plus the totals derived from them.
// Totals are recomputed from the rows on every read, never cached.
type CartResponse struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

func Totals(items []models.CartItem) (totalItems int, totalPrice float64) {
	for _, it := range items {
		totalItems += it.Quantity
		totalPrice += it.Price * float64(it.Quantity)
	}
	return totalItems, totalPrice
}

func (h *CartHandler) respond(c echo.Context, userID uint) error {
	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	totalItems, totalPrice := Totals(items)
	return c.JSON(http.StatusOK, CartResponse{
		Items:      items,
		TotalItems: totalItems,
		TotalPrice: totalPrice,
	})
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	return h.respond(c, userID)
}

// AddToCart merges into an existing line when the same
// (product, grind, bag size) tuple is already in the cart, otherwise it
// inserts a new row.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		ProductID   uint             `json:"product_id"`
		ProductName string           `json:"product_name"`
		ImageURL    string           `json:"image_url"`
		Price       float64          `json:"price"`
		GrindType   models.GrindType `json:"grind_type"`
		BagSize     string           `json:"bag_size"`
		Quantity    int              `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProductID == 0 || req.ProductName == "" || req.BagSize == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id, product_name and bag_size are required")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var item models.CartItem
	tx := h.DB.Where(
		"user_id = ? AND product_id = ? AND grind_type = ? AND bag_size = ?",
		userID, req.ProductID, req.GrindType, req.BagSize,
	).First(&item)
	if tx.Error == nil {
		return h.setQuantity(c, userID, &item, item.Quantity+req.Quantity)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	newItem := models.CartItem{
		UserID:      userID,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		GrindType:   req.GrindType,
		BagSize:     req.BagSize,
		Quantity:    req.Quantity,
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

// UpdateQuantity overwrites the stored quantity; zero or less removes the
// line entirely.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Quantity <= 0 {
		return h.deleteItem(c, userID, &item)
	}
	return h.setQuantity(c, userID, &item, req.Quantity)
}

func (h *CartHandler) setQuantity(c echo.Context, userID uint, item *models.CartItem, quantity int) error {
	item.Quantity = quantity
	if err := h.DB.Save(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.publish(c, map[string]any{
		"type":         "cart_quantity_set",
		"userID":       userID,
		"id":           item.ID,
		"new_quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return h.deleteItem(c, userID, &item)
}

func (h *CartHandler) deleteItem(c echo.Context, userID uint, item *models.CartItem) error {
	if err := h.DB.Delete(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.publish(c, map[string]any{
		"type":         "cart_item_deleted",
		"userID":       userID,
		"deleted_item": item.ID,
	})
	return c.JSON(http.StatusOK, echo.Map{"deleted_item": item.ID})
}

// ClearCart removes every line for the user; checkout calls this after a
// COD confirmation or a verified payment.
func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := handlers.GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return h.respond(c, userID)
}
