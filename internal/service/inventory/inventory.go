package inventory

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
)

// Service applies the one-time stock decrement when an order leaves the
// pre-fulfillment phase.
type Service struct {
	DB  *gorm.DB
	Log *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// ShouldApply reports whether a status edit moves the order from the
// pre-fulfillment phase into fulfillment.
func ShouldApply(prev, next models.OrderStatus) bool {
	pre := prev == models.OrderStatusNew || prev == models.OrderStatusProcessing
	post := next == models.OrderStatusShipped || next == models.OrderStatusCompleted
	return pre && post
}

// ApplyOrder decrements stock for every line of the order, at most once per
// order. The idempotency marker is check-and-set in the same transaction as
// the decrements, so replaying a stale transition is a no-op.
func (s *Service) ApplyOrder(orderID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND stock_applied_at IS NULL", orderID).
			Update("stock_applied_at", time.Now().Unix())
		if res.Error != nil {
			return fmt.Errorf("inventory: mark order %d: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			s.logger().Info("stock already applied, skipping", "order_id", orderID)
			return nil
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return fmt.Errorf("inventory: load items of order %d: %w", orderID, err)
		}

		for _, item := range items {
			variantID, ok := s.resolveVariant(tx, &item)
			if !ok {
				// partial application is accepted: the miss is logged and
				// the rest of the batch still runs
				s.logger().Warn("variant not found, skipping line",
					"order_id", orderID,
					"product_name", item.ProductName,
					"grind_type", item.GrindType,
					"bag_size", item.BagSize,
				)
				continue
			}
			if err := s.decrement(tx, variantID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// resolveVariant prefers the variant id captured at order-creation time;
// legacy rows without one fall back to the name/grind/size lookup (first
// product match wins).
func (s *Service) resolveVariant(tx *gorm.DB, item *models.OrderItem) (uint, bool) {
	if item.VariantID != nil {
		return *item.VariantID, true
	}

	var product models.Product
	if err := tx.Where("name = ?", item.ProductName).Order("id ASC").First(&product).Error; err != nil {
		return 0, false
	}

	var variant models.Variant
	if err := tx.Where(
		"product_id = ? AND grind_type = ? AND size = ?",
		product.ID, item.GrindType, item.BagSize,
	).First(&variant).Error; err != nil {
		return 0, false
	}
	return variant.ID, true
}

// decrement issues one guarded conditional update. If the guard matches no
// row the stock is insufficient; the variant is clamped to zero rather than
// driven negative.
func (s *Service) decrement(tx *gorm.DB, variantID uint, quantity int) error {
	res := tx.Model(&models.Variant{}).
		Where("id = ? AND stock_count >= ?", variantID, quantity).
		UpdateColumn("stock_count", gorm.Expr("stock_count - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("inventory: decrement variant %d: %w", variantID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	clamp := tx.Model(&models.Variant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock_count", 0)
	if clamp.Error != nil {
		return fmt.Errorf("inventory: clamp variant %d: %w", variantID, clamp.Error)
	}
	if clamp.RowsAffected > 0 {
		s.logger().Warn("insufficient stock, clamped to zero",
			"variant_id", variantID,
			"requested", quantity,
		)
	}
	return nil
}
