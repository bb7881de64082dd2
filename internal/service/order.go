package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/smirnovdl/shop-backend/internal/logging"
	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/repo"
)

// OrderService runs the checkout transition: snapshot the cart into an
// immutable order, decrement inventory, persist the order and clear
// the cart, all inside one transaction.
type OrderService struct {
	Repo *repo.GormRepo
}

// PlaceOrder is all-or-nothing: any failure rolls back every inventory
// decrement and leaves the cart untouched. Inventory decrements happen
// before the order is persisted, which happens before the cart is
// cleared. The decrement is a conditional single-statement update so
// concurrent checkouts on the same product cannot oversell.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.place", "user_id", userID)

	var order models.Order
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if repo.NotFound(err) {
				return fmt.Errorf("%w: cart", ErrNotFound)
			}
			return err
		}
		if len(cart.Items) == 0 {
			return fmt.Errorf("%w: no items in cart", ErrValidation)
		}

		orderItems := make([]models.OrderItem, 0, len(cart.Items))
		var total float64
		for _, it := range cart.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND inventory >= ?", it.ProductID, it.Quantity).
				UpdateColumn("inventory", gorm.Expr("inventory - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var p models.Product
				if err := tx.First(&p, it.ProductID).Error; err != nil {
					if repo.NotFound(err) {
						return fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
					}
					return err
				}
				return fmt.Errorf("%w: product %d has %d in stock, want %d",
					ErrInsufficientInventory, it.ProductID, p.Inventory, it.Quantity)
			}

			orderItems = append(orderItems, models.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.UnitPrice,
			})
			total += it.UnitPrice * float64(it.Quantity)
		}

		order = models.Order{
			UserID:    userID,
			CreatedAt: time.Now().Unix(),
			Total:     total,
			Status:    models.OrderStatusPending,
			Items:     orderItems,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Items first, then the cart record; the user has no cart
		// until the next add-to-cart re-creates one.
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, cart.ID).Error
	})
	if err != nil {
		return nil, err
	}

	l.Info("order_placed", "order_id", order.ID, "total", order.Total, "items", len(order.Items))
	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if repo.NotFound(err) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID, limit, offset)
}
