package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/smirnovdl/shop-backend/internal/logging"
	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/repo"
)

// CartService owns the cart invariant: after every mutation the cart
// total equals the sum over its lines of unit price times quantity.
type CartService struct {
	Repo *repo.GormRepo
}

// AddItem merges the quantity into an existing line for the product or
// opens a new line with the unit price snapshotted from the current
// catalog price. The cart is created lazily on the first add.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty uint) (*models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.add_item", "user_id", userID)

	if qty == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	var out *models.Cart
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repo.New(tx)

		product, err := txRepo.GetProduct(ctx, productID)
		if err != nil {
			if repo.NotFound(err) {
				return fmt.Errorf("%w: product %d", ErrNotFound, productID)
			}
			return err
		}

		cart, err := txRepo.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		var line *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				line = &cart.Items[i]
				break
			}
		}
		if line == nil {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  qty,
				UnitPrice: product.Price,
			})
			line = &cart.Items[len(cart.Items)-1]
		} else {
			line.Quantity += qty
		}
		line.TotalPrice = line.UnitPrice * float64(line.Quantity)

		if err := tx.Save(line).Error; err != nil {
			return err
		}
		out = cart
		return s.saveTotal(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	l.Info("cart_item_added", "product_id", productID, "quantity", qty, "total", out.TotalAmount)
	return out, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (*models.Cart, error) {
	l := logging.FromContext(ctx).With("svc", "cart.remove_item", "user_id", userID)

	var out *models.Cart
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, idx, err := s.findLine(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		if err := tx.Delete(&models.CartItem{}, itemID).Error; err != nil {
			return err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		out = cart
		return s.saveTotal(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	l.Info("cart_item_removed", "item_id", itemID, "total", out.TotalAmount)
	return out, nil
}

// SetQuantity updates a line's quantity; zero is equivalent to
// removing the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, itemID uint, qty uint) (*models.Cart, error) {
	if qty == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}

	l := logging.FromContext(ctx).With("svc", "cart.set_quantity", "user_id", userID)

	var out *models.Cart
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, idx, err := s.findLine(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		line := &cart.Items[idx]
		line.Quantity = qty
		line.TotalPrice = line.UnitPrice * float64(line.Quantity)
		if err := tx.Save(line).Error; err != nil {
			return err
		}
		out = cart
		return s.saveTotal(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	l.Info("cart_quantity_set", "item_id", itemID, "quantity", qty, "total", out.TotalAmount)
	return out, nil
}

func (s *CartService) GetCart(ctx context.Context, userID uint) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByUserID(ctx, userID)
	if err != nil {
		if repo.NotFound(err) {
			return nil, fmt.Errorf("%w: cart", ErrNotFound)
		}
		return nil, err
	}
	return cart, nil
}

func (s *CartService) GetTotal(ctx context.Context, userID uint) (float64, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return cart.TotalAmount, nil
}

// ClearCart removes the items first, then the cart record itself.
func (s *CartService) ClearCart(ctx context.Context, userID uint) error {
	l := logging.FromContext(ctx).With("svc", "cart.clear", "user_id", userID)

	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := repo.New(tx).GetCartByUserID(ctx, userID)
		if err != nil {
			if repo.NotFound(err) {
				return fmt.Errorf("%w: cart", ErrNotFound)
			}
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Cart{}, cart.ID).Error
	})
	if err != nil {
		return err
	}

	l.Info("cart_cleared")
	return nil
}

func (s *CartService) findLine(ctx context.Context, tx *gorm.DB, userID, itemID uint) (*models.Cart, int, error) {
	cart, err := repo.New(tx).GetCartByUserID(ctx, userID)
	if err != nil {
		if repo.NotFound(err) {
			return nil, 0, fmt.Errorf("%w: cart", ErrNotFound)
		}
		return nil, 0, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
}

func (s *CartService) saveTotal(tx *gorm.DB, cart *models.Cart) error {
	cart.TotalAmount = CartTotal(cart.Items)
	return tx.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Update("total_amount", cart.TotalAmount).Error
}

// CartTotal is a pure fold over the lines. A zero unit price simply
// contributes nothing instead of failing.
func CartTotal(items []models.CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}
