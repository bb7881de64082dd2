package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smirnovdl/shop-backend/internal/middleware"
	"github.com/smirnovdl/shop-backend/internal/mykafka"
	"github.com/smirnovdl/shop-backend/internal/service"
)

// CartHandler serves the cart endpoints, all keyed by the
// authenticated user.
type CartHandler struct {
	Svc      *service.CartService
	Producer *mykafka.Producer
}

func (h *CartHandler) GetCart(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	cart, err := h.Svc.GetCart(c.Request().Context(), id.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) GetTotal(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	total, err := h.Svc.GetTotal(c.Request().Context(), id.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total})
}

func (h *CartHandler) AddItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	var req struct {
		ProductID uint `json:"productId"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.AddItem(c.Request().Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    id.UserID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	itemID, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cart, err := h.Svc.SetQuantity(c.Request().Context(), id.UserID, itemID, req.Quantity)
	if err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":     "cart_quantity_set",
		"userID":   id.UserID,
		"itemID":   itemID,
		"quantity": req.Quantity,
	})
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	itemID, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	cart, err := h.Svc.RemoveItem(c.Request().Context(), id.UserID, itemID)
	if err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_removed",
		"userID": id.UserID,
		"itemID": itemID,
	})
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) Clear(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	if err := h.Svc.ClearCart(c.Request().Context(), id.UserID); err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": id.UserID,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicCartEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}
