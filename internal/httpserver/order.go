package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smirnovdl/shop-backend/internal/middleware"
	"github.com/smirnovdl/shop-backend/internal/mykafka"
	"github.com/smirnovdl/shop-backend/internal/service"
	"github.com/smirnovdl/shop-backend/internal/util"
)

type OrderHandler struct {
	Svc      *service.OrderService
	Producer *mykafka.Producer
}

func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	order, err := h.Svc.PlaceOrder(c.Request().Context(), id.UserID)
	if err != nil {
		return httpError(err)
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  id.UserID,
		"orderID": order.ID,
		"total":   order.Total,
	})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	orderID, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	order, err := h.Svc.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return httpError(err)
	}
	// Another user's order reads as a miss, not a forbidden hint.
	if order.UserID != id.UserID && !slices.Contains(id.Roles, service.RoleAdmin) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("order %d: not found", orderID))
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	id, _ := middleware.IdentityFrom(c)

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	orders, err := h.Svc.ListUserOrders(c.Request().Context(), id.UserID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
