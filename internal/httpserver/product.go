package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/smirnovdl/shop-backend/internal/cache"
	"github.com/smirnovdl/shop-backend/internal/es"
	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/mykafka"
	"github.com/smirnovdl/shop-backend/internal/repo"
	"github.com/smirnovdl/shop-backend/internal/util"
)

type ProductHandler struct {
	Repo     *repo.GormRepo
	Cache    *cache.ProductCache
	ES       *elasticsearch.Client
	Producer *mykafka.Producer
}

type productRequest struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Inventory   int64   `json:"inventory"`
	CategoryID  uint    `json:"category_id"`
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	if p, ok := h.Cache.GetProduct(ctx, id); ok {
		return c.JSON(http.StatusOK, p)
	}

	product, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		if repo.NotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d: not found", id))
		}
		return httpError(err)
	}

	h.Cache.SetProduct(ctx, product)
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Repo.ListProducts(c.Request().Context(), offset, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Price < 0 || req.Inventory < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	product := models.Product{
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
		Price:       req.Price,
		Inventory:   req.Inventory,
		CategoryID:  req.CategoryID,
	}
	if err := h.Repo.CreateProduct(c.Request().Context(), &product); err != nil {
		return httpError(err)
	}

	h.index(c, &product)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	ctx := c.Request().Context()
	product, err := h.Repo.GetProduct(ctx, id)
	if err != nil {
		if repo.NotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d: not found", id))
		}
		return httpError(err)
	}

	product.Name = req.Name
	product.Brand = req.Brand
	product.Description = req.Description
	product.Price = req.Price
	product.Inventory = req.Inventory
	product.CategoryID = req.CategoryID

	if err := h.Repo.SaveProduct(ctx, product); err != nil {
		return httpError(err)
	}

	h.Cache.InvalidateProduct(ctx, product.ID)
	h.index(c, product)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	if err := h.Repo.DeleteProduct(ctx, id); err != nil {
		return httpError(err)
	}

	h.Cache.InvalidateProduct(ctx, id)
	if h.ES != nil {
		if err := es.DeleteProduct(ctx, h.ES, es.ProductIndex, id); err != nil {
			c.Logger().Errorf("ES delete error: %v", err)
		}
	}
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	if err := es.IndexProduct(c.Request().Context(), h.ES, es.ProductIndex, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
