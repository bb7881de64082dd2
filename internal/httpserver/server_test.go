package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smirnovdl/shop-backend/internal/models"
	"github.com/smirnovdl/shop-backend/internal/repo"
	"github.com/smirnovdl/shop-backend/internal/service"
)

type testServer struct {
	e    *echo.Echo
	repo *repo.GormRepo
	auth *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Category{}, &models.Product{},
		&models.Cart{}, &models.CartItem{}, &models.Order{}, &models.OrderItem{},
	))

	r := repo.New(gdb)
	auth := &service.AuthService{
		Repo:          r,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}

	e := echo.New()
	Register(e, &Deps{
		DB:             gdb,
		JWTSecret:      auth.JWTSecret,
		AuthHandler:    &AuthHandler{Svc: auth},
		UserHandler:    &UserHandler{Repo: r},
		ProductHandler: &ProductHandler{Repo: r},
		CartHandler:    &CartHandler{Svc: &service.CartService{Repo: r}},
		OrderHandler:   &OrderHandler{Svc: &service.OrderService{Repo: r}},
		SearchHandler:  &SearchHandler{Index: "product"},
	})

	return &testServer{e: e, repo: r, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email string, roles ...string) string {
	t.Helper()
	ctx := context.Background()

	user, err := s.auth.Register(ctx, email, "hunter22")
	require.NoError(t, err)
	for _, name := range roles {
		role, err := s.repo.EnsureRole(ctx, name)
		require.NoError(t, err)
		require.NoError(t, s.repo.DB.Model(user).Association("Roles").Append(role))
	}

	res, err := s.auth.Login(ctx, email, "hunter22")
	require.NoError(t, err)
	return res.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	creds := map[string]string{"email": "a@b.com", "password": "hunter22"}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hunter22")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody[ErrorBody](t, rec)
	assert.Equal(t, http.StatusConflict, body.Status)
	assert.Equal(t, "Conflict", body.Error)
	assert.Equal(t, "/api/v1/auth/register", body.Path)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodeBody[tokenPairResponse](t, rec)
	assert.NotZero(t, pair.UserID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "a@b.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body = decodeBody[ErrorBody](t, rec)
	assert.Equal(t, "invalid email or password", body.Message)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decodeBody[tokenPairResponse](t, rec)
	assert.Equal(t, pair.UserID, refreshed.UserID)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is not accepted in place of a refresh token.
	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "",
		map[string]string{"refreshToken": pair.AccessToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@b.com")

	rec := s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody[ErrorBody](t, rec)
	assert.Equal(t, "invalid token", body.Message)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody[models.User](t, rec)
	assert.Equal(t, "a@b.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAnonymousBrowsing(t *testing.T) {
	s := newTestServer(t)

	p := &models.Product{Name: "keyboard", Price: 49.90, Inventory: 3}
	require.NoError(t, s.repo.CreateProduct(context.Background(), p))

	// Catalog reads need no token.
	rec := s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/products/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The cart does not.
	rec = s.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody[ErrorBody](t, rec)
	assert.Equal(t, "unauthenticated", body.Message)
}

func TestAdminProductRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup(t, "user@b.com")
	adminToken := s.signup(t, "admin@b.com", service.RoleAdmin)

	product := map[string]any{"name": "keyboard", "price": 49.90, "inventory": 3}

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", userToken, product)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/products", adminToken, product)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Product](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "keyboard", created.Name)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@b.com")
	ctx := context.Background()

	p := &models.Product{Name: "keyboard", Price: 10.00, Inventory: 5}
	require.NoError(t, s.repo.CreateProduct(ctx, p))

	rec := s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items", token,
		map[string]any{"productId": p.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decodeBody[models.Cart](t, rec)
	require.Len(t, cart.Items, 1)
	assert.InDelta(t, 30.00, cart.TotalAmount, 1e-9)

	rec = s.do(t, http.MethodGet, "/api/v1/cart/total", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	total := decodeBody[map[string]float64](t, rec)
	assert.InDelta(t, 30.00, total["total"], 1e-9)

	rec = s.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody[models.Order](t, rec)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.InDelta(t, 30.00, order.Total, 1e-9)

	got, err := s.repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Inventory)

	rec = s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decodeBody[[]models.Order](t, rec)
	require.Len(t, orders, 1)
}

func TestCheckout_InsufficientInventory(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "a@b.com")
	ctx := context.Background()

	p := &models.Product{Name: "keyboard", Price: 10.00, Inventory: 2}
	require.NoError(t, s.repo.CreateProduct(ctx, p))

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", token,
		map[string]any{"productId": p.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	got, err := s.repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Inventory)

	// Cart survives the failed checkout.
	rec = s.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := s.signup(t, "owner@b.com")
	other := s.signup(t, "other@b.com")
	admin := s.signup(t, "admin@b.com", service.RoleAdmin)
	ctx := context.Background()

	p := &models.Product{Name: "keyboard", Price: 10.00, Inventory: 5}
	require.NoError(t, s.repo.CreateProduct(ctx, p))

	rec := s.do(t, http.MethodPost, "/api/v1/cart/items", owner,
		map[string]any{"productId": p.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/v1/orders", owner, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[models.Order](t, rec)

	path := "/api/v1/orders/" + strconv.Itoa(int(order.ID))
	rec = s.do(t, http.MethodGet, path, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearch_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/search?q=keyboard", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
