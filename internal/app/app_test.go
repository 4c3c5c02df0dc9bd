package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/config"
	"github.com/sajilostore/storefront/internal/guard"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/storage"
)

func mintToken(t *testing.T, name, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"name": name,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func testBackend(t *testing.T, role string) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": mintToken(t, "Asha", role)})
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/Users/user/details", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(model.UserDetails{
			Username: "asha", Email: "asha@example.com",
			Address: "Kathmandu", Phone: "9841000000", Role: role,
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/products/product", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]model.Product{
			{ID: "p1", Name: "Shirt", Price: 500, Stock: 5},
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/Orders/my-orders", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode([]model.Order{
			{ID: "o1", OrderStatus: model.OrderProcessing, TotalPrice: 500},
			{ID: "o2", OrderStatus: model.OrderDelivered, TotalPrice: 900},
			{ID: "o3", OrderStatus: model.OrderOnTheWay, TotalPrice: 250},
		})
	}).Methods(http.MethodGet)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T, server *httptest.Server) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := config.Default()
	cfg.BaseURL = server.URL
	cfg.RateLimit = 0

	a, err := New(cfg, WithOutput(&out), WithStorage(storage.NewMemStore()))
	require.NoError(t, err)
	return a, &out
}

func TestMyOrdersRequiresAuth(t *testing.T) {
	a, _ := newTestApp(t, testBackend(t, "User"))

	err := a.MyOrders(context.Background())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, guard.RouteLanding, redirect.To)
}

func TestAdminScreensRequireAdminRole(t *testing.T) {
	server := testBackend(t, "User")
	a, _ := newTestApp(t, server)

	require.NoError(t, a.Login(context.Background(), "asha@example.com", "secret"))

	err := a.AdminOrders(context.Background())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, guard.RouteUnauthorized, redirect.To)
}

func TestLoginEnablesOrderHistory(t *testing.T) {
	server := testBackend(t, "User")
	a, out := newTestApp(t, server)

	require.NoError(t, a.Login(context.Background(), "asha@example.com", "secret"))
	require.True(t, a.Session().IsAuthenticated())

	require.NoError(t, a.MyOrders(context.Background()))

	rendered := out.String()
	require.Contains(t, rendered, "Ongoing Orders")
	require.Contains(t, rendered, "o1")
	require.Contains(t, rendered, "o3")
	require.Contains(t, rendered, "o2")
}

func TestLogoutDisablesOrderHistory(t *testing.T) {
	server := testBackend(t, "User")
	a, _ := newTestApp(t, server)

	require.NoError(t, a.Login(context.Background(), "asha@example.com", "secret"))
	a.Notifications()
	require.NoError(t, a.Logout())

	err := a.MyOrders(context.Background())
	var redirect *RedirectError
	require.ErrorAs(t, err, &redirect)
	require.Equal(t, guard.RouteLanding, redirect.To)
}

func TestSplitOrders(t *testing.T) {
	orders := []model.Order{
		{ID: "o1", OrderStatus: model.OrderProcessing},
		{ID: "o2", OrderStatus: model.OrderDelivered},
		{ID: "o3", OrderStatus: model.OrderOnTheWay},
		{ID: "o4", OrderStatus: model.OrderCancelled},
	}

	ongoing, past := splitOrders(orders)
	require.Len(t, ongoing, 2)
	require.Len(t, past, 2)
	require.Equal(t, "o1", ongoing[0].ID)
	require.Equal(t, "o2", past[0].ID)
}

func TestPrefillDeliveryFromProfile(t *testing.T) {
	server := testBackend(t, "User")
	a, _ := newTestApp(t, server)

	require.NoError(t, a.Login(context.Background(), "asha@example.com", "secret"))

	delivery := a.PrefillDelivery(context.Background())
	require.Equal(t, "asha", delivery.Name)
	require.Equal(t, "Kathmandu", delivery.Address)
	require.Equal(t, "9841000000", delivery.Phone)
}

func TestPrefillDeliveryLoggedOut(t *testing.T) {
	a, _ := newTestApp(t, testBackend(t, "User"))

	delivery := a.PrefillDelivery(context.Background())
	require.Equal(t, model.DeliveryInfo{}, delivery)
}

func TestCatalogRenders(t *testing.T) {
	a, out := newTestApp(t, testBackend(t, "User"))

	require.NoError(t, a.Catalog(context.Background()))
	require.Contains(t, out.String(), "Shirt")
}

func TestSessionSurvivesRestart(t *testing.T) {
	server := testBackend(t, "Admin")
	st := storage.NewMemStore()

	cfg := config.Default()
	cfg.BaseURL = server.URL
	cfg.RateLimit = 0

	a, err := New(cfg, WithOutput(&bytes.Buffer{}), WithStorage(st))
	require.NoError(t, err)
	require.NoError(t, a.Login(context.Background(), "asha@example.com", "secret"))

	reopened, err := New(cfg, WithOutput(&bytes.Buffer{}), WithStorage(st))
	require.NoError(t, err)
	require.True(t, reopened.Session().IsAuthenticated())

	role, ok := reopened.Session().Role()
	require.True(t, ok)
	require.Equal(t, "Admin", role)
}

func TestRegisterValidation(t *testing.T) {
	a, _ := newTestApp(t, testBackend(t, "User"))

	err := a.Register(context.Background(), registerArgs("", "a@b.com", "secret1", "secret1"))
	require.Error(t, err)

	err = a.Register(context.Background(), registerArgs("Asha", "a@b.com", "secret1", "different"))
	require.Error(t, err)

	err = a.Register(context.Background(), registerArgs("Asha", "not-an-email", "secret1", "secret1"))
	require.Error(t, err)
}

func registerArgs(name, email, password, confirm string) api.RegisterRequest {
	return api.RegisterRequest{
		Name:            name,
		Phone:           "9841000000",
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
}

func TestRedirectErrorUnwraps(t *testing.T) {
	err := error(&RedirectError{To: guard.RouteUnauthorized})
	var redirect *RedirectError
	require.True(t, errors.As(err, &redirect))
	require.Equal(t, "redirected to /unauthorized", err.Error())
}
