// Package app composes the stores, the backend client and the guard into
// the storefront's screens.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/cart"
	"github.com/sajilostore/storefront/internal/checkout"
	"github.com/sajilostore/storefront/internal/config"
	"github.com/sajilostore/storefront/internal/guard"
	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/metrics"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/notify"
	"github.com/sajilostore/storefront/internal/query"
	"github.com/sajilostore/storefront/internal/session"
	"github.com/sajilostore/storefront/internal/storage"
)

// Cache keys for the shared read path.
const (
	keyProducts   = "products"
	keyCategories = "categories"
	keyMyOrders   = "my-orders"
	keyAllOrders  = "allOrders"
)

// RedirectError reports that the guard redirected a navigation instead of
// rendering the screen.
type RedirectError struct {
	To string
}

func (e *RedirectError) Error() string {
	return "redirected to " + e.To
}

// storageTokens reads the bearer token straight from durable storage, so
// every outgoing request sees exactly what is persisted.
type storageTokens struct {
	st storage.Store
}

func (t storageTokens) Token() (string, bool) {
	data, err := t.st.Get(storage.KeyToken)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// App owns every screen of the storefront and the state behind them.
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	out     io.Writer
	storage storage.Store

	client   *api.Client
	cache    *query.Cache
	notify   *notify.Center
	session  *session.Store
	cart     *cart.Store
	guard    *guard.Guard
	checkout *checkout.Flow

	products   *query.Query[[]model.Product]
	categories *query.Query[[]model.Category]
	myOrders   *query.Query[[]model.Order]
	allOrders  *query.Query[[]model.Order]

	cancelOrder    *api.Mutation
	placeCategory  *api.Mutation
	addProduct     *api.Mutation
	updateProduct  *api.Mutation
	deleteProduct  *api.Mutation
	orderStatus    *api.Mutation
	paymentStatus  *api.Mutation
}

// Option configures the App.
type Option func(*options)

type options struct {
	out        io.Writer
	store      storage.Store
	httpClient *http.Client
	logger     *logging.Logger
}

// WithOutput directs screen rendering to w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithStorage substitutes the durable store. Used by tests.
func WithStorage(st storage.Store) Option {
	return func(o *options) { o.store = st }
}

// WithHTTPClient substitutes the HTTP client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger substitutes the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New wires the application together: durable storage, the backend
// client, the session and cart stores, the guard, and the checkout flow.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New("storefront", cfg.LogLevel, cfg.LogFormat)
	}

	st := o.store
	if st == nil {
		fileStore, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		st = fileStore
	}

	m := metrics.New()
	client, err := api.New(api.Config{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout(),
		Tokens:     storageTokens{st: st},
		Logger:     logger.WithField("component", "api"),
		Metrics:    m,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		HTTPClient: o.httpClient,
	})
	if err != nil {
		return nil, err
	}

	center := notify.NewCenter(32, logger)
	sess := session.New(st, client.Users(), logger.WithField("component", "session"))
	cartStore := cart.New(st, logger.WithField("component", "cart"))

	a := &App{
		cfg:      cfg,
		logger:   logger,
		out:      o.out,
		storage:  st,
		client:   client,
		cache:    query.NewCache(m, logger.WithField("component", "query")),
		notify:   center,
		session:  sess,
		cart:     cartStore,
		guard:    guard.New(sess),
		checkout: checkout.New(client, cartStore, st, center, logger.WithField("component", "checkout")),
	}

	a.products = query.New(a.cache, keyProducts, func(ctx context.Context) ([]model.Product, error) {
		return client.Products().List(ctx)
	}).WithDefault([]model.Product{})
	a.categories = query.New(a.cache, keyCategories, func(ctx context.Context) ([]model.Category, error) {
		return client.Categories().List(ctx)
	}).WithDefault([]model.Category{})
	a.myOrders = query.New(a.cache, keyMyOrders, func(ctx context.Context) ([]model.Order, error) {
		return client.Orders().Mine(ctx)
	}).WithDefault([]model.Order{})
	a.allOrders = query.New(a.cache, keyAllOrders, func(ctx context.Context) ([]model.Order, error) {
		return client.Orders().All(ctx)
	}).WithDefault([]model.Order{})

	// Order history only fetches while a session is active.
	a.myOrders.SetEnabled(sess.IsAuthenticated())
	a.allOrders.SetEnabled(sess.IsAuthenticated())

	notified := api.WithNotifier(center)
	a.cancelOrder = client.NewMutation(api.VerbPut, "/api/Orders/", notified,
		api.WithInvalidation(a.cache, keyMyOrders))
	a.placeCategory = client.NewMutation(api.VerbPost, "/api/categories/category", notified,
		api.WithInvalidation(a.cache, keyCategories))
	a.addProduct = client.NewMutation(api.VerbPost, "/api/products/addProduct", notified,
		api.WithInvalidation(a.cache, keyProducts))
	a.updateProduct = client.NewMutation(api.VerbPut, "/api/products/update/", notified,
		api.WithInvalidation(a.cache, keyProducts))
	a.deleteProduct = client.NewMutation(api.VerbDelete, "/api/products", notified,
		api.WithInvalidation(a.cache, keyProducts))
	a.orderStatus = client.NewMutation(api.VerbPut, "/api/orders", notified,
		api.WithInvalidation(a.cache, keyAllOrders))
	a.paymentStatus = client.NewMutation(api.VerbPut, "/api/orders", notified,
		api.WithInvalidation(a.cache, keyAllOrders))

	return a, nil
}

// Session exposes the session store.
func (a *App) Session() *session.Store { return a.session }

// Cart exposes the cart store.
func (a *App) Cart() *cart.Store { return a.cart }

// Checkout exposes the checkout flow.
func (a *App) Checkout() *checkout.Flow { return a.checkout }

// Client exposes the backend client.
func (a *App) Client() *api.Client { return a.client }

// Notifications drains the buffered transient notifications.
func (a *App) Notifications() []notify.Notification {
	return a.notify.Drain()
}

// requireAuth runs the guard for a customer-only screen.
func (a *App) requireAuth() error {
	if d := a.guard.Check(""); !d.Allow {
		return &RedirectError{To: d.RedirectTo}
	}
	return nil
}

// requireAdmin runs the guard for a back-office screen.
func (a *App) requireAdmin() error {
	if d := a.guard.CheckAdmin(); !d.Allow {
		return &RedirectError{To: d.RedirectTo}
	}
	return nil
}
