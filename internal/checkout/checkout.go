// Package checkout drives order placement: cash-on-delivery as a single
// call, online payment as a two-phase saga through the Khalti gateway.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/cart"
	"github.com/sajilostore/storefront/internal/guard"
	"github.com/sajilostore/storefront/internal/logging"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/storage"
)

// Durable-storage keys named by the backend contract.
const (
	tempOrderKey = storage.KeyTempOrder
	pidxKey      = storage.KeyPidx
)

// gatewayStatusCompleted is the status value Khalti appends to the return
// URL on success.
const gatewayStatusCompleted = "Completed"

var (
	// ErrEmptyCart blocks checkout with nothing to order.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrMissingTempOrder means the return trip found no pending snapshot;
	// the verify endpoint must not be called.
	ErrMissingTempOrder = errors.New("checkout: no pending payment snapshot")
	// ErrGatewayFailed means the gateway reported a non-success status.
	ErrGatewayFailed = errors.New("checkout: payment not completed at gateway")
)

// SagaState tracks the online-payment saga. Abandoned is an accepted
// terminal state, not an error: the snapshot is disposable until verified.
type SagaState string

const (
	SagaInitiated      SagaState = "Initiated"
	SagaAwaitingReturn SagaState = "AwaitingGatewayReturn"
	SagaVerified       SagaState = "Verified"
	SagaFailed         SagaState = "Failed"
	SagaAbandoned      SagaState = "Abandoned"
)

// Saga is one online-payment attempt.
type Saga struct {
	ID         string
	State      SagaState
	PaymentURL string
	Pidx       string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// Flow wires the cart, the backend client and durable storage into the
// checkout state machine.
type Flow struct {
	client   *api.Client
	cart     *cart.Store
	storage  storage.Store
	notifier api.Notifier
	logger   *logging.Logger

	mu   sync.Mutex
	saga *Saga
}

// New creates a checkout flow.
func New(client *api.Client, cartStore *cart.Store, st storage.Store, notifier api.Notifier, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Flow{client: client, cart: cartStore, storage: st, notifier: notifier, logger: logger}
}

func (f *Flow) orderItems() []api.PlaceOrderItem {
	lines := f.cart.Lines()
	items := make([]api.PlaceOrderItem, len(lines))
	for i, l := range lines {
		items[i] = api.PlaceOrderItem{ProductID: l.ProductID, Quantity: l.Quantity, Size: l.Size}
	}
	return items
}

// PlaceCOD places a cash-on-delivery order with the cart contents and
// clears the cart on success.
func (f *Flow) PlaceCOD(ctx context.Context, delivery model.DeliveryInfo) error {
	if err := ValidateDeliveryInfo(delivery); err != nil {
		return err
	}
	items := f.orderItems()
	if len(items) == 0 {
		return ErrEmptyCart
	}

	req := api.PlaceOrderRequest{
		Items:         items,
		DeliveryInfo:  delivery,
		PaymentMethod: model.PaymentCOD,
	}
	resp, err := f.client.Orders().Place(ctx, req)
	if err != nil {
		f.notifyError(api.UserMessage(err, "Failed to place order"))
		return err
	}

	message := resp.Message
	if message == "" {
		message = "Order placed successfully"
	}
	f.notifySuccess(message)
	f.cart.Clear()
	return nil
}

// InitiateOnline starts the online-payment saga: the backend returns a
// gateway redirect URL and a temporary order snapshot. The snapshot and
// transaction id are persisted and the cart cleared before the caller
// navigates to the gateway. The snapshot is not a real order yet.
func (f *Flow) InitiateOnline(ctx context.Context, delivery model.DeliveryInfo) (*Saga, error) {
	if err := ValidateDeliveryInfo(delivery); err != nil {
		return nil, err
	}
	items := f.orderItems()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	req := api.PlaceOrderRequest{Items: items, DeliveryInfo: delivery}
	init, err := f.client.Payments().InitiateKhalti(ctx, req)
	if err != nil {
		f.notifyError(api.UserMessage(err, "Khalti payment initiation failed"))
		return nil, err
	}

	if err := f.storage.Put(tempOrderKey, init.TempOrder); err != nil {
		f.notifyError("Khalti payment initiation failed")
		return nil, fmt.Errorf("persist temp order: %w", err)
	}
	if init.Pidx != "" {
		if err := f.storage.Put(pidxKey, []byte(init.Pidx)); err != nil {
			f.notifyError("Khalti payment initiation failed")
			return nil, fmt.Errorf("persist pidx: %w", err)
		}
	}
	f.cart.Clear()

	now := time.Now()
	saga := &Saga{
		ID:         uuid.NewString(),
		State:      SagaAwaitingReturn,
		PaymentURL: init.PaymentURL,
		Pidx:       init.Pidx,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	f.mu.Lock()
	f.saga = saga
	f.mu.Unlock()

	out := *saga
	return &out, nil
}

// GatewayReturn carries the query parameters the gateway appends to the
// return URL.
type GatewayReturn struct {
	Pidx          string
	Status        string
	TransactionID string
	Amount        string
}

// GatewayReturnFromQuery parses a return-trip query string.
func GatewayReturnFromQuery(q url.Values) GatewayReturn {
	return GatewayReturn{
		Pidx:          q.Get("pidx"),
		Status:        q.Get("status"),
		TransactionID: q.Get("transaction_id"),
		Amount:        q.Get("amount"),
	}
}

// CompleteOnline finishes the saga on the return trip. It returns the
// route to show next: the landing route after a verified payment, the
// cart route on any failure. The verify endpoint is only called when both
// the snapshot and a success status are present.
func (f *Flow) CompleteOnline(ctx context.Context, ret GatewayReturn) (string, error) {
	snapshot, err := f.storage.Get(tempOrderKey)
	if err != nil {
		f.setSagaState(SagaFailed)
		f.notifyError("Missing payment information")
		return guard.RouteCart, ErrMissingTempOrder
	}

	pidx := ret.Pidx
	if stored, err := f.storage.Get(pidxKey); err == nil && len(stored) > 0 {
		pidx = string(stored)
	}
	if pidx == "" {
		f.setSagaState(SagaFailed)
		f.notifyError("Missing payment information")
		return guard.RouteCart, ErrMissingTempOrder
	}

	if ret.Status != gatewayStatusCompleted {
		f.setSagaState(SagaFailed)
		f.notifyError("Payment was not completed")
		return guard.RouteCart, ErrGatewayFailed
	}

	verification := api.KhaltiVerification{Pidx: pidx, TempOrder: json.RawMessage(snapshot)}
	if _, err := f.client.Payments().VerifyKhalti(ctx, verification); err != nil {
		f.setSagaState(SagaFailed)
		f.notifyError(api.UserMessage(err, "Payment verification failed"))
		return guard.RouteCart, err
	}

	// Only now is the snapshot a real order; clean up the saga keys.
	if err := f.storage.Delete(tempOrderKey); err != nil {
		f.logger.WithError(err).Warn("clearing temp order failed")
	}
	if err := f.storage.Delete(pidxKey); err != nil {
		f.logger.WithError(err).Warn("clearing pidx failed")
	}

	f.setSagaState(SagaVerified)
	f.notifySuccess("Payment verified & order placed!")
	return guard.RouteLanding, nil
}

// Abandon marks a pending saga abandoned and discards the disposable
// snapshot. Called when the user gives up on the gateway return.
func (f *Flow) Abandon() {
	f.mu.Lock()
	if f.saga != nil && f.saga.State == SagaAwaitingReturn {
		f.saga.State = SagaAbandoned
		f.saga.UpdatedAt = time.Now()
	}
	f.mu.Unlock()

	if err := f.storage.Delete(tempOrderKey); err != nil {
		f.logger.WithError(err).Warn("clearing temp order failed")
	}
	if err := f.storage.Delete(pidxKey); err != nil {
		f.logger.WithError(err).Warn("clearing pidx failed")
	}
}

// Saga returns a copy of the current saga, if any.
func (f *Flow) Saga() (Saga, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saga == nil {
		return Saga{}, false
	}
	return *f.saga, true
}

// PendingSnapshot returns the persisted temp order, if one is awaiting
// verification.
func (f *Flow) PendingSnapshot() (json.RawMessage, bool) {
	data, err := f.storage.Get(tempOrderKey)
	if err != nil {
		return nil, false
	}
	return json.RawMessage(data), true
}

func (f *Flow) setSagaState(state SagaState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saga != nil {
		f.saga.State = state
		f.saga.UpdatedAt = time.Now()
	}
}

func (f *Flow) notifySuccess(message string) {
	if f.notifier != nil {
		f.notifier.Success(message)
	}
}

func (f *Flow) notifyError(message string) {
	if f.notifier != nil {
		f.notifier.Error(message)
	}
}
