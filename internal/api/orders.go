package api

import (
	"context"
	"net/http"

	"github.com/sajilostore/storefront/internal/model"
)

// OrdersClient handles order placement and retrieval.
type OrdersClient struct {
	client *Client
}

// PlaceOrderItem is one cart line in an order-placement payload.
type PlaceOrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// PlaceOrderRequest is the order-placement payload shared by the COD path
// and the payment-gateway initiation.
type PlaceOrderRequest struct {
	Items         []PlaceOrderItem    `json:"items"`
	DeliveryInfo  model.DeliveryInfo  `json:"deliveryInfo"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod,omitempty"`
}

// Place creates an order.
func (o *OrdersClient) Place(ctx context.Context, req PlaceOrderRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := o.client.sendJSON(ctx, http.MethodPost, "/api/Orders/place", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mine lists the authenticated user's orders.
func (o *OrdersClient) Mine(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := o.client.getJSON(ctx, "/api/Orders/my-orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Cancel cancels one of the user's orders. The backend only allows this
// while the order is still Processing.
func (o *OrdersClient) Cancel(ctx context.Context, id string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := o.client.sendJSON(ctx, http.MethodPut, "/api/Orders/"+id+"/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// All lists every order. Admin only.
func (o *OrdersClient) All(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := o.client.getJSON(ctx, "/api/orders/all", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order to a new fulfilment status. Admin only.
func (o *OrdersClient) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*MessageResponse, error) {
	req := map[string]model.OrderStatus{"orderStatus": status}
	var resp MessageResponse
	if err := o.client.sendJSON(ctx, http.MethodPut, "/api/orders/"+id+"/update-order-status", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdatePayment moves an order to a new payment status. Admin only.
func (o *OrdersClient) UpdatePayment(ctx context.Context, id string, status model.PaymentStatus) (*MessageResponse, error) {
	req := map[string]model.PaymentStatus{"paymentStatus": status}
	var resp MessageResponse
	if err := o.client.sendJSON(ctx, http.MethodPut, "/api/orders/"+id+"/update-payment-status", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
