package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PaymentsClient talks to the backend's Khalti gateway endpoints. The
// gateway protocol itself lives server-side; the client only performs the
// initiate/verify exchange.
type PaymentsClient struct {
	client *Client
}

// KhaltiInitiation is the successful initiate response: where to send the
// browser, and the order snapshot to hold until verification.
type KhaltiInitiation struct {
	PaymentURL string          `json:"payment_url"`
	Pidx       string          `json:"pidx"`
	TempOrder  json.RawMessage `json:"tempOrder"`
	Message    string          `json:"message,omitempty"`
}

// InitiateKhalti starts an online payment for the given order payload.
func (p *PaymentsClient) InitiateKhalti(ctx context.Context, req PlaceOrderRequest) (*KhaltiInitiation, error) {
	var resp KhaltiInitiation
	if err := p.client.sendJSON(ctx, http.MethodPost, "/api/orders/khalti/initiate", req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentURL == "" || len(resp.TempOrder) == 0 {
		msg := resp.Message
		if msg == "" {
			msg = "payment initiation returned no redirect"
		}
		return nil, fmt.Errorf("initiate khalti: %s", msg)
	}
	return &resp, nil
}

// KhaltiVerification is the verify-and-save payload: the gateway's
// transaction id plus the snapshot persisted at initiation.
type KhaltiVerification struct {
	Pidx      string          `json:"pidx"`
	TempOrder json.RawMessage `json:"tempOrder"`
}

// VerifyKhalti confirms the payment with the gateway and saves the order.
// Only after this succeeds does the temp snapshot become a real order.
func (p *PaymentsClient) VerifyKhalti(ctx context.Context, req KhaltiVerification) (*MessageResponse, error) {
	var resp MessageResponse
	if err := p.client.sendJSON(ctx, http.MethodPost, "/api/orders/khalti/verify-and-save", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
