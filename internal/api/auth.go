package api

import (
	"context"
	"net/http"

	"github.com/sajilostore/storefront/internal/model"
)

// AuthClient handles authentication endpoints.
type AuthClient struct {
	client *Client
}

// MessageResponse is the backend's generic acknowledgement envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse carries the signed token returned on successful login.
type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// Login authenticates with email and password.
func (a *AuthClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp LoginResponse
	if err := a.client.sendJSON(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Referral        string `json:"referal,omitempty"`
	Role            string `json:"role,omitempty"`
}

// Register creates a new account.
func (a *AuthClient) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := a.client.sendJSON(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Roles lists the selectable account roles for the register screen.
func (a *AuthClient) Roles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := a.client.getJSON(ctx, "/api/roles/role", nil, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}
