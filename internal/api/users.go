package api

import (
	"context"

	"github.com/sajilostore/storefront/internal/model"
)

// UsersClient reads the authenticated user's profile.
type UsersClient struct {
	client *Client
}

// Details fetches the profile record. Sent with no-cache so a stale proxy
// never serves another user's details after a token change.
func (u *UsersClient) Details(ctx context.Context) (*model.UserDetails, error) {
	headers := map[string]string{"Cache-Control": "no-cache"}

	var details model.UserDetails
	if err := u.client.getJSON(ctx, "/api/Users/user/details", nil, headers, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
