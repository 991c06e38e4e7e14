package api

import (
	"context"
	"net/http"

	"github.com/idilsaglam/tada/internal/model"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds model.LoginCredentials) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, creds, &resp); err != nil {
		return model.AuthResponse{}, err
	}
	return resp, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, data model.RegisterData) (model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/register", nil, data, &resp); err != nil {
		return model.AuthResponse{}, err
	}
	return resp, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// CurrentUser returns the identity behind the current token.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &resp); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}
