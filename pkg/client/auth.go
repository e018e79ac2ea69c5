package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
)

type AuthService struct {
	client *Client
}

func (c *Client) Auth() *AuthService {
	return &AuthService{client: c}
}

// Login exchanges officer credentials for a bearer token.
func (a *AuthService) Login(ctx context.Context, employeeID, password string) (*v1.LoginResponse, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" || password == "" {
		return nil, errors.New("employee id and password are required")
	}
	req := v1.LoginRequest{EmployeeID: employeeID, Password: password}
	var resp v1.LoginResponse
	if err := a.client.do(ctx, "login", http.MethodPost, "/officer/login", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.BearerToken() == "" {
		return nil, errors.New("login response did not contain a token")
	}
	return &resp, nil
}
