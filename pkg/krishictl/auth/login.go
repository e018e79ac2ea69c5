package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	v1 "github.com/digitalkrishi/officer-console/api/v1"
	"github.com/digitalkrishi/officer-console/pkg/session"
)

// ErrSessionExpired is returned when the stored token was rejected.
var ErrSessionExpired = errors.New("session expired; run 'krishictl auth login'")

// ErrNotAuthenticated is returned when no token is stored for the context.
var ErrNotAuthenticated = errors.New("not authenticated; run 'krishictl auth login'")

// Authenticator is the login half of the advisory API client.
type Authenticator interface {
	Login(ctx context.Context, employeeID, password string) (*v1.LoginResponse, error)
}

// Login signs in and returns the token to store.
func Login(ctx context.Context, a Authenticator, employeeID, password string) (StoredToken, error) {
	resp, err := a.Login(ctx, employeeID, password)
	if err != nil {
		return StoredToken{}, err
	}
	token := StoredToken{
		AccessToken: resp.BearerToken(),
		EmployeeID:  resp.Officer.EmployeeID,
		Name:        resp.Officer.Name,
	}
	if token.EmployeeID == "" {
		token.EmployeeID = strings.TrimSpace(employeeID)
	}
	if exp, ok := session.TokenExpiry(token.AccessToken); ok {
		token.Expiry = exp
	}
	return token, nil
}

// ReadSecret reads one line from r, used for --password-stdin and prompts.
func ReadSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
