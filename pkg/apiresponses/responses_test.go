package apiresponses

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalkrishi/officer-console/pkg/client"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestResponders(t *testing.T) {
	tests := []struct {
		name     string
		respond  func(c *gin.Context)
		status   int
		code     string
		errorMsg string
	}{
		{"bad request", func(c *gin.Context) { RespondBadRequest(c, "invalid id") }, http.StatusBadRequest, "BAD_REQUEST", "invalid id"},
		{"rate limited", RespondTooManyRequests, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded, please try again later"},
		{"unavailable", func(c *gin.Context) { RespondServiceUnavailable(c, "session store") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable: session store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.respond(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.errorMsg, resp.Error)
		})
	}
}

func TestRespondBadRequestWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondBadRequestWithDetails(c, "invalid filter", "status must be one of pending, all")

	resp := decode(t, w)
	assert.Equal(t, "status must be one of pending, all", resp.Details)
}

func TestBackendStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", &client.HTTPError{StatusCode: 401}, http.StatusUnauthorized},
		{"not found", &client.HTTPError{StatusCode: 404}, http.StatusNotFound},
		{"conflict", &client.HTTPError{StatusCode: 409}, http.StatusConflict},
		{"other 4xx", &client.HTTPError{StatusCode: 403}, http.StatusBadRequest},
		{"5xx", &client.HTTPError{StatusCode: 500}, http.StatusBadGateway},
		{"wrapped", fmt.Errorf("escalations.get: %w", &client.HTTPError{StatusCode: 404}), http.StatusNotFound},
		{"transport", errors.New("dial tcp: refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackendStatus(tt.err))
		})
	}
}
