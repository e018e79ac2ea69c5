package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digitalkrishi/officer-console/pkg/client"
)

// APIError is the error body of every JSON endpoint.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondBadRequestWithDetails sends a 400 Bad Request with additional details.
func RespondBadRequestWithDetails(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:   message,
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

func RespondTooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, APIError{
		Error: "Rate limit exceeded, please try again later",
		Code:  "RATE_LIMITED",
	})
}

// RespondServiceUnavailable sends a 503 naming the dependency that failed.
func RespondServiceUnavailable(c *gin.Context, service string) {
	c.JSON(http.StatusServiceUnavailable, APIError{
		Error: fmt.Sprintf("service unavailable: %s", service),
		Code:  "SERVICE_UNAVAILABLE",
	})
}

// BackendStatus maps an advisory API failure to the status the console
// answers with. 401 and 404 pass through, other backend 4xx become 400 and
// everything else is a bad gateway.
func BackendStatus(err error) int {
	code := client.StatusCode(err)
	switch {
	case code == http.StatusUnauthorized, code == http.StatusNotFound, code == http.StatusConflict,
		code == http.StatusUnprocessableEntity:
		return code
	case code >= 400 && code < 500:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
