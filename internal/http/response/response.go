// Package response provides JSON response helpers shared by all handlers.
package response

import (
	"net/http"

	"concierge_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// DomainError maps a service error to a response. Typed apperr errors carry
// their own status; anything else is treated as a bad request.
func DomainError(c *gin.Context, err error) {
	if e, ok := err.(*apperr.Error); ok {
		c.JSON(e.HTTPStatus(), ErrorResponse{Error: e.Message, Details: e.Details})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
