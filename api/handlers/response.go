package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyCallerID holds the identity of the caller, set by the caller identity middleware.
	ContextKeyCallerID = "caller_id"
	HeaderUserID       = "X-User-ID"

	HeaderPaginationTotalCount = "X-Pagination-Total-Count"
)

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeResponse(c *gin.Context, data any, statusCode int) {

	if statusCode == http.StatusNoContent {
		c.Status(statusCode)
		return
	}

	c.JSON(statusCode, response{
		Success: true,
		Data:    data,
	})
}

func writeErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	errorResponse := response{
		Success: false,
		Message: message,
	}
	if err != nil {
		errorResponse.Error = err.Error()
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

func callerID(c *gin.Context) string {
	return c.GetString(ContextKeyCallerID)
}
