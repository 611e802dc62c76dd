// Package response writes the JSON envelope of the operational endpoints.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// ServiceUnavailable sends 503 with data describing what is down.
func ServiceUnavailable(c *gin.Context, data interface{}, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Data: data, Error: err})
}
