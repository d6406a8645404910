package utils

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope every API handler writes.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse aborts the request. An optional details value, such as a
// list of field errors, is attached as-is.
func ErrorResponse(c *gin.Context, status int, message string, details ...interface{}) {
	resp := Response{
		Success: false,
		Error:   message,
	}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	c.AbortWithStatusJSON(status, resp)
}
