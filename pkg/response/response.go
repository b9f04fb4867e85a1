// Package response defines the single envelope shape used by every
// success and error response: a human-readable message plus an optional
// typed payload.
package response

import "github.com/gin-gonic/gin"

// Envelope wraps every response body.
type Envelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// JSON writes an envelope with the given status.
func JSON(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Message: message, Data: data})
}

// AbortJSON writes an envelope and stops the handler chain.
func AbortJSON(c *gin.Context, status int, message string, data interface{}) {
	c.AbortWithStatusJSON(status, Envelope{Message: message, Data: data})
}
