package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// errorResponse writes {"error": message}. Server-side failures are logged at error level,
// rejected requests at debug.
func errorResponse(c *gin.Context, statusCode int, message string) {
	evt := log.Debug()
	if statusCode >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.
		Str("request_id", c.GetString("request_id")).
		Str("path", c.FullPath()).
		Int("status", statusCode).
		Msg(message)
	c.AbortWithStatusJSON(statusCode, gin.H{"error": message})
}
