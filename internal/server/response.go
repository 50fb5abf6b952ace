package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Success sends a successful JSON response with the given data.
// The response will always include "error": false.
func Success(c echo.Context, data map[string]interface{}) error {
	resp := make(map[string]interface{}, len(data)+1)
	resp["error"] = false
	for k, v := range data {
		resp[k] = v
	}
	return c.JSON(http.StatusOK, resp)
}

// ErrorWithCode sends an error response with a machine-readable code.
func ErrorWithCode(c echo.Context, statusCode int, code string, message string) error {
	return c.JSON(statusCode, map[string]interface{}{
		"error":   true,
		"code":    code,
		"message": message,
	})
}
