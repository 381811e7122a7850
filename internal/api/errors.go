package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"vlink/internal/config"
	"vlink/internal/links"
	"vlink/internal/qrcode"
)

// ErrorBody is the error half of every failed API response.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse is the body written for failed API requests.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// errorMapping maps a domain error to the status and code returned to clients.
type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorTable = []errorMapping{
	{links.ErrInvalidURL, http.StatusBadRequest, "INVALID_URL", "Please enter a valid URL"},
	{links.ErrInvalidCustomCode, http.StatusBadRequest, "INVALID_CUSTOM_CODE", "Custom code must be 3-32 letters or digits"},
	{links.ErrCodeTaken, http.StatusConflict, "CUSTOM_CODE_TAKEN", "The requested custom code is already in use"},
	{links.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Short code not found"},
	{qrcode.ErrEncodingTooLarge, http.StatusRequestEntityTooLarge, "ENCODING_TOO_LARGE", "The text does not fit in a QR code"},
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// fail writes the mapped response for err. Unmapped errors become a 500 and
// only carry details in development.
func fail(c *gin.Context, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			var details interface{}
			if m.status != http.StatusNotFound && err.Error() != m.err.Error() {
				details = gin.H{"originalError": err.Error()}
			}
			respondError(c, m.status, m.code, m.message, details)
			return
		}
	}

	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
	sentry.CaptureException(err)

	var details interface{}
	if config.AppConfig != nil && config.AppConfig.IsDevelopment() {
		details = gin.H{"errorMessage": err.Error()}
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR",
		"An unexpected error occurred", details)
}
