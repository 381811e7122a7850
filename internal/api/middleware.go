package api

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"vlink/internal/shortener"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestID reuses an incoming X-Request-ID or assigns a new UUID, and echoes
// it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequireAdminToken guards admin routes with an "Authorization: Bearer" token.
// An empty token disables the routes entirely.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			respondError(c, http.StatusForbidden, "ADMIN_DISABLED", "Admin routes are disabled", nil)
			return
		}
		auth := c.GetHeader("Authorization")
		if auth == "" {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Please pass a bearer token", nil)
			return
		}
		given, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid bearer token", nil)
			return
		}
		c.Next()
	}
}

var registerOnce sync.Once

// registerValidators adds the shortcode tag to gin's binding validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("shortcode", validShortCode); err != nil {
			log.Printf("Failed to register shortcode validator: %v", err)
		}
	})
}

func validShortCode(fl validator.FieldLevel) bool {
	return shortener.ValidateCustomCode(fl.Field().String()) == nil
}
