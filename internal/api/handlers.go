package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"vlink/internal/config"
	"vlink/internal/links"
	"vlink/internal/metrics"
	"vlink/internal/models"
	"vlink/internal/shortener"
)

const healthTimeout = 2 * time.Second

// StatusReporter exposes the visit queue state for /status.
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// Handler serves the HTTP API on top of a links.Service.
type Handler struct {
	links  *links.Service
	visits StatusReporter
}

// NewHandler creates a Handler. visits may be nil.
func NewHandler(svc *links.Service, visits StatusReporter) *Handler {
	return &Handler{links: svc, visits: visits}
}

// CreateRequest is the structure for the /api/create request body.
type CreateRequest struct {
	OriginalURL string `json:"originalUrl" binding:"required"`
	CustomCode  string `json:"customCode" binding:"omitempty,shortcode"`
}

// CreateResponse is the data returned for a created or existing link.
type CreateResponse struct {
	ShortURL string `json:"shortUrl"`
	Code     string `json:"code"`
	IsCustom bool   `json:"isCustom"`
}

// StatsResponse is a stored link plus its public short URL.
type StatsResponse struct {
	*models.Link
	ShortURL string `json:"shortUrl"`
}

func shortURL(code string) string {
	return config.AppConfig.BaseURL + "/" + code
}

// CreateLink handles the creation of new short URLs. Submitting a destination
// that is already stored returns its existing code with 200.
func (h *Handler) CreateLink(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindCreateError(c, err)
		return
	}
	if strings.TrimSpace(req.OriginalURL) == "" {
		respondError(c, http.StatusBadRequest, "MISSING_URL", "Original URL is required", nil)
		return
	}

	destination, err := links.NormalizeDestination(req.OriginalURL)
	if err != nil {
		fail(c, err)
		return
	}

	// Check if the domain is allowed
	if allowed := config.AppConfig.AllowedDomainList(); len(allowed) > 0 {
		parsedURL, _ := url.Parse(destination)
		hostname := parsedURL.Hostname()
		if !slices.Contains(allowed, hostname) {
			respondError(c, http.StatusForbidden, "DOMAIN_NOT_ALLOWED",
				fmt.Sprintf("Domain '%s' is not allowed for shortening.", hostname), nil)
			return
		}
	}

	link, created, err := h.links.Allocate(c.Request.Context(), destination, req.CustomCode)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		kind := "generated"
		if link.IsCustom {
			kind = "custom"
		}
		metrics.LinksCreated.WithLabelValues(kind).Inc()
		log.Printf("Created short code %s for URL: %s", link.Code, link.Destination)
	}

	c.JSON(status, gin.H{
		"success": true,
		"data": CreateResponse{
			ShortURL: shortURL(link.Code),
			Code:     link.Code,
			IsCustom: link.IsCustom,
		},
	})
}

// bindCreateError turns a binding failure into the matching API error.
func bindCreateError(c *gin.Context, err error) {
	if errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "MISSING_URL", "Original URL is required", nil)
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.StructField() {
			case "OriginalURL":
				respondError(c, http.StatusBadRequest, "MISSING_URL", "Original URL is required", nil)
				return
			case "CustomCode":
				message := "Custom code must be 3-32 letters or digits"
				if code, ok := fe.Value().(string); ok {
					if verr := shortener.ValidateCustomCode(code); verr != nil {
						message = verr.Error()
					}
				}
				respondError(c, http.StatusBadRequest, "INVALID_CUSTOM_CODE", message, nil)
				return
			}
		}
	}
	respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body: "+err.Error(), nil)
}

// Redirect sends the visitor to the destination stored for the short code.
// Store failures are reported as not found so internals never leak.
func (h *Handler) Redirect(c *gin.Context) {
	code := c.Param("shortCode")
	rc := links.RequestContext{
		UserAgent: c.GetHeader("User-Agent"),
		Address:   c.ClientIP(),
		Referrer:  c.GetHeader("Referer"),
	}

	destination, err := h.links.Resolve(c.Request.Context(), code, rc)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			metrics.Redirects.WithLabelValues("miss").Inc()
		} else {
			metrics.Redirects.WithLabelValues("error").Inc()
			log.Printf("Error resolving short code %s: %v", code, err)
		}
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Short code not found", nil)
		return
	}

	metrics.Redirects.WithLabelValues("hit").Inc()
	c.Redirect(http.StatusFound, destination)
}

// Stats returns the counters stored for a short code.
func (h *Handler) Stats(c *gin.Context) {
	link, err := h.links.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    StatsResponse{Link: link, ShortURL: shortURL(link.Code)},
	})
}

// DeleteLink removes a short code and its visit history.
func (h *Handler) DeleteLink(c *gin.Context) {
	code := c.Param("code")
	if err := h.links.Delete(c.Request.Context(), code); err != nil {
		fail(c, err)
		return
	}
	log.Printf("Deleted short code %s", code)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HealthCheck reports UP when the link store answers a ping.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.links.Ping(ctx); err != nil {
		log.Printf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// Status provides detailed information about the visit queue.
func (h *Handler) Status(c *gin.Context) {
	response := gin.H{
		"status":    "UP",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.visits != nil {
		response["visit_queue"] = h.visits.GetStatus()
	}
	c.JSON(http.StatusOK, response)
}
