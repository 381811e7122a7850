package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"vlink/internal/metrics"
	"vlink/internal/qrcode"
)

// QR output formats.
const (
	FormatDataURL = "dataURL"
	FormatBuffer  = "buffer"
	FormatSVG     = "svg"
)

// fallbackOrder lists levels from most to least redundant.
var fallbackOrder = []qrcode.Level{qrcode.High, qrcode.Quartile, qrcode.Medium, qrcode.Low}

// QRColor holds the dark and light module colors as hex strings.
type QRColor struct {
	Dark  string `json:"dark"`
	Light string `json:"light"`
}

// QROptions are the rendering options accepted by /api/qr.
type QROptions struct {
	ErrorCorrectionLevel string  `json:"errorCorrectionLevel"`
	Margin               *int    `json:"margin" binding:"omitempty,min=0,max=64"`
	Scale                int     `json:"scale" binding:"omitempty,min=1,max=64"`
	Width                int     `json:"width" binding:"omitempty,min=1,max=4096"`
	Type                 string  `json:"type" binding:"omitempty,oneof=image/png image/jpeg"`
	Quality              float64 `json:"quality" binding:"omitempty,gt=0,lte=1"`
	Color                QRColor `json:"color"`
}

// QRRequest is the structure for the /api/qr request body.
type QRRequest struct {
	URL     string    `json:"url" binding:"required"`
	Format  string    `json:"format" binding:"omitempty,oneof=dataURL buffer svg"`
	Options QROptions `json:"options"`
}

// QRResponse carries the rendered code and the symbol parameters.
type QRResponse struct {
	QRCode string      `json:"qrCode"`
	Format string      `json:"format"`
	Info   qrcode.Info `json:"info"`
}

// resolve validates the options and converts them to encoder settings.
func (o QROptions) resolve() (qrcode.Level, qrcode.RenderOptions, error) {
	level, err := qrcode.ParseLevel(o.ErrorCorrectionLevel)
	if err != nil {
		return 0, qrcode.RenderOptions{}, err
	}

	render := qrcode.DefaultRenderOptions()
	if o.Margin != nil {
		render.Margin = *o.Margin
	}
	if o.Scale > 0 {
		render.Scale = o.Scale
	}
	if o.Width > 0 {
		render.Width = o.Width
	}
	if o.Type != "" {
		render.Type = qrcode.ImageType(o.Type)
	}
	if o.Quality > 0 {
		render.Quality = o.Quality
	}
	if o.Color.Dark != "" {
		if render.Dark, err = qrcode.ParseHexColor(o.Color.Dark); err != nil {
			return 0, qrcode.RenderOptions{}, err
		}
	}
	if o.Color.Light != "" {
		if render.Light, err = qrcode.ParseHexColor(o.Color.Light); err != nil {
			return 0, qrcode.RenderOptions{}, err
		}
	}
	return level, render, nil
}

// encodeWithFallback encodes text at level, stepping down to less redundant
// levels while the text does not fit.
func encodeWithFallback(text string, level qrcode.Level) (*qrcode.Symbol, error) {
	start := slices.Index(fallbackOrder, level)
	if start < 0 {
		return nil, fmt.Errorf("%w: %s", qrcode.ErrInvalidLevel, level)
	}

	var lastErr error
	for _, l := range fallbackOrder[start:] {
		opts := qrcode.DefaultOptions()
		opts.Level = l
		sym, err := qrcode.Encode(text, opts)
		if err == nil {
			if l != level {
				log.Printf("QR text of %d bytes did not fit at level %s, encoded at %s", len(text), level, l)
			}
			metrics.QREncodes.WithLabelValues(l.String()).Inc()
			return sym, nil
		}
		if !errors.Is(err, qrcode.ErrEncodingTooLarge) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func badOptions(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "INVALID_OPTIONS", "Invalid QR code options: "+err.Error(), nil)
}

// GenerateQR encodes arbitrary text and returns it as a data URL, a base64
// image buffer or an SVG document.
func (h *Handler) GenerateQR(c *gin.Context) {
	var req QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.Is(err, io.EOF) || (errors.As(err, &verrs) && verrs[0].StructField() == "URL") {
			respondError(c, http.StatusBadRequest, "MISSING_URL", "URL is required", nil)
			return
		}
		badOptions(c, err)
		return
	}

	level, render, err := req.Options.resolve()
	if err != nil {
		badOptions(c, err)
		return
	}

	sym, err := encodeWithFallback(req.URL, level)
	if err != nil {
		fail(c, err)
		return
	}

	format := req.Format
	if format == "" {
		format = FormatDataURL
	}

	var out string
	switch format {
	case FormatDataURL:
		out, err = sym.DataURL(render)
	case FormatBuffer:
		var buf []byte
		if buf, err = sym.Buffer(render); err == nil {
			out = base64.StdEncoding.EncodeToString(buf)
		}
	case FormatSVG:
		out = sym.SVG(render)
	}
	if err != nil {
		badOptions(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    QRResponse{QRCode: out, Format: format, Info: sym.Info()},
	})
}

// LinkQR serves a PNG QR code for an existing short link and counts the
// download once the image has rendered. The optional level and width query
// parameters tune the image.
func (h *Handler) LinkQR(c *gin.Context) {
	level, err := qrcode.ParseLevel(c.Query("level"))
	if err != nil {
		badOptions(c, err)
		return
	}
	render := qrcode.DefaultRenderOptions()
	if raw := c.Query("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 {
			badOptions(c, fmt.Errorf("width must be a positive integer, got %q", raw))
			return
		}
		render.Width = width
	}

	link, err := h.links.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}

	sym, err := encodeWithFallback(shortURL(link.Code), level)
	if err != nil {
		fail(c, err)
		return
	}
	buf, err := sym.Buffer(render)
	if err != nil {
		badOptions(c, err)
		return
	}
	if _, err := h.links.TrackQRDownload(c.Request.Context(), link.Code); err != nil {
		fail(c, err)
		return
	}

	filename := strings.ReplaceAll(link.Code, `"`, "") + ".png"
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	c.Data(http.StatusOK, string(qrcode.PNG), buf)
}
