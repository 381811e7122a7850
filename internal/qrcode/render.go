package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// ImageType is an output image encoding.
type ImageType string

const (
	PNG  ImageType = "image/png"
	JPEG ImageType = "image/jpeg"
)

// Render defaults.
const (
	DefaultMargin  = 1
	DefaultScale   = 4
	DefaultWidth   = 200
	DefaultQuality = 0.92
	DefaultDark    = "#000000"
	DefaultLight   = "#ffffff"
	maxImageWidth  = 4096
)

var (
	ErrInvalidColor   = errors.New("invalid color, expected #RGB, #RRGGBB or #RRGGBBAA")
	ErrInvalidType    = errors.New("unsupported image type")
	ErrImageTooLarge  = errors.New("requested image is too large")
	ErrInvalidQuality = errors.New("quality must be between 0 and 1")
)

// RenderOptions controls rasterisation of a symbol.
type RenderOptions struct {
	// Margin is the quiet zone width in modules.
	Margin int
	// Scale is the pixel size of one module.
	Scale int
	// Width, when at least the module count including margins, overrides Scale
	// and sets the image width in pixels.
	Width int
	Dark  color.Color
	Light color.Color
	Type  ImageType
	// Quality applies to JPEG output, 0 to 1.
	Quality float64
}

// DefaultRenderOptions returns margin 1, scale 4, width 200, black on white PNG.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Margin:  DefaultMargin,
		Scale:   DefaultScale,
		Width:   DefaultWidth,
		Dark:    color.NRGBA{A: 0xff},
		Light:   color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Type:    PNG,
		Quality: DefaultQuality,
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	def := DefaultRenderOptions()
	if o.Margin < 0 {
		o.Margin = 0
	}
	if o.Scale <= 0 {
		o.Scale = def.Scale
	}
	if o.Dark == nil {
		o.Dark = def.Dark
	}
	if o.Light == nil {
		o.Light = def.Light
	}
	if o.Type == "" {
		o.Type = def.Type
	}
	if o.Quality <= 0 {
		o.Quality = def.Quality
	}
	return o
}

// PixelWidth returns the rendered image width for a symbol of the given size.
func (o RenderOptions) PixelWidth(size int) int {
	o = o.withDefaults()
	modules := size + 2*o.Margin
	if o.Width > 0 && o.Width >= modules {
		return o.Width
	}
	return modules * o.Scale
}

// Image rasterises the symbol. The grid is drawn one pixel per module and
// scaled with nearest-neighbour sampling so module edges stay sharp.
func (s *Symbol) Image(opts RenderOptions) (image.Image, error) {
	opts = opts.withDefaults()
	modules := s.Size + 2*opts.Margin
	width := opts.PixelWidth(s.Size)
	if width > maxImageWidth {
		return nil, fmt.Errorf("%w: %dpx", ErrImageTooLarge, width)
	}

	palette := color.Palette{opts.Light, opts.Dark}
	grid := image.NewPaletted(image.Rect(0, 0, modules, modules), palette)
	for y := 0; y < s.Size; y++ {
		for x := 0; x < s.Size; x++ {
			if s.modules[y][x] {
				grid.SetColorIndex(x+opts.Margin, y+opts.Margin, 1)
			}
		}
	}

	if width == modules {
		return grid, nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, width))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), grid, grid.Bounds(), draw.Src, nil)
	return dst, nil
}

// Buffer renders the symbol and encodes it as PNG or JPEG.
func (s *Symbol) Buffer(opts RenderOptions) ([]byte, error) {
	opts = opts.withDefaults()
	img, err := s.Image(opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch opts.Type {
	case PNG:
		err = png.Encode(&buf, img)
	case JPEG:
		if opts.Quality > 1 {
			return nil, ErrInvalidQuality
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(opts.Quality*100 + 0.5)})
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, opts.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.Type, err)
	}
	return buf.Bytes(), nil
}

// DataURL renders the symbol as a base64 data URL suitable for an img src.
func (s *Symbol) DataURL(opts RenderOptions) (string, error) {
	opts = opts.withDefaults()
	buf, err := s.Buffer(opts)
	if err != nil {
		return "", err
	}
	return "data:" + string(opts.Type) + ";base64," + base64.StdEncoding.EncodeToString(buf), nil
}

// SVG renders the symbol as a standalone SVG document. Dark modules are
// merged into one path of horizontal runs.
func (s *Symbol) SVG(opts RenderOptions) string {
	opts = opts.withDefaults()
	modules := s.Size + 2*opts.Margin
	width := opts.PixelWidth(s.Size)

	var path strings.Builder
	for y := 0; y < s.Size; y++ {
		for x := 0; x < s.Size; {
			if !s.modules[y][x] {
				x++
				continue
			}
			start := x
			for x < s.Size && s.modules[y][x] {
				x++
			}
			fmt.Fprintf(&path, "M%d %dh%dv1h-%dz", start+opts.Margin, y+opts.Margin, x-start, x-start)
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		width, width, modules, modules)
	fmt.Fprintf(&out, `<path fill="%s" d="M0 0h%dv%dH0z"/>`, FormatHexColor(opts.Light), modules, modules)
	fmt.Fprintf(&out, `<path fill="%s" d="%s"/>`, FormatHexColor(opts.Dark), path.String())
	out.WriteString(`</svg>`)
	return out.String()
}

// ParseHexColor parses #RGB, #RGBA, #RRGGBB and #RRGGBBAA.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, c := range hex {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		hex = expanded.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatHexColor returns c as #rrggbb, or #rrggbbaa when not opaque.
func FormatHexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}
