package qrcode

import "fmt"

// Options controls symbol construction.
type Options struct {
	// Level is the error correction level. The zero value is Low, so callers
	// that want the usual default should use DefaultOptions.
	Level Level
	// MinVersion and MaxVersion bound the version search; zero means 1 and 40.
	MinVersion int
	MaxVersion int
	// Mask forces a mask pattern 0-7; -1 picks the lowest penalty.
	Mask int
}

// DefaultOptions returns level M with automatic version and mask selection.
func DefaultOptions() Options {
	return Options{Level: Medium, Mask: -1}
}

// Info describes an encoded symbol.
type Info struct {
	Version              int    `json:"version"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel"`
	MaskPattern          int    `json:"maskPattern"`
	Segments             int    `json:"segments"`
}

// Symbol is a finished QR code: a square grid of dark and light modules.
type Symbol struct {
	Version  int
	Level    Level
	Mask     int
	Size     int
	Segments []Segment

	modules    [][]bool
	isFunction [][]bool
}

// Module reports whether the module at column x, row y is dark. Coordinates
// outside the symbol are light.
func (s *Symbol) Module(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Size && y < s.Size && s.modules[y][x]
}

// Info returns the observable parameters of the symbol.
func (s *Symbol) Info() Info {
	return Info{
		Version:              s.Version,
		ErrorCorrectionLevel: s.Level.String(),
		MaskPattern:          s.Mask,
		Segments:             len(s.Segments),
	}
}

// Bitmap returns a copy of the module grid indexed [row][column].
func (s *Symbol) Bitmap() [][]bool {
	out := make([][]bool, s.Size)
	for y := range out {
		out[y] = append([]bool(nil), s.modules[y]...)
	}
	return out
}

// Encode builds the smallest symbol that holds text at opts.Level.
func Encode(text string, opts Options) (*Symbol, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if !opts.Level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(opts.Level))
	}
	if opts.Mask < -1 || opts.Mask > 7 {
		return nil, ErrInvalidMask
	}
	minVersion, maxVersion := opts.MinVersion, opts.MaxVersion
	if minVersion == 0 {
		minVersion = MinVersion
	}
	if maxVersion == 0 {
		maxVersion = MaxVersion
	}
	if minVersion < MinVersion || maxVersion > MaxVersion || minVersion > maxVersion {
		return nil, ErrInvalidVersion
	}

	var (
		segs    []Segment
		version int
		used    int
	)
	// Character count widths change at versions 10 and 27, so the optimal
	// split is recomputed when entering each group.
	for version = minVersion; ; version++ {
		if version == minVersion || version == 10 || version == 27 {
			segs = optimalSegments(text, version)
		}
		capacity := numDataCodewords(version, opts.Level) * 8
		used = totalBits(segs, version)
		if used != -1 && used <= capacity {
			break
		}
		if version >= maxVersion {
			return nil, fmt.Errorf("%w (level %s)", ErrEncodingTooLarge, opts.Level)
		}
	}

	data := buildDataCodewords(segs, version, opts.Level)
	codewords := addECCAndInterleave(data, version, opts.Level)

	sym := newSymbol(version, opts.Level)
	sym.Segments = segs
	sym.drawFunctionPatterns()
	sym.drawCodewords(codewords)
	sym.chooseMask(opts.Mask)
	return sym, nil
}

// buildDataCodewords concatenates segment headers and payloads, then adds the
// terminator and pad codewords up to the version capacity.
func buildDataCodewords(segs []Segment, version int, level Level) []byte {
	var bb bitBuffer
	for _, seg := range segs {
		bb.appendBits(seg.Mode.indicator(), 4)
		bb.appendBits(seg.NumChars, seg.Mode.charCountBits(version))
		bb = append(bb, seg.data...)
	}

	capacity := numDataCodewords(version, level) * 8
	bb.appendBits(0, min(4, capacity-len(bb)))
	bb.appendBits(0, (8-len(bb)%8)%8)
	for pad := 0xEC; len(bb) < capacity; pad ^= 0xEC ^ 0x11 {
		bb.appendBits(pad, 8)
	}
	return bb.bytes()
}
