package qrcode

import (
	"fmt"
	"strings"
)

// Level is a QR error correction level.
type Level int

// Levels in ascending order of redundancy.
const (
	Low Level = iota
	Medium
	Quartile
	High
)

// formatBits are the two bits each level contributes to the format information.
var formatBits = [...]int{Low: 1, Medium: 0, Quartile: 3, High: 2}

func (l Level) String() string {
	switch l {
	case Low:
		return "L"
	case Medium:
		return "M"
	case Quartile:
		return "Q"
	case High:
		return "H"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Valid reports whether l is one of the four levels.
func (l Level) Valid() bool {
	return l >= Low && l <= High
}

// ParseLevel accepts L, M, Q, H (any case) and the long names low, medium,
// quartile, high. An empty string selects Medium.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "medium":
		return Medium, nil
	case "l", "low":
		return Low, nil
	case "q", "quartile":
		return Quartile, nil
	case "h", "high":
		return High, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}
