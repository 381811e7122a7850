package qrcode

import (
	"strings"
	"unicode/utf8"
)

// Mode is a QR segment encoding mode.
type Mode int

const (
	ModeNumeric Mode = iota
	ModeAlphanumeric
	ModeByte
)

const alphanumericCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

func (m Mode) String() string {
	switch m {
	case ModeNumeric:
		return "numeric"
	case ModeAlphanumeric:
		return "alphanumeric"
	case ModeByte:
		return "byte"
	}
	return "unknown"
}

func (m Mode) indicator() int {
	switch m {
	case ModeNumeric:
		return 0x1
	case ModeAlphanumeric:
		return 0x2
	default:
		return 0x4
	}
}

// charCountBits returns the width of the character count field.
func (m Mode) charCountBits(version int) int {
	group := 0
	switch {
	case version >= 27:
		group = 2
	case version >= 10:
		group = 1
	}
	switch m {
	case ModeNumeric:
		return [3]int{10, 12, 14}[group]
	case ModeAlphanumeric:
		return [3]int{9, 11, 13}[group]
	default:
		return [3]int{8, 16, 16}[group]
	}
}

// Segment is a run of input encoded in a single mode.
type Segment struct {
	Mode     Mode
	NumChars int
	data     bitBuffer
}

func isNumeric(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlphanumeric(r rune) bool {
	return r < 128 && strings.IndexRune(alphanumericCharset, r) >= 0
}

func newNumericSegment(digits string) Segment {
	var bb bitBuffer
	for i := 0; i < len(digits); {
		n := min(3, len(digits)-i)
		val := 0
		for _, c := range digits[i : i+n] {
			val = val*10 + int(c-'0')
		}
		bb.appendBits(val, n*3+1)
		i += n
	}
	return Segment{Mode: ModeNumeric, NumChars: len(digits), data: bb}
}

func newAlphanumericSegment(text string) Segment {
	var bb bitBuffer
	i := 0
	for ; i+2 <= len(text); i += 2 {
		val := strings.IndexByte(alphanumericCharset, text[i]) * 45
		val += strings.IndexByte(alphanumericCharset, text[i+1])
		bb.appendBits(val, 11)
	}
	if i < len(text) {
		bb.appendBits(strings.IndexByte(alphanumericCharset, text[i]), 6)
	}
	return Segment{Mode: ModeAlphanumeric, NumChars: len(text), data: bb}
}

func newByteSegment(data []byte) Segment {
	var bb bitBuffer
	for _, b := range data {
		bb.appendBits(int(b), 8)
	}
	return Segment{Mode: ModeByte, NumChars: len(data), data: bb}
}

// totalBits returns the encoded size of segs at version, or -1 when a
// character count overflows its field.
func totalBits(segs []Segment, version int) int {
	total := 0
	for _, seg := range segs {
		ccBits := seg.Mode.charCountBits(version)
		if seg.NumChars >= 1<<ccBits {
			return -1
		}
		total += 4 + ccBits + len(seg.data)
	}
	return total
}

var segmentModes = [...]Mode{ModeByte, ModeAlphanumeric, ModeNumeric}

// optimalSegments splits text into the mode runs with the smallest encoded
// size for the character count widths of version. Costs are tracked in sixths
// of a bit so numeric (10 bits per 3 chars) and alphanumeric (11 bits per 2
// chars) stay integral.
func optimalSegments(text string, version int) []Segment {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	numModes := len(segmentModes)

	var headCosts [3]int
	for i, m := range segmentModes {
		headCosts[i] = (4 + m.charCountBits(version)) * 6
	}

	// charModes[i][j] is the mode of rune i on the cheapest path that is in
	// mode j after rune i; -1 when unreachable.
	charModes := make([][3]Mode, len(runes))
	prevCosts := headCosts

	for i, r := range runes {
		var curCosts [3]int
		reachable := [3]bool{true, false, false}

		curCosts[0] = prevCosts[0] + utf8.RuneLen(r)*8*6
		charModes[i][0] = ModeByte
		if isAlphanumeric(r) {
			curCosts[1] = prevCosts[1] + 33
			charModes[i][1] = ModeAlphanumeric
			reachable[1] = true
		}
		if isNumeric(r) {
			curCosts[2] = prevCosts[2] + 20
			charModes[i][2] = ModeNumeric
			reachable[2] = true
		}

		// Try ending this rune in mode k and starting mode j for the next one.
		fromCosts, fromModes, fromReachable := curCosts, charModes[i], reachable
		for j := 0; j < numModes; j++ {
			for k := 0; k < numModes; k++ {
				if !fromReachable[k] {
					continue
				}
				newCost := (fromCosts[k]+5)/6*6 + headCosts[j]
				if !reachable[j] || newCost < curCosts[j] {
					curCosts[j] = newCost
					charModes[i][j] = fromModes[k]
					reachable[j] = true
				}
			}
		}
		prevCosts = curCosts
	}

	// Cheapest final state, then walk back.
	best := 0
	for j := 1; j < numModes; j++ {
		if prevCosts[j] < prevCosts[best] {
			best = j
		}
	}
	modes := make([]Mode, len(runes))
	cur := segmentModes[best]
	for i := len(runes) - 1; i >= 0; i-- {
		for j, m := range segmentModes {
			if m == cur {
				cur = charModes[i][j]
				modes[i] = cur
				break
			}
		}
	}

	return splitIntoSegments(runes, modes)
}

func splitIntoSegments(runes []rune, modes []Mode) []Segment {
	var segs []Segment
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && modes[i] == modes[start] {
			continue
		}
		run := string(runes[start:i])
		switch modes[start] {
		case ModeNumeric:
			segs = append(segs, newNumericSegment(run))
		case ModeAlphanumeric:
			segs = append(segs, newAlphanumericSegment(run))
		default:
			segs = append(segs, newByteSegment([]byte(run)))
		}
		start = i
	}
	return segs
}
