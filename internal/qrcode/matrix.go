package qrcode

func newSymbol(version int, level Level) *Symbol {
	size := symbolSize(version)
	s := &Symbol{
		Version:    version,
		Level:      level,
		Size:       size,
		modules:    make([][]bool, size),
		isFunction: make([][]bool, size),
	}
	for y := 0; y < size; y++ {
		s.modules[y] = make([]bool, size)
		s.isFunction[y] = make([]bool, size)
	}
	return s
}

func (s *Symbol) setFunctionModule(x, y int, dark bool) {
	s.modules[y][x] = dark
	s.isFunction[y][x] = true
}

// drawFunctionPatterns places timing, finder and alignment patterns and
// reserves the format and version areas.
func (s *Symbol) drawFunctionPatterns() {
	for i := 0; i < s.Size; i++ {
		s.setFunctionModule(6, i, i%2 == 0)
		s.setFunctionModule(i, 6, i%2 == 0)
	}

	s.drawFinderPattern(3, 3)
	s.drawFinderPattern(s.Size-4, 3)
	s.drawFinderPattern(3, s.Size-4)

	positions := alignmentPatternPositions(s.Version)
	last := len(positions) - 1
	for i, py := range positions {
		for j, px := range positions {
			// Skip the three corners occupied by finder patterns.
			if (i == 0 && j == 0) || (i == 0 && j == last) || (i == last && j == 0) {
				continue
			}
			s.drawAlignmentPattern(px, py)
		}
	}

	// Reserve the format area; real bits are drawn once the mask is known.
	s.drawFormatBits(0)
	s.drawVersion()
}

// drawFinderPattern draws a 9x9 finder pattern with separator centred at (x, y).
func (s *Symbol) drawFinderPattern(x, y int) {
	for dy := -4; dy <= 4; dy++ {
		for dx := -4; dx <= 4; dx++ {
			xx, yy := x+dx, y+dy
			if xx < 0 || xx >= s.Size || yy < 0 || yy >= s.Size {
				continue
			}
			dist := max(abs(dx), abs(dy))
			s.setFunctionModule(xx, yy, dist != 2 && dist != 4)
		}
	}
}

// drawAlignmentPattern draws a 5x5 alignment pattern centred at (x, y).
func (s *Symbol) drawAlignmentPattern(x, y int) {
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			s.setFunctionModule(x+dx, y+dy, max(abs(dx), abs(dy)) != 1)
		}
	}
}

// formatBitsFor returns the 15-bit format information for level and mask,
// BCH protected and XOR masked.
func formatBitsFor(level Level, mask int) int {
	data := formatBits[level]<<3 | mask
	rem := data
	for i := 0; i < 10; i++ {
		rem = (rem << 1) ^ ((rem >> 9) * 0x537)
	}
	return (data<<10 | rem) ^ 0x5412
}

// versionBitsFor returns the 18-bit version information for versions 7 and up.
func versionBitsFor(version int) int {
	rem := version
	for i := 0; i < 12; i++ {
		rem = (rem << 1) ^ ((rem >> 11) * 0x1F25)
	}
	return version<<12 | rem
}

func (s *Symbol) drawFormatBits(mask int) {
	bits := formatBitsFor(s.Level, mask)

	// First copy, around the top left finder.
	for i := 0; i <= 5; i++ {
		s.setFunctionModule(8, i, getBit(bits, i))
	}
	s.setFunctionModule(8, 7, getBit(bits, 6))
	s.setFunctionModule(8, 8, getBit(bits, 7))
	s.setFunctionModule(7, 8, getBit(bits, 8))
	for i := 9; i < 15; i++ {
		s.setFunctionModule(14-i, 8, getBit(bits, i))
	}

	// Second copy, split between the other two finders.
	for i := 0; i < 8; i++ {
		s.setFunctionModule(s.Size-1-i, 8, getBit(bits, i))
	}
	for i := 8; i < 15; i++ {
		s.setFunctionModule(8, s.Size-15+i, getBit(bits, i))
	}
	s.setFunctionModule(8, s.Size-8, true) // always dark
}

func (s *Symbol) drawVersion() {
	if s.Version < 7 {
		return
	}
	bits := versionBitsFor(s.Version)
	for i := 0; i < 18; i++ {
		bit := getBit(bits, i)
		a := s.Size - 11 + i%3
		b := i / 3
		s.setFunctionModule(a, b, bit)
		s.setFunctionModule(b, a, bit)
	}
}

// drawCodewords fills the data area in the zig-zag column-pair order,
// right to left, alternating upward and downward.
func (s *Symbol) drawCodewords(data []byte) {
	i := 0
	for right := s.Size - 1; right >= 1; right -= 2 {
		if right == 6 {
			right = 5 // skip the vertical timing column
		}
		upward := (right+1)&2 == 0
		for vert := 0; vert < s.Size; vert++ {
			y := vert
			if upward {
				y = s.Size - 1 - vert
			}
			for j := 0; j < 2; j++ {
				x := right - j
				if s.isFunction[y][x] || i >= len(data)*8 {
					continue
				}
				s.modules[y][x] = getBit(int(data[i>>3]), 7-(i&7))
				i++
			}
		}
	}
}

// maskBit reports whether mask pattern m inverts the module at (x, y).
func maskBit(m, x, y int) bool {
	switch m {
	case 0:
		return (x+y)%2 == 0
	case 1:
		return y%2 == 0
	case 2:
		return x%3 == 0
	case 3:
		return (x+y)%3 == 0
	case 4:
		return (x/3+y/2)%2 == 0
	case 5:
		return x*y%2+x*y%3 == 0
	case 6:
		return (x*y%2+x*y%3)%2 == 0
	case 7:
		return ((x+y)%2+x*y%3)%2 == 0
	}
	return false
}

// applyMask XORs mask m over the data area. Applying it twice undoes it.
func (s *Symbol) applyMask(m int) {
	for y := 0; y < s.Size; y++ {
		for x := 0; x < s.Size; x++ {
			if !s.isFunction[y][x] && maskBit(m, x, y) {
				s.modules[y][x] = !s.modules[y][x]
			}
		}
	}
}

// chooseMask applies the forced mask, or every mask in turn keeping the one
// with the lowest penalty, and draws the matching format bits.
func (s *Symbol) chooseMask(forced int) {
	mask := forced
	if mask < 0 {
		best := -1
		for m := 0; m < 8; m++ {
			s.applyMask(m)
			s.drawFormatBits(m)
			if p := s.penalty(); best < 0 || p < best {
				best, mask = p, m
			}
			s.applyMask(m)
		}
	}
	s.applyMask(mask)
	s.drawFormatBits(mask)
	s.Mask = mask
}

func getBit(x, i int) bool {
	return (x>>uint(i))&1 != 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
