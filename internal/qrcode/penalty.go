package qrcode

// Penalty weights from ISO/IEC 18004 section 7.8.3.
const (
	penaltyN1 = 3
	penaltyN2 = 3
	penaltyN3 = 40
	penaltyN4 = 10
)

// penalty scores the current grid; lower is better.
func (s *Symbol) penalty() int {
	return s.penaltyRule1() + s.penaltyRule2() + s.penaltyRule3() + s.penaltyRule4()
}

// penaltyRule1 scores runs of five or more same-colored modules in a row or
// column: N1 plus one per module beyond five.
func (s *Symbol) penaltyRule1() int {
	score := 0
	for _, horizontal := range []bool{true, false} {
		for i := 0; i < s.Size; i++ {
			run := 0
			var prev bool
			for j := 0; j < s.Size; j++ {
				cur := s.cell(i, j, horizontal)
				if j > 0 && cur == prev {
					run++
					continue
				}
				if run >= 5 {
					score += penaltyN1 + run - 5
				}
				run, prev = 1, cur
			}
			if run >= 5 {
				score += penaltyN1 + run - 5
			}
		}
	}
	return score
}

// penaltyRule2 scores every 2x2 block of one color.
func (s *Symbol) penaltyRule2() int {
	score := 0
	for y := 0; y < s.Size-1; y++ {
		for x := 0; x < s.Size-1; x++ {
			c := s.modules[y][x]
			if c == s.modules[y][x+1] && c == s.modules[y+1][x] && c == s.modules[y+1][x+1] {
				score += penaltyN2
			}
		}
	}
	return score
}

// finderLike is the 1:1:3:1:1 dark/light sequence of a finder pattern.
var finderLike = [7]bool{true, false, true, true, true, false, true}

// penaltyRule3 scores finder-like sequences with four light modules on
// either side. Modules outside the symbol count as light.
func (s *Symbol) penaltyRule3() int {
	count := 0
	for _, horizontal := range []bool{true, false} {
		for i := 0; i < s.Size; i++ {
			for j := 0; j+7 <= s.Size; j++ {
				if !s.matchesFinder(i, j, horizontal) {
					continue
				}
				if s.isLightRun(i, j-4, j, horizontal) || s.isLightRun(i, j+7, j+11, horizontal) {
					count++
				}
			}
		}
	}
	return count * penaltyN3
}

func (s *Symbol) matchesFinder(i, j int, horizontal bool) bool {
	for k, want := range finderLike {
		if s.cell(i, j+k, horizontal) != want {
			return false
		}
	}
	return true
}

func (s *Symbol) isLightRun(i, from, to int, horizontal bool) bool {
	from, to = max(from, 0), min(to, s.Size)
	for j := from; j < to; j++ {
		if s.cell(i, j, horizontal) {
			return false
		}
	}
	return true
}

// penaltyRule4 scores deviation of the dark ratio from 50%, N4 per full 5%.
func (s *Symbol) penaltyRule4() int {
	dark := 0
	for y := 0; y < s.Size; y++ {
		for x := 0; x < s.Size; x++ {
			if s.modules[y][x] {
				dark++
			}
		}
	}
	total := s.Size * s.Size
	return abs(dark*2-total) * 10 / total * penaltyN4
}

// cell reads row i, column j when horizontal, else column i, row j.
func (s *Symbol) cell(i, j int, horizontal bool) bool {
	if horizontal {
		return s.modules[i][j]
	}
	return s.modules[j][i]
}
