package qrcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumDataCodewords(t *testing.T) {
	tests := []struct {
		version int
		level   Level
		want    int
	}{
		{1, Low, 19},
		{1, Medium, 16},
		{1, Quartile, 13},
		{1, High, 9},
		{5, Quartile, 62},
		{10, Medium, 216},
		{40, Low, 2956},
		{40, High, 1276},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, numDataCodewords(tt.version, tt.level), "version %d", tt.version)
		})
	}
}

func TestBlockStructureCoversRawCodewords(t *testing.T) {
	for version := MinVersion; version <= MaxVersion; version++ {
		for level := Low; level <= High; level++ {
			data := make([]byte, numDataCodewords(version, level))
			out := addECCAndInterleave(data, version, level)
			assert.Len(t, out, numRawDataModules(version)/8, "version %d level %s", version, level)
		}
	}
}

func TestAlignmentPatternPositions(t *testing.T) {
	tests := []struct {
		version int
		want    []int
	}{
		{1, nil},
		{2, []int{6, 18}},
		{7, []int{6, 22, 38}},
		{32, []int{6, 34, 60, 86, 112, 138}},
		{36, []int{6, 24, 50, 76, 102, 128, 154}},
		{40, []int{6, 30, 58, 86, 114, 142, 170}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, alignmentPatternPositions(tt.version), "version %d", tt.version)
	}
}

func TestFormatAndVersionBits(t *testing.T) {
	assert.Equal(t, 0b101010000010010, formatBitsFor(Medium, 0))
	assert.Equal(t, 0b111011111000100, formatBitsFor(Low, 0))
	assert.Equal(t, 0b011010101011111, formatBitsFor(Quartile, 0))
	assert.Equal(t, 0b001011010001001, formatBitsFor(High, 0))

	assert.Equal(t, 0x07C94, versionBitsFor(7))
	assert.Equal(t, 0x28C69, versionBitsFor(40))
}

func TestHelloWorldCodewords(t *testing.T) {
	segs := optimalSegments("HELLO WORLD", 1)
	require.Len(t, segs, 1)
	assert.Equal(t, ModeAlphanumeric, segs[0].Mode)

	data := buildDataCodewords(segs, 1, Quartile)
	assert.Equal(t, []byte{32, 91, 11, 120, 209, 114, 220, 77, 67, 64, 236, 17, 236}, data)

	ecc := rsRemainder(data, rsDivisor(eccCodewordsPerBlock[Quartile][1]))
	assert.Equal(t, []byte{168, 72, 22, 82, 217, 54, 156, 0, 46, 15, 180, 122, 16}, ecc)
}

func TestOptimalSegments(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		modes []Mode
		chars []int
	}{
		{"digits", "0123456789", []Mode{ModeNumeric}, []int{10}},
		{"uppercase", "HELLO WORLD", []Mode{ModeAlphanumeric}, []int{11}},
		{"url", "https://vlink.example/abcdef", []Mode{ModeByte}, []int{28}},
		{"byte then long number", "abc12345678901234567890", []Mode{ModeByte, ModeNumeric}, []int{3, 20}},
		{"short number stays in byte", "abc12", []Mode{ModeByte}, []int{5}},
		{"utf8 counts bytes", "héllo", []Mode{ModeByte}, []int{6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := optimalSegments(tt.text, 1)
			require.Len(t, segs, len(tt.modes))
			for i, seg := range segs {
				assert.Equal(t, tt.modes[i], seg.Mode)
				assert.Equal(t, tt.chars[i], seg.NumChars)
			}
		})
	}
}

func TestOptimalSegmentsNeverWorseThanSingleMode(t *testing.T) {
	texts := []string{
		"HTTPS://VLINK.EXAMPLE/ABC123",
		"https://vlink.example/abcdef?utm_source=qr&id=0123456789",
		"WIFI:S:home;T:WPA;P:12345678;;",
		"31415926535897932384626433832795",
		strings.Repeat("AB12", 40),
	}
	for _, text := range texts {
		for _, version := range []int{1, 10, 27} {
			optimal := totalBits(optimalSegments(text, version), version)
			single := totalBits([]Segment{newByteSegment([]byte(text))}, version)
			assert.LessOrEqual(t, optimal, single, "%q at version %d", text, version)
		}
	}
}

func TestEncodeSelectsSmallestVersion(t *testing.T) {
	sym, err := Encode("https://vlink.example/abcdef", DefaultOptions())
	require.NoError(t, err)
	assert.LessOrEqual(t, sym.Version, 3)
	assert.Equal(t, Medium, sym.Level)
	assert.GreaterOrEqual(t, sym.Mask, 0)
	assert.LessOrEqual(t, sym.Mask, 7)
	assert.Equal(t, symbolSize(sym.Version), sym.Size)

	if sym.Version > 1 {
		// One version smaller must not have fitted.
		capacity := numDataCodewords(sym.Version-1, Medium) * 8
		assert.Greater(t, totalBits(sym.Segments, sym.Version-1), capacity)
	}

	info := sym.Info()
	assert.Equal(t, Info{Version: sym.Version, ErrorCorrectionLevel: "M", MaskPattern: sym.Mask, Segments: 1}, info)
}

func TestEncodeCapacityLimits(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		level   Level
		wantErr bool
	}{
		{"max bytes at H", strings.Repeat("a", 1273), High, false},
		{"one byte over at H", strings.Repeat("a", 1274), High, true},
		{"max digits at L", strings.Repeat("7", 7089), Low, false},
		{"one digit over at L", strings.Repeat("7", 7090), Low, true},
		{"max alphanumeric at L", strings.Repeat("Z", 4296), Low, false},
		{"one alphanumeric over at L", strings.Repeat("Z", 4297), Low, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := Encode(tt.text, Options{Level: tt.level, Mask: -1})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEncodingTooLarge)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, MaxVersion, sym.Version)
		})
	}
}

func TestEncodeValidation(t *testing.T) {
	_, err := Encode("", DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Encode("x", Options{Level: Level(7), Mask: -1})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = Encode("x", Options{Level: Medium, Mask: 8})
	assert.ErrorIs(t, err, ErrInvalidMask)

	_, err = Encode("x", Options{Level: Medium, Mask: -1, MinVersion: 5, MaxVersion: 2})
	assert.ErrorIs(t, err, ErrInvalidVersion)

	_, err = Encode(strings.Repeat("a", 100), Options{Level: High, Mask: -1, MaxVersion: 2})
	assert.ErrorIs(t, err, ErrEncodingTooLarge)
}

func TestEncodeVersionBounds(t *testing.T) {
	sym, err := Encode("A", Options{Level: Low, Mask: -1, MinVersion: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, sym.Version)
}

func TestEncodeForcedMask(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		sym, err := Encode("HELLO WORLD", Options{Level: Quartile, Mask: mask})
		require.NoError(t, err)
		assert.Equal(t, mask, sym.Mask)
		assert.Equal(t, formatBitsFor(Quartile, mask), readFormatBits(sym))
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode("https://vlink.example/Zz9", DefaultOptions())
	require.NoError(t, err)
	b, err := Encode("https://vlink.example/Zz9", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Bitmap(), b.Bitmap())
	assert.Equal(t, a.Mask, b.Mask)
}

func TestChosenMaskHasLowestPenalty(t *testing.T) {
	sym, err := Encode("https://vlink.example/abcdef", DefaultOptions())
	require.NoError(t, err)
	chosen := sym.penalty()

	for m := 0; m < 8; m++ {
		forced, err := Encode("https://vlink.example/abcdef", Options{Level: Medium, Mask: m})
		require.NoError(t, err)
		assert.LessOrEqual(t, chosen, forced.penalty(), "mask %d", m)
	}
}

func TestFunctionPatterns(t *testing.T) {
	sym, err := Encode("https://vlink.example/abcdef?ref=print", Options{Level: High, Mask: -1})
	require.NoError(t, err)
	size := sym.Size

	// Finder centres and their separators.
	for _, c := range [][2]int{{3, 3}, {size - 4, 3}, {3, size - 4}} {
		assert.True(t, sym.Module(c[0], c[1]))
		assert.False(t, sym.Module(c[0]+2, c[1]))
		assert.True(t, sym.Module(c[0]+3, c[1]))
	}

	// Timing patterns alternate between the finders.
	for i := 8; i < size-8; i++ {
		assert.Equal(t, i%2 == 0, sym.Module(i, 6), "row timing %d", i)
		assert.Equal(t, i%2 == 0, sym.Module(6, i), "column timing %d", i)
	}

	assert.True(t, sym.Module(8, size-8), "dark module")
	assert.False(t, sym.Module(-1, 0))
	assert.False(t, sym.Module(size, 0))

	// Both copies of the format information agree.
	bits := readFormatBits(sym)
	second := 0
	for i := 0; i < 8; i++ {
		if sym.Module(size-1-i, 8) {
			second |= 1 << i
		}
	}
	for i := 8; i < 15; i++ {
		if sym.Module(8, size-15+i) {
			second |= 1 << i
		}
	}
	assert.Equal(t, bits, second)
}

func TestVersionInformationPlaced(t *testing.T) {
	sym, err := Encode(strings.Repeat("v", 200), Options{Level: Medium, Mask: -1})
	require.NoError(t, err)
	require.GreaterOrEqual(t, sym.Version, 7)

	want := versionBitsFor(sym.Version)
	got := 0
	for i := 0; i < 18; i++ {
		if sym.Module(sym.Size-11+i%3, i/3) {
			got |= 1 << i
		}
	}
	assert.Equal(t, want, got)
}

func TestPenaltyOnBlankGrid(t *testing.T) {
	sym := newSymbol(1, Medium)
	assert.Equal(t, 21*2*(penaltyN1+16), sym.penaltyRule1())
	assert.Equal(t, 20*20*penaltyN2, sym.penaltyRule2())
	assert.Equal(t, 0, sym.penaltyRule3())
	assert.Equal(t, 100, sym.penaltyRule4())
}

func TestPenaltyRule3FindsFinderLikeRun(t *testing.T) {
	sym := newSymbol(1, Medium)
	for i, dark := range finderLike {
		sym.modules[10][5+i] = dark
	}
	// Light on both sides, counted once horizontally.
	assert.Equal(t, penaltyN3, sym.penaltyRule3())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", Medium, false},
		{"L", Low, false},
		{"m", Medium, false},
		{"quartile", Quartile, false},
		{"H", High, false},
		{"X", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidLevel)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, "Level(9)", Level(9).String())
}

// readFormatBits reads the copy of the format information around the top left finder.
func readFormatBits(sym *Symbol) int {
	bits := 0
	set := func(i int, dark bool) {
		if dark {
			bits |= 1 << i
		}
	}
	for i := 0; i <= 5; i++ {
		set(i, sym.Module(8, i))
	}
	set(6, sym.Module(8, 7))
	set(7, sym.Module(8, 8))
	set(8, sym.Module(7, 8))
	for i := 9; i < 15; i++ {
		set(i, sym.Module(14-i, 8))
	}
	return bits
}

func BenchmarkEncodeURL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := Encode("https://vlink.example/abcdef?utm_source=print", DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}
