package gcode

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/olos-console/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, it *Interpreter, src string) []models.Segment {
	t.Helper()
	segs, err := it.Convert(strings.Split(src, "\n"), 1)
	require.NoError(t, err)
	return segs
}

func TestLinearMoves(t *testing.T) {
	it := NewInterpreter()
	segs := convert(t, it, "G21 G90\nG0 X10 Y5\nG1 X20 Y5\nX20 Y15")

	require.Len(t, segs, 3)
	assert.True(t, segs[0].Rapid)
	assert.False(t, segs[1].Rapid)
	assert.False(t, segs[2].Rapid, "motion mode is modal")
	assert.Equal(t, models.Point{X: 10, Y: 5}, segs[1].From)
	assert.Equal(t, models.Point{X: 20, Y: 15}, segs[2].To)
	assert.Equal(t, []int{2, 3, 4}, []int{segs[0].Line, segs[1].Line, segs[2].Line})

	w, h := it.Bounds()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 10.0, h)
	assert.Equal(t, &models.Point{X: 10, Y: 5}, it.StartPoint())
	assert.Equal(t, &models.Point{X: 20, Y: 15}, it.EndPoint())
}

func TestBoundsExcludeOrigin(t *testing.T) {
	it := NewInterpreter()
	convert(t, it, "G0 X50 Y50\nG1 X60 Y70")

	b := it.BoundingBox()
	assert.Equal(t, 50.0, b.MinX)
	assert.Equal(t, 50.0, b.MinY)
	w, h := it.Bounds()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 20.0, h)
}

func TestRelativeAndUnits(t *testing.T) {
	it := NewInterpreter()
	segs := convert(t, it, "G20\nG91\nG1 X1 Y0\nG1 X1 Y1\nG21\nG1 X-2")

	require.Len(t, segs, 3)
	assert.InDelta(t, 25.4, segs[0].To.X, 1e-9)
	assert.InDelta(t, 50.8, segs[1].To.X, 1e-9)
	assert.InDelta(t, 25.4, segs[1].To.Y, 1e-9)
	assert.InDelta(t, 48.8, segs[2].To.X, 1e-9)
	assert.InDelta(t, 25.4, segs[2].To.Y, 1e-9, "unspecified axis keeps its position")
}

func TestCommentsAndIgnoredWords(t *testing.T) {
	it := NewInterpreter()
	src := strings.Join([]string{
		"%",
		"; header comment",
		"(setup) G21 (mm)",
		"",
		"   ",
		"N10 M3 S1000 T1",
		"g1 x5 y5 f300 ; lower case works",
		"G1X6Y7",
		"(unterminated comment G1 X100",
		"M5",
	}, "\n")
	segs := convert(t, it, src)

	require.Len(t, segs, 2)
	assert.Equal(t, models.Point{X: 5, Y: 5}, segs[0].To)
	assert.Equal(t, models.Point{X: 6, Y: 7}, segs[1].To)
	assert.Equal(t, 7, segs[0].Line)
}

func TestHomeReturnsToOrigin(t *testing.T) {
	it := NewInterpreter()
	segs := convert(t, it, "G1 X10 Y10\nG28")

	require.Len(t, segs, 2)
	assert.True(t, segs[1].Rapid)
	assert.Equal(t, models.Point{}, segs[1].To)
	assert.Equal(t, &models.Point{}, it.EndPoint())

	it.Reset()
	segs = convert(t, it, "G1 X10 Y10\nG28 X20 Y10")
	require.Len(t, segs, 3)
	assert.Equal(t, models.Point{X: 20, Y: 10}, segs[1].To, "G28 passes through the given point")
	assert.Equal(t, models.Point{}, segs[2].To)
}

func TestArcWithCenterOffsets(t *testing.T) {
	it := NewInterpreter()
	// counter-clockwise quarter circle of radius 10 around the origin
	segs := convert(t, it, "G0 X10 Y0\nG3 X0 Y10 I-10 J0")

	arc := segs[1:]
	require.NotEmpty(t, arc)
	assert.Equal(t, models.Point{X: 0, Y: 10}, arc[len(arc)-1].To)
	for _, s := range arc {
		assert.InDelta(t, 10.0, math.Hypot(s.To.X, s.To.Y), 1e-9)
		assert.True(t, s.To.X >= -1e-9 && s.To.Y >= -1e-9, "stays in the first quadrant")
	}
	assert.Less(t, len(arc), 20, "angle limit is the looser one at this radius")

	w, h := it.Bounds()
	assert.InDelta(t, 10.0, w, 1e-9)
	assert.InDelta(t, 10.0, h, 1e-9)
}

func TestClockwiseArcGoesTheOtherWay(t *testing.T) {
	it := NewInterpreter()
	segs := convert(t, it, "G0 X10 Y0\nG2 X0 Y10 I-10 J0")

	// three quarters of the circle, through negative X and Y
	b := it.BoundingBox()
	assert.InDelta(t, -10.0, b.MinX, 0.05)
	assert.InDelta(t, -10.0, b.MinY, 0.05)
	assert.Equal(t, models.Point{X: 0, Y: 10}, segs[len(segs)-1].To)
}

func TestFullCircle(t *testing.T) {
	it := NewInterpreter()
	convert(t, it, "G0 X5 Y0\nG2 X5 Y0 I-5 J0")

	w, h := it.Bounds()
	assert.InDelta(t, 10.0, w, 0.05)
	assert.InDelta(t, 10.0, h, 0.05)
	assert.Equal(t, &models.Point{X: 5}, it.EndPoint())
}

func TestLargeArcUsesAngleLimit(t *testing.T) {
	it := NewInterpreter()
	segs := convert(t, it, "G0 X100 Y0\nG3 X-100 Y0 I-100 J0")

	// half circle: 180 degrees in chords of about 5 degrees
	assert.InDelta(t, 36, len(segs[1:]), 1)
}

func TestArcWithRadius(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		centerY float64
	}{
		{"clockwise minor", "G0 X0 Y0\nG2 X10 Y0 R5", 0},
		{"counter-clockwise minor", "G0 X0 Y0\nG3 X10 Y0 R5", 0},
		{"clockwise over the top", "G0 X0 Y0\nG2 X10 Y0 R10", -math.Sqrt(75)},
		{"major arc with negative radius", "G0 X0 Y0\nG2 X10 Y0 R-10", math.Sqrt(75)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewInterpreter()
			segs := convert(t, it, tt.src)
			for _, s := range segs[1:] {
				r := math.Hypot(s.To.X-5, s.To.Y-tt.centerY)
				assert.InDelta(t, math.Hypot(5, tt.centerY), r, 1e-6)
			}
			assert.Equal(t, models.Point{X: 10, Y: 0}, segs[len(segs)-1].To)
		})
	}
}

func TestClockwiseMinorArcBulgesUp(t *testing.T) {
	it := NewInterpreter()
	convert(t, it, "G0 X0 Y0\nG2 X10 Y0 R10")

	b := it.BoundingBox()
	assert.InDelta(t, 10-math.Sqrt(75), b.MaxY, 0.02)
	assert.InDelta(t, 0.0, b.MinY, 1e-9)
}

func TestErrorsCarryLineNumbers(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown G word", "G1 X1\nG99 X2", 11},
		{"fractional G word", "G38.2 X1", 10},
		{"malformed number", "G1 X1.2.3", 10},
		{"missing value", "G1 X", 10},
		{"stray character", "G1 X1 *5", 10},
		{"arc without centre", "G0 X1\nG1 X2\nG2 X3 Y3", 12},
		{"radius too small", "G2 X10 Y0 R1", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewInterpreter()
			_, err := it.Convert(strings.Split(tt.src, "\n"), 10)
			require.Error(t, err)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.line, gerr.Line)
		})
	}
}

func TestStateCarriesAcrossCallsUntilReset(t *testing.T) {
	it := NewInterpreter()
	convert(t, it, "G91\nG1 X5")

	segs, err := it.Convert([]string{"G1 X5"}, 3)
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 10}, segs[0].To, "relative mode persists")
	w, _ := it.Bounds()
	assert.Equal(t, 5.0, w)

	it.Reset()
	assert.Nil(t, it.StartPoint())
	assert.Nil(t, it.EndPoint())
	assert.True(t, it.BoundingBox().Empty)
	w, h := it.Bounds()
	assert.Equal(t, 0.0, w)
	assert.Equal(t, 0.0, h)
	assert.Equal(t, models.Point{}, it.Position())

	segs, err = it.Convert([]string{"G1 X5"}, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Point{X: 5}, segs[0].To, "absolute mode after reset")
}

func TestReturnedPointsAreCopies(t *testing.T) {
	it := NewInterpreter()
	convert(t, it, "G1 X1 Y1")

	p := it.StartPoint()
	p.X = 99
	assert.Equal(t, 1.0, it.StartPoint().X)
}
