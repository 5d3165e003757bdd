package geometry

import (
	"math"
	"testing"

	"github.com/olos-console/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestCornerRotatesAboutPivot(t *testing.T) {
	p := Corner(10, 10, 5, 0, math.Pi/2)
	assert.InDelta(t, 10.0, p.X, eps)
	assert.InDelta(t, 15.0, p.Y, eps)

	p = Corner(0, 0, 0, 0, 1.3)
	assert.InDelta(t, 0.0, p.X, eps)
	assert.InDelta(t, 0.0, p.Y, eps)
}

func TestClientRect(t *testing.T) {
	t.Run("unrotated box is its own rect", func(t *testing.T) {
		r := ClientRect(Box{X: 5, Y: 6, Width: 20, Height: 10})
		assert.InDelta(t, 5.0, r.X, eps)
		assert.InDelta(t, 6.0, r.Y, eps)
		assert.InDelta(t, 20.0, r.Width, eps)
		assert.InDelta(t, 10.0, r.Height, eps)
	})

	t.Run("quarter turn swaps extents", func(t *testing.T) {
		r := ClientRect(Box{X: 0, Y: 0, Width: 20, Height: 10, Rotation: math.Pi / 2})
		assert.InDelta(t, -10.0, r.X, eps)
		assert.InDelta(t, 0.0, r.Y, eps)
		assert.InDelta(t, 10.0, r.Width, eps)
		assert.InDelta(t, 20.0, r.Height, eps)
	})

	t.Run("half turn mirrors about pivot", func(t *testing.T) {
		r := ClientRect(Box{X: 50, Y: 50, Width: 10, Height: 10, Rotation: math.Pi})
		assert.InDelta(t, 40.0, r.X, eps)
		assert.InDelta(t, 40.0, r.Y, eps)
	})
}

func TestInside(t *testing.T) {
	assert.True(t, Inside(models.Rect{X: 0, Y: 0, Width: 10, Height: 10}, 10, 10))
	assert.False(t, Inside(models.Rect{X: -1, Y: 0, Width: 10, Height: 10}, 100, 100))
	assert.False(t, Inside(models.Rect{X: 95, Y: 0, Width: 10, Height: 10}, 100, 100))
}

func TestNormalizeDegrees(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeDegrees(360))
	assert.Equal(t, 330.0, NormalizeDegrees(-30))
	assert.Equal(t, 30.0, NormalizeDegrees(390))
}

func TestParseTransform(t *testing.T) {
	tests := []struct {
		name string
		in   string
		pt   models.Point
		want models.Point
	}{
		{"empty", "", models.Point{X: 3, Y: 4}, models.Point{X: 3, Y: 4}},
		{"translate", "translate(10, 20)", models.Point{X: 1, Y: 1}, models.Point{X: 11, Y: 21}},
		{"translate x only", "translate(7)", models.Point{X: 1, Y: 1}, models.Point{X: 8, Y: 1}},
		{"uniform scale", "scale(2)", models.Point{X: 3, Y: 4}, models.Point{X: 6, Y: 8}},
		{"rotate about origin", "rotate(90)", models.Point{X: 1, Y: 0}, models.Point{X: 0, Y: 1}},
		{"rotate about centre", "rotate(180 5 5)", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 10}},
		{"matrix", "matrix(1 0 0 1 4 5)", models.Point{X: 1, Y: 1}, models.Point{X: 5, Y: 6}},
		{"list applies rightmost first", "translate(10,0) scale(2)", models.Point{X: 1, Y: 1}, models.Point{X: 12, Y: 2}},
		{"comma separated list", "scale(2),translate(10,0)", models.Point{X: 1, Y: 1}, models.Point{X: 22, Y: 2}},
		{"packed negative args", "translate(10-5)", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: -5}},
		{"exponent", "translate(1e1 2E-1)", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0.2}},
		{"skewX", "skewX(45)", models.Point{X: 0, Y: 1}, models.Point{X: 1, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseTransform(tt.in)
			require.NoError(t, err)
			got := Apply(m, tt.pt)
			assert.InDelta(t, tt.want.X, got.X, eps)
			assert.InDelta(t, tt.want.Y, got.Y, eps)
		})
	}
}

func TestParseTransformErrors(t *testing.T) {
	for _, in := range []string{
		"translate(1,2,3)",
		"matrix(1 2 3)",
		"spin(30)",
		"translate 10",
		"scale(abc)",
		"rotate(10",
		"(10)",
	} {
		_, err := ParseTransform(in)
		assert.Error(t, err, in)
	}
}

func TestComposeTransformAttr(t *testing.T) {
	assert.Equal(t, "", ComposeTransformAttr("", ""))
	assert.Equal(t, "scale(2)", ComposeTransformAttr("", "scale(2)"))
	assert.Equal(t, "translate(1,1)", ComposeTransformAttr(" translate(1,1) ", ""))
	assert.Equal(t, "translate(1,1) scale(2)", ComposeTransformAttr("translate(1,1)", "scale(2)"))

	// the parent wraps the child: child scales first, parent translates after
	m, err := ParseTransform(ComposeTransformAttr("translate(10,0)", "scale(2)"))
	require.NoError(t, err)
	p := Apply(m, models.Point{X: 1, Y: 1})
	assert.InDelta(t, 12.0, p.X, eps)
	assert.InDelta(t, 2.0, p.Y, eps)
}

func TestMulIdentity(t *testing.T) {
	m, err := ParseTransform("rotate(30) translate(4 5)")
	require.NoError(t, err)
	assert.Equal(t, m, Mul(Identity, m))
	assert.Equal(t, m, Mul(m, Identity))
}
