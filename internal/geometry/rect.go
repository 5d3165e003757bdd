// Package geometry implements the rotation-aware box math and affine
// transforms used by the canvas mapper and the markup classifier.
package geometry

import (
	"math"

	"github.com/olos-console/backend/internal/models"
)

// Box is a rectangle whose top-left corner sits at (X, Y) and which is
// rotated about that corner by Rotation radians.
type Box struct {
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
}

// Corner rotates the point (pivotX+dx, pivotY+dy) about the pivot by angle
// radians.
func Corner(pivotX, pivotY, dx, dy, angle float64) models.Point {
	distance := math.Sqrt(dx*dx + dy*dy)

	angle += math.Atan2(dy, dx)

	return models.Point{
		X: pivotX + distance*math.Cos(angle),
		Y: pivotY + distance*math.Sin(angle),
	}
}

// ClientRect returns the axis-aligned bounding box of a rotated box.
func ClientRect(b Box) models.Rect {
	p1 := Corner(b.X, b.Y, 0, 0, b.Rotation)
	p2 := Corner(b.X, b.Y, b.Width, 0, b.Rotation)
	p3 := Corner(b.X, b.Y, b.Width, b.Height, b.Rotation)
	p4 := Corner(b.X, b.Y, 0, b.Height, b.Rotation)

	minX := math.Min(math.Min(p1.X, p2.X), math.Min(p3.X, p4.X))
	minY := math.Min(math.Min(p1.Y, p2.Y), math.Min(p3.Y, p4.Y))
	maxX := math.Max(math.Max(p1.X, p2.X), math.Max(p3.X, p4.X))
	maxY := math.Max(math.Max(p1.Y, p2.Y), math.Max(p3.Y, p4.Y))

	return models.Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Inside reports whether r lies entirely within [0,w] x [0,h].
func Inside(r models.Rect, w, h float64) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.Width <= w && r.Y+r.Height <= h
}

// ScaledSize returns the on-screen size of an object.
func ScaledSize(width, height, scaleX, scaleY float64) (float64, float64) {
	return width * scaleX, height * scaleY
}

// ComposeScale converts a scale factor expressed in one space into another
// by multiplying with the ratio between the spaces.
func ComposeScale(scale, ratio float64) float64 {
	return scale * ratio
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
