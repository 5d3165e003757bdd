package models

// Point is a 2-D coordinate.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageMetrics describes a visual object's position, size, scale, pivot
// offset and rotation (degrees) in one coordinate space.
type ImageMetrics struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
	OffsetX  float64 `json:"offsetX"`
	OffsetY  float64 `json:"offsetY"`
	Rotation float64 `json:"rotation"`
}

// ScaledSize returns width and height multiplied by their scale factors.
func (m ImageMetrics) ScaledSize() (float64, float64) {
	return m.Width * m.ScaleX, m.Height * m.ScaleY
}

// Placement keeps the canvas and platform projections of one object.
// Both are always produced together.
type Placement struct {
	Canvas   ImageMetrics `json:"canvas"`
	Platform ImageMetrics `json:"platform"`
}
