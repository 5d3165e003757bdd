// Package canvas maps objects between the on-screen stage and the machine
// platform.
//
// Canvas space is in stage pixels with Y growing downward and the object
// position at its centre (the pivot set by the offsets). Platform space is in
// machine units with Y growing upward; platform metrics place the object by
// its bottom-left corner.
package canvas

import (
	"math"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/geometry"
	"github.com/olos-console/backend/internal/models"
)

// DefaultCanvasSize is used for an axis whose natural size is unknown.
var DefaultCanvasSize = models.Size{Width: 500, Height: 500}

// DuplicateShift is how far a duplicate moves along X, in platform units.
const DuplicateShift = 10.0

// Mapper converts between stage and platform coordinates.
type Mapper struct {
	Stage    models.Size
	Platform models.Size
}

// New creates a Mapper. Every dimension must be positive.
func New(stage, platform models.Size) (*Mapper, error) {
	if stage.Width <= 0 || stage.Height <= 0 {
		return nil, apperr.NewPreconditionViolation("stage dimensions must be positive, got %gx%g", stage.Width, stage.Height)
	}
	if platform.Width <= 0 || platform.Height <= 0 {
		return nil, apperr.NewPreconditionViolation("platform dimensions must be positive, got %gx%g", platform.Width, platform.Height)
	}
	return &Mapper{Stage: stage, Platform: platform}, nil
}

func (m *Mapper) ratioX() float64 { return m.Platform.Width / m.Stage.Width }
func (m *Mapper) ratioY() float64 { return m.Platform.Height / m.Stage.Height }

// FitImageToStage computes the initial canvas metrics of an image. An image
// larger than the platform on either axis is scaled down isotropically to
// fit the stage; otherwise each axis uses the stage/platform ratio so the
// image keeps its physical size.
func (m *Mapper) FitImageToStage(naturalW, naturalH float64) models.ImageMetrics {
	scaleX := m.Stage.Width / m.Platform.Width
	scaleY := m.Stage.Height / m.Platform.Height
	oversized := false

	if naturalW > m.Platform.Width {
		scaleX = m.Stage.Width / naturalW
		oversized = true
	}
	if naturalH > m.Platform.Height {
		scaleY = m.Stage.Height / naturalH
		oversized = true
	}
	if oversized {
		s := math.Min(scaleX, scaleY)
		scaleX, scaleY = s, s
	}

	out := models.ImageMetrics{
		Width:   naturalW,
		Height:  naturalH,
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		X:       DefaultCanvasSize.Width / 2,
		Y:       DefaultCanvasSize.Height / 2,
		OffsetX: DefaultCanvasSize.Width / 2,
		OffsetY: DefaultCanvasSize.Height / 2,
	}
	if naturalW > 0 {
		out.X = naturalW * scaleX / 2
		out.OffsetX = naturalW / 2
	}
	if naturalH > 0 {
		out.Y = naturalH * scaleY / 2
		out.OffsetY = naturalH / 2
	}
	return out
}

// Fit is FitImageToStage followed by SyncFromCanvas.
func (m *Mapper) Fit(naturalW, naturalH float64) models.Placement {
	return m.SyncFromCanvas(m.FitImageToStage(naturalW, naturalH))
}

// SyncFromCanvas derives both projections from raw on-screen metrics.
func (m *Mapper) SyncFromCanvas(raw models.ImageMetrics) models.Placement {
	rx, ry := m.ratioX(), m.ratioY()
	sw, sh := raw.ScaledSize()

	canvas := raw
	canvas.Rotation = geometry.NormalizeDegrees(raw.Rotation)

	platform := models.ImageMetrics{
		X:        (raw.X - sw/2) * rx,
		Y:        (m.Stage.Height - raw.Y - sh/2) * ry,
		Width:    raw.Width,
		Height:   raw.Height,
		ScaleX:   geometry.ComposeScale(raw.ScaleX, rx),
		ScaleY:   geometry.ComposeScale(raw.ScaleY, ry),
		OffsetX:  raw.OffsetX,
		OffsetY:  raw.OffsetY,
		Rotation: geometry.NormalizeDegrees(-raw.Rotation),
	}

	return models.Placement{Canvas: canvas, Platform: platform}
}

// CanvasFromPlatform inverts SyncFromCanvas.
func (m *Mapper) CanvasFromPlatform(p models.ImageMetrics) models.ImageMetrics {
	rx, ry := m.ratioX(), m.ratioY()

	out := p
	out.ScaleX = p.ScaleX / rx
	out.ScaleY = p.ScaleY / ry
	sw, sh := out.ScaledSize()
	out.X = p.X/rx + sw/2
	out.Y = m.Stage.Height - p.Y/ry - sh/2
	out.Rotation = geometry.NormalizeDegrees(-p.Rotation)
	return out
}

// PlatformCenter returns raw metrics with position and scale in platform
// units and the position left at the object's centre. Y is not flipped.
func (m *Mapper) PlatformCenter(raw models.ImageMetrics) models.ImageMetrics {
	rx, ry := m.ratioX(), m.ratioY()
	out := raw
	out.X = raw.X * rx
	out.Y = raw.Y * ry
	out.ScaleX = geometry.ComposeScale(raw.ScaleX, rx)
	out.ScaleY = geometry.ComposeScale(raw.ScaleY, ry)
	return out
}

// CanvasFromCenter inverts PlatformCenter.
func (m *Mapper) CanvasFromCenter(c models.ImageMetrics) models.ImageMetrics {
	rx, ry := m.ratioX(), m.ratioY()
	out := c
	out.X = c.X / rx
	out.Y = c.Y / ry
	out.ScaleX = c.ScaleX / rx
	out.ScaleY = c.ScaleY / ry
	return out
}

// ClientRect returns the stage-space bounding box of raw canvas metrics,
// accounting for scale, centre pivot and rotation.
func (m *Mapper) ClientRect(raw models.ImageMetrics) models.Rect {
	sw, sh := raw.ScaledSize()
	rad := geometry.Radians(raw.Rotation)
	topLeft := geometry.Corner(raw.X, raw.Y, -raw.OffsetX*raw.ScaleX, -raw.OffsetY*raw.ScaleY, rad)
	return geometry.ClientRect(geometry.Box{
		X:        topLeft.X,
		Y:        topLeft.Y,
		Width:    sw,
		Height:   sh,
		Rotation: rad,
	})
}

// WithinStage reports whether a rotated box stays fully on the stage.
func (m *Mapper) WithinStage(box geometry.Box) bool {
	return geometry.Inside(geometry.ClientRect(box), m.Stage.Width, m.Stage.Height)
}

// BoundBox is the resize/rotate guard: it returns next unless that would
// leave the stage, in which case prev is kept.
func (m *Mapper) BoundBox(prev, next geometry.Box) geometry.Box {
	if !m.WithinStage(next) {
		return prev
	}
	return next
}

// ClampToStageBounds moves an object's anchor so its client rect lies on the
// stage. Each violated edge is corrected independently; right and bottom are
// checked after left and top.
func (m *Mapper) ClampToStageBounds(rect models.Rect, abs models.Point) models.Point {
	offsetX := rect.X - abs.X
	offsetY := rect.Y - abs.Y

	out := abs
	if rect.X < 0 {
		out.X = -offsetX
	}
	if rect.Y < 0 {
		out.Y = -offsetY
	}
	if rect.X+rect.Width > m.Stage.Width {
		out.X = m.Stage.Width - rect.Width - offsetX
	}
	if rect.Y+rect.Height > m.Stage.Height {
		out.Y = m.Stage.Height - rect.Height - offsetY
	}
	return out
}

// Clamp keeps raw canvas metrics on the stage and re-syncs the projections.
func (m *Mapper) Clamp(raw models.ImageMetrics) models.Placement {
	pos := m.ClampToStageBounds(m.ClientRect(raw), models.Point{X: raw.X, Y: raw.Y})
	raw.X, raw.Y = pos.X, pos.Y
	return m.SyncFromCanvas(raw)
}

// PlaceDuplicate finds where a copy of src goes: 10 units to the right, else
// the start of the next row, else the platform origin. The search runs on
// the centre-based platform metrics of src.
func (m *Mapper) PlaceDuplicate(src models.Placement) models.Placement {
	c := m.PlatformCenter(src.Canvas)
	sw, sh := c.ScaledSize()

	switch {
	case sw/2 <= c.X+DuplicateShift && c.X+DuplicateShift <= m.Platform.Width-sw/2:
		c.X += DuplicateShift
	case sh/2 <= c.Y+sh && c.Y+sh <= m.Platform.Height-sh/2:
		c.X = sw / 2
		c.Y += sh
	default:
		c.X = sw / 2
		c.Y = sh / 2
	}

	return m.Clamp(m.CanvasFromCenter(c))
}
