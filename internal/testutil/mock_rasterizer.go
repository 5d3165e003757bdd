// mock_rasterizer.go - Scripted rasterizer for preview tests
package testutil

import (
	"errors"
	"sync"

	"github.com/olos-console/backend/internal/gcode"
	"github.com/olos-console/backend/internal/models"
)

// ErrMockConvert is returned by MockRasterizer when FailOnCall is reached.
var ErrMockConvert = errors.New("mock rasterizer: conversion failed")

// MockRasterizer implements gcode.Rasterizer. Each Convert call emits one
// segment per line and grows the bounding box by Step.
type MockRasterizer struct {
	// Step is added to the bounding box size per converted line.
	Step models.Point
	// FailOnCall makes the n-th Convert call (1-based) fail. Zero never fails.
	FailOnCall int
	// PanicOnCall makes the n-th Convert call panic. Zero never panics.
	PanicOnCall int

	mu      sync.Mutex
	calls   int
	resets  int
	batches [][]string
	bounds  models.Bounds
	start   *models.Point
	end     *models.Point
}

var _ gcode.Rasterizer = (*MockRasterizer)(nil)

// NewMockRasterizer creates a rasterizer that grows by step per line.
func NewMockRasterizer(step models.Point) *MockRasterizer {
	m := &MockRasterizer{Step: step}
	m.bounds = models.Bounds{Empty: true}
	return m
}

func (m *MockRasterizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resets++
	m.calls = 0
	m.bounds = models.Bounds{Empty: true}
	m.start = nil
	m.end = nil
}

func (m *MockRasterizer) Convert(lines []string, firstLine int) ([]models.Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.batches = append(m.batches, append([]string(nil), lines...))
	if m.calls == m.PanicOnCall {
		panic("mock rasterizer: panic on call")
	}
	if m.calls == m.FailOnCall {
		return nil, &gcode.Error{Line: firstLine, Msg: ErrMockConvert.Error()}
	}

	var segs []models.Segment
	for i := range lines {
		from := models.Point{}
		if m.end != nil {
			from = *m.end
		}
		to := models.Point{X: from.X + m.Step.X, Y: from.Y + m.Step.Y}
		segs = append(segs, models.Segment{From: from, To: to, Line: firstLine + i})

		if m.bounds.Empty {
			m.bounds = models.Bounds{}
			s := from
			m.start = &s
		}
		m.bounds.MaxX = to.X
		m.bounds.MaxY = to.Y
		e := to
		m.end = &e
	}
	return segs, nil
}

func (m *MockRasterizer) BoundingBox() models.Bounds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *MockRasterizer) StartPoint() *models.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start == nil {
		return nil
	}
	p := *m.start
	return &p
}

func (m *MockRasterizer) EndPoint() *models.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.end == nil {
		return nil
	}
	p := *m.end
	return &p
}

// Calls returns the number of Convert calls since the last Reset.
func (m *MockRasterizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Resets returns how often Reset was called.
func (m *MockRasterizer) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Batches returns every batch passed to Convert.
func (m *MockRasterizer) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.batches))
	copy(out, m.batches)
	return out
}
