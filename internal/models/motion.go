package models

import "time"

// Segment is one drawable straight line produced from motion code.
type Segment struct {
	From  Point `json:"from" msgpack:"from"`
	To    Point `json:"to" msgpack:"to"`
	Rapid bool  `json:"rapid" msgpack:"rapid"` // travel move, tool off
	Line  int   `json:"line" msgpack:"line"`   // 1-based source line
}

// Bounds is the cumulative bounding box of the geometry seen so far.
type Bounds struct {
	MinX  float64 `json:"minX" msgpack:"minX"`
	MinY  float64 `json:"minY" msgpack:"minY"`
	MaxX  float64 `json:"maxX" msgpack:"maxX"`
	MaxY  float64 `json:"maxY" msgpack:"maxY"`
	Empty bool    `json:"empty" msgpack:"empty"`
}

// Width returns MaxX-MinX, or 0 for an empty box.
func (b Bounds) Width() float64 {
	if b.Empty {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns MaxY-MinY, or 0 for an empty box.
func (b Bounds) Height() float64 {
	if b.Empty {
		return 0
	}
	return b.MaxY - b.MinY
}

// EventKind discriminates ParseEvent payloads.
type EventKind string

const (
	EventBatch    EventKind = "batch"
	EventComplete EventKind = "complete"
	EventFailed   EventKind = "failed"
)

// ParseEvent is one message of a motion-stream parse run. Exactly one of
// the payload groups is meaningful, selected by Kind.
type ParseEvent struct {
	Kind EventKind `json:"kind"`

	// batch
	Index      int       `json:"index,omitempty"`
	Segments   []Segment `json:"linesToDraw,omitempty"`
	Overflowed bool      `json:"isBiggerThanPlatform"`
	Done       bool      `json:"done"`

	// complete
	StartPoint *Point `json:"startPoint,omitempty"`
	EndPoint   *Point `json:"endPoint,omitempty"`
	Bounds     Bounds `json:"bounds"`

	// failed
	Err error `json:"-"`
}

// RunStatus is the state of a background preview run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusOverflow RunStatus = "overflow"
	RunStatusError    RunStatus = "error"
)

// PreviewRun tracks one background motion-stream parse.
type PreviewRun struct {
	ID               string    `json:"id"`
	Status           RunStatus `json:"status"`
	BatchesProcessed int       `json:"batchesProcessed"`
	SegmentCount     int       `json:"segmentCount"`
	Overflowed       bool      `json:"overflowed"`
	StartPoint       *Point    `json:"startPoint,omitempty"`
	EndPoint         *Point    `json:"endPoint,omitempty"`
	Bounds           Bounds    `json:"bounds"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"startedAt"`
	ProcessingTimeMs int64     `json:"processingTimeMs,omitempty"`
}

// NewPreviewRun creates a PreviewRun in running status.
func NewPreviewRun(id string) *PreviewRun {
	return &PreviewRun{
		ID:        id,
		Status:    RunStatusRunning,
		Bounds:    Bounds{Empty: true},
		StartedAt: time.Now(),
	}
}

// Finished reports whether the run has reached a terminal status.
func (r *PreviewRun) Finished() bool {
	return r.Status != RunStatusRunning
}
