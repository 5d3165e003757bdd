// Package gcode interprets motion code into drawable line segments while
// tracking the bounding box of everything visited.
package gcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/olos-console/backend/internal/models"
)

const (
	mmPerInch = 25.4

	// arcs are flattened into chords no longer than either limit
	maxChordAngle  = 5 * math.Pi / 180
	maxChordLength = 0.5
)

// Error is a conversion failure on one source line.
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Rasterizer converts lines of motion code into segments.
type Rasterizer interface {
	Reset()
	Convert(lines []string, firstLine int) ([]models.Segment, error)
	BoundingBox() models.Bounds
	StartPoint() *models.Point
	EndPoint() *models.Point
}

// Interpreter is a Rasterizer for the G-code subset used by laser cutters,
// vinyl cutters and routers. It is not safe for concurrent use.
type Interpreter struct {
	pos      models.Point
	relative bool
	scale    float64
	motion   int

	bounds models.Bounds
	start  *models.Point
	end    *models.Point
}

var _ Rasterizer = (*Interpreter)(nil)

// NewInterpreter creates an interpreter in its reset state.
func NewInterpreter() *Interpreter {
	it := &Interpreter{}
	it.Reset()
	return it
}

// Reset returns to the origin in absolute millimetre mode and clears the
// bounding box and start/end points.
func (it *Interpreter) Reset() {
	it.pos = models.Point{}
	it.relative = false
	it.scale = 1
	it.motion = 0
	it.bounds = models.Bounds{Empty: true}
	it.start = nil
	it.end = nil
}

// BoundingBox returns the cumulative bounding box since the last Reset.
func (it *Interpreter) BoundingBox() models.Bounds { return it.bounds }

// Bounds returns the cumulative width and height.
func (it *Interpreter) Bounds() (float64, float64) {
	return it.bounds.Width(), it.bounds.Height()
}

// StartPoint returns the first point reached, or nil.
func (it *Interpreter) StartPoint() *models.Point { return clonePoint(it.start) }

// EndPoint returns the last point reached, or nil.
func (it *Interpreter) EndPoint() *models.Point { return clonePoint(it.end) }

// Position returns the current tool position.
func (it *Interpreter) Position() models.Point { return it.pos }

func clonePoint(p *models.Point) *models.Point {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Convert interprets lines, numbering them from firstLine, and returns the
// segments they draw. State carries over between calls.
func (it *Interpreter) Convert(lines []string, firstLine int) ([]models.Segment, error) {
	var segs []models.Segment
	for i, raw := range lines {
		lineNo := firstLine + i
		words, err := parseWords(raw)
		if err != nil {
			return segs, &Error{Line: lineNo, Msg: err.Error()}
		}
		if len(words) == 0 {
			continue
		}
		segs, err = it.execute(words, lineNo, segs)
		if err != nil {
			return segs, &Error{Line: lineNo, Msg: err.Error()}
		}
	}
	return segs, nil
}

type block struct {
	x, y, i, j, r          float64
	hasX, hasY, hasI, hasJ bool
	hasR                   bool
	motion                 int // -1 when the block has no motion word
	home                   bool
}

func (b *block) hasAxis() bool   { return b.hasX || b.hasY }
func (b *block) hasCenter() bool { return b.hasI || b.hasJ }

func (it *Interpreter) execute(words []word, lineNo int, segs []models.Segment) ([]models.Segment, error) {
	b := block{motion: -1}

	for _, w := range words {
		switch w.letter {
		case 'G':
			code := int(w.value)
			if float64(code) != w.value {
				return segs, fmt.Errorf("unsupported G word G%g", w.value)
			}
			switch code {
			case 0, 1, 2, 3:
				b.motion = code
			case 20:
				it.scale = mmPerInch
			case 21:
				it.scale = 1
			case 90:
				it.relative = false
			case 91:
				it.relative = true
			case 28:
				b.home = true
			case 4, 17:
				// dwell and XY plane select do not move the tool
			default:
				return segs, fmt.Errorf("unsupported G word G%d", code)
			}
		case 'X':
			b.x, b.hasX = w.value, true
		case 'Y':
			b.y, b.hasY = w.value, true
		case 'I':
			b.i, b.hasI = w.value, true
		case 'J':
			b.j, b.hasJ = w.value, true
		case 'R':
			b.r, b.hasR = w.value, true
		}
	}

	if b.home {
		if b.hasAxis() {
			via := it.target(&b)
			segs = it.lineTo(via, true, lineNo, segs)
		}
		return it.lineTo(models.Point{}, true, lineNo, segs), nil
	}

	if b.motion >= 0 {
		it.motion = b.motion
	}

	if it.motion < 2 {
		if !b.hasAxis() {
			return segs, nil
		}
		return it.lineTo(it.target(&b), it.motion == 0, lineNo, segs), nil
	}
	if !b.hasAxis() && !b.hasCenter() {
		return segs, nil
	}
	return it.arcTo(it.target(&b), &b, lineNo, segs)
}

func (it *Interpreter) target(b *block) models.Point {
	t := it.pos
	if it.relative {
		if b.hasX {
			t.X += b.x * it.scale
		}
		if b.hasY {
			t.Y += b.y * it.scale
		}
		return t
	}
	if b.hasX {
		t.X = b.x * it.scale
	}
	if b.hasY {
		t.Y = b.y * it.scale
	}
	return t
}

func (it *Interpreter) visit(p models.Point) {
	if it.bounds.Empty {
		it.bounds = models.Bounds{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
	} else {
		it.bounds.MinX = math.Min(it.bounds.MinX, p.X)
		it.bounds.MinY = math.Min(it.bounds.MinY, p.Y)
		it.bounds.MaxX = math.Max(it.bounds.MaxX, p.X)
		it.bounds.MaxY = math.Max(it.bounds.MaxY, p.Y)
	}
	if it.start == nil {
		s := p
		it.start = &s
	}
	e := p
	it.end = &e
}

func (it *Interpreter) lineTo(p models.Point, rapid bool, lineNo int, segs []models.Segment) []models.Segment {
	segs = append(segs, models.Segment{From: it.pos, To: p, Rapid: rapid, Line: lineNo})
	it.pos = p
	it.visit(p)
	return segs
}

func (it *Interpreter) arcTo(target models.Point, b *block, lineNo int, segs []models.Segment) ([]models.Segment, error) {
	clockwise := it.motion == 2
	from := it.pos

	var center models.Point
	switch {
	case b.hasCenter():
		center = models.Point{X: from.X + b.i*it.scale, Y: from.Y + b.j*it.scale}
	case b.hasR:
		c, err := radiusCenter(from, target, b.r*it.scale, clockwise)
		if err != nil {
			return segs, err
		}
		center = c
	default:
		return segs, fmt.Errorf("arc without centre: need I/J or R")
	}

	radius := math.Hypot(from.X-center.X, from.Y-center.Y)
	a0 := math.Atan2(from.Y-center.Y, from.X-center.X)
	a1 := math.Atan2(target.Y-center.Y, target.X-center.X)

	sweep := a1 - a0
	if clockwise {
		if sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else if sweep <= 0 {
		sweep += 2 * math.Pi
	}

	n := chordCount(sweep, radius)
	for k := 1; k <= n; k++ {
		p := target
		if k < n {
			a := a0 + sweep*float64(k)/float64(n)
			p = models.Point{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
		}
		segs = append(segs, models.Segment{From: it.pos, To: p, Line: lineNo})
		it.pos = p
		it.visit(p)
	}
	return segs, nil
}

func chordCount(sweep, radius float64) int {
	byAngle := math.Abs(sweep) / maxChordAngle
	byLength := math.Abs(sweep) * radius / maxChordLength
	n := int(math.Ceil(math.Min(byAngle, byLength)))
	if n < 1 {
		n = 1
	}
	return n
}

// radiusCenter finds the centre of an R-format arc. A negative radius
// selects the arc longer than a half circle.
func radiusCenter(from, to models.Point, r float64, clockwise bool) (models.Point, error) {
	dx, dy := to.X-from.X, to.Y-from.Y
	d := math.Hypot(dx, dy)
	if d == 0 {
		return models.Point{}, fmt.Errorf("R arc with identical start and end point")
	}

	h2 := r*r - d*d/4
	if h2 < 0 {
		if h2 < -1e-9*r*r {
			return models.Point{}, fmt.Errorf("R arc radius %g too small for chord %g", math.Abs(r), d)
		}
		h2 = 0
	}
	h := math.Sqrt(h2)

	// left normal of the chord
	nx, ny := -dy/d, dx/d
	side := 1.0
	if clockwise {
		side = -1
	}
	if r < 0 {
		side = -side
	}
	return models.Point{
		X: from.X + dx/2 + side*h*nx,
		Y: from.Y + dy/2 + side*h*ny,
	}, nil
}

type word struct {
	letter byte
	value  float64
}

// parseWords splits a line into letter/number words, dropping comments.
func parseWords(line string) ([]word, error) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '%' {
		return nil, nil
	}

	var words []word
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
			continue
		case c == '(':
			end := strings.IndexByte(line[i:], ')')
			if end < 0 {
				return words, nil
			}
			i += end + 1
			continue
		}

		letter := upper(c)
		if letter < 'A' || letter > 'Z' {
			return nil, fmt.Errorf("unexpected character %q", c)
		}
		i++
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}

		start := i
		for i < len(line) && isNumberChar(line[i], i == start) {
			i++
		}
		if start == i {
			return nil, fmt.Errorf("word %c has no value", letter)
		}
		v, err := strconv.ParseFloat(line[start:i], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q after %c", line[start:i], letter)
		}
		words = append(words, word{letter: letter, value: v})
	}
	return words, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func isNumberChar(c byte, first bool) bool {
	if c >= '0' && c <= '9' || c == '.' {
		return true
	}
	return first && (c == '-' || c == '+')
}
