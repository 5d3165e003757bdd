// Package preview streams motion code through a rasterizer in batches and
// reports, batch by batch, whether the drawing still fits the machine
// platform.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/config"
	"github.com/olos-console/backend/internal/gcode"
	"github.com/olos-console/backend/internal/logging"
	"github.com/olos-console/backend/internal/models"
)

// Options control one parse run.
type Options struct {
	PlatformWidth  float64
	PlatformHeight float64
	// IgnoreYEnvelope lets geometry exceed the platform height, as on
	// roll-fed machines.
	IgnoreYEnvelope bool
	IgnoreXEnvelope bool
	BatchSize       int
}

// OptionsFromConfig derives run options from the machine configuration.
func OptionsFromConfig(cfg *config.MachineConfig) Options {
	dims := cfg.PlatformDimensions()
	batch := cfg.Preview.BatchSize
	if batch <= 0 {
		batch = config.DefaultBatchSize
	}
	return Options{
		PlatformWidth:   dims.Width,
		PlatformHeight:  dims.Height,
		IgnoreYEnvelope: cfg.IgnoresYEnvelope(),
		IgnoreXEnvelope: cfg.IgnoresXEnvelope(),
		BatchSize:       batch,
	}
}

func (o Options) validate() error {
	if o.PlatformWidth <= 0 || o.PlatformHeight <= 0 {
		return apperr.NewPreconditionViolation("platform dimensions must be positive, got %gx%g", o.PlatformWidth, o.PlatformHeight)
	}
	if o.BatchSize <= 0 {
		return apperr.NewPreconditionViolation("batch size must be positive, got %d", o.BatchSize)
	}
	return nil
}

// exceeds reports whether cumulative bounds of w x h break the envelope.
func (o Options) exceeds(w, h float64) bool {
	if w > o.PlatformWidth && !o.IgnoreXEnvelope {
		return true
	}
	return h > o.PlatformHeight && !o.IgnoreYEnvelope
}

// Parser runs motion code through a rasterizer. Runs on the same Parser are
// serialized because the rasterizer is stateful.
type Parser struct {
	mu   sync.Mutex
	rast gcode.Rasterizer
	log  *slog.Logger
}

// NewParser creates a parser around r. A nil r uses a fresh gcode
// interpreter.
func NewParser(r gcode.Rasterizer) *Parser {
	if r == nil {
		r = gcode.NewInterpreter()
	}
	return &Parser{rast: r, log: logging.For("preview")}
}

// Stream runs the parse on its own goroutine. The channel closes after the
// last event or once ctx is cancelled.
func (p *Parser) Stream(ctx context.Context, doc string, opts Options) <-chan models.ParseEvent {
	ch := make(chan models.ParseEvent)
	go func() {
		defer close(ch)
		p.Run(ctx, doc, opts, func(ev models.ParseEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return ch
}

// Run parses doc synchronously, handing each event to emit. It stops early
// when emit returns false or ctx is cancelled.
//
// Each batch yields one Batch event. The first batch whose cumulative bounds
// exceed the platform yields a Batch event with Overflowed and Done set, and
// nothing follows it. A run that fits ends with a Complete event; a
// conversion failure ends with a single Failed event.
func (p *Parser) Run(ctx context.Context, doc string, opts Options, emit func(models.ParseEvent) bool) {
	if err := opts.validate(); err != nil {
		emit(models.ParseEvent{Kind: models.EventFailed, Err: err})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.rast.Reset()
	lines := splitLines(doc)
	p.log.Debug("parse started", "lines", len(lines), "batchSize", opts.BatchSize)

	index := 0
	for start := 0; start < len(lines); start += opts.BatchSize {
		if ctx.Err() != nil {
			p.log.Debug("parse cancelled", "batch", index)
			return
		}

		end := min(start+opts.BatchSize, len(lines))
		segs, err := p.convert(lines[start:end], start+1)
		if err != nil {
			p.log.Warn("parse failed", "batch", index, "error", err)
			emit(models.ParseEvent{Kind: models.EventFailed, Index: index, Err: err})
			return
		}

		b := p.rast.BoundingBox()
		w, h := b.Width(), b.Height()
		if opts.exceeds(w, h) {
			p.log.Info("drawing exceeds platform", "batch", index, "width", w, "height", h)
			emit(models.ParseEvent{
				Kind:       models.EventBatch,
				Index:      index,
				Segments:   segs,
				Overflowed: true,
				Done:       true,
			})
			return
		}

		if !emit(models.ParseEvent{Kind: models.EventBatch, Index: index, Segments: segs}) {
			return
		}
		index++
	}

	bounds := p.rast.BoundingBox()
	p.log.Debug("parse complete", "batches", index, "width", bounds.Width(), "height", bounds.Height())
	emit(models.ParseEvent{
		Kind:       models.EventComplete,
		Index:      index,
		Done:       true,
		StartPoint: p.rast.StartPoint(),
		EndPoint:   p.rast.EndPoint(),
		Bounds:     bounds,
	})
}

// convert runs one batch, turning rasterizer errors and panics into stream
// failures.
func (p *Parser) convert(lines []string, firstLine int) (segs []models.Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.WithLine(apperr.NewStreamFailure(fmt.Sprintf("rasterizer panicked: %v", r), nil), firstLine)
		}
	}()

	segs, err = p.rast.Convert(lines, firstLine)
	if err != nil {
		line := firstLine
		var gerr *gcode.Error
		if errors.As(err, &gerr) {
			line = gerr.Line
		}
		return nil, apperr.WithLine(apperr.NewStreamFailure("motion code conversion failed", err), line)
	}
	return segs, nil
}

func splitLines(doc string) []string {
	lines := strings.Split(doc, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
