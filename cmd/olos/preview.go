package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/config"
	"github.com/olos-console/backend/internal/models"
	"github.com/olos-console/backend/internal/preview"
)

// errOverflow reports a drawing that does not fit the platform. The
// command exits non-zero for it, but it is not a parse failure.
var errOverflow = errors.New("drawing exceeds the machine platform")

func runPreview(cfg *config.MachineConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	dump := fs.String("msgpack", "", "write every event as length-prefixed MessagePack to this file")
	batch := fs.Int("batch", 0, "lines per batch (default from config)")
	showSegments := fs.Bool("segments", false, "print every segment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one motion code file, got %d arguments", fs.NArg())
	}

	doc, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := preview.OptionsFromConfig(cfg)
	if *batch > 0 {
		opts.BatchSize = *batch
	}

	var enc *preview.StreamEncoder
	if *dump != "" {
		f, err := os.Create(*dump)
		if err != nil {
			return err
		}
		defer f.Close()
		enc = preview.NewStreamEncoder(f)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result error
	segments := 0
	for ev := range preview.NewParser(nil).Stream(ctx, string(doc), opts) {
		if enc != nil {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}

		switch ev.Kind {
		case models.EventBatch:
			segments += len(ev.Segments)
			fmt.Fprintf(out, "batch %d: %d segments\n", ev.Index, len(ev.Segments))
			if *showSegments {
				printSegments(out, ev.Segments)
			}
			if ev.Overflowed {
				fmt.Fprintf(out, "result: does not fit the %gx%g platform\n", opts.PlatformWidth, opts.PlatformHeight)
				result = errOverflow
			}
		case models.EventComplete:
			fmt.Fprintf(out, "result: fits, %d segments, %.3f x %.3f\n", segments, ev.Bounds.Width(), ev.Bounds.Height())
			if ev.StartPoint != nil && ev.EndPoint != nil {
				fmt.Fprintf(out, "start (%.3f, %.3f) end (%.3f, %.3f)\n",
					ev.StartPoint.X, ev.StartPoint.Y, ev.EndPoint.X, ev.EndPoint.Y)
			}
		case models.EventFailed:
			var ae *apperr.Error
			if errors.As(ev.Err, &ae) && ae.Line > 0 {
				fmt.Fprintf(out, "result: failed at line %d\n", ae.Line)
			}
			result = ev.Err
		}
	}
	if err := ctx.Err(); err != nil && result == nil {
		return err
	}
	if enc != nil {
		fmt.Fprintf(out, "wrote %d events to %s\n", enc.Count(), *dump)
	}
	return result
}

func printSegments(w io.Writer, segs []models.Segment) {
	for _, s := range segs {
		kind := "draw"
		if s.Rapid {
			kind = "move"
		}
		fmt.Fprintf(w, "  %5d %s (%.3f, %.3f) -> (%.3f, %.3f)\n", s.Line, kind, s.From.X, s.From.Y, s.To.X, s.To.Y)
	}
}
