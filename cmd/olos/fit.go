package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/olos-console/backend/internal/canvas"
	"github.com/olos-console/backend/internal/config"
	"github.com/olos-console/backend/internal/workspace"
)

func runFit(cfg *config.MachineConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fit", flag.ContinueOnError)
	duplicates := fs.Int("duplicate", 0, "also place this many duplicates of the image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("expected natural width and height, got %d arguments", fs.NArg())
	}
	w, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("bad width: %w", err)
	}
	h, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil {
		return fmt.Errorf("bad height: %w", err)
	}

	mapper, err := canvas.New(cfg.Stage, cfg.PlatformDimensions())
	if err != nil {
		return err
	}
	ws := workspace.New(mapper)

	img, err := ws.Add("image", w, h, nil)
	if err != nil {
		return err
	}
	for i := 0; i < *duplicates; i++ {
		if img, err = ws.Duplicate(img.ID); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for _, img := range ws.List() {
		if err := enc.Encode(img.Placement); err != nil {
			return err
		}
	}
	return nil
}
