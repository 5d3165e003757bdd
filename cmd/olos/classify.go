package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olos-console/backend/internal/config"
	"github.com/olos-console/backend/internal/markup"
	"github.com/olos-console/backend/internal/models"
	"github.com/olos-console/backend/internal/profile"
)

// listFlag collects a repeated string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ";") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func runClassify(_ *config.MachineConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	by := fs.String("by", string(profile.FilterShape), "bucket filter: shape or color")
	output := fs.String("o", "", "write the elements that received a profile to this SVG file")
	var cut, mark, engrave listFlag
	fs.Var(&cut, "cut", "bucket to cut (repeatable)")
	fs.Var(&mark, "mark", "bucket to mark (repeatable)")
	fs.Var(&engrave, "engrave", "bucket to engrave (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected one SVG file, got %d arguments", fs.NArg())
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	root, err := markup.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	c, err := markup.Classify(root)
	if err != nil {
		return err
	}
	printClassification(out, c)

	table, err := profile.NewTable(c, profile.Filter(*by))
	if err != nil {
		return err
	}
	// later flags win when a bucket is named twice
	assignments := []struct {
		p   profile.Profile
		ids []string
	}{{profile.Cut, cut}, {profile.Mark, mark}, {profile.Engrave, engrave}}
	for _, a := range assignments {
		for _, id := range a.ids {
			if err := table.AssignBucket(c, id, a.p); err != nil {
				return err
			}
		}
	}

	job := table.Plan()
	if job.Empty() {
		return nil
	}
	fmt.Fprintf(out, "job: cut %v, mark %v, engrave %v\n", elementIDs(job.Cut), elementIDs(job.Mark), elementIDs(job.Engrave))

	if *output == "" {
		return nil
	}
	return writeJob(*output, root, c, job)
}

func printClassification(w io.Writer, c *models.Classification) {
	fmt.Fprintf(w, "%d drawable elements\n", len(c.Elements))
	fmt.Fprintln(w, "shapes:")
	for _, b := range c.Shapes {
		fmt.Fprintf(w, "  %-20s %v\n", b.Shape, elementIDs(b.Elements))
	}
	fmt.Fprintln(w, "colors:")
	for _, b := range c.Colors {
		fmt.Fprintf(w, "  %-20s %v\n", b.Color, elementIDs(b.Elements))
	}
}

func writeJob(path string, root *models.MarkupNode, c *models.Classification, job profile.Job) error {
	keep := make(map[*models.MarkupNode]bool)
	for _, els := range [][]*models.ClassifiedElement{job.Cut, job.Mark, job.Engrave} {
		for _, el := range els {
			keep[el.Node] = true
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := markup.Serialize(f, root, c.RootAttributes, func(n *models.MarkupNode) bool { return keep[n] }); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func elementIDs(els []*models.ClassifiedElement) []int {
	ids := make([]int, len(els))
	for i, el := range els {
		ids[i] = el.ID
	}
	return ids
}
