package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olos-console/backend/internal/config"
	"github.com/olos-console/backend/internal/logging"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const usage = `usage: olos [-config path] [-quiet] <command> [flags] <args>

commands:
  classify [-by shape|color] [-cut id] [-mark id] [-engrave id] [-o out.svg] <file.svg>
  preview  [-msgpack out.bin] [-batch n] [-segments] <file.gcode>
  fit      [-duplicate n] <naturalWidth> <naturalHeight>
`

type command func(cfg *config.MachineConfig, args []string, out io.Writer) error

var commands = map[string]command{
	"classify": runClassify,
	"preview":  runPreview,
	"fit":      runFit,
}

func main() {
	configPath := flag.String("config", "", "machine config file (default: config.yaml beside the executable)")
	quiet := flag.Bool("quiet", false, "suppress the startup banner")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		flag.Usage()
		os.Exit(2)
	}

	path := *configPath
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(filepath.Dir(exePath), "config.yaml")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logging.SetLogger(logging.New(os.Stderr, cfg.LogLevel))

	if !*quiet {
		printBanner(os.Stderr, path, cfg)
	}

	if err := cmd(cfg, flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
}

func printBanner(w io.Writer, configPath string, cfg *config.MachineConfig) {
	p := cfg.PlatformDimensions()
	platform := fmt.Sprintf("%g x %g", p.Width, p.Height)
	stage := fmt.Sprintf("%g x %g", cfg.Stage.Width, cfg.Stage.Height)

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║           OLOS Fabrication Console                        ║\n")
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Version:    %-45s║\n", Version)
	fmt.Fprintf(w, "║  Build Time: %-45s║\n", BuildTime)
	fmt.Fprintf(w, "║  Machine:    %-45s║\n", cfg.MachineType)
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Config:    %-46s║\n", configPath)
	fmt.Fprintf(w, "║  Platform:  %-46s║\n", platform)
	fmt.Fprintf(w, "║  Stage:     %-46s║\n", stage)
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
}
