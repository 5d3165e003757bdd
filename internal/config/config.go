// Package config provides YAML-based machine configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Machine types known to the console.
const (
	MachineLaserCutter = "laser_cutter"
	MachineVinylCutter = "vinyl_cutter"
	MachineCNCRouter   = "cnc_router"
)

// MachineConfig is the root of config.yaml.
type MachineConfig struct {
	MachineType string           `yaml:"machine_type"`
	Platform    PlatformConfig   `yaml:"machine_platform"`
	Stage       models.Size      `yaml:"stage"`
	Preview     PreviewConfig    `yaml:"preview"`
	Operations  OperationsConfig `yaml:"operations"`
	LogLevel    string           `yaml:"log_level"`
}

// PlatformConfig describes the physical work envelope. InvertX and InvertY
// are not read by the console; they are passed through to the motion-code
// generator.
type PlatformConfig struct {
	StartPoint  models.Point `yaml:"start_point"`
	EndPoint    models.Point `yaml:"end_point"`
	InvertX     bool         `yaml:"invert_x"`
	InvertY     bool         `yaml:"invert_y"`
	BoundedAxes *AxisBounds  `yaml:"bounded_axes,omitempty"`
}

// AxisBounds states whether each axis has a physical limit.
type AxisBounds struct {
	X bool `yaml:"x"`
	Y bool `yaml:"y"`
}

// PreviewConfig tunes the motion-code previewer.
type PreviewConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// OperationsConfig holds per-operation defaults.
type OperationsConfig struct {
	Cutting   OperationSettings `yaml:"cutting"`
	Marking   OperationSettings `yaml:"marking"`
	Engraving OperationSettings `yaml:"engraving"`
}

// OperationSettings are the default power/speed/tool for one operation.
type OperationSettings struct {
	Power     float64            `yaml:"power"`
	Speed     float64            `yaml:"speed"`
	Tool      string             `yaml:"tool"`
	Dithering *DitheringSettings `yaml:"dithering,omitempty"`
}

// DitheringSettings are passed through to the raster collaborator.
type DitheringSettings struct {
	Algorithm     string  `yaml:"algorithm"`
	GrayShift     float64 `yaml:"gray_shift"`
	Resolution    float64 `yaml:"resolution"`
	BlockSize     int     `yaml:"block_size"`
	BlockDistance int     `yaml:"block_distance"`
}

// DefaultBatchSize is the number of motion-code lines per preview batch.
const DefaultBatchSize = 5000

// DefaultConfig returns the default configuration
func DefaultConfig() *MachineConfig {
	return &MachineConfig{
		MachineType: MachineLaserCutter,
		Platform: PlatformConfig{
			StartPoint: models.Point{X: 0, Y: 0},
			EndPoint:   models.Point{X: 300, Y: 200},
		},
		Stage:   models.Size{Width: 500, Height: 500},
		Preview: PreviewConfig{BatchSize: DefaultBatchSize},
		Operations: OperationsConfig{
			Cutting: OperationSettings{Power: 100, Speed: 300, Tool: "laser"},
			Marking: OperationSettings{Power: 40, Speed: 1000, Tool: "laser"},
			Engraving: OperationSettings{
				Power: 60,
				Speed: 2000,
				Tool:  "laser",
				Dithering: &DitheringSettings{
					Algorithm:     "floyd_steinberg",
					Resolution:    10,
					BlockSize:     2,
					BlockDistance: 1,
				},
			},
		},
		LogLevel: "info",
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is created
// with the defaults.
func LoadConfig(configPath string) (*MachineConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// Parse decodes YAML over the defaults, so omitted sections keep their
// default values.
func Parse(data []byte) (*MachineConfig, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *MachineConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# OLOS machine configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *MachineConfig) applyEnvironmentOverrides() {
	if mt := os.Getenv("OLOS_MACHINE_TYPE"); mt != "" {
		c.MachineType = mt
	}
	if bs := os.Getenv("OLOS_PREVIEW_BATCH_SIZE"); bs != "" {
		if n, err := strconv.Atoi(bs); err == nil {
			c.Preview.BatchSize = n
		}
	}
	if lvl := os.Getenv("OLOS_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

// PlatformDimensions returns the absolute platform width and height.
func (c *MachineConfig) PlatformDimensions() models.Size {
	return models.Size{
		Width:  math.Abs(c.Platform.EndPoint.X - c.Platform.StartPoint.X),
		Height: math.Abs(c.Platform.EndPoint.Y - c.Platform.StartPoint.Y),
	}
}

// Bounds returns the per-axis boundedness. Without an explicit setting a
// vinyl cutter has no bounded Y axis and every other machine is bounded on
// both axes.
func (c *MachineConfig) Bounds() AxisBounds {
	if c.Platform.BoundedAxes != nil {
		return *c.Platform.BoundedAxes
	}
	return AxisBounds{X: true, Y: c.MachineType != MachineVinylCutter}
}

// IgnoresXEnvelope reports whether geometry may exceed the platform width.
func (c *MachineConfig) IgnoresXEnvelope() bool {
	return !c.Bounds().X
}

// IgnoresYEnvelope reports whether geometry may exceed the platform height.
func (c *MachineConfig) IgnoresYEnvelope() bool {
	return !c.Bounds().Y
}

// Validate checks the dimensions the core divides by.
func (c *MachineConfig) Validate() error {
	p := c.PlatformDimensions()
	if p.Width <= 0 || p.Height <= 0 {
		return apperr.NewPreconditionViolation("platform dimensions must be positive, got %gx%g", p.Width, p.Height)
	}
	if c.Stage.Width <= 0 || c.Stage.Height <= 0 {
		return apperr.NewPreconditionViolation("stage dimensions must be positive, got %gx%g", c.Stage.Width, c.Stage.Height)
	}
	if c.Preview.BatchSize <= 0 {
		return apperr.NewPreconditionViolation("preview batch size must be positive, got %d", c.Preview.BatchSize)
	}
	return nil
}
