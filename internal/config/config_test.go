package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, MachineLaserCutter, cfg.MachineType)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config should be written to disk")

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.PlatformDimensions(), again.PlatformDimensions())
}

func TestParseKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := Parse([]byte(`
machine_type: vinyl_cutter
machine_platform:
  start_point: {x: 10, y: 20}
  end_point: {x: 610, y: 20}
`))
	require.NoError(t, err)

	dims := cfg.PlatformDimensions()
	assert.Equal(t, 600.0, dims.Width)
	assert.Equal(t, 0.0, dims.Height)
	assert.Equal(t, DefaultBatchSize, cfg.Preview.BatchSize)
	assert.Equal(t, 500.0, cfg.Stage.Width)
}

func TestPlatformDimensionsAreAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Platform.StartPoint.X = 300
	cfg.Platform.EndPoint.X = 0

	assert.Equal(t, 300.0, cfg.PlatformDimensions().Width)
}

func TestIgnoresYEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		machine string
		bounds  *AxisBounds
		want    bool
	}{
		{"laser defaults to bounded", MachineLaserCutter, nil, false},
		{"vinyl defaults to unbounded", MachineVinylCutter, nil, true},
		{"explicit flag wins over vinyl", MachineVinylCutter, &AxisBounds{X: true, Y: true}, false},
		{"explicit flag wins over laser", MachineLaserCutter, &AxisBounds{X: true, Y: false}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MachineType = tt.machine
			cfg.Platform.BoundedAxes = tt.bounds
			assert.Equal(t, tt.want, cfg.IgnoresYEnvelope())
		})
	}
}

func TestIgnoresXEnvelope(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.IgnoresXEnvelope())

	cfg.MachineType = MachineVinylCutter
	assert.False(t, cfg.IgnoresXEnvelope(), "vinyl cutters are bounded across the roll")

	cfg.Platform.BoundedAxes = &AxisBounds{X: false, Y: true}
	assert.True(t, cfg.IgnoresXEnvelope())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OLOS_MACHINE_TYPE", MachineVinylCutter)
	t.Setenv("OLOS_PREVIEW_BATCH_SIZE", "250")
	t.Setenv("OLOS_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, MachineVinylCutter, cfg.MachineType)
	assert.Equal(t, 250, cfg.Preview.BatchSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Platform.EndPoint = cfg.Platform.StartPoint
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrPreconditionViolation)

	cfg = DefaultConfig()
	cfg.Stage.Height = 0
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrPreconditionViolation)

	cfg = DefaultConfig()
	cfg.Preview.BatchSize = 0
	assert.ErrorIs(t, cfg.Validate(), apperr.ErrPreconditionViolation)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("machine_platform: [unterminated"))
	assert.Error(t, err)
}
