package preview

import (
	"testing"
	"time"

	"github.com/olos-console/backend/internal/gcode"
	"github.com/olos-console/backend/internal/models"
	"github.com/olos-console/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fits = Options{PlatformWidth: 300, PlatformHeight: 200, BatchSize: 2}

func waitFinished(t *testing.T, m *Manager, id string) *models.PreviewRun {
	t.Helper()
	require.Eventually(t, func() bool {
		run, ok := m.Get(id)
		return ok && run.Finished()
	}, 2*time.Second, 5*time.Millisecond)
	run, _ := m.Get(id)
	return run
}

func mockFactory(step models.Point, configure func(*testutil.MockRasterizer)) func() gcode.Rasterizer {
	return func() gcode.Rasterizer {
		mock := testutil.NewMockRasterizer(step)
		if configure != nil {
			configure(mock)
		}
		return mock
	}
}

func TestManagerCompletesRun(t *testing.T) {
	m := NewManager(nil)

	run := m.Start(testutil.Rectangle(10, 10, 50, 40), fits)
	require.NotEmpty(t, run.ID)

	got := waitFinished(t, m, run.ID)
	assert.Equal(t, models.RunStatusComplete, got.Status)
	assert.Equal(t, 3, got.BatchesProcessed)
	assert.Equal(t, 5, got.SegmentCount)
	assert.False(t, got.Overflowed)
	assert.Equal(t, &models.Point{X: 10, Y: 10}, got.StartPoint)
	assert.Equal(t, 50.0, got.Bounds.Width())
	assert.Empty(t, got.Error)

	segs, total, ok := m.Segments(run.ID, 1, 2)
	require.True(t, ok)
	assert.Equal(t, 5, total)
	require.Len(t, segs, 2)
	assert.Equal(t, models.Point{X: 60, Y: 10}, segs[0].To)

	segs, _, ok = m.Segments(run.ID, 3, 0)
	require.True(t, ok)
	assert.Len(t, segs, 2)

	segs, _, ok = m.Segments(run.ID, 10, 5)
	require.True(t, ok)
	assert.Empty(t, segs)

	_, _, ok = m.Segments("missing", 0, 1)
	assert.False(t, ok)
}

func TestManagerOverflow(t *testing.T) {
	m := NewManager(mockFactory(models.Point{X: 1}, nil))

	run := m.Start(fiftyLines, Options{PlatformWidth: 25, PlatformHeight: 100, BatchSize: 10})
	got := waitFinished(t, m, run.ID)

	assert.Equal(t, models.RunStatusOverflow, got.Status)
	assert.True(t, got.Overflowed)
	assert.Equal(t, 3, got.BatchesProcessed)
	assert.Equal(t, 30, got.SegmentCount)
	assert.Nil(t, got.EndPoint)
}

func TestManagerRecordsFailures(t *testing.T) {
	t.Run("conversion error", func(t *testing.T) {
		m := NewManager(mockFactory(models.Point{X: 1}, func(r *testutil.MockRasterizer) { r.FailOnCall = 1 }))
		got := waitFinished(t, m, m.Start(fiftyLines, fits).ID)
		assert.Equal(t, models.RunStatusError, got.Status)
		assert.Contains(t, got.Error, "STREAM_FAILURE")
	})

	t.Run("invalid options", func(t *testing.T) {
		m := NewManager(nil)
		got := waitFinished(t, m, m.Start(fiftyLines, Options{}).ID)
		assert.Equal(t, models.RunStatusError, got.Status)
		assert.Contains(t, got.Error, "PRECONDITION_VIOLATION")
	})
}

// gatedRasterizer blocks every Convert until the gate is released.
type gatedRasterizer struct {
	*testutil.MockRasterizer
	gate chan struct{}
}

func (g *gatedRasterizer) Convert(lines []string, firstLine int) ([]models.Segment, error) {
	<-g.gate
	return g.MockRasterizer.Convert(lines, firstLine)
}

func TestManagerCancel(t *testing.T) {
	gate := make(chan struct{})
	m := NewManager(func() gcode.Rasterizer {
		return &gatedRasterizer{MockRasterizer: testutil.NewMockRasterizer(models.Point{X: 1}), gate: gate}
	})

	run := m.Start(fiftyLines, Options{PlatformWidth: 100, PlatformHeight: 100, BatchSize: 10})
	require.True(t, m.Cancel(run.ID))
	close(gate)

	got := waitFinished(t, m, run.ID)
	assert.Equal(t, models.RunStatusError, got.Status)
	assert.Equal(t, "preview cancelled", got.Error)
	assert.LessOrEqual(t, got.BatchesProcessed, 1)

	assert.False(t, m.Cancel("missing"))
}

func TestCleanupOldRuns(t *testing.T) {
	m := NewManager(nil)
	stale := waitFinished(t, m, m.Start("G1 X1", fits).ID)
	fresh := waitFinished(t, m, m.Start("G1 X2", fits).ID)

	m.mu.Lock()
	m.runs[stale.ID].lastAccessed = time.Now().Add(-time.Hour)
	m.runs[fresh.ID].lastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()
	require.True(t, m.Touch(fresh.ID))

	m.CleanupOldRuns(30 * time.Minute)

	_, ok := m.Get(stale.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok, "touched runs survive")
	assert.False(t, m.Touch(stale.ID))
}

func TestStartEvictsLeastRecentlyUsedFinishedRun(t *testing.T) {
	m := NewManager(nil)

	var ids []string
	for i := 0; i < MaxRuns; i++ {
		ids = append(ids, waitFinished(t, m, m.Start("G1 X1", fits).ID).ID)
	}
	m.mu.Lock()
	m.runs[ids[3]].lastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	waitFinished(t, m, m.Start("G1 X1", fits).ID)

	assert.Equal(t, MaxRuns, m.Len())
	_, ok := m.Get(ids[3])
	assert.False(t, ok)
	_, ok = m.Get(ids[0])
	assert.True(t, ok)
}

func TestGetReturnsSnapshot(t *testing.T) {
	m := NewManager(nil)
	run := waitFinished(t, m, m.Start("G1 X1 Y1", fits).ID)

	run.StartPoint.X = 99
	run.Status = models.RunStatusError

	again, ok := m.Get(run.ID)
	require.True(t, ok)
	assert.Equal(t, models.RunStatusComplete, again.Status)
	assert.Equal(t, 1.0, again.StartPoint.X)
}
