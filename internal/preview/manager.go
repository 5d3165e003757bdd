package preview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/olos-console/backend/internal/gcode"
	"github.com/olos-console/backend/internal/logging"
	"github.com/olos-console/backend/internal/models"
)

// MaxRuns limits how many runs are kept in memory.
const MaxRuns = 10

// RunMaxAge is how long to keep finished runs before cleanup.
const RunMaxAge = 30 * time.Minute

// RunKeepAliveWindow protects runs that were read recently from cleanup.
const RunKeepAliveWindow = 5 * time.Minute

// Manager runs previews in the background and keeps their results for
// polling.
type Manager struct {
	mu            sync.RWMutex
	runs          map[string]*runState
	newRasterizer func() gcode.Rasterizer
	log           *slog.Logger
}

type runState struct {
	run          *models.PreviewRun
	segments     []models.Segment
	cancel       context.CancelFunc
	started      time.Time
	lastAccessed time.Time
}

// NewManager creates a run manager. newRasterizer is called once per run;
// nil uses the gcode interpreter.
func NewManager(newRasterizer func() gcode.Rasterizer) *Manager {
	if newRasterizer == nil {
		newRasterizer = func() gcode.Rasterizer { return gcode.NewInterpreter() }
	}
	return &Manager{
		runs:          make(map[string]*runState),
		newRasterizer: newRasterizer,
		log:           logging.For("preview-manager"),
	}
}

// Start begins a background parse of doc and returns the new run.
func (m *Manager) Start(doc string, opts Options) *models.PreviewRun {
	m.evictIfNeeded()

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	state := &runState{
		run:          models.NewPreviewRun(id),
		cancel:       cancel,
		started:      time.Now(),
		lastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.runs[id] = state
	run := copyRun(state.run)
	m.mu.Unlock()

	go m.execute(ctx, id, doc, opts)
	return run
}

func (m *Manager) execute(ctx context.Context, id, doc string, opts Options) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("preview run panicked", "run", shortID(id), "panic", r)
			m.finish(id, func(run *models.PreviewRun) {
				run.Status = models.RunStatusError
				run.Error = fmt.Sprintf("preview panicked: %v", r)
			})
		}
	}()

	m.log.Info("preview run started", "run", shortID(id), "bytes", len(doc))
	p := NewParser(m.newRasterizer())
	p.Run(ctx, doc, opts, func(ev models.ParseEvent) bool {
		m.apply(id, ev)
		return ctx.Err() == nil
	})

	m.finish(id, func(run *models.PreviewRun) {
		if !run.Finished() {
			run.Status = models.RunStatusError
			run.Error = "preview cancelled"
		}
	})
}

func (m *Manager) apply(id string, ev models.ParseEvent) {
	m.mu.Lock()
	state, ok := m.runs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	run := state.run

	switch ev.Kind {
	case models.EventBatch:
		run.BatchesProcessed++
		run.SegmentCount += len(ev.Segments)
		state.segments = append(state.segments, ev.Segments...)
		if ev.Overflowed {
			run.Overflowed = true
			run.Status = models.RunStatusOverflow
		}
	case models.EventComplete:
		run.Status = models.RunStatusComplete
		run.StartPoint = ev.StartPoint
		run.EndPoint = ev.EndPoint
		run.Bounds = ev.Bounds
	case models.EventFailed:
		run.Status = models.RunStatusError
		if ev.Err != nil {
			run.Error = ev.Err.Error()
		}
	}
	m.mu.Unlock()
}

// finish applies a final update and stamps the processing time once.
func (m *Manager) finish(id string, update func(*models.PreviewRun)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[id]
	if !ok {
		return
	}
	update(state.run)
	if state.run.ProcessingTimeMs == 0 {
		state.run.ProcessingTimeMs = time.Since(state.started).Milliseconds()
	}
	m.log.Info("preview run finished", "run", shortID(id), "status", state.run.Status,
		"batches", state.run.BatchesProcessed, "segments", state.run.SegmentCount)
}

// Get returns a snapshot of a run.
func (m *Manager) Get(id string) (*models.PreviewRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	return copyRun(state.run), true
}

// Segments returns up to limit segments starting at offset, and the total
// number produced so far. A non-positive limit returns everything after
// offset.
func (m *Manager) Segments(id string, offset, limit int) ([]models.Segment, int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return nil, 0, false
	}

	total := len(state.segments)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []models.Segment{}, total, true
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	out := make([]models.Segment, end-offset)
	copy(out, state.segments[offset:end])
	return out, total, true
}

// Touch marks a run as in use so cleanup keeps it.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[id]
	if !ok {
		return false
	}
	state.lastAccessed = time.Now()
	return true
}

// Cancel stops a running preview. The run ends in error status.
func (m *Manager) Cancel(id string) bool {
	m.mu.RLock()
	state, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	state.cancel()
	return true
}

// Len returns the number of tracked runs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// CleanupOldRuns removes finished runs not accessed within maxAge. Runs
// touched within RunKeepAliveWindow are always kept.
func (m *Manager) CleanupOldRuns(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-RunKeepAliveWindow)

	for id, state := range m.runs {
		if !state.run.Finished() {
			continue
		}
		if state.lastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.lastAccessed.Before(cutoff) {
			state.cancel()
			delete(m.runs, id)
			m.log.Debug("cleaned up aged run", "run", shortID(id),
				"idle", now.Sub(state.lastAccessed).Round(time.Second))
		}
	}
}

// evictIfNeeded drops the least recently used finished runs so a new run
// fits under MaxRuns. Running previews are never evicted.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.runs) >= MaxRuns {
		var oldest string
		for id, state := range m.runs {
			if !state.run.Finished() {
				continue
			}
			if oldest == "" || state.lastAccessed.Before(m.runs[oldest].lastAccessed) {
				oldest = id
			}
		}
		if oldest == "" {
			return
		}
		m.runs[oldest].cancel()
		delete(m.runs, oldest)
		m.log.Debug("evicted run", "run", shortID(oldest))
	}
}

func copyRun(r *models.PreviewRun) *models.PreviewRun {
	cp := *r
	if r.StartPoint != nil {
		p := *r.StartPoint
		cp.StartPoint = &p
	}
	if r.EndPoint != nil {
		p := *r.EndPoint
		cp.EndPoint = &p
	}
	return &cp
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
