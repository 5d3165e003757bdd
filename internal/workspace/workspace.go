// Package workspace keeps the images placed on the machine stage.
package workspace

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/canvas"
	"github.com/olos-console/backend/internal/logging"
	"github.com/olos-console/backend/internal/models"
	"github.com/olos-console/backend/internal/profile"
)

// Store defines the operations on a set of placed images.
type Store interface {
	Add(name string, naturalW, naturalH float64, c *models.Classification) (*models.Image, error)
	Duplicate(id string) (*models.Image, error)
	Move(id string, raw models.ImageMetrics) (*models.Image, error)
	Remove(id string) error
	Get(id string) (*models.Image, error)
	List() []*models.Image
	Active() (*models.Image, bool)
}

type entry struct {
	image *models.Image
	table *profile.Table
}

// Workspace is an in-memory Store. Every image keeps its canvas and
// platform placements in sync through the mapper.
type Workspace struct {
	mu     sync.RWMutex
	mapper *canvas.Mapper
	images map[string]*entry
	order  []string
	active string
	log    *slog.Logger
}

var _ Store = (*Workspace)(nil)

// New creates an empty workspace.
func New(mapper *canvas.Mapper) *Workspace {
	return &Workspace{
		mapper: mapper,
		images: make(map[string]*entry),
		log:    logging.For("workspace"),
	}
}

// Add fits a new image to the stage and makes it active. c may be nil for
// raster images.
func (w *Workspace) Add(name string, naturalW, naturalH float64, c *models.Classification) (*models.Image, error) {
	if naturalW < 0 || naturalH < 0 {
		return nil, apperr.NewPreconditionViolation("image size must not be negative, got %gx%g", naturalW, naturalH)
	}

	img := &models.Image{
		ID:             uuid.New().String(),
		Name:           name,
		Natural:        models.Size{Width: naturalW, Height: naturalH},
		Placement:      w.mapper.Fit(naturalW, naturalH),
		Classification: c,
		AddedAt:        time.Now(),
	}
	e, err := newEntry(img)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.insert(e)

	w.log.Debug("image added", "id", img.ID, "name", name)
	return copyImage(img), nil
}

// Duplicate copies an image under a new ID, places the copy next to the
// source and makes it active.
func (w *Workspace) Duplicate(id string) (*models.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	src, ok := w.images[id]
	if !ok {
		return nil, apperr.NewNotFound("image", id)
	}

	img := &models.Image{
		ID:             uuid.New().String(),
		Name:           src.image.Name,
		Natural:        src.image.Natural,
		Placement:      w.mapper.PlaceDuplicate(src.image.Placement),
		Classification: src.image.Classification.Clone(),
		AddedAt:        time.Now(),
	}
	e, err := newEntry(img)
	if err != nil {
		return nil, err
	}
	w.insert(e)

	w.log.Debug("image duplicated", "source", id, "id", img.ID)
	return copyImage(img), nil
}

// Move applies raw canvas metrics from a drag, resize or rotate, clamped
// to the stage.
func (w *Workspace) Move(id string, raw models.ImageMetrics) (*models.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.images[id]
	if !ok {
		return nil, apperr.NewNotFound("image", id)
	}
	e.image.Placement = w.mapper.Clamp(raw)
	return copyImage(e.image), nil
}

// Remove deletes an image. When the active image goes, the last remaining
// image becomes active.
func (w *Workspace) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.images[id]; !ok {
		return apperr.NewNotFound("image", id)
	}
	delete(w.images, id)

	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}

	if w.active == id {
		w.active = ""
		if n := len(w.order); n > 0 {
			w.active = w.order[n-1]
		}
	}

	w.log.Debug("image removed", "id", id, "active", w.active)
	return nil
}

// Get returns a copy of an image.
func (w *Workspace) Get(id string) (*models.Image, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.images[id]
	if !ok {
		return nil, apperr.NewNotFound("image", id)
	}
	return copyImage(e.image), nil
}

// List returns the images in insertion order.
func (w *Workspace) List() []*models.Image {
	w.mu.RLock()
	defer w.mu.RUnlock()

	list := make([]*models.Image, 0, len(w.order))
	for _, id := range w.order {
		list = append(list, copyImage(w.images[id].image))
	}
	return list
}

// Active returns the active image, if any.
func (w *Workspace) Active() (*models.Image, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.images[w.active]
	if !ok {
		return nil, false
	}
	return copyImage(e.image), true
}

// Activate makes id the active image.
func (w *Workspace) Activate(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.images[id]; !ok {
		return apperr.NewNotFound("image", id)
	}
	w.active = id
	return nil
}

// Table returns the profile mapping table of an image. Raster images have
// none. The table itself is not safe for concurrent use.
func (w *Workspace) Table(id string) (*profile.Table, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.images[id]
	if !ok {
		return nil, apperr.NewNotFound("image", id)
	}
	if e.table == nil {
		return nil, apperr.NewPreconditionViolation("image %s has no vector elements", id)
	}
	return e.table, nil
}

// insert must be called with the lock held.
func (w *Workspace) insert(e *entry) {
	w.images[e.image.ID] = e
	w.order = append(w.order, e.image.ID)
	w.active = e.image.ID
}

func newEntry(img *models.Image) (*entry, error) {
	e := &entry{image: img}
	if img.Classification != nil {
		t, err := profile.NewTable(img.Classification, profile.FilterShape)
		if err != nil {
			return nil, err
		}
		e.table = t
	}
	return e, nil
}

func copyImage(img *models.Image) *models.Image {
	cp := *img
	return &cp
}
