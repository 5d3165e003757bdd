// Package profile maps classified element buckets to machine operations.
package profile

import (
	"sort"

	"github.com/olos-console/backend/internal/apperr"
	"github.com/olos-console/backend/internal/logging"
	"github.com/olos-console/backend/internal/models"
)

// Profile is the operation applied to a group of elements.
type Profile string

const (
	Nothing Profile = "nothing"
	Cut     Profile = "cut"
	Mark    Profile = "mark"
	Engrave Profile = "engrave"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	switch p {
	case Nothing, Cut, Mark, Engrave:
		return true
	}
	return false
}

// Filter selects which bucket collection the table is keyed by.
type Filter string

const (
	FilterShape Filter = "shape"
	FilterColor Filter = "color"
)

// AllOption records a whole-document assignment.
type AllOption string

const (
	Custom            AllOption = "custom"
	CutEverything     AllOption = "cut_everything"
	MarkEverything    AllOption = "mark_everything"
	EngraveEverything AllOption = "engrave_everything"
)

// Selection is one identifier's elements and the profile they were given.
type Selection struct {
	Identifier string
	Elements   []*models.ClassifiedElement
	Profile    Profile
}

// Job is the element list per operation, ready for toolpath generation.
type Job struct {
	Cut     []*models.ClassifiedElement
	Mark    []*models.ClassifiedElement
	Engrave []*models.ClassifiedElement
}

// Empty reports whether no operation has any element.
func (j Job) Empty() bool {
	return len(j.Cut) == 0 && len(j.Mark) == 0 && len(j.Engrave) == 0
}

// Table is the mapping table of one image: a profile per bucket key and the
// selections that feed the job.
type Table struct {
	filter     Filter
	all        AllOption
	profiles   map[string]Profile
	selections []Selection
}

// NewTable creates a table with every bucket of c set to Nothing.
func NewTable(c *models.Classification, filter Filter) (*Table, error) {
	t := &Table{}
	if err := t.Reset(c, filter); err != nil {
		return nil, err
	}
	return t, nil
}

// Reset clears all selections and sets every bucket key of the chosen
// filter to Nothing.
func (t *Table) Reset(c *models.Classification, filter Filter) error {
	if c == nil {
		return apperr.NewPreconditionViolation("cannot build a mapping table without a classification")
	}
	if filter != FilterShape && filter != FilterColor {
		return apperr.NewPreconditionViolation("unknown table filter %q", filter)
	}

	t.filter = filter
	t.all = Custom
	t.selections = nil
	t.profiles = make(map[string]Profile)
	for _, b := range buckets(c, filter) {
		t.profiles[b.key] = Nothing
	}
	return nil
}

// Filter returns the active filter.
func (t *Table) Filter() Filter { return t.filter }

// All returns the whole-document option last applied.
func (t *Table) All() AllOption { return t.all }

// Profile returns the profile shown for identifier.
func (t *Table) Profile(identifier string) Profile {
	if p, ok := t.profiles[identifier]; ok {
		return p
	}
	return Nothing
}

// Profiles returns a copy of the identifier to profile map.
func (t *Table) Profiles() map[string]Profile {
	out := make(map[string]Profile, len(t.profiles))
	for k, v := range t.profiles {
		out[k] = v
	}
	return out
}

// Selections returns the current selections in assignment order.
func (t *Table) Selections() []Selection {
	out := make([]Selection, len(t.selections))
	copy(out, t.selections)
	return out
}

// Assign gives identifier's elements a profile, replacing any earlier
// selection for it. Assigning Nothing removes the selection.
func (t *Table) Assign(identifier string, elements []*models.ClassifiedElement, p Profile) error {
	if !p.Valid() {
		return apperr.NewPreconditionViolation("unknown profile %q", p)
	}

	t.drop(identifier)
	t.profiles[identifier] = p
	t.all = Custom
	if p == Nothing {
		return nil
	}
	t.selections = append(t.selections, Selection{
		Identifier: identifier,
		Elements:   elements,
		Profile:    p,
	})
	return nil
}

// Unassign removes identifier's selection.
func (t *Table) Unassign(identifier string) {
	t.drop(identifier)
	if _, ok := t.profiles[identifier]; ok {
		t.profiles[identifier] = Nothing
	}
}

// AssignAll gives every bucket of the active filter the same profile.
func (t *Table) AssignAll(c *models.Classification, p Profile) error {
	if c == nil {
		return apperr.NewPreconditionViolation("cannot assign without a classification")
	}
	for _, b := range buckets(c, t.filter) {
		if err := t.Assign(b.key, b.elements, p); err != nil {
			return err
		}
	}

	switch p {
	case Cut:
		t.all = CutEverything
	case Mark:
		t.all = MarkEverything
	case Engrave:
		t.all = EngraveEverything
	}
	return nil
}

// AssignBucket looks up the bucket named identifier under the active filter
// and assigns its elements.
func (t *Table) AssignBucket(c *models.Classification, identifier string, p Profile) error {
	if c == nil {
		return apperr.NewPreconditionViolation("cannot assign without a classification")
	}
	for _, b := range buckets(c, t.filter) {
		if b.key == identifier {
			return t.Assign(identifier, b.elements, p)
		}
	}
	return apperr.NewNotFound(string(t.filter)+" bucket", identifier)
}

func (t *Table) drop(identifier string) {
	kept := t.selections[:0]
	for _, s := range t.selections {
		if s.Identifier != identifier {
			kept = append(kept, s)
		}
	}
	t.selections = kept
}

// Plan collects the selections into a Job. Each list is ordered by element
// ID and holds an element at most once.
func (t *Table) Plan() Job {
	var job Job
	seen := map[Profile]map[int]bool{
		Cut:     {},
		Mark:    {},
		Engrave: {},
	}

	for _, s := range t.selections {
		for _, el := range s.Elements {
			if el == nil || seen[s.Profile][el.ID] {
				continue
			}
			seen[s.Profile][el.ID] = true
			switch s.Profile {
			case Cut:
				job.Cut = append(job.Cut, el)
			case Mark:
				job.Mark = append(job.Mark, el)
			case Engrave:
				job.Engrave = append(job.Engrave, el)
			}
		}
	}

	byID(job.Cut)
	byID(job.Mark)
	byID(job.Engrave)

	logging.For("profile").Debug("planned job",
		"cut", len(job.Cut), "mark", len(job.Mark), "engrave", len(job.Engrave))
	return job
}

func byID(els []*models.ClassifiedElement) {
	sort.Slice(els, func(i, j int) bool { return els[i].ID < els[j].ID })
}

type bucket struct {
	key      string
	elements []*models.ClassifiedElement
}

func buckets(c *models.Classification, filter Filter) []bucket {
	var out []bucket
	if filter == FilterColor {
		for _, b := range c.Colors {
			out = append(out, bucket{key: b.Color, elements: b.Elements})
		}
		return out
	}
	for _, b := range c.Shapes {
		out = append(out, bucket{key: b.Shape, elements: b.Elements})
	}
	return out
}
