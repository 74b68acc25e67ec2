package registry

import (
	"sort"
	"strings"
	"time"

	"physician-scheduler/internal/models"
)

// maxPreferred caps how many categories a physician may rank as preferred.
const maxPreferred = 3

// Registry holds the physician roster and their unavailability windows.
// Registration validates profiles up front; category references are checked
// against the catalog later, in the engine's pre-flight, since the registry
// does not know the catalog.
type Registry struct {
	physicians map[string]*models.Physician
	initials   map[string]string // initials -> physician id
	unavail    map[string][]models.DateSpan
}

func New() *Registry {
	return &Registry{
		physicians: make(map[string]*models.Physician),
		initials:   make(map[string]string),
		unavail:    make(map[string][]models.DateSpan),
	}
}

func (r *Registry) Add(p *models.Physician) error {
	if p == nil || p.ID == "" {
		return models.NewConfigurationError("", "physician id is required")
	}
	if _, exists := r.physicians[p.ID]; exists {
		return models.NewConfigurationError(p.ID, "duplicate physician id")
	}
	if p.LastName == "" {
		return models.NewConfigurationError(p.ID, "last name is required")
	}
	if p.FTEFraction <= 0 || p.FTEFraction > 1 {
		return models.NewConfigurationError(p.ID, "fte_fraction must be in (0, 1], got %g", p.FTEFraction)
	}
	if p.FullTime && p.FTEFraction != 1 {
		return models.NewConfigurationError(p.ID, "full-time physician must have fte_fraction 1, got %g", p.FTEFraction)
	}
	if len(p.PreferredCategories) > maxPreferred {
		return models.NewConfigurationError(p.ID, "at most %d preferred categories, got %d", maxPreferred, len(p.PreferredCategories))
	}

	cp := *p
	if cp.Initials == "" {
		cp.Initials = r.deriveInitials(&cp)
	} else if other, taken := r.initials[cp.Initials]; taken {
		return models.NewConfigurationError(p.ID, "initials %q already used by %q", cp.Initials, other)
	}

	r.physicians[cp.ID] = &cp
	r.initials[cp.Initials] = cp.ID
	return nil
}

// deriveInitials builds a unique abbreviation from the physician's name:
// first letter of the first name plus a growing prefix of the last name,
// falling back to the id once the last name is exhausted.
func (r *Registry) deriveInitials(p *models.Physician) string {
	first := ""
	if p.FirstName != "" {
		first = strings.ToUpper(p.FirstName[:1])
	}
	last := strings.ToUpper(p.LastName)
	for i := 1; i <= len(last); i++ {
		candidate := first + last[:i]
		if _, taken := r.initials[candidate]; !taken {
			return candidate
		}
	}
	return strings.ToUpper(p.ID)
}

// Update replaces an existing physician's profile, keeping their recorded
// unavailability. Cleared initials are re-derived from the new name.
func (r *Registry) Update(p *models.Physician) error {
	if p == nil || p.ID == "" {
		return models.NewConfigurationError("", "physician id is required")
	}
	old, ok := r.physicians[p.ID]
	if !ok {
		return models.NewConfigurationError(p.ID, "unknown physician")
	}
	if p.LastName == "" {
		return models.NewConfigurationError(p.ID, "last name is required")
	}
	if p.FTEFraction <= 0 || p.FTEFraction > 1 {
		return models.NewConfigurationError(p.ID, "fte_fraction must be in (0, 1], got %g", p.FTEFraction)
	}
	if p.FullTime && p.FTEFraction != 1 {
		return models.NewConfigurationError(p.ID, "full-time physician must have fte_fraction 1, got %g", p.FTEFraction)
	}
	if len(p.PreferredCategories) > maxPreferred {
		return models.NewConfigurationError(p.ID, "at most %d preferred categories, got %d", maxPreferred, len(p.PreferredCategories))
	}

	cp := *p
	if cp.Initials != old.Initials {
		if cp.Initials != "" {
			if other, taken := r.initials[cp.Initials]; taken {
				return models.NewConfigurationError(p.ID, "initials %q already used by %q", cp.Initials, other)
			}
		}
		delete(r.initials, old.Initials)
		if cp.Initials == "" {
			cp.Initials = r.deriveInitials(&cp)
		}
	}
	r.physicians[cp.ID] = &cp
	r.initials[cp.Initials] = cp.ID
	return nil
}

// Remove drops a physician together with their unavailability spans.
func (r *Registry) Remove(id string) error {
	p, ok := r.physicians[id]
	if !ok {
		return models.NewConfigurationError(id, "unknown physician")
	}
	delete(r.physicians, id)
	delete(r.initials, p.Initials)
	delete(r.unavail, id)
	return nil
}

// AddUnavailability records a span during which the physician cannot be
// assigned. Overlapping or adjacent spans are unioned.
func (r *Registry) AddUnavailability(id string, span models.DateSpan) error {
	if _, ok := r.physicians[id]; !ok {
		return models.NewConfigurationError(id, "unknown physician")
	}
	if span.End.Before(span.Start) {
		return models.NewConfigurationError(id, "unavailability end %s precedes start %s",
			models.FormatDate(span.End), models.FormatDate(span.Start))
	}

	merged := []models.DateSpan{span}
	for _, existing := range r.unavail[id] {
		if merged[len(merged)-1].Touches(existing) {
			merged[len(merged)-1] = merged[len(merged)-1].Union(existing)
		} else {
			merged = append(merged, existing)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start.Before(merged[j].Start) })

	// A union can bridge formerly separate spans; compact once more.
	compact := merged[:1]
	for _, s := range merged[1:] {
		if compact[len(compact)-1].Touches(s) {
			compact[len(compact)-1] = compact[len(compact)-1].Union(s)
		} else {
			compact = append(compact, s)
		}
	}
	r.unavail[id] = compact
	return nil
}

// RemoveUnavailability drops the recorded span starting on the given date.
func (r *Registry) RemoveUnavailability(id string, start time.Time) error {
	if _, ok := r.physicians[id]; !ok {
		return models.NewConfigurationError(id, "unknown physician")
	}
	start = models.Midnight(start)
	spans := r.unavail[id]
	for i, s := range spans {
		if s.Start.Equal(start) {
			r.unavail[id] = append(spans[:i], spans[i+1:]...)
			return nil
		}
	}
	return models.NewConfigurationError(id, "no unavailability starting %s", models.FormatDate(start))
}

func (r *Registry) Physician(id string) (*models.Physician, bool) {
	p, ok := r.physicians[id]
	return p, ok
}

// Physicians returns the roster sorted by id; the stable order keeps
// allocation runs reproducible.
func (r *Registry) Physicians() []*models.Physician {
	out := make([]*models.Physician, 0, len(r.physicians))
	for _, p := range r.physicians {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Unavailability(id string) []models.DateSpan {
	spans := r.unavail[id]
	out := make([]models.DateSpan, len(spans))
	copy(out, spans)
	return out
}

// IsEligible reports whether the physician may take tasks of the category:
// the category must be in their eligible set, and a restricted category
// additionally needs an explicit permission.
func (r *Registry) IsEligible(p *models.Physician, cat *models.TaskCategory) bool {
	if p == nil || cat == nil {
		return false
	}
	eligible := false
	for _, name := range p.EligibleCategories {
		if name == cat.Name {
			eligible = true
			break
		}
	}
	if !eligible {
		return false
	}
	if !cat.Restricted {
		return true
	}
	for _, name := range p.RestrictedPermissions {
		if name == cat.Name {
			return true
		}
	}
	return false
}

func (r *Registry) IsAvailable(id string, date time.Time) bool {
	for _, span := range r.unavail[id] {
		if span.Contains(date) {
			return false
		}
	}
	return true
}

// RemainingCapacity is the heaviness the physician can still absorb before
// reaching their fairness ceiling of fte_fraction * basis.
func (r *Registry) RemainingCapacity(id string, assignedSoFar int, basis float64) float64 {
	p, ok := r.physicians[id]
	if !ok {
		return 0
	}
	return p.FTEFraction*basis - float64(assignedSoFar)
}

// TotalFTE sums the roster's fte fractions; the capacity basis divides total
// demand by this.
func (r *Registry) TotalFTE() float64 {
	var total float64
	for _, p := range r.physicians {
		total += p.FTEFraction
	}
	return total
}
