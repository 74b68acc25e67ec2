package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"physician-scheduler/internal/models"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine produces a schedule for a period in one deterministic greedy pass:
// dates in chronological order, tasks per date in a fixed priority order, and
// for each task the highest-scoring viable physician. Identical inputs yield
// identical schedules.
type Engine struct {
	catalog    Catalog
	roster     Roster
	cal        Calendar
	policy     ScorePolicy
	logger     *slog.Logger
	checkpoint CheckpointFunc
}

// CheckpointFunc receives a sorted snapshot of the schedule after each date
// has been fully allocated.
type CheckpointFunc func(date time.Time, partial *models.Schedule)

type Option func(*Engine)

// WithPolicy overrides the default scoring weights.
func WithPolicy(p ScorePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger routes engine logging somewhere other than slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCheckpoint registers a callback invoked after each allocated date.
func WithCheckpoint(fn CheckpointFunc) Option {
	return func(e *Engine) { e.checkpoint = fn }
}

func NewEngine(catalog Catalog, roster Roster, cal Calendar, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		roster:  roster,
		cal:     cal,
		policy:  DefaultScorePolicy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one generation run. Anomalies are data, not
// errors: a run that leaves mandatory work uncovered still returns a complete
// Result.
type Result struct {
	RunID         uuid.UUID
	Schedule      *models.Schedule
	Anomalies     []models.Anomaly
	CapacityBasis float64
}

type candidate struct {
	Physician *models.Physician
	Heaviness int // cumulative heaviness before this assignment
	Score     float64
}

// pinnedCall records that a call task must follow its main task's physician
// for the duration of one occurrence window.
type pinnedCall struct {
	callCode    string
	mainCode    string
	physicianID string
	window      models.DateSpan
}

type accumulator struct {
	heaviness int
	occupied  map[time.Time]string // date -> category worked that day
}

// run carries the mutable state of a single Generate call.
type run struct {
	e         *Engine
	days      []models.CalendarDay
	basis     float64
	acc       map[string]*accumulator
	pins      []pinnedCall
	schedule  *models.Schedule
	anomalies []models.Anomaly
}

// Generate allocates every task occurrence falling due between start and end
// inclusive. The period must lie within the engine's calendar. On context
// cancellation the schedule built so far is returned together with ctx.Err().
func (e *Engine) Generate(ctx context.Context, start, end time.Time) (*Result, error) {
	start = models.Midnight(start)
	end = models.Midnight(end)
	if err := e.preflight(start, end); err != nil {
		return nil, err
	}

	r := &run{
		e:        e,
		basis:    CapacityBasis(e.catalog, e.roster, e.cal, start, end),
		acc:      make(map[string]*accumulator),
		schedule: models.NewSchedule(start, end),
	}
	for _, day := range e.cal.Days() {
		if day.Date.Before(start) || day.Date.After(end) {
			continue
		}
		r.days = append(r.days, day)
	}

	id := uuid.New()
	e.logger.Info("generation started",
		"run_id", id,
		"start", models.FormatDate(start),
		"end", models.FormatDate(end),
		"days", len(r.days),
		"capacity_basis", r.basis)

	for i, day := range r.days {
		if err := ctx.Err(); err != nil {
			r.schedule.Sort()
			return &Result{RunID: id, Schedule: r.schedule, Anomalies: r.anomalies, CapacityBasis: r.basis}, err
		}
		r.allocateDay(i, day)
		if e.checkpoint != nil {
			snap := r.schedule.Clone()
			snap.Sort()
			e.checkpoint(day.Date, snap)
		}
	}

	r.schedule.Sort()
	res := &Result{RunID: id, Schedule: r.schedule, Anomalies: r.anomalies, CapacityBasis: r.basis}
	e.audit(res)
	e.logger.Info("generation finished",
		"run_id", id,
		"assignments", len(res.Schedule.Assignments),
		"gaps", len(res.Schedule.Gaps()),
		"anomalies", len(res.Anomalies))
	return res, nil
}

// preflight rejects inconsistent inputs before any allocation work. Broken
// cross-references are configuration mistakes, not scheduling shortfalls.
func (e *Engine) preflight(start, end time.Time) error {
	if end.Before(start) {
		return models.NewConfigurationError("period", "end date %s precedes start date %s",
			models.FormatDate(end), models.FormatDate(start))
	}
	if _, ok := e.cal.Day(start); !ok {
		return models.NewConfigurationError("period", "start date %s is outside the calendar", models.FormatDate(start))
	}
	if _, ok := e.cal.Day(end); !ok {
		return models.NewConfigurationError("period", "end date %s is outside the calendar", models.FormatDate(end))
	}
	for _, t := range e.catalog.Tasks() {
		if _, ok := e.catalog.Category(t.Category); !ok {
			return models.NewConfigurationError(t.Code, "references unknown category %q", t.Category)
		}
		if call, ok := e.catalog.LinkedCall(t.Code); ok {
			if _, exists := e.catalog.Task(call); !exists {
				return models.NewConfigurationError(t.Code, "linked call task %q does not exist", call)
			}
		}
	}
	for _, p := range e.roster.Physicians() {
		for _, name := range p.EligibleCategories {
			if _, ok := e.catalog.Category(name); !ok {
				return models.NewConfigurationError(p.ID, "eligible for unknown category %q", name)
			}
		}
		for _, name := range p.PreferredCategories {
			if _, ok := e.catalog.Category(name); !ok {
				return models.NewConfigurationError(p.ID, "prefers unknown category %q", name)
			}
		}
		for _, name := range p.RestrictedPermissions {
			if _, ok := e.catalog.Category(name); !ok {
				return models.NewConfigurationError(p.ID, "restricted permission for unknown category %q", name)
			}
		}
	}
	return nil
}

// CapacityBasis derives the fairness unit for a period: the total heaviness
// falling due divided by the roster's total FTE. A physician's soft ceiling
// is their fte_fraction times the basis, so the individual ceilings sum to
// the period's demand. Returns 0 for an empty roster.
func CapacityBasis(catalog Catalog, roster Roster, cal Calendar, start, end time.Time) float64 {
	totalFTE := roster.TotalFTE()
	if totalFTE <= 0 {
		return 0
	}
	demand := 0
	for _, day := range cal.Days() {
		if day.Date.Before(start) || day.Date.After(end) {
			continue
		}
		for _, t := range catalog.TasksDueOn(day.Date, cal.IsWorkingDay, cal.Anchor()) {
			demand += t.Heaviness
		}
	}
	return float64(demand) / totalFTE
}

func (r *run) allocateDay(dayIdx int, day models.CalendarDay) {
	tasks := r.dueTasks(dayIdx, day.Date)
	r.orderTasks(tasks)
	for _, t := range tasks {
		r.allocate(dayIdx, day.Date, t)
	}
}

// dueTasks returns the catalog's due tasks for the date. On the first working
// day of the period it also picks up multi-week occurrences whose window
// opened before the period started, so a mid-week period start still covers
// the running occurrence.
func (r *run) dueTasks(dayIdx int, date time.Time) []*models.Task {
	tasks := r.e.catalog.TasksDueOn(date, r.e.cal.IsWorkingDay, r.e.cal.Anchor())
	if !r.firstWorkingDay(dayIdx, date) {
		return tasks
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		seen[t.Code] = true
	}
	for _, t := range r.e.catalog.Tasks() {
		if seen[t.Code] {
			continue
		}
		if _, isCall := r.e.catalog.MainOf(t.Code); isCall {
			continue
		}
		span, ok := r.e.catalog.SpanFor(t, date, r.e.cal.Anchor())
		if !ok {
			continue
		}
		for d := span.Start; d.Before(date); d = d.AddDate(0, 0, 1) {
			if r.e.cal.IsWorkingDay(d) {
				// the occurrence fell due before the period opened
				tasks = append(tasks, t)
				break
			}
		}
	}
	return tasks
}

func (r *run) firstWorkingDay(dayIdx int, date time.Time) bool {
	if !r.e.cal.IsWorkingDay(date) {
		return false
	}
	for i := 0; i < dayIdx; i++ {
		if r.days[i].IsWorkingDay() {
			return false
		}
	}
	return true
}

// orderTasks fixes the within-date priority: mandatory before optional,
// restricted categories before open ones, heavier before lighter, then task
// code as the final tie-break.
func (r *run) orderTasks(tasks []*models.Task) {
	slices.SortFunc(tasks, func(a, b *models.Task) int {
		if a.Mandatory != b.Mandatory {
			if a.Mandatory {
				return -1
			}
			return 1
		}
		ar, br := r.e.catalog.IsRestricted(a.Category), r.e.catalog.IsRestricted(b.Category)
		if ar != br {
			if ar {
				return -1
			}
			return 1
		}
		if a.Heaviness != b.Heaviness {
			return b.Heaviness - a.Heaviness
		}
		return strings.Compare(a.Code, b.Code)
	})
}

func (r *run) allocate(dayIdx int, date time.Time, task *models.Task) {
	cat, ok := r.e.catalog.Category(task.Category)
	if !ok {
		return // unreachable after preflight
	}

	if mainCode, ok := r.e.catalog.MainOf(task.Code); ok {
		r.allocateCall(date, task, cat, mainCode)
		return
	}

	span, spanned := r.e.catalog.SpanFor(task, date, r.e.cal.Anchor())
	occupy := r.occupancyDays(date, span, spanned)

	cands := r.viableCandidates(dayIdx, task, cat, occupy)
	if len(cands) == 0 {
		r.gap(date, task, "no viable physician")
		return
	}
	r.commit(date, task, cat, pickBest(cands), occupy, span, spanned)
}

// occupancyDays lists the dates an assignment blocks: the due date itself for
// a single-day task, or every in-period working day of the occurrence window
// for a multi-week main task.
func (r *run) occupancyDays(date time.Time, span models.DateSpan, spanned bool) []time.Time {
	if !spanned {
		return []time.Time{date}
	}
	var days []time.Time
	for d := span.Start; !d.After(span.End); d = d.AddDate(0, 0, 1) {
		if d.Before(r.schedule.StartDate) || d.After(r.schedule.EndDate) {
			continue
		}
		if r.e.cal.IsWorkingDay(d) {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = []time.Time{date}
	}
	return days
}

func (r *run) viableCandidates(dayIdx int, task *models.Task, cat *models.TaskCategory, occupy []time.Time) []*candidate {
	var out []*candidate
	for _, p := range r.e.roster.Physicians() {
		if !r.viable(p, task, cat, occupy) {
			continue
		}
		acc := r.accFor(p.ID)
		out = append(out, &candidate{
			Physician: p,
			Heaviness: acc.heaviness,
			Score:     r.scoreFor(dayIdx, p, cat, acc),
		})
	}
	return out
}

func (r *run) viable(p *models.Physician, task *models.Task, cat *models.TaskCategory, occupy []time.Time) bool {
	if !r.e.roster.IsEligible(p, cat) {
		return false
	}
	acc := r.accFor(p.ID)
	for _, d := range occupy {
		if !r.e.roster.IsAvailable(p.ID, d) {
			return false
		}
		if _, busy := acc.occupied[d]; busy {
			return false
		}
	}
	// The ceiling is soft: it filters optional work only, so mandatory tasks
	// can still land on an over-ceiling physician.
	if !task.Mandatory && r.basis > 0 {
		if r.e.roster.RemainingCapacity(p.ID, acc.heaviness, r.basis) < float64(task.Heaviness) {
			return false
		}
	}
	return true
}

func (r *run) scoreFor(dayIdx int, p *models.Physician, cat *models.TaskCategory, acc *accumulator) float64 {
	prevSame := false
	if dayIdx > 0 {
		prevSame = acc.occupied[r.days[dayIdx-1].Date] == cat.Name
	}
	remaining := r.e.roster.RemainingCapacity(p.ID, acc.heaviness, r.basis)
	ceiling := p.FTEFraction * r.basis
	return r.e.policy.Score(p.Prefers(cat.Name), acc.heaviness, remaining, ceiling, prevSame)
}

// pickBest is the deterministic selection: best score, then least cumulative
// heaviness, then lowest physician id.
func pickBest(cands []*candidate) *candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		switch {
		case c.Score > best.Score:
			best = c
		case c.Score == best.Score && c.Heaviness < best.Heaviness:
			best = c
		case c.Score == best.Score && c.Heaviness == best.Heaviness && c.Physician.ID < best.Physician.ID:
			best = c
		}
	}
	return best
}

func (r *run) commit(date time.Time, task *models.Task, cat *models.TaskCategory, c *candidate, occupy []time.Time, span models.DateSpan, spanned bool) {
	r.schedule.Add(models.Assignment{Date: date, TaskCode: task.Code, PhysicianID: c.Physician.ID})
	acc := r.accFor(c.Physician.ID)
	acc.heaviness += task.Heaviness
	for _, d := range occupy {
		acc.occupied[d] = cat.Name
	}
	if call, ok := r.e.catalog.LinkedCall(task.Code); ok && spanned {
		r.pins = append(r.pins, pinnedCall{
			callCode:    call,
			mainCode:    task.Code,
			physicianID: c.Physician.ID,
			window:      span,
		})
	}
	r.e.logger.Debug("task assigned",
		"date", models.FormatDate(date),
		"task", task.Code,
		"physician", c.Physician.ID,
		"score", c.Score,
		"cumulative_heaviness", acc.heaviness)
}

// allocateCall keeps a call task with the physician who holds the linked main
// task for the window containing date. When the pin cannot be honoured the
// day stays open and the shortfall is recorded as a linkage violation.
func (r *run) allocateCall(date time.Time, task *models.Task, cat *models.TaskCategory, mainCode string) {
	pin := r.pinFor(task.Code, date)
	if pin == nil {
		r.gap(date, task, fmt.Sprintf("main task %s has no assignment covering this date", mainCode))
		return
	}
	p, ok := r.e.roster.Physician(pin.physicianID)
	if !ok {
		r.gap(date, task, fmt.Sprintf("pinned physician %s is not on the roster", pin.physicianID))
		return
	}

	acc := r.accFor(p.ID)
	var blocked string
	switch {
	case !r.e.roster.IsEligible(p, cat):
		blocked = "pinned physician is not eligible for the call category"
	case !r.e.roster.IsAvailable(p.ID, date):
		blocked = "pinned physician is unavailable on the call day"
	default:
		if _, busy := acc.occupied[date]; busy {
			blocked = "pinned physician is already assigned on the call day"
		}
	}
	if blocked != "" {
		r.schedule.Add(models.Assignment{Date: date, TaskCode: task.Code})
		r.anomalies = append(r.anomalies, models.Anomaly{
			Kind:        models.AnomalyLinkageViolation,
			Date:        date,
			TaskCode:    task.Code,
			PhysicianID: p.ID,
			Detail:      blocked,
		})
		r.e.logger.Warn("call day left open",
			"date", models.FormatDate(date),
			"task", task.Code,
			"main", pin.mainCode,
			"physician", p.ID,
			"reason", blocked)
		return
	}

	r.schedule.Add(models.Assignment{Date: date, TaskCode: task.Code, PhysicianID: p.ID})
	acc.heaviness += task.Heaviness
	acc.occupied[date] = cat.Name
	r.e.logger.Debug("call day assigned",
		"date", models.FormatDate(date),
		"task", task.Code,
		"main", pin.mainCode,
		"physician", p.ID)
}

func (r *run) pinFor(callCode string, date time.Time) *pinnedCall {
	for i := range r.pins {
		if r.pins[i].callCode == callCode && r.pins[i].window.StrictlyInside(date) {
			return &r.pins[i]
		}
	}
	return nil
}

// gap records an unfilled occurrence. Optional work left open is normal;
// uncovered mandatory work is surfaced as an anomaly.
func (r *run) gap(date time.Time, task *models.Task, detail string) {
	r.schedule.Add(models.Assignment{Date: date, TaskCode: task.Code})
	if !task.Mandatory {
		r.e.logger.Debug("optional task left open",
			"date", models.FormatDate(date), "task", task.Code, "reason", detail)
		return
	}
	r.anomalies = append(r.anomalies, models.Anomaly{
		Kind:     models.AnomalyUnassignableMandatory,
		Date:     date,
		TaskCode: task.Code,
		Detail:   detail,
	})
	r.e.logger.Warn("mandatory task left open",
		"date", models.FormatDate(date), "task", task.Code, "reason", detail)
}

func (r *run) accFor(id string) *accumulator {
	acc, ok := r.acc[id]
	if !ok {
		acc = &accumulator{occupied: make(map[time.Time]string)}
		r.acc[id] = acc
	}
	return acc
}

// audit re-checks the finished schedule with the same rules the conflict
// checker applies to external edits. An error-severity finding here means an
// engine invariant broke, so it is logged loudly.
func (e *Engine) audit(res *Result) {
	for _, c := range Check(res.Schedule, e.catalog, e.roster, e.cal) {
		if c.Severity != models.SeverityError {
			continue
		}
		e.logger.Error("schedule failed self-check",
			"kind", string(c.Kind),
			"date", models.FormatDate(c.Date),
			"task", c.TaskCode,
			"detail", c.Detail)
	}
}
