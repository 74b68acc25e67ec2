package catalog

import (
	"sort"
	"time"

	"physician-scheduler/internal/models"
)

// Catalog holds the task categories, the concrete tasks, and the linkage
// graph between main tasks and their call tasks. All registration methods
// validate up front and reject bad definitions with a ConfigurationError;
// a Catalog that was built without errors is structurally sound.
type Catalog struct {
	categories map[string]*models.TaskCategory
	tasks      map[string]*models.Task
	taskNames  map[string]string // display name -> code, for duplicate detection
	callOf     map[string]string // main code -> call code
	mainOf     map[string]string // call code -> main code
}

func New() *Catalog {
	return &Catalog{
		categories: make(map[string]*models.TaskCategory),
		tasks:      make(map[string]*models.Task),
		taskNames:  make(map[string]string),
		callOf:     make(map[string]string),
		mainOf:     make(map[string]string),
	}
}

func (c *Catalog) AddCategory(cat *models.TaskCategory) error {
	if cat == nil || cat.Name == "" {
		return models.NewConfigurationError("", "category name is required")
	}
	if _, exists := c.categories[cat.Name]; exists {
		return models.NewConfigurationError(cat.Name, "duplicate category name")
	}
	if !cat.DaysParameter.Valid() {
		return models.NewConfigurationError(cat.Name, "unknown days parameter %q", cat.DaysParameter)
	}
	if cat.DaysParameter == models.MultiWeek && cat.NumberOfWeeks < 1 {
		return models.NewConfigurationError(cat.Name, "multi-week category needs number_of_weeks >= 1, got %d", cat.NumberOfWeeks)
	}
	if cat.DaysParameter == models.SingleDay && cat.NumberOfWeeks != 0 {
		return models.NewConfigurationError(cat.Name, "single-day category must not set number_of_weeks")
	}
	if cat.WeekdayRevenue < 0 || cat.CallRevenue < 0 {
		return models.NewConfigurationError(cat.Name, "revenue must not be negative")
	}

	cp := *cat
	c.categories[cat.Name] = &cp
	return nil
}

func (c *Catalog) AddTask(t *models.Task) error {
	if t == nil || t.Code == "" {
		return models.NewConfigurationError("", "task code is required")
	}
	if t.Name == "" {
		return models.NewConfigurationError(t.Code, "task name is required")
	}
	if _, exists := c.tasks[t.Code]; exists {
		return models.NewConfigurationError(t.Code, "duplicate task code")
	}
	if other, exists := c.taskNames[t.Name]; exists {
		return models.NewConfigurationError(t.Code, "task name %q already used by %q", t.Name, other)
	}
	cat, ok := c.categories[t.Category]
	if !ok {
		return models.NewConfigurationError(t.Code, "unknown category %q", t.Category)
	}
	if t.Heaviness < 1 {
		return models.NewConfigurationError(t.Code, "heaviness must be a positive integer, got %d", t.Heaviness)
	}
	if t.WeekOffset < 0 {
		return models.NewConfigurationError(t.Code, "week offset must not be negative")
	}
	switch cat.DaysParameter {
	case models.SingleDay:
		if t.WeekOffset != 0 {
			return models.NewConfigurationError(t.Code, "week offset only applies to multi-week tasks")
		}
	case models.MultiWeek:
		if t.WeekOffset >= cat.NumberOfWeeks {
			return models.NewConfigurationError(t.Code, "week offset %d must be below the category span of %d weeks", t.WeekOffset, cat.NumberOfWeeks)
		}
	}

	cp := *t
	c.tasks[t.Code] = &cp
	c.taskNames[t.Name] = t.Code
	return nil
}

// Link registers a main -> call edge. The graph stays a set of disjoint
// single edges: a task may appear in at most one edge, and only on one side
// of it, which rules out cycles by construction. The main task's category
// must be multi-week, since the call window is defined by the main's span.
func (c *Catalog) Link(mainCode, callCode string) error {
	main, ok := c.tasks[mainCode]
	if !ok {
		return models.NewConfigurationError(mainCode, "unknown main task")
	}
	if _, ok := c.tasks[callCode]; !ok {
		return models.NewConfigurationError(callCode, "unknown call task")
	}
	if mainCode == callCode {
		return models.NewConfigurationError(mainCode, "task cannot link to itself")
	}
	if cat := c.categories[main.Category]; cat.DaysParameter != models.MultiWeek {
		return models.NewConfigurationError(mainCode, "linkage requires a multi-week main task")
	}
	if existing, ok := c.callOf[mainCode]; ok {
		return models.NewConfigurationError(mainCode, "already linked to call task %q", existing)
	}
	if existing, ok := c.mainOf[callCode]; ok {
		return models.NewConfigurationError(callCode, "already the call task of %q", existing)
	}
	if from, ok := c.mainOf[mainCode]; ok {
		return models.NewConfigurationError(mainCode, "cannot use the call task of %q as a main task", from)
	}
	if to, ok := c.callOf[callCode]; ok {
		return models.NewConfigurationError(callCode, "cannot use a main task (linked to %q) as a call task", to)
	}

	c.callOf[mainCode] = callCode
	c.mainOf[callCode] = mainCode
	return nil
}

// UpdateCategory replaces an existing category definition. The replacement is
// validated like AddCategory, and every task referencing the category must
// stay valid under the new definition.
func (c *Catalog) UpdateCategory(cat *models.TaskCategory) error {
	if cat == nil || cat.Name == "" {
		return models.NewConfigurationError("", "category name is required")
	}
	if _, ok := c.categories[cat.Name]; !ok {
		return models.NewConfigurationError(cat.Name, "unknown category")
	}
	if !cat.DaysParameter.Valid() {
		return models.NewConfigurationError(cat.Name, "unknown days parameter %q", cat.DaysParameter)
	}
	if cat.DaysParameter == models.MultiWeek && cat.NumberOfWeeks < 1 {
		return models.NewConfigurationError(cat.Name, "multi-week category needs number_of_weeks >= 1, got %d", cat.NumberOfWeeks)
	}
	if cat.DaysParameter == models.SingleDay && cat.NumberOfWeeks != 0 {
		return models.NewConfigurationError(cat.Name, "single-day category must not set number_of_weeks")
	}
	if cat.WeekdayRevenue < 0 || cat.CallRevenue < 0 {
		return models.NewConfigurationError(cat.Name, "revenue must not be negative")
	}
	for _, t := range c.Tasks() {
		if t.Category != cat.Name {
			continue
		}
		switch cat.DaysParameter {
		case models.SingleDay:
			if t.WeekOffset != 0 {
				return models.NewConfigurationError(cat.Name, "task %q carries a week offset; the category must stay multi-week", t.Code)
			}
			if _, linked := c.callOf[t.Code]; linked {
				return models.NewConfigurationError(cat.Name, "task %q is a linked main task; the category must stay multi-week", t.Code)
			}
		case models.MultiWeek:
			if t.WeekOffset >= cat.NumberOfWeeks {
				return models.NewConfigurationError(cat.Name, "task %q has week offset %d beyond the %d-week span", t.Code, t.WeekOffset, cat.NumberOfWeeks)
			}
		}
	}

	cp := *cat
	c.categories[cat.Name] = &cp
	return nil
}

// RemoveCategory deletes a category no task references.
func (c *Catalog) RemoveCategory(name string) error {
	if _, ok := c.categories[name]; !ok {
		return models.NewConfigurationError(name, "unknown category")
	}
	for _, t := range c.Tasks() {
		if t.Category == name {
			return models.NewConfigurationError(name, "task %q still references this category", t.Code)
		}
	}
	delete(c.categories, name)
	return nil
}

// UpdateTask replaces an existing task definition. Validation matches AddTask,
// except the display name may stay with the task being updated, and a task
// that is the main of a linkage edge must keep a multi-week category.
func (c *Catalog) UpdateTask(t *models.Task) error {
	if t == nil || t.Code == "" {
		return models.NewConfigurationError("", "task code is required")
	}
	old, ok := c.tasks[t.Code]
	if !ok {
		return models.NewConfigurationError(t.Code, "unknown task")
	}
	if t.Name == "" {
		return models.NewConfigurationError(t.Code, "task name is required")
	}
	if other, exists := c.taskNames[t.Name]; exists && other != t.Code {
		return models.NewConfigurationError(t.Code, "task name %q already used by %q", t.Name, other)
	}
	cat, ok := c.categories[t.Category]
	if !ok {
		return models.NewConfigurationError(t.Code, "unknown category %q", t.Category)
	}
	if t.Heaviness < 1 {
		return models.NewConfigurationError(t.Code, "heaviness must be a positive integer, got %d", t.Heaviness)
	}
	if t.WeekOffset < 0 {
		return models.NewConfigurationError(t.Code, "week offset must not be negative")
	}
	switch cat.DaysParameter {
	case models.SingleDay:
		if t.WeekOffset != 0 {
			return models.NewConfigurationError(t.Code, "week offset only applies to multi-week tasks")
		}
	case models.MultiWeek:
		if t.WeekOffset >= cat.NumberOfWeeks {
			return models.NewConfigurationError(t.Code, "week offset %d must be below the category span of %d weeks", t.WeekOffset, cat.NumberOfWeeks)
		}
	}
	if _, linked := c.callOf[t.Code]; linked && cat.DaysParameter != models.MultiWeek {
		return models.NewConfigurationError(t.Code, "linked main task must keep a multi-week category")
	}

	delete(c.taskNames, old.Name)
	cp := *t
	c.tasks[t.Code] = &cp
	c.taskNames[t.Name] = t.Code
	return nil
}

// RemoveTask deletes a task together with any linkage edge it sits on.
func (c *Catalog) RemoveTask(code string) error {
	t, ok := c.tasks[code]
	if !ok {
		return models.NewConfigurationError(code, "unknown task")
	}
	if call, ok := c.callOf[code]; ok {
		delete(c.callOf, code)
		delete(c.mainOf, call)
	}
	if main, ok := c.mainOf[code]; ok {
		delete(c.mainOf, code)
		delete(c.callOf, main)
	}
	delete(c.tasks, code)
	delete(c.taskNames, t.Name)
	return nil
}

// Unlink removes the edge whose main task is mainCode.
func (c *Catalog) Unlink(mainCode string) error {
	call, ok := c.callOf[mainCode]
	if !ok {
		return models.NewConfigurationError(mainCode, "no linkage with this main task")
	}
	delete(c.callOf, mainCode)
	delete(c.mainOf, call)
	return nil
}

func (c *Catalog) Category(name string) (*models.TaskCategory, bool) {
	cat, ok := c.categories[name]
	return cat, ok
}

func (c *Catalog) Task(code string) (*models.Task, bool) {
	t, ok := c.tasks[code]
	return t, ok
}

// Tasks returns all tasks sorted by code. The stable order matters: every
// consumer that iterates the catalog does so through this method, which keeps
// runs reproducible.
func (c *Catalog) Tasks() []*models.Task {
	out := make([]*models.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (c *Catalog) Categories() []*models.TaskCategory {
	out := make([]*models.TaskCategory, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Links returns the linkage edges as (main, call) pairs sorted by main code.
func (c *Catalog) Links() [][2]string {
	out := make([][2]string, 0, len(c.callOf))
	for main, call := range c.callOf {
		out = append(out, [2]string{main, call})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (c *Catalog) LinkedCall(mainCode string) (string, bool) {
	call, ok := c.callOf[mainCode]
	return call, ok
}

func (c *Catalog) MainOf(callCode string) (string, bool) {
	main, ok := c.mainOf[callCode]
	return main, ok
}

func (c *Catalog) IsCallTask(code string) bool {
	_, ok := c.mainOf[code]
	return ok
}

func (c *Catalog) IsRestricted(category string) bool {
	cat, ok := c.categories[category]
	return ok && cat.Restricted
}

// SpanFor returns the occurrence window of the multi-week task t that covers
// date: [week_start, week_start + 7N - 1]. Spans tile in N-week steps from
// anchor (the Monday of the week containing the period start), shifted by the
// task's week offset. Returns false for single-day tasks and for dates before
// the task's first span.
func (c *Catalog) SpanFor(t *models.Task, date time.Time, anchor time.Time) (models.DateSpan, bool) {
	cat, ok := c.categories[t.Category]
	if !ok || cat.DaysParameter != models.MultiWeek {
		return models.DateSpan{}, false
	}
	days := int(date.Sub(anchor).Hours() / 24)
	if days < 0 {
		return models.DateSpan{}, false
	}
	week := days / 7
	if week < t.WeekOffset {
		return models.DateSpan{}, false
	}
	n := cat.NumberOfWeeks
	startWeek := t.WeekOffset + (week-t.WeekOffset)/n*n
	start := anchor.AddDate(0, 0, startWeek*7)
	return models.DateSpan{Start: start, End: start.AddDate(0, 0, n*7-1)}, true
}

// TasksDueOn returns the tasks active on the given date, sorted by code.
// Single-day tasks fall due on every working day. A multi-week main task
// falls due on the first working day of each of its occurrence spans, one
// assignment covering the whole span. A linked call task falls due on call
// days (weekend or holiday) strictly inside its main task's span; the span
// endpoints are never valid call days.
func (c *Catalog) TasksDueOn(date time.Time, isWorking func(time.Time) bool, anchor time.Time) []*models.Task {
	var due []*models.Task
	for _, t := range c.Tasks() {
		if c.dueOn(t, date, isWorking, anchor) {
			due = append(due, t)
		}
	}
	return due
}

func (c *Catalog) dueOn(t *models.Task, date time.Time, isWorking func(time.Time) bool, anchor time.Time) bool {
	if mainCode, ok := c.mainOf[t.Code]; ok {
		if isWorking(date) {
			return false
		}
		span, ok := c.SpanFor(c.tasks[mainCode], date, anchor)
		if !ok {
			return false
		}
		return span.StrictlyInside(date)
	}

	switch c.categories[t.Category].DaysParameter {
	case models.SingleDay:
		return isWorking(date)
	case models.MultiWeek:
		span, ok := c.SpanFor(t, date, anchor)
		if !ok {
			return false
		}
		first, ok := firstWorkingDay(span, isWorking)
		return ok && first.Equal(date)
	}
	return false
}

func firstWorkingDay(span models.DateSpan, isWorking func(time.Time) bool) (time.Time, bool) {
	for d := span.Start; !d.After(span.End); d = d.AddDate(0, 0, 1) {
		if isWorking(d) {
			return d, true
		}
	}
	return time.Time{}, false
}
