package assignment

import (
	"fmt"
	"physician-scheduler/internal/models"
	"slices"
	"strings"
	"time"
)

// Check validates a schedule against the catalog, roster and calendar. The
// engine runs it on its own output as a self-check; it equally covers
// schedules loaded from disk or edited by hand. Error-severity findings are
// rule violations; warnings flag conditions the engine is allowed to
// produce, such as mandatory work pushing a physician over the soft ceiling.
// Findings come back sorted by date, task code and kind.
func Check(s *models.Schedule, catalog Catalog, roster Roster, cal Calendar) []models.Conflict {
	if s == nil {
		return nil
	}
	c := &checker{s: s, catalog: catalog, roster: roster, cal: cal}
	c.checkDuplicates()
	c.checkAssignments()
	c.checkDoubleBookings()
	c.checkCapacity()
	c.sort()
	return c.found
}

type checker struct {
	s       *models.Schedule
	catalog Catalog
	roster  Roster
	cal     Calendar
	found   []models.Conflict
}

func (c *checker) add(conflict models.Conflict) {
	c.found = append(c.found, conflict)
}

// checkDuplicates flags occurrences covered by more than one record. Gap
// records count too: a gap plus an assignment for the same occurrence is
// still two records where exactly one belongs.
func (c *checker) checkDuplicates() {
	type occurrence struct {
		date time.Time
		task string
	}
	records := make(map[occurrence][]string)
	for _, a := range c.s.Assignments {
		k := occurrence{a.Date, a.TaskCode}
		records[k] = append(records[k], a.PhysicianID)
	}
	reported := make(map[occurrence]bool)
	for _, a := range c.s.Assignments {
		k := occurrence{a.Date, a.TaskCode}
		if len(records[k]) < 2 || reported[k] {
			continue
		}
		reported[k] = true
		var ids []string
		for _, id := range records[k] {
			if id != "" {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		c.add(models.Conflict{
			Kind:         models.ConflictDuplicateAssignment,
			Severity:     models.SeverityError,
			Date:         a.Date,
			TaskCode:     a.TaskCode,
			PhysicianIDs: ids,
			Detail:       fmt.Sprintf("%d records for one occurrence", len(records[k])),
		})
	}
}

func (c *checker) checkAssignments() {
	for _, a := range c.s.Assignments {
		if a.IsGap() {
			continue
		}
		eligErr := func(ids []string, detail string) {
			c.add(models.Conflict{
				Kind:         models.ConflictEligibility,
				Severity:     models.SeverityError,
				Date:         a.Date,
				TaskCode:     a.TaskCode,
				PhysicianIDs: ids,
				Detail:       detail,
			})
		}

		task, ok := c.catalog.Task(a.TaskCode)
		if !ok {
			eligErr([]string{a.PhysicianID}, fmt.Sprintf("task %q is not in the catalog", a.TaskCode))
			continue
		}
		p, ok := c.roster.Physician(a.PhysicianID)
		if !ok {
			eligErr(nil, fmt.Sprintf("physician %q is not on the roster", a.PhysicianID))
			continue
		}
		cat, ok := c.catalog.Category(task.Category)
		if !ok {
			eligErr([]string{p.ID}, fmt.Sprintf("category %q is not in the catalog", task.Category))
			continue
		}

		if !c.roster.IsEligible(p, cat) {
			detail := fmt.Sprintf("physician %s is not eligible for category %s", p.ID, cat.Name)
			if cat.Restricted && slices.Contains(p.EligibleCategories, cat.Name) {
				detail = fmt.Sprintf("physician %s lacks the restricted permission for category %s", p.ID, cat.Name)
			}
			eligErr([]string{p.ID}, detail)
		}

		for _, d := range c.occupiedDates(task, a.Date) {
			if !c.roster.IsAvailable(p.ID, d) {
				c.add(models.Conflict{
					Kind:         models.ConflictAvailability,
					Severity:     models.SeverityError,
					Date:         a.Date,
					TaskCode:     a.TaskCode,
					PhysicianIDs: []string{p.ID},
					Detail:       fmt.Sprintf("physician %s is unavailable on %s", p.ID, models.FormatDate(d)),
				})
				break
			}
		}

		c.checkLinkage(a, task)
	}
}

// checkLinkage verifies every assigned call record: the date must be a call
// day strictly inside an occurrence window of the linked main task, the main
// occurrence must itself be assigned, and both must go to the same physician.
func (c *checker) checkLinkage(a models.Assignment, task *models.Task) {
	mainCode, ok := c.catalog.MainOf(task.Code)
	if !ok {
		return
	}
	linkErr := func(ids []string, detail string) {
		c.add(models.Conflict{
			Kind:         models.ConflictLinkage,
			Severity:     models.SeverityError,
			Date:         a.Date,
			TaskCode:     a.TaskCode,
			PhysicianIDs: ids,
			Detail:       detail,
		})
	}

	if c.cal.IsWorkingDay(a.Date) {
		linkErr([]string{a.PhysicianID}, "call task assigned on a working day")
		return
	}
	mainTask, ok := c.catalog.Task(mainCode)
	if !ok {
		linkErr([]string{a.PhysicianID}, fmt.Sprintf("linked main task %q is not in the catalog", mainCode))
		return
	}
	span, ok := c.catalog.SpanFor(mainTask, a.Date, c.cal.Anchor())
	if !ok || !span.StrictlyInside(a.Date) {
		linkErr([]string{a.PhysicianID}, fmt.Sprintf("%s is not a valid call day for %s", models.FormatDate(a.Date), mainCode))
		return
	}

	mainPhysician := ""
	for _, m := range c.s.Assignments {
		if m.TaskCode != mainCode || m.IsGap() {
			continue
		}
		ms, ok := c.catalog.SpanFor(mainTask, m.Date, c.cal.Anchor())
		if ok && ms.Start.Equal(span.Start) && ms.End.Equal(span.End) {
			mainPhysician = m.PhysicianID
			break
		}
	}
	switch {
	case mainPhysician == "":
		linkErr([]string{a.PhysicianID}, fmt.Sprintf("no assigned %s occurrence covers this call day", mainCode))
	case mainPhysician != a.PhysicianID:
		linkErr([]string{a.PhysicianID, mainPhysician},
			fmt.Sprintf("call physician %s differs from main physician %s", a.PhysicianID, mainPhysician))
	}
}

func (c *checker) checkDoubleBookings() {
	byPhysician := make(map[string]map[time.Time][]string)
	for _, a := range c.s.Assignments {
		if a.IsGap() {
			continue
		}
		task, ok := c.catalog.Task(a.TaskCode)
		if !ok {
			continue
		}
		days := byPhysician[a.PhysicianID]
		if days == nil {
			days = make(map[time.Time][]string)
			byPhysician[a.PhysicianID] = days
		}
		for _, d := range c.occupiedDates(task, a.Date) {
			days[d] = append(days[d], a.TaskCode)
		}
	}

	ids := make([]string, 0, len(byPhysician))
	for id := range byPhysician {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		days := byPhysician[id]
		dates := make([]time.Time, 0, len(days))
		for d := range days {
			dates = append(dates, d)
		}
		slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
		for _, d := range dates {
			tasks := days[d]
			if len(tasks) < 2 {
				continue
			}
			slices.Sort(tasks)
			c.add(models.Conflict{
				Kind:         models.ConflictDoubleBooking,
				Severity:     models.SeverityError,
				Date:         d,
				TaskCode:     tasks[0],
				PhysicianIDs: []string{id},
				Detail:       fmt.Sprintf("physician %s also holds %s on this day", id, strings.Join(tasks[1:], ", ")),
			})
		}
	}
}

// checkCapacity reports soft-ceiling overages. These are warnings: mandatory
// coverage is allowed to push a physician past the ceiling.
func (c *checker) checkCapacity() {
	basis := CapacityBasis(c.catalog, c.roster, c.cal, c.s.StartDate, c.s.EndDate)
	if basis <= 0 {
		return
	}
	totals := make(map[string]int)
	for _, a := range c.s.Assignments {
		if a.IsGap() {
			continue
		}
		if task, ok := c.catalog.Task(a.TaskCode); ok {
			totals[a.PhysicianID] += task.Heaviness
		}
	}
	for _, p := range c.roster.Physicians() {
		total := totals[p.ID]
		ceiling := p.FTEFraction * basis
		if float64(total) <= ceiling {
			continue
		}
		c.add(models.Conflict{
			Kind:         models.ConflictCapacityOverage,
			Severity:     models.SeverityWarning,
			PhysicianIDs: []string{p.ID},
			Detail:       fmt.Sprintf("assigned heaviness %d exceeds ceiling %.1f", total, ceiling),
		})
	}
}

// occupiedDates expands an assignment to the dates it blocks, mirroring the
// engine's occupancy bookkeeping.
func (c *checker) occupiedDates(task *models.Task, date time.Time) []time.Time {
	if _, isCall := c.catalog.MainOf(task.Code); isCall {
		return []time.Time{date}
	}
	span, ok := c.catalog.SpanFor(task, date, c.cal.Anchor())
	if !ok {
		return []time.Time{date}
	}
	var days []time.Time
	for d := span.Start; !d.After(span.End); d = d.AddDate(0, 0, 1) {
		if d.Before(c.s.StartDate) || d.After(c.s.EndDate) {
			continue
		}
		if c.cal.IsWorkingDay(d) {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		days = []time.Time{date}
	}
	return days
}

func (c *checker) sort() {
	slices.SortFunc(c.found, func(a, b models.Conflict) int {
		if cmp := a.Date.Compare(b.Date); cmp != 0 {
			return cmp
		}
		if cmp := strings.Compare(a.TaskCode, b.TaskCode); cmp != 0 {
			return cmp
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
}
