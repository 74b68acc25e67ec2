// Package export renders schedules for external consumers.
package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"physician-scheduler/internal/models"
)

// Catalog is the slice of the task catalog the exporter reads.
type Catalog interface {
	Task(code string) (*models.Task, bool)
	SpanFor(t *models.Task, date time.Time, anchor time.Time) (models.DateSpan, bool)
	MainOf(callCode string) (string, bool)
}

// WriteICS renders every non-gap assignment as an all-day VEVENT with the
// task's display name as summary and the physician id as attendee. Single-day
// tasks and call days span one day; a multi-week main spans its whole
// occurrence window, DTEND exclusive per RFC 5545. anchor is the week anchor
// the schedule was generated with. Event UIDs derive from runID, so exporting
// the same run twice yields identical files apart from the timestamps.
func WriteICS(w io.Writer, s *models.Schedule, catalog Catalog, anchor time.Time, runID string) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//physician-scheduler//EN")

	stamp := time.Now().UTC()
	for i, a := range s.Assignments {
		if a.IsGap() {
			continue
		}
		start := a.Date
		end := a.Date.AddDate(0, 0, 1)
		summary := a.TaskCode
		if task, ok := catalog.Task(a.TaskCode); ok {
			summary = task.Name
			if _, isCall := catalog.MainOf(task.Code); !isCall {
				if span, ok := catalog.SpanFor(task, a.Date, anchor); ok {
					end = span.End.AddDate(0, 0, 1)
				}
			}
		}

		event := cal.AddEvent(fmt.Sprintf("%s-%d@physician-scheduler", runID, i))
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(end)
		event.SetSummary(summary)
		event.SetDescription(a.TaskCode)
		event.AddAttendee(a.PhysicianID)
	}
	return cal.SerializeTo(w)
}
