// Package report renders schedules, statistics and conflict lists as aligned
// text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"physician-scheduler/internal/models"
	"physician-scheduler/internal/stats"
)

// Roster resolves physician ids to display names.
type Roster interface {
	Physician(id string) (*models.Physician, bool)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func displayName(roster Roster, id string) string {
	if p, ok := roster.Physician(id); ok {
		return fmt.Sprintf("%s (%s)", p.FullName(), p.Initials)
	}
	return id
}

// WriteSchedule renders one line per record in schedule order. Gaps show as
// OPEN.
func WriteSchedule(w io.Writer, s *models.Schedule, roster Roster) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTASK\tPHYSICIAN")
	for _, a := range s.Assignments {
		who := "OPEN"
		if !a.IsGap() {
			who = displayName(roster, a.PhysicianID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", models.FormatDate(a.Date), a.TaskCode, who)
	}
	return tw.Flush()
}

// WriteStats renders the per-physician summaries sorted by id.
func WriteStats(w io.Writer, byPhysician map[string]*stats.PhysicianStats, roster Roster) error {
	ids := make([]string, 0, len(byPhysician))
	for id := range byPhysician {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tw := newTable(w)
	fmt.Fprintln(tw, "PHYSICIAN\tFTE\tHEAVINESS\tREVENUE\tUTILIZATION\tBY CATEGORY")
	for _, id := range ids {
		st := byPhysician[id]
		fte := "-"
		if p, ok := roster.Physician(id); ok {
			fte = fmt.Sprintf("%.2f", p.FTEFraction)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.0f%%\t%s\n",
			displayName(roster, id), fte, st.TotalHeaviness, st.TotalRevenue,
			st.Utilization*100, categoryCounts(st.CountPerCategory))
	}
	return tw.Flush()
}

func categoryCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%d", name, counts[name]))
	}
	return strings.Join(parts, " ")
}

// WriteConflicts renders the checker's findings; a zero date, as on capacity
// warnings, shows as a dash.
func WriteConflicts(w io.Writer, conflicts []models.Conflict) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SEVERITY\tDATE\tKIND\tTASK\tDETAIL")
	for _, c := range conflicts {
		date := "-"
		if !c.Date.IsZero() {
			date = models.FormatDate(c.Date)
		}
		task := c.TaskCode
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Severity, date, c.Kind, task, c.Detail)
	}
	return tw.Flush()
}

// WriteAnomalies renders the engine's anomaly list.
func WriteAnomalies(w io.Writer, anomalies []models.Anomaly) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tKIND\tTASK\tPHYSICIAN\tDETAIL")
	for _, a := range anomalies {
		who := a.PhysicianID
		if who == "" {
			who = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", models.FormatDate(a.Date), a.Kind, a.TaskCode, who, a.Detail)
	}
	return tw.Flush()
}

// WriteUnassigned renders the gap list grouped as one line per occurrence.
func WriteUnassigned(w io.Writer, gaps []models.Assignment) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "DATE\tTASK")
	for _, a := range gaps {
		fmt.Fprintf(tw, "%s\t%s\n", models.FormatDate(a.Date), a.TaskCode)
	}
	return tw.Flush()
}
