package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"physician-scheduler/internal/assignment"
	"physician-scheduler/internal/calendar"
	"physician-scheduler/internal/catalog"
	"physician-scheduler/internal/export"
	"physician-scheduler/internal/metrics"
	"physician-scheduler/internal/models"
	"physician-scheduler/internal/registry"
	"physician-scheduler/internal/report"
	"physician-scheduler/internal/stats"
	"physician-scheduler/internal/store"
)

const pushJobName = "physician_scheduler"

// Scenario structures matching the YAML config.

type scenarioCategory struct {
	Name           string  `yaml:"name"`
	DaysParameter  string  `yaml:"days_parameter"`
	NumberOfWeeks  int     `yaml:"number_of_weeks"`
	WeekdayRevenue float64 `yaml:"weekday_revenue"`
	CallRevenue    float64 `yaml:"call_revenue"`
	Restricted     bool    `yaml:"restricted"`
}

type scenarioTask struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	Heaviness  int    `yaml:"heaviness"`
	Mandatory  bool   `yaml:"mandatory"`
	WeekOffset int    `yaml:"week_offset"`
}

type scenarioLink struct {
	Main string `yaml:"main"`
	Call string `yaml:"call"`
}

type scenarioPhysician struct {
	ID                    string   `yaml:"id"`
	FirstName             string   `yaml:"first_name"`
	LastName              string   `yaml:"last_name"`
	Initials              string   `yaml:"initials"`
	EligibleCategories    []string `yaml:"eligible_categories"`
	PreferredCategories   []string `yaml:"preferred_categories"`
	RestrictedPermissions []string `yaml:"restricted_permissions"`
	FullTime              bool     `yaml:"full_time"`
	FTEFraction           float64  `yaml:"fte_fraction"`
}

type scenarioAbsence struct {
	Physician string `yaml:"physician"`
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
}

// scenario is the top-level shape of a scenario file: one holiday region plus
// the full catalog and roster the run should use.
type scenario struct {
	Region         string              `yaml:"region"`
	Categories     []scenarioCategory  `yaml:"categories"`
	Tasks          []scenarioTask      `yaml:"tasks"`
	Links          []scenarioLink      `yaml:"links"`
	Physicians     []scenarioPhysician `yaml:"physicians"`
	Unavailability []scenarioAbsence   `yaml:"unavailability"`
}

var (
	// Used for flags.
	configPath string
	startDate  string
	endDate    string
	outPath    string
	icsPath    string
	format     string
	pushURL    string
	inPath     string

	rootCmd = &cobra.Command{
		Use:   "schedctl",
		Short: "Generate and inspect physician task schedules.",
		Long: `schedctl runs the deterministic allocation engine over a scenario file,
validates saved schedules against their scenario, and reports per-physician
workload statistics.`,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Run the allocation engine over a period.",
		Long: `Generates a schedule for the given period, optionally saves it as versioned
JSON and as an iCalendar file, and prints the result to standard output.`,
		Run: runGenerateCommand,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate a saved schedule.",
		Long: `Loads a saved schedule and reports every conflict found against the
scenario's catalog and roster. Exits non-zero when an error-severity
conflict is present; capacity warnings alone do not fail the check.`,
		Run: runCheckCommand,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Report per-physician workload statistics.",
		Long: `Loads a saved schedule and prints heaviness, revenue, per-category counts
and utilization for every physician, plus any still-unfilled records.`,
		Run: runStatsCommand,
	}
)

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "scenario.yaml", "Path to the scenario YAML file.")

	generateCmd.Flags().StringVar(&startDate, "start", "", "Period start (YYYY-MM-DD).")
	generateCmd.Flags().StringVar(&endDate, "end", "", "Period end (YYYY-MM-DD).")
	generateCmd.Flags().StringVar(&outPath, "out", "", "Write the schedule as versioned JSON to this path.")
	generateCmd.Flags().StringVar(&icsPath, "ics", "", "Write an iCalendar export to this path.")
	generateCmd.Flags().StringVar(&format, "format", "text", "Output format: text|json.")
	generateCmd.Flags().StringVar(&pushURL, "push-url", "", "Pushgateway URL to push run metrics to.")

	checkCmd.Flags().StringVar(&inPath, "in", "schedule.json", "Path of the schedule to validate.")
	statsCmd.Flags().StringVar(&inPath, "in", "schedule.json", "Path of the schedule to read.")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	Execute()
}

func runGenerateCommand(cmd *cobra.Command, args []string) {
	if format != "text" && format != "json" {
		slog.Error("format must be text or json", "format", format)
		os.Exit(1)
	}
	if startDate == "" || endDate == "" {
		slog.Error("both --start and --end are required")
		os.Exit(1)
	}
	start, err := models.ParseDate(startDate)
	if err != nil {
		slog.Error("invalid start date, use YYYY-MM-DD", "error", err, "start", startDate)
		os.Exit(1)
	}
	end, err := models.ParseDate(endDate)
	if err != nil {
		slog.Error("invalid end date, use YYYY-MM-DD", "error", err, "end", endDate)
		os.Exit(1)
	}

	cat, reg, region, err := loadScenario(configPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err, "path", configPath)
		os.Exit(1)
	}
	cal, err := calendar.New(region, start, end)
	if err != nil {
		slog.Error("failed to build calendar", "error", err, "region", region)
		os.Exit(1)
	}

	engine := assignment.NewEngine(cat, reg, cal)
	metrics.Reset()
	began := time.Now()
	res, err := engine.Generate(cmd.Context(), start, end)
	if err != nil {
		slog.Error("generation failed", "error", err)
		os.Exit(1)
	}
	metrics.ObserveRun(res.Schedule, res.Anomalies, res.CapacityBasis, time.Since(began))

	if outPath != "" {
		if err := store.SaveSchedule(outPath, res.Schedule); err != nil {
			slog.Error("failed to save schedule", "error", err, "path", outPath)
			os.Exit(1)
		}
		slog.Info("schedule saved", "path", outPath, "run_id", res.RunID)
	}
	if icsPath != "" {
		if err := writeICSFile(icsPath, res, cat, cal); err != nil {
			slog.Error("failed to write calendar export", "error", err, "path", icsPath)
			os.Exit(1)
		}
		slog.Info("calendar export written", "path", icsPath)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		err = writeRunJSON(out, res)
	} else {
		err = writeRunText(out, res, reg)
	}
	if err != nil {
		slog.Error("failed to write output", "error", err)
		os.Exit(1)
	}

	if pushURL != "" {
		if err := push.New(pushURL, pushJobName).Gatherer(metrics.Registry).Push(); err != nil {
			slog.Error("failed to push metrics", "error", err, "url", pushURL)
			os.Exit(1)
		}
		slog.Info("metrics pushed", "url", pushURL)
	}
}

func runCheckCommand(cmd *cobra.Command, args []string) {
	cat, reg, region, err := loadScenario(configPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err, "path", configPath)
		os.Exit(1)
	}
	s, err := store.LoadSchedule(inPath)
	if err != nil {
		slog.Error("failed to load schedule", "error", err, "path", inPath)
		os.Exit(1)
	}
	cal, err := calendar.New(region, s.StartDate, s.EndDate)
	if err != nil {
		slog.Error("failed to build calendar", "error", err, "region", region)
		os.Exit(1)
	}

	conflicts := assignment.Check(s, cat, reg, cal)
	metrics.ObserveConflicts(conflicts)

	out := cmd.OutOrStdout()
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "No conflicts found.")
		return
	}
	if err := report.WriteConflicts(out, conflicts); err != nil {
		slog.Error("failed to write output", "error", err)
		os.Exit(1)
	}
	for _, c := range conflicts {
		if c.Severity == models.SeverityError {
			os.Exit(1)
		}
	}
}

func runStatsCommand(cmd *cobra.Command, args []string) {
	cat, reg, region, err := loadScenario(configPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err, "path", configPath)
		os.Exit(1)
	}
	s, err := store.LoadSchedule(inPath)
	if err != nil {
		slog.Error("failed to load schedule", "error", err, "path", inPath)
		os.Exit(1)
	}
	cal, err := calendar.New(region, s.StartDate, s.EndDate)
	if err != nil {
		slog.Error("failed to build calendar", "error", err, "region", region)
		os.Exit(1)
	}

	basis := assignment.CapacityBasis(cat, reg, cal, s.StartDate, s.EndDate)
	byPhysician := stats.Collect(s, cat, reg, basis)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Period %s to %s, capacity basis %.2f heaviness per FTE\n\n",
		models.FormatDate(s.StartDate), models.FormatDate(s.EndDate), basis)
	if err := report.WriteStats(out, byPhysician, reg); err != nil {
		slog.Error("failed to write output", "error", err)
		os.Exit(1)
	}
	if open := stats.UnassignedTasks(s); len(open) > 0 {
		fmt.Fprintln(out)
		if err := report.WriteUnassigned(out, open); err != nil {
			slog.Error("failed to write output", "error", err)
			os.Exit(1)
		}
	}
}

// loadScenario reads a scenario file and builds the catalog and roster it
// declares. Any rejected entry surfaces as a ConfigurationError naming the
// offending reference.
func loadScenario(path string) (*catalog.Catalog, *registry.Registry, calendar.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("could not read scenario '%s': %w", path, err)
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, nil, "", fmt.Errorf("could not parse scenario '%s': %w", path, err)
	}

	region, err := calendar.ParseRegion(sc.Region)
	if err != nil {
		return nil, nil, "", err
	}

	cat := catalog.New()
	for _, c := range sc.Categories {
		err := cat.AddCategory(&models.TaskCategory{
			Name:           c.Name,
			DaysParameter:  models.DaysParameter(c.DaysParameter),
			NumberOfWeeks:  c.NumberOfWeeks,
			WeekdayRevenue: c.WeekdayRevenue,
			CallRevenue:    c.CallRevenue,
			Restricted:     c.Restricted,
		})
		if err != nil {
			return nil, nil, "", err
		}
	}
	for _, t := range sc.Tasks {
		err := cat.AddTask(&models.Task{
			Code:       t.Code,
			Name:       t.Name,
			Category:   t.Category,
			Heaviness:  t.Heaviness,
			Mandatory:  t.Mandatory,
			WeekOffset: t.WeekOffset,
		})
		if err != nil {
			return nil, nil, "", err
		}
	}
	for _, l := range sc.Links {
		if err := cat.Link(l.Main, l.Call); err != nil {
			return nil, nil, "", err
		}
	}

	reg := registry.New()
	for _, p := range sc.Physicians {
		fte := p.FTEFraction
		if fte == 0 && p.FullTime {
			// Full-timers may leave the fraction out.
			fte = 1
		}
		err := reg.Add(&models.Physician{
			ID:                    p.ID,
			FirstName:             p.FirstName,
			LastName:              p.LastName,
			Initials:              p.Initials,
			EligibleCategories:    p.EligibleCategories,
			PreferredCategories:   p.PreferredCategories,
			RestrictedPermissions: p.RestrictedPermissions,
			FullTime:              p.FullTime,
			FTEFraction:           fte,
		})
		if err != nil {
			return nil, nil, "", err
		}
	}
	for _, u := range sc.Unavailability {
		span, err := parseSpan(u.Start, u.End)
		if err != nil {
			return nil, nil, "", fmt.Errorf("unavailability of '%s': %w", u.Physician, err)
		}
		if err := reg.AddUnavailability(u.Physician, span); err != nil {
			return nil, nil, "", err
		}
	}
	return cat, reg, region, nil
}

// parseSpan reads an absence range; a missing end means a single day.
func parseSpan(startStr, endStr string) (models.DateSpan, error) {
	if endStr == "" {
		endStr = startStr
	}
	start, err := models.ParseDate(startStr)
	if err != nil {
		return models.DateSpan{}, err
	}
	end, err := models.ParseDate(endStr)
	if err != nil {
		return models.DateSpan{}, err
	}
	return models.DateSpan{Start: start, End: end}, nil
}

func writeRunText(w io.Writer, res *assignment.Result, reg *registry.Registry) error {
	gaps := res.Schedule.Gaps()
	filled := len(res.Schedule.Assignments) - len(gaps)
	fmt.Fprintf(w, "Run %s: %s to %s\n", res.RunID,
		models.FormatDate(res.Schedule.StartDate), models.FormatDate(res.Schedule.EndDate))
	fmt.Fprintf(w, "%d assignments, %d gaps, capacity basis %.2f heaviness per FTE\n\n",
		filled, len(gaps), res.CapacityBasis)
	if err := report.WriteSchedule(w, res.Schedule, reg); err != nil {
		return err
	}
	if len(res.Anomalies) > 0 {
		fmt.Fprintln(w)
		return report.WriteAnomalies(w, res.Anomalies)
	}
	return nil
}

// runDocument is the machine-readable shape of one run: metadata plus the
// same versioned schedule document SaveSchedule writes.
type runDocument struct {
	RunID         string           `json:"run_id"`
	CapacityBasis float64          `json:"capacity_basis"`
	Anomalies     []models.Anomaly `json:"anomalies,omitempty"`
	Schedule      json.RawMessage  `json:"schedule"`
}

func writeRunJSON(w io.Writer, res *assignment.Result) error {
	var buf bytes.Buffer
	if err := store.EncodeSchedule(&buf, res.Schedule); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runDocument{
		RunID:         res.RunID.String(),
		CapacityBasis: res.CapacityBasis,
		Anomalies:     res.Anomalies,
		Schedule:      json.RawMessage(bytes.TrimSpace(buf.Bytes())),
	})
}

func writeICSFile(path string, res *assignment.Result, cat *catalog.Catalog, cal *calendar.Calendar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteICS(f, res.Schedule, cat, cal.Anchor(), res.RunID.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
