package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/CAFxX/httpcompression"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"physician-scheduler/internal/assignment"
	"physician-scheduler/internal/calendar"
	"physician-scheduler/internal/catalog"
	"physician-scheduler/internal/export"
	"physician-scheduler/internal/metrics"
	"physician-scheduler/internal/middleware"
	"physician-scheduler/internal/models"
	"physician-scheduler/internal/registry"
	"physician-scheduler/internal/stats"
	"physician-scheduler/internal/store"
)

// Settings is the scheduling period the next generation run will use.
type Settings struct {
	Region    calendar.Region
	StartDate time.Time
	EndDate   time.Time
}

// runState keeps the latest generation together with the calendar it ran
// against, so conflict checks and exports see the same holiday marks.
type runState struct {
	Result      *assignment.Result
	Cal         *calendar.Calendar
	GeneratedAt time.Time
	Elapsed     time.Duration
}

var (
	catalogMu sync.RWMutex
	cat       *catalog.Catalog

	registryMu sync.RWMutex
	reg        *registry.Registry

	settingsMu sync.RWMutex
	settings   Settings

	runMu   sync.RWMutex
	lastRun *runState

	// archive stays nil unless DATABASE_URL is set at startup.
	archive *store.PostgresStore

	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

func init() {
	seedDemoData()
}

// seedDemoData loads a small teaching-hospital setup so the UI is usable
// before any configuration has been entered.
func seedDemoData() {
	must := func(err error) {
		if err != nil {
			log.Fatalf("demo data: %v", err)
		}
	}

	c := catalog.New()
	must(c.AddCategory(&models.TaskCategory{Name: "CTU", DaysParameter: models.MultiWeek, NumberOfWeeks: 2, WeekdayRevenue: 2000, CallRevenue: 1200}))
	must(c.AddCategory(&models.TaskCategory{Name: "CLINIC", DaysParameter: models.SingleDay, WeekdayRevenue: 1500}))
	must(c.AddCategory(&models.TaskCategory{Name: "ECHO", DaysParameter: models.SingleDay, WeekdayRevenue: 1700}))
	must(c.AddCategory(&models.TaskCategory{Name: "NEURO", DaysParameter: models.SingleDay, Restricted: true, WeekdayRevenue: 2500}))

	must(c.AddTask(&models.Task{Code: "CTU_A", Name: "CTU Ward A", Category: "CTU", Heaviness: 4, Mandatory: true}))
	must(c.AddTask(&models.Task{Code: "CTU_A_CALL", Name: "CTU Ward A Call", Category: "CTU", Heaviness: 2}))
	must(c.AddTask(&models.Task{Code: "CTU_B", Name: "CTU Ward B", Category: "CTU", Heaviness: 4, Mandatory: true, WeekOffset: 1}))
	must(c.AddTask(&models.Task{Code: "CTU_B_CALL", Name: "CTU Ward B Call", Category: "CTU", Heaviness: 2}))
	must(c.AddTask(&models.Task{Code: "CLN_AM", Name: "Morning Clinic", Category: "CLINIC", Heaviness: 2, Mandatory: true}))
	must(c.AddTask(&models.Task{Code: "CLN_PM", Name: "Afternoon Clinic", Category: "CLINIC", Heaviness: 2}))
	must(c.AddTask(&models.Task{Code: "ECHO_1", Name: "Echo Lab", Category: "ECHO", Heaviness: 3}))
	must(c.AddTask(&models.Task{Code: "NEU_1", Name: "Neuro Consult Service", Category: "NEURO", Heaviness: 3, Mandatory: true}))
	must(c.Link("CTU_A", "CTU_A_CALL"))
	must(c.Link("CTU_B", "CTU_B_CALL"))

	r := registry.New()
	must(r.Add(&models.Physician{ID: "p01", FirstName: "Anne", LastName: "Gagnon", EligibleCategories: []string{"CTU", "CLINIC", "NEURO"}, PreferredCategories: []string{"CTU"}, RestrictedPermissions: []string{"NEURO"}, FullTime: true, FTEFraction: 1}))
	must(r.Add(&models.Physician{ID: "p02", FirstName: "Marc", LastName: "Roy", EligibleCategories: []string{"CTU", "CLINIC", "ECHO"}, PreferredCategories: []string{"ECHO"}, FullTime: true, FTEFraction: 1}))
	must(r.Add(&models.Physician{ID: "p03", FirstName: "Lise", LastName: "Bouchard", EligibleCategories: []string{"CTU", "CLINIC"}, FullTime: true, FTEFraction: 1}))
	must(r.Add(&models.Physician{ID: "p04", FirstName: "Paul", LastName: "Tremblay", EligibleCategories: []string{"CLINIC", "ECHO"}, FTEFraction: 0.6}))
	must(r.Add(&models.Physician{ID: "p05", FirstName: "Julie", LastName: "Fortin", EligibleCategories: []string{"CTU", "CLINIC", "NEURO"}, RestrictedPermissions: []string{"NEURO"}, FTEFraction: 0.8}))
	must(r.Add(&models.Physician{ID: "p06", FirstName: "Denis", LastName: "Lavoie", EligibleCategories: []string{"CTU", "CLINIC"}, PreferredCategories: []string{"CLINIC"}, FullTime: true, FTEFraction: 1}))

	start := models.WeekStart(models.Midnight(time.Now()).AddDate(0, 0, 7))
	cat = c
	reg = r
	settings = Settings{
		Region:    calendar.RegionCanadaQC,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 27),
	}
}

func regionNames() []string {
	return []string{
		string(calendar.RegionCanadaQC),
		string(calendar.RegionCanadaON),
		string(calendar.RegionUSACA),
		string(calendar.RegionUSANY),
	}
}

// physicianLabel resolves an id for display; gaps come back as OPEN.
func physicianLabel(id string) string {
	if id == "" {
		return "OPEN"
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	if p, ok := reg.Physician(id); ok {
		return p.FullName() + " (" + p.Initials + ")"
	}
	return id
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

// currentRun fetches the latest generation or answers 404 when none exists.
func currentRun(w http.ResponseWriter) *runState {
	runMu.RLock()
	run := lastRun
	runMu.RUnlock()
	if run == nil {
		http.Error(w, "No schedule generated yet", http.StatusNotFound)
		return nil
	}
	return run
}

// ---- Pages ----

type RecentAssignment struct {
	Date      string
	TaskCode  string
	Physician string
}

type DashboardData struct {
	PhysicianCount int
	TaskCount      int
	CategoryCount  int
	TotalFTE       float64
	Region         string
	PeriodStart    string
	PeriodEnd      string
	Regions        []string
	HasRun         bool
	RunID          string
	GeneratedAt    string
	Assignments    int
	Gaps           int
	Anomalies      int
	CapacityBasis  float64
	Recent         []RecentAssignment
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	catalogMu.RLock()
	taskCount := len(cat.Tasks())
	categoryCount := len(cat.Categories())
	catalogMu.RUnlock()

	registryMu.RLock()
	physicianCount := len(reg.Physicians())
	totalFTE := reg.TotalFTE()
	registryMu.RUnlock()

	settingsMu.RLock()
	data := DashboardData{
		PhysicianCount: physicianCount,
		TaskCount:      taskCount,
		CategoryCount:  categoryCount,
		TotalFTE:       totalFTE,
		Region:         string(settings.Region),
		PeriodStart:    models.FormatDate(settings.StartDate),
		PeriodEnd:      models.FormatDate(settings.EndDate),
		Regions:        regionNames(),
	}
	settingsMu.RUnlock()

	runMu.RLock()
	if lastRun != nil {
		res := lastRun.Result
		gaps := len(res.Schedule.Gaps())
		data.HasRun = true
		data.RunID = res.RunID.String()
		data.GeneratedAt = lastRun.GeneratedAt.Format(time.RFC3339)
		data.Assignments = len(res.Schedule.Assignments) - gaps
		data.Gaps = gaps
		data.Anomalies = len(res.Anomalies)
		data.CapacityBasis = res.CapacityBasis

		records := res.Schedule.Assignments
		limit := 15
		if len(records) < limit {
			limit = len(records)
		}
		for _, a := range records[len(records)-limit:] {
			data.Recent = append(data.Recent, RecentAssignment{
				Date:      models.FormatDate(a.Date),
				TaskCode:  a.TaskCode,
				Physician: physicianLabel(a.PhysicianID),
			})
		}
	}
	runMu.RUnlock()

	render(w, r, "dashboard.html", data)
}

type SpanView struct {
	Start string
	End   string
}

type PhysicianView struct {
	ID             string
	FirstName      string
	LastName       string
	Name           string
	Initials       string
	FTEFraction    float64
	FullTime       bool
	Eligible       []string
	Preferred      []string
	Permissions    []string
	Unavailability []SpanView
}

type PhysiciansData struct {
	Physicians []PhysicianView
	Categories []string
}

func handlePhysicians(w http.ResponseWriter, r *http.Request) {
	catalogMu.RLock()
	var categories []string
	for _, c := range cat.Categories() {
		categories = append(categories, c.Name)
	}
	catalogMu.RUnlock()

	registryMu.RLock()
	data := PhysiciansData{Categories: categories}
	for _, p := range reg.Physicians() {
		v := PhysicianView{
			ID:          p.ID,
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			Name:        p.FullName(),
			Initials:    p.Initials,
			FTEFraction: p.FTEFraction,
			FullTime:    p.FullTime,
			Eligible:    p.EligibleCategories,
			Preferred:   p.PreferredCategories,
			Permissions: p.RestrictedPermissions,
		}
		for _, s := range reg.Unavailability(p.ID) {
			v.Unavailability = append(v.Unavailability, SpanView{
				Start: models.FormatDate(s.Start),
				End:   models.FormatDate(s.End),
			})
		}
		data.Physicians = append(data.Physicians, v)
	}
	registryMu.RUnlock()

	render(w, r, "physicians.html", data)
}

type CategoryView struct {
	Name           string
	DaysParameter  string
	NumberOfWeeks  int
	WeekdayRevenue float64
	CallRevenue    float64
	Restricted     bool
}

type TaskView struct {
	Code       string
	Name       string
	Category   string
	Heaviness  int
	Mandatory  bool
	WeekOffset int
}

type LinkView struct {
	Main string
	Call string
}

type TasksData struct {
	Categories    []CategoryView
	Tasks         []TaskView
	Links         []LinkView
	CategoryNames []string
	TaskCodes     []string
}

func handleTasks(w http.ResponseWriter, r *http.Request) {
	catalogMu.RLock()
	data := TasksData{}
	for _, c := range cat.Categories() {
		data.Categories = append(data.Categories, CategoryView{
			Name:           c.Name,
			DaysParameter:  string(c.DaysParameter),
			NumberOfWeeks:  c.NumberOfWeeks,
			WeekdayRevenue: c.WeekdayRevenue,
			CallRevenue:    c.CallRevenue,
			Restricted:     c.Restricted,
		})
		data.CategoryNames = append(data.CategoryNames, c.Name)
	}
	for _, t := range cat.Tasks() {
		data.Tasks = append(data.Tasks, TaskView{
			Code:       t.Code,
			Name:       t.Name,
			Category:   t.Category,
			Heaviness:  t.Heaviness,
			Mandatory:  t.Mandatory,
			WeekOffset: t.WeekOffset,
		})
		data.TaskCodes = append(data.TaskCodes, t.Code)
	}
	for _, edge := range cat.Links() {
		data.Links = append(data.Links, LinkView{Main: edge[0], Call: edge[1]})
	}
	catalogMu.RUnlock()

	render(w, r, "tasks.html", data)
}

type RecordView struct {
	TaskCode  string
	TaskName  string
	Physician string
	Gap       bool
}

type CalendarDayView struct {
	Date    string
	Weekday string
	Holiday string
	Weekend bool
	Records []RecordView
}

type AnomalyView struct {
	Kind      string
	Date      string
	TaskCode  string
	Physician string
	Detail    string
}

type CalendarData struct {
	HasRun        bool
	RunID         string
	GeneratedAt   string
	Elapsed       string
	CapacityBasis float64
	Assignments   int
	Gaps          int
	Days          []CalendarDayView
	Anomalies     []AnomalyView
}

func handleCalendar(w http.ResponseWriter, r *http.Request) {
	runMu.RLock()
	run := lastRun
	runMu.RUnlock()

	data := CalendarData{}
	if run == nil {
		render(w, r, "calendar.html", data)
		return
	}

	res := run.Result
	gaps := len(res.Schedule.Gaps())
	data.HasRun = true
	data.RunID = res.RunID.String()
	data.GeneratedAt = run.GeneratedAt.Format(time.RFC3339)
	data.Elapsed = run.Elapsed.Round(time.Millisecond).String()
	data.CapacityBasis = res.CapacityBasis
	data.Assignments = len(res.Schedule.Assignments) - gaps
	data.Gaps = gaps

	byDate := make(map[time.Time][]models.Assignment)
	for _, a := range res.Schedule.Assignments {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	catalogMu.RLock()
	for _, day := range run.Cal.Days() {
		dv := CalendarDayView{
			Date:    models.FormatDate(day.Date),
			Weekday: day.Date.Weekday().String()[:3],
			Holiday: day.HolidayName,
			Weekend: day.IsWeekend,
		}
		for _, a := range byDate[day.Date] {
			name := a.TaskCode
			if t, ok := cat.Task(a.TaskCode); ok {
				name = t.Name
			}
			dv.Records = append(dv.Records, RecordView{
				TaskCode:  a.TaskCode,
				TaskName:  name,
				Physician: physicianLabel(a.PhysicianID),
				Gap:       a.IsGap(),
			})
		}
		data.Days = append(data.Days, dv)
	}
	catalogMu.RUnlock()

	for _, an := range res.Anomalies {
		data.Anomalies = append(data.Anomalies, AnomalyView{
			Kind:      string(an.Kind),
			Date:      models.FormatDate(an.Date),
			TaskCode:  an.TaskCode,
			Physician: an.PhysicianID,
			Detail:    an.Detail,
		})
	}

	render(w, r, "calendar.html", data)
}

// ---- Physician configuration ----

func physicianFromForm(r *http.Request) (*models.Physician, error) {
	fte := 1.0
	if v := r.FormValue("fte_fraction"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, models.NewConfigurationError(r.FormValue("id"), "invalid fte_fraction %q", v)
		}
		fte = parsed
	}
	return &models.Physician{
		ID:                    r.FormValue("id"),
		FirstName:             r.FormValue("first_name"),
		LastName:              r.FormValue("last_name"),
		Initials:              r.FormValue("initials"),
		EligibleCategories:    r.Form["eligible"],
		PreferredCategories:   r.Form["preferred"],
		RestrictedPermissions: r.Form["permissions"],
		FullTime:              r.FormValue("full_time") == "on",
		FTEFraction:           fte,
	}, nil
}

func handleAPIPhysicians(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	p, err := physicianFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	registryMu.Lock()
	err = reg.Add(p)
	registryMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("physician added", "id", p.ID)
	http.Redirect(w, r, "/physicians", http.StatusSeeOther)
}

func handleEditPhysician(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	p, err := physicianFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	registryMu.Lock()
	err = reg.Update(p)
	registryMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("physician updated", "id", p.ID)
	http.Redirect(w, r, "/physicians", http.StatusSeeOther)
}

func handleDeletePhysician(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.FormValue("id")

	registryMu.Lock()
	err := reg.Remove(id)
	registryMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("physician removed", "id", id)
	http.Redirect(w, r, "/physicians", http.StatusSeeOther)
}

func handleAPIUnavailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.FormValue("physician_id")
	start, err := models.ParseDate(r.FormValue("start"))
	if err != nil {
		http.Error(w, "Invalid start date", http.StatusBadRequest)
		return
	}
	end := start
	if v := r.FormValue("end"); v != "" {
		end, err = models.ParseDate(v)
		if err != nil {
			http.Error(w, "Invalid end date", http.StatusBadRequest)
			return
		}
	}

	registryMu.Lock()
	err = reg.AddUnavailability(id, models.DateSpan{Start: start, End: end})
	registryMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("unavailability added", "id", id,
		"start", models.FormatDate(start), "end", models.FormatDate(end))
	http.Redirect(w, r, "/physicians", http.StatusSeeOther)
}

func handleDeleteUnavailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	id := r.FormValue("physician_id")
	start, err := models.ParseDate(r.FormValue("start"))
	if err != nil {
		http.Error(w, "Invalid start date", http.StatusBadRequest)
		return
	}

	registryMu.Lock()
	err = reg.RemoveUnavailability(id, start)
	registryMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/physicians", http.StatusSeeOther)
}

// ---- Task configuration ----

func categoryFromForm(r *http.Request) (*models.TaskCategory, error) {
	name := r.FormValue("name")
	weeks := 0
	if v := r.FormValue("number_of_weeks"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, models.NewConfigurationError(name, "invalid number_of_weeks %q", v)
		}
		weeks = parsed
	}
	weekday, err := parseRevenue(name, "weekday_revenue", r.FormValue("weekday_revenue"))
	if err != nil {
		return nil, err
	}
	call, err := parseRevenue(name, "call_revenue", r.FormValue("call_revenue"))
	if err != nil {
		return nil, err
	}
	return &models.TaskCategory{
		Name:           name,
		DaysParameter:  models.DaysParameter(r.FormValue("days_parameter")),
		NumberOfWeeks:  weeks,
		WeekdayRevenue: weekday,
		CallRevenue:    call,
		Restricted:     r.FormValue("restricted") == "on",
	}, nil
}

func parseRevenue(ref, field, v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, models.NewConfigurationError(ref, "invalid %s %q", field, v)
	}
	return parsed, nil
}

func handleAPICategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	c, err := categoryFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogMu.Lock()
	err = cat.AddCategory(c)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("category added", "name", c.Name)
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleEditCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	c, err := categoryFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogMu.Lock()
	err = cat.UpdateCategory(c)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	name := r.FormValue("name")

	catalogMu.Lock()
	err := cat.RemoveCategory(name)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func taskFromForm(r *http.Request) (*models.Task, error) {
	code := r.FormValue("code")
	heaviness, err := strconv.Atoi(r.FormValue("heaviness"))
	if err != nil {
		return nil, models.NewConfigurationError(code, "invalid heaviness %q", r.FormValue("heaviness"))
	}
	offset := 0
	if v := r.FormValue("week_offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil {
			return nil, models.NewConfigurationError(code, "invalid week_offset %q", v)
		}
	}
	return &models.Task{
		Code:       code,
		Name:       r.FormValue("name"),
		Category:   r.FormValue("category"),
		Heaviness:  heaviness,
		Mandatory:  r.FormValue("mandatory") == "on",
		WeekOffset: offset,
	}, nil
}

func handleAPITasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	t, err := taskFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogMu.Lock()
	err = cat.AddTask(t)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("task added", "code", t.Code)
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleEditTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	t, err := taskFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogMu.Lock()
	err = cat.UpdateTask(t)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	code := r.FormValue("code")

	catalogMu.Lock()
	err := cat.RemoveTask(code)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleAPILinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	main := r.FormValue("main")
	call := r.FormValue("call")

	catalogMu.Lock()
	err := cat.Link(main, call)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info("tasks linked", "main", main, "call", call)
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

func handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	main := r.FormValue("main")

	catalogMu.Lock()
	err := cat.Unlink(main)
	catalogMu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

// ---- Period settings ----

func handleAPISettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	region, err := calendar.ParseRegion(r.FormValue("region"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := models.ParseDate(r.FormValue("start_date"))
	if err != nil {
		http.Error(w, "Invalid start date", http.StatusBadRequest)
		return
	}
	end, err := models.ParseDate(r.FormValue("end_date"))
	if err != nil {
		http.Error(w, "Invalid end date", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		http.Error(w, "End date precedes start date", http.StatusBadRequest)
		return
	}

	settingsMu.Lock()
	settings = Settings{Region: region, StartDate: start, EndDate: end}
	settingsMu.Unlock()

	logger.Info("settings updated",
		"region", string(region),
		"start", models.FormatDate(start),
		"end", models.FormatDate(end))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ---- Generation and results ----

func handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	settingsMu.RLock()
	s := settings
	settingsMu.RUnlock()

	cal, err := calendar.New(s.Region, s.StartDate, s.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogMu.RLock()
	registryMu.RLock()
	engine := assignment.NewEngine(cat, reg, cal, assignment.WithLogger(logger))
	started := time.Now()
	res, err := engine.Generate(r.Context(), s.StartDate, s.EndDate)
	elapsed := time.Since(started)
	roster := reg.Physicians()
	registryMu.RUnlock()
	catalogMu.RUnlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics.ObserveRun(res.Schedule, res.Anomalies, res.CapacityBasis, elapsed)

	runMu.Lock()
	lastRun = &runState{Result: res, Cal: cal, GeneratedAt: time.Now(), Elapsed: elapsed}
	runMu.Unlock()

	logger.Info("schedule generated",
		"run_id", res.RunID,
		"assignments", len(res.Schedule.Assignments)-len(res.Schedule.Gaps()),
		"gaps", len(res.Schedule.Gaps()),
		"anomalies", len(res.Anomalies),
		"elapsed", elapsed)

	if archive != nil {
		ctx := context.Background()
		if err := archive.SaveRun(ctx, res.RunID.String(), res.Schedule, res.CapacityBasis); err != nil {
			logger.Error("archive run", "run_id", res.RunID, "err", err)
		} else if err := archive.SaveRoster(ctx, roster); err != nil {
			logger.Error("archive roster", "err", err)
		}
	}

	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}

func handleSchedule(w http.ResponseWriter, r *http.Request) {
	run := currentRun(w)
	if run == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := store.EncodeSchedule(w, run.Result.Schedule); err != nil {
		logger.Error("encode schedule", "err", err)
	}
}

func handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	run := currentRun(w)
	if run == nil {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)

	catalogMu.RLock()
	err := export.WriteICS(w, run.Result.Schedule, cat, run.Cal.Anchor(), run.Result.RunID.String())
	catalogMu.RUnlock()
	if err != nil {
		logger.Error("write ics", "err", err)
	}
}

type statisticsResponse struct {
	RunID         string                           `json:"run_id"`
	CapacityBasis float64                          `json:"capacity_basis"`
	Physicians    map[string]*stats.PhysicianStats `json:"physicians"`
	Unassigned    []models.Assignment              `json:"unassigned,omitempty"`
}

func handleStatistics(w http.ResponseWriter, r *http.Request) {
	run := currentRun(w)
	if run == nil {
		return
	}

	catalogMu.RLock()
	registryMu.RLock()
	byPhysician := stats.Collect(run.Result.Schedule, cat, reg, run.Result.CapacityBasis)
	registryMu.RUnlock()
	catalogMu.RUnlock()

	writeJSON(w, statisticsResponse{
		RunID:         run.Result.RunID.String(),
		CapacityBasis: run.Result.CapacityBasis,
		Physicians:    byPhysician,
		Unassigned:    stats.UnassignedTasks(run.Result.Schedule),
	})
}

func handleConflicts(w http.ResponseWriter, r *http.Request) {
	run := currentRun(w)
	if run == nil {
		return
	}

	catalogMu.RLock()
	registryMu.RLock()
	conflicts := assignment.Check(run.Result.Schedule, cat, reg, run.Cal)
	registryMu.RUnlock()
	catalogMu.RUnlock()

	metrics.ObserveConflicts(conflicts)
	writeJSON(w, struct {
		RunID     string            `json:"run_id"`
		Conflicts []models.Conflict `json:"conflicts"`
	}{run.Result.RunID.String(), conflicts})
}

func handleAnomalies(w http.ResponseWriter, r *http.Request) {
	run := currentRun(w)
	if run == nil {
		return
	}
	writeJSON(w, struct {
		RunID     string           `json:"run_id"`
		Anomalies []models.Anomaly `json:"anomalies"`
	}{run.Result.RunID.String(), run.Result.Anomalies})
}

func handleRuns(w http.ResponseWriter, r *http.Request) {
	if archive == nil {
		http.Error(w, "Run archive requires DATABASE_URL", http.StatusServiceUnavailable)
		return
	}
	runs, err := archive.ListRuns(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// ---- Wiring ----

func newMux() http.Handler {
	mux := http.NewServeMux()
	csrf := func(h http.HandlerFunc) http.Handler { return middleware.CSRF(h) }

	mux.Handle("/", csrf(handleDashboard))
	mux.Handle("/physicians", csrf(handlePhysicians))
	mux.Handle("/tasks", csrf(handleTasks))
	mux.Handle("/calendar", csrf(handleCalendar))

	mux.Handle("/api/physicians", csrf(handleAPIPhysicians))
	mux.Handle("/api/physicians/edit", csrf(handleEditPhysician))
	mux.Handle("/api/physicians/delete", csrf(handleDeletePhysician))
	mux.Handle("/api/unavailability", csrf(handleAPIUnavailability))
	mux.Handle("/api/unavailability/delete", csrf(handleDeleteUnavailability))
	mux.Handle("/api/categories", csrf(handleAPICategories))
	mux.Handle("/api/categories/edit", csrf(handleEditCategory))
	mux.Handle("/api/categories/delete", csrf(handleDeleteCategory))
	mux.Handle("/api/tasks", csrf(handleAPITasks))
	mux.Handle("/api/tasks/edit", csrf(handleEditTask))
	mux.Handle("/api/tasks/delete", csrf(handleDeleteTask))
	mux.Handle("/api/links", csrf(handleAPILinks))
	mux.Handle("/api/links/delete", csrf(handleDeleteLink))
	mux.Handle("/api/settings", csrf(handleAPISettings))

	mux.Handle("/api/generate", csrf(handleGenerate))
	mux.Handle("/api/generate/live", csrf(handleGenerateLive))
	mux.Handle("/api/search", csrf(handleActiveSearch))

	mux.Handle("/api/schedule", csrf(handleSchedule))
	mux.Handle("/api/schedule.ics", csrf(handleScheduleICS))
	mux.Handle("/api/statistics", csrf(handleStatistics))
	mux.Handle("/api/conflicts", csrf(handleConflicts))
	mux.Handle("/api/anomalies", csrf(handleAnomalies))
	mux.Handle("/api/runs", csrf(handleRuns))

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return mux
}

func main() {
	slog.SetDefault(logger)

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		pg := store.NewPostgresStore(conn)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Error("database schema", "err", err)
		} else {
			archive = pg
			logger.Info("run archive enabled")
		}
	}

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		log.Fatalf("compression adapter: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("UI server starting on :%s", port)
	log.Fatal(http.ListenAndServe(":"+port, compress(newMux())))
}
