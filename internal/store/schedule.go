// Package store persists schedules and configuration. JSON files carry an
// explicit schema version and are rejected, never coerced, when the version
// or a field does not match. PostgresStore archives finished runs.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"physician-scheduler/internal/models"
)

// ScheduleVersion is the schema version written to schedule files.
const ScheduleVersion = 1

type scheduleFile struct {
	Version   int              `json:"version"`
	StartDate string           `json:"start_date"`
	EndDate   string           `json:"end_date"`
	Records   []scheduleRecord `json:"records"`
}

type scheduleRecord struct {
	Date        string `json:"date"`
	TaskCode    string `json:"task_code"`
	PhysicianID string `json:"physician_id,omitempty"`
}

// EncodeSchedule writes s to w in canonical order, date then task code, so
// that saving and reloading a schedule reproduces it exactly.
func EncodeSchedule(w io.Writer, s *models.Schedule) error {
	cp := s.Clone()
	cp.Sort()
	out := scheduleFile{
		Version:   ScheduleVersion,
		StartDate: models.FormatDate(cp.StartDate),
		EndDate:   models.FormatDate(cp.EndDate),
		Records:   make([]scheduleRecord, 0, len(cp.Assignments)),
	}
	for _, a := range cp.Assignments {
		out.Records = append(out.Records, scheduleRecord{
			Date:        models.FormatDate(a.Date),
			TaskCode:    a.TaskCode,
			PhysicianID: a.PhysicianID,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// DecodeSchedule reads a schedule file. Unknown fields, an unsupported
// version, malformed dates and records outside the declared period are all
// rejected with a SerializationError naming the offending field. Reloading
// never re-runs the allocation; the records are taken as they are.
func DecodeSchedule(r io.Reader) (*models.Schedule, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in scheduleFile
	if err := dec.Decode(&in); err != nil {
		return nil, &models.SerializationError{Field: "schedule", Msg: err.Error(), Err: err}
	}
	if in.Version != ScheduleVersion {
		return nil, models.NewSerializationError("version", "unsupported schedule version %d, want %d", in.Version, ScheduleVersion)
	}
	start, err := models.ParseDate(in.StartDate)
	if err != nil {
		return nil, &models.SerializationError{Field: "start_date", Msg: err.Error(), Err: err}
	}
	end, err := models.ParseDate(in.EndDate)
	if err != nil {
		return nil, &models.SerializationError{Field: "end_date", Msg: err.Error(), Err: err}
	}
	if end.Before(start) {
		return nil, models.NewSerializationError("end_date", "period end %s precedes start %s", in.EndDate, in.StartDate)
	}

	s := models.NewSchedule(start, end)
	for i, rec := range in.Records {
		date, err := models.ParseDate(rec.Date)
		if err != nil {
			return nil, &models.SerializationError{Field: fmt.Sprintf("records[%d].date", i), Msg: err.Error(), Err: err}
		}
		if date.Before(start) || date.After(end) {
			return nil, models.NewSerializationError(fmt.Sprintf("records[%d].date", i),
				"%s is outside the period %s to %s", rec.Date, in.StartDate, in.EndDate)
		}
		if rec.TaskCode == "" {
			return nil, models.NewSerializationError(fmt.Sprintf("records[%d].task_code", i), "task code is required")
		}
		s.Add(models.Assignment{Date: date, TaskCode: rec.TaskCode, PhysicianID: rec.PhysicianID})
	}
	return s, nil
}

func SaveSchedule(path string, s *models.Schedule) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeSchedule(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func LoadSchedule(path string) (*models.Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSchedule(f)
}
