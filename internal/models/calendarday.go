package models

import "time"

type CalendarDay struct {
	Date        time.Time `json:"date"`
	IsWeekend   bool      `json:"is_weekend"`
	IsHoliday   bool      `json:"is_holiday"`
	HolidayName string    `json:"holiday_name,omitempty"`
}

// IsWorkingDay reports whether the day is schedulable for weekday work:
// neither a weekend nor a holiday.
func (d CalendarDay) IsWorkingDay() bool {
	return !d.IsWeekend && !d.IsHoliday
}

// IsCallDay reports whether the day is a call day: a weekend or a holiday.
func (d CalendarDay) IsCallDay() bool {
	return d.IsWeekend || d.IsHoliday
}
