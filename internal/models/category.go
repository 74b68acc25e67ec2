package models

type DaysParameter string

const (
	SingleDay DaysParameter = "SINGLE_DAY"
	MultiWeek DaysParameter = "MULTI_WEEK"
)

func (p DaysParameter) Valid() bool {
	return p == SingleDay || p == MultiWeek
}

type TaskCategory struct {
	Name           string        `json:"name"`
	DaysParameter  DaysParameter `json:"days_parameter"`
	NumberOfWeeks  int           `json:"number_of_weeks,omitempty"`
	WeekdayRevenue float64       `json:"weekday_revenue"`
	CallRevenue    float64       `json:"call_revenue"`
	Restricted     bool          `json:"restricted"`
}
