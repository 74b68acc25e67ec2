package calendar

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/us"

	"physician-scheduler/internal/models"
)

type Region string

const (
	RegionCanadaQC Region = "Canada/QC"
	RegionCanadaON Region = "Canada/ON"
	RegionUSACA    Region = "USA/CA"
	RegionUSANY    Region = "USA/NY"
)

func ParseRegion(s string) (Region, error) {
	switch Region(s) {
	case RegionCanadaQC, RegionCanadaON, RegionUSACA, RegionUSANY:
		return Region(s), nil
	}
	return "", models.NewConfigurationError(s, "unknown region")
}

// Jurisdiction-specific days the upstream holiday sets do not carry.
var (
	stJeanBaptiste = &cal.Holiday{
		Name:  "Saint-Jean-Baptiste Day",
		Type:  cal.ObservancePublic,
		Month: time.June,
		Day:   24,
	}
	familyDay = &cal.Holiday{
		Name:    "Family Day",
		Type:    cal.ObservancePublic,
		Month:   time.February,
		Weekday: time.Monday,
		Offset:  3,
	}
	civicHoliday = &cal.Holiday{
		Name:    "Civic Holiday",
		Type:    cal.ObservancePublic,
		Month:   time.August,
		Weekday: time.Monday,
		Offset:  1,
	}
	cesarChavezDay = &cal.Holiday{
		Name:  "Cesar Chavez Day",
		Type:  cal.ObservancePublic,
		Month: time.March,
		Day:   31,
	}
	lincolnBirthday = &cal.Holiday{
		Name:  "Lincoln's Birthday",
		Type:  cal.ObservancePublic,
		Month: time.February,
		Day:   12,
	}
)

func holidayCalendar(region Region) (*cal.Calendar, error) {
	c := &cal.Calendar{Name: string(region)}
	switch region {
	case RegionCanadaQC:
		c.AddHoliday(
			ca.NewYear,
			ca.GoodFriday,
			ca.VictoriaDay,
			stJeanBaptiste,
			ca.CanadaDay,
			ca.LabourDay,
			ca.ThanksgivingDay,
			ca.ChristmasDay,
		)
	case RegionCanadaON:
		c.AddHoliday(
			ca.NewYear,
			familyDay,
			ca.GoodFriday,
			ca.VictoriaDay,
			ca.CanadaDay,
			civicHoliday,
			ca.LabourDay,
			ca.ThanksgivingDay,
			ca.ChristmasDay,
			ca.BoxingDay,
		)
	case RegionUSACA:
		c.AddHoliday(
			us.NewYear,
			us.MlkDay,
			us.PresidentsDay,
			cesarChavezDay,
			us.MemorialDay,
			us.IndependenceDay,
			us.LaborDay,
			us.VeteransDay,
			us.ThanksgivingDay,
			us.ChristmasDay,
		)
	case RegionUSANY:
		c.AddHoliday(
			us.NewYear,
			us.MlkDay,
			lincolnBirthday,
			us.PresidentsDay,
			us.MemorialDay,
			us.IndependenceDay,
			us.LaborDay,
			us.ColumbusDay,
			us.VeteransDay,
			us.ThanksgivingDay,
			us.ChristmasDay,
		)
	default:
		return nil, models.NewConfigurationError(string(region), "unknown region")
	}
	return c, nil
}

// Calendar is the read-only day oracle for one scheduling period: the ordered
// run of calendar days between start and end, with weekend and regional
// holiday marks. The engine never builds days itself; it only reads these.
type Calendar struct {
	region Region
	start  time.Time
	end    time.Time
	anchor time.Time
	hcal   *cal.Calendar
	days   []models.CalendarDay
	index  map[time.Time]int
}

func New(region Region, start, end time.Time) (*Calendar, error) {
	start = models.Midnight(start)
	end = models.Midnight(end)
	if end.Before(start) {
		return nil, models.NewConfigurationError(string(region), "period end %s precedes start %s",
			models.FormatDate(end), models.FormatDate(start))
	}
	hcal, err := holidayCalendar(region)
	if err != nil {
		return nil, err
	}

	c := &Calendar{
		region: region,
		start:  start,
		end:    end,
		anchor: models.WeekStart(start),
		hcal:   hcal,
		index:  make(map[time.Time]int),
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		c.index[d] = len(c.days)
		c.days = append(c.days, c.describe(d))
	}
	return c, nil
}

func (c *Calendar) describe(d time.Time) models.CalendarDay {
	wd := d.Weekday()
	day := models.CalendarDay{
		Date:      d,
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
	}
	if actual, _, holiday := c.hcal.IsHoliday(d); actual {
		day.IsHoliday = true
		if holiday != nil {
			day.HolidayName = holiday.Name
		}
	}
	return day
}

func (c *Calendar) Region() Region   { return c.region }
func (c *Calendar) Start() time.Time { return c.start }
func (c *Calendar) End() time.Time   { return c.end }

// Anchor is the Monday of the week containing the period start; multi-week
// occurrence spans tile from here.
func (c *Calendar) Anchor() time.Time { return c.anchor }

func (c *Calendar) Days() []models.CalendarDay { return c.days }

func (c *Calendar) Day(date time.Time) (models.CalendarDay, bool) {
	i, ok := c.index[models.Midnight(date)]
	if !ok {
		return models.CalendarDay{}, false
	}
	return c.days[i], true
}

// IsWorkingDay answers for any date, including dates outside the period;
// occurrence spans can reach past the period end and still need the answer.
func (c *Calendar) IsWorkingDay(date time.Time) bool {
	return c.describe(models.Midnight(date)).IsWorkingDay()
}

func (c *Calendar) WorkingDays() int {
	n := 0
	for _, d := range c.days {
		if d.IsWorkingDay() {
			n++
		}
	}
	return n
}
