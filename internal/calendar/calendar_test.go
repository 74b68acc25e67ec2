package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physician-scheduler/internal/models"
)

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("Canada/QC")
	require.NoError(t, err)
	assert.Equal(t, RegionCanadaQC, r)

	_, err = ParseRegion("France/IDF")
	require.Error(t, err)
	var confErr *models.ConfigurationError
	assert.True(t, errors.As(err, &confErr))
}

func TestNewRejectsInvertedPeriod(t *testing.T) {
	_, err := New(RegionCanadaQC, models.NewDate(2025, time.March, 10), models.NewDate(2025, time.March, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precedes")
}

func TestDaysAndAnchor(t *testing.T) {
	// Wednesday to Sunday; the anchor snaps back to Monday.
	c, err := New(RegionCanadaQC, models.NewDate(2025, time.January, 8), models.NewDate(2025, time.January, 12))
	require.NoError(t, err)

	assert.Equal(t, models.NewDate(2025, time.January, 6), c.Anchor())
	require.Len(t, c.Days(), 5)
	assert.Equal(t, models.NewDate(2025, time.January, 8), c.Days()[0].Date)

	sat, ok := c.Day(models.NewDate(2025, time.January, 11))
	require.True(t, ok)
	assert.True(t, sat.IsWeekend)
	assert.True(t, sat.IsCallDay())
	assert.False(t, sat.IsWorkingDay())

	_, ok = c.Day(models.NewDate(2025, time.January, 13))
	assert.False(t, ok)
}

func TestRegionalHolidays(t *testing.T) {
	tests := map[string]struct {
		region  Region
		date    time.Time
		holiday bool
	}{
		"new year in quebec":          {RegionCanadaQC, models.NewDate(2025, time.January, 1), true},
		"canada day in quebec":        {RegionCanadaQC, models.NewDate(2025, time.July, 1), true},
		"saint-jean in quebec":        {RegionCanadaQC, models.NewDate(2025, time.June, 24), true},
		"christmas in quebec":         {RegionCanadaQC, models.NewDate(2025, time.December, 25), true},
		"saint-jean not in ontario":   {RegionCanadaON, models.NewDate(2025, time.June, 24), false},
		"family day in ontario":       {RegionCanadaON, models.NewDate(2025, time.February, 17), true},
		"family day not in quebec":    {RegionCanadaQC, models.NewDate(2025, time.February, 17), false},
		"independence day in ca":      {RegionUSACA, models.NewDate(2025, time.July, 4), true},
		"mlk day in ny":               {RegionUSANY, models.NewDate(2025, time.January, 20), true},
		"canada day not in ny":        {RegionUSANY, models.NewDate(2025, time.July, 1), false},
		"plain tuesday":               {RegionCanadaQC, models.NewDate(2025, time.March, 11), false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := New(tc.region, tc.date.AddDate(0, 0, -3), tc.date.AddDate(0, 0, 3))
			require.NoError(t, err)
			day, ok := c.Day(tc.date)
			require.True(t, ok)
			assert.Equal(t, tc.holiday, day.IsHoliday)
			if tc.holiday {
				assert.NotEmpty(t, day.HolidayName)
				assert.True(t, day.IsCallDay())
			}
		})
	}
}

func TestIsWorkingDayOutsidePeriod(t *testing.T) {
	c, err := New(RegionCanadaQC, models.NewDate(2025, time.June, 30), models.NewDate(2025, time.July, 6))
	require.NoError(t, err)

	// Both dates fall outside the period; spans reaching past the end still
	// need correct answers.
	assert.False(t, c.IsWorkingDay(models.NewDate(2025, time.June, 28))) // Saturday
	assert.True(t, c.IsWorkingDay(models.NewDate(2025, time.July, 7)))   // Monday

	// Inside the period, the holiday wins over the weekday.
	assert.False(t, c.IsWorkingDay(models.NewDate(2025, time.July, 1)))
	assert.True(t, c.IsWorkingDay(models.NewDate(2025, time.July, 2)))
}

func TestWorkingDays(t *testing.T) {
	// Week of Canada Day 2025: five weekdays minus the Tuesday holiday.
	c, err := New(RegionCanadaQC, models.NewDate(2025, time.June, 30), models.NewDate(2025, time.July, 6))
	require.NoError(t, err)
	assert.Equal(t, 4, c.WorkingDays())
}
