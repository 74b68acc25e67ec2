package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"physician-scheduler/internal/models"
)

func TestObserveRun(t *testing.T) {
	Reset()

	s := models.NewSchedule(models.NewDate(2025, time.January, 6), models.NewDate(2025, time.January, 10))
	s.Add(models.Assignment{Date: s.StartDate, TaskCode: "CLN_1", PhysicianID: "p1"})
	s.Add(models.Assignment{Date: s.StartDate, TaskCode: "CLN_2", PhysicianID: "p2"})
	s.Add(models.Assignment{Date: s.StartDate, TaskCode: "NEU_1"})
	anomalies := []models.Anomaly{
		{Kind: models.AnomalyUnassignableMandatory, TaskCode: "NEU_1"},
		{Kind: models.AnomalyUnassignableMandatory, TaskCode: "NEU_1"},
		{Kind: models.AnomalyLinkageViolation, TaskCode: "CTU_A_CALL"},
	}

	ObserveRun(s, anomalies, 7.5, 20*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(AssignmentsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(GapsTotal))
	assert.Equal(t, float64(7.5), testutil.ToFloat64(CapacityBasis))
	assert.Equal(t, float64(2), testutil.ToFloat64(AnomaliesTotal.WithLabelValues(string(models.AnomalyUnassignableMandatory))))
	assert.Equal(t, float64(1), testutil.ToFloat64(AnomaliesTotal.WithLabelValues(string(models.AnomalyLinkageViolation))))

	// A follow-up run replaces the snapshot gauges.
	ObserveRun(models.NewSchedule(s.StartDate, s.EndDate), nil, 0, time.Millisecond)
	assert.Equal(t, float64(0), testutil.ToFloat64(AssignmentsTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(AnomaliesTotal.WithLabelValues(string(models.AnomalyLinkageViolation))))
}

func TestObserveConflicts(t *testing.T) {
	Reset()

	ObserveConflicts([]models.Conflict{
		{Kind: models.ConflictDoubleBooking, Severity: models.SeverityError},
		{Kind: models.ConflictDoubleBooking, Severity: models.SeverityError},
		{Kind: models.ConflictCapacityOverage, Severity: models.SeverityWarning},
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(ConflictsTotal.WithLabelValues(string(models.ConflictDoubleBooking))))
	assert.Equal(t, float64(1), testutil.ToFloat64(ConflictsTotal.WithLabelValues(string(models.ConflictCapacityOverage))))

	ObserveConflicts(nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(ConflictsTotal.WithLabelValues(string(models.ConflictDoubleBooking))))
}
