package store

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"physician-scheduler/internal/catalog"
	"physician-scheduler/internal/models"
	"physician-scheduler/internal/registry"
)

func sampleCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	require.NoError(t, c.AddCategory(&models.TaskCategory{
		Name: "CTU", DaysParameter: models.MultiWeek, NumberOfWeeks: 2,
		WeekdayRevenue: 2000, CallRevenue: 1200,
	}))
	require.NoError(t, c.AddCategory(&models.TaskCategory{
		Name: "CLINIC", DaysParameter: models.SingleDay, WeekdayRevenue: 1500,
	}))
	require.NoError(t, c.AddTask(&models.Task{Code: "CTU_A", Name: "CTU team A", Category: "CTU", Heaviness: 4, Mandatory: true}))
	require.NoError(t, c.AddTask(&models.Task{Code: "CTU_A_CALL", Name: "CTU team A call", Category: "CTU", Heaviness: 2, Mandatory: true}))
	require.NoError(t, c.AddTask(&models.Task{Code: "CLN_1", Name: "General clinic", Category: "CLINIC", Heaviness: 1}))
	require.NoError(t, c.Link("CTU_A", "CTU_A_CALL"))
	return c
}

func sampleRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Add(&models.Physician{
		ID: "p1", FirstName: "Anne", LastName: "Gagnon",
		EligibleCategories: []string{"CTU", "CLINIC"}, FullTime: true, FTEFraction: 1,
	}))
	require.NoError(t, r.Add(&models.Physician{
		ID: "p2", FirstName: "Marc", LastName: "Roy",
		EligibleCategories:  []string{"CLINIC"},
		PreferredCategories: []string{"CLINIC"}, FTEFraction: 0.5,
	}))
	require.NoError(t, r.AddUnavailability("p1", models.DateSpan{Start: day(13), End: day(17)}))
	return r
}

func TestCatalogRoundTrip(t *testing.T) {
	c := sampleCatalog(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeCatalog(&buf, c))

	got, err := DecodeCatalog(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Categories(), got.Categories())
	assert.Equal(t, c.Tasks(), got.Tasks())
	assert.Equal(t, c.Links(), got.Links())
}

func TestDecodeCatalog_Rejections(t *testing.T) {
	t.Run("unsupported version", func(t *testing.T) {
		_, err := DecodeCatalog(strings.NewReader(`{"version":9,"categories":[],"tasks":[]}`))
		var serErr *models.SerializationError
		require.True(t, errors.As(err, &serErr))
		assert.Equal(t, "version", serErr.Field)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := DecodeCatalog(strings.NewReader(`{"version":1,"shifts":[]}`))
		var serErr *models.SerializationError
		require.True(t, errors.As(err, &serErr))
	})

	t.Run("task with unknown category", func(t *testing.T) {
		in := `{"version":1,"categories":[],"tasks":[{"code":"X","name":"X ward","category":"GHOST","heaviness":1}]}`
		_, err := DecodeCatalog(strings.NewReader(in))
		var confErr *models.ConfigurationError
		require.True(t, errors.As(err, &confErr), "want ConfigurationError, got %v", err)
		assert.Equal(t, "X", confErr.Ref)
	})

	t.Run("link to unknown task", func(t *testing.T) {
		in := `{"version":1,"categories":[],"tasks":[],"links":[{"main":"A","call":"B"}]}`
		_, err := DecodeCatalog(strings.NewReader(in))
		var confErr *models.ConfigurationError
		require.True(t, errors.As(err, &confErr))
	})
}

func TestRegistryRoundTrip(t *testing.T) {
	r := sampleRegistry(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeRegistry(&buf, r))

	got, err := DecodeRegistry(&buf)
	require.NoError(t, err)
	assert.Equal(t, r.Physicians(), got.Physicians())
	assert.Equal(t, r.Unavailability("p1"), got.Unavailability("p1"))
	assert.Empty(t, got.Unavailability("p2"))
}

func TestDecodeRegistry_Rejections(t *testing.T) {
	t.Run("bad unavailability date", func(t *testing.T) {
		in := `{"version":1,"physicians":[{"id":"p1","last_name":"Roy","eligible_categories":[],"full_time":true,"fte_fraction":1}],` +
			`"unavailability":[{"physician_id":"p1","start":"soon","end":"2025-01-17"}]}`
		_, err := DecodeRegistry(strings.NewReader(in))
		var serErr *models.SerializationError
		require.True(t, errors.As(err, &serErr))
		assert.Equal(t, "unavailability[0].start", serErr.Field)
	})

	t.Run("unavailability for unknown physician", func(t *testing.T) {
		in := `{"version":1,"physicians":[],"unavailability":[{"physician_id":"ghost","start":"2025-01-13","end":"2025-01-17"}]}`
		_, err := DecodeRegistry(strings.NewReader(in))
		var confErr *models.ConfigurationError
		require.True(t, errors.As(err, &confErr))
		assert.Equal(t, "ghost", confErr.Ref)
	})

	t.Run("duplicate physician id", func(t *testing.T) {
		in := `{"version":1,"physicians":[` +
			`{"id":"p1","last_name":"Roy","eligible_categories":[],"full_time":true,"fte_fraction":1},` +
			`{"id":"p1","last_name":"Gagnon","eligible_categories":[],"full_time":true,"fte_fraction":1}]}`
		_, err := DecodeRegistry(strings.NewReader(in))
		var confErr *models.ConfigurationError
		require.True(t, errors.As(err, &confErr))
	})
}
