package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"physician-scheduler/internal/calendar"
	"physician-scheduler/internal/models"
)

func TestHandleDashboard(t *testing.T) {
	resetAppState(t)

	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleDashboard)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	body := rr.Body.String()

	// Six physicians seeded
	if !strings.Contains(body, "<h5>6</h5>") {
		t.Errorf("handler returned unexpected body: missing physician count marker")
	}
	if !strings.Contains(body, "Canada/QC") {
		t.Errorf("Body missing region selector value")
	}
	if !strings.Contains(body, "2025-01-06") {
		t.Errorf("Body missing pinned period start")
	}
	if !strings.Contains(body, "No schedule has been generated yet") {
		t.Errorf("Body missing empty state message")
	}
}

func TestHandleDashboardWithRun(t *testing.T) {
	resetAppState(t)
	res := seedTestRun(t)

	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handleDashboard).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	body := rr.Body.String()
	if !strings.Contains(body, res.RunID.String()) {
		t.Errorf("Body missing run id %s", res.RunID)
	}
	if !strings.Contains(body, "Recent assignments") {
		t.Errorf("Body missing recent assignments table")
	}
}

func TestHandleDashboardNotFound(t *testing.T) {
	resetAppState(t)

	req, err := http.NewRequest("GET", "/nope", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handleDashboard).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusNotFound)
	}
}

func TestHandleCalendarPage(t *testing.T) {
	resetAppState(t)

	req, err := http.NewRequest("GET", "/calendar", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handleCalendar).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "No schedule has been generated yet") {
		t.Errorf("Body missing empty state message")
	}

	res := seedTestRun(t)

	rr = httptest.NewRecorder()
	http.HandlerFunc(handleCalendar).ServeHTTP(rr, req)

	body := rr.Body.String()
	if !strings.Contains(body, res.RunID.String()) {
		t.Errorf("Body missing run id %s", res.RunID)
	}
	if !strings.Contains(body, "2025-01-06") {
		t.Errorf("Body missing first period day")
	}
	if !strings.Contains(body, "CTU Ward A") {
		t.Errorf("Body missing task display name")
	}
}

func TestHandleAPISettings(t *testing.T) {
	resetAppState(t)

	t.Run("UpdatePeriod", func(t *testing.T) {
		form := url.Values{}
		form.Add("region", "Canada/ON")
		form.Add("start_date", "2025-03-03")
		form.Add("end_date", "2025-03-30")

		rr := postForm(t, handleAPISettings, "/api/settings", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		settingsMu.RLock()
		defer settingsMu.RUnlock()
		if settings.Region != calendar.RegionCanadaON {
			t.Errorf("expected region Canada/ON, got %s", settings.Region)
		}
		if !settings.StartDate.Equal(models.NewDate(2025, time.March, 3)) {
			t.Errorf("unexpected start date %s", settings.StartDate)
		}
	})

	t.Run("RejectUnknownRegion", func(t *testing.T) {
		form := url.Values{}
		form.Add("region", "Atlantis")
		form.Add("start_date", "2025-03-03")
		form.Add("end_date", "2025-03-30")

		rr := postForm(t, handleAPISettings, "/api/settings", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusBadRequest)
		}
	})

	t.Run("RejectReversedPeriod", func(t *testing.T) {
		form := url.Values{}
		form.Add("region", "Canada/QC")
		form.Add("start_date", "2025-03-30")
		form.Add("end_date", "2025-03-03")

		rr := postForm(t, handleAPISettings, "/api/settings", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusBadRequest)
		}
	})
}
