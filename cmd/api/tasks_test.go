package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"physician-scheduler/internal/models"
)

func postForm(t *testing.T, handler http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestCategoryHandlers(t *testing.T) {
	resetAppState(t)

	t.Run("CreateCategory", func(t *testing.T) {
		form := url.Values{}
		form.Add("name", "ICU")
		form.Add("days_parameter", "MULTI_WEEK")
		form.Add("number_of_weeks", "2")
		form.Add("weekday_revenue", "2200")
		form.Add("call_revenue", "1100")

		rr := postForm(t, handleAPICategories, "/api/categories", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		c, ok := cat.Category("ICU")
		if !ok {
			t.Fatal("expected category ICU to exist")
		}
		if c.DaysParameter != models.MultiWeek || c.NumberOfWeeks != 2 {
			t.Errorf("unexpected category %+v", c)
		}
		if c.WeekdayRevenue != 2200 {
			t.Errorf("expected weekday revenue 2200, got %v", c.WeekdayRevenue)
		}
	})

	t.Run("EditCategory", func(t *testing.T) {
		form := url.Values{}
		form.Add("name", "ICU")
		form.Add("days_parameter", "MULTI_WEEK")
		form.Add("number_of_weeks", "3")
		form.Add("weekday_revenue", "2400")
		form.Add("call_revenue", "1100")
		form.Add("restricted", "on")

		rr := postForm(t, handleEditCategory, "/api/categories/edit", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		c, ok := cat.Category("ICU")
		if !ok {
			t.Fatal("expected category ICU to exist")
		}
		if c.NumberOfWeeks != 3 || !c.Restricted {
			t.Errorf("unexpected category after edit %+v", c)
		}
	})

	t.Run("RejectUnknownDaysParameter", func(t *testing.T) {
		form := url.Values{}
		form.Add("name", "BAD")
		form.Add("days_parameter", "FORTNIGHT")

		rr := postForm(t, handleAPICategories, "/api/categories", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusBadRequest)
		}
	})

	t.Run("DeleteCategory", func(t *testing.T) {
		form := url.Values{}
		form.Add("name", "ICU")

		rr := postForm(t, handleDeleteCategory, "/api/categories/delete", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		if _, ok := cat.Category("ICU"); ok {
			t.Error("expected category ICU to be removed")
		}
	})

	t.Run("DeleteReferencedCategoryFails", func(t *testing.T) {
		form := url.Values{}
		form.Add("name", "CTU")

		rr := postForm(t, handleDeleteCategory, "/api/categories/delete", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusBadRequest)
		}
	})
}

func TestTaskHandlers(t *testing.T) {
	resetAppState(t)

	t.Run("CreateTask", func(t *testing.T) {
		form := url.Values{}
		form.Add("code", "CLN_EVE")
		form.Add("name", "Evening Clinic")
		form.Add("category", "CLINIC")
		form.Add("heaviness", "2")
		form.Add("mandatory", "on")

		rr := postForm(t, handleAPITasks, "/api/tasks", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		task, ok := cat.Task("CLN_EVE")
		if !ok {
			t.Fatal("expected task CLN_EVE to exist")
		}
		if !task.Mandatory || task.Heaviness != 2 {
			t.Errorf("unexpected task %+v", task)
		}
	})

	t.Run("EditTask", func(t *testing.T) {
		form := url.Values{}
		form.Add("code", "CLN_EVE")
		form.Add("name", "Evening Walk-in Clinic")
		form.Add("category", "CLINIC")
		form.Add("heaviness", "3")

		rr := postForm(t, handleEditTask, "/api/tasks/edit", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		task, ok := cat.Task("CLN_EVE")
		if !ok {
			t.Fatal("expected task CLN_EVE to exist")
		}
		if task.Name != "Evening Walk-in Clinic" {
			t.Errorf("expected renamed task, got %s", task.Name)
		}
		if task.Mandatory {
			t.Error("expected mandatory cleared when checkbox is absent")
		}
	})

	t.Run("RejectMissingHeaviness", func(t *testing.T) {
		form := url.Values{}
		form.Add("code", "X_1")
		form.Add("name", "No Heaviness")
		form.Add("category", "CLINIC")

		rr := postForm(t, handleAPITasks, "/api/tasks", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusBadRequest)
		}
	})

	t.Run("DeleteTask", func(t *testing.T) {
		form := url.Values{}
		form.Add("code", "CLN_EVE")

		rr := postForm(t, handleDeleteTask, "/api/tasks/delete", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		if _, ok := cat.Task("CLN_EVE"); ok {
			t.Error("expected task CLN_EVE to be removed")
		}
	})
}

func TestLinkHandlers(t *testing.T) {
	resetAppState(t)

	t.Run("RejectSingleDayMain", func(t *testing.T) {
		form := url.Values{}
		form.Add("main", "NEU_1")
		form.Add("call", "ECHO_1")

		rr := postForm(t, handleAPILinks, "/api/links", form)

		if status := rr.Code; status != http.StatusBadRequest {
			t.Errorf("linking a single day main should fail: got %v want %v",
				status, http.StatusBadRequest)
		}
	})

	t.Run("Unlink", func(t *testing.T) {
		form := url.Values{}
		form.Add("main", "CTU_A")

		rr := postForm(t, handleDeleteLink, "/api/links/delete", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		links := cat.Links()
		catalogMu.RUnlock()
		for _, edge := range links {
			if edge[0] == "CTU_A" {
				t.Errorf("expected CTU_A linkage removed, still have %v", edge)
			}
		}
	})

	t.Run("Relink", func(t *testing.T) {
		form := url.Values{}
		form.Add("main", "CTU_A")
		form.Add("call", "CTU_A_CALL")

		rr := postForm(t, handleAPILinks, "/api/links", form)

		if status := rr.Code; status != http.StatusSeeOther {
			t.Errorf("handler returned wrong status code: got %v want %v",
				status, http.StatusSeeOther)
		}

		catalogMu.RLock()
		defer catalogMu.RUnlock()
		found := false
		for _, edge := range cat.Links() {
			if edge[0] == "CTU_A" && edge[1] == "CTU_A_CALL" {
				found = true
			}
		}
		if !found {
			t.Error("expected CTU_A linked to CTU_A_CALL")
		}
	})
}
