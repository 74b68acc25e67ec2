package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func searchRequest(t *testing.T, searchType string, signals map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	signalsJSON, _ := json.Marshal(signals)
	query := url.Values{}
	query.Set("type", searchType)
	query.Set("datastar", string(signalsJSON))

	req, err := http.NewRequest("GET", "/api/search?"+query.Encode(), nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(handleActiveSearch).ServeHTTP(rr, req)
	return rr
}

func TestHandleActiveSearch_Physician(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "physician", map[string]string{"physicianSearch": "gagnon"})

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "Anne Gagnon") {
		t.Errorf("handler returned unexpected body: does not contain 'Anne Gagnon'. Body: %s", body)
	}
}

func TestHandleActiveSearch_PhysicianFuzzy(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "physician", map[string]string{"physicianSearch": "gagnot"})

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	if !strings.Contains(rr.Body.String(), "Anne Gagnon") {
		t.Errorf("fuzzy match missing Anne Gagnon")
	}
}

func TestHandleActiveSearch_Task(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "task", map[string]string{"taskSearch": "echo"})

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "Echo Lab") {
		t.Errorf("handler returned unexpected body: does not contain 'Echo Lab'. Body: %s", body)
	}
}

func TestHandleActiveSearch_TaskByCategory(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "task", map[string]string{"taskSearch": "ctu"})

	body := rr.Body.String()
	if !strings.Contains(body, "CTU Ward A") || !strings.Contains(body, "CTU Ward B") {
		t.Errorf("category query should match all CTU tasks. Body: %s", body)
	}
}

func TestHandleActiveSearch_NoResults(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "physician", map[string]string{"physicianSearch": "zzzzzz"})

	if !strings.Contains(rr.Body.String(), "No results found") {
		t.Errorf("expected empty result marker, got: %s", rr.Body.String())
	}
}

func TestHandleActiveSearch_EmptyQueryReturnsAll(t *testing.T) {
	resetAppState(t)

	rr := searchRequest(t, "physician", map[string]string{"physicianSearch": ""})

	body := rr.Body.String()
	if !strings.Contains(body, "Anne Gagnon") || !strings.Contains(body, "Denis Lavoie") {
		t.Errorf("empty query should list the whole roster. Body: %s", body)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"a", "a", 0},
		{"", "abc", 3},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.s1, tt.s2); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.want)
		}
	}
}
