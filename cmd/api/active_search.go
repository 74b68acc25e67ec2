package main

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

type ActiveSearchSignals struct {
	Search          string `json:"search"`
	PhysicianSearch string `json:"physicianSearch"`
	TaskSearch      string `json:"taskSearch"`
}

// Levenshtein calculates the Levenshtein distance between two strings.
func Levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	n, m := len(r1), len(r2)
	if n > m {
		r1, r2 = r2, r1
		n, m = m, n
	}

	currentRow := make([]int, n+1)
	for i := 0; i <= n; i++ {
		currentRow[i] = i
	}

	for i := 1; i <= m; i++ {
		previousRow := currentRow
		currentRow = make([]int, n+1)
		currentRow[0] = i
		for j := 1; j <= n; j++ {
			add, del, change := previousRow[j]+1, currentRow[j-1]+1, previousRow[j-1]
			if r1[j-1] != r2[i-1] {
				change++
			}
			currentRow[j] = min(add, del, change)
		}
	}
	return currentRow[n]
}

func handleActiveSearch(w http.ResponseWriter, r *http.Request) {
	signals := &ActiveSearchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	searchType := r.URL.Query().Get("type")
	var query string

	switch searchType {
	case "physician":
		query = signals.PhysicianSearch
	case "task":
		query = signals.TaskSearch
	default:
		query = signals.Search
	}
	if query == "" && signals.Search != "" {
		query = signals.Search
	}

	query = strings.ToLower(strings.TrimSpace(query))
	sse := datastar.NewSSE(w, r)

	switch searchType {
	case "physician":
		searchPhysicians(sse, query)
	case "task":
		searchTasks(sse, query)
	default:
		http.Error(w, "Invalid search type", http.StatusBadRequest)
	}
}

func searchPhysicians(sse *datastar.ServerSentEventGenerator, query string) {
	type ScoredPhysician struct {
		ID       string
		Name     string
		Initials string
		Score    int
	}

	registryMu.RLock()
	roster := reg.Physicians()
	registryMu.RUnlock()

	var results []ScoredPhysician
	for _, p := range roster {
		if query == "" {
			results = append(results, ScoredPhysician{ID: p.ID, Name: p.FullName(), Initials: p.Initials, Score: 0})
			continue
		}

		fn := strings.ToLower(p.FirstName)
		ln := strings.ToLower(p.LastName)
		in := strings.ToLower(p.Initials)

		// Contains wins outright, fuzzy matches rank by distance.
		score := 1000
		if strings.Contains(fn, query) || strings.Contains(ln, query) || strings.Contains(in, query) {
			score = 0
		} else {
			dist := min(Levenshtein(query, fn), Levenshtein(query, ln), Levenshtein(query, in))
			if dist < 5 {
				score = dist
			}
		}

		if score < 1000 {
			results = append(results, ScoredPhysician{ID: p.ID, Name: p.FullName(), Initials: p.Initials, Score: score})
		}
	}

	slices.SortFunc(results, func(a, b ScoredPhysician) int {
		return a.Score - b.Score
	})

	if len(results) > 15 {
		results = results[:15]
	}

	var sb strings.Builder
	sb.WriteString(`<div id="physician-results" class="list">`)
	for _, res := range results {
		sb.WriteString(fmt.Sprintf(`
			<a class="row waves-effect" onclick="selectPhysician('%s', '%s')">
				<div class="col">
					<span>%s</span>
					<label>%s</label>
				</div>
			</a>`, res.ID, res.Name, res.Name, res.Initials))
	}
	if len(results) == 0 {
		sb.WriteString(`<div class="padding">No results found</div>`)
	}
	sb.WriteString("</div>")

	sse.PatchElements(sb.String())
}

func searchTasks(sse *datastar.ServerSentEventGenerator, query string) {
	type ScoredTask struct {
		Code     string
		Name     string
		Category string
		Score    int
	}

	catalogMu.RLock()
	tasks := cat.Tasks()
	catalogMu.RUnlock()

	var results []ScoredTask
	for _, t := range tasks {
		if query == "" {
			results = append(results, ScoredTask{Code: t.Code, Name: t.Name, Category: t.Category, Score: 0})
			continue
		}

		code := strings.ToLower(t.Code)
		name := strings.ToLower(t.Name)
		category := strings.ToLower(t.Category)

		score := 1000
		if strings.Contains(code, query) || strings.Contains(name, query) || strings.Contains(category, query) {
			score = 0
		} else {
			dist := min(Levenshtein(query, code), Levenshtein(query, name), Levenshtein(query, category))
			if dist < 5 {
				score = dist
			}
		}

		if score < 1000 {
			results = append(results, ScoredTask{Code: t.Code, Name: t.Name, Category: t.Category, Score: score})
		}
	}

	slices.SortFunc(results, func(a, b ScoredTask) int {
		return a.Score - b.Score
	})

	if len(results) > 15 {
		results = results[:15]
	}

	var sb strings.Builder
	sb.WriteString(`<div id="task-results" class="list">`)
	for _, res := range results {
		sb.WriteString(fmt.Sprintf(`
			<a class="row waves-effect" onclick="selectTask('%s', '%s')">
				<div class="col">
					<span>%s</span>
					<label>%s / %s</label>
				</div>
			</a>`, res.Code, res.Name, res.Name, res.Code, res.Category))
	}
	if len(results) == 0 {
		sb.WriteString(`<div class="padding">No results found</div>`)
	}
	sb.WriteString("</div>")

	sse.PatchElements(sb.String())
}
