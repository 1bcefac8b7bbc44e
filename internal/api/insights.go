package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chengzr01/jobscout/internal/llm"
	"github.com/chengzr01/jobscout/internal/storage"
)

// insightPrompts map the insight kind to the system instruction given to the
// model alongside the user's matched listings.
var insightPrompts = map[string]string{
	"summarize": "Summarize the following job listings for the candidate. Highlight the companies, roles, and common requirements in a few short paragraphs.",
	"analyze":   "Analyze the following job listings for the candidate. Compare levels, locations, and requirements, and point out which listings best match a typical candidate profile.",
	"visualize": "Describe the following job listings as a structure suitable for charting: group counts by company, level, and location, and present the groups as a markdown table.",
}

type insightResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Insight string `json:"insight"`
}

// handleInsights runs the user's stored profile through the catalog and asks
// the model to summarize, analyze, or visualize the matches.
func (h *handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	instruction, ok := insightPrompts[kind]
	if !ok {
		writeResult(w, http.StatusNotFound, envelope{Message: fmt.Sprintf("unknown insight kind %q", kind)})
		return
	}

	identity := identityFrom(r)
	p, err := h.deps.Store.GetUserProfile(identity)
	if errors.Is(err, storage.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "no stored profile for user"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("loading profile: %v", err)})
		return
	}

	jobs, err := h.deps.Store.FilterJobs(storage.Criteria{
		Corporate:    p.Corporate,
		JobTitle:     p.JobTitle,
		Level:        p.Level,
		Location:     p.Location,
		Requirements: splitRequirements(p.Requirements),
	})
	if errors.Is(err, storage.ErrIncompleteCriteria) {
		writeResult(w, http.StatusBadRequest, envelope{Message: "stored profile is missing company name or job title"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("searching catalog: %v", err)})
		return
	}
	if len(jobs) == 0 {
		writeResult(w, http.StatusOK, envelope{Success: true, Message: "no matching jobs to report on"})
		return
	}

	insight, err := h.deps.Gateway.Complete(r.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: instruction},
		{Role: llm.RoleUser, Content: formatJobs(jobs)},
	})
	if err != nil {
		writeResult(w, http.StatusBadGateway, envelope{Message: fmt.Sprintf("generating insight: %v", err)})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, insightResponse{
		Success: true,
		Message: fmt.Sprintf("%s of %d jobs", kind, len(jobs)),
		Insight: insight,
	})
}

// formatJobs renders listings as plain text for the model.
func formatJobs(jobs []storage.Job) string {
	var sb strings.Builder
	for i, j := range jobs {
		fmt.Fprintf(&sb, "%d. %s at %s", i+1, j.JobTitle, j.Corporate)
		if j.Level != "" {
			fmt.Fprintf(&sb, " (%s)", j.Level)
		}
		if j.Location != "" {
			fmt.Fprintf(&sb, ", %s", j.Location)
		}
		sb.WriteString("\n")
		if len(j.Requirements) > 0 {
			fmt.Fprintf(&sb, "   requirements: %s\n", strings.Join(j.Requirements, "; "))
		}
	}
	return sb.String()
}
