package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chengzr01/jobscout/internal/llm"
	"github.com/chengzr01/jobscout/internal/session"
	"github.com/chengzr01/jobscout/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Catalog is the job listing store consumed by the search path.
// Implemented by storage.Store.
type Catalog interface {
	FilterJobs(c storage.Criteria) ([]storage.Job, error)
	SaveMessage(m storage.Message) error
	SaveUserProfile(p storage.UserProfile) error
	GetUserProfile(username string) (storage.UserProfile, error)
	CreateUser(u storage.User) error
	GetUser(username string) (storage.User, error)
}

// Deps holds everything the HTTP surface needs.
type Deps struct {
	Store    Catalog
	Registry *session.Registry
	Gateway  llm.Gateway
}

// handler carries Deps plus the in-memory token table.
type handler struct {
	deps   Deps
	tokens *tokenTable
}

// NewHandler builds the chi router for the assistant API.
func NewHandler(deps Deps) http.Handler {
	h := &handler{deps: deps, tokens: newTokenTable()}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, http.StatusOK, envelope{Success: true, Message: "ok"})
	})

	r.Post("/accounts/signup", h.handleSignup)
	r.Post("/accounts/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/accounts/logout", h.handleLogout)
		r.Post("/respond", h.handleRespond)
		r.Get("/recommend", h.handleRecommend)
		r.Post("/flush", h.handleFlush)
		r.Post("/reset", h.handleReset)
		r.Get("/description", h.handleGetDescription)
		r.Put("/description", h.handlePutDescription)
		r.Post("/description/resume", h.handleResumeUpload)
		r.Post("/insights/{kind}", h.handleInsights)
	})

	return r
}

// envelope is the common response shape: a success flag, a human-readable
// message, and at most one of the two response channels.
type envelope struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Frontend *string      `json:"frontend response,omitempty"`
	Backend  []jobPayload `json:"backend response,omitempty"`
}

// jobPayload is the wire form of one listing.
type jobPayload struct {
	Location     string   `json:"location"`
	JobTitle     string   `json:"job_title"`
	Level        string   `json:"level"`
	Corporate    string   `json:"corporate"`
	Requirements []string `json:"requirements"`
}

func toPayload(jobs []storage.Job) []jobPayload {
	out := make([]jobPayload, len(jobs))
	for i, j := range jobs {
		out[i] = jobPayload{
			Location:     j.Location,
			JobTitle:     j.JobTitle,
			Level:        j.Level,
			Corporate:    j.Corporate,
			Requirements: j.Requirements,
		}
	}
	return out
}

type respondRequest struct {
	UserInput string `json:"user_input"`
}

// handleRespond runs one slot-filling turn for the authenticated identity.
func (h *handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	var req respondRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	if req.UserInput == "" {
		writeResult(w, http.StatusBadRequest, envelope{Message: "user_input is required"})
		return
	}

	sess, err := h.deps.Registry.Get(identity)
	if errors.Is(err, session.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "no open session; log in first"})
		return
	}

	result, err := sess.Controller.Respond(r.Context(), req.UserInput)
	if errors.Is(err, llm.ErrStreamingUnsupported) {
		writeResult(w, http.StatusNotImplemented, envelope{Message: "streaming output is not supported"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusBadGateway, envelope{Message: fmt.Sprintf("assistant unavailable: %v", err)})
		return
	}

	h.persistTurn(identity, req.UserInput, result.Reply)

	if result.Query != nil {
		h.dispatchSearch(w, identity, result.Query)
		return
	}

	writeResult(w, http.StatusOK, envelope{
		Success:  true,
		Message:  "collecting",
		Frontend: &result.Reply,
	})
}

// dispatchSearch turns a finished profile mapping into a catalog query,
// persists the profile, and writes the backend response.
func (h *handler) dispatchSearch(w http.ResponseWriter, identity string, query map[string]string) {
	if err := h.deps.Store.SaveUserProfile(profileFromQuery(identity, query)); err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("saving profile: %v", err)})
		return
	}

	jobs, err := h.deps.Store.FilterJobs(criteriaFromQuery(query))
	if errors.Is(err, storage.ErrIncompleteCriteria) {
		writeResult(w, http.StatusBadRequest, envelope{Message: "query must include company name and job title"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("searching catalog: %v", err)})
		return
	}

	backend := toPayload(jobs)
	writeResult(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("found %d matching jobs", len(backend)),
		Backend: backend,
	})
}

// handleRecommend answers from the persisted profile without running a turn.
func (h *handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
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

	writeResult(w, http.StatusOK, envelope{
		Success: true,
		Message: fmt.Sprintf("found %d matching jobs", len(jobs)),
		Backend: toPayload(jobs),
	})
}

// handleFlush clears the identity's dialogue history and mapping.
func (h *handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)

	err := h.deps.Registry.FlushUser(identity)
	if errors.Is(err, session.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "agent not found"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("flushing session: %v", err)})
		return
	}

	writeResult(w, http.StatusOK, envelope{
		Success: true,
		Message: "chat history and key information regarding the user have been flushed",
	})
}

// handleReset clears every session and the whole persisted chat log.
func (h *handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Registry.ResetAll(); err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("resetting sessions: %v", err)})
		return
	}
	writeResult(w, http.StatusOK, envelope{
		Success: true,
		Message: "all chat history and key information have been reset",
	})
}

// persistTurn appends the turn to the chat log. Failures are logged by the
// store; they never fail the turn that already happened.
func (h *handler) persistTurn(identity, input, reply string) {
	_ = h.deps.Store.SaveMessage(storage.Message{
		Sender:        identity,
		Text:          input,
		IsUserMessage: true,
	})
	if reply != "" {
		_ = h.deps.Store.SaveMessage(storage.Message{
			Receiver:      identity,
			Text:          reply,
			IsUserMessage: false,
		})
	}
}

// criteriaFromQuery maps the tracker's snapshot onto catalog criteria.
// Unknown values stay empty and are not filtered on.
func criteriaFromQuery(query map[string]string) storage.Criteria {
	return storage.Criteria{
		Corporate:    query["company name"],
		JobTitle:     query["job title"],
		Level:        query["level"],
		Location:     query["location"],
		Requirements: splitRequirements(query["requirements"]),
	}
}

func profileFromQuery(identity string, query map[string]string) storage.UserProfile {
	return storage.UserProfile{
		Username:     identity,
		Location:     query["location"],
		JobTitle:     query["job title"],
		Level:        query["level"],
		Corporate:    query["company name"],
		Requirements: query["requirements"],
	}
}

// splitRequirements turns the conversational requirements value into the
// list of verbatim requirement strings, split on ";".
func splitRequirements(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeBody decodes a JSON request body, writing the error response itself
// on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeResult(w, http.StatusBadRequest, envelope{Message: fmt.Sprintf("invalid request body: %v", err)})
		return err
	}
	return nil
}

func writeResult(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, env)
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
