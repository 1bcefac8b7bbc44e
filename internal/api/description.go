package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/chengzr01/jobscout/internal/session"
)

const maxResumeSize = 10 << 20 // 10MB

type descriptionResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (h *handler) handleGetDescription(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Registry.Get(identityFrom(r))
	if errors.Is(err, session.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "no open session"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, descriptionResponse{
		Success:     true,
		Message:     "ok",
		Description: sess.Controller.Description(),
	})
}

type putDescriptionRequest struct {
	Description string `json:"description"`
}

func (h *handler) handlePutDescription(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Registry.Get(identityFrom(r))
	if errors.Is(err, session.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "no open session"})
		return
	}

	var req putDescriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	sess.Controller.SetDescription(req.Description)
	writeResult(w, http.StatusOK, envelope{Success: true, Message: "description updated"})
}

// handleResumeUpload reads an uploaded PDF résumé, extracts its plain text,
// and installs it as the session's personal description.
func (h *handler) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := h.deps.Registry.Get(identityFrom(r))
	if errors.Is(err, session.ErrNotFound) {
		writeResult(w, http.StatusNotFound, envelope{Message: "no open session"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
	file, _, err := r.FormFile("resume")
	if err != nil {
		writeResult(w, http.StatusBadRequest, envelope{Message: "resume file is required"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeResult(w, http.StatusBadRequest, envelope{Message: fmt.Sprintf("reading upload: %v", err)})
		return
	}

	text, err := extractResumeText(raw)
	if err != nil {
		writeResult(w, http.StatusUnprocessableEntity, envelope{Message: fmt.Sprintf("parsing resume: %v", err)})
		return
	}

	sess.Controller.SetDescription(text)
	writeResult(w, http.StatusOK, envelope{Success: true, Message: "description updated from resume"})
}

func extractResumeText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("no extractable text in resume")
	}
	return text, nil
}
