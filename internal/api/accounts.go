package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chengzr01/jobscout/internal/storage"
)

type contextKey string

const identityKey contextKey = "identity"

// tokenTable maps bearer tokens to usernames. Tokens live for the lifetime
// of the process; logout removes them.
type tokenTable struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func newTokenTable() *tokenTable {
	return &tokenTable{tokens: make(map[string]string)}
}

func (t *tokenTable) issue(username string) string {
	token := uuid.NewString()
	t.mu.Lock()
	t.tokens[token] = username
	t.mu.Unlock()
	return token
}

func (t *tokenTable) lookup(token string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	username, ok := t.tokens[token]
	return username, ok
}

func (t *tokenTable) revoke(token string) {
	t.mu.Lock()
	delete(t.tokens, token)
	t.mu.Unlock()
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeResult(w, http.StatusBadRequest, envelope{Message: "username and password are required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("hashing password: %v", err)})
		return
	}

	err = h.deps.Store.CreateUser(storage.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		writeResult(w, http.StatusConflict, envelope{Message: fmt.Sprintf("creating user: %v", err)})
		return
	}

	writeResult(w, http.StatusCreated, envelope{Success: true, Message: "user created"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// handleLogin checks credentials, opens (or reuses) the user's session, and
// issues a bearer token.
func (h *handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	user, err := h.deps.Store.GetUser(req.Username)
	if errors.Is(err, storage.ErrNotFound) {
		writeResult(w, http.StatusUnauthorized, envelope{Message: "invalid credentials"})
		return
	}
	if err != nil {
		writeResult(w, http.StatusInternalServerError, envelope{Message: fmt.Sprintf("loading user: %v", err)})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeResult(w, http.StatusUnauthorized, envelope{Message: "invalid credentials"})
		return
	}

	sess, created := h.deps.Registry.Open(req.Username)
	token := h.tokens.issue(req.Username)

	message := "logged in"
	if created {
		message = sess.Controller.Opening()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, loginResponse{Success: true, Message: message, Token: token})
}

// handleLogout revokes the caller's token and closes their session.
func (h *handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	h.tokens.revoke(tokenFrom(r))
	h.deps.Registry.Close(identity)
	writeResult(w, http.StatusOK, envelope{Success: true, Message: "logged out"})
}

// requireAuth resolves the bearer token into an identity and stashes it on
// the request context.
func (h *handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r)
		if token == "" {
			writeResult(w, http.StatusUnauthorized, envelope{Message: "missing bearer token"})
			return
		}
		username, ok := h.tokens.lookup(token)
		if !ok {
			writeResult(w, http.StatusUnauthorized, envelope{Message: "invalid or expired token"})
			return
		}
		ctx := withIdentity(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withIdentity(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, identityKey, username)
}

// identityFrom returns the authenticated username. Only valid behind
// requireAuth.
func identityFrom(r *http.Request) string {
	username, _ := r.Context().Value(identityKey).(string)
	return username
}

func tokenFrom(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
