package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/passworder/internal/application"
	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// maxBodyBytes caps request bodies; every accepted body is a few short strings.
const maxBodyBytes = 64 << 10

// Vault is the subset of application.VaultService the HTTP API drives.
type Vault interface {
	CreateAccount(ctx context.Context, username, masterPassword string) (model.Account, error)
	Authenticate(ctx context.Context, username, masterPassword string) (model.Account, error)
	AddCredential(ctx context.Context, accountID int64, service, login, plaintextPassword, masterPassword string) (model.CredentialEntry, error)
	ListCredentials(ctx context.Context, accountID int64) ([]model.CredentialEntry, error)
	GetCredential(ctx context.Context, accountID, entryID int64) (model.CredentialEntry, error)
	RevealCredential(ctx context.Context, entry model.CredentialEntry, masterPassword string) (string, error)
	UpdateCredential(ctx context.Context, accountID, entryID int64, upd application.CredentialUpdate, masterPassword string) (model.CredentialEntry, error)
}

// HealthChecker reports service liveness.
type HealthChecker interface {
	Check(ctx context.Context) application.HealthReport
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault  Vault
	health HealthChecker
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(vault Vault, health HealthChecker, logger *slog.Logger) *Handler {
	return &Handler{vault: vault, health: health, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/accounts", h.CreateAccount)
	mux.HandleFunc("GET /api/v1/credentials", h.withAccount(h.ListCredentials))
	mux.HandleFunc("POST /api/v1/credentials", h.withAccount(h.AddCredential))
	mux.HandleFunc("PUT /api/v1/credentials/{id}", h.withAccount(h.UpdateCredential))
	mux.HandleFunc("GET /api/v1/credentials/{id}/password", h.withAccount(h.RevealCredential))
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// session is the authenticated caller of a request. The master password is
// kept only for the lifetime of the request.
type session struct {
	account        model.Account
	masterPassword string
}

type accountHandlerFunc func(w http.ResponseWriter, r *http.Request, s session)

// withAccount authenticates the request with HTTP Basic credentials
// (username and master password) before calling next.
func (h *Handler) withAccount(next accountHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			writeUnauthorized(w)
			return
		}

		account, err := h.vault.Authenticate(r.Context(), username, password)
		if err != nil {
			h.writeServiceError(w, r, "authenticate", err)
			return
		}

		next(w, r, session{account: account, masterPassword: password})
	}
}

// CreateAccount registers a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.vault.CreateAccount(r.Context(), req.Username, req.MasterPassword)
	if err != nil {
		h.writeServiceError(w, r, "create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

// ListCredentials returns metadata for every credential of the caller.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request, s session) {
	entries, err := h.vault.ListCredentials(r.Context(), s.account.ID)
	if err != nil {
		h.writeServiceError(w, r, "list credentials", err)
		return
	}

	resp := make([]CredentialResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toCredentialResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddCredential seals and stores a new credential for the caller.
func (h *Handler) AddCredential(w http.ResponseWriter, r *http.Request, s session) {
	var req AddCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.vault.AddCredential(r.Context(), s.account.ID, req.Service, req.Login, req.Password, s.masterPassword)
	if err != nil {
		h.writeServiceError(w, r, "add credential", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(entry))
}

// UpdateCredential edits service, login or password of one of the caller's credentials.
func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request, s session) {
	entryID, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	var req UpdateCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}

	upd := application.CredentialUpdate{Service: req.Service, Login: req.Login, Password: req.Password}
	entry, err := h.vault.UpdateCredential(r.Context(), s.account.ID, entryID, upd, s.masterPassword)
	if err != nil {
		h.writeServiceError(w, r, "update credential", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(entry))
}

// RevealCredential decrypts one of the caller's credentials.
func (h *Handler) RevealCredential(w http.ResponseWriter, r *http.Request, s session) {
	entryID, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	entry, err := h.vault.GetCredential(r.Context(), s.account.ID, entryID)
	if err != nil {
		h.writeServiceError(w, r, "get credential", err)
		return
	}

	password, err := h.vault.RevealCredential(r.Context(), entry, s.masterPassword)
	if err != nil {
		h.writeServiceError(w, r, "reveal credential", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, RevealResponse{Password: password})
}

// Health reports storage liveness: 200 when healthy, 503 when degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status: report.Status,
		Time:   report.Time.Format(time.RFC3339),
	})
}

// writeServiceError maps the domain error taxonomy onto HTTP status codes.
// Only unexpected failures are logged, and never with request contents.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		msg := "invalid input"
		var inputErr *model.InputError
		if errors.As(err, &inputErr) {
			msg = inputErr.Message()
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, model.ErrAuthenticationFailed):
		writeUnauthorized(w)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("request failed", "op", op, "request_id", RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="passworder", charset="UTF-8"`)
	writeError(w, http.StatusUnauthorized, "authentication failed")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func parseEntryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return 0, false
	}
	return id, true
}
