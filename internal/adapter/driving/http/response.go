package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/passworder/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CreateAccountRequest is the body of POST /api/v1/accounts.
type CreateAccountRequest struct {
	Username       string `json:"username"`
	MasterPassword string `json:"master_password"`
}

// AddCredentialRequest is the body of POST /api/v1/credentials.
type AddCredentialRequest struct {
	Service  string `json:"service"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

// UpdateCredentialRequest is the body of PUT /api/v1/credentials/{id}.
// Omitted fields are left unchanged.
type UpdateCredentialRequest struct {
	Service  *string `json:"service"`
	Login    *string `json:"login"`
	Password *string `json:"password"`
}

// AccountResponse is the JSON representation of an account. The verifier is never exposed.
type AccountResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// CredentialResponse is the JSON representation of a credential entry's
// metadata. Sealed secret bytes stay on the server.
type CredentialResponse struct {
	ID        int64  `json:"id"`
	Service   string `json:"service"`
	Login     string `json:"login"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// RevealResponse carries a decrypted password.
type RevealResponse struct {
	Password string `json:"password"`
}

// HealthResponse is the JSON response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func toAccountResponse(a model.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCredentialResponse(e model.CredentialEntry) CredentialResponse {
	return CredentialResponse{
		ID:        e.ID,
		Service:   e.Service,
		Login:     e.Login,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
