package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/upstream"
)

const (
	msgAuthNotConfigured = "Auth backend is not configured. Set API_ORIGIN or configure D1 DB binding."
	msgInvalidLogin      = "Invalid email or password."
	msgAuthTables        = "Auth tables missing. Expected auth_users/auth_sessions in D1."
	msgDuplicateAccount  = "An account with this email already exists."
	msgTrialFailed       = "Unable to create trial account."
	msgResetNotReady     = "Password reset flow not initialized. Ensure password_reset_requests table exists."
	msgResetAccepted     = "If this email exists, a password reset request has been created."
	msgInvalidSession    = "Session is invalid or expired."
	msgSessionLookup     = "Session lookup failed."
)

type credentials struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authMode runs the shared prelude of every auth route: method check, then
// upstream proxying when configured, then the not-configured guard. It
// reports whether the caller should continue in direct mode.
func (h *Handler) authMode(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return false
	}
	if h.deps.AuthProxy != nil {
		h.proxyAuth(w, r)
		return false
	}
	if h.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, msgAuthNotConfigured)
		return false
	}
	return true
}

func (h *Handler) proxyAuth(w http.ResponseWriter, r *http.Request) {
	path := h.deps.AuthPaths[r.URL.Path]
	if path == "" {
		path = r.URL.Path
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	resp, err := h.deps.AuthProxy.Proxy(r.Context(), r.Method, path, body, r.Header.Get("Authorization"))
	if err != nil {
		var pe *upstream.ProxyError
		if errors.As(err, &pe) {
			writeError(w, pe.Status, pe.Message, pe.Errors...)
			return
		}
		h.log.Error(r.Context(), "auth proxy failed", "path", path, "error", err)
		writeError(w, http.StatusBadGateway, "Upstream API request failed.")
		return
	}

	for k, vs := range resp.Header {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if !h.authMode(w, r, http.MethodPost) {
		return
	}

	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	session, err := h.deps.Auth.SignIn(r.Context(), in.Email, in.Password, requestMeta(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session)
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidLogin)
	default:
		writeError(w, http.StatusInternalServerError, msgAuthTables)
	}
}

func (h *Handler) trial(w http.ResponseWriter, r *http.Request) {
	if !h.authMode(w, r, http.MethodPost) {
		return
	}

	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	session, err := h.deps.Auth.StartTrial(r.Context(), in.Name, in.Company, in.Email, in.Password, requestMeta(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, session)
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, msgDuplicateAccount)
	default:
		writeError(w, http.StatusInternalServerError, msgTrialFailed)
	}
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	if !h.authMode(w, r, http.MethodPost) {
		return
	}

	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	err := h.deps.Auth.ForgotPassword(r.Context(), in.Email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageResponse{OK: true, Message: msgResetAccepted})
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, msgResetNotReady)
	}
}

type sessionResponse struct {
	OK        bool   `json:"ok"`
	ExpiresAt string `json:"expiresAt"`
	User      any    `json:"user"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	if !h.authMode(w, r, http.MethodGet) {
		return
	}

	info, err := h.deps.Auth.CurrentSession(r.Context(), bearerToken(r.Header.Get("Authorization")))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, sessionResponse{OK: true, ExpiresAt: info.ExpiresAt, User: info.User})
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, msgInvalidSession)
	default:
		writeError(w, http.StatusInternalServerError, msgSessionLookup)
	}
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if !h.authMode(w, r, http.MethodPost) {
		return
	}

	err := h.deps.Auth.SignOut(r.Context(), bearerToken(r.Header.Get("Authorization")))
	switch {
	case err == nil:
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidSession)
	default:
		writeError(w, http.StatusInternalServerError, msgSessionLookup)
	}
}
