package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
)

const msgOAuthNotConfigured = "Missing GITHUB_OAUTH_ID secret."

func (h *Handler) cmsAuthorize(w http.ResponseWriter, r *http.Request) {
	if h.deps.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, msgOAuthNotConfigured)
		return
	}
	target, err := h.deps.OAuth.AuthorizeRedirect(r.URL.Query().Get("provider"), r.Host)
	switch {
	case err == nil:
		http.Redirect(w, r, target, http.StatusFound)
	case errors.Is(err, common.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, "Unsupported provider.")
	case errors.Is(err, common.ErrMissingConfiguration):
		writeError(w, http.StatusServiceUnavailable, msgOAuthNotConfigured)
	default:
		h.log.Error(r.Context(), "oauth authorize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to start OAuth flow.")
	}
}

func (h *Handler) cmsCallback(w http.ResponseWriter, r *http.Request) {
	if h.deps.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, msgOAuthNotConfigured)
		return
	}
	q := r.URL.Query()
	hs := h.deps.OAuth.Callback(r.Context(), q.Get("provider"), r.Host, q.Get("code"), q.Get("state"))
	if err := hs.Render(w); err != nil {
		h.log.Error(r.Context(), "failed to render oauth handshake", "error", err)
	}
}
