package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/delivery"
	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

type submissionResponse struct {
	OK                  bool   `json:"ok"`
	Message             string `json:"message"`
	DeliveredToUpstream bool   `json:"deliveredToUpstream"`
	DeliveredByEmail    bool   `json:"deliveredByEmail"`
	StoredInD1          bool   `json:"storedInD1"`
}

// submissionCopy holds the user-facing wording for one form.
type submissionCopy struct {
	received      string
	failed        string
	notConfigured string
}

var (
	contactCopy = submissionCopy{
		received:      "Contact request received.",
		failed:        "Contact submission failed.",
		notConfigured: "No contact handlers configured. Configure API_ORIGIN, EMAIL binding, or D1 DB.",
	}
	waitlistCopy = submissionCopy{
		received:      "Waitlist submission received.",
		failed:        "Waitlist submission failed.",
		notConfigured: "No waitlist handlers configured. Configure API_ORIGIN, EMAIL binding, or D1 DB.",
	}
)

type validatable interface {
	delivery.Submission
	Validate() error
}

func (h *Handler) contact(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, &models.ContactSubmission{}, h.deps.Contact, contactCopy)
}

func (h *Handler) waitlist(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, &models.WaitlistSubmission{}, h.deps.Waitlist, waitlistCopy)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, sub validatable, router Deliverer, text submissionCopy) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		return
	}

	if err := decodeJSON(w, r, sub); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if err := sub.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if router == nil {
		writeError(w, http.StatusServiceUnavailable, text.notConfigured)
		return
	}

	res, err := router.Deliver(r.Context(), sub)
	if err != nil {
		var de *delivery.DeliveryError
		switch {
		case errors.Is(err, common.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, text.notConfigured)
		case errors.As(err, &de):
			writeError(w, http.StatusBadGateway, text.failed, de.Errors...)
		default:
			h.log.Error(r.Context(), "submission failed", "kind", string(sub.Kind()), "error", err)
			writeError(w, http.StatusInternalServerError, text.failed)
		}
		return
	}

	writeJSON(w, http.StatusOK, submissionResponse{
		OK:                  true,
		Message:             text.received,
		DeliveredToUpstream: res.DeliveredToUpstream,
		DeliveredByEmail:    res.DeliveredByEmail,
		StoredInD1:          res.StoredInDatabase,
	})
}
