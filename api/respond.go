package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"shodesh/auth"
	"shodesh/donation"
	"shodesh/event"
	"shodesh/verification"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the workflow error taxonomy onto HTTP statuses.
// Unknown errors are logged and reported as internal without leaking detail.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verification.ErrEventNotFound),
		errors.Is(err, verification.ErrStaffNotFound),
		errors.Is(err, event.ErrNotFound),
		errors.Is(err, donation.ErrEventNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, verification.ErrInvalidTransition),
		errors.Is(err, donation.ErrNotAccepting),
		errors.Is(err, auth.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, verification.ErrReasonRequired),
		errors.Is(err, verification.ErrStaffNotEligible),
		errors.Is(err, verification.ErrInvalidInput),
		errors.Is(err, event.ErrInvalidInput),
		errors.Is(err, donation.ErrInvalidAmount),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, verification.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, verification.ErrStoreUnavailable),
		errors.Is(err, event.ErrStoreUnavailable),
		errors.Is(err, donation.ErrStoreUnavailable),
		errors.Is(err, auth.ErrStoreUnavailable):
		log.Printf("store unavailable: %v", err)
		respondError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
