package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusbook/scheduling-engine/internal/models"
)

// RespondJSON writes data as a JSON response with the given status
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an error message as a JSON response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondDomainError maps a domain rejection to an HTTP status and surfaces
// its reason code. OVERLAP rejections include the conflicting reservations.
func RespondDomainError(w http.ResponseWriter, err error) bool {
	var de *models.DomainError
	if !errors.As(err, &de) {
		return false
	}

	status := http.StatusUnprocessableEntity
	switch de.Code {
	case models.ReasonOverlap:
		status = http.StatusConflict
	case models.ReasonForbiddenRole:
		status = http.StatusForbidden
	case models.ReasonAlreadyTerminal:
		status = http.StatusConflict
	case models.ReasonInvalidPattern:
		status = http.StatusBadRequest
	}

	body := map[string]interface{}{
		"error":  de.Detail,
		"reason": de.Code,
	}
	if len(de.Conflicts) > 0 {
		body["conflicts"] = de.Conflicts
	}
	RespondJSON(w, status, body)
	return true
}
