package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"helpconnect/pkg/types"
)

func (s *Service) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response body")
	}
}

// respondError translates the engine's error taxonomy into transport
// responses. Anything unrecognized is a 500 and gets logged.
func (s *Service) respondError(w http.ResponseWriter, err error) {
	var validation *types.ValidationError
	var conflict *types.ConflictError
	var storageErr *types.StorageError

	switch {
	case errors.As(err, &validation):
		s.respondJSON(w, http.StatusBadRequest, map[string]any{"message": validation.Message})

	case errors.Is(err, types.ErrUnauthorized):
		s.respondJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized: missing user sub"})

	case errors.Is(err, types.ErrForbidden):
		s.respondJSON(w, http.StatusForbidden, map[string]any{"message": "Forbidden: not your request"})

	case errors.Is(err, types.ErrRequestNotFound), errors.Is(err, types.ErrOfferNotFound):
		s.respondJSON(w, http.StatusNotFound, map[string]any{"message": err.Error()})

	case errors.As(err, &conflict):
		s.respondJSON(w, http.StatusConflict, map[string]any{
			"message":         conflict.Message,
			"requestStatus":   string(conflict.RequestStatus),
			"acceptedOfferId": conflict.AcceptedOfferID,
		})

	case errors.As(err, &storageErr):
		s.logger.WithError(err).Error("storage failure")
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})

	default:
		s.logger.WithError(err).Error("unhandled error")
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
	}
}

// decodeBody rejects anything that isn't a JSON object matching dst.
func (s *Service) decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return types.Validationf("Invalid JSON body")
	}
	return nil
}
