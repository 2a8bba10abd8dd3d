package server

import (
	"net/http"
	"strconv"
)

const adminPageSize = 100

// Admin listings expose the operator's table view over HTTP, gated on the
// Admin Cognito group.

func (s *Service) handleAdminRequests(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !actor.IsAdmin() {
		s.respondJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden: admins only"})
		return
	}

	qs := r.URL.Query()

	requests, next, err := s.requests.ScanRequests(r.Context(), adminLimit(qs.Get("limit")), qs.Get("pageToken"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	body := map[string]any{
		"items": requests,
		"count": len(requests),
	}
	if next != "" {
		body["nextPageToken"] = next
	}

	s.respondJSON(w, http.StatusOK, body)
}

func (s *Service) handleAdminOffers(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !actor.IsAdmin() {
		s.respondJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden: admins only"})
		return
	}

	qs := r.URL.Query()

	offers, next, err := s.offers.ScanOffers(r.Context(), adminLimit(qs.Get("limit")), qs.Get("pageToken"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	body := map[string]any{
		"items": offers,
		"count": len(offers),
	}
	if next != "" {
		body["nextPageToken"] = next
	}

	s.respondJSON(w, http.StatusOK, body)
}

func adminLimit(raw string) int32 {
	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || parsed <= 0 {
		return adminPageSize
	}
	return int32(parsed)
}
