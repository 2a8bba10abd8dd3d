package server

import (
	"net/http"

	"helpconnect/internal/lifecycle"

	"github.com/alexedwards/flow"
)

type createRequestBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Urgency     string   `json:"urgency"`
	Location    string   `json:"location"`
	ImageKey    *string  `json:"imageKey"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body createRequestBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	request, err := s.engine.CreateRequest(r.Context(), actor, lifecycle.CreateRequestInput{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		Urgency:     body.Urgency,
		Location:    body.Location,
		ImageKey:    body.ImageKey,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Help request created successfully",
		"requestId": request.RequestID,
	})
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	request, err := s.requests.Request(r.Context(), flow.Param(r.Context(), "requestID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, request)
}

func (s *Service) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	requests, err := s.requests.RequestsBySeeker(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"items": requests,
		"count": len(requests),
	})
}

func (s *Service) handleCloseRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	requestID := flow.Param(r.Context(), "requestID")

	if err := s.engine.CloseRequest(r.Context(), actor, requestID); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Request closed",
		"requestId": requestID,
	})
}
