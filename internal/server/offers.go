package server

import (
	"net/http"
	"strings"

	"helpconnect/internal/lifecycle"

	"github.com/alexedwards/flow"
)

// Both camelCase and snake_case keys are accepted: older mobile clients send
// snake_case bodies, and the first web client spelled the ETA out in full.
type submitOfferBody struct {
	RequestID      string `json:"requestId"`
	RequestIDSnake string `json:"request_id"`
	Note           string `json:"note"`
	ETAFull        any    `json:"estimatedArrivalMinutes"`
	ETA            any    `json:"etaMinutes"`
	ETASnake       any    `json:"eta_minutes"`
}

func (s *Service) handleSubmitOffer(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body submitOfferBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	requestID := body.RequestID
	if strings.TrimSpace(requestID) == "" {
		requestID = body.RequestIDSnake
	}
	eta := body.ETAFull
	if eta == nil {
		eta = body.ETA
	}
	if eta == nil {
		eta = body.ETASnake
	}

	offer, err := s.engine.SubmitOffer(r.Context(), actor, lifecycle.SubmitOfferInput{
		RequestID:               requestID,
		Note:                    body.Note,
		EstimatedArrivalMinutes: eta,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Offer submitted",
		"offerId":   offer.OfferID,
		"requestId": offer.RequestID,
	})
}

type acceptOfferBody struct {
	RequestID      string `json:"requestId"`
	RequestIDSnake string `json:"request_id"`
	OfferID        string `json:"offerId"`
	OfferIDSnake   string `json:"offer_id"`
}

func (s *Service) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body acceptOfferBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	requestID := body.RequestID
	if strings.TrimSpace(requestID) == "" {
		requestID = body.RequestIDSnake
	}
	offerID := body.OfferID
	if strings.TrimSpace(offerID) == "" {
		offerID = body.OfferIDSnake
	}

	result, err := s.engine.AcceptOffer(r.Context(), actor, requestID, offerID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Offer accepted",
		"requestId":   result.RequestID,
		"offerId":     result.OfferID,
		"volunteerId": result.VolunteerID,
		"status":      string(result.Status),
	})
}

func (s *Service) handleListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.offers.OffersByRequest(r.Context(), flow.Param(r.Context(), "requestID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"items": offers,
		"count": len(offers),
	})
}

func (s *Service) handleMyOffers(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	offers, err := s.offers.OffersByVolunteer(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"items": offers,
		"count": len(offers),
	})
}
