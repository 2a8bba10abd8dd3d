package server

import (
	"net/http"
	"strings"

	"helpconnect/pkg/types"

	"github.com/alexedwards/flow"
)

type uploadURLBody struct {
	RequestID   string `json:"requestId"`
	ContentType string `json:"contentType"`
}

func (s *Service) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if _, err := s.actorFromContext(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}

	var body uploadURLBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	ticket, err := s.images.PresignUpload(r.Context(), strings.TrimSpace(body.RequestID), strings.TrimSpace(body.ContentType))
	if err != nil {
		s.respondError(w, &types.StorageError{Op: "presign upload", Err: err})
		return
	}

	s.respondJSON(w, http.StatusOK, ticket)
}

func (s *Service) handleViewURL(w http.ResponseWriter, r *http.Request) {
	if _, err := s.actorFromContext(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}

	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		s.respondError(w, types.Validationf("Missing required query param: key"))
		return
	}

	url, err := s.images.PresignView(r.Context(), key)
	if err != nil {
		s.respondError(w, &types.StorageError{Op: "presign view", Err: err})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"viewUrl": url})
}

func (s *Service) handleListRequestImages(w http.ResponseWriter, r *http.Request) {
	requestID := flow.Param(r.Context(), "requestID")

	keys, err := s.images.ListRequestImages(r.Context(), requestID)
	if err != nil {
		s.respondError(w, &types.StorageError{Op: "list request images", Err: err})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"requestId": requestID,
		"items":     keys,
		"count":     len(keys),
	})
}

func (s *Service) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.actorFromContext(r.Context()); err != nil {
		s.respondError(w, err)
		return
	}

	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		s.respondError(w, types.Validationf("Missing required query param: key"))
		return
	}

	if err := s.images.DeleteImage(r.Context(), key); err != nil {
		s.respondError(w, &types.StorageError{Op: "delete image", Err: err})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted"})
}
