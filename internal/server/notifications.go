package server

import (
	"net/http"
	"strings"

	"helpconnect/pkg/types"
)

func (s *Service) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	setting, err := s.settings.Setting(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, setting)
}

type updateSettingsBody struct {
	NotifyEnabled *bool  `json:"notify_enabled"`
	Email         string `json:"email"`
	Role          string `json:"role"`
}

func (s *Service) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body updateSettingsBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	if body.NotifyEnabled == nil {
		s.respondError(w, types.Validationf("Missing field: notify_enabled"))
		return
	}

	email := strings.TrimSpace(body.Email)
	if email == "" {
		email = actor.Email
	}

	setting := &types.NotificationSetting{
		UserID:        actor.ID,
		NotifyEnabled: *body.NotifyEnabled,
		Email:         email,
		Role:          strings.ToUpper(strings.TrimSpace(body.Role)),
	}

	if err := s.settings.PutSetting(r.Context(), setting); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": "Notification settings updated",
		"setting": setting,
	})
}

type ensureSubscriptionBody struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// handleEnsureSubscription subscribes the caller's email to the SNS topic for
// their role. Users who turned notifications off are skipped without error.
func (s *Service) handleEnsureSubscription(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	var body ensureSubscriptionBody
	if err := s.decodeBody(r, &body); err != nil {
		s.respondError(w, err)
		return
	}

	email := strings.TrimSpace(body.Email)
	if email == "" {
		email = actor.Email
	}
	role := strings.ToUpper(strings.TrimSpace(body.Role))

	if email == "" || role == "" {
		s.respondError(w, types.Validationf("Missing fields: email, role"))
		return
	}

	setting, err := s.settings.Setting(r.Context(), actor.ID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !setting.NotifyEnabled {
		s.respondJSON(w, http.StatusOK, map[string]string{
			"message": "Notifications disabled; subscription skipped",
		})
		return
	}

	created, err := s.subs.EnsureSubscription(r.Context(), email, role)
	if err != nil {
		s.respondError(w, &types.StorageError{Op: "ensure subscription", Err: err})
		return
	}

	message := "Already subscribed"
	if created {
		message = "Subscription requested; confirm via email"
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": message,
		"email":   email,
		"role":    role,
	})
}
