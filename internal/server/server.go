package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"helpconnect/internal/lifecycle"
	"helpconnect/internal/storage"
	"helpconnect/internal/store"
	"helpconnect/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"
)

// ImageSigner is the presigned-URL surface the image handlers need.
type ImageSigner interface {
	PresignUpload(ctx context.Context, requestID, contentType string) (*storage.UploadTicket, error)
	PresignView(ctx context.Context, key string) (string, error)
	ListRequestImages(ctx context.Context, requestID string) ([]string, error)
	DeleteImage(ctx context.Context, key string) error
}

// Subscriber manages topic subscriptions for notification emails.
type Subscriber interface {
	EnsureSubscription(ctx context.Context, email, role string) (bool, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	engine   *lifecycle.Engine
	requests *store.RequestRepository
	offers   *store.OfferRepository
	settings *store.SettingRepository
	images   ImageSigner
	subs     Subscriber
	verifier TokenVerifier

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	engine *lifecycle.Engine,
	requests *store.RequestRepository,
	offers *store.OfferRepository,
	settings *store.SettingRepository,
	images ImageSigner,
	subs Subscriber,
	verifier TokenVerifier,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger: logger,
		config: config,

		engine:   engine,
		requests: requests,
		offers:   offers,
		settings: settings,
		images:   images,
		subs:     subs,
		verifier: verifier,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.CORSMiddleware)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	// Public browse endpoints
	r.HandleFunc("/emergencies", s.handleListEmergencies, http.MethodGet)
	r.HandleFunc("/emergencies/nearby", s.handleNearbyEmergencies, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/help-requests", s.handleCreateRequest, http.MethodPost)
		r.HandleFunc("/help-requests/:requestID", s.handleGetRequest, http.MethodGet)
		r.HandleFunc("/help-requests/:requestID/close", s.handleCloseRequest, http.MethodPatch)
		r.HandleFunc("/help-requests/:requestID/offers", s.handleListOffers, http.MethodGet)
		r.HandleFunc("/help-requests/:requestID/images", s.handleListRequestImages, http.MethodGet)

		r.HandleFunc("/offers", s.handleSubmitOffer, http.MethodPost)
		r.HandleFunc("/accept-offer", s.handleAcceptOffer, http.MethodPost)

		r.HandleFunc("/my/requests", s.handleMyRequests, http.MethodGet)
		r.HandleFunc("/my/offers", s.handleMyOffers, http.MethodGet)

		r.HandleFunc("/images/upload-url", s.handleUploadURL, http.MethodPost)
		r.HandleFunc("/images/view-url", s.handleViewURL, http.MethodGet)
		r.HandleFunc("/images", s.handleDeleteImage, http.MethodDelete)

		r.HandleFunc("/notification-settings", s.handleGetSettings, http.MethodGet)
		r.HandleFunc("/notification-settings", s.handleUpdateSettings, http.MethodPut)
		r.HandleFunc("/notification-subscriptions", s.handleEnsureSubscription, http.MethodPost)

		r.HandleFunc("/admin/requests", s.handleAdminRequests, http.MethodGet)
		r.HandleFunc("/admin/offers", s.handleAdminOffers, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
