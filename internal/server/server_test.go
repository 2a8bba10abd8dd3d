package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/lifecycle"
	"helpconnect/internal/storage"
	"helpconnect/internal/store"
	"helpconnect/pkg/types"

	"github.com/sirupsen/logrus"
)

// staticVerifier maps literal bearer tokens onto actors.
type staticVerifier map[string]types.Actor

func (v staticVerifier) Verify(_ context.Context, token string) (types.Actor, error) {
	actor, ok := v[token]
	if !ok {
		return types.Actor{}, fmt.Errorf("unknown token")
	}
	return actor, nil
}

type fakeSigner struct{}

func (fakeSigner) PresignUpload(_ context.Context, requestID, contentType string) (*storage.UploadTicket, error) {
	return &storage.UploadTicket{
		UploadURL:   "https://example.com/upload",
		ImageKey:    "requests/" + requestID + "/img.jpg",
		ImageID:     "img",
		ContentType: contentType,
	}, nil
}

func (fakeSigner) PresignView(_ context.Context, key string) (string, error) {
	return "https://example.com/view/" + key, nil
}

func (fakeSigner) ListRequestImages(_ context.Context, requestID string) ([]string, error) {
	return []string{"requests/" + requestID + "/img.jpg"}, nil
}

func (fakeSigner) DeleteImage(context.Context, string) error { return nil }

type fakeSubscriber struct {
	subscribed map[string]bool
}

func (s *fakeSubscriber) EnsureSubscription(_ context.Context, email, _ string) (bool, error) {
	if s.subscribed[email] {
		return false, nil
	}
	if s.subscribed == nil {
		s.subscribed = map[string]bool{}
	}
	s.subscribed[email] = true
	return true, nil
}

type nopNotifier struct{}

func (nopNotifier) RequestCreated(context.Context, *types.HelpRequest) {}

func (nopNotifier) OfferCreated(context.Context, *types.Offer, *types.HelpRequest) {}

const (
	seekerToken    = "seeker-token"
	volunteerToken = "volunteer-token"
	adminToken     = "admin-token"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := dynamo.NewMemory()
	db.CreateTable("HelpRequests", "request_id")
	db.CreateTable("HelpOffers", "request_id", "offer_id")
	db.CreateTable("NotificationSettings", "user_id")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	requests := store.NewRequestRepository(db, "HelpRequests")
	offers := store.NewOfferRepository(db, "HelpOffers")
	settings := store.NewSettingRepository(db, "NotificationSettings")

	engine := lifecycle.NewEngine(logger, db, requests, offers, settings, nopNotifier{}, nil)

	config := &types.Config{
		ServerPort:      8080,
		ReadTimeoutSec:  10,
		WriteTimeoutSec: 15,
		DefaultRadiusKm: 10,
		MaxRadiusKm:     50,
	}

	verifier := staticVerifier{
		seekerToken:    {ID: "seeker-1", Email: "seeker@example.com"},
		volunteerToken: {ID: "vol-1", Email: "vol@example.com"},
		adminToken:     {ID: "admin-1", Email: "admin@example.com", Groups: []string{"Admin"}},
	}

	svc, err := New(config, logger, engine, requests, offers, settings, fakeSigner{}, &fakeSubscriber{}, verifier)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return svc
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}

	return rec, decoded
}

func createRequestViaAPI(t *testing.T, handler http.Handler) string {
	t.Helper()

	rec, body := doJSON(t, handler, http.MethodPost, "/help-requests", seekerToken, map[string]any{
		"title":       "Need blood donor",
		"description": "Urgent A+ needed",
		"category":    "medical",
		"urgency":     "high",
		"location":    "City Hospital",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %v", rec.Code, body)
	}

	requestID, _ := body["requestId"].(string)
	if requestID == "" {
		t.Fatalf("create response missing requestId: %v", body)
	}
	return requestID
}

func TestHealthzIsPublic(t *testing.T) {
	svc := newTestService(t)

	rec, body := doJSON(t, svc.Handler(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	svc := newTestService(t)

	rec, _ := doJSON(t, svc.Handler(), http.MethodPost, "/help-requests", "", map[string]any{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	rec, _ = doJSON(t, svc.Handler(), http.MethodPost, "/help-requests", "bogus", map[string]any{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}
}

func TestCreateAndFetchRequest(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)

	rec, body := doJSON(t, handler, http.MethodGet, "/help-requests/"+requestID, seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body["status"] != "OPEN" {
		t.Fatalf("status field = %v, want OPEN", body["status"])
	}
	if body["title"] != "Need blood donor" {
		t.Fatalf("title = %v", body["title"])
	}
}

func TestCreateRequestValidation(t *testing.T) {
	svc := newTestService(t)

	rec, body := doJSON(t, svc.Handler(), http.MethodPost, "/help-requests", seekerToken, map[string]any{
		"title": "incomplete",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %v", rec.Code, body)
	}
}

func TestOfferLifecycleOverHTTP(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)

	// snake_case body keys are accepted for older clients
	rec, body := doJSON(t, handler, http.MethodPost, "/offers", volunteerToken, map[string]any{
		"request_id":  requestID,
		"note":        "on my way",
		"eta_minutes": "25",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit offer status = %d, body %v", rec.Code, body)
	}
	offerID, _ := body["offerId"].(string)
	if offerID == "" {
		t.Fatalf("submit response missing offerId: %v", body)
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/accept-offer", seekerToken, map[string]any{
		"requestId": requestID,
		"offerId":   offerID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %v", rec.Code, body)
	}
	if body["status"] != "IN_PROGRESS" {
		t.Fatalf("accept status field = %v, want IN_PROGRESS", body["status"])
	}

	rec, body = doJSON(t, handler, http.MethodPatch, "/help-requests/"+requestID+"/close", seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d, body %v", rec.Code, body)
	}
}

// The first web client sent the ETA under its full name; the key must not
// be dropped on the floor.
func TestSubmitOfferFullETAKey(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)

	rec, body := doJSON(t, handler, http.MethodPost, "/offers", volunteerToken, map[string]any{
		"requestId":               requestID,
		"estimatedArrivalMinutes": 25,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit offer status = %d, body %v", rec.Code, body)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/help-requests/"+requestID+"/offers", seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list offers status = %d", rec.Code)
	}
	items := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("offers = %d, want 1", len(items))
	}
	offer := items[0].(map[string]any)
	if offer["estimated_arrival_minutes"].(float64) != 25 {
		t.Fatalf("estimated_arrival_minutes = %v, want 25", offer["estimated_arrival_minutes"])
	}
}

func TestAcceptConflictOverHTTP(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)

	var offerIDs []string
	for i := 0; i < 2; i++ {
		rec, body := doJSON(t, handler, http.MethodPost, "/offers", volunteerToken, map[string]any{
			"requestId": requestID,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit offer status = %d", rec.Code)
		}
		offerIDs = append(offerIDs, body["offerId"].(string))
	}

	rec, _ := doJSON(t, handler, http.MethodPost, "/accept-offer", seekerToken, map[string]any{
		"requestId": requestID, "offerId": offerIDs[0],
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first accept status = %d", rec.Code)
	}

	rec, body := doJSON(t, handler, http.MethodPost, "/accept-offer", seekerToken, map[string]any{
		"requestId": requestID, "offerId": offerIDs[1],
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second accept status = %d, want 409", rec.Code)
	}
	if body["requestStatus"] != "IN_PROGRESS" {
		t.Fatalf("conflict requestStatus = %v, want IN_PROGRESS", body["requestStatus"])
	}
	if body["acceptedOfferId"] != offerIDs[0] {
		t.Fatalf("conflict acceptedOfferId = %v, want %s", body["acceptedOfferId"], offerIDs[0])
	}
}

func TestAcceptForbiddenOverHTTP(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)

	rec, body := doJSON(t, handler, http.MethodPost, "/offers", volunteerToken, map[string]any{
		"requestId": requestID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit offer status = %d", rec.Code)
	}
	offerID := body["offerId"].(string)

	rec, _ = doJSON(t, handler, http.MethodPost, "/accept-offer", volunteerToken, map[string]any{
		"requestId": requestID, "offerId": offerID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("accept by non-owner status = %d, want 403", rec.Code)
	}
}

func TestEmergenciesArePublic(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	createRequestViaAPI(t, handler)

	rec, body := doJSON(t, handler, http.MethodGet, "/emergencies", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", body["count"])
	}
}

func TestNearbyRequiresCoordinates(t *testing.T) {
	svc := newTestService(t)

	rec, _ := doJSON(t, svc.Handler(), http.MethodGet, "/emergencies/nearby", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestNearbyFiltersAndClampsRadius(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	// one request with coordinates, one without
	rec, _ := doJSON(t, handler, http.MethodPost, "/help-requests", seekerToken, map[string]any{
		"title": "t", "description": "d", "category": "c", "urgency": "high", "location": "l",
		"latitude": 41.0, "longitude": 29.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create located request status = %d", rec.Code)
	}
	createRequestViaAPI(t, handler)

	rec, body := doJSON(t, handler, http.MethodGet, "/emergencies/nearby?lat=41.0&lng=29.0&radiusKm=500", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("nearby status = %d", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1 (only the located request)", body["count"])
	}
	if body["radiusKm"].(float64) != 50 {
		t.Fatalf("radiusKm = %v, want clamped to 50", body["radiusKm"])
	}
}

func TestNotificationSettingsRoundTrip(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	// default is enabled
	rec, body := doJSON(t, handler, http.MethodGet, "/notification-settings", seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body["notify_enabled"] != true {
		t.Fatalf("default notify_enabled = %v, want true", body["notify_enabled"])
	}

	// missing notify_enabled is rejected
	rec, _ = doJSON(t, handler, http.MethodPut, "/notification-settings", seekerToken, map[string]any{
		"email": "seeker@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("put without notify_enabled status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, handler, http.MethodPut, "/notification-settings", seekerToken, map[string]any{
		"notify_enabled": false,
		"role":           "help_seeker",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/notification-settings", seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get after put status = %d", rec.Code)
	}
	if body["notify_enabled"] != false {
		t.Fatalf("notify_enabled = %v, want false", body["notify_enabled"])
	}
}

func TestEnsureSubscription(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/notification-subscriptions", volunteerToken, map[string]any{
		"role": "VOLUNTEER",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d, body %v", rec.Code, body)
	}
	if body["email"] != "vol@example.com" {
		t.Fatalf("email = %v, want token email", body["email"])
	}

	// second call reports already subscribed
	rec, body = doJSON(t, handler, http.MethodPost, "/notification-subscriptions", volunteerToken, map[string]any{
		"role": "VOLUNTEER",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second subscribe status = %d", rec.Code)
	}
	if body["message"] != "Already subscribed" {
		t.Fatalf("message = %v, want Already subscribed", body["message"])
	}
}

func TestImageEndpoints(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/images/upload-url", seekerToken, map[string]any{
		"requestId":   "req-1",
		"contentType": "image/png",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload-url status = %d", rec.Code)
	}
	if body["uploadUrl"] != "https://example.com/upload" {
		t.Fatalf("uploadUrl = %v", body["uploadUrl"])
	}

	rec, _ = doJSON(t, handler, http.MethodGet, "/images/view-url", seekerToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("view-url without key status = %d, want 400", rec.Code)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/images/view-url?key=requests/req-1/img.jpg", seekerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("view-url status = %d", rec.Code)
	}
	if body["viewUrl"] == "" {
		t.Fatalf("viewUrl missing: %v", body)
	}
}

func TestAdminListingsRequireAdminGroup(t *testing.T) {
	svc := newTestService(t)
	handler := svc.Handler()

	requestID := createRequestViaAPI(t, handler)
	rec, _ := doJSON(t, handler, http.MethodPost, "/offers", volunteerToken, map[string]any{
		"requestId": requestID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit offer status = %d", rec.Code)
	}

	for _, path := range []string{"/admin/requests", "/admin/offers"} {
		rec, _ := doJSON(t, handler, http.MethodGet, path, volunteerToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s as non-admin status = %d, want 403", path, rec.Code)
		}
	}

	rec, body := doJSON(t, handler, http.MethodGet, "/admin/requests", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin requests status = %d", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Fatalf("admin requests count = %v, want 1", body["count"])
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/admin/offers", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin offers status = %d", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Fatalf("admin offers count = %v, want 1", body["count"])
	}
}

func TestCORSPreflight(t *testing.T) {
	svc := newTestService(t)

	req := httptest.NewRequest(http.MethodOptions, "/help-requests", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS origin header")
	}
}
