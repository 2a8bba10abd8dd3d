// Package lifecycle implements the help-request state machine:
//
//	create            accept (atomic, owner-only)        close (owner-only)
//	 -----> OPEN ----------------------------> IN_PROGRESS ----------> CLOSED
//
// A request accepts exactly one offer over its lifetime. The accept
// transition is the only cross-invocation coordination point in the system
// and is delegated entirely to the store's conditional transact-write; there
// is no in-process locking and no retry loop. A Conflict result is terminal
// for the invocation.
package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/geo"
	"helpconnect/internal/store"
	"helpconnect/internal/utils"
	"helpconnect/pkg/types"

	"github.com/sirupsen/logrus"
)

// Notifier is the best-effort dispatch surface fired after successful
// writes. Implementations log their own failures and never return them.
type Notifier interface {
	RequestCreated(ctx context.Context, request *types.HelpRequest)
	OfferCreated(ctx context.Context, offer *types.Offer, request *types.HelpRequest)
}

// EmailResolver backfills a volunteer email when the access token carries no
// email claim.
type EmailResolver interface {
	EmailBySub(ctx context.Context, sub string) (string, error)
}

type Engine struct {
	logger   *logrus.Logger
	db       dynamo.API
	requests *store.RequestRepository
	offers   *store.OfferRepository
	settings *store.SettingRepository
	notifier Notifier
	identity EmailResolver
}

// NewEngine wires the engine. identity may be nil; offers then fall back to
// the token email or "unknown".
func NewEngine(
	logger *logrus.Logger,
	db dynamo.API,
	requests *store.RequestRepository,
	offers *store.OfferRepository,
	settings *store.SettingRepository,
	notifier Notifier,
	identity EmailResolver,
) *Engine {
	return &Engine{
		logger:   logger,
		db:       db,
		requests: requests,
		offers:   offers,
		settings: settings,
		notifier: notifier,
		identity: identity,
	}
}

type CreateRequestInput struct {
	Title       string
	Description string
	Category    string
	Urgency     string
	Location    string
	ImageKey    *string
	Latitude    *float64
	Longitude   *float64
}

func (e *Engine) CreateRequest(ctx context.Context, actor types.Actor, input CreateRequestInput) (*types.HelpRequest, error) {
	if actor.ID == "" {
		return nil, types.ErrUnauthorized
	}

	fields := []struct{ name, value string }{
		{"title", input.Title},
		{"description", input.Description},
		{"category", input.Category},
		{"urgency", input.Urgency},
		{"location", input.Location},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, types.Validationf("missing fields: %s", strings.Join(missing, ", "))
	}

	request := &types.HelpRequest{
		HelpSeekerID: actor.ID,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Category:     strings.TrimSpace(input.Category),
		Urgency:      strings.TrimSpace(input.Urgency),
		Location:     strings.TrimSpace(input.Location),
		ImageKey:     input.ImageKey,
		Status:       types.RequestStatusOpen,
	}

	if input.Latitude != nil && input.Longitude != nil {
		request.Latitude = input.Latitude
		request.Longitude = input.Longitude
		bucket := geo.BucketKey(*input.Latitude, *input.Longitude)
		request.GeoPrefix = &bucket
	}

	if err := e.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	e.notifier.RequestCreated(ctx, request)

	return request, nil
}

type SubmitOfferInput struct {
	RequestID string
	Note      string
	// Raw body value; anything that doesn't parse as a non-negative integer
	// coerces to 0.
	EstimatedArrivalMinutes any
}

// SubmitOffer records a PENDING offer against a request. There is
// deliberately no check that the request exists or is still OPEN: offers may
// arrive against IN_PROGRESS or CLOSED requests.
func (e *Engine) SubmitOffer(ctx context.Context, actor types.Actor, input SubmitOfferInput) (*types.Offer, error) {
	if actor.ID == "" {
		return nil, types.ErrUnauthorized
	}

	if strings.TrimSpace(input.RequestID) == "" {
		return nil, types.Validationf("requestId is required")
	}

	email := actor.Email
	if email == "" && e.identity != nil {
		resolved, err := e.identity.EmailBySub(ctx, actor.ID)
		if err != nil {
			e.logger.WithError(err).WithField("volunteer_id", actor.ID).Warn("could not resolve volunteer email")
		} else {
			email = resolved
		}
	}
	if email == "" {
		email = "unknown"
	}

	offer := &types.Offer{
		RequestID:               strings.TrimSpace(input.RequestID),
		VolunteerID:             actor.ID,
		VolunteerEmail:          email,
		Note:                    input.Note,
		EstimatedArrivalMinutes: etaMinutes(input.EstimatedArrivalMinutes),
		Status:                  types.OfferStatusPending,
	}

	if err := e.offers.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	e.notifySeeker(ctx, offer)

	return offer, nil
}

// notifySeeker reads the request owner's notification setting and fires the
// new-offer notification when enabled. Every failure on this path is logged
// and dropped.
func (e *Engine) notifySeeker(ctx context.Context, offer *types.Offer) {
	request, err := e.requests.Request(ctx, offer.RequestID)
	if err != nil {
		e.logger.WithError(err).WithField("request_id", offer.RequestID).Warn("skipping offer notification")
		return
	}

	setting, err := e.settings.Setting(ctx, request.HelpSeekerID)
	if err != nil {
		// Unknown preference reads as enabled, same as a missing record.
		e.logger.WithError(err).Warn("could not read notification setting")
		setting = &types.NotificationSetting{UserID: request.HelpSeekerID, NotifyEnabled: true}
	}

	if !setting.NotifyEnabled {
		e.logger.WithField("user_id", request.HelpSeekerID).Debug("notifications disabled for user")
		return
	}

	e.notifier.OfferCreated(ctx, offer, request)
}

type AcceptResult struct {
	RequestID   string
	OfferID     string
	VolunteerID string
	Status      types.RequestStatus
}

// AcceptOffer transitions the request OPEN -> IN_PROGRESS and marks the
// offer ACCEPTED in one conditional transaction. Under N concurrent accepts
// against the same request exactly one transaction commits; the rest abort
// on the request-side condition and come back as Conflict.
func (e *Engine) AcceptOffer(ctx context.Context, actor types.Actor, requestID, offerID string) (*AcceptResult, error) {
	if actor.ID == "" {
		return nil, types.ErrUnauthorized
	}

	if strings.TrimSpace(requestID) == "" || strings.TrimSpace(offerID) == "" {
		return nil, types.Validationf("requestId and offerId are required")
	}

	offer, err := e.offers.Offer(ctx, requestID, offerID)
	if err != nil {
		return nil, err
	}

	request, err := e.requests.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if request.HelpSeekerID != actor.ID {
		return nil, types.ErrForbidden
	}

	now := utils.NowISO()

	err = e.db.TransactWrite(ctx, []dynamo.Write{
		e.requests.AcceptWrite(requestID, offerID, offer.VolunteerID, now),
		e.offers.AcceptWrite(requestID, offerID, now),
	})
	if err != nil {
		if errors.Is(err, dynamo.ErrTransactionAborted) {
			// Diagnostics come from the pre-transaction read and may be
			// stale relative to the concurrent winner.
			var accepted string
			if request.AcceptedOfferID != nil {
				accepted = *request.AcceptedOfferID
			}
			return nil, &types.ConflictError{
				Message:         "request already accepted or not open",
				RequestStatus:   request.Status,
				AcceptedOfferID: accepted,
			}
		}
		return nil, &types.StorageError{Op: "accept offer", Err: err}
	}

	e.logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"offer_id":     offerID,
		"volunteer_id": offer.VolunteerID,
	}).Info("offer accepted")

	return &AcceptResult{
		RequestID:   requestID,
		OfferID:     offerID,
		VolunteerID: offer.VolunteerID,
		Status:      types.RequestStatusInProgress,
	}, nil
}

// CloseRequest transitions IN_PROGRESS -> CLOSED. The status check and the
// update are separate steps, not a conditional transaction like accept, so a
// racing accept can interleave between them. Known gap, kept as-is.
func (e *Engine) CloseRequest(ctx context.Context, actor types.Actor, requestID string) error {
	if actor.ID == "" {
		return types.ErrUnauthorized
	}

	if strings.TrimSpace(requestID) == "" {
		return types.Validationf("request_id is required")
	}

	request, err := e.requests.Request(ctx, requestID)
	if err != nil {
		return err
	}

	if request.HelpSeekerID != actor.ID {
		return types.ErrForbidden
	}

	if !strings.EqualFold(string(request.Status), string(types.RequestStatusInProgress)) {
		return &types.ConflictError{
			Message:       "can close only when IN_PROGRESS",
			RequestStatus: request.Status,
		}
	}

	if err := e.requests.Close(ctx, requestID, utils.NowISO()); err != nil {
		return err
	}

	e.logger.WithField("request_id", requestID).Info("request closed")

	return nil
}

func etaMinutes(v any) int {
	var eta int

	switch n := v.(type) {
	case nil:
	case int:
		eta = n
	case int64:
		eta = int(n)
	case float64:
		eta = int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		eta = parsed
	default:
		return 0
	}

	if eta < 0 {
		return 0
	}

	return eta
}
