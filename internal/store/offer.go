package store

import (
	"context"
	"sort"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/utils"
	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// VolunteerIndexName is the secondary index of the offers table keyed by
// volunteer_id.
const VolunteerIndexName = "volunteer_id-index"

type OfferRepository struct {
	db    dynamo.API
	table string
}

func NewOfferRepository(db dynamo.API, table string) *OfferRepository {
	return &OfferRepository{db: db, table: table}
}

func (r *OfferRepository) offerKey(requestID, offerID string) dynamo.Item {
	return dynamo.Item{
		"request_id": dynamo.S(requestID),
		"offer_id":   dynamo.S(offerID),
	}
}

func (r *OfferRepository) Offer(ctx context.Context, requestID, offerID string) (*types.Offer, error) {
	item, err := r.db.Get(ctx, r.table, r.offerKey(requestID, offerID))
	if err != nil {
		return nil, &types.StorageError{Op: "get offer", Err: err}
	}

	if item == nil {
		return nil, types.ErrOfferNotFound
	}

	var offer types.Offer
	if err := attributevalue.UnmarshalMap(item, &offer); err != nil {
		return nil, &types.StorageError{Op: "decode offer", Err: err}
	}

	return &offer, nil
}

func (r *OfferRepository) CreateOffer(ctx context.Context, offer *types.Offer) error {
	offer.OfferID = utils.NanoID()
	offer.CreatedAt = utils.NowISO()

	item, err := attributevalue.MarshalMap(offer)
	if err != nil {
		return &types.StorageError{Op: "encode offer", Err: err}
	}

	if err := r.db.Put(ctx, r.table, item); err != nil {
		return &types.StorageError{Op: "save offer", Err: err}
	}

	return nil
}

func (r *OfferRepository) OffersByRequest(ctx context.Context, requestID string) ([]*types.Offer, error) {
	items, _, err := r.db.Query(ctx, r.table, "", "request_id", requestID, nil)
	if err != nil {
		return nil, &types.StorageError{Op: "query offers by request", Err: err}
	}

	return r.decodeOffers(items)
}

func (r *OfferRepository) OffersByVolunteer(ctx context.Context, volunteerID string) ([]*types.Offer, error) {
	items, _, err := r.db.Query(ctx, r.table, VolunteerIndexName, "volunteer_id", volunteerID, nil)
	if err != nil {
		return nil, &types.StorageError{Op: "query offers by volunteer", Err: err}
	}

	return r.decodeOffers(items)
}

func (r *OfferRepository) ScanOffers(ctx context.Context, limit int32, pageToken string) ([]*types.Offer, string, error) {
	startKey, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", types.Validationf("invalid page token")
	}

	items, lastKey, err := r.db.Scan(ctx, r.table, limit, startKey)
	if err != nil {
		return nil, "", &types.StorageError{Op: "scan offers", Err: err}
	}

	offers, err := r.decodeOffers(items)
	if err != nil {
		return nil, "", err
	}

	next, err := encodePageToken(lastKey)
	if err != nil {
		return nil, "", &types.StorageError{Op: "encode page token", Err: err}
	}

	return offers, next, nil
}

// AcceptWrite builds the offer-side item of the accept transaction. No
// precondition here: mutual exclusion comes entirely from the request-side
// guard in the same transaction.
func (r *OfferRepository) AcceptWrite(requestID, offerID, now string) dynamo.Write {
	return dynamo.Write{
		Table: r.table,
		Key:   r.offerKey(requestID, offerID),
		Set: dynamo.Item{
			"status":      dynamo.S(string(types.OfferStatusAccepted)),
			"accepted_at": dynamo.S(now),
		},
	}
}

func (r *OfferRepository) decodeOffers(items []dynamo.Item) ([]*types.Offer, error) {
	offers := make([]*types.Offer, 0, len(items))
	for _, item := range items {
		var offer types.Offer
		if err := attributevalue.UnmarshalMap(item, &offer); err != nil {
			return nil, &types.StorageError{Op: "decode offer", Err: err}
		}
		offers = append(offers, &offer)
	}

	sort.Slice(offers, func(i, j int) bool {
		return offers[i].CreatedAt > offers[j].CreatedAt
	})

	return offers, nil
}
