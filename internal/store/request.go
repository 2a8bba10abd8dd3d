package store

import (
	"context"
	"sort"

	"helpconnect/internal/dynamo"
	"helpconnect/internal/utils"
	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// SeekerIndexName is the secondary index of the requests table keyed by
// help_seeker_id.
const SeekerIndexName = "help_seeker_id-index"

type RequestRepository struct {
	db    dynamo.API
	table string
}

func NewRequestRepository(db dynamo.API, table string) *RequestRepository {
	return &RequestRepository{db: db, table: table}
}

func (r *RequestRepository) requestKey(requestID string) dynamo.Item {
	return dynamo.Item{"request_id": dynamo.S(requestID)}
}

func (r *RequestRepository) Request(ctx context.Context, requestID string) (*types.HelpRequest, error) {
	item, err := r.db.Get(ctx, r.table, r.requestKey(requestID))
	if err != nil {
		return nil, &types.StorageError{Op: "get help request", Err: err}
	}

	if item == nil {
		return nil, types.ErrRequestNotFound
	}

	var request types.HelpRequest
	if err := attributevalue.UnmarshalMap(item, &request); err != nil {
		return nil, &types.StorageError{Op: "decode help request", Err: err}
	}

	return &request, nil
}

func (r *RequestRepository) CreateRequest(ctx context.Context, request *types.HelpRequest) error {
	request.RequestID = utils.NanoID()
	request.CreatedAt = utils.NowISO()

	item, err := attributevalue.MarshalMap(request)
	if err != nil {
		return &types.StorageError{Op: "encode help request", Err: err}
	}

	if err := r.db.Put(ctx, r.table, item); err != nil {
		return &types.StorageError{Op: "save help request", Err: err}
	}

	return nil
}

func (r *RequestRepository) RequestsBySeeker(ctx context.Context, seekerID string) ([]*types.HelpRequest, error) {
	items, _, err := r.db.Query(ctx, r.table, SeekerIndexName, "help_seeker_id", seekerID, nil)
	if err != nil {
		return nil, &types.StorageError{Op: "query requests by seeker", Err: err}
	}

	requests := make([]*types.HelpRequest, 0, len(items))
	for _, item := range items {
		var request types.HelpRequest
		if err := attributevalue.UnmarshalMap(item, &request); err != nil {
			return nil, &types.StorageError{Op: "decode help request", Err: err}
		}
		requests = append(requests, &request)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt > requests[j].CreatedAt
	})

	return requests, nil
}

// ScanRequests pages through the whole table. Listing and admin use only;
// the lifecycle engine never scans.
func (r *RequestRepository) ScanRequests(ctx context.Context, limit int32, pageToken string) ([]*types.HelpRequest, string, error) {
	startKey, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", types.Validationf("invalid page token")
	}

	items, lastKey, err := r.db.Scan(ctx, r.table, limit, startKey)
	if err != nil {
		return nil, "", &types.StorageError{Op: "scan help requests", Err: err}
	}

	requests := make([]*types.HelpRequest, 0, len(items))
	for _, item := range items {
		var request types.HelpRequest
		if err := attributevalue.UnmarshalMap(item, &request); err != nil {
			return nil, "", &types.StorageError{Op: "decode help request", Err: err}
		}
		requests = append(requests, &request)
	}

	next, err := encodePageToken(lastKey)
	if err != nil {
		return nil, "", &types.StorageError{Op: "encode page token", Err: err}
	}

	return requests, next, nil
}

// AcceptWrite builds the request-side item of the accept transaction. The
// condition is the sole guard against concurrent accepts: the accepted offer
// must not exist yet and the status must still be open. A missing status
// attribute counts as open, and both historical spellings are accepted.
func (r *RequestRepository) AcceptWrite(requestID, offerID, volunteerID, now string) dynamo.Write {
	return dynamo.Write{
		Table: r.table,
		Key:   r.requestKey(requestID),
		Set: dynamo.Item{
			"status":                dynamo.S(string(types.RequestStatusInProgress)),
			"accepted_offer_id":     dynamo.S(offerID),
			"accepted_volunteer_id": dynamo.S(volunteerID),
			"accepted_at":           dynamo.S(now),
		},
		Condition: &dynamo.Condition{
			NotExists:  []string{"accepted_offer_id"},
			AbsentOrIn: map[string][]string{"status": {"Open", "OPEN"}},
		},
	}
}

// Close marks the request CLOSED. The status precondition is checked by the
// caller with a read first; the update itself carries no condition, so a
// racing accept can interleave between the two.
func (r *RequestRepository) Close(ctx context.Context, requestID, now string) error {
	set := dynamo.Item{
		"status":    dynamo.S(string(types.RequestStatusClosed)),
		"closed_at": dynamo.S(now),
	}

	if err := r.db.Update(ctx, r.table, r.requestKey(requestID), set, nil); err != nil {
		return &types.StorageError{Op: "close help request", Err: err}
	}

	return nil
}
