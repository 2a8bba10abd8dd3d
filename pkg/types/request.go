package types

type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "OPEN"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusClosed     RequestStatus = "CLOSED"
)

// HelpRequest is stored in the HelpRequests table keyed by request_id, with a
// secondary index on help_seeker_id. Timestamps are ISO-8601 UTC strings so
// items round-trip byte-identical through the table and the API.
type HelpRequest struct {
	RequestID    string `json:"request_id" dynamodbav:"request_id"`
	HelpSeekerID string `json:"help_seeker_id" dynamodbav:"help_seeker_id"`

	Title       string  `json:"title" dynamodbav:"title"`
	Description string  `json:"description" dynamodbav:"description"`
	Category    string  `json:"category" dynamodbav:"category"`
	Urgency     string  `json:"urgency" dynamodbav:"urgency"`
	Location    string  `json:"location" dynamodbav:"location"`
	ImageKey    *string `json:"image_key,omitempty" dynamodbav:"image_key,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`
	// Low-precision bucket derived from latitude/longitude, present only when
	// both coordinates are.
	GeoPrefix *string `json:"geo_prefix_5,omitempty" dynamodbav:"geo_prefix_5,omitempty"`

	Status RequestStatus `json:"status" dynamodbav:"status"`

	// Set exactly once, by the accept transition. Never cleared.
	AcceptedOfferID     *string `json:"accepted_offer_id,omitempty" dynamodbav:"accepted_offer_id,omitempty"`
	AcceptedVolunteerID *string `json:"accepted_volunteer_id,omitempty" dynamodbav:"accepted_volunteer_id,omitempty"`
	AcceptedAt          *string `json:"accepted_at,omitempty" dynamodbav:"accepted_at,omitempty"`

	CreatedAt string  `json:"created_at" dynamodbav:"created_at"`
	ClosedAt  *string `json:"closed_at,omitempty" dynamodbav:"closed_at,omitempty"`
}

// HasLocation reports whether both coordinates are present.
func (r *HelpRequest) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}
