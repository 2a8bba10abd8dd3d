package types

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "PENDING"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
)

// Offer is stored in the HelpOffers table under the composite key
// (request_id, offer_id), with a secondary index on volunteer_id. The
// request_id is a back-reference only; offers and requests are always
// fetched independently by key.
type Offer struct {
	RequestID string `json:"request_id" dynamodbav:"request_id"`
	OfferID   string `json:"offer_id" dynamodbav:"offer_id"`

	VolunteerID    string `json:"volunteer_id" dynamodbav:"volunteer_id"`
	VolunteerEmail string `json:"volunteer_email,omitempty" dynamodbav:"volunteer_email,omitempty"`

	Note                    string `json:"note" dynamodbav:"note"`
	EstimatedArrivalMinutes int    `json:"estimated_arrival_minutes" dynamodbav:"estimated_arrival_minutes"`

	Status     OfferStatus `json:"status" dynamodbav:"status"`
	CreatedAt  string      `json:"created_at" dynamodbav:"created_at"`
	AcceptedAt *string     `json:"accepted_at,omitempty" dynamodbav:"accepted_at,omitempty"`
}
