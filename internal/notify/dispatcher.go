// Package notify sends best-effort SNS notifications. Delivery failures are
// logged and discarded; they never surface to the caller of the primary
// operation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	ListSubscriptionsByTopic(ctx context.Context, params *sns.ListSubscriptionsByTopicInput, optFns ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error)
}

type Dispatcher struct {
	logger *logrus.Logger
	sns    SNSAPI

	newRequestsTopicARN string
	newOffersTopicARN   string
}

func NewDispatcher(logger *logrus.Logger, client SNSAPI, newRequestsTopicARN, newOffersTopicARN string) *Dispatcher {
	return &Dispatcher{
		logger:              logger,
		sns:                 client,
		newRequestsTopicARN: strings.TrimSpace(newRequestsTopicARN),
		newOffersTopicARN:   strings.TrimSpace(newOffersTopicARN),
	}
}

// RequestCreated broadcasts a new help request to everyone subscribed to the
// new-requests topic.
func (d *Dispatcher) RequestCreated(ctx context.Context, request *types.HelpRequest) {
	if d.newRequestsTopicARN == "" {
		d.logger.Debug("new-requests topic not configured; skipping notification")
		return
	}

	message := fmt.Sprintf(
		"New HelpConnect request posted!\n\n"+
			"Title: %s\n"+
			"Urgency: %s\n"+
			"Location: %s\n"+
			"Request ID: %s\n",
		request.Title, request.Urgency, request.Location, request.RequestID,
	)

	d.publish(ctx, d.newRequestsTopicARN, "HelpConnect: New Help Request", message)
}

// OfferCreated notifies the request's owner about a new volunteer offer.
// Delivery gating by the owner's notification setting happens before this is
// called.
func (d *Dispatcher) OfferCreated(ctx context.Context, offer *types.Offer, request *types.HelpRequest) {
	if d.newOffersTopicARN == "" {
		d.logger.Debug("new-offers topic not configured; skipping notification")
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"type":           "NEW_OFFER",
		"requestId":      offer.RequestID,
		"offerId":        offer.OfferID,
		"volunteerId":    offer.VolunteerID,
		"volunteerEmail": offer.VolunteerEmail,
		"title":          request.Title,
		"urgency":        request.Urgency,
	})

	message := fmt.Sprintf(
		"You received a new volunteer offer in HelpConnect.\n\n"+
			"Title: %s\n"+
			"Urgency: %s\n"+
			"Volunteer: %s\n"+
			"Request ID: %s\n"+
			"Offer ID: %s\n\n"+
			"Details (JSON):\n%s",
		request.Title, request.Urgency, offer.VolunteerEmail,
		offer.RequestID, offer.OfferID, payload,
	)

	d.publish(ctx, d.newOffersTopicARN, "HelpConnect: New volunteer offer", message)
}

func (d *Dispatcher) publish(ctx context.Context, topicARN, subject, message string) {
	out, err := d.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		d.logger.WithError(err).WithField("topic_arn", topicARN).Error("sns publish failed")
		return
	}

	d.logger.WithFields(logrus.Fields{
		"topic_arn":  topicARN,
		"message_id": aws.ToString(out.MessageId),
	}).Debug("sns publish ok")
}

// TopicForRole maps a stored user role to its topic. Empty when the role is
// unknown or the topic is not configured.
func (d *Dispatcher) TopicForRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case types.RoleVolunteer:
		return d.newRequestsTopicARN
	case types.RoleHelpSeeker:
		return d.newOffersTopicARN
	default:
		return ""
	}
}

// EnsureSubscription subscribes the email to the role's topic unless it is
// already subscribed. Returns false when the subscription already existed.
// Unlike publishing, failures here surface to the caller: this runs as its
// own operation, not as a side effect of one.
func (d *Dispatcher) EnsureSubscription(ctx context.Context, email, role string) (bool, error) {
	topicARN := d.TopicForRole(role)
	if topicARN == "" {
		return false, fmt.Errorf("no topic configured for role %q", role)
	}

	var nextToken *string
	for {
		out, err := d.sns.ListSubscriptionsByTopic(ctx, &sns.ListSubscriptionsByTopicInput{
			TopicArn:  aws.String(topicARN),
			NextToken: nextToken,
		})
		if err != nil {
			return false, fmt.Errorf("list subscriptions: %w", err)
		}

		for _, sub := range out.Subscriptions {
			if aws.ToString(sub.Protocol) == "email" && aws.ToString(sub.Endpoint) == email {
				return false, nil
			}
		}

		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}

	out, err := d.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Protocol:              aws.String("email"),
		Endpoint:              aws.String(email),
		ReturnSubscriptionArn: true,
	})
	if err != nil {
		return false, fmt.Errorf("subscribe %s: %w", email, err)
	}

	d.logger.WithFields(logrus.Fields{
		"topic_arn":        topicARN,
		"subscription_arn": aws.ToString(out.SubscriptionArn),
	}).Info("sns subscription requested")

	return true, nil
}
