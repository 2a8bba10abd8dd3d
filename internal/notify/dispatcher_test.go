package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"helpconnect/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/sirupsen/logrus"
)

type fakeSNS struct {
	publishErr error
	published  []*sns.PublishInput
	existing   []snstypes.Subscription
	subscribed []*sns.SubscribeInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, in)
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSNS) Subscribe(_ context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.subscribed = append(f.subscribed, in)
	return &sns.SubscribeOutput{SubscriptionArn: aws.String("arn:sub")}, nil
}

func (f *fakeSNS) ListSubscriptionsByTopic(_ context.Context, _ *sns.ListSubscriptionsByTopicInput, _ ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error) {
	return &sns.ListSubscriptionsByTopicOutput{Subscriptions: f.existing}, nil
}

func newTestDispatcher(client SNSAPI) *Dispatcher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewDispatcher(logger, client, "arn:requests", "arn:offers")
}

func TestRequestCreatedPublishes(t *testing.T) {
	client := &fakeSNS{}
	d := newTestDispatcher(client)

	d.RequestCreated(context.Background(), &types.HelpRequest{
		RequestID: "req-1",
		Title:     "Need blood donor",
		Urgency:   "high",
		Location:  "City Hospital",
	})

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}

	msg := aws.ToString(client.published[0].Message)
	for _, want := range []string{"Need blood donor", "high", "City Hospital", "req-1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	if aws.ToString(client.published[0].TopicArn) != "arn:requests" {
		t.Fatalf("topic = %s, want arn:requests", aws.ToString(client.published[0].TopicArn))
	}
}

func TestOfferCreatedPublishesToOffersTopic(t *testing.T) {
	client := &fakeSNS{}
	d := newTestDispatcher(client)

	d.OfferCreated(context.Background(),
		&types.Offer{RequestID: "req-1", OfferID: "off-1", VolunteerID: "vol-1", VolunteerEmail: "vol@example.com"},
		&types.HelpRequest{RequestID: "req-1", Title: "Need blood donor", Urgency: "high"},
	)

	if len(client.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.published))
	}
	if aws.ToString(client.published[0].TopicArn) != "arn:offers" {
		t.Fatalf("topic = %s, want arn:offers", aws.ToString(client.published[0].TopicArn))
	}
	if msg := aws.ToString(client.published[0].Message); !strings.Contains(msg, "off-1") {
		t.Fatalf("message %q missing offer id", msg)
	}
}

// Publish failures never propagate; the primary operation already succeeded.
func TestPublishFailureIsSwallowed(t *testing.T) {
	client := &fakeSNS{publishErr: fmt.Errorf("sns down")}
	d := newTestDispatcher(client)

	d.RequestCreated(context.Background(), &types.HelpRequest{RequestID: "req-1"})
	d.OfferCreated(context.Background(), &types.Offer{}, &types.HelpRequest{})
}

func TestMissingTopicSkipsPublish(t *testing.T) {
	client := &fakeSNS{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d := NewDispatcher(logger, client, "", "")

	d.RequestCreated(context.Background(), &types.HelpRequest{RequestID: "req-1"})

	if len(client.published) != 0 {
		t.Fatalf("published %d messages with no topic configured", len(client.published))
	}
}

func TestEnsureSubscriptionDedupes(t *testing.T) {
	client := &fakeSNS{
		existing: []snstypes.Subscription{
			{Protocol: aws.String("email"), Endpoint: aws.String("vol@example.com")},
		},
	}
	d := newTestDispatcher(client)
	ctx := context.Background()

	created, err := d.EnsureSubscription(ctx, "vol@example.com", types.RoleVolunteer)
	if err != nil {
		t.Fatalf("ensure existing: %v", err)
	}
	if created {
		t.Fatal("reported created for an existing subscription")
	}
	if len(client.subscribed) != 0 {
		t.Fatal("subscribed again despite existing subscription")
	}

	created, err = d.EnsureSubscription(ctx, "new@example.com", types.RoleVolunteer)
	if err != nil {
		t.Fatalf("ensure new: %v", err)
	}
	if !created {
		t.Fatal("did not report created for a new subscription")
	}
	if len(client.subscribed) != 1 {
		t.Fatalf("subscribe calls = %d, want 1", len(client.subscribed))
	}
	if got := aws.ToString(client.subscribed[0].Endpoint); got != "new@example.com" {
		t.Fatalf("subscribed endpoint = %s", got)
	}
}

func TestEnsureSubscriptionUnknownRole(t *testing.T) {
	d := newTestDispatcher(&fakeSNS{})

	if _, err := d.EnsureSubscription(context.Background(), "x@example.com", "OTHER"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
