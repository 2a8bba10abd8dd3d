package identity

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type fakeCognito struct {
	lastFilter string
	users      []cognitotypes.UserType
}

func (f *fakeCognito) ListUsers(_ context.Context, in *cognitoidentityprovider.ListUsersInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error) {
	f.lastFilter = aws.ToString(in.Filter)
	return &cognitoidentityprovider.ListUsersOutput{Users: f.users}, nil
}

func TestEmailBySub(t *testing.T) {
	client := &fakeCognito{
		users: []cognitotypes.UserType{{
			Attributes: []cognitotypes.AttributeType{
				{Name: aws.String("sub"), Value: aws.String("abc-123")},
				{Name: aws.String("email"), Value: aws.String("vol@example.com")},
			},
		}},
	}
	r := NewResolver(client, "pool-1")

	email, err := r.EmailBySub(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if email != "vol@example.com" {
		t.Fatalf("email = %q", email)
	}
	if client.lastFilter != `sub = "abc-123"` {
		t.Fatalf("filter = %q", client.lastFilter)
	}
}

func TestEmailBySubNoUser(t *testing.T) {
	r := NewResolver(&fakeCognito{}, "pool-1")

	if _, err := r.EmailBySub(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown sub")
	}
}

func TestEmailBySubUnconfiguredPool(t *testing.T) {
	r := NewResolver(&fakeCognito{}, "")

	if _, err := r.EmailBySub(context.Background(), "abc"); err == nil {
		t.Fatal("expected error when pool id is not set")
	}
}
