// Package identity looks up user attributes in Cognito. Access tokens carry
// no email claim, so the volunteer email on an offer comes from here when
// the token doesn't provide it.
package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
)

type CognitoAPI interface {
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
}

type Resolver struct {
	client     CognitoAPI
	userPoolID string
}

func NewResolver(client CognitoAPI, userPoolID string) *Resolver {
	return &Resolver{client: client, userPoolID: userPoolID}
}

// EmailBySub resolves a user's email from their subject identifier.
func (r *Resolver) EmailBySub(ctx context.Context, sub string) (string, error) {
	if r.userPoolID == "" {
		return "", fmt.Errorf("user pool id not configured")
	}

	out, err := r.client.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
		UserPoolId: aws.String(r.userPoolID),
		Filter:     aws.String(fmt.Sprintf("sub = %q", sub)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("list users by sub: %w", err)
	}

	if len(out.Users) == 0 {
		return "", fmt.Errorf("no user found for sub %s", sub)
	}

	for _, attr := range out.Users[0].Attributes {
		if aws.ToString(attr.Name) == "email" {
			return aws.ToString(attr.Value), nil
		}
	}

	return "", fmt.Errorf("user %s has no email attribute", sub)
}
