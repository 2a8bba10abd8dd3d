package server

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"helpconnect/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenVerifier turns a raw bearer token into a verified actor.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (types.Actor, error)
}

// CognitoVerifier validates tokens against the user pool's JWKS. When
// clientID is set, tokens issued to other app clients are rejected.
type CognitoVerifier struct {
	jwksCache *jwk.Cache
	jwksURL   string
	clientID  string
}

func NewCognitoVerifier(jwksCache *jwk.Cache, jwksURL, clientID string) *CognitoVerifier {
	return &CognitoVerifier{jwksCache: jwksCache, jwksURL: jwksURL, clientID: clientID}
}

func (v *CognitoVerifier) Verify(ctx context.Context, raw string) (types.Actor, error) {
	set, err := v.jwksCache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return types.Actor{}, fmt.Errorf("fetch jwks: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return types.Actor{}, fmt.Errorf("parse token: %w", err)
	}

	sub, ok := token.Subject()
	if !ok || sub == "" {
		return types.Actor{}, fmt.Errorf("token has no subject claim")
	}

	if v.clientID != "" && !issuedForClient(token, v.clientID) {
		return types.Actor{}, fmt.Errorf("token not issued for this app client")
	}

	// email is a private claim and optional on access tokens
	var email string
	_ = token.Get("email", &email)
	if email == "" {
		var username string
		if err := token.Get("cognito:username", &username); err == nil && strings.Contains(username, "@") {
			email = username
		}
	}

	return types.Actor{
		ID:     sub,
		Email:  strings.TrimSpace(email),
		Groups: groupsFromToken(token),
	}, nil
}

// issuedForClient checks which app client a token was issued to. Access
// tokens carry it in the client_id claim; ID tokens put it in aud.
func issuedForClient(token jwt.Token, clientID string) bool {
	var cid string
	if err := token.Get("client_id", &cid); err == nil {
		return cid == clientID
	}

	var audience []string
	if err := token.Get("aud", &audience); err == nil {
		return slices.Contains(audience, clientID)
	}

	return false
}

// groupsFromToken normalizes the cognito:groups claim, which arrives as a
// real list, a comma-joined string, or a JSON list rendered into a string
// depending on which authorizer produced the token.
func groupsFromToken(token jwt.Token) []string {
	var list []string
	if err := token.Get("cognito:groups", &list); err == nil {
		return trimAll(list)
	}

	var raw string
	if err := token.Get("cognito:groups", &raw); err == nil {
		return parseGroupsString(raw)
	}

	return nil
}

func parseGroupsString(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return trimAll(list)
		}
		// python-style list string: ['Admin','X']
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	}

	parts := strings.Split(s, ",")
	groups := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			groups = append(groups, p)
		}
	}
	return groups
}

func trimAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
