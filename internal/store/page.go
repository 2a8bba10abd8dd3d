package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"helpconnect/internal/dynamo"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Continuation tokens are the store's LastEvaluatedKey, base64-encoded so
// they travel as opaque strings. Every key attribute in this schema is a
// string.
func encodePageToken(key dynamo.Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}

	flat := make(map[string]string, len(key))
	for attr, av := range key {
		s, ok := av.(*ddbtypes.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unsupported page key attribute %s", attr)
		}
		flat[attr] = s.Value
	}

	raw, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodePageToken(token string) (dynamo.Item, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}

	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode page token: %w", err)
	}

	key := dynamo.Item{}
	for attr, v := range flat {
		key[attr] = dynamo.S(v)
	}

	return key, nil
}
