package dynamo

import (
	"context"
	"errors"

	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw table item, in the SDK's attribute-value encoding. Stores
// marshal entities in and out with the attributevalue package.
type Item = map[string]ddbtypes.AttributeValue

var (
	// ErrConditionFailed is returned by Update when a condition is present
	// and not met.
	ErrConditionFailed = errors.New("conditional write not applied")
	// ErrTransactionAborted is returned by TransactWrite when any condition
	// in the set fails. The whole transaction applies or none of it does.
	ErrTransactionAborted = errors.New("transaction aborted")
)

// Condition is the conjunction of per-attribute predicates supported by this
// adapter: every attribute in NotExists must be absent, and every attribute
// in AbsentOrIn must be absent or hold one of the listed string values.
type Condition struct {
	NotExists  []string
	AbsentOrIn map[string][]string
}

// Write is one conditional SET update inside a transaction.
type Write struct {
	Table     string
	Key       Item
	Set       Item
	Condition *Condition
}

// API is the persistence contract the rest of the module builds on. Client
// implements it against DynamoDB; Memory implements it in-process for tests.
type API interface {
	Get(ctx context.Context, table string, key Item) (Item, error)
	Put(ctx context.Context, table string, item Item) error
	Delete(ctx context.Context, table string, key Item) error
	Update(ctx context.Context, table string, key Item, set Item, cond *Condition) error
	Query(ctx context.Context, table, index, attr, value string, startKey Item) ([]Item, Item, error)
	Scan(ctx context.Context, table string, limit int32, startKey Item) ([]Item, Item, error)
	TransactWrite(ctx context.Context, writes []Write) error
}

// S wraps a string into its attribute-value form. All key attributes in this
// schema are strings.
func S(v string) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberS{Value: v}
}
