package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client implements API against DynamoDB.
type Client struct {
	ddb *dynamodb.Client
}

func NewClient(cfg aws.Config) *Client {
	return &Client{ddb: dynamodb.NewFromConfig(cfg)}
}

func (c *Client) Get(ctx context.Context, table string, key Item) (Item, error) {
	out, err := c.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("get item from %s: %w", table, err)
	}

	if len(out.Item) == 0 {
		return nil, nil
	}

	return out.Item, nil
}

func (c *Client) Put(ctx context.Context, table string, item Item) error {
	_, err := c.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item into %s: %w", table, err)
	}

	return nil
}

func (c *Client) Delete(ctx context.Context, table string, key Item) error {
	_, err := c.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item from %s: %w", table, err)
	}

	return nil
}

func (c *Client) Update(ctx context.Context, table string, key Item, set Item, cond *Condition) error {
	names := map[string]string{}
	values := map[string]ddbtypes.AttributeValue{}

	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(table),
		Key:              key,
		UpdateExpression: aws.String(buildSetExpression(set, names, values)),
	}

	if cond != nil {
		input.ConditionExpression = aws.String(buildConditionExpression(cond, names, values))
	}

	input.ExpressionAttributeNames = names
	input.ExpressionAttributeValues = values

	_, err := c.ddb.UpdateItem(ctx, input)
	if err != nil {
		var ccf *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %v", ErrConditionFailed, err)
		}
		return fmt.Errorf("update item in %s: %w", table, err)
	}

	return nil
}

func (c *Client) Query(ctx context.Context, table, index, attr, value string, startKey Item) ([]Item, Item, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String("#k = :k"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{":k": S(value)},
	}
	if index != "" {
		input.IndexName = aws.String(index)
	}
	if len(startKey) > 0 {
		input.ExclusiveStartKey = startKey
	}

	out, err := c.ddb.Query(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s by %s: %w", table, attr, err)
	}

	return out.Items, out.LastEvaluatedKey, nil
}

func (c *Client) Scan(ctx context.Context, table string, limit int32, startKey Item) ([]Item, Item, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(table)}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	if len(startKey) > 0 {
		input.ExclusiveStartKey = startKey
	}

	out, err := c.ddb.Scan(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", table, err)
	}

	return out.Items, out.LastEvaluatedKey, nil
}

func (c *Client) TransactWrite(ctx context.Context, writes []Write) error {
	items := make([]ddbtypes.TransactWriteItem, 0, len(writes))

	for _, w := range writes {
		names := map[string]string{}
		values := map[string]ddbtypes.AttributeValue{}

		update := &ddbtypes.Update{
			TableName:        aws.String(w.Table),
			Key:              w.Key,
			UpdateExpression: aws.String(buildSetExpression(w.Set, names, values)),
		}
		if w.Condition != nil {
			update.ConditionExpression = aws.String(buildConditionExpression(w.Condition, names, values))
		}
		update.ExpressionAttributeNames = names
		update.ExpressionAttributeValues = values

		items = append(items, ddbtypes.TransactWriteItem{Update: update})
	}

	_, err := c.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var canceled *ddbtypes.TransactionCanceledException
		if errors.As(err, &canceled) {
			return fmt.Errorf("%w: %v", ErrTransactionAborted, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}

	return nil
}

func buildSetExpression(set Item, names map[string]string, values map[string]ddbtypes.AttributeValue) string {
	attrs := make([]string, 0, len(set))
	for attr := range set {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	parts := make([]string, 0, len(attrs))
	for i, attr := range attrs {
		n := fmt.Sprintf("#u%d", i)
		v := fmt.Sprintf(":u%d", i)
		names[n] = attr
		values[v] = set[attr]
		parts = append(parts, fmt.Sprintf("%s = %s", n, v))
	}

	return "SET " + strings.Join(parts, ", ")
}

func buildConditionExpression(cond *Condition, names map[string]string, values map[string]ddbtypes.AttributeValue) string {
	var parts []string

	for i, attr := range cond.NotExists {
		n := fmt.Sprintf("#c%d", i)
		names[n] = attr
		parts = append(parts, fmt.Sprintf("attribute_not_exists(%s)", n))
	}

	attrs := make([]string, 0, len(cond.AbsentOrIn))
	for attr := range cond.AbsentOrIn {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	for i, attr := range attrs {
		n := fmt.Sprintf("#a%d", i)
		names[n] = attr

		terms := []string{fmt.Sprintf("attribute_not_exists(%s)", n)}
		for j, val := range cond.AbsentOrIn[attr] {
			v := fmt.Sprintf(":a%d_%d", i, j)
			values[v] = S(val)
			terms = append(terms, fmt.Sprintf("%s = %s", n, v))
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}

	return strings.Join(parts, " AND ")
}
