// Package editorial reads market signals that the content team maintains by
// hand in a DynamoDB table. Items are keyed PK=SIGNAL#<key>, SK=LATEST.
package editorial

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const skLatest = "LATEST"

// ErrNotFound is returned when no signal item exists, or it has expired.
var ErrNotFound = errors.New("editorial: signal not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Client reads editorial signals from one table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("editorial: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("editorial: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func signalPK(key string) string {
	return "SIGNAL#" + key
}

// GetSignal returns the value, trend and change attributes of the item for
// key. Items whose ttl attribute lies in the past are treated as missing,
// since DynamoDB deletes expired items lazily.
func (c *Client) GetSignal(ctx context.Context, key string) (map[string]any, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("editorial: key is required")
	}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: signalPK(key)},
			"SK": &types.AttributeValueMemberS{Value: skLatest},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("editorial: GetSignal get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	if expired(out.Item, c.now()) {
		return nil, ErrNotFound
	}

	data := make(map[string]any, 3)
	for _, attr := range []string{"value", "trend", "change"} {
		if s, ok := strAttr(out.Item, attr); ok {
			data[attr] = s
		}
	}
	if _, ok := data["value"]; !ok {
		return nil, fmt.Errorf("editorial: item %s missing value", signalPK(key))
	}
	return data, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, bool) {
	s, ok := item[key].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func expired(item map[string]types.AttributeValue, now time.Time) bool {
	n, ok := item["ttl"].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return false
	}
	return ts > 0 && now.Unix() >= ts
}
