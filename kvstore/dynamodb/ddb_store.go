// Package dynamodb provides a kvstore.Store backed by a DynamoDB table.
//
// Table schema:
//   - Partition key: pk (string) - the store key
//
// Values are stored as a single binary attribute. Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name formvault \
//	  --attribute-definitions AttributeName=pk,AttributeType=S \
//	  --key-schema AttributeName=pk,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/formvault/kvstore"
)

const (
	partitionKeyAttr = "pk"
	valueAttr        = "v"
)

// Client is the subset of the DynamoDB API the store uses.
// A *dynamodb.Client satisfies it; tests substitute a fake.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store implements kvstore.Store for DynamoDB.
type Store struct {
	client    Client
	tableName string
}

// NewStore creates a new DynamoDB-backed store.
func NewStore(client Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, kvstore.ErrNotFound
	}

	attr, ok := out.Item[valueAttr].(*types.AttributeValueMemberB)
	if !ok {
		return nil, errors.New("dynamodb: value attribute is not binary")
	}
	return attr.Value, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			partitionKeyAttr: &types.AttributeValueMemberS{Value: key},
			valueAttr:        &types.AttributeValueMemberB{Value: value},
		},
	})
	if err != nil {
		// Collection size rejections are this backend's quota condition.
		var ce *types.ItemCollectionSizeLimitExceededException
		if errors.As(err, &ce) {
			return kvstore.ErrQuotaExceeded
		}
		return err
	}
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(key),
	})
	return err
}

func itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		partitionKeyAttr: &types.AttributeValueMemberS{Value: key},
	}
}
