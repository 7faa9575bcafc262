package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fyiona/accounts/internal/domain"
)

// AccessTokenRepo manages ephemeral confirmation/reset/update/delete tokens.
// PK: user_id, SK: purpose — one live token per slot. The token-index GSI
// supports the lookup-by-token-string path used on consumption.
type AccessTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccessTokenRepo(client *dynamodb.Client, tableName string) *AccessTokenRepo {
	return &AccessTokenRepo{client: client, tableName: tableName}
}

func (r *AccessTokenRepo) Put(ctx context.Context, t *domain.AccessToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal access token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AccessTokenRepo) Get(ctx context.Context, userID, purpose string) (*domain.AccessToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "purpose", purpose),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("access token: %w", domain.ErrNotFound)
	}
	var t domain.AccessToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByToken resolves a record by its exact token string via the token-index
// GSI, filtered to the given purpose.
func (r *AccessTokenRepo) GetByToken(ctx context.Context, purpose, token string) (*domain.AccessToken, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("token-index"),
		KeyConditionExpression:    aws.String("#t = :v"),
		FilterExpression:          aws.String("purpose = :p"),
		ExpressionAttributeNames:  map[string]string{"#t": "token"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: token},
			":p": &types.AttributeValueMemberS{Value: purpose},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("access token: %w", domain.ErrNotFound)
	}
	var t domain.AccessToken
	if err := attributevalue.UnmarshalMap(out.Items[0], &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *AccessTokenRepo) Delete(ctx context.Context, userID, purpose string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "purpose", purpose),
	})
	return err
}
