package repository_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/SergeiKhy/shortlink/internal/repository"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamoDB emulates the parts of DynamoDB the repository relies on:
// conditional puts and the access_count update expression.
type fakeDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error

	lastPut    *dynamodb.PutItemInput
	lastUpdate *dynamodb.UpdateItemInput
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["short_code"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPut = in
	if f.err != nil {
		return nil, f.err
	}

	code := keyOf(in.Item)
	if _, exists := f.items[code]; exists && aws.ToString(in.ConditionExpression) != "" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[code] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate = in
	if f.err != nil {
		return nil, f.err
	}

	code := keyOf(in.Key)
	item, exists := f.items[code]
	if !exists {
		item = map[string]types.AttributeValue{"short_code": in.Key["short_code"]}
		f.items[code] = item
	}

	count := int64(0)
	if n, ok := item["access_count"].(*types.AttributeValueMemberN); ok {
		count, _ = strconv.ParseInt(n.Value, 10, 64)
	}
	item["access_count"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(count+1, 10)}
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestDynamoDBRepository_Contract(t *testing.T) {
	testRepositoryContract(t, repository.NewDynamoDBRepository(newFakeDynamoDB(), "url_mappings"))
}

func TestDynamoDBRepository_CreateIsConditional(t *testing.T) {
	fake := newFakeDynamoDB()
	repo := repository.NewDynamoDBRepository(fake, "url_mappings")

	require.NoError(t, repo.Create(context.Background(), &models.URLMapping{
		ShortCode: "abcde",
		LongURL:   "https://example.com",
		CreatedAt: 100,
		ExpiresAt: 1900,
	}))

	require.NotNil(t, fake.lastPut)
	assert.Equal(t, "url_mappings", aws.ToString(fake.lastPut.TableName))
	assert.Equal(t, "attribute_not_exists(short_code)", aws.ToString(fake.lastPut.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "https://example.com"}, fake.lastPut.Item["long_url"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1900"}, fake.lastPut.Item["expires_at"])
}

func TestDynamoDBRepository_IncrementExpression(t *testing.T) {
	fake := newFakeDynamoDB()
	repo := repository.NewDynamoDBRepository(fake, "url_mappings")

	require.NoError(t, repo.IncrementAccessCount(context.Background(), "abcde"))

	require.NotNil(t, fake.lastUpdate)
	assert.Equal(t, "SET access_count = if_not_exists(access_count, :init) + :val",
		aws.ToString(fake.lastUpdate.UpdateExpression))
}

func TestDynamoDBRepository_StorageErrors(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.err = errors.New("throttled")
	repo := repository.NewDynamoDBRepository(fake, "url_mappings")
	ctx := context.Background()

	_, err := repo.Get(ctx, "abcde")
	assert.ErrorIs(t, err, repository.ErrStorage)
	assert.NotErrorIs(t, err, repository.ErrMappingNotFound)

	err = repo.Create(ctx, &models.URLMapping{ShortCode: "abcde", LongURL: "https://example.com"})
	assert.ErrorIs(t, err, repository.ErrStorage)

	err = repo.IncrementAccessCount(ctx, "abcde")
	assert.ErrorIs(t, err, repository.ErrStorage)
}
