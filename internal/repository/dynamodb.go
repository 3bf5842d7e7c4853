package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shortlink/internal/config"
	"github.com/SergeiKhy/shortlink/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the repository.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// NewDynamoDBClient builds a client from explicit settings. A non-empty
// endpoint points the client at DynamoDB Local or another compatible service.
func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(3),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return client, nil
}

type dynamoDBRepository struct {
	client  DynamoDBAPI
	table   string
	timeout time.Duration
}

// NewDynamoDBRepository returns a MappingRepository over a table keyed by short_code.
func NewDynamoDBRepository(client DynamoDBAPI, table string) MappingRepository {
	return &dynamoDBRepository{
		client:  client,
		table:   table,
		timeout: 5 * time.Second,
	}
}

func (r *dynamoDBRepository) Get(ctx context.Context, code string) (*models.URLMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.itemKey(code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageError("get item", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrMappingNotFound
	}

	var mapping models.URLMapping
	if err := attributevalue.UnmarshalMap(out.Item, &mapping); err != nil {
		return nil, storageError("decode item", err)
	}

	return &mapping, nil
}

func (r *dynamoDBRepository) Create(ctx context.Context, mapping *models.URLMapping) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(mapping)
	if err != nil {
		return storageError("encode item", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(short_code)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrCodeExists
		}
		return storageError("put item", err)
	}

	return nil
}

func (r *dynamoDBRepository) IncrementAccessCount(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              r.itemKey(code),
		UpdateExpression: aws.String("SET access_count = if_not_exists(access_count, :init) + :val"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":init": &types.AttributeValueMemberN{Value: "0"},
			":val":  &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueNone,
	})
	if err != nil {
		return storageError("update item", err)
	}

	return nil
}

func (r *dynamoDBRepository) itemKey(code string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"short_code": &types.AttributeValueMemberS{Value: code},
	}
}

// EnsureDynamoDBTable creates the mappings table when it does not exist yet.
// Intended for DynamoDB Local and test environments.
func EnsureDynamoDBTable(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("short_code"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("short_code"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, time.Minute); err != nil {
		return fmt.Errorf("failed waiting for table %s: %w", table, err)
	}

	return nil
}
