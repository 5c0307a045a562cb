package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-nosql/internal/config"
)

// TableCreator is the subset of the DynamoDB client Bootstrap needs.
type TableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Bootstrap creates the accounts table and its token GSIs if they don't already exist.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, client TableCreator, tables config.DynamoTables) error {
	return createTable(ctx, client, accountsTableInput(tables.Accounts))
}

func accountsTableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldIdentity), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldVerificationToken), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldResetToken), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldIdentity), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexVerificationToken, fieldVerificationToken, ""),
			gsi(indexResetToken, fieldResetToken, ""),
		},
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client TableCreator, input *dynamodb.CreateTableInput) error {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if errors.As(err, &riue) {
			return nil
		}
		slog.Warn("could not create table", "table", aws.ToString(input.TableName), "err", err)
		return err
	}
	slog.Info("created table", "table", aws.ToString(input.TableName))
	return nil
}
