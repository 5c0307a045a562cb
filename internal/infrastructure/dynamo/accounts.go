// Package dynamo implements the account store on DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-nosql/internal/domain"
)

// API is the subset of *dynamodb.Client used by AccountRepo.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// accountItem is the stored shape of an account. Pending tokens are flattened
// into digest/expiry attribute pairs; expiries are unix milliseconds so
// condition expressions can compare them numerically.
type accountItem struct {
	Identity              string     `dynamodbav:"identity"`
	AccountID             string     `dynamodbav:"account_id"`
	DisplayName           string     `dynamodbav:"display_name"`
	CredentialDigest      string     `dynamodbav:"credential_digest"`
	Verified              bool       `dynamodbav:"verified"`
	VerificationToken     string     `dynamodbav:"verification_token,omitempty"`
	VerificationExpiresAt int64      `dynamodbav:"verification_expires_at,omitempty"`
	ResetToken            string     `dynamodbav:"reset_token,omitempty"`
	ResetExpiresAt        int64      `dynamodbav:"reset_expires_at,omitempty"`
	LastAuthenticatedAt   *time.Time `dynamodbav:"last_authenticated_at,omitempty"`
	CreatedAt             time.Time  `dynamodbav:"created_at"`
	UpdatedAt             time.Time  `dynamodbav:"updated_at"`
}

func toItem(a *domain.Account) accountItem {
	it := accountItem{
		Identity:            a.Identity,
		AccountID:           a.AccountID,
		DisplayName:         a.DisplayName,
		CredentialDigest:    a.CredentialDigest,
		Verified:            a.Verified,
		LastAuthenticatedAt: a.LastAuthenticatedAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.Verification != nil {
		it.VerificationToken = a.Verification.Digest
		it.VerificationExpiresAt = a.Verification.ExpiresAt.UnixMilli()
	}
	if a.Reset != nil {
		it.ResetToken = a.Reset.Digest
		it.ResetExpiresAt = a.Reset.ExpiresAt.UnixMilli()
	}
	return it
}

func (it accountItem) toDomain() *domain.Account {
	a := &domain.Account{
		AccountID:           it.AccountID,
		Identity:            it.Identity,
		DisplayName:         it.DisplayName,
		CredentialDigest:    it.CredentialDigest,
		Verified:            it.Verified,
		LastAuthenticatedAt: it.LastAuthenticatedAt,
		CreatedAt:           it.CreatedAt,
		UpdatedAt:           it.UpdatedAt,
	}
	if it.VerificationToken != "" && it.VerificationExpiresAt != 0 {
		a.Verification = &domain.PendingToken{
			Digest:    it.VerificationToken,
			ExpiresAt: time.UnixMilli(it.VerificationExpiresAt).UTC(),
		}
	}
	if it.ResetToken != "" && it.ResetExpiresAt != 0 {
		a.Reset = &domain.PendingToken{
			Digest:    it.ResetToken,
			ExpiresAt: time.UnixMilli(it.ResetExpiresAt).UTC(),
		}
	}
	return a
}

// tokenFields returns the digest attribute, expiry attribute and GSI for purpose.
func tokenFields(purpose domain.TokenPurpose) (digest, expiry, index string, err error) {
	switch purpose {
	case domain.PurposeVerification:
		return fieldVerificationToken, fieldVerificationExpiresAt, indexVerificationToken, nil
	case domain.PurposeReset:
		return fieldResetToken, fieldResetExpiresAt, indexResetToken, nil
	}
	return "", "", "", fmt.Errorf("unknown token purpose %q", purpose)
}

type AccountRepo struct {
	client API
	table  string
}

func NewAccountRepo(client API, table string) *AccountRepo {
	return &AccountRepo{client: client, table: table}
}

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(toItem(a))
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldIdentity},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("account %s: %w", a.Identity, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("put account: %w: %w", domain.ErrDependency, err)
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, identity string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            strKey(fieldIdentity, identity),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get account: %w: %w", domain.ErrDependency, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var it accountItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return it.toDomain(), nil
}

// FindByToken queries the sparse token index. The index is eventually
// consistent; consumption re-checks the token on the base table.
func (r *AccountRepo) FindByToken(ctx context.Context, purpose domain.TokenPurpose, digest string) (*domain.Account, error) {
	field, _, index, err := tokenFields(purpose)
	if err != nil {
		return nil, err
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.table),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#t = :d"),
		ExpressionAttributeNames: map[string]string{"#t": field},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: digest},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w: %w", index, domain.ErrDependency, err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var it accountItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return it.toDomain(), nil
}

// PutToken writes the digest and expiry of purpose in one update, replacing any prior pair.
func (r *AccountRepo) PutToken(ctx context.Context, identity string, purpose domain.TokenPurpose, t domain.PendingToken, now time.Time) error {
	field, expiry, _, err := tokenFields(purpose)
	if err != nil {
		return err
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		field:          t.Digest,
		expiry:         t.ExpiresAt.UnixMilli(),
		fieldUpdatedAt: now,
	})
	if err != nil {
		return err
	}
	cond, err := ue.condition("attribute_exists(#id)", map[string]string{"#id": fieldIdentity}, nil)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       strKey(fieldIdentity, identity),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("put %s token: %w: %w", purpose, domain.ErrDependency, err)
	}
	return nil
}

func (r *AccountRepo) ConsumeVerification(ctx context.Context, identity, digest string, now time.Time) (*domain.Account, error) {
	return r.consume(ctx, identity, domain.PurposeVerification, digest, now, map[string]interface{}{
		fieldVerified:  true,
		fieldUpdatedAt: now,
	})
}

func (r *AccountRepo) ConsumeReset(ctx context.Context, identity, digest string, now time.Time, credentialDigest string) (*domain.Account, error) {
	return r.consume(ctx, identity, domain.PurposeReset, digest, now, map[string]interface{}{
		fieldCredentialDigest: credentialDigest,
		fieldUpdatedAt:        now,
	})
}

// consume applies sets and removes the token pair only if the stored digest
// still matches and has not expired at now.
func (r *AccountRepo) consume(ctx context.Context, identity string, purpose domain.TokenPurpose, digest string, now time.Time, sets map[string]interface{}) (*domain.Account, error) {
	field, expiry, _, err := tokenFields(purpose)
	if err != nil {
		return nil, err
	}
	ue, err := buildUpdateExpr(sets, field, expiry)
	if err != nil {
		return nil, err
	}
	cond, err := ue.condition("#tok = :tok AND #exp > :now",
		map[string]string{"#tok": field, "#exp": expiry},
		map[string]interface{}{":tok": digest, ":now": now.UnixMilli()},
	)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       strKey(fieldIdentity, identity),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("%s token: %w", purpose, domain.ErrInvalidOrExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("consume %s token: %w: %w", purpose, domain.ErrDependency, err)
	}
	var it accountItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return it.toDomain(), nil
}

func (r *AccountRepo) RecordLogin(ctx context.Context, identity string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldLastAuthenticatedAt: at,
		fieldUpdatedAt:           at,
	})
	if err != nil {
		return err
	}
	cond, err := ue.condition("attribute_exists(#id)", map[string]string{"#id": fieldIdentity}, nil)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       strKey(fieldIdentity, identity),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("record login: %w: %w", domain.ErrDependency, err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
