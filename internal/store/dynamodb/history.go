package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// Archive moves a terminal execution into the append-only history and flips
// the posture record, clearing the active slot in the same transaction so a
// crash between the two cannot leave a ghost active execution.
func (s *Store) Archive(ctx context.Context, exec types.DrExecution, posture types.Posture) error {
	item, err := attributevalue.MarshalMap(exec)
	if err != nil {
		return fmt.Errorf("marshaling execution: %w", err)
	}

	ttl := fmt.Sprintf("%d", ttlEpoch(s.retentionTTL))

	truth := map[string]ddbtypes.AttributeValue{
		"PK":  &ddbtypes.AttributeValueMemberS{Value: execPK(exec.ExecutionID)},
		"SK":  &ddbtypes.AttributeValueMemberS{Value: skTruth},
		"ttl": &ddbtypes.AttributeValueMemberN{Value: ttl},
	}
	list := map[string]ddbtypes.AttributeValue{
		"PK":  &ddbtypes.AttributeValueMemberS{Value: pkHistory},
		"SK":  &ddbtypes.AttributeValueMemberS{Value: historySK(exec.StartedAt, exec.ExecutionID)},
		"ttl": &ddbtypes.AttributeValueMemberN{Value: ttl},
	}
	for k, v := range item {
		truth[k] = v
		list[k] = v
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []ddbtypes.TransactWriteItem{
			{Delete: &ddbtypes.Delete{
				TableName: &s.tableName,
				Key: map[string]ddbtypes.AttributeValue{
					"PK": &ddbtypes.AttributeValueMemberS{Value: pkControl},
					"SK": &ddbtypes.AttributeValueMemberS{Value: skActive},
				},
			}},
			{Put: &ddbtypes.Put{TableName: &s.tableName, Item: truth}},
			{Put: &ddbtypes.Put{TableName: &s.tableName, Item: list}},
			{Put: &ddbtypes.Put{
				TableName: &s.tableName,
				Item: map[string]ddbtypes.AttributeValue{
					"PK":      &ddbtypes.AttributeValueMemberS{Value: pkControl},
					"SK":      &ddbtypes.AttributeValueMemberS{Value: skPosture},
					"posture": &ddbtypes.AttributeValueMemberS{Value: string(posture)},
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("archiving execution %s: %w", exec.ExecutionID, err)
	}
	return nil
}

// GetPosture returns the recorded posture, defaulting to ACTIVE_PRIMARY.
func (s *Store) GetPosture(ctx context.Context) (types.Posture, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pkControl},
			"SK": &ddbtypes.AttributeValueMemberS{Value: skPosture},
		},
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return types.PostureActivePrimary, nil
	}
	p, err := attributeStr(out.Item, "posture")
	if err != nil {
		return "", err
	}
	return types.Posture(p), nil
}

// ListHistory returns completed executions, newest first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]types.DrExecution, error) {
	if limit <= 0 {
		limit = 10
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk":     &ddbtypes.AttributeValueMemberS{Value: pkHistory},
			":prefix": &ddbtypes.AttributeValueMemberS{Value: prefixExec},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	var execs []types.DrExecution
	for _, item := range out.Items {
		var exec types.DrExecution
		if err := attributevalue.UnmarshalMap(item, &exec); err != nil {
			s.logger.Warn("skipping corrupt history record", "error", err)
			continue
		}
		execs = append(execs, exec)
	}
	return execs, nil
}

// GetExecution looks up an execution by ID: active slot first, then history.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*types.DrExecution, error) {
	active, err := s.GetActive(ctx)
	if err == nil && active.ExecutionID == executionID {
		return active, nil
	}
	if err != nil && !errors.Is(err, store.ErrNoActiveExecution) {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: execPK(executionID)},
			"SK": &ddbtypes.AttributeValueMemberS{Value: skTruth},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, store.ErrExecutionNotFound
	}

	var exec types.DrExecution
	if err := attributevalue.UnmarshalMap(out.Item, &exec); err != nil {
		return nil, fmt.Errorf("unmarshaling execution %s: %w", executionID, err)
	}
	return &exec, nil
}
