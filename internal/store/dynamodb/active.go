package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/standby-systems/standby/internal/store"
	"github.com/standby-systems/standby/pkg/types"
)

// CreateActive claims the single active-execution slot with a conditional
// put. The attribute_not_exists condition is the duplicate-trigger guard:
// concurrent triggers race on this item and exactly one wins.
func (s *Store) CreateActive(ctx context.Context, exec types.DrExecution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]ddbtypes.AttributeValue{
			"PK":      &ddbtypes.AttributeValueMemberS{Value: pkControl},
			"SK":      &ddbtypes.AttributeValueMemberS{Value: skActive},
			"data":    &ddbtypes.AttributeValueMemberS{Value: string(data)},
			"version": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", exec.Version)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrExecutionActive
		}
		return err
	}
	return nil
}

// GetActive returns the active execution from the slot, strongly consistent.
func (s *Store) GetActive(ctx context.Context) (*types.DrExecution, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pkControl},
			"SK": &ddbtypes.AttributeValueMemberS{Value: skActive},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, store.ErrNoActiveExecution
	}

	data, err := attributeStr(out.Item, "data")
	if err != nil {
		return nil, err
	}
	var exec types.DrExecution
	if err := json.Unmarshal([]byte(data), &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// UpdateActive replaces the active execution if the stored version matches.
// This is the write-ahead step: every phase transition lands here before the
// next action is dispatched.
func (s *Store) UpdateActive(ctx context.Context, expectedVersion int, exec types.DrExecution) error {
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pkControl},
			"SK": &ddbtypes.AttributeValueMemberS{Value: skActive},
		},
		UpdateExpression:    aws.String("SET #data = :data, #version = :newVersion"),
		ConditionExpression: aws.String("#version = :expectedVersion"),
		ExpressionAttributeNames: map[string]string{
			"#data":    "data",
			"#version": "version",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":data":            &ddbtypes.AttributeValueMemberS{Value: string(data)},
			":newVersion":      &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", exec.Version)},
			":expectedVersion": &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrVersionConflict
		}
		return err
	}
	return nil
}

func attributeStr(item map[string]ddbtypes.AttributeValue, name string) (string, error) {
	attr, ok := item[name]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", name)
	}
	sv, ok := attr.(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", name)
	}
	return sv.Value, nil
}
