package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/standby-systems/standby/pkg/types"
)

// AppendEvent appends an audit event under the execution's partition.
func (s *Store) AppendEvent(ctx context.Context, event types.Event) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	item["PK"] = &ddbtypes.AttributeValueMemberS{Value: execPK(event.ExecutionID)}
	item["SK"] = &ddbtypes.AttributeValueMemberS{Value: eventSK(event.Timestamp)}
	item["ttl"] = &ddbtypes.AttributeValueMemberN{Value: fmt.Sprintf("%d", ttlEpoch(s.retentionTTL))}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	return err
}

// ListEvents returns events for an execution in append order.
func (s *Store) ListEvents(ctx context.Context, executionID string, limit int) ([]types.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk":     &ddbtypes.AttributeValueMemberS{Value: execPK(executionID)},
			":prefix": &ddbtypes.AttributeValueMemberS{Value: prefixEvent},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	var events []types.Event
	for _, item := range out.Items {
		var ev types.Event
		if err := attributevalue.UnmarshalMap(item, &ev); err != nil {
			s.logger.Warn("skipping corrupt event record", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
