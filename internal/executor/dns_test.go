package executor

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standby-systems/standby/pkg/types"
)

type mockRoute53 struct {
	changes  []*route53.ChangeResourceRecordSetsInput
	current  string
	statuses []r53types.ChangeStatus
	polls    int
}

func (m *mockRoute53) ChangeResourceRecordSets(_ context.Context, input *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	m.changes = append(m.changes, input)
	return &route53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &r53types.ChangeInfo{
			Id:     aws.String("/change/C123"),
			Status: r53types.ChangeStatusPending,
		},
	}, nil
}

func (m *mockRoute53) GetChange(_ context.Context, _ *route53.GetChangeInput, _ ...func(*route53.Options)) (*route53.GetChangeOutput, error) {
	status := r53types.ChangeStatusInsync
	if m.polls < len(m.statuses) {
		status = m.statuses[m.polls]
	}
	m.polls++
	return &route53.GetChangeOutput{
		ChangeInfo: &r53types.ChangeInfo{Id: aws.String("/change/C123"), Status: status},
	}, nil
}

func (m *mockRoute53) ListResourceRecordSets(_ context.Context, _ *route53.ListResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	return &route53.ListResourceRecordSetsOutput{
		ResourceRecordSets: []r53types.ResourceRecordSet{{
			Name:            aws.String("shop.example.com."),
			Type:            r53types.RRTypeCname,
			ResourceRecords: []r53types.ResourceRecord{{Value: aws.String(m.current)}},
		}},
	}, nil
}

func testDNSConfig() types.DNSConfig {
	return types.DNSConfig{
		HostedZoneID:  "Z123",
		RecordName:    "shop.example.com",
		PrimaryTarget: "alb-primary.example.com",
		StandbyTarget: "alb-standby.example.com",
		PollInterval:  "10ms",
	}
}

func TestDNSCutover_UpsertsAndWaitsForInsync(t *testing.T) {
	mock := &mockRoute53{
		current:  "alb-primary.example.com",
		statuses: []r53types.ChangeStatus{r53types.ChangeStatusPending, r53types.ChangeStatusInsync},
	}
	d := NewDNSCutover(mock, testDNSConfig())

	outcome := d.Execute(context.Background(), "exec-1")
	require.Equal(t, types.ActionSucceeded, outcome.Status)

	require.Len(t, mock.changes, 1)
	batch := mock.changes[0].ChangeBatch
	require.Len(t, batch.Changes, 1)
	change := batch.Changes[0]
	assert.Equal(t, r53types.ChangeActionUpsert, change.Action)
	assert.Equal(t, "shop.example.com", aws.ToString(change.ResourceRecordSet.Name))
	assert.Equal(t, r53types.RRTypeCname, change.ResourceRecordSet.Type)
	assert.Equal(t, "alb-standby.example.com", aws.ToString(change.ResourceRecordSet.ResourceRecords[0].Value))
	assert.GreaterOrEqual(t, mock.polls, 2)
}

func TestDNSCutover_AlreadyPointing_Conflict(t *testing.T) {
	mock := &mockRoute53{current: "alb-standby.example.com"}
	d := NewDNSCutover(mock, testDNSConfig())

	outcome := d.Execute(context.Background(), "exec-1")
	assert.Equal(t, types.ActionSucceeded, outcome.Status)
	assert.Equal(t, types.FailureConflict, outcome.Kind)
	assert.Empty(t, mock.changes)
}

func TestDNSRevert_TargetsPrimary(t *testing.T) {
	mock := &mockRoute53{current: "alb-standby.example.com"}
	d := NewDNSRevert(mock, testDNSConfig())

	assert.Equal(t, "revert-dns", d.Name())
	outcome := d.Execute(context.Background(), "exec-2")
	require.Equal(t, types.ActionSucceeded, outcome.Status)
	require.Len(t, mock.changes, 1)
	value := mock.changes[0].ChangeBatch.Changes[0].ResourceRecordSet.ResourceRecords[0].Value
	assert.Equal(t, "alb-primary.example.com", aws.ToString(value))
}

func TestDNSSwitcher_Check_TrailingDot(t *testing.T) {
	// Route 53 returns names with a trailing dot; comparison must ignore it.
	mock := &mockRoute53{current: "alb-standby.example.com"}
	d := NewDNSCutover(mock, testDNSConfig())

	done, detail, err := d.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Contains(t, detail, "already points")
}

func TestDNSSwitcher_ContextCancelled_Transient(t *testing.T) {
	mock := &mockRoute53{current: "alb-primary.example.com"}
	d := NewDNSCutover(mock, testDNSConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := d.Execute(ctx, "exec-1")
	assert.Equal(t, types.ActionFailed, outcome.Status)
	assert.Equal(t, types.FailureTransient, outcome.Kind)
	assert.Len(t, mock.changes, 1, "upsert issued before the wait was cancelled")
}
