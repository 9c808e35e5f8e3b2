package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/standby-systems/standby/pkg/types"
)

// Route53API is the subset of the Route 53 client used by the DNS switcher.
type Route53API interface {
	ChangeResourceRecordSets(ctx context.Context, input *route53.ChangeResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, input *route53.GetChangeInput, opts ...func(*route53.Options)) (*route53.GetChangeOutput, error)
	ListResourceRecordSets(ctx context.Context, input *route53.ListResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// DNSSwitcher repoints the edge record at a target endpoint and waits for the
// change to reach INSYNC. UPSERT makes the change idempotent, so retries are
// always safe.
type DNSSwitcher struct {
	r53    Route53API
	name   string
	zoneID string
	record string
	rtype  string
	target string
	ttl    int64
	poll   time.Duration
}

// NewDNSCutover creates the failover executor pointing the record at the
// standby region.
func NewDNSCutover(client Route53API, cfg types.DNSConfig) *DNSSwitcher {
	return newSwitcher(client, cfg, "cutover-dns", cfg.StandbyTarget)
}

// NewDNSRevert creates the failback executor restoring the record to the
// primary region.
func NewDNSRevert(client Route53API, cfg types.DNSConfig) *DNSSwitcher {
	return newSwitcher(client, cfg, "revert-dns", cfg.PrimaryTarget)
}

func newSwitcher(client Route53API, cfg types.DNSConfig, name, target string) *DNSSwitcher {
	rtype := cfg.RecordType
	if rtype == "" {
		rtype = "CNAME"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 60
	}
	return &DNSSwitcher{
		r53:    client,
		name:   name,
		zoneID: cfg.HostedZoneID,
		record: cfg.RecordName,
		rtype:  rtype,
		target: target,
		ttl:    ttl,
		poll:   parseDuration(cfg.PollInterval, 10*time.Second),
	}
}

// Name returns the action identifier.
func (d *DNSSwitcher) Name() string { return d.name }

// Check reports whether the record already resolves to the target.
func (d *DNSSwitcher) Check(ctx context.Context) (bool, string, error) {
	out, err := d.r53.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(d.zoneID),
		StartRecordName: aws.String(d.record),
		StartRecordType: r53types.RRType(d.rtype),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return false, "", err
	}
	for _, rrset := range out.ResourceRecordSets {
		if !recordNameEqual(aws.ToString(rrset.Name), d.record) {
			continue
		}
		for _, rr := range rrset.ResourceRecords {
			if aws.ToString(rr.Value) == d.target {
				return true, fmt.Sprintf("%s already points at %s", d.record, d.target), nil
			}
		}
	}
	return false, fmt.Sprintf("%s does not point at %s", d.record, d.target), nil
}

// Execute upserts the record and polls the change until INSYNC.
func (d *DNSSwitcher) Execute(ctx context.Context, _ string) Outcome {
	done, detail, err := d.Check(ctx)
	if err != nil {
		return Fail(classifyAWSError(err), fmt.Sprintf("reading record %s: %v", d.record, err))
	}
	if done {
		return Conflict(detail)
	}

	change, err := d.r53.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(d.zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Changes: []r53types.Change{{
				Action: r53types.ChangeActionUpsert,
				ResourceRecordSet: &r53types.ResourceRecordSet{
					Name:            aws.String(d.record),
					Type:            r53types.RRType(d.rtype),
					TTL:             aws.Int64(d.ttl),
					ResourceRecords: []r53types.ResourceRecord{{Value: aws.String(d.target)}},
				},
			}},
		},
	})
	if err != nil {
		return Fail(classifyAWSError(err), fmt.Sprintf("changing record %s: %v", d.record, err))
	}

	changeID := aws.ToString(change.ChangeInfo.Id)
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Fail(types.FailureTransient,
				fmt.Sprintf("waiting for change %s to sync: %v", changeID, ctx.Err()))
		case <-ticker.C:
			out, err := d.r53.GetChange(ctx, &route53.GetChangeInput{Id: aws.String(changeID)})
			if err != nil {
				continue
			}
			if out.ChangeInfo.Status == r53types.ChangeStatusInsync {
				return OK(fmt.Sprintf("%s now points at %s", d.record, d.target))
			}
		}
	}
}

// recordNameEqual compares record names ignoring the trailing dot Route 53
// appends.
func recordNameEqual(a, b string) bool {
	return strings.TrimSuffix(a, ".") == strings.TrimSuffix(b, ".")
}
