package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/newsletter-engine/internal/domain"
)

// SESConfig holds the AWS SES v2 credentials for the metrics provider.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// Enabled reports whether SES credentials are configured.
func (c SESConfig) Enabled() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.Region != ""
}

// SESProvider reads VDM delivery counters from AWS SES v2.
type SESProvider struct {
	client *sesv2.Client
}

// NewSESProvider creates an SES-backed metrics provider.
func NewSESProvider(ctx context.Context, cfg SESConfig) (*SESProvider, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESProvider{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// metricQueries maps VDM metrics to the snapshot fields they populate.
var metricQueries = []struct {
	metric types.Metric
	assign func(*domain.SendMetrics, int)
}{
	{types.MetricSend, func(m *domain.SendMetrics, v int) { m.TotalSent = v; m.TotalRecipients = v }},
	{types.MetricDelivery, func(m *domain.SendMetrics, v int) { m.TotalDelivered = v }},
	{types.MetricOpen, func(m *domain.SendMetrics, v int) { m.TotalOpened = v; m.UniqueOpens = v }},
	{types.MetricClick, func(m *domain.SendMetrics, v int) { m.TotalClicked = v; m.UniqueClicks = v }},
}

// SnapshotMetrics sums VDM counters over the issue's send window: from
// scheduled_for (or the last hour when unset) to now.
func (p *SESProvider) SnapshotMetrics(ctx context.Context, n *domain.NewsletterIssue) (domain.SendMetrics, error) {
	to := time.Now().UTC()
	from := to.Add(-time.Hour)
	if n.ScheduledFor != nil {
		from = n.ScheduledFor.UTC()
	}

	queries := make([]types.BatchGetMetricDataQuery, 0, len(metricQueries))
	for i, q := range metricQueries {
		queries = append(queries, types.BatchGetMetricDataQuery{
			Id:        aws.String(fmt.Sprintf("q%d_%s", i, q.metric)),
			Namespace: types.MetricNamespaceVdm,
			Metric:    q.metric,
			StartDate: aws.Time(from),
			EndDate:   aws.Time(to),
		})
	}

	output, err := p.client.BatchGetMetricData(ctx, &sesv2.BatchGetMetricDataInput{Queries: queries})
	if err != nil {
		return domain.SendMetrics{}, fmt.Errorf("fetching send metrics for issue %s: %w", n.ID, err)
	}

	var metrics domain.SendMetrics
	for _, result := range output.Results {
		if result.Id == nil {
			continue
		}
		var total int64
		for _, val := range result.Values {
			total += int64(val)
		}
		for i, q := range metricQueries {
			if *result.Id == fmt.Sprintf("q%d_%s", i, q.metric) {
				q.assign(&metrics, int(total))
				break
			}
		}
	}
	return metrics, nil
}
