// Package delivery is the boundary to the delivery subsystem.
//
// The engine never sends email itself; an external sender fires at
// scheduled_for and calls back into the mark-sent hook. A Provider supplies
// the send-metrics snapshot recorded on the issue at that moment.
package delivery

import (
	"context"

	"github.com/ignite/newsletter-engine/internal/domain"
)

// Provider supplies the metrics snapshot for an issue being marked sent.
type Provider interface {
	SnapshotMetrics(ctx context.Context, n *domain.NewsletterIssue) (domain.SendMetrics, error)
}

// StaticProvider returns a fixed snapshot. Dev-mode stand-in when no
// delivery backend is configured; callers may still pass explicit metrics
// through the mark-sent request body.
type StaticProvider struct {
	Metrics domain.SendMetrics
}

// SnapshotMetrics returns the configured snapshot.
func (p *StaticProvider) SnapshotMetrics(_ context.Context, _ *domain.NewsletterIssue) (domain.SendMetrics, error) {
	return p.Metrics, nil
}
