package issue

import "github.com/ignite/newsletter-engine/internal/domain"

// Workflow operation names. They double as the Op field in
// InvalidStateError messages and in API error bodies.
const (
	OpSubmitForApproval = "submit_for_approval"
	OpApprove           = "approve"
	OpReject            = "reject"
	OpSchedule          = "schedule"
	OpMarkSent          = "mark_sent"
	OpUpdate            = "update"
	OpDelete            = "delete"
)

// rule is one row of the workflow state machine.
type rule struct {
	From []domain.IssueStatus
	To   domain.IssueStatus
}

// transitions is the single source of truth for legal status changes.
// Rejection is modeled as pending_approval -> draft, not a separate state;
// every other combination fails with InvalidStateError.
var transitions = map[string]rule{
	OpSubmitForApproval: {From: []domain.IssueStatus{domain.IssueDraft}, To: domain.IssuePendingApproval},
	OpApprove:           {From: []domain.IssueStatus{domain.IssuePendingApproval}, To: domain.IssueApproved},
	OpReject:            {From: []domain.IssueStatus{domain.IssuePendingApproval}, To: domain.IssueDraft},
	OpSchedule:          {From: []domain.IssueStatus{domain.IssueApproved}, To: domain.IssueScheduled},
	OpMarkSent:          {From: []domain.IssueStatus{domain.IssueScheduled}, To: domain.IssueSent},
}

// Update and Delete are guarded separately from the state table.
var (
	// UpdatableStatuses are the statuses an issue may be edited in.
	UpdatableStatuses = []domain.IssueStatus{domain.IssueDraft, domain.IssuePendingApproval}

	// DeletableStatuses are the statuses an issue may be deleted in.
	DeletableStatuses = []domain.IssueStatus{domain.IssueDraft}
)

// StatusAllows reports whether status is one of the allowed set.
func StatusAllows(status domain.IssueStatus, allowed []domain.IssueStatus) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// transitionFor builds the Transition skeleton for op. Panics on an unknown
// op; all call sites use the Op constants above.
func transitionFor(op string) Transition {
	r, ok := transitions[op]
	if !ok {
		panic("issue: unknown workflow operation " + op)
	}
	return Transition{Op: op, From: r.From, To: r.To}
}
