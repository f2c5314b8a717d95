// Package domain provides core business rules for the jobs bounded context.
// Everything here is pure: no I/O, no clocks, no storage.
package domain

import (
	"fmt"

	"fieldserve_backend/platform/apperr"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending                   Status = "pending"
	StatusSoftLocked                Status = "soft_locked"
	StatusAssigned                  Status = "assigned"
	StatusInProgress                Status = "in_progress"
	StatusCompletionPendingApproval Status = "completion_pending_approval"
	StatusCompleted                 Status = "completed"
	StatusCancelled                 Status = "cancelled"
)

// Operation is a requested action against a job.
type Operation string

const (
	OpAccept      Operation = "accept"
	OpConfirm     Operation = "confirm"
	OpRenewLock   Operation = "renew_lock"
	OpReject      Operation = "reject"
	OpStart       Operation = "start"
	OpIssueCode   Operation = "issue_code"
	OpVerifyCode  Operation = "verify_code"
	OpApprove     Operation = "approve"
	OpCancel      Operation = "cancel"
)

// IsTerminal reports whether no further transitions are allowed from the status.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// transitions maps an operation to its legal (from -> to) edges.
// The SOFT_LOCKED -> SOFT_LOCKED edge covers re-confirmation by the current
// holder and handover of an expired lock to a new holder; which of the two
// applies is decided by the coordinator, which also checks holder and expiry.
var transitions = map[Operation]map[Status]Status{
	OpAccept: {
		StatusPending:    StatusSoftLocked,
		StatusSoftLocked: StatusSoftLocked,
	},
	OpConfirm: {
		StatusSoftLocked: StatusAssigned,
	},
	OpRenewLock: {
		StatusSoftLocked: StatusSoftLocked,
	},
	OpStart: {
		StatusAssigned: StatusInProgress,
	},
	OpVerifyCode: {
		StatusInProgress: StatusCompletionPendingApproval,
	},
	OpApprove: {
		StatusCompletionPendingApproval: StatusCompleted,
	},
}

// operationStates answers "is operation X even meaningful from this status",
// independent of the transition table. Some operations (issue_code, reject)
// do not move the job to a new status but still have state preconditions.
var operationStates = map[Operation][]Status{
	OpAccept:     {StatusPending, StatusSoftLocked},
	OpConfirm:    {StatusSoftLocked},
	OpRenewLock:  {StatusSoftLocked},
	OpReject:     {StatusPending, StatusSoftLocked},
	OpStart:      {StatusAssigned},
	OpIssueCode:  {StatusInProgress},
	OpVerifyCode: {StatusInProgress},
	OpApprove:    {StatusCompletionPendingApproval},
	OpCancel: {
		StatusPending, StatusSoftLocked, StatusAssigned,
		StatusInProgress, StatusCompletionPendingApproval,
	},
}

// ValidateTransition returns the status the job moves to when the operation
// is applied from the current status, or a validation error when the edge
// is not part of the lifecycle graph.
func ValidateTransition(current Status, op Operation) (Status, error) {
	if op == OpCancel {
		if IsTerminal(current) {
			return "", apperr.Validation(fmt.Sprintf("cannot cancel a job in terminal status %q", current))
		}
		return StatusCancelled, nil
	}

	edges, ok := transitions[op]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("operation %q does not transition job status", op))
	}

	next, ok := edges[current]
	if !ok {
		return "", apperr.Validation(fmt.Sprintf("operation %q is not allowed from status %q", op, current))
	}
	return next, nil
}

// ValidateJobStateForOperation checks that the operation is meaningful from
// the given status. This is the second, independent precondition check: both
// this and ValidateTransition must pass before any mutation.
func ValidateJobStateForOperation(status Status, op Operation) error {
	allowed, ok := operationStates[op]
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown operation %q", op))
	}

	for _, s := range allowed {
		if s == status {
			return nil
		}
	}
	return apperr.Validation(fmt.Sprintf("operation %q requires status %v, job is %q", op, allowed, status))
}
