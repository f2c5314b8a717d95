package domain

import (
	"testing"

	"fieldserve_backend/platform/apperr"
)

func TestValidateTransition_LegalEdges(t *testing.T) {
	cases := []struct {
		current Status
		op      Operation
		want    Status
	}{
		{StatusPending, OpAccept, StatusSoftLocked},
		{StatusSoftLocked, OpAccept, StatusSoftLocked},
		{StatusSoftLocked, OpConfirm, StatusAssigned},
		{StatusSoftLocked, OpRenewLock, StatusSoftLocked},
		{StatusAssigned, OpStart, StatusInProgress},
		{StatusInProgress, OpVerifyCode, StatusCompletionPendingApproval},
		{StatusCompletionPendingApproval, OpApprove, StatusCompleted},
		{StatusPending, OpCancel, StatusCancelled},
		{StatusSoftLocked, OpCancel, StatusCancelled},
		{StatusAssigned, OpCancel, StatusCancelled},
		{StatusInProgress, OpCancel, StatusCancelled},
		{StatusCompletionPendingApproval, OpCancel, StatusCancelled},
	}

	for _, tc := range cases {
		next, err := ValidateTransition(tc.current, tc.op)
		if err != nil {
			t.Errorf("ValidateTransition(%q, %q) unexpected error: %v", tc.current, tc.op, err)
			continue
		}
		if next != tc.want {
			t.Errorf("ValidateTransition(%q, %q) = %q, want %q", tc.current, tc.op, next, tc.want)
		}
	}
}

func TestValidateTransition_IllegalEdges(t *testing.T) {
	cases := []struct {
		current Status
		op      Operation
	}{
		{StatusPending, OpConfirm},
		{StatusPending, OpStart},
		{StatusPending, OpVerifyCode},
		{StatusAssigned, OpAccept},
		{StatusAssigned, OpConfirm},
		{StatusInProgress, OpAccept},
		{StatusInProgress, OpApprove},
		{StatusCompleted, OpAccept},
		{StatusCompleted, OpCancel},
		{StatusCancelled, OpCancel},
		{StatusCancelled, OpVerifyCode},
		{StatusCompletionPendingApproval, OpVerifyCode},
	}

	for _, tc := range cases {
		_, err := ValidateTransition(tc.current, tc.op)
		if err == nil {
			t.Errorf("ValidateTransition(%q, %q) expected error, got none", tc.current, tc.op)
			continue
		}
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("ValidateTransition(%q, %q) expected validation error, got kind %v", tc.current, tc.op, apperr.GetKind(err))
		}
	}
}

func TestValidateJobStateForOperation(t *testing.T) {
	cases := []struct {
		status Status
		op     Operation
		ok     bool
	}{
		{StatusPending, OpAccept, true},
		{StatusSoftLocked, OpAccept, true},
		{StatusAssigned, OpAccept, false},
		{StatusInProgress, OpIssueCode, true},
		{StatusAssigned, OpIssueCode, false},
		{StatusInProgress, OpVerifyCode, true},
		{StatusCompletionPendingApproval, OpVerifyCode, false},
		{StatusCompletionPendingApproval, OpApprove, true},
		{StatusSoftLocked, OpReject, true},
		{StatusInProgress, OpReject, false},
		{StatusCompleted, OpCancel, false},
		{StatusCancelled, OpCancel, false},
		{StatusInProgress, OpCancel, true},
	}

	for _, tc := range cases {
		err := ValidateJobStateForOperation(tc.status, tc.op)
		if tc.ok && err != nil {
			t.Errorf("ValidateJobStateForOperation(%q, %q) unexpected error: %v", tc.status, tc.op, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ValidateJobStateForOperation(%q, %q) expected error, got none", tc.status, tc.op)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		if !IsTerminal(status) {
			t.Errorf("expected %q to be terminal", status)
		}
	}
	for _, status := range []Status{StatusPending, StatusSoftLocked, StatusAssigned, StatusInProgress, StatusCompletionPendingApproval} {
		if IsTerminal(status) {
			t.Errorf("expected %q to be non-terminal", status)
		}
	}
}

func TestGenerateCompletionCode(t *testing.T) {
	code := GenerateCompletionCode(6)
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %d (%q)", len(code), code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}

	// Too-short requests fall back to the default length.
	if got := GenerateCompletionCode(1); len(got) != DefaultCompletionCodeDigits {
		t.Fatalf("expected fallback to %d digits, got %d", DefaultCompletionCodeDigits, len(got))
	}
}
