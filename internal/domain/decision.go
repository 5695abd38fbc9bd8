package domain

// ============================================================
// Decision outputs — verification, solution, escalation
// ============================================================

// VerificationResult is the outcome of checking whether a reported
// issue is genuine. Derived facts (lateness, matched items) are carried
// so the solution engine doesn't recompute them.
type VerificationResult struct {
	Verified          bool     `json:"verified"`
	Reason            string   `json:"reason"`
	LatenessMinutes   float64  `json:"lateness_minutes,omitempty"`
	ValidMissingItems []string `json:"valid_missing_items,omitempty"`
}

// SolutionType is the remedy category.
type SolutionType string

const (
	SolutionRefund     SolutionType = "REFUND"
	SolutionRedelivery SolutionType = "REDELIVERY"
	SolutionCredit     SolutionType = "CREDIT"
)

// Solution is the computed remedy for a verified issue.
// Amount is always >= 0 and, for refunds, never exceeds the order total.
type Solution struct {
	Type                     SolutionType `json:"type"`
	Amount                   float64      `json:"amount"`
	Reason                   string       `json:"reason"`
	BonusAmount              float64      `json:"bonus_amount,omitempty"`
	EstimatedDeliveryMinutes int          `json:"estimated_delivery_minutes,omitempty"`
}

// RefundEligibility is the outcome of the standalone refund check.
// Percentage is the fraction of the order total refundable, in [0,1].
type RefundEligibility struct {
	Eligible   bool    `json:"eligible"`
	Reason     string  `json:"reason"`
	Percentage float64 `json:"percentage"`
}

// EscalationPriority is the triage level for human handoff.
type EscalationPriority string

const (
	PriorityHigh   EscalationPriority = "HIGH"
	PriorityMedium EscalationPriority = "MEDIUM"
	// PriorityLow is never produced by the current policy but stays a
	// valid value for future rules.
	PriorityLow EscalationPriority = "LOW"
)

// EscalationDecision is the handoff verdict for a session.
type EscalationDecision struct {
	AutoEscalate bool               `json:"auto_escalate"`
	Priority     EscalationPriority `json:"priority"`
}
