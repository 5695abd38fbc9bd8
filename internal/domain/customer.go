package domain

// ============================================================
// Customer
// ============================================================

// MembershipTier is the customer's loyalty level. PRO and PRO_PLUS
// customers get trust shortcuts during verification and credit bonuses.
type MembershipTier string

const (
	TierRegular MembershipTier = "REGULAR"
	TierPro     MembershipTier = "PRO"
	TierProPlus MembershipTier = "PRO_PLUS"
)

// IsPremium reports whether the tier is PRO or PRO_PLUS.
func (t MembershipTier) IsPremium() bool {
	return t == TierPro || t == TierProPlus
}

// CustomerInfo carries the customer facts the decision engines read.
// FraudRiskScore is in [0,1]; ComplaintFrequency is complaints per month.
type CustomerInfo struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	MembershipTier     MembershipTier `json:"membership_tier"`
	FraudRiskScore     float64        `json:"fraud_risk_score"`
	ComplaintFrequency int            `json:"complaint_frequency"`
}
