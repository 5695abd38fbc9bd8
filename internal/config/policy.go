package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses Go duration strings ("60m", "24h") from YAML, which
// yaml.v3 does not do for time.Duration itself.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Policy holds every decision constant the engines depend on: verification
// windows, risk thresholds, compensation rates, escalation triggers. The
// numbers ship as built-in defaults and can be overridden by a YAML file so
// operations can retune compensation without a deploy.
type Policy struct {
	Verification VerificationPolicy `yaml:"verification"`
	Compensation CompensationPolicy `yaml:"compensation"`
	Escalation   EscalationPolicy   `yaml:"escalation"`
}

// VerificationPolicy gates whether a complaint is accepted at all.
type VerificationPolicy struct {
	// WrongOrderWindow / MissingItemWindow bound how long after delivery
	// a wrong-order or missing-item report is still accepted.
	WrongOrderWindow  Duration `yaml:"wrong_order_window"`
	MissingItemWindow Duration `yaml:"missing_item_window"`
	// LateDeliveryWindow bounds late-delivery reports (hours scale).
	LateDeliveryWindow Duration `yaml:"late_delivery_window"`
	// AcceptableLatenessMinutes is the delay below which a delivery does
	// not count as late.
	AcceptableLatenessMinutes float64 `yaml:"acceptable_lateness_minutes"`
	// FraudRiskThreshold rejects claims from customers scoring above it.
	FraudRiskThreshold float64 `yaml:"fraud_risk_threshold"`
	// RefundEligibilityDays bounds the standalone refund check.
	RefundEligibilityDays int `yaml:"refund_eligibility_days"`
}

// CompensationPolicy shapes the remedy amounts.
type CompensationPolicy struct {
	// RedeliveryWindow is how long after delivery a replacement is still
	// operationally viable.
	RedeliveryWindow Duration `yaml:"redelivery_window"`
	// RedeliveryETAMinutes is the estimate quoted to the customer.
	RedeliveryETAMinutes int `yaml:"redelivery_eta_minutes"`
	// PremiumBonusRate and MaxBonus shape the credit bonus for PRO tiers.
	PremiumBonusRate float64 `yaml:"premium_bonus_rate"`
	MaxBonus         float64 `yaml:"max_bonus"`
	// Lateness rate table. A delay beyond ExtremeLatenessMinutes refunds
	// the whole order regardless of the table.
	SlightlyLateRate       float64 `yaml:"slightly_late_rate"`
	ModeratelyLateRate     float64 `yaml:"moderately_late_rate"`
	VeryLateRate           float64 `yaml:"very_late_rate"`
	SlightlyLateMinutes    float64 `yaml:"slightly_late_minutes"`
	ModeratelyLateMinutes  float64 `yaml:"moderately_late_minutes"`
	VeryLateMinutes        float64 `yaml:"very_late_minutes"`
	ExtremeLatenessMinutes float64 `yaml:"extreme_lateness_minutes"`
	MaxLateFee             float64 `yaml:"max_late_fee"`
	// UnmatchedItemsFallbackRate compensates when claimed items match
	// nothing in the order.
	UnmatchedItemsFallbackRate float64 `yaml:"unmatched_items_fallback_rate"`
	// DefaultCreditAmount is the fail-open credit when everything else
	// falls through and the order has no delivery fee.
	DefaultCreditAmount float64 `yaml:"default_credit_amount"`
}

// EscalationPolicy triggers human handoff.
type EscalationPolicy struct {
	// FrustrationThreshold is how many frustrated user messages trigger
	// auto-escalation.
	FrustrationThreshold int `yaml:"frustration_threshold"`
	// FrustrationPhrases is the lexicon matched (lowercase, substring)
	// against user messages.
	FrustrationPhrases []string `yaml:"frustration_phrases"`
	// ResolutionThreshold escalates sessions that already accumulated
	// this many resolutions.
	ResolutionThreshold int `yaml:"resolution_threshold"`
	// HighValueOrderThreshold marks orders worth routing to a human.
	HighValueOrderThreshold float64 `yaml:"high_value_order_threshold"`
	// LongConversationMessages bumps priority on long conversations.
	LongConversationMessages int `yaml:"long_conversation_messages"`
	// ComplaintFrequencyThreshold bumps priority for serial complainers.
	ComplaintFrequencyThreshold int `yaml:"complaint_frequency_threshold"`
	// NegativeSentimentThreshold marks a user message as negative when
	// its classified sentiment is at or below this value.
	NegativeSentimentThreshold float64 `yaml:"negative_sentiment_threshold"`
	// NegativeSentimentStreak is how many negative messages trigger
	// auto-escalation.
	NegativeSentimentStreak int `yaml:"negative_sentiment_streak"`
}

// DefaultPolicy returns the shipped policy constants.
func DefaultPolicy() *Policy {
	return &Policy{
		Verification: VerificationPolicy{
			WrongOrderWindow:          Duration(60 * time.Minute),
			MissingItemWindow:         Duration(60 * time.Minute),
			LateDeliveryWindow:        Duration(24 * time.Hour),
			AcceptableLatenessMinutes: 10,
			FraudRiskThreshold:        0.7,
			RefundEligibilityDays:     7,
		},
		Compensation: CompensationPolicy{
			RedeliveryWindow:           Duration(120 * time.Minute),
			RedeliveryETAMinutes:       35,
			PremiumBonusRate:           0.2,
			MaxBonus:                   100,
			SlightlyLateRate:           0.1,
			ModeratelyLateRate:         0.2,
			VeryLateRate:               0.3,
			SlightlyLateMinutes:        15,
			ModeratelyLateMinutes:      30,
			VeryLateMinutes:            60,
			ExtremeLatenessMinutes:     90,
			MaxLateFee:                 200,
			UnmatchedItemsFallbackRate: 0.3,
			DefaultCreditAmount:        50,
		},
		Escalation: EscalationPolicy{
			FrustrationThreshold: 2,
			FrustrationPhrases: []string{
				"speak to a human",
				"talk to a manager",
				"talk to a supervisor",
				"ridiculous",
				"unacceptable",
				"unhelpful",
				"useless",
				"waste of time",
				"are you a bot",
			},
			ResolutionThreshold:         2,
			HighValueOrderThreshold:     1000,
			LongConversationMessages:    10,
			ComplaintFrequencyThreshold: 3,
			NegativeSentimentThreshold:  -0.5,
			NegativeSentimentStreak:     3,
		},
	}
}

// LoadPolicy returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults unchanged.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return p, nil
}

// Validate rejects policy values that would break the engines' invariants.
func (p *Policy) Validate() error {
	if p.Verification.FraudRiskThreshold < 0 || p.Verification.FraudRiskThreshold > 1 {
		return fmt.Errorf("fraud_risk_threshold must be in [0,1], got %v", p.Verification.FraudRiskThreshold)
	}
	if p.Compensation.MaxBonus < 0 {
		return fmt.Errorf("max_bonus must be >= 0, got %v", p.Compensation.MaxBonus)
	}
	if p.Compensation.MaxLateFee < 0 {
		return fmt.Errorf("max_late_fee must be >= 0, got %v", p.Compensation.MaxLateFee)
	}
	for name, rate := range map[string]float64{
		"slightly_late_rate":            p.Compensation.SlightlyLateRate,
		"moderately_late_rate":          p.Compensation.ModeratelyLateRate,
		"very_late_rate":                p.Compensation.VeryLateRate,
		"premium_bonus_rate":            p.Compensation.PremiumBonusRate,
		"unmatched_items_fallback_rate": p.Compensation.UnmatchedItemsFallbackRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, rate)
		}
	}
	if p.Escalation.FrustrationThreshold < 1 {
		return fmt.Errorf("frustration_threshold must be >= 1, got %d", p.Escalation.FrustrationThreshold)
	}
	if t := p.Escalation.NegativeSentimentThreshold; t < -1 || t > 0 {
		return fmt.Errorf("negative_sentiment_threshold must be in [-1,0], got %v", t)
	}
	if p.Escalation.NegativeSentimentStreak < 1 {
		return fmt.Errorf("negative_sentiment_streak must be >= 1, got %d", p.Escalation.NegativeSentimentStreak)
	}
	return nil
}
