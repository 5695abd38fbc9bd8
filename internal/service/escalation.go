package service

import (
	"strings"

	"github.com/quickplate/support-core-go/internal/config"
	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/observability"

	"go.uber.org/zap"
)

// EscalationEngine decides whether a session should be handed to a
// human and at what priority. Escalation is additive: the conversation
// keeps going, the flag just becomes visible to callers so they can
// route to an agent concurrently.
type EscalationEngine struct {
	policy  config.EscalationPolicy
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewEscalationEngine creates the engine.
func NewEscalationEngine(policy config.EscalationPolicy, metrics *observability.Metrics, logger *zap.Logger) *EscalationEngine {
	return &EscalationEngine{policy: policy, metrics: metrics, logger: logger}
}

// Evaluate runs both policy questions against the session.
func (e *EscalationEngine) Evaluate(s *domain.Session) domain.EscalationDecision {
	return domain.EscalationDecision{
		AutoEscalate: e.ShouldAutoEscalate(s),
		Priority:     e.DeterminePriority(s),
	}
}

// ShouldAutoEscalate is true when any trigger fires: a PRO_PLUS
// customer, repeated frustration, a run of negative-sentiment messages,
// a high-value order in the session, or a session that already burned
// through multiple resolutions.
func (e *EscalationEngine) ShouldAutoEscalate(s *domain.Session) bool {
	if s.Customer.MembershipTier == domain.TierProPlus {
		return true
	}
	if e.frustratedMessageCount(s) >= e.policy.FrustrationThreshold {
		return true
	}
	if e.negativeSentimentCount(s) >= e.policy.NegativeSentimentStreak {
		return true
	}
	if e.hasHighValueOrder(s) {
		return true
	}
	if len(s.Resolutions) >= e.policy.ResolutionThreshold {
		return true
	}
	return false
}

// DeterminePriority triages the handoff. MEDIUM is the floor today;
// LOW stays reserved for future rules.
func (e *EscalationEngine) DeterminePriority(s *domain.Session) domain.EscalationPriority {
	switch {
	case s.Customer.MembershipTier.IsPremium():
		return domain.PriorityHigh
	case len(s.Messages) > e.policy.LongConversationMessages:
		return domain.PriorityHigh
	case e.hasHighValueOrder(s):
		return domain.PriorityHigh
	case s.Customer.ComplaintFrequency > e.policy.ComplaintFrequencyThreshold:
		return domain.PriorityHigh
	default:
		return domain.PriorityMedium
	}
}

// frustratedMessageCount counts user messages containing at least one
// phrase from the frustration lexicon. A message with several phrases
// still counts once.
func (e *EscalationEngine) frustratedMessageCount(s *domain.Session) int {
	count := 0
	for _, m := range s.Messages {
		if m.Role != domain.RoleUser {
			continue
		}
		lc := strings.ToLower(m.Content)
		for _, phrase := range e.policy.FrustrationPhrases {
			if strings.Contains(lc, phrase) {
				count++
				break
			}
		}
	}
	return count
}

// negativeSentimentCount counts user messages whose classified
// sentiment sits at or below the configured threshold.
func (e *EscalationEngine) negativeSentimentCount(s *domain.Session) int {
	count := 0
	for _, m := range s.Messages {
		if m.Role == domain.RoleUser && m.Sentiment <= e.policy.NegativeSentimentThreshold {
			count++
		}
	}
	return count
}

func (e *EscalationEngine) hasHighValueOrder(s *domain.Session) bool {
	for i := range s.Orders {
		if s.Orders[i].TotalAmount > e.policy.HighValueOrderThreshold {
			return true
		}
	}
	return false
}
