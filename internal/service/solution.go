package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quickplate/support-core-go/internal/config"
	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/observability"

	"go.uber.org/zap"
)

// issueSolver is the per-issue remedy strategy, mirroring issueVerifier.
type issueSolver interface {
	CanHandle(issue domain.IntentType) bool
	Solve(issue domain.IntentType, order *domain.OrderDetails, customer *domain.CustomerInfo, entities *domain.ExtractedEntities, now time.Time) domain.Solution
}

// SolutionDecisionEngine computes the remedy for a verified issue.
type SolutionDecisionEngine struct {
	policy  config.CompensationPolicy
	solvers []issueSolver
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewSolutionDecisionEngine builds the engine with one strategy per issue type.
func NewSolutionDecisionEngine(policy config.CompensationPolicy, metrics *observability.Metrics, logger *zap.Logger) *SolutionDecisionEngine {
	return &SolutionDecisionEngine{
		policy: policy,
		solvers: []issueSolver{
			&itemIssueSolver{policy: policy},
			&lateDeliverySolver{policy: policy},
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Decide picks the strategy for the issue type and returns its remedy.
// Like Verify, it is total: an unmatched issue type or a strategy panic
// yields the goodwill credit instead of an error.
func (e *SolutionDecisionEngine) Decide(issue domain.IntentType, order *domain.OrderDetails, customer *domain.CustomerInfo, entities *domain.ExtractedEntities, now time.Time) (sol domain.Solution) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("solution fault, falling back to goodwill credit",
				zap.String("issue", string(issue)),
				zap.Any("panic", r),
			)
			e.metrics.IncrFallback("solution")
			sol = e.goodwillCredit(order)
		}
		sol = clampSolution(sol, order)
		e.metrics.IncrSolution(string(sol.Type))
	}()

	if order == nil {
		e.metrics.IncrFallback("solution")
		return e.goodwillCredit(nil)
	}
	if entities == nil {
		entities = &domain.ExtractedEntities{}
	}
	if customer == nil {
		customer = &domain.CustomerInfo{MembershipTier: domain.TierRegular}
	}

	for _, s := range e.solvers {
		if s.CanHandle(issue) {
			return s.Solve(issue, order, customer, entities, now)
		}
	}

	e.logger.Warn("no solver for issue type, falling back to goodwill credit", zap.String("issue", string(issue)))
	e.metrics.IncrFallback("solution")
	return e.goodwillCredit(order)
}

// goodwillCredit is the designed fallback remedy: the delivery fee as
// credit, or a fixed amount when the order is unknown.
func (e *SolutionDecisionEngine) goodwillCredit(order *domain.OrderDetails) domain.Solution {
	amount := e.policy.DefaultCreditAmount
	if order != nil && order.DeliveryFee > 0 {
		amount = order.DeliveryFee
	}
	return domain.Solution{
		Type:   domain.SolutionCredit,
		Amount: amount,
		Reason: "compensation for inconvenience",
	}
}

// clampSolution enforces the amount invariants regardless of what a
// strategy produced: never negative, and refunds never exceed the
// order total.
func clampSolution(sol domain.Solution, order *domain.OrderDetails) domain.Solution {
	if sol.Amount < 0 {
		sol.Amount = 0
	}
	if sol.BonusAmount < 0 {
		sol.BonusAmount = 0
	}
	if sol.Type == domain.SolutionRefund && order != nil && sol.Amount > order.TotalAmount {
		sol.Amount = order.TotalAmount
	}
	return sol
}

// affectedAmount sums unitPrice×quantity over order items whose
// lowercase name contains any claimed lowercase name. A non-empty claim
// set that matches nothing falls back to fallbackRate of the total; an
// empty claim set is worth 0.
func affectedAmount(claimed []string, order *domain.OrderDetails, fallbackRate float64) float64 {
	if len(claimed) == 0 {
		return 0
	}

	var total float64
	matchedAny := false
	for _, item := range order.Items {
		name := strings.ToLower(item.Name)
		for _, claim := range claimed {
			if strings.Contains(name, strings.ToLower(claim)) {
				total += item.UnitPrice * float64(item.Quantity)
				matchedAny = true
				break
			}
		}
	}

	if !matchedAny {
		return order.TotalAmount * fallbackRate
	}
	return total
}

// ============================================================
// Wrong order / missing item
// ============================================================

type itemIssueSolver struct {
	policy config.CompensationPolicy
}

func (s *itemIssueSolver) CanHandle(issue domain.IntentType) bool {
	return issue == domain.IntentWrongOrder || issue == domain.IntentMissingItem
}

func (s *itemIssueSolver) Solve(issue domain.IntentType, order *domain.OrderDetails, customer *domain.CustomerInfo, entities *domain.ExtractedEntities, now time.Time) domain.Solution {
	claimed := entities.MissingItems
	if issue == domain.IntentWrongOrder {
		claimed = entities.WrongItems
	}

	affected := affectedAmount(claimed, order, s.policy.UnmatchedItemsFallbackRate)
	// A wrong order with no specific items claimed means the whole
	// order was wrong.
	if issue == domain.IntentWrongOrder && len(claimed) == 0 {
		affected = order.TotalAmount
	}

	if s.redeliveryViable(order, now) {
		return domain.Solution{
			Type:                     domain.SolutionRedelivery,
			Amount:                   affected,
			Reason:                   "replacement delivery for the affected items",
			EstimatedDeliveryMinutes: s.policy.RedeliveryETAMinutes,
		}
	}

	if customer.MembershipTier.IsPremium() {
		bonus := math.Min(affected*s.policy.PremiumBonusRate, s.policy.MaxBonus)
		return domain.Solution{
			Type:        domain.SolutionCredit,
			Amount:      affected + bonus,
			BonusAmount: bonus,
			Reason:      "account credit with membership bonus",
		}
	}

	return domain.Solution{
		Type:   domain.SolutionRefund,
		Amount: affected,
		Reason: "refund for the affected items",
	}
}

// redeliveryViable: the restaurant must still be open and the delivery
// recent enough that replacement food makes sense. Both checks read the
// same now snapshot.
func (s *itemIssueSolver) redeliveryViable(order *domain.OrderDetails, now time.Time) bool {
	if !now.Before(order.RestaurantCloseTime) {
		return false
	}
	if order.DeliveredAt == nil {
		return false
	}
	return now.Sub(*order.DeliveredAt) < s.policy.RedeliveryWindow.Std()
}

// ============================================================
// Late delivery
// ============================================================

type lateDeliverySolver struct {
	policy config.CompensationPolicy
}

func (s *lateDeliverySolver) CanHandle(issue domain.IntentType) bool {
	return issue == domain.IntentLateDelivery
}

func (s *lateDeliverySolver) Solve(_ domain.IntentType, order *domain.OrderDetails, _ *domain.CustomerInfo, entities *domain.ExtractedEntities, _ time.Time) domain.Solution {
	lateness := entities.LatenessMinutes

	// Extreme delays bypass the rate table: full refund.
	if lateness > s.policy.ExtremeLatenessMinutes {
		return domain.Solution{
			Type:   domain.SolutionRefund,
			Amount: order.TotalAmount,
			Reason: fmt.Sprintf("full refund, delivery %d minutes late", int(math.Round(lateness))),
		}
	}

	var rate float64
	switch {
	case lateness > s.policy.VeryLateMinutes:
		rate = s.policy.VeryLateRate
	case lateness > s.policy.ModeratelyLateMinutes:
		rate = s.policy.ModeratelyLateRate
	case lateness > s.policy.SlightlyLateMinutes:
		rate = s.policy.SlightlyLateRate
	}

	amount := math.Min(order.TotalAmount*rate, s.policy.MaxLateFee)
	return domain.Solution{
		Type:   domain.SolutionCredit,
		Amount: amount,
		Reason: fmt.Sprintf("credit for a delivery %d minutes late", int(math.Round(lateness))),
	}
}
