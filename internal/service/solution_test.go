package service_test

import (
	"testing"
	"time"

	"github.com/quickplate/support-core-go/internal/config"
	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/observability"
	"github.com/quickplate/support-core-go/internal/service"

	"go.uber.org/zap"
)

func newSolutionEngine() *service.SolutionDecisionEngine {
	return service.NewSolutionDecisionEngine(
		config.DefaultPolicy().Compensation,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestDecide_MissingItem_RedeliveryWhenViable(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	entities := &domain.ExtractedEntities{MissingItems: []string{"spring rolls"}}

	sol := e.Decide(domain.IntentMissingItem, order, regularCustomer(), entities, now)
	if sol.Type != domain.SolutionRedelivery {
		t.Fatalf("expected redelivery, got %s", sol.Type)
	}
	// Spring Rolls: 6 × 2
	if sol.Amount != 12 {
		t.Errorf("expected affected amount 12, got %v", sol.Amount)
	}
	if sol.EstimatedDeliveryMinutes != 35 {
		t.Errorf("expected ETA 35, got %d", sol.EstimatedDeliveryMinutes)
	}
}

func TestDecide_MissingItem_NoRedeliveryWhenRestaurantClosed(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	order.RestaurantCloseTime = now.Add(-time.Hour)
	entities := &domain.ExtractedEntities{MissingItems: []string{"spring rolls"}}

	sol := e.Decide(domain.IntentMissingItem, order, regularCustomer(), entities, now)
	if sol.Type != domain.SolutionRefund {
		t.Fatalf("expected refund when restaurant closed, got %s", sol.Type)
	}
	if sol.Amount != 12 {
		t.Errorf("expected amount 12, got %v", sol.Amount)
	}
}

func TestDecide_MissingItem_NoRedeliveryWhenDeliveryTooOld(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 3*time.Hour, 20)
	entities := &domain.ExtractedEntities{MissingItems: []string{"spring rolls"}}

	sol := e.Decide(domain.IntentMissingItem, order, regularCustomer(), entities, now)
	if sol.Type == domain.SolutionRedelivery {
		t.Fatal("expected no redelivery 3h after delivery")
	}
}

func TestDecide_PremiumGetsCreditWithBonus(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	order.RestaurantCloseTime = now.Add(-time.Hour)
	customer := regularCustomer()
	customer.MembershipTier = domain.TierPro
	entities := &domain.ExtractedEntities{MissingItems: []string{"spring rolls"}}

	sol := e.Decide(domain.IntentMissingItem, order, customer, entities, now)
	if sol.Type != domain.SolutionCredit {
		t.Fatalf("expected credit for premium customer, got %s", sol.Type)
	}
	// 12 affected + 20% bonus
	if sol.BonusAmount < 2.39 || sol.BonusAmount > 2.41 {
		t.Errorf("expected bonus 2.4, got %v", sol.BonusAmount)
	}
	if sol.Amount < 14.39 || sol.Amount > 14.41 {
		t.Errorf("expected amount 14.4, got %v", sol.Amount)
	}
}

func TestDecide_PremiumBonusCapped(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	order.Items = []domain.OrderItem{{Name: "Catering Platter", UnitPrice: 600, Quantity: 1}}
	order.TotalAmount = 600
	order.RestaurantCloseTime = now.Add(-time.Hour)
	customer := regularCustomer()
	customer.MembershipTier = domain.TierProPlus
	entities := &domain.ExtractedEntities{MissingItems: []string{"catering platter"}}

	sol := e.Decide(domain.IntentMissingItem, order, customer, entities, now)
	if sol.BonusAmount != 100 {
		t.Errorf("expected bonus capped at 100, got %v", sol.BonusAmount)
	}
}

func TestDecide_WrongOrder_NoClaimedItemsMeansFullOrder(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	order.RestaurantCloseTime = now.Add(-time.Hour)

	sol := e.Decide(domain.IntentWrongOrder, order, regularCustomer(), &domain.ExtractedEntities{}, now)
	if sol.Type != domain.SolutionRefund {
		t.Fatalf("expected refund, got %s", sol.Type)
	}
	if sol.Amount != order.TotalAmount {
		t.Errorf("expected the full order total %v, got %v", order.TotalAmount, sol.Amount)
	}
}

func TestDecide_UnmatchedClaimFallsBackToRate(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 20)
	order.RestaurantCloseTime = now.Add(-time.Hour)
	entities := &domain.ExtractedEntities{MissingItems: []string{"pizza"}}

	sol := e.Decide(domain.IntentMissingItem, order, regularCustomer(), entities, now)
	// 30% of 26
	if sol.Amount < 7.79 || sol.Amount > 7.81 {
		t.Errorf("expected fallback amount 7.8, got %v", sol.Amount)
	}
}

func TestDecide_LateDelivery_RateTiers(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()

	cases := []struct {
		name     string
		lateness float64
		want     float64
	}{
		{"slightly late", 20, 2.6},
		{"moderately late", 45, 5.2},
		{"very late", 70, 7.8},
		{"barely over threshold", 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := deliveredOrder(now, 30*time.Minute, tc.lateness)
			entities := &domain.ExtractedEntities{LatenessMinutes: tc.lateness}

			sol := e.Decide(domain.IntentLateDelivery, order, regularCustomer(), entities, now)
			if sol.Type != domain.SolutionCredit {
				t.Fatalf("expected credit, got %s", sol.Type)
			}
			if sol.Amount < tc.want-0.01 || sol.Amount > tc.want+0.01 {
				t.Errorf("expected %v, got %v", tc.want, sol.Amount)
			}
		})
	}
}

func TestDecide_LateDelivery_FeeCapped(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 70)
	order.TotalAmount = 1000
	entities := &domain.ExtractedEntities{LatenessMinutes: 70}

	sol := e.Decide(domain.IntentLateDelivery, order, regularCustomer(), entities, now)
	if sol.Amount != 200 {
		t.Errorf("expected late fee capped at 200, got %v", sol.Amount)
	}
}

func TestDecide_LateDelivery_ExtremeGetsFullRefund(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 95)
	entities := &domain.ExtractedEntities{LatenessMinutes: 95}

	sol := e.Decide(domain.IntentLateDelivery, order, regularCustomer(), entities, now)
	if sol.Type != domain.SolutionRefund {
		t.Fatalf("expected full refund for extreme lateness, got %s", sol.Type)
	}
	if sol.Amount != order.TotalAmount {
		t.Errorf("expected %v, got %v", order.TotalAmount, sol.Amount)
	}
}

func TestDecide_NilOrder_GoodwillCredit(t *testing.T) {
	e := newSolutionEngine()

	sol := e.Decide(domain.IntentMissingItem, nil, regularCustomer(), &domain.ExtractedEntities{}, time.Now())
	if sol.Type != domain.SolutionCredit {
		t.Fatalf("expected goodwill credit, got %s", sol.Type)
	}
	if sol.Amount != 50 {
		t.Errorf("expected default credit 50, got %v", sol.Amount)
	}
}

func TestDecide_UnknownIssue_CreditsDeliveryFee(t *testing.T) {
	e := newSolutionEngine()
	now := time.Now()
	order := deliveredOrder(now, 30*time.Minute, 0)

	sol := e.Decide(domain.IntentGeneralQuery, order, regularCustomer(), &domain.ExtractedEntities{}, now)
	if sol.Type != domain.SolutionCredit {
		t.Fatalf("expected goodwill credit, got %s", sol.Type)
	}
	if sol.Amount != order.DeliveryFee {
		t.Errorf("expected the delivery fee %v, got %v", order.DeliveryFee, sol.Amount)
	}
}
