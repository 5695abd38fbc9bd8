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

func newVerificationEngine() *service.VerificationEngine {
	return service.NewVerificationEngine(
		config.DefaultPolicy().Verification,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

// deliveredOrder returns an order delivered `ago` before now, with the
// given lateness relative to its estimate.
func deliveredOrder(now time.Time, ago time.Duration, latenessMin float64) *domain.OrderDetails {
	delivered := now.Add(-ago)
	return &domain.OrderDetails{
		ID:                    "order-1",
		RestaurantName:        "Thai Garden",
		Items:                 []domain.OrderItem{{Name: "Pad Thai", UnitPrice: 14, Quantity: 1}, {Name: "Spring Rolls", UnitPrice: 6, Quantity: 2}},
		TotalAmount:           26,
		DeliveryFee:           4,
		OrderedAt:             delivered.Add(-90 * time.Minute),
		EstimatedDeliveryTime: delivered.Add(-time.Duration(latenessMin * float64(time.Minute))),
		DeliveredAt:           &delivered,
		RestaurantCloseTime:   now.Add(2 * time.Hour),
	}
}

func regularCustomer() *domain.CustomerInfo {
	return &domain.CustomerInfo{ID: "cust-1", Name: "Dana", MembershipTier: domain.TierRegular, FraudRiskScore: 0.1}
}

func TestVerify_ProblemFlagShortCircuits(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	order := deliveredOrder(now, 5*time.Hour, 0)
	order.ProblemFlag = true

	result := e.Verify(domain.IntentWrongOrder, order, &domain.ExtractedEntities{}, regularCustomer(), now)
	if !result.Verified {
		t.Fatalf("expected verified for flagged order, got %+v", result)
	}
}

func TestVerify_PremiumShortCircuits(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	order := deliveredOrder(now, 5*time.Hour, 0)
	customer := regularCustomer()
	customer.MembershipTier = domain.TierPro

	result := e.Verify(domain.IntentWrongOrder, order, &domain.ExtractedEntities{}, customer, now)
	if !result.Verified {
		t.Fatalf("expected verified for premium customer, got %+v", result)
	}
}

func TestVerify_WrongOrder_Accepted(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentWrongOrder, deliveredOrder(now, 20*time.Minute, 0), &domain.ExtractedEntities{}, regularCustomer(), now)
	if !result.Verified {
		t.Fatalf("expected verified, got reason %q", result.Reason)
	}
}

func TestVerify_WrongOrder_TooLate(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentWrongOrder, deliveredOrder(now, 2*time.Hour, 0), &domain.ExtractedEntities{}, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection for report 2h after delivery")
	}
	if result.Reason != "too long after delivery" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_WrongOrder_NotDelivered(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	order := deliveredOrder(now, 20*time.Minute, 0)
	order.DeliveredAt = nil

	result := e.Verify(domain.IntentWrongOrder, order, &domain.ExtractedEntities{}, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection for undelivered order")
	}
}

func TestVerify_WrongOrder_RiskExceeded(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	customer := regularCustomer()
	customer.FraudRiskScore = 0.9

	result := e.Verify(domain.IntentWrongOrder, deliveredOrder(now, 20*time.Minute, 0), &domain.ExtractedEntities{}, customer, now)
	if result.Verified {
		t.Fatal("expected rejection above fraud risk threshold")
	}
	if result.Reason != "risk score exceeds threshold" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_MissingItem_ImplausibleClaim(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	entities := &domain.ExtractedEntities{MissingItems: []string{"sushi"}}

	result := e.Verify(domain.IntentMissingItem, deliveredOrder(now, 20*time.Minute, 0), entities, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection: claimed item not in order")
	}
	if result.Reason != "claimed items not in order" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_MissingItem_KeepsOnlyPlausibleItems(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	entities := &domain.ExtractedEntities{MissingItems: []string{"spring rolls", "sushi"}}

	result := e.Verify(domain.IntentMissingItem, deliveredOrder(now, 20*time.Minute, 0), entities, regularCustomer(), now)
	if !result.Verified {
		t.Fatalf("expected verified, got reason %q", result.Reason)
	}
	if len(result.ValidMissingItems) != 1 || result.ValidMissingItems[0] != "spring rolls" {
		t.Errorf("expected only the plausible item, got %v", result.ValidMissingItems)
	}
}

func TestVerify_LateDelivery_OnTime(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentLateDelivery, deliveredOrder(now, 20*time.Minute, -5), &domain.ExtractedEntities{}, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection for on-time delivery")
	}
	if result.Reason != "on time or early" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_LateDelivery_BelowThreshold(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentLateDelivery, deliveredOrder(now, 20*time.Minute, 7), &domain.ExtractedEntities{}, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection for 7 minutes of lateness")
	}
	if result.Reason != "only 7 minutes late, within the acceptable delay" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_LateDelivery_ExactlyAtThreshold(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	// 10 minutes is still within the acceptable delay, not beyond it.
	result := e.Verify(domain.IntentLateDelivery, deliveredOrder(now, 20*time.Minute, 10), &domain.ExtractedEntities{}, regularCustomer(), now)
	if result.Verified {
		t.Fatal("expected rejection for exactly 10 minutes of lateness")
	}
	if result.Reason != "only 10 minutes late, within the acceptable delay" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_LateDelivery_Accepted(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentLateDelivery, deliveredOrder(now, 20*time.Minute, 25), &domain.ExtractedEntities{}, regularCustomer(), now)
	if !result.Verified {
		t.Fatalf("expected verified, got reason %q", result.Reason)
	}
	if result.LatenessMinutes < 24.9 || result.LatenessMinutes > 25.1 {
		t.Errorf("expected lateness ~25, got %v", result.LatenessMinutes)
	}
}

func TestVerify_NilOrder_FailsOpen(t *testing.T) {
	e := newVerificationEngine()

	result := e.Verify(domain.IntentWrongOrder, nil, &domain.ExtractedEntities{}, regularCustomer(), time.Now())
	if !result.Verified {
		t.Fatal("expected fail-open verification for missing order data")
	}
	if result.Reason != "verification error, benefit of doubt" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestVerify_UnknownIssue_FailsOpen(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	result := e.Verify(domain.IntentGeneralQuery, deliveredOrder(now, 20*time.Minute, 0), &domain.ExtractedEntities{}, regularCustomer(), now)
	if !result.Verified {
		t.Fatal("expected fail-open verification for unhandled issue type")
	}
}

func TestCheckRefundEligibility_AlreadyRefunded(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	order := deliveredOrder(now, time.Hour, 0)
	order.Refunded = true

	elig := e.CheckRefundEligibility(order, regularCustomer(), now)
	if elig.Eligible {
		t.Fatal("expected ineligible for already refunded order")
	}
}

func TestCheckRefundEligibility_WindowExpired(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()
	order := deliveredOrder(now, time.Hour, 0)
	order.OrderedAt = now.Add(-8 * 24 * time.Hour)

	elig := e.CheckRefundEligibility(order, regularCustomer(), now)
	if elig.Eligible {
		t.Fatal("expected ineligible after the refund window")
	}
}

func TestCheckRefundEligibility_Percentages(t *testing.T) {
	e := newVerificationEngine()
	now := time.Now()

	cases := []struct {
		name    string
		age     time.Duration
		premium bool
		want    float64
	}{
		{"same day", 2 * time.Hour, false, 1.0},
		{"two days", 2 * 24 * time.Hour, false, 0.75},
		{"four days", 4 * 24 * time.Hour, false, 0.5},
		{"four days premium", 4 * 24 * time.Hour, true, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := deliveredOrder(now, time.Hour, 0)
			order.OrderedAt = now.Add(-tc.age)
			customer := regularCustomer()
			if tc.premium {
				customer.MembershipTier = domain.TierProPlus
			}

			elig := e.CheckRefundEligibility(order, customer, now)
			if !elig.Eligible {
				t.Fatalf("expected eligible, got reason %q", elig.Reason)
			}
			if elig.Percentage != tc.want {
				t.Errorf("expected percentage %v, got %v", tc.want, elig.Percentage)
			}
		})
	}
}
