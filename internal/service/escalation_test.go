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

func newEscalationEngine() *service.EscalationEngine {
	return service.NewEscalationEngine(
		config.DefaultPolicy().Escalation,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func baseSession() *domain.Session {
	return &domain.Session{
		ID:         "sess-1",
		CustomerID: "cust-1",
		Customer:   *regularCustomer(),
		Status:     domain.SessionActive,
		CreatedAt:  time.Now(),
	}
}

func userMsg(content string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: content, Timestamp: time.Now()}
}

func TestShouldAutoEscalate_ProPlus(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Customer.MembershipTier = domain.TierProPlus

	if !e.ShouldAutoEscalate(s) {
		t.Fatal("expected auto-escalation for PRO_PLUS customer")
	}
}

func TestShouldAutoEscalate_Frustration(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Messages = []domain.Message{
		userMsg("this is ridiculous"),
		{Role: domain.RoleAssistant, Content: "I'm sorry about that.", Timestamp: time.Now()},
	}

	if e.ShouldAutoEscalate(s) {
		t.Fatal("one frustrated message should not escalate")
	}

	s.Messages = append(s.Messages, userMsg("completely unacceptable, I want to talk to a manager"))
	if !e.ShouldAutoEscalate(s) {
		t.Fatal("expected auto-escalation after two frustrated messages")
	}
}

func TestShouldAutoEscalate_NegativeSentimentStreak(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()

	scored := func(content string, sentiment float64) domain.Message {
		return domain.Message{Role: domain.RoleUser, Content: content, Sentiment: sentiment, Timestamp: time.Now()}
	}

	// Neutral wording, so only the sentiment score can trigger.
	s.Messages = []domain.Message{
		scored("my food arrived cold", -0.8),
		scored("the last order had the same problem", -0.6),
	}
	if e.ShouldAutoEscalate(s) {
		t.Fatal("two negative messages should not escalate")
	}

	s.Messages = append(s.Messages, scored("I am not happy with this at all", -0.5))
	if !e.ShouldAutoEscalate(s) {
		t.Fatal("expected auto-escalation after three negative messages")
	}
}

func TestShouldAutoEscalate_PositiveSentimentDoesNotCount(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Messages = []domain.Message{
		{Role: domain.RoleUser, Content: "thanks for the quick help", Sentiment: 0.7, Timestamp: time.Now()},
		{Role: domain.RoleUser, Content: "all good now", Sentiment: 0.9, Timestamp: time.Now()},
		{Role: domain.RoleUser, Content: "great service", Sentiment: 0.8, Timestamp: time.Now()},
	}

	if e.ShouldAutoEscalate(s) {
		t.Fatal("positive messages must not count towards the sentiment streak")
	}
}

func TestShouldAutoEscalate_AssistantMessagesDoNotCount(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Messages = []domain.Message{
		{Role: domain.RoleAssistant, Content: "that would be unacceptable", Timestamp: time.Now()},
		{Role: domain.RoleAssistant, Content: "ridiculous indeed", Timestamp: time.Now()},
	}

	if e.ShouldAutoEscalate(s) {
		t.Fatal("assistant messages must not count towards frustration")
	}
}

func TestShouldAutoEscalate_HighValueOrder(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Orders = []domain.OrderDetails{{ID: "order-1", TotalAmount: 1500}}

	if !e.ShouldAutoEscalate(s) {
		t.Fatal("expected auto-escalation for high-value order")
	}
}

func TestShouldAutoEscalate_RepeatedResolutions(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Resolutions = []domain.Resolution{
		{ID: "r1", Type: domain.SolutionRefund},
		{ID: "r2", Type: domain.SolutionCredit},
	}

	if !e.ShouldAutoEscalate(s) {
		t.Fatal("expected auto-escalation after two resolutions")
	}
}

func TestShouldAutoEscalate_QuietSession(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Messages = []domain.Message{userMsg("where is my order?")}
	s.Orders = []domain.OrderDetails{{ID: "order-1", TotalAmount: 30}}

	if e.ShouldAutoEscalate(s) {
		t.Fatal("expected no escalation for a quiet session")
	}
}

func TestDeterminePriority(t *testing.T) {
	e := newEscalationEngine()

	cases := []struct {
		name  string
		setup func(*domain.Session)
		want  domain.EscalationPriority
	}{
		{"premium customer", func(s *domain.Session) {
			s.Customer.MembershipTier = domain.TierPro
		}, domain.PriorityHigh},
		{"long conversation", func(s *domain.Session) {
			for i := 0; i < 11; i++ {
				s.Messages = append(s.Messages, userMsg("hello"))
			}
		}, domain.PriorityHigh},
		{"high-value order", func(s *domain.Session) {
			s.Orders = []domain.OrderDetails{{ID: "order-1", TotalAmount: 2000}}
		}, domain.PriorityHigh},
		{"frequent complainer", func(s *domain.Session) {
			s.Customer.ComplaintFrequency = 4
		}, domain.PriorityHigh},
		{"default", func(s *domain.Session) {}, domain.PriorityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := baseSession()
			tc.setup(s)
			if got := e.DeterminePriority(s); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	e := newEscalationEngine()
	s := baseSession()
	s.Customer.MembershipTier = domain.TierProPlus

	decision := e.Evaluate(s)
	if !decision.AutoEscalate {
		t.Error("expected auto-escalate")
	}
	if decision.Priority != domain.PriorityHigh {
		t.Errorf("expected HIGH priority, got %s", decision.Priority)
	}
}
