package service

import (
	"context"
	"fmt"
	"time"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/observability"
	"github.com/quickplate/support-core-go/internal/port"
	"github.com/quickplate/support-core-go/internal/session"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SupportService orchestrates the complaint pipeline: classification,
// verification, remedy decision, escalation, and the session logs.
//
// Collaborator failures degrade instead of aborting: a dead customers
// API yields a placeholder profile, a dead NLP service falls back to
// keyword classification, a dead payments API records an unsuccessful
// resolution. Only unknown session ids surface as errors.
type SupportService struct {
	sessions   *session.Manager
	orders     port.OrderFetcher
	customers  port.CustomerFetcher
	classifier port.IntentClassifier
	fallback   port.IntentClassifier
	payments   port.PaymentGateway

	verification *VerificationEngine
	solutions    *SolutionDecisionEngine
	escalation   *EscalationEngine
	responder    *Responder

	customerCache port.Cache[*domain.CustomerInfo]
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewSupportService creates the service with all dependencies injected.
func NewSupportService(
	sessions *session.Manager,
	orders port.OrderFetcher,
	customers port.CustomerFetcher,
	classifier port.IntentClassifier,
	payments port.PaymentGateway,
	verification *VerificationEngine,
	solutions *SolutionDecisionEngine,
	escalation *EscalationEngine,
	customerCache port.Cache[*domain.CustomerInfo],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SupportService {
	return &SupportService{
		sessions:      sessions,
		orders:        orders,
		customers:     customers,
		classifier:    classifier,
		fallback:      NewKeywordClassifier(),
		payments:      payments,
		verification:  verification,
		solutions:     solutions,
		escalation:    escalation,
		responder:     NewResponder(),
		customerCache: customerCache,
		metrics:       metrics,
		logger:        logger,
	}
}

// StartSessionResult is what StartSession hands back to the transport.
type StartSessionResult struct {
	Session *domain.Session
	Welcome string
}

// StartSession builds a new session from the customer and order
// collaborators. Fetches run concurrently; failures degrade to
// placeholder records so the conversation can still start.
func (s *SupportService) StartSession(ctx context.Context, customerID string, orderIDs []string) (*StartSessionResult, error) {
	ctx, span := tracer.Start(ctx, "SupportService.StartSession")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("start_session", time.Since(start))
	}()

	var (
		customer *domain.CustomerInfo
		orders   []domain.OrderDetails
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		customer = s.fetchCustomer(gCtx, customerID)
		return nil
	})
	if len(orderIDs) == 0 {
		// No orders named: pull the customer's recent orders so the
		// conversation has context to work with.
		g.Go(func() error {
			listed, err := s.orders.ListOrders(gCtx, customerID)
			if err != nil {
				s.metrics.IncrExternalError("orders")
				s.logger.Warn("order listing failed, starting without orders",
					zap.String("customer_id", customerID),
					zap.Error(err))
				return nil
			}
			orders = listed
			return nil
		})
	} else {
		orders = make([]domain.OrderDetails, len(orderIDs))
		for i, orderID := range orderIDs {
			i, orderID := i, orderID
			g.Go(func() error {
				orders[i] = s.fetchOrder(gCtx, orderID)
				return nil
			})
		}
	}
	// The goroutines never return errors; degradation happens inside.
	_ = g.Wait()

	sess, err := s.sessions.Start(ctx, *customer, orders, time.Now())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	welcome := s.responder.Welcome(*customer, len(orders))
	sess, err = s.sessions.Update(ctx, sess.ID, func(stored *domain.Session) error {
		return stored.AppendMessage(domain.RoleAssistant, welcome, stored.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.metrics.IncrSession("started")
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("customer_id", customerID),
		zap.Int("orders", len(orders)),
	)
	return &StartSessionResult{Session: sess, Welcome: welcome}, nil
}

// PostMessageResult is the reply for one user turn.
type PostMessageResult struct {
	Response  string
	Escalated bool
	Priority  domain.EscalationPriority
}

// PostMessage runs the full pipeline for one inbound message.
// Fails with ErrNotFound for unknown sessions and ErrSessionEnded for
// ended ones; everything else resolves to a usable reply.
func (s *SupportService) PostMessage(ctx context.Context, sessionID, text string) (*PostMessageResult, error) {
	ctx, span := tracer.Start(ctx, "SupportService.PostMessage")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("post_message", time.Since(start))
	}()

	classified := s.classify(ctx, sessionID, text)

	// One clock reading drives every time comparison in this decision.
	now := time.Now()

	result := &PostMessageResult{}
	_, err := s.sessions.Update(ctx, sessionID, func(sess *domain.Session) error {
		if err := sess.AppendUserMessage(text, classified.Sentiment, now); err != nil {
			return err
		}

		response := s.handleIntent(ctx, sess, classified, now)

		// Auto-escalation is re-evaluated on every turn, against the
		// state including this message.
		if !sess.Escalated && s.escalation.ShouldAutoEscalate(sess) {
			if err := sess.Escalate(); err == nil {
				priority := s.escalation.DeterminePriority(sess)
				s.metrics.IncrEscalation(string(priority))
				s.logger.Info("session auto-escalated",
					zap.String("session_id", sess.ID),
					zap.String("priority", string(priority)),
				)
				response += " " + s.responder.Escalated(priority)
				result.Priority = priority
			}
		}

		if err := sess.AppendMessage(domain.RoleAssistant, response, now); err != nil {
			return err
		}

		result.Response = response
		result.Escalated = sess.Escalated
		if result.Escalated && result.Priority == "" {
			result.Priority = s.escalation.DeterminePriority(sess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// handleIntent dispatches one classified message and returns the reply.
func (s *SupportService) handleIntent(ctx context.Context, sess *domain.Session, msg *domain.ClassifiedMessage, now time.Time) string {
	switch msg.Intent.Type {
	case domain.IntentEscalationRequest:
		_ = sess.Escalate()
		priority := s.escalation.DeterminePriority(sess)
		s.metrics.IncrEscalation(string(priority))
		return s.responder.Escalated(priority)

	case domain.IntentOrderStatus:
		return s.responder.OrderStatus(s.targetOrder(sess, &msg.Entities))

	case domain.IntentRefundRequest:
		return s.handleRefundRequest(ctx, sess, &msg.Entities, now)

	case domain.IntentWrongOrder, domain.IntentMissingItem, domain.IntentLateDelivery:
		return s.handleComplaint(ctx, sess, msg.Intent.Type, &msg.Entities, now)

	default:
		return s.responder.General()
	}
}

// handleComplaint is the verify→decide→apply→record path.
func (s *SupportService) handleComplaint(ctx context.Context, sess *domain.Session, issue domain.IntentType, entities *domain.ExtractedEntities, now time.Time) string {
	order := s.targetOrder(sess, entities)
	if order == nil {
		return s.responder.NoOrder()
	}

	vr := s.verification.Verify(issue, order, entities, &sess.Customer, now)
	if !vr.Verified {
		s.logger.Info("claim rejected",
			zap.String("session_id", sess.ID),
			zap.String("issue", string(issue)),
			zap.String("reason", vr.Reason),
		)
		return s.responder.Rejection(vr)
	}

	// Feed the verifier's derived facts into the decision.
	entities.LatenessMinutes = vr.LatenessMinutes
	if len(vr.ValidMissingItems) > 0 {
		entities.MissingItems = vr.ValidMissingItems
	}

	sol := s.solutions.Decide(issue, order, &sess.Customer, entities, now)
	applied := s.applySolution(ctx, sess, order, sol, entities)

	if err := sess.AppendResolution(domain.Resolution{
		ID:        uuid.NewString(),
		Type:      sol.Type,
		OrderID:   order.ID,
		Amount:    sol.Amount,
		Timestamp: now,
		Success:   applied,
	}); err != nil {
		return s.responder.SolutionApplied(sol, order, applied)
	}

	if applied && sol.Type == domain.SolutionRefund {
		order.Refunded = true
	}

	s.logger.Info("solution decided",
		zap.String("session_id", sess.ID),
		zap.String("issue", string(issue)),
		zap.String("solution", string(sol.Type)),
		zap.Float64("amount", sol.Amount),
		zap.Bool("applied", applied),
	)
	return s.responder.SolutionApplied(sol, order, applied)
}

// handleRefundRequest runs the standalone refund eligibility check.
func (s *SupportService) handleRefundRequest(ctx context.Context, sess *domain.Session, entities *domain.ExtractedEntities, now time.Time) string {
	order := s.targetOrder(sess, entities)
	if order == nil {
		return s.responder.NoOrder()
	}

	elig := s.verification.CheckRefundEligibility(order, &sess.Customer, now)
	if !elig.Eligible {
		return s.responder.RefundRejection(elig)
	}

	sol := domain.Solution{
		Type:   domain.SolutionRefund,
		Amount: order.TotalAmount * elig.Percentage,
		Reason: "refund on request",
	}
	applied := s.applySolution(ctx, sess, order, sol, entities)

	_ = sess.AppendResolution(domain.Resolution{
		ID:        uuid.NewString(),
		Type:      sol.Type,
		OrderID:   order.ID,
		Amount:    sol.Amount,
		Timestamp: now,
		Success:   applied,
	})
	if applied {
		order.Refunded = true
	}
	s.metrics.IncrSolution(string(sol.Type))
	return s.responder.SolutionApplied(sol, order, applied)
}

// applySolution pushes the remedy to the payments platform. A gateway
// failure is logged and reported as applied=false; it never stops the
// conversation.
func (s *SupportService) applySolution(ctx context.Context, sess *domain.Session, order *domain.OrderDetails, sol domain.Solution, entities *domain.ExtractedEntities) bool {
	var err error
	switch sol.Type {
	case domain.SolutionRefund:
		err = s.payments.ApplyRefund(ctx, sess.CustomerID, order.ID, sol.Amount)
	case domain.SolutionCredit:
		err = s.payments.ApplyCredit(ctx, sess.CustomerID, sol.Amount)
	case domain.SolutionRedelivery:
		items := entities.MissingItems
		if len(items) == 0 {
			items = entities.WrongItems
		}
		err = s.payments.ApplyRedelivery(ctx, sess.CustomerID, order.ID, items)
	}
	if err != nil {
		s.metrics.IncrExternalError("payments")
		s.logger.Error("failed to apply solution",
			zap.String("session_id", sess.ID),
			zap.String("solution", string(sol.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Escalate handles an explicit escalation request from the transport.
func (s *SupportService) Escalate(ctx context.Context, sessionID string) (*PostMessageResult, error) {
	ctx, span := tracer.Start(ctx, "SupportService.Escalate")
	defer span.End()

	sess, err := s.sessions.Escalate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	priority := s.escalation.DeterminePriority(sess)
	s.metrics.IncrEscalation(string(priority))
	return &PostMessageResult{
		Response:  s.responder.Escalated(priority),
		Escalated: true,
		Priority:  priority,
	}, nil
}

// GetSession returns the transcript view.
func (s *SupportService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// EndSession is the terminal transition.
func (s *SupportService) EndSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "SupportService.EndSession")
	defer span.End()

	if err := s.sessions.End(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.IncrSession("ended")
	s.logger.Info("session ended", zap.String("session_id", sessionID))
	return nil
}

// ============================================================
// Collaborator access with degradation
// ============================================================

// classify asks the NLP service, falling back to keywords on failure.
func (s *SupportService) classify(ctx context.Context, sessionID, text string) *domain.ClassifiedMessage {
	classified, err := s.classifier.Classify(ctx, sessionID, text)
	if err == nil {
		return classified
	}

	s.metrics.IncrExternalError("nlp")
	s.metrics.IncrFallback("classification")
	s.logger.Warn("NLP classification failed, using keyword fallback",
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	classified, _ = s.fallback.Classify(ctx, sessionID, text)
	return classified
}

// fetchCustomer returns the cached or fetched customer, degrading to a
// minimal placeholder on failure.
func (s *SupportService) fetchCustomer(ctx context.Context, customerID string) *domain.CustomerInfo {
	cacheKey := fmt.Sprintf("customer:%s", customerID)
	if cached, ok := s.customerCache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("customer")
		return cached
	}
	s.metrics.IncrCacheMiss("customer")

	customer, err := s.customers.GetCustomer(ctx, customerID)
	if err != nil {
		s.metrics.IncrExternalError("customers")
		s.logger.Warn("customer fetch failed, using placeholder",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return &domain.CustomerInfo{ID: customerID, MembershipTier: domain.TierRegular}
	}
	s.customerCache.Set(cacheKey, customer)
	return customer
}

// fetchOrder degrades to a placeholder order on failure.
func (s *SupportService) fetchOrder(ctx context.Context, orderID string) domain.OrderDetails {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		s.metrics.IncrExternalError("orders")
		s.logger.Warn("order fetch failed, using placeholder",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return domain.OrderDetails{ID: orderID}
	}
	return *order
}

// targetOrder resolves which order the message is about: an explicit
// order id that belongs to the session, else the most recent order.
func (s *SupportService) targetOrder(sess *domain.Session, entities *domain.ExtractedEntities) *domain.OrderDetails {
	if entities.OrderID != "" {
		if order := sess.OrderByID(entities.OrderID); order != nil {
			return order
		}
	}
	return sess.MostRecentOrder()
}
