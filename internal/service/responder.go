package service

import (
	"fmt"
	"strings"

	"github.com/quickplate/support-core-go/internal/domain"
)

// Responder renders decisions into the user-facing reply. Pure string
// formatting — the numbers and verdicts are already decided by the
// engines; nothing here branches on policy.
type Responder struct{}

// NewResponder creates a Responder.
func NewResponder() *Responder {
	return &Responder{}
}

// Welcome is the first assistant message of a session.
func (r *Responder) Welcome(customer domain.CustomerInfo, orderCount int) string {
	name := strings.TrimSpace(customer.Name)
	if name == "" {
		name = "there"
	}
	if orderCount == 1 {
		return fmt.Sprintf("Hi %s! I can see your recent order. How can I help you today?", name)
	}
	return fmt.Sprintf("Hi %s! I can see your %d recent orders. How can I help you today?", name, orderCount)
}

// Rejection explains why a claim was not accepted.
func (r *Responder) Rejection(result domain.VerificationResult) string {
	return fmt.Sprintf("I'm sorry, I wasn't able to verify this issue: %s. If you think this is a mistake, I can connect you with our support team.", result.Reason)
}

// SolutionApplied confirms the remedy. applied=false means the payment
// platform rejected it and a human will follow up.
func (r *Responder) SolutionApplied(sol domain.Solution, order *domain.OrderDetails, applied bool) string {
	if !applied {
		return "I've registered the issue, but applying the compensation failed on our side. Our team will follow up and make this right."
	}

	switch sol.Type {
	case domain.SolutionRefund:
		return fmt.Sprintf("I'm sorry about that! I've issued a refund of %.2f for order %s. It should reach your account within 3-5 business days.", sol.Amount, order.ID)
	case domain.SolutionRedelivery:
		return fmt.Sprintf("I'm sorry about that! We're sending a replacement from %s right away — it should arrive in about %d minutes.", order.RestaurantName, sol.EstimatedDeliveryMinutes)
	case domain.SolutionCredit:
		if sol.BonusAmount > 0 {
			return fmt.Sprintf("I'm sorry about that! I've added %.2f in credit to your account, including a %.2f bonus for being a valued member.", sol.Amount, sol.BonusAmount)
		}
		return fmt.Sprintf("I'm sorry about that! I've added %.2f in credit to your account as compensation.", sol.Amount)
	default:
		return "I've registered the issue and applied compensation to your account."
	}
}

// RefundRejection explains a failed standalone refund check.
func (r *Responder) RefundRejection(elig domain.RefundEligibility) string {
	return fmt.Sprintf("I'm sorry, this order isn't eligible for a refund: %s.", elig.Reason)
}

// Escalated tells the user a human is on the way.
func (r *Responder) Escalated(priority domain.EscalationPriority) string {
	if priority == domain.PriorityHigh {
		return "I've escalated this conversation to our support team with high priority. An agent will join shortly — you can keep chatting with me in the meantime."
	}
	return "I've escalated this conversation to our support team. An agent will review it soon — you can keep chatting with me in the meantime."
}

// OrderStatus summarises where the order stands.
func (r *Responder) OrderStatus(order *domain.OrderDetails) string {
	if order == nil {
		return "I couldn't find an order to check. Could you tell me the order number?"
	}
	if order.DeliveredAt != nil {
		return fmt.Sprintf("Order %s from %s was delivered at %s.", order.ID, order.RestaurantName, order.DeliveredAt.Format("15:04"))
	}
	return fmt.Sprintf("Order %s from %s is on its way — estimated delivery at %s.", order.ID, order.RestaurantName, order.EstimatedDeliveryTime.Format("15:04"))
}

// General is the reply for anything outside the complaint flows.
func (r *Responder) General() string {
	return "I can help with order problems, refunds and delivery questions. What happened with your order?"
}

// NoOrder is used when a complaint can't be tied to any order.
func (r *Responder) NoOrder() string {
	return "I couldn't match that to any of your recent orders. Could you tell me the order number?"
}
