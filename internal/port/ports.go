// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/quickplate/support-core-go/internal/domain"
)

// OrderFetcher retrieves order data from the orders platform.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*domain.OrderDetails, error)
	// ListOrders returns the customer's recent orders, newest first.
	ListOrders(ctx context.Context, customerID string) ([]domain.OrderDetails, error)
}

// CustomerFetcher retrieves customer data.
type CustomerFetcher interface {
	GetCustomer(ctx context.Context, customerID string) (*domain.CustomerInfo, error)
}

// IntentClassifier turns a raw user message into an intent, extracted
// entities and a sentiment score. Backed by the NLP service in
// production; the support service falls back to a keyword classifier
// when the call fails.
type IntentClassifier interface {
	Classify(ctx context.Context, customerID, text string) (*domain.ClassifiedMessage, error)
}

// PaymentGateway applies remedies against the payment platform.
// Each call returns an error on failure; the pipeline records the
// failure on the resolution log and keeps going.
type PaymentGateway interface {
	ApplyRefund(ctx context.Context, customerID, orderID string, amount float64) error
	ApplyCredit(ctx context.Context, customerID string, amount float64) error
	ApplyRedelivery(ctx context.Context, customerID, orderID string, items []string) error
}

// SessionStore persists conversation sessions. Implementations must be
// safe for concurrent use across different session ids; serialization
// of operations on one session is the session.Manager's job.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	// Delete evicts the session after it ends. Durable stores may keep
	// the final snapshot and only drop the live entry.
	Delete(ctx context.Context, sessionID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
