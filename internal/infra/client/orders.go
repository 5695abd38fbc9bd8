// Package client contains the HTTP adapters for the platform services
// this core depends on: orders, customers, NLP classification, payments.
// Every call goes through the shared circuit breaker and retry policy.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/client")

// OrdersClient fetches order details from the orders API.
type OrdersClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewOrdersClient creates a new OrdersClient.
func NewOrdersClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *OrdersClient {
	return &OrdersClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetOrder fetches a single order by id.
func (c *OrdersClient) GetOrder(ctx context.Context, orderID string) (*domain.OrderDetails, error) {
	ctx, span := tracer.Start(ctx, "OrdersClient.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var order domain.OrderDetails

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		url := fmt.Sprintf("%s/v1/orders/%s", c.baseURL, orderID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return &domain.ErrNotFound{Resource: "order", ID: orderID}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("orders API returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&order)
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "orders", Err: err}
	}

	return &order, nil
}

// ListOrders fetches the customer's recent orders, newest first.
func (c *OrdersClient) ListOrders(ctx context.Context, customerID string) ([]domain.OrderDetails, error) {
	ctx, span := tracer.Start(ctx, "OrdersClient.ListOrders")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var orders []domain.OrderDetails

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		url := fmt.Sprintf("%s/v1/customers/%s/orders", c.baseURL, customerID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("orders API returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&orders)
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "orders", Err: err}
	}

	return orders, nil
}
