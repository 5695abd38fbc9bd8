package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// PaymentsClient applies remedies through the payments platform.
// No settlement happens here; the platform owns the money movement.
type PaymentsClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewPaymentsClient creates a new PaymentsClient.
func NewPaymentsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *PaymentsClient {
	return &PaymentsClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// ApplyRefund requests a refund against an order.
func (c *PaymentsClient) ApplyRefund(ctx context.Context, customerID, orderID string, amount float64) error {
	return c.post(ctx, "PaymentsClient.ApplyRefund", "/v1/refunds", map[string]any{
		"customer_id": customerID,
		"order_id":    orderID,
		"amount":      amount,
	})
}

// ApplyCredit adds account credit for the customer.
func (c *PaymentsClient) ApplyCredit(ctx context.Context, customerID string, amount float64) error {
	return c.post(ctx, "PaymentsClient.ApplyCredit", "/v1/credits", map[string]any{
		"customer_id": customerID,
		"amount":      amount,
	})
}

// ApplyRedelivery schedules a replacement delivery.
func (c *PaymentsClient) ApplyRedelivery(ctx context.Context, customerID, orderID string, items []string) error {
	return c.post(ctx, "PaymentsClient.ApplyRedelivery", "/v1/redeliveries", map[string]any{
		"customer_id": customerID,
		"order_id":    orderID,
		"items":       items,
	})
}

func (c *PaymentsClient) post(ctx context.Context, spanName, path string, payload map[string]any) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("payments.path", path))

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("payments API returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "payments", Err: err}
	}
	return nil
}
