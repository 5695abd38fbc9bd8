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

// ClassifierClient calls the NLP service to classify a user message
// into an intent, extracted entities and a sentiment score.
type ClassifierClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bh         *resilience.Bulkhead
}

// NewClassifierClient creates a new ClassifierClient. Concurrent
// classification calls are capped by the bulkhead so a slow NLP
// service cannot pile up goroutines here.
func NewClassifierClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ClassifierClient {
	return &ClassifierClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		bh:         resilience.NewBulkhead(cfg.MaxConcurrency),
	}
}

type classifyRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
	Text       string `json:"text"`
}

// Classify sends the message text to POST /v1/classify.
func (c *ClassifierClient) Classify(ctx context.Context, customerID, text string) (*domain.ClassifiedMessage, error) {
	ctx, span := tracer.Start(ctx, "ClassifierClient.Classify")
	defer span.End()
	span.SetAttributes(
		attribute.String("customer.id", customerID),
		attribute.Int("text.length", len(text)),
	)

	var result domain.ClassifiedMessage

	if err := c.bh.Acquire(ctx); err != nil {
		return nil, &domain.ErrExternalService{Service: "nlp", Err: err}
	}
	defer c.bh.Release()

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		body, err := json.Marshal(classifyRequest{CustomerID: customerID, Text: text})
		if err != nil {
			return err
		}

		url := fmt.Sprintf("%s/v1/classify", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("NLP API returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "nlp", Err: err}
	}

	return &result, nil
}
