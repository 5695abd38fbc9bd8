package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

// CustomersClient fetches customer records from the customers API.
type CustomersClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewCustomersClient creates a new CustomersClient.
func NewCustomersClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *CustomersClient {
	return &CustomersClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetCustomer fetches a customer by id.
func (c *CustomersClient) GetCustomer(ctx context.Context, customerID string) (*domain.CustomerInfo, error) {
	ctx, span := tracer.Start(ctx, "CustomersClient.GetCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var customer domain.CustomerInfo

	err := resilience.Execute(ctx, c.cb, c.cfg, func() error {
		url := fmt.Sprintf("%s/v1/customers/%s", c.baseURL, customerID)
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
			return &domain.ErrNotFound{Resource: "customer", ID: customerID}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("customers API returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&customer)
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "customers", Err: err}
	}

	return &customer, nil
}
