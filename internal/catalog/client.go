// Package catalog talks to the external product catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"

	"order-pipeline/internal/model"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrUnavailable = errors.New("product unavailable")
	ErrUpstream    = errors.New("catalog request failed")
)

// productPayload is the catalog's wire shape; pointers tell absent fields apart
// from zero values.
type productPayload struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price"`
	Available *bool    `json:"available"`
}

type Client struct {
	http    *resty.Client
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, timeout: timeout}
}

// GetProduct looks a product up, giving the catalog at most the configured timeout.
// Absent products yield ErrNotFound, unavailable ones ErrUnavailable, and every
// transport or server failure ErrUpstream.
func (c *Client) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	ctx, span := otel.Tracer("order-pipeline/catalog").Start(ctx, "catalog.GetProduct")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("productId", productID).
		Get("/products/{productId}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case !resp.IsSuccess():
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}

	// Decoded here rather than through SetResult so a body resty would skip
	// (non-JSON content type) fails loudly instead of leaving a zero product.
	var payload productPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("%w: undecodable product body: %v", ErrUpstream, err)
	}
	switch {
	case payload.Available == nil:
		return nil, fmt.Errorf("%w: product %s has no availability", ErrUpstream, productID)
	case payload.Price == nil:
		return nil, fmt.Errorf("%w: product %s has no price", ErrUpstream, productID)
	case *payload.Price < 0:
		return nil, fmt.Errorf("%w: negative price for %s", ErrUpstream, productID)
	case !*payload.Available:
		return nil, ErrUnavailable
	}

	p := &model.Product{
		ProductID: payload.ProductID,
		Name:      payload.Name,
		Price:     *payload.Price,
		Available: true,
	}
	if p.ProductID == "" {
		p.ProductID = productID
	}
	return p, nil
}
