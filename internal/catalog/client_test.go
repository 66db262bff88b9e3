package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 200*time.Millisecond)
}

func TestGetProductSuccess(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/p1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product_id":"p1","name":"Milk","price":50,"available":true,"category":"Dairy"}`))
	})

	p, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ProductID)
	assert.Equal(t, "Milk", p.Name)
	assert.InDelta(t, 50.0, p.Price, 1e-9)
}

func TestGetProductNotFound(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
	})

	_, err := c.GetProduct(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetProductUnavailable(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product_id":"p2","name":"Bread","price":35,"available":false}`))
	})

	_, err := c.GetProduct(context.Background(), "p2")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGetProductServerError(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetProduct(context.Background(), "p1")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestGetProductTimeout(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	start := time.Now()
	_, err := c.GetProduct(context.Background(), "p1")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGetProductUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := c.GetProduct(context.Background(), "p1")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestGetProductMalformedBodies(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"html gateway page", "text/html", `<html>gateway</html>`},
		{"missing availability", "application/json", `{"product_id":"p1","name":"Milk","price":50}`},
		{"missing price", "application/json", `{"product_id":"p1","name":"Milk","available":true}`},
		{"empty body", "application/json", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.GetProduct(context.Background(), "p1")
			require.ErrorIs(t, err, ErrUpstream)
			assert.NotErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestGetProductIgnoresContentType(t *testing.T) {
	c := newCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"product_id":"p1","name":"Milk","price":50,"available":true}`))
	})

	p, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)
	assert.True(t, p.Available)
}
