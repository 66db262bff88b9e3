package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"order-pipeline/internal/catalog"
	"order-pipeline/internal/model"
)

const namespace = "order_pipeline"

// Collectors groups every metric the service exports. A nil *Collectors is valid
// and records nothing.
type Collectors struct {
	Requests       *prometheus.CounterVec
	LatencyMS      *prometheus.HistogramVec
	CatalogLookups *prometheus.CounterVec
	CartLines      prometheus.Counter
	OrdersPlaced   prometheus.Counter
	OrderValue     prometheus.Histogram
	CartClearFails prometheus.Counter
	StagesReached  *prometheus.CounterVec
	AdvanceRetries prometheus.Counter
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		CatalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "Product catalog lookups by outcome.",
		}, []string{"result"}),
		CartLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_lines_added_total",
			Help:      "Cart lines appended.",
		}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders created at checkout.",
		}),
		OrderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total",
			Help:      "Order totals at checkout.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 5000},
		}),
		CartClearFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_clear_failures_total",
			Help:      "Checkouts whose order committed but whose cart could not be cleared.",
		}),
		StagesReached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_stage_reached_total",
			Help:      "Tracking records entering each delivery stage.",
		}, []string{"stage"}),
		AdvanceRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_advance_retries_total",
			Help:      "Advance attempts that lost a compare-and-set to a concurrent advance.",
		}),
	}

	reg.MustRegister(
		c.Requests, c.LatencyMS, c.CatalogLookups, c.CartLines, c.OrdersPlaced,
		c.OrderValue, c.CartClearFails, c.StagesReached, c.AdvanceRetries,
	)
	return c
}

func (c *Collectors) ObserveRequest(handler string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	c.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (c *Collectors) ObserveCatalogLookup(err error) {
	if c == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		result = "not_found"
	case errors.Is(err, catalog.ErrUnavailable):
		result = "unavailable"
	default:
		result = "error"
	}
	c.CatalogLookups.WithLabelValues(result).Inc()
}

func (c *Collectors) CartLineAdded() {
	if c == nil {
		return
	}
	c.CartLines.Inc()
}

func (c *Collectors) OrderPlaced(total float64) {
	if c == nil {
		return
	}
	c.OrdersPlaced.Inc()
	c.OrderValue.Observe(total)
}

func (c *Collectors) CartClearFailed() {
	if c == nil {
		return
	}
	c.CartClearFails.Inc()
}

func (c *Collectors) StageReached(s model.Stage) {
	if c == nil {
		return
	}
	c.StagesReached.WithLabelValues(s.String()).Inc()
}

func (c *Collectors) AdvanceContended() {
	if c == nil {
		return
	}
	c.AdvanceRetries.Inc()
}
