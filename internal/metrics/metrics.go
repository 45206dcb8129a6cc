// Package metrics exposes Prometheus collectors for HTTP traffic and
// recipe-domain events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector handles Prometheus metrics collection.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	usersRegisteredTotal prometheus.Counter
	recipesCreatedTotal  prometheus.Counter
	recipesDeletedTotal  prometheus.Counter
	commentsCreatedTotal prometheus.Counter
	ratingsTotal         *prometheus.CounterVec
	imageUploadsTotal    *prometheus.CounterVec
	assistantRequests    *prometheus.CounterVec
	assistantDuration    prometheus.Histogram
	realtimeSubscribers  prometheus.Gauge
	realtimeDropped      prometheus.Counter
}

// New creates a collector backed by its own registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		usersRegisteredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resepia_users_registered_total",
			Help: "Accounts created",
		}),
		recipesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resepia_recipes_created_total",
			Help: "Recipes created",
		}),
		recipesDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resepia_recipes_deleted_total",
			Help: "Recipes deleted",
		}),
		commentsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "resepia_comments_created_total",
			Help: "Comments posted",
		}),
		ratingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resepia_ratings_total",
				Help: "Ratings submitted, by operation",
			},
			[]string{"operation"},
		),
		imageUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resepia_image_uploads_total",
				Help: "Recipe image uploads, by result",
			},
			[]string{"result"},
		),
		assistantRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resepia_assistant_requests_total",
				Help: "Assistant completions, by result",
			},
			[]string{"result"},
		),
		assistantDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "resepia_assistant_request_duration_seconds",
			Help:    "Upstream completion latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		realtimeSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "resepia_realtime_subscribers",
			Help: "Open comment stream subscriptions",
		}),
		realtimeDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "resepia_realtime_dropped_subscribers_total",
			Help: "Subscribers dropped for falling behind",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveHTTP records one finished request
func (c *Collector) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (c *Collector) UserRegistered() {
	if c == nil {
		return
	}
	c.usersRegisteredTotal.Inc()
}

func (c *Collector) RecipeCreated() {
	if c == nil {
		return
	}
	c.recipesCreatedTotal.Inc()
}

func (c *Collector) RecipeDeleted() {
	if c == nil {
		return
	}
	c.recipesDeletedTotal.Inc()
}

func (c *Collector) CommentCreated() {
	if c == nil {
		return
	}
	c.commentsCreatedTotal.Inc()
}

// RatingSaved counts a create or update of a review
func (c *Collector) RatingSaved(operation string) {
	if c == nil {
		return
	}
	c.ratingsTotal.WithLabelValues(operation).Inc()
}

func (c *Collector) ImageUpload(result string) {
	if c == nil {
		return
	}
	c.imageUploadsTotal.WithLabelValues(result).Inc()
}

// AssistantRequest records an upstream completion and its latency
func (c *Collector) AssistantRequest(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.assistantRequests.WithLabelValues(result).Inc()
	c.assistantDuration.Observe(elapsed.Seconds())
}

func (c *Collector) SubscriberAdded() {
	if c == nil {
		return
	}
	c.realtimeSubscribers.Inc()
}

func (c *Collector) SubscriberRemoved() {
	if c == nil {
		return
	}
	c.realtimeSubscribers.Dec()
}

func (c *Collector) SubscriberDropped() {
	if c == nil {
		return
	}
	c.realtimeDropped.Inc()
}
