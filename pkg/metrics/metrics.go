// Package metrics holds the Prometheus collectors shared by the fetch
// pipeline and an optional HTTP endpoint to expose them.
//
// Collectors are registered on the default registry through promauto, so
// they cost nothing unless a command is started with --metrics-addr.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"socialfetch/pkg/logger"
)

var (
	// RequestsTotal counts HTTP round trips by service and status code
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_requests_total",
		Help: "Total number of HTTP requests by service and status",
	}, []string{"service", "status"})

	// RequestDuration tracks request latency by service
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfetch_request_duration_seconds",
		Help:    "HTTP request duration by service",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	// RetriesTotal counts retry attempts by error type
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_retries_total",
		Help: "Total number of retry attempts by error type",
	}, []string{"error_type"})

	// RetryBackoffSeconds records the sleep inserted before each retry
	RetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfetch_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by error type",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
	}, []string{"error_type"})

	// RetryExhaustedTotal counts calls that failed after every retry
	RetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_retry_exhausted_total",
		Help: "Total number of calls that exhausted their retries by error type",
	}, []string{"error_type"})

	// PagesFetchedTotal counts result pages by source
	PagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_pages_fetched_total",
		Help: "Total number of result pages fetched by source",
	}, []string{"source"})

	// ItemsFetchedTotal counts accumulated items by source
	ItemsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_items_fetched_total",
		Help: "Total number of items accumulated by source",
	}, []string{"source"})

	// DownloadsTotal counts artifact downloads by final status
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_downloads_total",
		Help: "Total number of artifact downloads by status",
	}, []string{"status"})

	// DownloadBytesTotal counts bytes written for artifacts
	DownloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialfetch_download_bytes_total",
		Help: "Total bytes written for downloaded artifacts",
	})

	// CacheHits and CacheMisses track the optional response cache
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialfetch_cache_hits_total",
		Help: "Total number of response cache hits",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialfetch_cache_misses_total",
		Help: "Total number of response cache misses",
	})
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfetch_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"})
)

// Handler returns the Prometheus scrape handler for the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled. It returns
// immediately; listener errors are logged.
func Serve(ctx context.Context, addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics endpoint failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
