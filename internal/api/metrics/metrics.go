// Package metrics defines the custom Prometheus metrics of the recipe hub API.
// HTTP request metrics come from the echoprometheus middleware; the counters
// here describe domain activity.
//
// All metrics are registered with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recipehub"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// RegistrationsTotal counts accounts created through the register endpoint.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of user registrations.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid", "locked", "disabled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests rejected by the auth rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)

// ── Recipe metrics ────────────────────────────────────────────────────────────

// RecipesCreatedTotal counts newly created recipes.
// Label:
//   - category: recipe category
var RecipesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recipes_created_total",
		Help:      "Total number of recipes created, by category.",
	},
	[]string{"category"},
)

// RatingsTotal counts submitted ratings, including re-ratings.
var RatingsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratings_total",
		Help:      "Total number of ratings submitted.",
	},
)

// PopularCacheTotal counts popular-recipes cache lookups.
// Label:
//   - result: "hit" or "miss"
var PopularCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "popular_cache_total",
		Help:      "Total number of popular-recipes cache lookups, by result.",
	},
	[]string{"result"},
)

// ── Upload metrics ────────────────────────────────────────────────────────────

// UploadsTotal counts processed image uploads.
// Label:
//   - result: "stored" or "rejected"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of uploaded images, by result.",
	},
	[]string{"result"},
)

// UploadBytes observes the size of stored images after re-encoding.
var UploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_bytes",
		Help:      "Size in bytes of stored images after re-encoding.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 8), // 16KiB .. 2MiB
	},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailSentTotal counts outbound mail deliveries.
// Label:
//   - result: "sent" or "failed"
var MailSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_sent_total",
		Help:      "Total number of outbound emails, by delivery result.",
	},
	[]string{"result"},
)

// MailQueueDepth tracks the number of messages waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of messages pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures the SMTP round trip of a single message.
var MailDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single outbound email delivery.",
		Buckets:   prometheus.DefBuckets,
	},
)
