// Package metrics defines and registers all custom Prometheus metrics for
// the AssetVerse API. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assetverse"

// RequestsDecidedTotal counts request lifecycle outcomes.
// Label:
//   - status: the resulting request status ("Approved", "Rejected")
var RequestsDecidedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_decided_total",
		Help:      "Total number of request decisions, by resulting status.",
	},
	[]string{"status"},
)

// StockReservationsTotal counts ledger traffic on asset stock.
// Label:
//   - result: "reserved" (decrement committed), "rejected" (insufficient
//     stock), or "released" (return or compensation)
var StockReservationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_reservations_total",
		Help:      "Total number of stock ledger operations, by result.",
	},
	[]string{"result"},
)

// AffiliationsTotal counts affiliation writes.
// Label:
//   - action: "affiliate", "bulk", or "remove"
var AffiliationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "affiliations_total",
		Help:      "Total number of affiliation changes, by action.",
	},
	[]string{"action"},
)

// NotificationsTotal counts decision notifications handed to the broker.
// Label:
//   - result: "published" or "failed"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of decision notifications, by publish result.",
	},
	[]string{"result"},
)
