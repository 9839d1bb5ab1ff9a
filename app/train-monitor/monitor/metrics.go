package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// collector holds the prometheus metrics of the monitor in a private registry
type collector struct {
	reg *prometheus.Registry

	Trains prometheus.Gauge

	FeedUpdates     prometheus.Counter
	StaleUpdates    prometheus.Counter
	MalformedRows   prometheus.Counter
	FeedFetchErrors *prometheus.CounterVec // source label: trains|gtfsrt|metadata

	Locations   *prometheus.CounterVec // source label: nats|gtfsrt
	Projections *prometheus.CounterVec // outcome label, see timetable.Outcome

	Published     prometheus.Counter
	PublishErrors prometheus.Counter

	ProjectionDuration prometheus.Histogram
	FeedDuration       prometheus.Histogram

	Stations        prometheus.Gauge
	CauseCategories prometheus.Gauge
}

func newCollector() *collector {
	reg := prometheus.NewRegistry()

	c := &collector{
		reg: reg,
		Trains: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "train_monitor_trains",
			Help: "Number of trains currently held.",
		}),
		FeedUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "train_monitor_feed_updates_total",
			Help: "Train updates accepted from the timetable feed.",
		}),
		StaleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "train_monitor_stale_updates_total",
			Help: "Train updates discarded because a newer version was held.",
		}),
		MalformedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "train_monitor_malformed_rows_total",
			Help: "Timetable rows dropped because they could not be parsed.",
		}),
		FeedFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "train_monitor_fetch_errors_total",
			Help: "Failed fetches of remote data.",
		}, []string{"source"}),
		Locations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "train_monitor_locations_total",
			Help: "Train locations received.",
		}, []string{"source"}),
		Projections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "train_monitor_projections_total",
			Help: "Location projections by outcome.",
		}, []string{"outcome"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "train_monitor_published_total",
			Help: "Timelines published over NATS.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "train_monitor_publish_errors_total",
			Help: "Timelines that failed to publish or record.",
		}),
		ProjectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "train_monitor_projection_duration_seconds",
			Help:    "Duration of projecting a location onto a train.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "train_monitor_feed_duration_seconds",
			Help:    "Duration of fetching and applying one timetable feed snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "train_monitor_stations",
			Help: "Stations in the metadata cache.",
		}),
		CauseCategories: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "train_monitor_cause_categories",
			Help: "Cause categories in the metadata cache.",
		}),
	}

	reg.MustRegister(
		c.Trains,
		c.FeedUpdates, c.StaleUpdates, c.MalformedRows, c.FeedFetchErrors,
		c.Locations, c.Projections,
		c.Published, c.PublishErrors,
		c.ProjectionDuration, c.FeedDuration,
		c.Stations, c.CauseCategories,
	)
	return c
}

func (c *collector) handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
