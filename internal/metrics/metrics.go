// Package metrics exposes prometheus counters for ingestion passes and
// catalog queries. A nil *Collector is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentic-research/lectern/api"
)

const namespace = "lectern"

type Collector struct {
	Runs       *prometheus.CounterVec
	Categories prometheus.Counter
	Articles   prometheus.Counter
	Languages  prometheus.Counter
	Skipped    prometheus.Counter
	Queries    *prometheus.CounterVec
}

// New builds the counters and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion passes by result.",
		}, []string{"result"}),
		Categories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "categories_total",
			Help:      "Categories committed by ingestion.",
		}),
		Articles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "articles_total",
			Help:      "Articles committed by ingestion.",
		}),
		Languages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "language_rows_total",
			Help:      "Per-language rows committed by ingestion.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "skipped_directories_total",
			Help:      "Directories skipped because they could not be read.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "queries_total",
			Help:      "Catalog queries by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(c.Runs, c.Categories, c.Articles, c.Languages, c.Skipped, c.Queries)
	}
	return c
}

// ObserveIngest records a finished pass. Row counts are only added for
// committed passes.
func (c *Collector) ObserveIngest(s api.IngestStats, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.Runs.WithLabelValues("error").Inc()
		return
	}
	c.Runs.WithLabelValues("ok").Inc()
	c.Categories.Add(float64(s.Categories))
	c.Articles.Add(float64(s.Articles))
	c.Languages.Add(float64(s.LanguageRows))
	c.Skipped.Add(float64(s.Skipped))
}

func (c *Collector) ObserveQuery(op string) {
	if c == nil {
		return
	}
	c.Queries.WithLabelValues(op).Inc()
}
