package metrics

import (
	"context"
	"time"

	"veritas/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// CustomCollector collects custom metrics from databases
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	// Descriptors
	totalClaims         *prometheus.Desc
	pendingEvidence     *prometheus.Desc
	totalEvidence       *prometheus.Desc
	openDisputes        *prometheus.Desc
	flaggedClaims       *prometheus.Desc
	recentAggregations  *prometheus.Desc
	recentManipulations *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		totalClaims: prometheus.NewDesc(
			"veritas_claims",
			"Total number of claims by status",
			[]string{"status"}, nil,
		),
		pendingEvidence: prometheus.NewDesc(
			"veritas_evidence_pending_review",
			"Number of evidence items awaiting review",
			nil, nil,
		),
		totalEvidence: prometheus.NewDesc(
			"veritas_evidence_items",
			"Total number of evidence items by stance",
			[]string{"stance"}, nil,
		),
		openDisputes: prometheus.NewDesc(
			"veritas_disputes_open",
			"Number of disputes currently open",
			nil, nil,
		),
		flaggedClaims: prometheus.NewDesc(
			"veritas_claims_flagged",
			"Number of claims parked for manual review",
			nil, nil,
		),
		recentAggregations: prometheus.NewDesc(
			"veritas_aggregations_24h",
			"Aggregation passes stored in the last 24h",
			nil, nil,
		),
		recentManipulations: prometheus.NewDesc(
			"veritas_manipulation_suspects_24h",
			"Aggregation passes flagged for manipulation in the last 24h",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalClaims
	ch <- c.pendingEvidence
	ch <- c.totalEvidence
	ch <- c.openDisputes
	ch <- c.flaggedClaims
	ch <- c.recentAggregations
	ch <- c.recentManipulations
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectClaimStats(ctx, ch)
	c.collectEvidenceStats(ctx, ch)
	c.collectDisputeStats(ctx, ch)
	c.collectAggregationStats(ctx, ch)
}

func (c *CustomCollector) collectClaimStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type ClaimStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []ClaimStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM claims
		GROUP BY status
	`)
	if err != nil {
		c.log.Errorw("Failed to collect claim stats", "error", err)
		return
	}

	var flagged int
	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.totalClaims,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Status,
		)
		if stat.Status == "flagged_for_review" {
			flagged = stat.Count
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.flaggedClaims,
		prometheus.GaugeValue,
		float64(flagged),
	)
}

func (c *CustomCollector) collectEvidenceStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type EvidenceStat struct {
		Stance string `db:"stance"`
		Count  int    `db:"count"`
	}

	var stats []EvidenceStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT stance, COUNT(*) as count
		FROM evidence_items
		GROUP BY stance
	`)
	if err != nil {
		c.log.Errorw("Failed to collect evidence stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.totalEvidence,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Stance,
		)
	}

	var pending int
	err = c.postgres.GetContext(ctx, &pending, `
		SELECT COUNT(*)
		FROM evidence_items
		WHERE reviewed_at IS NULL
	`)
	if err != nil {
		c.log.Errorw("Failed to collect pending evidence count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.pendingEvidence,
		prometheus.GaugeValue,
		float64(pending),
	)
}

func (c *CustomCollector) collectDisputeStats(ctx context.Context, ch chan<- prometheus.Metric) {
	var open int
	err := c.postgres.GetContext(ctx, &open, `
		SELECT COUNT(*)
		FROM disputes
		WHERE status = 'open'
	`)
	if err != nil {
		c.log.Errorw("Failed to collect dispute stats", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.openDisputes,
		prometheus.GaugeValue,
		float64(open),
	)
}

func (c *CustomCollector) collectAggregationStats(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.clickhouse == nil {
		return
	}

	var total, suspect uint64
	row := c.clickhouse.QueryRow(ctx, `
		SELECT count(), countIf(suspect_manipulation)
		FROM aggregation_results
		WHERE computed_at > now() - INTERVAL 24 HOUR
	`)
	if err := row.Scan(&total, &suspect); err != nil {
		c.log.Errorw("Failed to collect aggregation stats", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.recentAggregations,
		prometheus.GaugeValue,
		float64(total),
	)
	ch <- prometheus.MustNewConstMetric(
		c.recentManipulations,
		prometheus.GaugeValue,
		float64(suspect),
	)
}

// RegisterCustomCollector registers the collector with the default registry
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
