// Package workflow chains the stages of a job.
package workflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage"
	"github.com/etlkit/etl/stage/check"
	"github.com/etlkit/etl/stage/history"
	"github.com/etlkit/etl/stage/identify"
	"github.com/etlkit/etl/stage/taxonomy"
	"github.com/etlkit/etl/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	stageRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "etl",
		Subsystem: "workflow",
		Name:      "stage_rows_total",
		Help:      "Number of rows going in and out of each stage.",
	}, []string{"stage", "direction"})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "etl",
		Subsystem: "workflow",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
)

// Config describes a generic workflow.
type Config struct {
	Logger zerolog.Logger

	Registry *validate.Registry
	Policy   policy.Policy
	// Schema maps required columns to their declared type.
	Schema map[string]string
	// Identifiers maps identifier columns to the type of entity they
	// identify.
	Identifiers map[string]string
	// Taxonomies maps columns to taxonomy mnemonics, and Mappings maps each
	// mnemonic to its code list.
	Taxonomies map[string]string
	Mappings   map[string]map[string]string

	StartDate time.Time
	// EndDate is nil for an open ended validity period.
	EndDate *time.Time

	Concurrency int
}

type namedStage struct {
	name string
	stage.Stage
}

// Generic runs schema, content, identification, taxonomy and history stages
// in sequence. Each stage receives the result of the previous one.
type Generic struct {
	logger zerolog.Logger
	stages []namedStage
}

func NewGeneric(cfg Config) (*Generic, error) {
	if cfg.Registry == nil {
		return nil, etlerr.NewConfigurationErrorf("workflow requires a validator registry")
	}
	schema, err := check.NewSchemaChecker(cfg.Schema)
	if err != nil {
		return nil, err
	}
	content, err := check.NewContentChecker(
		cfg.Registry,
		cfg.Policy,
		check.WithLogger(cfg.Logger),
		check.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		return nil, err
	}
	identifier, err := identify.NewIdentifier(cfg.Identifiers, cfg.Policy, cfg.Logger)
	if err != nil {
		return nil, err
	}
	mapper, err := taxonomy.NewMapper(cfg.Taxonomies, cfg.Mappings, cfg.Policy, cfg.Logger)
	if err != nil {
		return nil, err
	}
	builder, err := history.NewBuilder(cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, err
	}
	return &Generic{
		logger: cfg.Logger,
		stages: []namedStage{
			{name: "schema", Stage: schema},
			{name: "content", Stage: content},
			{name: "identify", Stage: identifier},
			{name: "taxonomy", Stage: mapper},
			{name: "history", Stage: builder},
		},
	}, nil
}

// Execute runs every stage over input. The returned Report concatenates the
// non empty reports of every stage, and Recyclable the recyclable rows of
// every stage, or nil if there are none.
func (w *Generic) Execute(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	current := input
	var reports, recyclables []*dataframe.Table
	for _, s := range w.stages {
		start := time.Now()
		stageRows.WithLabelValues(s.name, "in").Add(float64(current.Len()))
		res, err := s.Pipe(ctx, current)
		if err != nil {
			return stage.Result{}, errors.Wrapf(err, "%s stage", s.name)
		}
		stageDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
		stageRows.WithLabelValues(s.name, "out").Add(float64(res.Result.Len()))
		w.logger.Debug().
			Str("stage", s.name).
			Int("num_in", current.Len()).
			Int("num_out", res.Result.Len()).
			Int("num_reported", res.Report.Len()).
			Dur("duration", time.Since(start)).
			Msgf("stage complete")

		if res.Report.Len() > 0 {
			reports = append(reports, res.Report)
		}
		if res.Recyclable != nil {
			recyclables = append(recyclables, res.Recyclable)
		}
		current = res.Result
	}
	ret := stage.Result{Result: current, Report: stage.EmptyReport(input)}
	if len(reports) > 0 {
		ret.Report = dataframe.Concat(reports...)
	}
	if len(recyclables) > 0 {
		ret.Recyclable = dataframe.Concat(recyclables...)
	}
	return ret, nil
}
