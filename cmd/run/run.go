package run

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/cmd/internal/cmdutil"
	"github.com/etlkit/etl/config"
	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/inputfile"
	"github.com/etlkit/etl/report"
	"github.com/etlkit/etl/workflow"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var filesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "etl",
	Subsystem: "run",
	Name:      "files_total",
	Help:      "Number of input files processed, by outcome.",
}, []string{"outcome"})

func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Run the job over input files.",
		Long: `Run validates every input file against the configured validators and issue
policy. Valid files are archived, files with invalid data are moved to the bad
folder and processing continues with the next file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := cmdutil.LoadJob()
			if err != nil {
				return err
			}
			inputs, err := cmdutil.CheckInputs(job, args)
			if err != nil {
				return err
			}
			logger, err := cmdutil.Logger(cmd, job.LogLevel)
			if err != nil {
				return err
			}
			runID := uuid.New().String()
			logger = logger.With().Str("run_id", runID).Logger()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			cmdutil.RunMetricsServer(ctx, logger)

			reporter := report.CombinedReporter{}
			reporter.Reporters = append(
				reporter.Reporters,
				report.LogReporter{Logger: logger},
				report.CSVReporter{Logger: logger},
			)
			defer reporter.Close()

			reporter.Report(report.StatusReport{Info: "run in progress"})
			summary, err := Run(ctx, Params{
				RunID:    runID,
				Logger:   logger,
				Reporter: reporter,
				Job:      job,
				Inputs:   inputs,
			})
			if err != nil {
				return errors.Wrapf(err, "error running job")
			}
			reporter.Report(report.StatusReport{Info: summary.String()})
			if summary.Rejected > 0 {
				return errors.Newf("%d of %d input files rejected", summary.Rejected, summary.Total())
			}
			return nil
		},
	}

	cmdutil.RegisterConfigFlags(cmd)
	cmdutil.RegisterInputFlags(cmd)
	cmdutil.RegisterLoggerFlags(cmd)
	cmdutil.RegisterMetricsFlags(cmd)
	return cmd
}

type Params struct {
	RunID    string
	Logger   zerolog.Logger
	Reporter report.Reporter
	Job      *config.Job
	Inputs   cmdutil.Inputs
}

// Summary counts the input files of a run.
type Summary struct {
	Processed int
	Rejected  int
}

func (s Summary) Total() int {
	return s.Processed + s.Rejected
}

func (s Summary) String() string {
	return fmt.Sprintf("run complete: %d files processed, %d rejected", s.Processed, s.Rejected)
}

// Run processes every input file of p. Files with invalid data are reported
// and moved to the bad folder; any other error stops the run.
func Run(ctx context.Context, p Params) (Summary, error) {
	registry, err := p.Job.Registry()
	if err != nil {
		return Summary{}, err
	}
	pol, err := p.Job.ResolvePolicy()
	if err != nil {
		return Summary{}, err
	}
	resolvers, err := inputfile.Iterate(inputfile.IteratorConfig{
		Dir:         p.Inputs.Dir,
		Pattern:     p.Job.Input.Pattern,
		Recurse:     p.Job.Input.Recurse,
		Files:       p.Inputs.Files,
		StartDate:   p.Inputs.StartDate,
		DatePattern: p.Job.Input.DatePattern,
		NamePrefix:  p.Job.Input.NamePrefix,
		Dirs:        p.Job.Dirs(),
	})
	if err != nil {
		return Summary{}, err
	}
	if len(resolvers) == 0 {
		p.Logger.Warn().Str("input_dir", p.Inputs.Dir).Msgf("no input files found")
	}

	cfg := workflow.Config{
		Logger:      p.Logger,
		Registry:    registry,
		Policy:      pol,
		Schema:      config.Columns(p.Job.Schema),
		Identifiers: config.Columns(p.Job.Identifiers),
		Taxonomies:  p.Job.TaxonomyResolver(),
		Mappings:    p.Job.Mappings(),
		EndDate:     p.Inputs.EndDate,
		Concurrency: p.Job.Concurrency,
	}

	var summary Summary
	for _, r := range resolvers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		movedTo, err := inputfile.Process(ctx, p.Logger, r, func(ctx context.Context, r *inputfile.Resolver) error {
			return processFile(ctx, p, cfg, r)
		})
		if err != nil {
			if !etlerr.IsDataError(err) {
				return summary, errors.Wrapf(err, "error processing %s", r.FileName)
			}
			summary.Rejected++
			filesProcessed.WithLabelValues("rejected").Inc()
			p.Reporter.Report(report.FileFailure{
				RunID:   p.RunID,
				File:    r.FileName,
				Err:     err,
				MovedTo: movedTo,
			})
			continue
		}
		summary.Processed++
		filesProcessed.WithLabelValues("processed").Inc()
	}
	return summary, nil
}

func processFile(ctx context.Context, p Params, cfg workflow.Config, r *inputfile.Resolver) error {
	input, err := dataframe.ReadCSVFile(r.FileName, p.Logger)
	if err != nil {
		return etlerr.NewInvalidFileErrorf(r.FileName, "%v", err)
	}
	cfg.StartDate = r.StartDate
	w, err := workflow.NewGeneric(cfg)
	if err != nil {
		return err
	}
	res, err := w.Execute(ctx, input)
	if err != nil {
		return err
	}
	now := time.Now()
	p.Reporter.Report(report.FileReport{
		RunID:          p.RunID,
		File:           r.FileName,
		NumInput:       input.Len(),
		Result:         res.Result,
		Report:         res.Report,
		ReportPath:     r.ReportPath(now),
		Recyclable:     res.Recyclable,
		RecyclablePath: r.RecyclablePath(now),
	})
	return nil
}
