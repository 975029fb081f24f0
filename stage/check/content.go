// Package check holds the stages verifying the shape and the content of an
// input table.
package check

import (
	"context"
	"fmt"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage"
	"github.com/etlkit/etl/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	rowsChecked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "etl",
		Subsystem: "check",
		Name:      "rows_checked_total",
		Help:      "Number of rows which went through content validation.",
	})
	rowsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "etl",
		Subsystem: "check",
		Name:      "rows_rejected_total",
		Help:      "Number of values which failed validation, by column.",
	}, []string{"column"})
	validatorsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "etl",
		Subsystem: "check",
		Name:      "validators_running",
		Help:      "Number of column validators currently running.",
	})
)

type ContentOpt func(*contentOpts)

type contentOpts struct {
	logger      zerolog.Logger
	concurrency int
}

func WithLogger(l zerolog.Logger) ContentOpt {
	return func(o *contentOpts) {
		o.logger = l
	}
}

// WithConcurrency bounds the number of columns validated at once. Zero means
// the number of CPUs.
func WithConcurrency(c int) ContentOpt {
	return func(o *contentOpts) {
		o.concurrency = c
	}
}

// ContentChecker runs the registered validators over the columns of its
// input and filters rows according to the policy.
type ContentChecker struct {
	registry *validate.Registry
	policy   policy.Policy
	opts     contentOpts
}

var _ stage.Stage = (*ContentChecker)(nil)

func NewContentChecker(
	registry *validate.Registry, p policy.Policy, inOpts ...ContentOpt,
) (*ContentChecker, error) {
	if registry == nil {
		return nil, etlerr.NewConfigurationErrorf("content checker requires a validator registry")
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	opts := contentOpts{
		logger: zerolog.Nop(),
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	if opts.concurrency < 0 {
		return nil, etlerr.NewConfigurationErrorf("invalid concurrency %d", opts.concurrency)
	}
	return &ContentChecker{registry: registry, policy: p, opts: opts}, nil
}

// columnsToCheck returns the registered columns present in input, sorted.
func (c *ContentChecker) columnsToCheck(input *dataframe.Table) []string {
	var ret []string
	for _, col := range c.registry.Keys() {
		if input.HasColumn(col) {
			ret = append(ret, col)
		}
	}
	return ret
}

// Pipe validates input. A failure on a column whose action is Fail aborts
// the whole table with a DataValidityError. An input already holding a flag
// or error column is an InvalidFileError.
func (c *ContentChecker) Pipe(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	columns := c.columnsToCheck(input)
	for _, col := range columns {
		if err := CheckGenerated(input, c.registry.GeneratedColumns(col)...); err != nil {
			return stage.Result{}, err
		}
	}
	outcomes := make([]Outcome, len(columns))

	numGoroutines := c.opts.concurrency
	if numGoroutines == 0 {
		numGoroutines = runtime.NumCPU()
	}
	if numGoroutines > len(columns) {
		numGoroutines = len(columns)
	}

	g, gctx := errgroup.WithContext(ctx)
	workQueue := make(chan int)
	g.Go(func() error {
		defer close(workQueue)
		for i := range columns {
			select {
			case workQueue <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})
	for goroutineIdx := 0; goroutineIdx < numGoroutines; goroutineIdx++ {
		g.Go(func() error {
			validatorsRunning.Inc()
			defer validatorsRunning.Dec()

			for idx := range workQueue {
				if err := gctx.Err(); err != nil {
					return err
				}
				o, err := c.checkColumn(input, columns[idx])
				if err != nil {
					return err
				}
				outcomes[idx] = o
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stage.Result{}, err
	}
	// A cancelled caller context may have stopped the queue early.
	if err := ctx.Err(); err != nil {
		return stage.Result{}, err
	}

	rowsChecked.Add(float64(input.Len()))
	return Merge(input, outcomes)
}

func (c *ContentChecker) checkColumn(input *dataframe.Table, column string) (Outcome, error) {
	fn, kind, err := c.registry.Lookup(column)
	if err != nil {
		return Outcome{}, err
	}
	col, err := input.Column(column)
	if err != nil {
		return Outcome{}, err
	}
	valid := fn(col)
	if valid.Len() != col.Len() {
		return Outcome{}, errors.AssertionFailedf(
			"%s validator on %s returned %d values, expected %d",
			kind,
			column,
			valid.Len(),
			col.Len(),
		)
	}
	o := Outcome{
		Column:  column,
		Kind:    kind,
		Flag:    validate.FlagColumn(kind, column),
		Message: fmt.Sprintf("invalid %s: %s", column, kind),
		Action:  c.policy.ResolveAction(column),
		Valid:   valid,
	}

	numFailed := 0
	for _, ok := range o.mask() {
		if !ok {
			numFailed++
		}
	}
	rowsRejected.WithLabelValues(column).Add(float64(numFailed))
	c.opts.logger.Debug().
		Str("column", column).
		Str("kind", kind).
		Str("action", o.Action.String()).
		Int("num_failed", numFailed).
		Msgf("validated column")

	if o.Action == policy.Fail && numFailed > 0 {
		return Outcome{}, FailureError(o, input, col)
	}
	return o, nil
}
