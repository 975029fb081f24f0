// Package stage defines the contract shared by every processing step of a
// job.
package stage

import (
	"context"

	"github.com/etlkit/etl/dataframe"
)

// Result is what a stage produces from its input.
type Result struct {
	// Result holds the rows admissible for the next stage.
	Result *dataframe.Table
	// Report holds the rows with issues, annotated with one error column per
	// failed check.
	Report *dataframe.Table
	// Recyclable holds the input rows sent to the recycle bin. It is nil
	// when the stage has nothing to recycle.
	Recyclable *dataframe.Table
}

// Stage transforms a table into a Result. Implementations must not mutate
// their input and must be safe to call concurrently on different tables.
type Stage interface {
	Pipe(ctx context.Context, input *dataframe.Table) (Result, error)
}

// Func adapts a function to a Stage.
type Func func(ctx context.Context, input *dataframe.Table) (Result, error)

func (f Func) Pipe(ctx context.Context, input *dataframe.Table) (Result, error) {
	return f(ctx, input)
}

// Nop passes its input through with an empty report.
type Nop struct{}

func (Nop) Pipe(ctx context.Context, input *dataframe.Table) (Result, error) {
	return PassThrough(input), nil
}

// PassThrough returns input as the result, with an empty report shaped like
// input.
func PassThrough(input *dataframe.Table) Result {
	return Result{Result: input, Report: EmptyReport(input)}
}

// EmptyReport returns a table with the columns of t and no rows.
func EmptyReport(t *dataframe.Table) *dataframe.Table {
	ret, err := t.Filter(make([]bool, t.Len()))
	if err != nil {
		// The mask length always matches.
		panic(err)
	}
	return ret
}
