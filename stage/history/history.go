// Package history stamps records with their business validity period.
package history

import (
	"context"
	"time"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/stage"
)

const (
	ValidFromColumn = "valid_from"
	ValidToColumn   = "valid_to"
)

// Builder adds the valid_from and valid_to columns. valid_to is null for an
// open ended period.
type Builder struct {
	start time.Time
	end   *time.Time
}

var _ stage.Stage = (*Builder)(nil)

func NewBuilder(start time.Time, end *time.Time) (*Builder, error) {
	if start.IsZero() {
		return nil, etlerr.NewConfigurationErrorf("history requires a start date")
	}
	if end != nil && !end.After(start) {
		return nil, etlerr.NewConfigurationErrorf(
			"end date %s must be after start date %s",
			end.Format(time.DateOnly),
			start.Format(time.DateOnly),
		)
	}
	return &Builder{start: start, end: end}, nil
}

func (b *Builder) Pipe(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	from := make([]dataframe.Value, input.Len())
	to := make([]dataframe.Value, input.Len())
	for i := range from {
		from[i] = b.start
		if b.end != nil {
			to[i] = *b.end
		}
	}
	ret, err := input.WithColumn(dataframe.NewColumn(ValidFromColumn, from))
	if err != nil {
		return stage.Result{}, err
	}
	if ret, err = ret.WithColumn(dataframe.NewColumn(ValidToColumn, to)); err != nil {
		return stage.Result{}, err
	}
	return stage.Result{Result: ret, Report: stage.EmptyReport(input)}, nil
}
