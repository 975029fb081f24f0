// Package identify flags the records whose identifier cannot be resolved.
package identify

import (
	"context"
	"fmt"
	"sort"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage"
	"github.com/etlkit/etl/stage/check"
	"github.com/rs/zerolog"
)

// Identifier checks identifier columns. A record is identified on a column
// when it carries a value there. Unidentified records are handled according
// to the not identified policy.
type Identifier struct {
	// resolver maps identifier columns to the type of entity they identify.
	resolver map[string]string
	policy   policy.Policy
	logger   zerolog.Logger
}

var _ stage.Stage = (*Identifier)(nil)

func NewIdentifier(resolver map[string]string, p policy.Policy, logger zerolog.Logger) (*Identifier, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return &Identifier{resolver: resolver, policy: p, logger: logger}, nil
}

func (s *Identifier) Pipe(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	columns := make([]string, 0, len(s.resolver))
	for col := range s.resolver {
		if input.HasColumn(col) {
			columns = append(columns, col)
		}
	}
	sort.Strings(columns)

	outcomes := make([]check.Outcome, 0, len(columns))
	for _, col := range columns {
		if err := ctx.Err(); err != nil {
			return stage.Result{}, err
		}
		c, err := input.Column(col)
		if err != nil {
			return stage.Result{}, err
		}
		typ := s.resolver[col]
		identified := make([]bool, c.Len())
		numMissing := 0
		for i := range identified {
			identified[i] = !c.IsNull(i)
			if !identified[i] {
				numMissing++
			}
		}
		o := check.Outcome{
			Column:  col,
			Kind:    typ,
			Flag:    fmt.Sprintf("identified_%s_%s", typ, col),
			Message: fmt.Sprintf("not identified %s: %s", col, typ),
			Action:  s.policy.ResolveNotIdentified(col),
			Valid:   dataframe.NewBoolColumn(col, identified),
		}
		s.logger.Debug().
			Str("column", col).
			Str("type", typ).
			Str("action", o.Action.String()).
			Int("num_unidentified", numMissing).
			Msgf("identified column")
		if o.Action == policy.Fail && numMissing > 0 {
			return stage.Result{}, check.FailureError(o, input, c)
		}
		outcomes = append(outcomes, o)
	}
	return check.Merge(input, outcomes)
}
