// Package taxonomy translates column values through named code lists.
package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage"
	"github.com/etlkit/etl/stage/check"
	"github.com/etlkit/etl/validate"
	"github.com/rs/zerolog"
)

// Mapper maps the values of columns through taxonomies. For each mapped
// column, the translated value is added as column "{column}_{mnemonic}".
// Values absent from the taxonomy are handled according to the not mapped
// policy.
type Mapper struct {
	resolver map[string]string
	mappings map[string]map[string]string
	policy   policy.Policy
	logger   zerolog.Logger
}

var _ stage.Stage = (*Mapper)(nil)

// NewMapper builds a mapper. resolver maps column names to taxonomy
// mnemonics, and mappings maps each mnemonic to its code list.
func NewMapper(
	resolver map[string]string,
	mappings map[string]map[string]string,
	p policy.Policy,
	logger zerolog.Logger,
) (*Mapper, error) {
	columns := make([]string, 0, len(resolver))
	for col := range resolver {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	generated := make(map[string]string, 3*len(resolver))
	for _, col := range columns {
		mnemonic := resolver[col]
		if _, ok := mappings[mnemonic]; !ok {
			return nil, etlerr.NewConfigurationErrorf(
				"column %q refers to unknown taxonomy %q",
				col,
				mnemonic,
			)
		}
		for _, name := range generatedColumns(col, mnemonic) {
			if other, ok := generated[name]; ok {
				return nil, etlerr.NewConfigurationErrorf(
					"taxonomy %q on column %q generates column %q, already used by column %q",
					mnemonic,
					col,
					name,
					other,
				)
			}
			generated[name] = col
		}
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return &Mapper{resolver: resolver, mappings: mappings, policy: p, logger: logger}, nil
}

// MappedColumn returns the name of the column holding translated values.
func MappedColumn(column, mnemonic string) string {
	return column + "_" + mnemonic
}

func flagColumn(column, mnemonic string) string {
	return fmt.Sprintf("mapped_%s_%s", mnemonic, column)
}

func generatedColumns(column, mnemonic string) []string {
	flag := flagColumn(column, mnemonic)
	return []string{MappedColumn(column, mnemonic), flag, validate.ErrorColumn(flag)}
}

// Pipe maps the values of input. An input already holding a translated, flag
// or error column is an InvalidFileError.
func (m *Mapper) Pipe(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	columns := make([]string, 0, len(m.resolver))
	for col := range m.resolver {
		if input.HasColumn(col) {
			columns = append(columns, col)
		}
	}
	sort.Strings(columns)
	for _, col := range columns {
		if err := check.CheckGenerated(input, generatedColumns(col, m.resolver[col])...); err != nil {
			return stage.Result{}, err
		}
	}

	mapped := input
	outcomes := make([]check.Outcome, 0, len(columns))
	for _, col := range columns {
		if err := ctx.Err(); err != nil {
			return stage.Result{}, err
		}
		c, err := input.Column(col)
		if err != nil {
			return stage.Result{}, err
		}
		mnemonic := m.resolver[col]
		codes := m.mappings[mnemonic]
		found := make([]bool, c.Len())
		numMissing := 0
		translated := c.Map(MappedColumn(col, mnemonic), func(v dataframe.Value) dataframe.Value {
			if v == nil {
				return nil
			}
			if to, ok := codes[dataframe.FormatValue(v)]; ok {
				return to
			}
			return nil
		})
		for i := range found {
			found[i] = !c.IsNull(i) && !translated.IsNull(i)
			if !found[i] {
				numMissing++
			}
		}
		if mapped, err = mapped.WithColumn(translated); err != nil {
			return stage.Result{}, err
		}
		o := check.Outcome{
			Column:  col,
			Kind:    mnemonic,
			Flag:    flagColumn(col, mnemonic),
			Message: fmt.Sprintf("not mapped %s: %s", col, mnemonic),
			Action:  m.policy.ResolveNotMapped(col),
			Valid:   dataframe.NewBoolColumn(col, found),
		}
		m.logger.Debug().
			Str("column", col).
			Str("taxonomy", mnemonic).
			Str("action", o.Action.String()).
			Int("num_unmapped", numMissing).
			Msgf("mapped column")
		if o.Action == policy.Fail && numMissing > 0 {
			return stage.Result{}, check.FailureError(o, input, c)
		}
		outcomes = append(outcomes, o)
	}
	return check.Merge(mapped, outcomes)
}
