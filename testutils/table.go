package testutils

import (
	"strings"
	"testing"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/validate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// MakeTable builds a table indexed 0..n-1 from columns.
func MakeTable(t *testing.T, cols ...*dataframe.Column) *dataframe.Table {
	tbl, err := dataframe.FromColumns(cols...)
	require.NoError(t, err)
	return tbl
}

// Strings builds a string column. Empty strings are nulls.
func Strings(name string, values ...string) *dataframe.Column {
	if values == nil {
		values = []string{}
	}
	return dataframe.NewStringColumn(name, values)
}

func Int64s(name string, values ...int64) *dataframe.Column {
	vals := make([]dataframe.Value, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return dataframe.NewColumn(name, vals)
}

// ColumnValues returns the values of the named column.
func ColumnValues(t *testing.T, tbl *dataframe.Table, name string) []dataframe.Value {
	c, err := tbl.Column(name)
	require.NoError(t, err)
	ret := make([]dataframe.Value, c.Len())
	for i := range ret {
		ret[i] = c.Value(i)
	}
	return ret
}

// ReadCSVTable reads a table from CSV text.
func ReadCSVTable(t *testing.T, input string) *dataframe.Table {
	tbl, err := dataframe.ReadCSV(strings.NewReader(input), zerolog.Nop())
	require.NoError(t, err)
	return tbl
}

// ParseRegistry builds a registry from lines of the form
//
//	<column> <kind> [<param>=<value> ...]
func ParseRegistry(t *testing.T, input string) *validate.Registry {
	var cfgs []validate.Config
	for _, line := range strings.Split(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		require.GreaterOrEqual(t, len(fields), 2, "expected <column> <kind> in %q", line)
		cfg := validate.Config{Column: fields[0], Kind: fields[1], Params: map[string]string{}}
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, "=")
			require.True(t, ok, "expected <param>=<value>, got %q", f)
			cfg.Params[k] = v
		}
		cfgs = append(cfgs, cfg)
	}
	r, err := validate.FromConfig(cfgs)
	require.NoError(t, err)
	return r
}

// FormatResult renders the tables of a stage result for datadriven output.
func FormatResult(result, report, recyclable *dataframe.Table) string {
	var sb strings.Builder
	sb.WriteString("result:\n")
	sb.WriteString(result.String())
	sb.WriteString("report:\n")
	sb.WriteString(report.String())
	if recyclable != nil {
		sb.WriteString("recyclable:\n")
		sb.WriteString(recyclable.String())
	}
	return sb.String()
}
