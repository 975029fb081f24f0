package check

import (
	"context"
	"sort"
	"strings"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/stage"
)

var columnTypes = map[string]struct{}{
	"string":  {},
	"int":     {},
	"float":   {},
	"decimal": {},
	"bool":    {},
	"date":    {},
}

// SchemaChecker verifies the input carries every declared column.
type SchemaChecker struct {
	schema map[string]string
}

var _ stage.Stage = (*SchemaChecker)(nil)

// NewSchemaChecker builds a checker from column names to declared types.
func NewSchemaChecker(schema map[string]string) (*SchemaChecker, error) {
	for col, typ := range schema {
		if _, ok := columnTypes[typ]; !ok {
			return nil, etlerr.NewConfigurationErrorf("unknown type %q for column %q", typ, col)
		}
	}
	return &SchemaChecker{schema: schema}, nil
}

func (s *SchemaChecker) Pipe(ctx context.Context, input *dataframe.Table) (stage.Result, error) {
	var missing []string
	for col := range s.schema {
		if !input.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return stage.Result{}, etlerr.NewInvalidFileErrorf("", "missing columns %s", strings.Join(missing, ", "))
	}
	return stage.PassThrough(input), nil
}
