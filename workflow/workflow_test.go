package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/stage/history"
	"github.com/etlkit/etl/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var startDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func makeInput(t *testing.T) *dataframe.Table {
	return testutils.MakeTable(
		t,
		testutils.Strings("code", "FR", "xx", "DE", "FR"),
		testutils.Strings("customer", "c1", "c2", "", "c4"),
		testutils.Strings("amount", "10", "20", "30", "40"),
	)
}

func makeConfig(t *testing.T) Config {
	return Config{
		Logger:      zerolog.Nop(),
		Registry:    testutils.ParseRegistry(t, "code regexp pattern=[A-Z]{2}"),
		Policy:      policy.Strict(),
		Schema:      map[string]string{"code": "string", "amount": "decimal"},
		Identifiers: map[string]string{"customer": "customer"},
		Taxonomies:  map[string]string{"code": "country"},
		Mappings:    map[string]map[string]string{"country": {"FR": "France"}},
		StartDate:   startDate,
		Concurrency: 1,
	}
}

func TestExecute(t *testing.T) {
	cfg := makeConfig(t)
	cfg.Policy = policy.Policy{
		OnInvalid:       policy.IssuePolicy{Default: policy.Skip},
		OnNotIdentified: policy.IssuePolicy{Default: policy.Ignore},
		OnNotMapped:     policy.IssuePolicy{Default: policy.SendToRecycle},
	}
	w, err := NewGeneric(cfg)
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), makeInput(t))
	require.NoError(t, err)

	// Row 1 is skipped on its code, row 2 is recycled as DE is not mapped.
	require.Equal(t, []dataframe.RowID{0, 3}, res.Result.Index())
	require.Equal(
		t,
		[]dataframe.Value{"France", "France"},
		testutils.ColumnValues(t, res.Result, "code_country"),
	)
	require.Equal(
		t,
		[]dataframe.Value{startDate, startDate},
		testutils.ColumnValues(t, res.Result, history.ValidFromColumn),
	)
	require.Equal(
		t,
		[]dataframe.Value{nil, nil},
		testutils.ColumnValues(t, res.Result, history.ValidToColumn),
	)

	require.Equal(t, []dataframe.RowID{1, 2, 2}, res.Report.Index())
	require.Equal(
		t,
		[]dataframe.Value{"invalid code: regexp (line skipped)", nil, nil},
		testutils.ColumnValues(t, res.Report, "validate_regexp_code_error"),
	)
	require.Equal(
		t,
		[]dataframe.Value{nil, "not identified customer: customer (error ignored)", nil},
		testutils.ColumnValues(t, res.Report, "identified_customer_customer_error"),
	)
	require.Equal(
		t,
		[]dataframe.Value{nil, nil, "not mapped code: country"},
		testutils.ColumnValues(t, res.Report, "mapped_country_code_error"),
	)

	require.NotNil(t, res.Recyclable)
	require.Equal(t, []dataframe.RowID{2}, res.Recyclable.Index())
	require.Equal(t, []dataframe.Value{"DE"}, testutils.ColumnValues(t, res.Recyclable, "code"))
}

func TestExecuteWithoutIssues(t *testing.T) {
	cfg := makeConfig(t)
	end := startDate.AddDate(0, 1, 0)
	cfg.EndDate = &end
	w, err := NewGeneric(cfg)
	require.NoError(t, err)

	input := testutils.MakeTable(
		t,
		testutils.Strings("code", "FR"),
		testutils.Strings("customer", "c1"),
		testutils.Strings("amount", "10"),
	)
	res, err := w.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, res.Result.Len())
	require.Equal(t, []dataframe.Value{end}, testutils.ColumnValues(t, res.Result, history.ValidToColumn))
	require.Zero(t, res.Report.Len())
	require.Equal(t, input.ColumnNames(), res.Report.ColumnNames())
	require.Nil(t, res.Recyclable)
}

func TestExecuteErrors(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		mutate        func(cfg *Config)
		expectedError string
	}{
		{
			desc:          "strict policy fails on the first invalid value",
			mutate:        func(cfg *Config) {},
			expectedError: "content stage: invalid value in column code (regexp) at row 1: xx",
		},
		{
			desc: "missing column",
			mutate: func(cfg *Config) {
				cfg.Schema["vat"] = "decimal"
			},
			expectedError: "schema stage: invalid input file: missing columns vat",
		},
		{
			desc: "unidentified",
			mutate: func(cfg *Config) {
				cfg.Policy = policy.Permissive()
				cfg.Policy.OnNotIdentified = policy.IssuePolicy{Default: policy.Fail}
			},
			expectedError: "identify stage: invalid value in column customer (customer) at row 2: <null>",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := makeConfig(t)
			tc.mutate(&cfg)
			w, err := NewGeneric(cfg)
			require.NoError(t, err)
			_, err = w.Execute(context.Background(), makeInput(t))
			require.EqualError(t, err, tc.expectedError)
			require.True(t, etlerr.IsDataError(err))
		})
	}
}

func TestNewGeneric(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		mutate        func(cfg *Config)
		expectedError string
	}{
		{
			desc:          "no registry",
			mutate:        func(cfg *Config) { cfg.Registry = nil },
			expectedError: "configuration error: workflow requires a validator registry",
		},
		{
			desc:          "no start date",
			mutate:        func(cfg *Config) { cfg.StartDate = time.Time{} },
			expectedError: "configuration error: history requires a start date",
		},
		{
			desc:          "unknown taxonomy",
			mutate:        func(cfg *Config) { cfg.Taxonomies["amount"] = "currency" },
			expectedError: `configuration error: column "amount" refers to unknown taxonomy "currency"`,
		},
		{
			desc:          "unknown type",
			mutate:        func(cfg *Config) { cfg.Schema["amount"] = "money" },
			expectedError: `configuration error: unknown type "money" for column "amount"`,
		},
		{
			desc:          "negative concurrency",
			mutate:        func(cfg *Config) { cfg.Concurrency = -1 },
			expectedError: "configuration error: invalid concurrency -1",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := makeConfig(t)
			tc.mutate(&cfg)
			_, err := NewGeneric(cfg)
			require.EqualError(t, err, tc.expectedError)
		})
	}
}
