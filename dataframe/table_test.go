package dataframe

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func makeTable(t *testing.T) *Table {
	tbl, err := FromColumns(
		NewColumn("x", []Value{int64(1), int64(2), int64(3), int64(4)}),
		NewColumn("y", []Value{"a", "b", nil, "d"}),
	)
	require.NoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		desc          string
		index         []RowID
		cols          []*Column
		expectedError string
	}{
		{
			desc:  "valid",
			index: SequentialIndex(2),
			cols:  []*Column{NewColumn("a", []Value{"1", "2"})},
		},
		{
			desc:          "length mismatch",
			index:         SequentialIndex(3),
			cols:          []*Column{NewColumn("a", []Value{"1", "2"})},
			expectedError: `column "a" has 2 values, expected 3`,
		},
		{
			desc:  "duplicate column",
			index: SequentialIndex(1),
			cols: []*Column{
				NewColumn("a", []Value{"1"}),
				NewColumn("a", []Value{"2"}),
			},
			expectedError: `duplicate column "a"`,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := New(tc.index, tc.cols...)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFilterKeepsRowIdentity(t *testing.T) {
	tbl := makeTable(t)
	filtered, err := tbl.Filter([]bool{false, true, false, true})
	require.NoError(t, err)
	require.Equal(t, []RowID{1, 3}, filtered.Index())
	require.Equal(t, []Value{int64(2), "b"}, filtered.Row(0))
	require.Equal(t, []Value{int64(4), "d"}, filtered.Row(1))

	_, err = tbl.Filter([]bool{true})
	require.EqualError(t, err, "mask has 1 values, expected 4")
}

func TestLeftJoin(t *testing.T) {
	tbl := makeTable(t)
	side, err := New(
		[]RowID{3, 1},
		NewBoolColumn("flag", []bool{true, false}),
	)
	require.NoError(t, err)

	joined, err := tbl.LeftJoin(side)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y", "flag"}, joined.ColumnNames())
	require.Equal(t, tbl.Index(), joined.Index())
	flag, err := joined.Column("flag")
	require.NoError(t, err)
	require.True(t, flag.IsNull(0))
	require.Equal(t, false, flag.Value(1))
	require.True(t, flag.IsNull(2))
	require.Equal(t, true, flag.Value(3))

	t.Run("column collision", func(t *testing.T) {
		_, err := joined.LeftJoin(side)
		require.EqualError(t, err, `column "flag" exists on both sides of join`)
	})

	t.Run("duplicate identities", func(t *testing.T) {
		dup, err := New([]RowID{1, 1}, NewBoolColumn("other", []bool{true, true}))
		require.NoError(t, err)
		_, err = tbl.LeftJoin(dup)
		require.EqualError(t, err, "duplicate row identity 1 on right side of join")
	})
}

func TestDropNulls(t *testing.T) {
	tbl, err := FromColumns(
		NewColumn("a", []Value{nil, "1", nil, "3"}),
		NewColumn("b", []Value{nil, nil, "2", "3"}),
	)
	require.NoError(t, err)

	for _, tc := range []struct {
		desc     string
		any      bool
		subset   []string
		expected []RowID
	}{
		{desc: "any", any: true, subset: []string{"a", "b"}, expected: []RowID{3}},
		{desc: "all", subset: []string{"a", "b"}, expected: []RowID{1, 2, 3}},
		{desc: "any on one column", any: true, subset: []string{"a"}, expected: []RowID{1, 3}},
		{desc: "any on no column keeps everything", any: true, subset: nil, expected: []RowID{0, 1, 2, 3}},
		{desc: "all on no column drops everything", subset: nil, expected: []RowID{}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			var ret *Table
			var err error
			if tc.any {
				ret, err = tbl.DropNullsAny(tc.subset)
			} else {
				ret, err = tbl.DropNullsAll(tc.subset)
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, ret.Index())
		})
	}

	_, err = tbl.DropNullsAny([]string{"missing"})
	require.EqualError(t, err, `column "missing" not found`)
}

func TestConcat(t *testing.T) {
	a, err := FromColumns(NewColumn("x", []Value{"1"}), NewColumn("e1", []Value{"bad"}))
	require.NoError(t, err)
	b, err := FromColumns(NewColumn("x", []Value{"2", "3"}), NewColumn("e2", []Value{"worse", nil}))
	require.NoError(t, err)

	c := Concat(a, nil, b)
	require.Equal(t, []string{"x", "e1", "e2"}, c.ColumnNames())
	require.Equal(t, []RowID{0, 0, 1}, c.Index())
	require.Equal(t, `index | x | e1 | e2
0 | 1 | bad | NULL
0 | 2 | NULL | worse
1 | 3 | NULL | NULL
`, c.String())
}

func TestRenameAndSelect(t *testing.T) {
	tbl := makeTable(t)
	renamed, err := tbl.RenameColumn("y", "z")
	require.NoError(t, err)
	require.Equal(t, []string{"x", "z"}, renamed.ColumnNames())
	require.Equal(t, []string{"x", "y"}, tbl.ColumnNames())

	selected, err := renamed.Select("z")
	require.NoError(t, err)
	require.Equal(t, []string{"z"}, selected.ColumnNames())

	_, err = renamed.Select("y")
	require.EqualError(t, err, `column "y" not found`)
}

func TestCSVRoundTrip(t *testing.T) {
	in := `id,name,amount
1,alice,10.5
2,,7
3,"carol, jr",
`
	tbl, err := ReadCSV(strings.NewReader(in), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	require.Equal(t, []string{"id", "name", "amount"}, tbl.ColumnNames())
	name, err := tbl.Column("name")
	require.NoError(t, err)
	require.True(t, name.IsNull(1))

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl, false))
	require.Equal(t, in, buf.String())

	buf.Reset()
	filtered, err := tbl.Filter([]bool{false, true, true})
	require.NoError(t, err)
	require.NoError(t, WriteCSV(&buf, filtered, true))
	require.Equal(t, `index,id,name,amount
1,2,,7
2,3,"carol, jr",
`, buf.String())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), zerolog.Nop())
	require.EqualError(t, err, "missing CSV header")

	_, err = ReadCSV(strings.NewReader("a,b\n1\n"), zerolog.Nop())
	require.Error(t, err)
}

func TestHeaderOnlyCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b\n"), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
}
