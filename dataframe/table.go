// Package dataframe provides the in-memory tabular container the etl stages
// work on: ordered named columns of equal length, aligned on a row identity
// which survives filtering and joins.
package dataframe

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// RowID identifies a logical record across stages.
type RowID int64

// Table is immutable: every operation returns a new Table, sharing column
// storage whenever it can.
type Table struct {
	index   []RowID
	columns []*Column
	pos     map[string]int
}

// New builds a table from an explicit index and columns.
func New(index []RowID, columns ...*Column) (*Table, error) {
	t := &Table{
		index:   index,
		columns: make([]*Column, 0, len(columns)),
		pos:     make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if c.Len() != len(index) {
			return nil, errors.Newf(
				"column %q has %d values, expected %d",
				c.Name(),
				c.Len(),
				len(index),
			)
		}
		if _, ok := t.pos[c.Name()]; ok {
			return nil, errors.Newf("duplicate column %q", c.Name())
		}
		t.pos[c.Name()] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// FromColumns builds a table indexed 0..n-1. All columns must have the same
// length.
func FromColumns(columns ...*Column) (*Table, error) {
	n := 0
	if len(columns) > 0 {
		n = columns[0].Len()
	}
	return New(SequentialIndex(n), columns...)
}

// SequentialIndex returns the index 0..n-1.
func SequentialIndex(n int) []RowID {
	idx := make([]RowID, n)
	for i := range idx {
		idx[i] = RowID(i)
	}
	return idx
}

func (t *Table) Len() int {
	return len(t.index)
}

// Index returns the row identities. The returned slice must not be modified.
func (t *Table) Index() []RowID {
	return t.index
}

func (t *Table) ColumnNames() []string {
	ret := make([]string, len(t.columns))
	for i, c := range t.columns {
		ret[i] = c.Name()
	}
	return ret
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.pos[name]
	return ok
}

func (t *Table) Column(name string) (*Column, error) {
	p, ok := t.pos[name]
	if !ok {
		return nil, errors.Newf("column %q not found", name)
	}
	return t.columns[p], nil
}

// Row returns the values at position i, in column order.
func (t *Table) Row(i int) []Value {
	ret := make([]Value, len(t.columns))
	for j, c := range t.columns {
		ret[j] = c.Value(i)
	}
	return ret
}

// Filter keeps the rows for which mask is true.
func (t *Table) Filter(mask []bool) (*Table, error) {
	if len(mask) != t.Len() {
		return nil, errors.Newf("mask has %d values, expected %d", len(mask), t.Len())
	}
	positions := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			positions = append(positions, i)
		}
	}
	return t.take(positions), nil
}

// WithColumn appends a column aligned with the current rows.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	cols := make([]*Column, 0, len(t.columns)+1)
	cols = append(cols, t.columns...)
	cols = append(cols, c)
	return New(t.index, cols...)
}

func (t *Table) RenameColumn(from, to string) (*Table, error) {
	p, ok := t.pos[from]
	if !ok {
		return nil, errors.Newf("column %q not found", from)
	}
	cols := make([]*Column, len(t.columns))
	copy(cols, t.columns)
	cols[p] = cols[p].Rename(to)
	return New(t.index, cols...)
}

// Select keeps the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(t.index, cols...)
}

// LeftJoin keeps every row of t and appends the columns of o, matched on row
// identity. Rows of t absent from o get null values.
func (t *Table) LeftJoin(o *Table) (*Table, error) {
	lookup := make(map[RowID]int, o.Len())
	for i, id := range o.index {
		if _, ok := lookup[id]; ok {
			return nil, errors.Newf("duplicate row identity %d on right side of join", id)
		}
		lookup[id] = i
	}
	positions := make([]int, len(t.index))
	for i, id := range t.index {
		p, ok := lookup[id]
		if !ok {
			p = -1
		}
		positions[i] = p
	}
	cols := make([]*Column, 0, len(t.columns)+len(o.columns))
	cols = append(cols, t.columns...)
	for _, c := range o.columns {
		if t.HasColumn(c.Name()) {
			return nil, errors.Newf("column %q exists on both sides of join", c.Name())
		}
		cols = append(cols, c.take(positions))
	}
	return New(t.index, cols...)
}

// DropNullsAny removes rows with a null in any of the subset columns.
func (t *Table) DropNullsAny(subset []string) (*Table, error) {
	return t.dropNulls(subset, func(nulls int) bool { return nulls == 0 })
}

// DropNullsAll removes rows where every subset column is null. With an empty
// subset, every row is removed.
func (t *Table) DropNullsAll(subset []string) (*Table, error) {
	return t.dropNulls(subset, func(nulls int) bool { return nulls < len(subset) })
}

func (t *Table) dropNulls(subset []string, keep func(nulls int) bool) (*Table, error) {
	cols := make([]*Column, len(subset))
	for i, name := range subset {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	mask := make([]bool, t.Len())
	for i := range mask {
		nulls := 0
		for _, c := range cols {
			if c.IsNull(i) {
				nulls++
			}
		}
		mask[i] = keep(nulls)
	}
	return t.Filter(mask)
}

// Concat stacks tables vertically. The resulting columns are the union of the
// input columns in first seen order; missing cells are null.
func Concat(tables ...*Table) *Table {
	var names []string
	seen := make(map[string]struct{})
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += t.Len()
		for _, c := range t.columns {
			if _, ok := seen[c.Name()]; !ok {
				seen[c.Name()] = struct{}{}
				names = append(names, c.Name())
			}
		}
	}
	index := make([]RowID, 0, total)
	values := make([][]Value, len(names))
	for i := range values {
		values[i] = make([]Value, 0, total)
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		index = append(index, t.index...)
		for i, name := range names {
			c, err := t.Column(name)
			if err != nil {
				values[i] = append(values[i], make([]Value, t.Len())...)
				continue
			}
			values[i] = append(values[i], c.values...)
		}
	}
	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = NewColumn(name, values[i])
	}
	return &Table{index: index, columns: cols, pos: positionsOf(cols)}
}

func (t *Table) take(positions []int) *Table {
	index := make([]RowID, len(positions))
	for i, p := range positions {
		index[i] = t.index[p]
	}
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.take(positions)
	}
	return &Table{index: index, columns: cols, pos: t.pos}
}

func positionsOf(cols []*Column) map[string]int {
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c.Name()] = i
	}
	return pos
}

// String renders the table as text, one row per line, prefixed by the
// row identity. Nulls are rendered as NULL.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("index")
	for _, c := range t.columns {
		sb.WriteString(" | ")
		sb.WriteString(c.Name())
	}
	sb.WriteString("\n")
	for i, id := range t.index {
		sb.WriteString(FormatValue(int64(id)))
		for _, c := range t.columns {
			sb.WriteString(" | ")
			if c.IsNull(i) {
				sb.WriteString("NULL")
			} else {
				sb.WriteString(FormatValue(c.Value(i)))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
