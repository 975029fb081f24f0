package dataframe

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Value is a single cell. A nil Value is null. Non-null values are one of
// string, int64, float64, bool, time.Time or *apd.Decimal.
type Value = interface{}

// Column is an immutable named vector of values.
type Column struct {
	name   string
	values []Value
}

func NewColumn(name string, values []Value) *Column {
	return &Column{name: name, values: values}
}

// NewBoolColumn builds a column of non-null booleans.
func NewBoolColumn(name string, values []bool) *Column {
	vals := make([]Value, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return &Column{name: name, values: vals}
}

// NewStringColumn builds a column of strings, treating empty strings as null.
func NewStringColumn(name string, values []string) *Column {
	vals := make([]Value, len(values))
	for i, v := range values {
		if v != "" {
			vals[i] = v
		}
	}
	return &Column{name: name, values: vals}
}

func (c *Column) Name() string {
	return c.name
}

func (c *Column) Len() int {
	return len(c.values)
}

func (c *Column) Value(i int) Value {
	return c.values[i]
}

func (c *Column) IsNull(i int) bool {
	return c.values[i] == nil
}

// Bool returns the value at i as a boolean. ok is false for nulls and
// non-boolean values.
func (c *Column) Bool(i int) (v bool, ok bool) {
	v, ok = c.values[i].(bool)
	return v, ok
}

// Rename returns a column sharing the same values under another name.
func (c *Column) Rename(name string) *Column {
	return &Column{name: name, values: c.values}
}

// Map builds a new column by applying fn to each value.
func (c *Column) Map(name string, fn func(Value) Value) *Column {
	vals := make([]Value, len(c.values))
	for i, v := range c.values {
		vals[i] = fn(v)
	}
	return &Column{name: name, values: vals}
}

func (c *Column) take(positions []int) *Column {
	vals := make([]Value, len(positions))
	for i, p := range positions {
		if p >= 0 {
			vals[i] = c.values[p]
		}
	}
	return &Column{name: c.name, values: vals}
}

// FormatValue renders a value the way it is written to CSV. Nulls are empty.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format(time.RFC3339Nano)
	case *apd.Decimal:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
