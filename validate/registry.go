// Package validate holds the column validators and the registry dispatching
// them by column name.
package validate

import (
	"fmt"
	"sort"

	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
)

// Func checks every value of a column. It returns a boolean column of the
// same length, true where the value is valid. It must not modify its input.
type Func func(c *dataframe.Column) *dataframe.Column

// Validator is a validation function together with the name of its kind,
// used to name the outcome and report columns.
type Validator struct {
	Kind     string
	Validate Func
}

// Entry binds a validator to a column.
type Entry struct {
	Column   string
	Kind     string
	Validate Func
}

// FlagColumn names the boolean column recording the outcome of a validator
// of the given kind on column.
func FlagColumn(kind, column string) string {
	return fmt.Sprintf("validate_%s_%s", kind, column)
}

// ErrorColumn names the report column holding the messages of flag.
func ErrorColumn(flag string) string {
	return flag + "_error"
}

// Registry maps column names to their validator. A column has at most one
// validator, and no two validators generate the same column name.
type Registry struct {
	entries map[string]Entry
	// generated maps the flag and error column names to the column they
	// belong to.
	generated map[string]string
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries:   make(map[string]Entry, len(entries)),
		generated: make(map[string]string, 2*len(entries)),
	}
	for _, e := range entries {
		if err := r.Register(e.Column, e.Validate, e.Kind); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds the validator for column. Registering a column twice, or a
// validator whose flag or error column is already generated for another
// column, is a configuration error.
func (r *Registry) Register(column string, fn Func, kind string) error {
	if column == "" {
		return etlerr.NewConfigurationErrorf("validator %q registered without a column", kind)
	}
	if kind == "" {
		return etlerr.NewConfigurationErrorf("validator for column %q has no kind", column)
	}
	if fn == nil {
		return etlerr.NewConfigurationErrorf("validator %q for column %q has no function", kind, column)
	}
	if existing, ok := r.entries[column]; ok {
		return etlerr.NewConfigurationErrorf(
			"column %q already has a %s validator, cannot register %s",
			column,
			existing.Kind,
			kind,
		)
	}
	flag := FlagColumn(kind, column)
	for _, name := range []string{flag, ErrorColumn(flag)} {
		if other, ok := r.generated[name]; ok {
			return etlerr.NewConfigurationErrorf(
				"%s validator for column %q generates column %q, already used by column %q",
				kind,
				column,
				name,
				other,
			)
		}
	}
	r.generated[flag] = column
	r.generated[ErrorColumn(flag)] = column
	r.entries[column] = Entry{Column: column, Kind: kind, Validate: fn}
	return nil
}

// RegisterValidator is Register for a constructed Validator.
func (r *Registry) RegisterValidator(column string, v Validator) error {
	return r.Register(column, v.Validate, v.Kind)
}

// Lookup returns the validator of column.
func (r *Registry) Lookup(column string) (Func, string, error) {
	e, ok := r.entries[column]
	if !ok {
		return nil, "", etlerr.NewUndeclaredFieldError(column)
	}
	return e.Validate, e.Kind, nil
}

// Keys returns the registered column names, sorted.
func (r *Registry) Keys() []string {
	ret := make([]string, 0, len(r.entries))
	for k := range r.entries {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

// GeneratedColumns returns the flag and error column names of column, or nil
// if it has no validator.
func (r *Registry) GeneratedColumns(column string) []string {
	e, ok := r.entries[column]
	if !ok {
		return nil
	}
	flag := FlagColumn(e.Kind, column)
	return []string{flag, ErrorColumn(flag)}
}

func (r *Registry) Len() int {
	return len(r.entries)
}
