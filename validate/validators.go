package validate

import (
	"regexp"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/dataframe"
	"github.com/etlkit/etl/etlerr"
)

const (
	KindRegexp = "regexp"
	KindNA     = "na"
	KindNotNA  = "notna"
	KindMinMax = "minmax"
	KindDate   = "date"
)

// DefaultDateLayout is the ISO calendar date.
const DefaultDateLayout = "2006-01-02"

func mapBool(c *dataframe.Column, fn func(v dataframe.Value) bool) *dataframe.Column {
	ret := make([]bool, c.Len())
	for i := range ret {
		ret[i] = fn(c.Value(i))
	}
	return dataframe.NewBoolColumn(c.Name(), ret)
}

// Regexp validates values fully matching pattern. Non string values are
// matched on their text form. Nulls are invalid.
func Regexp(pattern string) (Validator, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return Validator{}, etlerr.NewConfigurationErrorf("invalid pattern %q: %v", pattern, err)
	}
	return Validator{
		Kind: KindRegexp,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool {
				if v == nil {
					return false
				}
				return re.MatchString(dataframe.FormatValue(v))
			})
		},
	}, nil
}

// NA validates null values.
func NA() Validator {
	return Validator{
		Kind: KindNA,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool { return v == nil })
		},
	}
}

// NotNA validates non null values.
func NotNA() Validator {
	return Validator{
		Kind: KindNotNA,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool { return v != nil })
		},
	}
}

// Inclusive tells which bounds of a range are part of it.
type Inclusive string

const (
	InclusiveBoth    Inclusive = "both"
	InclusiveLeft    Inclusive = "left"
	InclusiveRight   Inclusive = "right"
	InclusiveNeither Inclusive = "neither"
)

func ParseInclusive(s string) (Inclusive, error) {
	switch i := Inclusive(s); i {
	case InclusiveBoth, InclusiveLeft, InclusiveRight, InclusiveNeither:
		return i, nil
	case "":
		return InclusiveBoth, nil
	}
	return "", etlerr.NewConfigurationErrorf(
		"invalid inclusive %q, expected one of both, left, right, neither",
		s,
	)
}

func (i Inclusive) admits(cmpMin, cmpMax int) bool {
	lowOK := cmpMin > 0 || (cmpMin == 0 && (i == InclusiveBoth || i == InclusiveLeft))
	highOK := cmpMax < 0 || (cmpMax == 0 && (i == InclusiveBoth || i == InclusiveRight))
	return lowOK && highOK
}

// MinMax validates numbers between minimum and maximum, which are parsed as decimals.
func MinMax(minimum, maximum string, inclusive Inclusive) (Validator, error) {
	lo, err := parseDecimal(minimum)
	if err != nil {
		return Validator{}, etlerr.NewConfigurationErrorf("invalid minimum %q: %v", minimum, err)
	}
	hi, err := parseDecimal(maximum)
	if err != nil {
		return Validator{}, etlerr.NewConfigurationErrorf("invalid maximum %q: %v", maximum, err)
	}
	if lo.Cmp(hi) > 0 {
		return Validator{}, etlerr.NewConfigurationErrorf("minimum %s is greater than maximum %s", lo, hi)
	}
	inclusive, err = ParseInclusive(string(inclusive))
	if err != nil {
		return Validator{}, err
	}
	return Validator{
		Kind: KindMinMax,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool {
				d, ok := toDecimal(v)
				if !ok {
					return false
				}
				return inclusive.admits(d.Cmp(lo), d.Cmp(hi))
			})
		},
	}, nil
}

// MinMaxDate validates dates between minimum and maximum, parsed with layout.
func MinMaxDate(minimum, maximum string, inclusive Inclusive, layout string) (Validator, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	lo, err := time.Parse(layout, minimum)
	if err != nil {
		return Validator{}, etlerr.NewConfigurationErrorf("invalid minimum %q: %v", minimum, err)
	}
	hi, err := time.Parse(layout, maximum)
	if err != nil {
		return Validator{}, etlerr.NewConfigurationErrorf("invalid maximum %q: %v", maximum, err)
	}
	if lo.After(hi) {
		return Validator{}, etlerr.NewConfigurationErrorf("minimum %s is after maximum %s", minimum, maximum)
	}
	inclusive, err = ParseInclusive(string(inclusive))
	if err != nil {
		return Validator{}, err
	}
	return Validator{
		Kind: KindMinMax,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool {
				t, ok := toTime(v, layout)
				if !ok {
					return false
				}
				return inclusive.admits(t.Compare(lo), t.Compare(hi))
			})
		},
	}, nil
}

// Date validates values parsing under layout, a Go time layout. An empty
// layout is DefaultDateLayout.
func Date(layout string) Validator {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return Validator{
		Kind: KindDate,
		Validate: func(c *dataframe.Column) *dataframe.Column {
			return mapBool(c, func(v dataframe.Value) bool {
				_, ok := toTime(v, layout)
				return ok
			})
		},
	}
}

func parseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.Form != apd.Finite {
		return nil, errors.Newf("%s is not a finite number", s)
	}
	return d, nil
}

func toDecimal(v dataframe.Value) (*apd.Decimal, bool) {
	switch v := v.(type) {
	case *apd.Decimal:
		return v, v.Form == apd.Finite
	case int64:
		return apd.New(v, 0), true
	case float64:
		d, err := new(apd.Decimal).SetFloat64(v)
		if err != nil || d.Form != apd.Finite {
			return nil, false
		}
		return d, true
	case string:
		d, err := parseDecimal(v)
		return d, err == nil
	}
	return nil, false
}

func toTime(v dataframe.Value, layout string) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(layout, v)
		return t, err == nil
	}
	return time.Time{}, false
}
