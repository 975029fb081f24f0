package validate

import (
	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/etlerr"
)

// Config declares the validator of a column.
//
// Params by kind:
//
//	regexp: pattern
//	minmax: min, max, inclusive (default both), layout (compare as dates)
//	date:   layout (default 2006-01-02)
type Config struct {
	Column string            `yaml:"column" mapstructure:"column" validate:"required"`
	Kind   string            `yaml:"kind" mapstructure:"kind" validate:"required,oneof=regexp na notna minmax date"`
	Params map[string]string `yaml:"params" mapstructure:"params"`
}

// Build constructs the validator described by c.
func (c Config) Build() (Validator, error) {
	switch c.Kind {
	case KindRegexp:
		pattern, ok := c.Params["pattern"]
		if !ok {
			return Validator{}, etlerr.NewConfigurationErrorf("regexp validator requires a pattern")
		}
		return Regexp(pattern)
	case KindNA:
		return NA(), nil
	case KindNotNA:
		return NotNA(), nil
	case KindMinMax:
		minimum, okMin := c.Params["min"]
		maximum, okMax := c.Params["max"]
		if !okMin || !okMax {
			return Validator{}, etlerr.NewConfigurationErrorf("minmax validator requires min and max")
		}
		inclusive := Inclusive(c.Params["inclusive"])
		if layout, ok := c.Params["layout"]; ok {
			return MinMaxDate(minimum, maximum, inclusive, layout)
		}
		return MinMax(minimum, maximum, inclusive)
	case KindDate:
		return Date(c.Params["layout"]), nil
	}
	return Validator{}, etlerr.NewConfigurationErrorf("unknown validator kind %q", c.Kind)
}

// FromConfig builds a registry from declarations.
func FromConfig(cfgs []Config) (*Registry, error) {
	r, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, c := range cfgs {
		v, err := c.Build()
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", c.Column)
		}
		if err := r.RegisterValidator(c.Column, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}
