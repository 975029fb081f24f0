// Package config loads the job configuration from layered files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/etlerr"
	"github.com/etlkit/etl/policy"
	"github.com/etlkit/etl/validate"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvContext selects the context folder under config.d.
	EnvContext = "APP_ENV"
	// EnvConfigPath is the folder holding the configuration files.
	EnvConfigPath = "APP_CONFIG_PATH"

	envPrefix = "APP"

	DefaultContext = "local-testing"
)

// Contexts are the accepted values of APP_ENV.
var Contexts = []string{"dev", "uat", "prod", "local-testing", "ci-testing"}

var extensions = []string{"yaml", "yml", "json"}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

type Input struct {
	Dir         string `mapstructure:"dir"`
	Pattern     string `mapstructure:"pattern" validate:"required_with=Dir"`
	Recurse     bool   `mapstructure:"recurse"`
	DatePattern string `mapstructure:"date_pattern"`
	NamePrefix  string `mapstructure:"name_prefix"`
}

type Output struct {
	BadDir        string `mapstructure:"bad_dir" validate:"required"`
	ArchiveDir    string `mapstructure:"archive_dir" validate:"required"`
	RecyclableDir string `mapstructure:"recyclable_dir" validate:"required"`
	ReportDir     string `mapstructure:"report_dir" validate:"required"`
}

// ColumnType declares the type of a column, or the type of identifier it
// holds.
type ColumnType struct {
	Column string `mapstructure:"column" validate:"required"`
	Type   string `mapstructure:"type" validate:"required"`
}

// ColumnTaxonomy binds a column to a taxonomy.
type ColumnTaxonomy struct {
	Column   string `mapstructure:"column" validate:"required"`
	Mnemonic string `mapstructure:"mnemonic" validate:"required"`
}

// Code is one entry of a taxonomy.
type Code struct {
	Code  string `mapstructure:"code" validate:"required"`
	Value string `mapstructure:"value"`
}

type Taxonomy struct {
	Mnemonic string `mapstructure:"mnemonic" validate:"required"`
	Codes    []Code `mapstructure:"codes" validate:"dive"`
}

// Job is the configuration of an ETL job.
//
// Column names are given as list entries: map keys are lower cased when
// loaded.
type Job struct {
	Context     string `mapstructure:"-" validate:"required"`
	Input       Input  `mapstructure:"input"`
	Output      Output `mapstructure:"output"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=0"`

	// PolicyFile is a YAML or JSON policy document. It excludes Policy, whose
	// per column keys are lower cased.
	PolicyFile string         `mapstructure:"policy_file" validate:"excluded_with=Policy"`
	Policy     *policy.Policy `mapstructure:"policy"`

	Validators  []validate.Config `mapstructure:"validators" validate:"dive"`
	Schema      []ColumnType      `mapstructure:"schema" validate:"dive"`
	Identifiers []ColumnType      `mapstructure:"identifiers" validate:"dive"`
	Mapped      []ColumnTaxonomy  `mapstructure:"mapped" validate:"dive"`
	Taxonomies  []Taxonomy        `mapstructure:"taxonomies" validate:"dive"`
}

// Options locate the configuration. Empty fields are read from APP_CONFIG_PATH
// and APP_ENV.
type Options struct {
	Root    string
	Context string
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = os.Getenv(EnvConfigPath)
	}
	if o.Root == "" {
		o.Root = "."
	}
	if o.Context == "" {
		o.Context = os.Getenv(EnvContext)
	}
	if o.Context == "" {
		o.Context = DefaultContext
	}
	return o
}

// Load reads the job configuration. From lowest to highest precedence:
// defaults, <root>/config.default.*, <root>/config.*,
// <root>/config.d/<context>/config.* and APP_* environment variables.
func Load(opts Options) (*Job, error) {
	opts = opts.withDefaults()
	if !isContext(opts.Context) {
		return nil, etlerr.NewConfigurationErrorf(
			"unknown context %q, expected one of %s",
			opts.Context,
			strings.Join(Contexts, ", "),
		)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	for _, layer := range layers(opts) {
		if err := mergeLayer(v, layer); err != nil {
			return nil, err
		}
	}

	job := &Job{}
	if err := v.Unmarshal(job, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, etlerr.NewConfigurationErrorf("error decoding configuration: %v", err)
	}
	job.Context = opts.Context
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

func isContext(c string) bool {
	for _, ctx := range Contexts {
		if ctx == c {
			return true
		}
	}
	return false
}

// layers returns the configuration file stems, lowest precedence first.
func layers(opts Options) []string {
	return []string{
		filepath.Join(opts.Root, "config.default"),
		filepath.Join(opts.Root, "config"),
		filepath.Join(opts.Root, "config.d", opts.Context, "config"),
	}
}

func mergeLayer(v *viper.Viper, stem string) error {
	for _, ext := range extensions {
		path := stem + "." + ext
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "error reading %s", path)
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return etlerr.NewConfigurationErrorf("error reading %s: %v", path, err)
		}
	}
	return nil
}

// Validate checks the struct tags of j and its policy.
func (j *Job) Validate() error {
	if err := structValidator.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return etlerr.NewConfigurationErrorf("%v", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msg := fmt.Sprintf("%s: rule %s", fe.Namespace(), fe.Tag())
			if fe.Param() != "" {
				msg += " " + fe.Param()
			}
			msgs = append(msgs, fmt.Sprintf("%s, got %q", msg, fmt.Sprint(fe.Value())))
		}
		return etlerr.NewConfigurationErrorf("%s", strings.Join(msgs, "; "))
	}
	if j.Policy != nil {
		if err := j.Policy.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// ResolvePolicy returns the policy of the job. Without a policy file or an
// inline policy, the job is strict.
func (j *Job) ResolvePolicy() (policy.Policy, error) {
	switch {
	case j.PolicyFile != "":
		return policy.LoadFile(j.PolicyFile)
	case j.Policy != nil:
		return *j.Policy, nil
	}
	return policy.Strict(), nil
}

// Registry builds the validator registry of the job.
func (j *Job) Registry() (*validate.Registry, error) {
	return validate.FromConfig(j.Validators)
}

// Columns returns the column types as a map.
func Columns(types []ColumnType) map[string]string {
	ret := make(map[string]string, len(types))
	for _, t := range types {
		ret[t.Column] = t.Type
	}
	return ret
}

// TaxonomyResolver maps each mapped column to its mnemonic.
func (j *Job) TaxonomyResolver() map[string]string {
	ret := make(map[string]string, len(j.Mapped))
	for _, m := range j.Mapped {
		ret[m.Column] = m.Mnemonic
	}
	return ret
}

// Mappings returns the code lists keyed by mnemonic.
func (j *Job) Mappings() map[string]map[string]string {
	ret := make(map[string]map[string]string, len(j.Taxonomies))
	for _, t := range j.Taxonomies {
		codes := make(map[string]string, len(t.Codes))
		for _, c := range t.Codes {
			codes[c.Code] = c.Value
		}
		ret[t.Mnemonic] = codes
	}
	return ret
}
