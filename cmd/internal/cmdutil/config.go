package cmdutil

import (
	"github.com/etlkit/etl/config"
	"github.com/spf13/cobra"
)

var configOpts = config.Options{}

func RegisterConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&configOpts.Root,
		"config-path",
		"",
		"folder holding the configuration files (defaults to $"+config.EnvConfigPath+" or the working directory)",
	)
	cmd.PersistentFlags().StringVar(
		&configOpts.Context,
		"context",
		"",
		"configuration context, one of dev, uat, prod, local-testing, ci-testing (defaults to $"+config.EnvContext+" or local-testing)",
	)
}

// LoadJob loads the job configuration and applies the input flags over it.
func LoadJob() (*config.Job, error) {
	job, err := config.Load(configOpts)
	if err != nil {
		return nil, err
	}
	inputFlagsInst.apply(job)
	return job, job.Validate()
}
