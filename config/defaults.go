package config

import (
	"github.com/etlkit/etl/inputfile"
	"github.com/spf13/viper"
)

// SetDefaults configures the built-in defaults, the lowest configuration
// layer. Environment variables only apply to keys known to v, so every
// scalar setting has a default here.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.dir", "")
	v.SetDefault("input.pattern", "*.csv")
	v.SetDefault("input.recurse", false)
	v.SetDefault("input.date_pattern", inputfile.DefaultDatePattern)
	v.SetDefault("input.name_prefix", "")

	v.SetDefault("output.bad_dir", inputfile.DefaultBadDir)
	v.SetDefault("output.archive_dir", inputfile.DefaultArchiveDir)
	v.SetDefault("output.recyclable_dir", inputfile.DefaultRecyclableDir)
	v.SetDefault("output.report_dir", inputfile.DefaultReportDir)

	v.SetDefault("log_level", "info")
	v.SetDefault("concurrency", 0)
	v.SetDefault("policy_file", "")
}

// Dirs returns the output folders of the job.
func (j *Job) Dirs() inputfile.Dirs {
	return inputfile.Dirs{
		Bad:        j.Output.BadDir,
		Archive:    j.Output.ArchiveDir,
		Recyclable: j.Output.RecyclableDir,
		Report:     j.Output.ReportDir,
	}
}
