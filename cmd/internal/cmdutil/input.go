package cmdutil

import (
	"os"
	"time"

	"github.com/etlkit/etl/config"
	"github.com/etlkit/etl/etlerr"
	"github.com/spf13/cobra"
)

type inputFlags struct {
	dir       string
	recurse   bool
	pattern   string
	startDate string
	endDate   string
	reportDir string
}

var inputFlagsInst = inputFlags{}

func RegisterInputFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&inputFlagsInst.dir,
		"input-dir",
		"",
		"folder searched for input files, overrides input.dir",
	)
	cmd.PersistentFlags().BoolVar(
		&inputFlagsInst.recurse,
		"recurse",
		false,
		"whether sub folders of the input folder are searched",
	)
	cmd.PersistentFlags().StringVar(
		&inputFlagsInst.pattern,
		"input-filename-pattern",
		"",
		"glob matched against input file names, overrides input.pattern",
	)
	cmd.PersistentFlags().StringVar(
		&inputFlagsInst.startDate,
		"start-date",
		"",
		"business date (YYYY-MM-DD) of every input file, instead of the date in their name",
	)
	cmd.PersistentFlags().StringVar(
		&inputFlagsInst.endDate,
		"end-date",
		"",
		"end (YYYY-MM-DD) of the validity period of the loaded records, open ended if unset",
	)
	cmd.PersistentFlags().StringVar(
		&inputFlagsInst.reportDir,
		"report-dir",
		"",
		"folder where reports are written, overrides output.report_dir",
	)
}

func (f inputFlags) apply(job *config.Job) {
	if f.dir != "" {
		job.Input.Dir = f.dir
	}
	if f.recurse {
		job.Input.Recurse = true
	}
	if f.pattern != "" {
		job.Input.Pattern = f.pattern
	}
	if f.reportDir != "" {
		job.Output.ReportDir = f.reportDir
	}
}

// Inputs is the checked selection of input files of a run.
type Inputs struct {
	Dir   string
	Files []string
	// StartDate is zero unless given, in which case it applies to every file.
	StartDate time.Time
	EndDate   *time.Time
}

// CheckInputs validates the input folder of job, the input files given as
// arguments and the date flags.
func CheckInputs(job *config.Job, files []string) (Inputs, error) {
	return checkInputs(job.Input.Dir, files, inputFlagsInst.startDate, inputFlagsInst.endDate)
}

func checkInputs(dir string, files []string, startDate, endDate string) (Inputs, error) {
	if dir == "" && len(files) == 0 {
		return Inputs{}, etlerr.NewFlagsErrorf("an input directory (--input-dir) or input files are required")
	}
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return Inputs{}, etlerr.NewFlagsErrorf("input directory %s does not exist", dir)
			}
			return Inputs{}, err
		}
		if !info.IsDir() {
			return Inputs{}, etlerr.NewFlagsErrorf("input directory %s is not a directory", dir)
		}
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			if os.IsNotExist(err) {
				return Inputs{}, etlerr.NewFlagsErrorf("input file %s does not exist", f)
			}
			return Inputs{}, err
		}
		if info.IsDir() {
			return Inputs{}, etlerr.NewFlagsErrorf("input file %s is a directory", f)
		}
	}

	ret := Inputs{Dir: dir, Files: files}
	if startDate != "" {
		d, err := time.Parse(time.DateOnly, startDate)
		if err != nil {
			return Inputs{}, etlerr.NewFlagsErrorf("invalid start date %q, expected YYYY-MM-DD", startDate)
		}
		ret.StartDate = d
	}
	if endDate != "" {
		d, err := time.Parse(time.DateOnly, endDate)
		if err != nil {
			return Inputs{}, etlerr.NewFlagsErrorf("invalid end date %q, expected YYYY-MM-DD", endDate)
		}
		if !ret.StartDate.IsZero() && !d.After(ret.StartDate) {
			return Inputs{}, etlerr.NewFlagsErrorf("end date %s must be after start date %s", endDate, startDate)
		}
		ret.EndDate = &d
	}
	return ret, nil
}
