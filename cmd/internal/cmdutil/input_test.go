package cmdutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/config"
	"github.com/etlkit/etl/etlerr"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestCheckInputs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sales_20240101.csv")
	require.NoError(t, os.WriteFile(file, []byte("a\n"), 0600))
	missing := filepath.Join(dir, "missing")

	for _, tc := range []struct {
		desc          string
		dir           string
		files         []string
		start         string
		end           string
		expected      Inputs
		expectedError string
	}{
		{
			desc:     "dir only",
			dir:      dir,
			expected: Inputs{Dir: dir},
		},
		{
			desc:     "files and dates",
			files:    []string{file},
			start:    "2024-01-01",
			end:      "2024-02-01",
			expected: Inputs{Files: []string{file}, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		{
			desc:          "nothing",
			expectedError: "invalid flags: an input directory (--input-dir) or input files are required",
		},
		{
			desc:          "missing dir",
			dir:           missing,
			expectedError: "invalid flags: input directory " + missing + " does not exist",
		},
		{
			desc:          "dir is a file",
			dir:           file,
			expectedError: "invalid flags: input directory " + file + " is not a directory",
		},
		{
			desc:          "missing file",
			files:         []string{missing},
			expectedError: "invalid flags: input file " + missing + " does not exist",
		},
		{
			desc:          "file is a dir",
			files:         []string{dir},
			expectedError: "invalid flags: input file " + dir + " is a directory",
		},
		{
			desc:          "bad start date",
			dir:           dir,
			start:         "01/02/2024",
			expectedError: `invalid flags: invalid start date "01/02/2024", expected YYYY-MM-DD`,
		},
		{
			desc:          "bad end date",
			dir:           dir,
			end:           "2024-13-01",
			expectedError: `invalid flags: invalid end date "2024-13-01", expected YYYY-MM-DD`,
		},
		{
			desc:          "end before start",
			dir:           dir,
			start:         "2024-01-01",
			end:           "2024-01-01",
			expectedError: "invalid flags: end date 2024-01-01 must be after start date 2024-01-01",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ret, err := checkInputs(tc.dir, tc.files, tc.start, tc.end)
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
				var flagsErr *etlerr.FlagsError
				require.True(t, errors.As(err, &flagsErr))
				return
			}
			require.NoError(t, err)
			if tc.end != "" {
				require.NotNil(t, ret.EndDate)
				require.Equal(t, tc.end, ret.EndDate.Format(time.DateOnly))
				ret.EndDate = nil
			}
			require.Equal(t, tc.expected, ret)
		})
	}
}

func TestApplyInputFlags(t *testing.T) {
	job := &config.Job{
		Input:  config.Input{Dir: "/config", Pattern: "*.csv"},
		Output: config.Output{ReportDir: "reports"},
	}
	inputFlags{}.apply(job)
	require.Equal(t, "/config", job.Input.Dir)

	inputFlags{dir: "/flag", recurse: true, pattern: "*.txt", reportDir: "/out"}.apply(job)
	require.Equal(t, config.Input{Dir: "/flag", Pattern: "*.txt", Recurse: true}, job.Input)
	require.Equal(t, "/out", job.Output.ReportDir)
}

func TestLoggerLevel(t *testing.T) {
	cmd := &cobra.Command{}
	RegisterLoggerFlags(cmd)

	logger, err := Logger(cmd, "debug")
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	require.NoError(t, cmd.PersistentFlags().Set("level", "warn"))
	logger, err = Logger(cmd, "debug")
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	require.NoError(t, cmd.PersistentFlags().Set("level", "info"))
}
