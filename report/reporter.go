// Package report publishes what happened to each processed input file.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etlkit/etl/dataframe"
	"github.com/rs/zerolog"
)

type ReportableObject interface{}

// StatusReport is a progress message.
type StatusReport struct {
	Info string
}

// FileReport summarizes a successfully processed input file.
type FileReport struct {
	RunID string
	File  string
	// NumInput is the number of rows read from File.
	NumInput int
	// Result holds the rows kept after every stage.
	Result *dataframe.Table
	// Report holds the rows with issues. It may be empty.
	Report *dataframe.Table
	// ReportPath is where the report is written. Empty for no report file.
	ReportPath string
	// Recyclable holds the rows sent to the recycle bin, if any.
	Recyclable     *dataframe.Table
	RecyclablePath string
}

// FileFailure reports an input file which could not be processed.
type FileFailure struct {
	RunID string
	File  string
	Err   error
	// MovedTo is where the file was moved, if it was.
	MovedTo string
}

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case StatusReport:
		l.Info().Msg(obj.Info)
	case FileReport:
		numReported := 0
		if obj.Report != nil {
			numReported = obj.Report.Len()
		}
		numRecycled := 0
		if obj.Recyclable != nil {
			numRecycled = obj.Recyclable.Len()
		}
		l.Info().
			Str("run_id", obj.RunID).
			Str("input_file", obj.File).
			Int("num_input", obj.NumInput).
			Int("num_result", obj.Result.Len()).
			Int("num_reported", numReported).
			Int("num_recycled", numRecycled).
			Msgf("input file processed")
		if obj.Report != nil {
			l.reportRows(obj)
		}
	case FileFailure:
		evt := l.Error().
			Str("run_id", obj.RunID).
			Str("input_file", obj.File).
			Err(obj.Err)
		if obj.MovedTo != "" {
			evt = evt.Str("moved_to", obj.MovedTo)
		}
		evt.Msgf("input file rejected")
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

// reportRows logs each reported row at debug level with its error messages.
func (l LogReporter) reportRows(obj FileReport) {
	if l.GetLevel() > zerolog.DebugLevel {
		return
	}
	names := obj.Report.ColumnNames()
	for i, id := range obj.Report.Index() {
		row := obj.Report.Row(i)
		errs := zerolog.Dict()
		for j, name := range names {
			if row[j] == nil || !isErrorColumn(name) {
				continue
			}
			errs = errs.Str(name, dataframe.FormatValue(row[j]))
		}
		l.Debug().
			Str("input_file", obj.File).
			Int64("row", int64(id)).
			Dict("errors", errs).
			Msgf("reported row")
	}
}

func isErrorColumn(name string) bool {
	return strings.HasSuffix(name, "_error")
}

func (l LogReporter) Close() {
}

// CSVReporter writes reports and recyclable rows of processed files as CSV.
// Empty reports are not written.
type CSVReporter struct {
	Logger zerolog.Logger
}

// RunIDColumn is added to written reports.
const RunIDColumn = "run_id"

func (c CSVReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case FileReport:
		if obj.ReportPath != "" && obj.Report != nil && obj.Report.Len() > 0 {
			if err := writeTable(obj.ReportPath, withRunID(obj.Report, obj.RunID)); err != nil {
				c.Logger.Err(err).Str("path", obj.ReportPath).Msgf("error writing report")
			} else {
				c.Logger.Info().Str("path", obj.ReportPath).Msgf("report written")
			}
		}
		if obj.RecyclablePath != "" && obj.Recyclable != nil && obj.Recyclable.Len() > 0 {
			if err := writeTable(obj.RecyclablePath, obj.Recyclable); err != nil {
				c.Logger.Err(err).Str("path", obj.RecyclablePath).Msgf("error writing recyclable rows")
			} else {
				c.Logger.Info().Str("path", obj.RecyclablePath).Msgf("recyclable rows written")
			}
		}
	}
}

func (c CSVReporter) Close() {
}

func withRunID(t *dataframe.Table, runID string) *dataframe.Table {
	if runID == "" || t.HasColumn(RunIDColumn) {
		return t
	}
	vals := make([]dataframe.Value, t.Len())
	for i := range vals {
		vals[i] = runID
	}
	ret, err := t.WithColumn(dataframe.NewColumn(RunIDColumn, vals))
	if err != nil {
		return t
	}
	return ret
}

func writeTable(path string, t *dataframe.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return dataframe.WriteCSVFile(path, t, true)
}
