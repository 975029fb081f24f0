package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/etlkit/etl/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCSVReporter(t *testing.T) {
	dir := t.TempDir()
	input := testutils.MakeTable(t, testutils.Strings("x", "1", "2", "3"))
	rep, err := input.Filter([]bool{false, true, false})
	require.NoError(t, err)
	empty, err := input.Filter([]bool{false, false, false})
	require.NoError(t, err)

	reportPath := filepath.Join(dir, "reports", "in_20240101000000.csv")
	recyclablePath := filepath.Join(dir, "recyclable", "in_20240101000000.csv")
	r := CombinedReporter{Reporters: []Reporter{
		CSVReporter{Logger: zerolog.Nop()},
		LogReporter{Logger: zerolog.Nop()},
	}}
	defer r.Close()
	r.Report(FileReport{
		RunID:          "run",
		File:           "in.csv",
		NumInput:       3,
		Result:         input,
		Report:         rep,
		ReportPath:     reportPath,
		Recyclable:     empty,
		RecyclablePath: recyclablePath,
	})

	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.Equal(t, "index,x,run_id\n1,2,run\n", string(b))
	_, err = os.Stat(recyclablePath)
	require.True(t, os.IsNotExist(err))
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	l := LogReporter{Logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	input := testutils.MakeTable(
		t,
		testutils.Strings("x", "a", "b"),
		testutils.Strings("validate_na_x_error", "invalid x: na", ""),
	)
	l.Report(StatusReport{Info: "starting"})
	l.Report(FileReport{RunID: "r1", File: "in.csv", NumInput: 2, Result: input, Report: input})
	l.Report(FileFailure{RunID: "r1", File: "bad.csv", Err: errors.New("boom"), MovedTo: "bad/bad.csv"})
	l.Report(42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	require.Contains(t, lines[0], `"message":"starting"`)
	require.Contains(t, lines[1], `"num_reported":2`)
	require.Contains(t, lines[2], `"errors":{"validate_na_x_error":"invalid x: na"}`)
	require.Contains(t, lines[3], `"errors":{}`)
	require.Contains(t, lines[4], `"moved_to":"bad/bad.csv"`)
	require.Contains(t, lines[5], `"type":"int"`)
}
