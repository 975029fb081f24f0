package dataframe

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const csvStatusEvery = 100000

// ReadCSV binds a CSV stream to a table. The first record is the header;
// empty cells are read as nulls. Rows are indexed in file order from 0.
func ReadCSV(in io.Reader, logger zerolog.Logger) (*Table, error) {
	r := csv.NewReader(in)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("missing CSV header")
		}
		return nil, errors.Wrap(err, "error reading CSV header")
	}
	names := make([]string, len(header))
	copy(names, header)

	values := make([][]Value, len(names))
	numRows := 0
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "error reading CSV record %d", numRows+1)
		}
		for i, s := range record {
			var v Value
			if s != "" {
				v = s
			}
			values[i] = append(values[i], v)
		}
		numRows++
		if numRows%csvStatusEvery == 0 {
			logger.Debug().Int("num_rows", numRows).Msgf("csv read status")
		}
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		if values[i] == nil {
			values[i] = []Value{}
		}
		cols[i] = NewColumn(name, values[i])
	}
	return New(SequentialIndex(numRows), cols...)
}

// ReadCSVFile reads the CSV file at path.
func ReadCSVFile(path string, logger zerolog.Logger) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := ReadCSV(f, logger)
	if err != nil {
		return nil, errors.CombineErrors(err, f.Close())
	}
	return t, f.Close()
}

// WriteCSV writes the table with a header line. The row identity is written
// as a leading "index" column when withIndex is set.
func WriteCSV(out io.Writer, t *Table, withIndex bool) error {
	w := csv.NewWriter(out)
	header := t.ColumnNames()
	if withIndex {
		header = append([]string{"index"}, header...)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, id := range t.index {
		offset := 0
		if withIndex {
			record[0] = FormatValue(int64(id))
			offset = 1
		}
		for j, c := range t.columns {
			record[j+offset] = FormatValue(c.Value(i))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCSVFile creates (or truncates) path and writes the table to it.
func WriteCSVFile(path string, t *Table, withIndex bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t, withIndex); err != nil {
		return errors.CombineErrors(err, f.Close())
	}
	return f.Close()
}
