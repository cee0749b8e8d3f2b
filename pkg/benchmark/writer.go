package benchmark

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Writer maintains one CSV file per metric. Every file carries the
// scheme names as header and one value column per scheme.
type Writer struct {
	dir     string
	columns []string
	files   map[string]*csv.Writer
	handles map[string]*os.File
}

// NewWriter creates the output directory if needed. columns become the
// header of every metric file.
func NewWriter(dir string, columns []string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	return &Writer{
		dir:     dir,
		columns: columns,
		files:   make(map[string]*csv.Writer),
		handles: make(map[string]*os.File),
	}, nil
}

// AddFile opens <dir>/<metric>.csv and writes the header row.
func (w *Writer) AddFile(metric string) error {
	if _, ok := w.files[metric]; ok {
		return errors.Errorf("metric file %q already open", metric)
	}
	f, err := os.Create(filepath.Join(w.dir, metric+".csv"))
	if err != nil {
		return errors.Wrapf(err, "create metric file %q", metric)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(w.columns); err != nil {
		f.Close()
		return errors.Wrapf(err, "write header of %q", metric)
	}
	w.files[metric] = cw
	w.handles[metric] = f
	return nil
}

// WriteRecord appends one row to the metric file. The record must hold
// one value per scheme column; failed measurements are recorded as -1.
func (w *Writer) WriteRecord(metric string, record []int64) error {
	cw, ok := w.files[metric]
	if !ok {
		return errors.Errorf("metric file %q not open", metric)
	}
	if len(record) != len(w.columns) {
		return errors.Errorf("metric %q: got %d values for %d columns", metric, len(record), len(w.columns))
	}
	row := make([]string, len(record))
	for i, v := range record {
		row[i] = strconv.FormatInt(v, 10)
	}
	return errors.Wrapf(cw.Write(row), "write record of %q", metric)
}

// Close flushes and closes every open metric file.
func (w *Writer) Close() error {
	var first error
	for metric, cw := range w.files {
		cw.Flush()
		if err := cw.Error(); err != nil && first == nil {
			first = errors.Wrapf(err, "flush %q", metric)
		}
	}
	for metric, f := range w.handles {
		if err := f.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %q", metric)
		}
	}
	return first
}
