package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// csvSource streams a header-mapped CSV file one row at a time. The
// synchronous Read loop is the backpressure: nothing is consumed while
// the previous row's writes are in flight.
type csvSource struct {
	file   *os.File
	reader *csv.Reader
	header []string
}

// openCSVSource opens a CSV file and consumes its header row.
func openCSVSource(path string) (*csvSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // rows may omit trailing optional fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("read csv header: empty file")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return &csvSource{file: file, reader: reader, header: header}, nil
}

// Next returns the next row keyed by header name, or io.EOF at end of
// stream. Any other error is a stream-level failure and fatal to the run.
func (s *csvSource) Next() (map[string]string, error) {
	fields, err := s.reader.Read()
	if err != nil {
		return nil, err
	}

	row := make(map[string]string, len(s.header))
	for i, name := range s.header {
		if i < len(fields) {
			row[name] = strings.TrimSpace(fields[i])
		}
	}
	return row, nil
}

// Close releases the underlying file.
func (s *csvSource) Close() error {
	return s.file.Close()
}
