package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/KaramelBytes/hcpdash/internal/table"
)

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	return hasExt(filename, ".csv")
}

// Read parses a CSV export. A UTF-8 or UTF-16 byte order mark is honoured; without one
// the content is read as UTF-8.
func (csvReader) Read(name string, content []byte) ([]table.Raw, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(transform.NewReader(bytes.NewReader(content), dec))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []table.Raw{{Source: name}}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	out := table.Raw{Source: name, Columns: headerRow(header)}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(out.Rows)+1, err)
		}
		row := make([]string, len(rec))
		copy(row, rec)
		out.Rows = append(out.Rows, row)
	}
	return []table.Raw{out}, nil
}
