package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/hcpdash/internal/table"
)

// oleMagic prefixes legacy BIFF (.xls) workbooks, which excelize cannot open.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var errLegacyWorkbook = errors.New("legacy binary .xls workbook is not supported; re-save it as .xlsx")

type workbookReader struct{}

func (workbookReader) CanRead(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm", ".xls")
}

// Read returns one raw table per sheet. The first row of each sheet is its header.
func (workbookReader) Read(name string, content []byte) ([]table.Raw, error) {
	if bytes.HasPrefix(content, oleMagic) {
		return nil, errLegacyWorkbook
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var out []table.Raw
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		raw := table.Raw{Source: name, Sheet: sheet}
		if len(rows) > 0 {
			raw.Columns = headerRow(rows[0])
			raw.Rows = rows[1:]
		}
		out = append(out, raw)
	}
	return out, nil
}
