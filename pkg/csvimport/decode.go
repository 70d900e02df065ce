package csvimport

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Decode sniffs the payload and tokenizes it, accepting CSV text or an
// XLSX workbook (first sheet). Anything else is a structural error.
func Decode(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoData
	}

	mime := mimetype.Detect(data)
	switch {
	case mime.Is(xlsxMIME):
		return decodeXLSX(data)
	case strings.HasPrefix(mime.String(), "text/"):
		return Parse(data)
	default:
		return nil, NewStructuralError("unsupported file type %s, expected CSV or XLSX", mime.String())
	}
}

func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewStructuralError("could not read spreadsheet: %v", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewStructuralError("could not read spreadsheet rows: %v", err)
	}
	return FromRecords(records)
}
