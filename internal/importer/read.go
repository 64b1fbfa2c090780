package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"umrah-backoffice/internal/domain"
)

// MaxFileSize bounds how much of an upload is read.
const MaxFileSize = 10 << 20

// maxXLSRows caps ReadAllCells on legacy workbooks.
const maxXLSRows = 100000

// ReadRows returns the cells of the first worksheet as strings. The format is
// picked from the file extension; anything that is not .xlsx, .xlsm or .xls is
// read as CSV.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", filename, domain.ErrImportParse, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s is larger than %d bytes: %w", filename, MaxFileSize, domain.ErrImportParse)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", filename, domain.ErrImportParse)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	default:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %v", filename, domain.ErrImportParse, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s has no rows: %w", filename, domain.ErrImportParse)
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no worksheet found")
	}
	return file.GetRows(sheet)
}

// readXLS recovers from panics inside the legacy decoder, which does not
// validate every record offset.
func readXLS(data []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("malformed workbook: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("no worksheet found")
	}
	return workbook.ReadAllCells(maxXLSRows), nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1 // rosters rarely keep a fixed column count
	r.LazyQuotes = true
	return r.ReadAll()
}
