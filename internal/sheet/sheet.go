// Package sheet decodes tabular documents (xlsx workbooks and csv exports)
// into rows keyed by header label.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrDecode is returned when a document cannot be decoded.
var ErrDecode = errors.New("decode document")

// Row maps a header label to the raw cell text of one data row.
type Row map[string]string

// Format identifies a supported document format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a format from the file extension, falling back to
// content sniffing. Workbooks are zip containers.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Decode turns a document into rows. The first row of the first sheet is the
// header; fully blank rows are skipped and missing cells read as "".
func Decode(name string, data []byte) ([]Row, error) {
	var (
		grid [][]string
		err  error
	)
	switch DetectFormat(name, data) {
	case FormatXLSX:
		grid, err = readWorkbook(data)
	default:
		grid, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, name, err)
	}
	return toRows(grid), nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	// Raw values keep numeric cells free of display formatting ("1,5" vs 1.5).
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// sniffDelimiter prefers ';' when the header line has more of them than ','.
// Spreadsheet exports from pt-BR locales use ';'.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func toRows(grid [][]string) []Row {
	if len(grid) == 0 {
		return []Row{}
	}

	header := make([]string, len(grid[0]))
	seen := make(map[string]int)
	for i, label := range grid[0] {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if n := seen[label]; n > 0 {
			seen[label] = n + 1
			label = label + "_" + strconv.Itoa(n)
		} else {
			seen[label] = 1
		}
		header[i] = label
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(header))
		for i, label := range header {
			if label == "" {
				continue
			}
			if i < len(cells) {
				row[label] = cells[i]
			} else {
				row[label] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
