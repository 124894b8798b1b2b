// Package ingest reads seed files (master data and sales history) into typed
// records. Files may be CSV or the first sheet of an XLSX workbook.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data record addressed by header name.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.values[column])
}

// Table is a header plus data rows.
type Table struct {
	Path   string
	Header []string
	Rows   []Row
}

// ReadTable loads a CSV or XLSX file. Header names are lower-cased and
// trimmed. CSV files may be comma or semicolon separated.
func ReadTable(path string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s has no header row", path)
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	}

	table := &Table{Path: path, Header: header}
	for i, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		values := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(record) {
				values[col] = record[j]
			}
		}
		table.Rows = append(table.Rows, Row{Line: i + 2, values: values})
	}
	return table, nil
}

// Require fails when any of columns is missing from the header.
func (t *Table) Require(columns ...string) error {
	present := make(map[string]struct{}, len(t.Header))
	for _, col := range t.Header {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range columns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("file %s is missing columns: %s", t.Path, strings.Join(missing, ", "))
	}
	return nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(file)

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record from %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// sniffDelimiter peeks at the first line and rewinds the file.
func sniffDelimiter(file *os.File) rune {
	buf := make([]byte, 4096)
	n, _ := file.Read(buf)
	_, _ = file.Seek(0, io.SeekStart)

	line := string(buf[:n])
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", path, err)
	}
	return records, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
