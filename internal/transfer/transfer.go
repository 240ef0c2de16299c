// Package transfer reads and writes tabular files for export, import
// templates and bulk upload. CSV and XLSX are supported.
package transfer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a tabular file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ErrEmpty is returned when a file has no header row.
var ErrEmpty = errors.New("file has no header row")

// ParseFormat accepts "csv" or "xlsx"; anything else is rejected.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV, "":
		return CSV, nil
	case XLSX, "excel":
		return XLSX, nil
	default:
		return "", fmt.Errorf("unsupported format %q: must be csv or xlsx", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Ext returns the file extension of f including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Row is one data row of an imported file.
type Row struct {
	// Line is the 1-based row number in the file; the header is line 1.
	Line   int
	Values map[string]string
}

// Write writes header and rows to w in format f.
func Write(w io.Writer, f Format, sheet string, header []string, rows [][]string) error {
	if f == XLSX {
		return writeXLSX(w, sheet, header, rows)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, sheet, i+2, r); err != nil {
			return err
		}
	}
	if len(header) > 0 {
		last, err := excelize.ColumnNumberToName(len(header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", last, 22); err != nil {
			return err
		}
	}
	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cell, &row)
}

// Read parses an uploaded file. The format is taken from the file name
// extension, falling back to content sniffing. Header names are
// normalised to lower snake case and blank rows are skipped.
func Read(r io.Reader, filename string) ([]string, []Row, error) {
	br := bufio.NewReader(r)
	format := CSV
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		format = XLSX
	case ".csv":
	default:
		if magic, _ := br.Peek(4); bytes.Equal(magic, []byte("PK\x03\x04")) {
			format = XLSX
		}
	}

	var (
		records [][]string
		lines   []int
		err     error
	)
	if format == XLSX {
		records, err = readXLSX(br)
		lines = make([]int, len(records))
		for i := range lines {
			lines[i] = i + 1
		}
	} else {
		records, lines, err = readCSV(br)
	}
	if err != nil {
		return nil, nil, err
	}
	return toRows(records, lines)
}

// readCSV returns the records and the file line each one starts on.
func readCSV(r io.Reader) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	return rows, nil
}

func toRows(records [][]string, lines []int) ([]string, []Row, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, ErrEmpty
	}

	header := make([]string, len(records[start]))
	for i, h := range records[start] {
		header[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(records)-start-1)
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		values := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" || j >= len(rec) {
				continue
			}
			values[name] = strings.TrimSpace(rec[j])
		}
		rows = append(rows, Row{Line: lines[i], Values: values})
	}
	return header, rows, nil
}

// NormalizeHeader turns "Media Name" or "\ufeffmedia-name" into "media_name".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
