// Package exporter persists screening tables as CSV or XLSX files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/xuri/excelize/v2"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Default file names of the two screens.
const (
	MovingAverageFile = "stocks_to_buy"
	RSICapFile        = "low_rsi_high_cap_stocks"
)

const sheetName = "Results"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFormat converts a config value into a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Writer writes tables under Dir.
type Writer struct {
	Dir    string
	Format Format
	logger log.Logger
}

// NewWriter creates a writer.
func NewWriter(dir string, format Format, logger log.Logger) *Writer {
	if format == "" {
		format = FormatCSV
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Writer{Dir: dir, Format: format, logger: logger}
}

// Write stores records, header first, as <Dir>/<name>.<format> and returns the path.
func (w *Writer) Write(name string, records [][]string) (string, error) {
	path := filepath.Join(w.Dir, name+"."+string(w.Format))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	var err error
	switch w.Format {
	case FormatXLSX:
		err = WriteXLSX(path, records)
	default:
		err = WriteCSV(path, records)
	}
	if err != nil {
		return "", err
	}
	level.Info(w.logger).Log("msg", "results written", "path", path, "rows", max(len(records)-1, 0))
	return path, nil
}

// WriteCSV writes records to path with a UTF-8 BOM so spreadsheet tools
// detect the encoding of non-ASCII names.
func WriteCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	writer := csv.NewWriter(file)
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// WriteXLSX writes records to a single-sheet workbook at path.
func WriteXLSX(path string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if len(records) > 0 {
		if err := f.SetPanes(sheetName, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
