// Package export renders processing results as output artifacts: the JSON
// result file and an XLSX workbook for batch summaries.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteResultJSON writes one ProcessingResult as indented JSON to path.
func (s *Service) WriteResultJSON(result entity.ProcessingResult, path string) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	s.logger.Info("export.json.ok", "path", path, "bytes", len(b))
	return nil
}

// ExportResultsXLSX returns an XLSX workbook (as bytes) summarizing a batch:
// one row per document on the "Invoices" sheet and one row per line item on
// the "LineItems" sheet.
func (s *Service) ExportResultsXLSX(results []entity.ProcessingResult) ([]byte, error) {
	f := excelize.NewFile()

	const invoiceSheet = "Invoices"
	const itemSheet = "LineItems"

	if err := renameDefaultSheet(f, invoiceSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return nil, err
	}

	invoiceHeaders := []string{
		"Source Path",
		"State",
		"Invoice Number",
		"Invoice Date",
		"Currency",
		"Net Total",
		"Tax Rate",
		"Tax Amount",
		"Gross Total",
		"Consistent",
		"Issues",
		"Elapsed (ms)",
	}
	if err := writeRow(f, invoiceSheet, 1, toAnys(invoiceHeaders)); err != nil {
		return nil, err
	}

	itemHeaders := []string{"Source Path", "Position", "Description", "Quantity", "Unit Price", "Line Total"}
	if err := writeRow(f, itemSheet, 1, toAnys(itemHeaders)); err != nil {
		return nil, err
	}

	invRow, itemRow := 2, 2
	for _, res := range results {
		rec := res.Record
		row := []any{
			res.SourcePath,
			string(res.State),
			fieldCell(rec.InvoiceNumber),
			fieldCell(rec.InvoiceDate),
			fieldCell(rec.CurrencyCode),
			fieldCell(rec.NetTotal),
			fieldCell(rec.TaxRate),
			fieldCell(rec.TaxAmount),
			fieldCell(rec.GrossTotal),
			res.Validation.IsConsistent,
			len(res.Validation.Issues),
			res.ElapsedMS,
		}
		if err := writeRow(f, invoiceSheet, invRow, row); err != nil {
			return nil, err
		}
		invRow++

		for _, item := range rec.LineItems {
			row := []any{
				res.SourcePath,
				item.Position,
				item.Description,
				item.Quantity,
				item.UnitPrice,
				item.LineTotal,
			}
			if err := writeRow(f, itemSheet, itemRow, row); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"invoices", invRow-2,
		"line_items", itemRow-2,
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

// WriteResultsXLSX writes the batch workbook to path.
func (s *Service) WriteResultsXLSX(results []entity.ProcessingResult, path string) error {
	b, err := s.ExportResultsXLSX(results)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func renameDefaultSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func fieldCell(v entity.FieldValue) string {
	if v.Missing {
		return ""
	}
	return v.Value
}

func toAnys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
