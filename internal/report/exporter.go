package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetSummary = "Summary"
	sheetTrail   = "Trail"
)

// Exporter writes audit results to an xlsx workbook: a summary sheet
// with one row per audited line and a trail sheet with the full
// step-by-step explanation.
type Exporter struct {
	outputDir string
	logger    *zap.Logger
}

// NewExporter creates a new report exporter
func NewExporter(outputDir string, logger *zap.Logger) *Exporter {
	return &Exporter{outputDir: outputDir, logger: logger}
}

// Export writes the results to <outputDir>/audit_report_<ts>.xlsx and
// returns the file path.
func (e *Exporter) Export(results []*entity.AuditResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("no results to export")
	}
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return "", fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetTrail); err != nil {
		return "", fmt.Errorf("failed to create trail sheet: %w", err)
	}

	e.writeSummary(f, results)
	e.writeTrail(f, results)

	path := filepath.Join(e.outputDir,
		fmt.Sprintf("audit_report_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	e.logger.Info("Audit report exported",
		zap.String("path", path),
		zap.Int("results", len(results)))
	return path, nil
}

func (e *Exporter) writeSummary(f *excelize.File, results []*entity.AuditResult) {
	header := []interface{}{
		"Invoice", "AWB", "Program", "Zone", "Status",
		"Expected", "Actual", "Variance", "Variance %",
		"Weight Check", "Fuel Check", "Other Check", "Tax Check",
		"Flags", "Error",
	}
	e.setRow(f, sheetSummary, 1, header)

	for i, r := range results {
		flags := ""
		if r.Degenerate {
			flags = "degenerate"
		}
		row := []interface{}{
			r.InvoiceNumber, r.AWB, r.Program, r.ZoneUsed, string(r.Status),
			round2(r.TotalExpected), round2(r.TotalActual),
			round2(r.TotalVariance), round2(r.VariancePercent),
			categoryStatus(r.WeightAudit), categoryStatus(r.FuelAudit),
			categoryStatus(r.OtherAudit), categoryStatus(r.TaxAudit),
			flags, r.ErrorMessage,
		}
		e.setRow(f, sheetSummary, i+2, row)
	}
}

func (e *Exporter) writeTrail(f *excelize.File, results []*entity.AuditResult) {
	e.setRow(f, sheetTrail, 1, []interface{}{"Invoice", "AWB", "Step", "Message"})

	row := 2
	for _, r := range results {
		for _, entry := range r.Trail {
			e.setRow(f, sheetTrail, row, []interface{}{
				r.InvoiceNumber, r.AWB, entry.Step, entry.Message,
			})
			row++
		}
	}
}

func (e *Exporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			e.logger.Warn("Failed to compute cell name",
				zap.String("sheet", sheet), zap.Int("row", row), zap.Int("col", col))
			continue
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			e.logger.Warn("Failed to set cell value",
				zap.String("sheet", sheet), zap.String("cell", cell), zap.Error(err))
		}
	}
}

func categoryStatus(c *entity.CategoryResult) string {
	if c == nil {
		return ""
	}
	return string(c.Status)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
