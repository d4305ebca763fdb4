package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names a rate card workbook must carry. Zones, Surcharges and
// Service Charges are optional; Rates is not.
const (
	sheetRates          = "Rates"
	sheetZones          = "Zones"
	sheetSurcharges     = "Surcharges"
	sheetServiceCharges = "Service Charges"
)

// RateCardLoader parses a rate card workbook and replaces the program's
// stored snapshot in one transaction.
type RateCardLoader struct {
	writer port.RateCardWriter
	logger *zap.Logger
}

// NewRateCardLoader creates a new loader
func NewRateCardLoader(writer port.RateCardWriter, logger *zap.Logger) *RateCardLoader {
	return &RateCardLoader{writer: writer, logger: logger}
}

// LoadFile reads a workbook from disk and stores its snapshot.
func (l *RateCardLoader) LoadFile(ctx context.Context, program, path string) (*port.RateSnapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return l.load(ctx, program, f)
}

func (l *RateCardLoader) load(ctx context.Context, program string, f *excelize.File) (*port.RateSnapshot, error) {
	snapshot := &port.RateSnapshot{}

	entries, err := l.parseRates(f, program)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("workbook has no rate rows in sheet %q", sheetRates)
	}
	snapshot.Entries = entries

	if snapshot.Zones, err = l.parseZones(f, program); err != nil {
		return nil, err
	}
	if snapshot.Surcharges, err = l.parseSurcharges(f, program); err != nil {
		return nil, err
	}
	if snapshot.ServiceCharges, err = l.parseServiceCharges(f, program); err != nil {
		return nil, err
	}

	if err := l.writer.ReplaceSnapshot(ctx, program, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	l.logger.Info("Rate card loaded",
		zap.String("program", program),
		zap.Int("entries", len(snapshot.Entries)),
		zap.Int("zones", len(snapshot.Zones)))
	return snapshot, nil
}

// parseRates reads the Rates sheet. Fixed columns come first; every
// remaining header cell is a zone id whose column holds that zone's
// rate. An empty rate cell means the bracket does not price that zone.
//
// Columns: Service Type | Section | Weight From | Weight To | Multiplier | Currency | <zone>...
func (l *RateCardLoader) parseRates(f *excelize.File, program string) ([]*entity.RateCardEntry, error) {
	rows, err := f.GetRows(sheetRates)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetRates, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	const fixedCols = 6
	header := rows[0]
	if len(header) <= fixedCols {
		return nil, fmt.Errorf("sheet %q has no zone columns", sheetRates)
	}
	zones := header[fixedCols:]

	var entries []*entity.RateCardEntry
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < fixedCols {
			return nil, fmt.Errorf("sheet %q row %d: expected at least %d columns", sheetRates, i+2, fixedCols)
		}

		st := entity.ServiceType(strings.TrimSpace(row[0]))
		if !st.IsValid() {
			return nil, fmt.Errorf("sheet %q row %d: unknown service type %q", sheetRates, i+2, row[0])
		}

		weightFrom, err := parseFloat(row[2])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: weight from: %w", sheetRates, i+2, err)
		}
		weightTo, err := parseFloat(row[3])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: weight to: %w", sheetRates, i+2, err)
		}

		entry := &entity.RateCardEntry{
			Program:      program,
			ServiceType:  st,
			RateSection:  entity.RateSection(strings.TrimSpace(row[1])),
			WeightFrom:   weightFrom,
			WeightTo:     weightTo,
			IsMultiplier: parseBool(row[4]),
			Currency:     strings.TrimSpace(row[5]),
			Rates:        make(map[string]float64, len(zones)),
		}

		for j, zone := range zones {
			col := fixedCols + j
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			rate, err := parseFloat(row[col])
			if err != nil {
				return nil, fmt.Errorf("sheet %q row %d zone %s: %w", sheetRates, i+2, zone, err)
			}
			entry.Rates[strings.TrimSpace(zone)] = rate
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseZones reads the Zones sheet.
// Columns: Service Type | Country Code | Country Name | Zone
func (l *RateCardLoader) parseZones(f *excelize.File, program string) ([]*entity.ZoneMapping, error) {
	rows, err := f.GetRows(sheetZones)
	if err != nil {
		// Sheet is optional.
		return nil, nil
	}
	if len(rows) < 2 {
		return nil, nil
	}

	var zones []*entity.ZoneMapping
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("sheet %q row %d: expected 4 columns", sheetZones, i+2)
		}
		st := entity.ServiceType(strings.TrimSpace(row[0]))
		if !st.IsValid() {
			return nil, fmt.Errorf("sheet %q row %d: unknown service type %q", sheetZones, i+2, row[0])
		}
		zones = append(zones, &entity.ZoneMapping{
			Program:     program,
			ServiceType: st,
			CountryCode: strings.ToUpper(strings.TrimSpace(row[1])),
			CountryName: strings.TrimSpace(row[2]),
			Zone:        strings.TrimSpace(row[3]),
		})
	}
	return zones, nil
}

// parseSurcharges reads the Surcharges sheet.
// Columns: Code | Name | Rate Type | Rate Value | Minimum | Maximum | Applies To | Active
func (l *RateCardLoader) parseSurcharges(f *excelize.File, program string) ([]*entity.SurchargeRule, error) {
	rows, err := f.GetRows(sheetSurcharges)
	if err != nil {
		return nil, nil
	}
	if len(rows) < 2 {
		return nil, nil
	}

	var rules []*entity.SurchargeRule
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < 8 {
			return nil, fmt.Errorf("sheet %q row %d: expected 8 columns", sheetSurcharges, i+2)
		}
		rateValue, err := parseFloat(row[3])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: rate value: %w", sheetSurcharges, i+2, err)
		}
		rule := &entity.SurchargeRule{
			Program:          program,
			Code:             strings.ToUpper(strings.TrimSpace(row[0])),
			Name:             strings.TrimSpace(row[1]),
			RateType:         entity.SurchargeRateType(strings.ToUpper(strings.TrimSpace(row[2]))),
			RateValue:        rateValue,
			AppliesToService: strings.TrimSpace(row[6]),
			Active:           parseBool(row[7]),
		}
		if rule.MinimumCharge, err = parseOptionalFloat(row[4]); err != nil {
			return nil, fmt.Errorf("sheet %q row %d: minimum: %w", sheetSurcharges, i+2, err)
		}
		if rule.MaximumCharge, err = parseOptionalFloat(row[5]); err != nil {
			return nil, fmt.Errorf("sheet %q row %d: maximum: %w", sheetSurcharges, i+2, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// parseServiceCharges reads the Service Charges sheet.
// Columns: Code | Name | Description | Amount | Active
func (l *RateCardLoader) parseServiceCharges(f *excelize.File, program string) ([]*entity.ServiceChargeDefinition, error) {
	rows, err := f.GetRows(sheetServiceCharges)
	if err != nil {
		return nil, nil
	}
	if len(rows) < 2 {
		return nil, nil
	}

	var defs []*entity.ServiceChargeDefinition
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("sheet %q row %d: expected 5 columns", sheetServiceCharges, i+2)
		}
		amount, err := parseFloat(row[3])
		if err != nil {
			return nil, fmt.Errorf("sheet %q row %d: amount: %w", sheetServiceCharges, i+2, err)
		}
		defs = append(defs, &entity.ServiceChargeDefinition{
			Program:      program,
			Code:         strings.ToUpper(strings.TrimSpace(row[0])),
			Name:         strings.TrimSpace(row[1]),
			Description:  strings.TrimSpace(row[2]),
			ChargeAmount: amount,
			Active:       parseBool(row[4]),
		})
	}
	return defs, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", "")), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
