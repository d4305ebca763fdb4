package ingestion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type capturingWriter struct {
	program  string
	snapshot *port.RateSnapshot
}

func (w *capturingWriter) ReplaceSnapshot(_ context.Context, program string, snapshot *port.RateSnapshot) error {
	w.program = program
	w.snapshot = snapshot
	return nil
}

func writeRow(t *testing.T, f *excelize.File, sheet string, row int, values ...interface{}) {
	t.Helper()
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
}

func writeTestWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheetRates))
	writeRow(t, f, sheetRates, 1, "Service Type", "Section", "Weight From", "Weight To", "Multiplier", "Currency", "1", "5")
	writeRow(t, f, sheetRates, 2, "Export", "Non-documents", 20, 30, 0, "CNY", 38.50, 42.00)
	writeRow(t, f, sheetRates, 3, "Export", "", 30.1, 70, 1, "CNY", 2.80, 3.20)
	// Zone 1 has no rate in this bracket: the cell stays empty.
	writeRow(t, f, sheetRates, 4, "Export", "Non-documents", 10, 20, 0, "CNY", "", 31.00)

	_, err := f.NewSheet(sheetZones)
	require.NoError(t, err)
	writeRow(t, f, sheetZones, 1, "Service Type", "Country Code", "Country Name", "Zone")
	writeRow(t, f, sheetZones, 2, "Export", "my", "Malaysia", "5")
	writeRow(t, f, sheetZones, 3, "Export", "AU", "Australia", "7")

	_, err = f.NewSheet(sheetSurcharges)
	require.NoError(t, err)
	writeRow(t, f, sheetSurcharges, 1, "Code", "Name", "Rate Type", "Rate Value", "Minimum", "Maximum", "Applies To", "Active")
	writeRow(t, f, sheetSurcharges, 2, "fuel", "Fuel surcharge", "percentage", 15.5, "", "", "ALL", 1)
	writeRow(t, f, sheetSurcharges, 3, "REMOTE", "Remote area", "WEIGHT_OR_FIXED", 1.12, 33.0, 500.0, "Import,Export", "yes")

	_, err = f.NewSheet(sheetServiceCharges)
	require.NoError(t, err)
	writeRow(t, f, sheetServiceCharges, 1, "Code", "Name", "Description", "Amount", "Active")
	writeRow(t, f, sheetServiceCharges, 2, "ADDR", "Address correction", "Consignee address fix", 101.50, "true")

	path := filepath.Join(t.TempDir(), "ratecard.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRateCardLoader_LoadFile(t *testing.T) {
	writer := &capturingWriter{}
	loader := NewRateCardLoader(writer, zap.NewNop())

	snapshot, err := loader.LoadFile(context.Background(), "dhl-express-cn", writeTestWorkbook(t))
	require.NoError(t, err)
	assert.Equal(t, "dhl-express-cn", writer.program)
	assert.Same(t, snapshot, writer.snapshot)

	require.Len(t, snapshot.Entries, 3)
	first := snapshot.Entries[0]
	assert.Equal(t, entity.ServiceExport, first.ServiceType)
	assert.Equal(t, entity.SectionNonDocuments, first.RateSection)
	assert.Equal(t, 42.00, first.Rates["5"])
	assert.Equal(t, 38.50, first.Rates["1"])

	multiplier := snapshot.Entries[1]
	assert.True(t, multiplier.IsMultiplier)
	assert.Equal(t, 3.20, multiplier.Rates["5"])

	sparse := snapshot.Entries[2]
	_, hasZone1 := sparse.Rates["1"]
	assert.False(t, hasZone1, "empty cell must not produce a zero rate")
	assert.Equal(t, 31.00, sparse.Rates["5"])

	require.Len(t, snapshot.Zones, 2)
	assert.Equal(t, "MY", snapshot.Zones[0].CountryCode, "country codes are normalized to upper case")
	assert.Equal(t, "5", snapshot.Zones[0].Zone)

	require.Len(t, snapshot.Surcharges, 2)
	fuel := snapshot.Surcharges[0]
	assert.Equal(t, "FUEL", fuel.Code)
	assert.Equal(t, entity.SurchargePercentage, fuel.RateType)
	assert.True(t, fuel.Active)
	remote := snapshot.Surcharges[1]
	require.NotNil(t, remote.MinimumCharge)
	assert.Equal(t, 33.0, *remote.MinimumCharge)
	require.NotNil(t, remote.MaximumCharge)
	assert.Equal(t, 500.0, *remote.MaximumCharge)
	assert.True(t, remote.AppliesTo(entity.ServiceImport))

	require.Len(t, snapshot.ServiceCharges, 1)
	assert.Equal(t, 101.50, snapshot.ServiceCharges[0].ChargeAmount)
	assert.True(t, snapshot.ServiceCharges[0].Active)
}

func TestRateCardLoader_EmptyOptionalSheets(t *testing.T) {
	// Optional sheets may exist with no rows at all, not even a header.
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheetRates))
	writeRow(t, f, sheetRates, 1, "Service Type", "Section", "Weight From", "Weight To", "Multiplier", "Currency", "5")
	writeRow(t, f, sheetRates, 2, "Export", "Non-documents", 20, 30, 0, "CNY", 42.00)
	for _, sheet := range []string{sheetZones, sheetSurcharges, sheetServiceCharges} {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "sparse.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	writer := &capturingWriter{}
	loader := NewRateCardLoader(writer, zap.NewNop())
	snapshot, err := loader.LoadFile(context.Background(), "dhl-express-cn", path)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, 1)
	assert.Empty(t, snapshot.Zones)
	assert.Empty(t, snapshot.Surcharges)
	assert.Empty(t, snapshot.ServiceCharges)
}

func TestRateCardLoader_MissingRatesSheet(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	loader := NewRateCardLoader(&capturingWriter{}, zap.NewNop())
	_, err := loader.LoadFile(context.Background(), "dhl-express-cn", path)
	assert.Error(t, err)
}

func TestRateCardLoader_RejectsBadServiceType(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheetRates))
	writeRow(t, f, sheetRates, 1, "Service Type", "Section", "Weight From", "Weight To", "Multiplier", "Currency", "1")
	writeRow(t, f, sheetRates, 2, "Ground", "Non-documents", 0, 10, 0, "CNY", 10.0)
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	loader := NewRateCardLoader(&capturingWriter{}, zap.NewNop())
	_, err := loader.LoadFile(context.Background(), "dhl-express-cn", path)
	assert.ErrorContains(t, err, "service type")
}
