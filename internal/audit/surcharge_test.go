package audit

import (
	"context"
	"testing"

	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func f64(v float64) *float64 { return &v }

func testSurchargeRepo() *fakeRateRepo {
	return &fakeRateRepo{
		surcharges: []*entity.SurchargeRule{
			{Program: "fedex", Code: "REMOTE", Name: "Remote area delivery", RateType: entity.SurchargeWeightOrFixed, RateValue: 1.12, MinimumCharge: f64(33.0), Active: true},
			{Program: "fedex", Code: "INSURE", Name: "Declared value coverage", RateType: entity.SurchargeValueOrWeight, RateValue: 1.5, MinimumCharge: f64(0.5), Active: true},
			{Program: "fedex", Code: "HANDLE", Name: "Additional handling", RateType: entity.SurchargeFixed, RateValue: 20.0, Active: true},
			{Program: "fedex", Code: "DUTY", Name: "Duty handling", RateType: entity.SurchargeVariable, RateValue: 0, Active: true},
			{Program: "fedex", Code: "FUEL", Name: "Fuel surcharge", RateType: entity.SurchargePercentage, RateValue: 25.5, Active: true},
			{Program: "fedex", Code: "OLD", Name: "Retired fee", RateType: entity.SurchargeFixed, RateValue: 99.0, Active: false},
			{Program: "fedex", Code: "EXPONLY", Name: "Export docs fee", RateType: entity.SurchargeFixed, RateValue: 5.0, AppliesToService: "Export", Active: true},
		},
	}
}

func findSurcharge(t *testing.T, amounts []SurchargeAmount, code string) SurchargeAmount {
	t.Helper()
	for _, a := range amounts {
		if a.Code == code {
			return a
		}
	}
	t.Fatalf("surcharge %s not computed", code)
	return SurchargeAmount{}
}

func TestSurchargeCalculator_Compute(t *testing.T) {
	c := NewSurchargeCalculator(testSurchargeRepo(), zap.NewNop())

	amounts, err := c.Compute(context.Background(), "fedex", entity.ServiceImport, 10.0, 3000.0)
	require.NoError(t, err)

	// WEIGHT_OR_FIXED: max(10 * 1.12, 33) = 33.
	assert.Equal(t, 33.0, findSurcharge(t, amounts, "REMOTE").Amount)
	// VALUE_OR_WEIGHT: max((3000/100) * 1.5, 10 * 0.5) = 45.
	assert.Equal(t, 45.0, findSurcharge(t, amounts, "INSURE").Amount)
	// FIXED.
	assert.Equal(t, 20.0, findSurcharge(t, amounts, "HANDLE").Amount)
	// VARIABLE contributes zero but stays visible.
	duty := findSurcharge(t, amounts, "DUTY")
	assert.Equal(t, 0.0, duty.Amount)
	assert.NotEmpty(t, duty.Note)

	for _, a := range amounts {
		assert.NotEqual(t, "FUEL", a.Code, "fuel must be excluded from rule-table computation")
		assert.NotEqual(t, "OLD", a.Code, "inactive rules must be skipped")
		assert.NotEqual(t, "EXPONLY", a.Code, "export-only rule must not apply to imports")
	}
}

func TestSurchargeCalculator_WeightDrivenAboveMinimum(t *testing.T) {
	c := NewSurchargeCalculator(testSurchargeRepo(), zap.NewNop())

	amounts, err := c.Compute(context.Background(), "fedex", entity.ServiceImport, 50.0, 0)
	require.NoError(t, err)
	// 50 * 1.12 = 56 beats the 33 minimum.
	assert.InDelta(t, 56.0, findSurcharge(t, amounts, "REMOTE").Amount, 1e-9)
}

func TestSurchargeCalculator_ValueRuleSkippedWithoutDeclaredValue(t *testing.T) {
	c := NewSurchargeCalculator(testSurchargeRepo(), zap.NewNop())

	amounts, err := c.Compute(context.Background(), "fedex", entity.ServiceImport, 10.0, 0)
	require.NoError(t, err)
	for _, a := range amounts {
		assert.NotEqual(t, "INSURE", a.Code)
	}
}

func TestSurchargeCalculator_MaximumClamp(t *testing.T) {
	repo := testSurchargeRepo()
	repo.surcharges = append(repo.surcharges, &entity.SurchargeRule{
		Program: "fedex", Code: "OVERSIZE", Name: "Oversize piece",
		RateType: entity.SurchargeWeightOrFixed, RateValue: 10.0,
		MaximumCharge: f64(150.0), Active: true,
	})
	c := NewSurchargeCalculator(repo, zap.NewNop())

	amounts, err := c.Compute(context.Background(), "fedex", entity.ServiceImport, 40.0, 0)
	require.NoError(t, err)
	over := findSurcharge(t, amounts, "OVERSIZE")
	assert.Equal(t, 150.0, over.Amount)
	assert.Equal(t, "clamped to maximum", over.Note)
}

func TestSurchargeCalculator_ServiceTypeFilter(t *testing.T) {
	c := NewSurchargeCalculator(testSurchargeRepo(), zap.NewNop())

	amounts, err := c.Compute(context.Background(), "fedex", entity.ServiceExport, 1.0, 0)
	require.NoError(t, err)
	assert.Equal(t, 5.0, findSurcharge(t, amounts, "EXPONLY").Amount)
}

func TestFuelSurcharge_FromRule(t *testing.T) {
	c := NewSurchargeCalculator(testSurchargeRepo(), zap.NewNop())

	amount, rate, err := c.FuelSurcharge(context.Background(), "fedex", 200.0, 15.5)
	require.NoError(t, err)
	assert.Equal(t, 25.5, rate)
	assert.InDelta(t, 51.0, amount, 1e-9)
}

func TestFuelSurcharge_DefaultRate(t *testing.T) {
	c := NewSurchargeCalculator(&fakeRateRepo{}, zap.NewNop())

	amount, rate, err := c.FuelSurcharge(context.Background(), "dhl-express", 100.0, 15.5)
	require.NoError(t, err)
	assert.Equal(t, 15.5, rate)
	assert.InDelta(t, 15.5, amount, 1e-9)
}

func TestTotal(t *testing.T) {
	sum := Total([]SurchargeAmount{{Amount: 10}, {Amount: 2.5}, {Amount: 0}})
	assert.Equal(t, 12.5, sum)
	assert.Equal(t, 0.0, Total(nil))
}
