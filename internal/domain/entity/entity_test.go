package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurchargeRuleAppliesTo(t *testing.T) {
	tests := []struct {
		filter string
		st     ServiceType
		want   bool
	}{
		{"", ServiceImport, true},
		{"ALL", ServiceExport, true},
		{"Import", ServiceImport, true},
		{"Import", ServiceExport, false},
		{"Import, Export", ServiceExport, true},
		{"Import,Export", ServiceImport, true},
	}
	for _, tt := range tests {
		r := SurchargeRule{AppliesToService: tt.filter}
		assert.Equal(t, tt.want, r.AppliesTo(tt.st), "filter %q st %s", tt.filter, tt.st)
	}
}

func TestInvoiceLineCountryForZone(t *testing.T) {
	l := InvoiceLine{ConsignorCountry: "MY", OriginCode: "KUL"}
	assert.Equal(t, "MY", l.CountryForZone())

	l.ConsignorCountry = ""
	assert.Equal(t, "KUL", l.CountryForZone())
}

func TestRateCardEntryZoneRate(t *testing.T) {
	e := RateCardEntry{Rates: map[string]float64{"5": 42.0}}

	rate, ok := e.ZoneRate("5")
	assert.True(t, ok)
	assert.Equal(t, 42.0, rate)

	_, ok = e.ZoneRate("9")
	assert.False(t, ok, "a zone absent from the card is not a zero rate")
}

func TestAuditStatusIsTerminalFailure(t *testing.T) {
	assert.False(t, StatusPass.IsTerminalFailure())
	assert.False(t, StatusVariance.IsTerminalFailure())
	assert.True(t, StatusFail.IsTerminalFailure())
	assert.True(t, StatusError.IsTerminalFailure())
}
