package entity

import (
	"strings"
	"time"
)

// RateCardEntry is one weight bracket (or per-kg multiplier band) of a
// negotiated rate card. Zone rates are held as a map keyed by the
// carrier's zone identifier, so a 9-zone program and a 19-zone program
// share the same shape.
type RateCardEntry struct {
	ID           int64              `json:"id"`
	Program      string             `json:"program"`
	ServiceType  ServiceType        `json:"service_type"`
	RateSection  RateSection        `json:"rate_section"`
	WeightFrom   float64            `json:"weight_from"`
	WeightTo     float64            `json:"weight_to"`
	IsMultiplier bool               `json:"is_multiplier"`
	Rates        map[string]float64 `json:"rates"`
	Currency     string             `json:"currency"`
	CreatedAt    time.Time          `json:"created_at"`
}

// ZoneRate returns the rate for a zone and whether the card carries a
// value for that zone at all.
func (e *RateCardEntry) ZoneRate(zone string) (float64, bool) {
	v, ok := e.Rates[zone]
	return v, ok
}

// Reference is a short human-readable identifier for the bracket, used
// in audit trails.
func (e *RateCardEntry) Reference() string {
	if e.IsMultiplier {
		return string(e.ServiceType) + " multiplier"
	}
	return string(e.ServiceType) + " " + string(e.RateSection)
}

// ZoneMapping resolves a country code to a carrier zone for one
// service direction.
type ZoneMapping struct {
	ID          int64       `json:"id"`
	Program     string      `json:"program"`
	ServiceType ServiceType `json:"service_type"`
	CountryCode string      `json:"country_code"`
	CountryName string      `json:"country_name"`
	Zone        string      `json:"zone"`
}

// SurchargeRule is one named ancillary charge definition from the
// carrier's surcharge table.
type SurchargeRule struct {
	ID               int64             `json:"id"`
	Program          string            `json:"program"`
	Code             string            `json:"code"`
	Name             string            `json:"name"`
	RateType         SurchargeRateType `json:"rate_type"`
	RateValue        float64           `json:"rate_value"`
	MinimumCharge    *float64          `json:"minimum_charge,omitempty"`
	MaximumCharge    *float64          `json:"maximum_charge,omitempty"`
	AppliesToService string            `json:"applies_to_service"`
	Active           bool              `json:"active"`
}

// AppliesTo reports whether the rule covers the given service type.
// An empty or "ALL" filter covers everything; otherwise the filter is a
// comma-separated list of service types.
func (r *SurchargeRule) AppliesTo(st ServiceType) bool {
	if r.AppliesToService == "" || r.AppliesToService == "ALL" {
		return true
	}
	for _, tok := range strings.Split(r.AppliesToService, ",") {
		if strings.TrimSpace(tok) == string(st) {
			return true
		}
	}
	return false
}

// ServiceChargeDefinition is a named flat charge used to identify
// "other charges" invoice lines that are not weight driven.
type ServiceChargeDefinition struct {
	ID             int64    `json:"id"`
	Program        string   `json:"program"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ChargeAmount   float64  `json:"charge_amount"`
	MinimumCharge  *float64 `json:"minimum_charge,omitempty"`
	PercentageRate *float64 `json:"percentage_rate,omitempty"`
	Active         bool     `json:"active"`
}
