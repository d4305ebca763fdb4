package entity

import "time"

// InvoiceLine is one normalized, already-extracted invoice line (one
// AWB for express carriers). It is the audit engine's input and is
// never mutated by the engine.
type InvoiceLine struct {
	ID               int64       `json:"id"`
	InvoiceNumber    string      `json:"invoice_number"`
	AWB              string      `json:"awb"`
	CarrierProgram   string      `json:"carrier_program"`
	ServiceType      ServiceType `json:"service_type"`
	OriginCode       string      `json:"origin_code"`
	DestinationCode  string      `json:"destination_code"`
	ConsignorCountry string      `json:"consignor_country"`
	WeightKg         float64     `json:"weight_kg"`
	DeclaredValue    float64     `json:"declared_value"`
	Currency         string      `json:"currency"`

	// Amounts actually invoiced, split by category.
	WeightCharge  float64 `json:"weight_charge"`
	FuelSurcharge float64 `json:"fuel_surcharge"`
	OtherCharges  float64 `json:"other_charges"`
	TaxAmount     float64 `json:"tax_amount"`
	TotalAmount   float64 `json:"total_amount"`

	InvoiceDate *time.Time `json:"invoice_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CountryForZone picks the code used for zone resolution: the
// consignor country when present, otherwise the origin code.
func (l *InvoiceLine) CountryForZone() string {
	if l.ConsignorCountry != "" {
		return l.ConsignorCountry
	}
	return l.OriginCode
}
