package entity

// ServiceType identifies the direction of a shipment relative to the
// audited program's home market.
type ServiceType string

const (
	ServiceImport ServiceType = "Import"
	ServiceExport ServiceType = "Export"
)

// IsValid reports whether the service type is one of the known directions.
func (s ServiceType) IsValid() bool {
	return s == ServiceImport || s == ServiceExport
}

// RateSection selects which part of a rate card a bracket row belongs to.
type RateSection string

const (
	SectionDocuments    RateSection = "Documents"
	SectionNonDocuments RateSection = "Non-documents"
	SectionMultiplier   RateSection = "Multiplier"
)

// SurchargeRateType selects the calculation branch for a surcharge rule.
type SurchargeRateType string

const (
	SurchargeFixed         SurchargeRateType = "FIXED"
	SurchargeWeightOrFixed SurchargeRateType = "WEIGHT_OR_FIXED"
	SurchargeValueOrWeight SurchargeRateType = "VALUE_OR_WEIGHT"
	SurchargePercentage    SurchargeRateType = "PERCENTAGE"
	SurchargeVariable      SurchargeRateType = "VARIABLE"
)

// FuelSurchargeCode is the rule code the fuel surcharge rate is looked up by.
const FuelSurchargeCode = "FUEL"

// AuditStatus is the overall outcome of one audited invoice line.
type AuditStatus string

const (
	StatusPass     AuditStatus = "PASS"
	StatusVariance AuditStatus = "VARIANCE"
	StatusFail     AuditStatus = "FAIL"
	StatusError    AuditStatus = "ERROR"
)

// IsTerminalFailure reports whether the status should block automatic approval.
func (s AuditStatus) IsTerminalFailure() bool {
	return s == StatusFail || s == StatusError
}

// CategoryStatus is the outcome of a single charge-category check before
// it is folded into the overall decision.
type CategoryStatus string

const (
	CategoryPass        CategoryStatus = "PASS"
	CategoryVariance    CategoryStatus = "VARIANCE"
	CategoryFail        CategoryStatus = "FAIL"
	CategoryError       CategoryStatus = "ERROR"
	CategoryPassThrough CategoryStatus = "PASS_THROUGH"
)
