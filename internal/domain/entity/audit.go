package entity

import "time"

// TrailEntry is one ordered step of the audit explanation. The trail is
// a first-class output: auditors read it to decide whether to dispute a
// charge, and tests assert on it.
type TrailEntry struct {
	Step    string         `json:"step"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// CategoryResult compares one invoiced charge category against its
// expected value.
type CategoryResult struct {
	Actual          float64        `json:"actual"`
	Expected        float64        `json:"expected"`
	Variance        float64        `json:"variance"`
	VariancePercent float64        `json:"variance_percent"`
	Status          CategoryStatus `json:"status"`
	Note            string         `json:"note,omitempty"`
}

// ServiceMatch is one service-charge definition whose published amount
// sits within tolerance of an "other charges" line.
type ServiceMatch struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	ChargeAmount float64 `json:"charge_amount"`
	Difference   float64 `json:"difference"`
}

// AuditResult is the full outcome of auditing one invoice line.
// Invariant: TotalVariance == TotalActual - TotalExpected (signed;
// negative means the carrier undercharged).
type AuditResult struct {
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	AWB           string `json:"awb"`
	Program       string `json:"program"`

	ZoneUsed          string `json:"zone_used,omitempty"`
	RateCardReference string `json:"rate_card_reference,omitempty"`

	WeightAudit *CategoryResult `json:"weight_audit,omitempty"`
	FuelAudit   *CategoryResult `json:"fuel_audit,omitempty"`
	OtherAudit  *CategoryResult `json:"other_audit,omitempty"`
	TaxAudit    *CategoryResult `json:"tax_audit,omitempty"`

	ServiceMatches []ServiceMatch `json:"service_matches,omitempty"`

	Status          AuditStatus  `json:"status"`
	TotalExpected   float64      `json:"total_expected"`
	TotalActual     float64      `json:"total_actual"`
	TotalVariance   float64      `json:"total_variance"`
	VariancePercent float64      `json:"variance_percent"`
	Degenerate      bool         `json:"degenerate,omitempty"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	Trail           []TrailEntry `json:"trail"`

	AuditedAt time.Time `json:"audited_at"`
}

// AddTrail appends an ordered explanation step.
func (r *AuditResult) AddTrail(step, message string, data map[string]any) {
	r.Trail = append(r.Trail, TrailEntry{Step: step, Message: message, Data: data})
}

// InvoiceAudit aggregates the line results of one invoice.
type InvoiceAudit struct {
	InvoiceNumber   string         `json:"invoice_number"`
	Status          AuditStatus    `json:"status"`
	Lines           []*AuditResult `json:"lines"`
	TotalExpected   float64        `json:"total_expected"`
	TotalActual     float64        `json:"total_actual"`
	TotalVariance   float64        `json:"total_variance"`
	VariancePercent float64        `json:"variance_percent"`
	PassCount       int            `json:"pass_count"`
	VarianceCount   int            `json:"variance_count"`
	FailCount       int            `json:"fail_count"`
	ErrorCount      int            `json:"error_count"`
	AuditedAt       time.Time      `json:"audited_at"`
}

// BatchItemFailure records an invoice that could not be audited at all,
// for example because its lines could not be loaded.
type BatchItemFailure struct {
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// BatchSummary tallies one batch run over many invoices. Every invoice
// in the batch is counted exactly once across the status counters.
type BatchSummary struct {
	Total         int                `json:"total"`
	PassCount     int                `json:"pass_count"`
	VarianceCount int                `json:"variance_count"`
	FailCount     int                `json:"fail_count"`
	ErrorCount    int                `json:"error_count"`
	TotalExpected float64            `json:"total_expected"`
	TotalActual   float64            `json:"total_actual"`
	TotalVariance float64            `json:"total_variance"`
	Failures      []BatchItemFailure `json:"failures,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}

// StatusSummary is the per-status breakdown exposed by the result store.
type StatusSummary struct {
	TotalInvoices   int            `json:"total_invoices"`
	AuditedInvoices int            `json:"audited_invoices"`
	PendingInvoices int            `json:"pending_invoices"`
	ByStatus        map[string]int `json:"by_status"`
}
