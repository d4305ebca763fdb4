package port

import (
	"context"

	"github.com/auditcore/freight-audit/internal/domain/entity"
)

// RateCardRepository exposes the immutable rate snapshot the audit
// engine prices against. Implementations return (nil, nil) when no row
// matches; errors are reserved for storage failures.
type RateCardRepository interface {
	// BracketRate returns the fixed bracket containing the weight:
	// weight_from <= weight < weight_to.
	BracketRate(ctx context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error)

	// MultiplierRate returns the per-kilogram band whose inclusive
	// range contains the weight.
	MultiplierRate(ctx context.Context, program string, st entity.ServiceType, weightKg float64) (*entity.RateCardEntry, error)

	// NextHigherBracket returns the fixed bracket with the smallest
	// weight_from strictly above the weight.
	NextHigherBracket(ctx context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error)

	// ZoneByCode resolves an exact country code match.
	ZoneByCode(ctx context.Context, program string, st entity.ServiceType, countryCode string) (*entity.ZoneMapping, error)

	// ZoneByCountryName resolves a case-insensitive substring match on
	// the country name.
	ZoneByCountryName(ctx context.Context, program string, st entity.ServiceType, name string) (*entity.ZoneMapping, error)

	// SurchargeRules returns the active surcharge rules for a program.
	SurchargeRules(ctx context.Context, program string) ([]*entity.SurchargeRule, error)

	// ServiceChargeDefinitions returns the active named service charges.
	ServiceChargeDefinitions(ctx context.Context, program string) ([]*entity.ServiceChargeDefinition, error)
}

// RateCardWriter is the ingestion-side contract: a loader replaces a
// program's rate snapshot in one transaction so in-flight audits never
// observe a half-loaded card.
type RateCardWriter interface {
	ReplaceSnapshot(ctx context.Context, program string, snapshot *RateSnapshot) error
}

// RateSnapshot is everything one rate-card workbook contributes.
type RateSnapshot struct {
	Entries        []*entity.RateCardEntry
	Zones          []*entity.ZoneMapping
	Surcharges     []*entity.SurchargeRule
	ServiceCharges []*entity.ServiceChargeDefinition
}

// InvoiceRepository supplies normalized invoice lines to the engine.
type InvoiceRepository interface {
	GetLines(ctx context.Context, invoiceNumber string) ([]*entity.InvoiceLine, error)
	// ListUnaudited returns invoice numbers with no stored audit result,
	// capped at limit (0 means no cap).
	ListUnaudited(ctx context.Context, limit int) ([]string, error)
	Create(ctx context.Context, line *entity.InvoiceLine) error
}

// AuditResultStore persists audit outcomes, upserting on the
// (invoice, AWB) composite key so re-audit supersedes prior results.
type AuditResultStore interface {
	Save(ctx context.Context, result *entity.AuditResult) error
	Get(ctx context.Context, invoiceNumber, awb string) (*entity.AuditResult, error)
	GetByInvoice(ctx context.Context, invoiceNumber string) ([]*entity.AuditResult, error)
	Summary(ctx context.Context) (*entity.StatusSummary, error)
}
