package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/auditcore/freight-audit/pkg/database"
	"go.uber.org/zap"
)

// AuditResultRepository implements port.AuditResultStore. The category
// breakdowns, service matches and trail are stored together as one JSON
// document; the queryable columns carry the status and totals.
type AuditResultRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewAuditResultRepository creates a new audit result repository
func NewAuditResultRepository(db *database.DB, logger *zap.Logger) *AuditResultRepository {
	return &AuditResultRepository{db: db, logger: logger}
}

// resultDetail is the JSON-persisted part of an audit result.
type resultDetail struct {
	ZoneUsed          string                 `json:"zone_used,omitempty"`
	RateCardReference string                 `json:"rate_card_reference,omitempty"`
	WeightAudit       *entity.CategoryResult `json:"weight_audit,omitempty"`
	FuelAudit         *entity.CategoryResult `json:"fuel_audit,omitempty"`
	OtherAudit        *entity.CategoryResult `json:"other_audit,omitempty"`
	TaxAudit          *entity.CategoryResult `json:"tax_audit,omitempty"`
	ServiceMatches    []entity.ServiceMatch  `json:"service_matches,omitempty"`
	Trail             []entity.TrailEntry    `json:"trail"`
}

// Save upserts on (invoice_number, awb): re-auditing replaces the prior
// result instead of accumulating rows.
func (r *AuditResultRepository) Save(ctx context.Context, result *entity.AuditResult) error {
	detail, err := json.Marshal(resultDetail{
		ZoneUsed:          result.ZoneUsed,
		RateCardReference: result.RateCardReference,
		WeightAudit:       result.WeightAudit,
		FuelAudit:         result.FuelAudit,
		OtherAudit:        result.OtherAudit,
		TaxAudit:          result.TaxAudit,
		ServiceMatches:    result.ServiceMatches,
		Trail:             result.Trail,
	})
	if err != nil {
		return fmt.Errorf("failed to encode audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_results (
			invoice_number, awb, program, status,
			total_expected, total_actual, total_variance, variance_percent,
			degenerate, error_message, detail_json, audited_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(invoice_number, awb) DO UPDATE SET
			program = excluded.program,
			status = excluded.status,
			total_expected = excluded.total_expected,
			total_actual = excluded.total_actual,
			total_variance = excluded.total_variance,
			variance_percent = excluded.variance_percent,
			degenerate = excluded.degenerate,
			error_message = excluded.error_message,
			detail_json = excluded.detail_json,
			audited_at = excluded.audited_at
	`
	_, err = r.db.ExecContext(ctx, query,
		result.InvoiceNumber,
		result.AWB,
		result.Program,
		string(result.Status),
		result.TotalExpected,
		result.TotalActual,
		result.TotalVariance,
		result.VariancePercent,
		result.Degenerate,
		result.ErrorMessage,
		string(detail),
		result.AuditedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save audit result",
			zap.String("invoice", result.InvoiceNumber),
			zap.String("awb", result.AWB),
			zap.Error(err))
		return fmt.Errorf("failed to save audit result: %w", err)
	}
	return nil
}

const auditResultColumns = `id, invoice_number, awb, program, status,
	total_expected, total_actual, total_variance, variance_percent,
	degenerate, error_message, detail_json, audited_at`

func scanResult(scan func(dest ...interface{}) error) (*entity.AuditResult, error) {
	var result entity.AuditResult
	var detailJSON string
	err := scan(
		&result.ID,
		&result.InvoiceNumber,
		&result.AWB,
		&result.Program,
		&result.Status,
		&result.TotalExpected,
		&result.TotalActual,
		&result.TotalVariance,
		&result.VariancePercent,
		&result.Degenerate,
		&result.ErrorMessage,
		&detailJSON,
		&result.AuditedAt,
	)
	if err != nil {
		return nil, err
	}

	var detail resultDetail
	if err := json.Unmarshal([]byte(detailJSON), &detail); err != nil {
		return nil, fmt.Errorf("corrupt audit detail for result %d: %w", result.ID, err)
	}
	result.ZoneUsed = detail.ZoneUsed
	result.RateCardReference = detail.RateCardReference
	result.WeightAudit = detail.WeightAudit
	result.FuelAudit = detail.FuelAudit
	result.OtherAudit = detail.OtherAudit
	result.TaxAudit = detail.TaxAudit
	result.ServiceMatches = detail.ServiceMatches
	result.Trail = detail.Trail
	return &result, nil
}

// Get returns one line result, or (nil, nil) when absent.
func (r *AuditResultRepository) Get(ctx context.Context, invoiceNumber, awb string) (*entity.AuditResult, error) {
	query := `SELECT ` + auditResultColumns + ` FROM audit_results WHERE invoice_number = ? AND awb = ?`

	row := r.db.QueryRowContext(ctx, query, invoiceNumber, awb)
	result, err := scanResult(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit result: %w", err)
	}
	return result, nil
}

// GetByInvoice returns every line result of one invoice.
func (r *AuditResultRepository) GetByInvoice(ctx context.Context, invoiceNumber string) ([]*entity.AuditResult, error) {
	query := `SELECT ` + auditResultColumns + ` FROM audit_results WHERE invoice_number = ? ORDER BY awb`

	rows, err := r.db.QueryContext(ctx, query, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit results: %w", err)
	}
	defer rows.Close()

	var results []*entity.AuditResult
	for rows.Next() {
		result, err := scanResult(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Summary returns the audit coverage and per-status counts.
func (r *AuditResultRepository) Summary(ctx context.Context) (*entity.StatusSummary, error) {
	s := &entity.StatusSummary{ByStatus: make(map[string]int)}

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT invoice_number) FROM invoice_lines").Scan(&s.TotalInvoices)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT invoice_number) FROM audit_results").Scan(&s.AuditedInvoices)
	if err != nil {
		return nil, fmt.Errorf("failed to count audited invoices: %w", err)
	}
	s.PendingInvoices = s.TotalInvoices - s.AuditedInvoices

	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM audit_results GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		s.ByStatus[status] = count
	}
	return s, rows.Err()
}

// Verify interface compliance
var _ port.AuditResultStore = (*AuditResultRepository)(nil)
