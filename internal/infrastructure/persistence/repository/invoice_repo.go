package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/auditcore/freight-audit/pkg/database"
	"go.uber.org/zap"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const invoiceLineColumns = `id, invoice_number, awb, carrier_program, service_type,
	origin_code, destination_code, consignor_country, weight_kg, declared_value, currency,
	weight_charge, fuel_surcharge, other_charges, tax_amount, total_amount,
	invoice_date, created_at`

// Create inserts one invoice line. The (invoice_number, awb) pair is
// unique; re-ingesting the same line is a constraint error, not a
// silent duplicate.
func (r *InvoiceRepository) Create(ctx context.Context, line *entity.InvoiceLine) error {
	query := `
		INSERT INTO invoice_lines (
			invoice_number, awb, carrier_program, service_type,
			origin_code, destination_code, consignor_country, weight_kg, declared_value, currency,
			weight_charge, fuel_surcharge, other_charges, tax_amount, total_amount, invoice_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		line.InvoiceNumber,
		line.AWB,
		line.CarrierProgram,
		string(line.ServiceType),
		line.OriginCode,
		line.DestinationCode,
		line.ConsignorCountry,
		line.WeightKg,
		line.DeclaredValue,
		line.Currency,
		line.WeightCharge,
		line.FuelSurcharge,
		line.OtherCharges,
		line.TaxAmount,
		line.TotalAmount,
		line.InvoiceDate,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice line",
			zap.String("invoice", line.InvoiceNumber),
			zap.String("awb", line.AWB),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	line.ID = id
	return nil
}

// GetLines returns all lines of one invoice in AWB order.
func (r *InvoiceRepository) GetLines(ctx context.Context, invoiceNumber string) ([]*entity.InvoiceLine, error) {
	query := `
		SELECT ` + invoiceLineColumns + `
		FROM invoice_lines
		WHERE invoice_number = ?
		ORDER BY awb
	`
	rows, err := r.db.QueryContext(ctx, query, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.InvoiceLine
	for rows.Next() {
		var line entity.InvoiceLine
		var invoiceDate sql.NullTime
		if err := rows.Scan(
			&line.ID,
			&line.InvoiceNumber,
			&line.AWB,
			&line.CarrierProgram,
			&line.ServiceType,
			&line.OriginCode,
			&line.DestinationCode,
			&line.ConsignorCountry,
			&line.WeightKg,
			&line.DeclaredValue,
			&line.Currency,
			&line.WeightCharge,
			&line.FuelSurcharge,
			&line.OtherCharges,
			&line.TaxAmount,
			&line.TotalAmount,
			&invoiceDate,
			&line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		if invoiceDate.Valid {
			line.InvoiceDate = &invoiceDate.Time
		}
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

// ListUnaudited returns invoice numbers that have at least one line
// without a stored audit result.
func (r *InvoiceRepository) ListUnaudited(ctx context.Context, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT il.invoice_number
		FROM invoice_lines il
		WHERE NOT EXISTS (
			SELECT 1 FROM audit_results ar
			WHERE ar.invoice_number = il.invoice_number AND ar.awb = il.awb
		)
		ORDER BY il.invoice_number
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query unaudited invoices: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("failed to scan invoice number: %w", err)
		}
		numbers = append(numbers, number)
	}
	return numbers, rows.Err()
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
