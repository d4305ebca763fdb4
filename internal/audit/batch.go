package audit

import (
	"context"
	"fmt"

	"github.com/auditcore/freight-audit/internal/domain/entity"
	"go.uber.org/zap"
)

// AuditBatch audits a set of invoices. An invoice-level failure is
// recorded in the summary and the batch continues; the summary counts
// every invoice exactly once.
func (e *Engine) AuditBatch(ctx context.Context, invoiceNumbers []string) (*entity.BatchSummary, error) {
	summary := &entity.BatchSummary{
		Total:     len(invoiceNumbers),
		StartedAt: e.now(),
	}

	for _, invoiceNumber := range invoiceNumbers {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		agg, err := e.AuditInvoice(ctx, invoiceNumber)
		if err != nil {
			summary.ErrorCount++
			summary.Failures = append(summary.Failures, entity.BatchItemFailure{
				InvoiceNumber: invoiceNumber,
				Reason:        err.Error(),
			})
			e.logger.Warn("batch item failed",
				zap.String("invoice", invoiceNumber),
				zap.Error(err))
			continue
		}

		switch agg.Status {
		case entity.StatusPass:
			summary.PassCount++
		case entity.StatusVariance:
			summary.VarianceCount++
		case entity.StatusFail:
			summary.FailCount++
		default:
			summary.ErrorCount++
		}
		summary.TotalExpected += agg.TotalExpected
		summary.TotalActual += agg.TotalActual
	}

	summary.TotalVariance = summary.TotalActual - summary.TotalExpected
	summary.FinishedAt = e.now()

	e.logger.Info("batch audit complete",
		zap.Int("total", summary.Total),
		zap.Int("pass", summary.PassCount),
		zap.Int("variance", summary.VarianceCount),
		zap.Int("fail", summary.FailCount),
		zap.Int("error", summary.ErrorCount))
	return summary, nil
}

// AuditAllUnaudited finds invoices without a stored result and audits
// them. Used by the background worker and the batch endpoint.
func (e *Engine) AuditAllUnaudited(ctx context.Context, limit int) (*entity.BatchSummary, error) {
	invoiceNumbers, err := e.invoices.ListUnaudited(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unaudited invoices: %w", err)
	}
	if len(invoiceNumbers) == 0 {
		return &entity.BatchSummary{StartedAt: e.now(), FinishedAt: e.now()}, nil
	}
	return e.AuditBatch(ctx, invoiceNumbers)
}
