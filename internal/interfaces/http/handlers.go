package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/audit"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/auditcore/freight-audit/internal/ingestion"
	"github.com/auditcore/freight-audit/internal/report"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   *audit.Engine
	invoices port.InvoiceRepository
	results  port.AuditResultStore
	loader   *ingestion.RateCardLoader
	exporter *report.Exporter
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *audit.Engine,
	invoices port.InvoiceRepository,
	results port.AuditResultStore,
	loader *ingestion.RateCardLoader,
	exporter *report.Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:   engine,
		invoices: invoices,
		results:  results,
		loader:   loader,
		exporter: exporter,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateInvoiceLine handles POST /api/invoices
func (h *Handlers) CreateInvoiceLine(c *gin.Context) {
	var line entity.InvoiceLine
	if err := c.ShouldBindJSON(&line); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid invoice line payload"})
		return
	}
	if line.InvoiceNumber == "" || line.AWB == "" || line.CarrierProgram == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invoice_number, awb and carrier_program are required"})
		return
	}

	if err := h.invoices.Create(c.Request.Context(), &line); err != nil {
		h.logger.Error("Failed to create invoice line", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: line})
}

// AuditInvoice handles POST /api/audit/invoice/:number
func (h *Handlers) AuditInvoice(c *gin.Context) {
	number := c.Param("number")

	result, err := h.engine.AuditInvoice(c.Request.Context(), number)
	if err != nil {
		h.logger.Error("Audit failed", "invoice", number, "error", err)
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// BatchRequest is the POST /api/audit/batch payload. An empty invoice
// list audits everything still unaudited.
type BatchRequest struct {
	InvoiceNumbers []string `json:"invoice_numbers"`
	Limit          int      `json:"limit"`
}

// AuditBatch handles POST /api/audit/batch
func (h *Handlers) AuditBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid batch payload"})
		return
	}

	var summary *entity.BatchSummary
	var err error
	if len(req.InvoiceNumbers) > 0 {
		summary, err = h.engine.AuditBatch(c.Request.Context(), req.InvoiceNumbers)
	} else {
		summary, err = h.engine.AuditAllUnaudited(c.Request.Context(), req.Limit)
	}
	if err != nil {
		h.logger.Error("Batch audit failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// GetInvoiceResults handles GET /api/results/:number
func (h *Handlers) GetInvoiceResults(c *gin.Context) {
	number := c.Param("number")

	results, err := h.results.GetByInvoice(c.Request.Context(), number)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no audit results for invoice"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: results})
}

// GetLineResult handles GET /api/results/:number/:awb
func (h *Handlers) GetLineResult(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("number"), c.Param("awb"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "audit result not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GetSummary handles GET /api/summary
func (h *Handlers) GetSummary(c *gin.Context) {
	summary, err := h.results.Summary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// LoadRateCardRequest is the POST /api/ratecards/:program/load payload.
type LoadRateCardRequest struct {
	Path string `json:"path" binding:"required"`
}

// LoadRateCard handles POST /api/ratecards/:program/load
func (h *Handlers) LoadRateCard(c *gin.Context) {
	program := c.Param("program")

	var req LoadRateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "path is required"})
		return
	}

	snapshot, err := h.loader.LoadFile(c.Request.Context(), program, req.Path)
	if err != nil {
		h.logger.Error("Rate card load failed", "program", program, "error", err)
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"program":         program,
		"entries":         len(snapshot.Entries),
		"zones":           len(snapshot.Zones),
		"surcharges":      len(snapshot.Surcharges),
		"service_charges": len(snapshot.ServiceCharges),
	}})
}

// ExportReportRequest is the POST /api/reports payload.
type ExportReportRequest struct {
	InvoiceNumbers []string `json:"invoice_numbers" binding:"required"`
}

// ExportReport handles POST /api/reports
func (h *Handlers) ExportReport(c *gin.Context) {
	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invoice_numbers is required"})
		return
	}

	var all []*entity.AuditResult
	for _, number := range req.InvoiceNumbers {
		results, err := h.results.GetByInvoice(c.Request.Context(), number)
		if err != nil {
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
			return
		}
		all = append(all, results...)
	}
	if len(all) == 0 {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no audit results for requested invoices"})
		return
	}

	path, err := h.exporter.Export(all)
	if err != nil {
		h.logger.Error("Report export failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"path": path, "results": len(all)}})
}
