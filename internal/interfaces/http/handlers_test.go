package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auditcore/freight-audit/internal/audit"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	results map[string]*entity.AuditResult
}

func (s *memStore) Save(_ context.Context, r *entity.AuditResult) error {
	if s.results == nil {
		s.results = make(map[string]*entity.AuditResult)
	}
	s.results[r.InvoiceNumber+"/"+r.AWB] = r
	return nil
}

func (s *memStore) Get(_ context.Context, number, awb string) (*entity.AuditResult, error) {
	return s.results[number+"/"+awb], nil
}

func (s *memStore) GetByInvoice(_ context.Context, number string) ([]*entity.AuditResult, error) {
	var out []*entity.AuditResult
	for _, r := range s.results {
		if r.InvoiceNumber == number {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Summary(_ context.Context) (*entity.StatusSummary, error) {
	return &entity.StatusSummary{AuditedInvoices: len(s.results), ByStatus: map[string]int{}}, nil
}

type memInvoices struct {
	lines map[string][]*entity.InvoiceLine
}

func (m *memInvoices) GetLines(_ context.Context, number string) ([]*entity.InvoiceLine, error) {
	return m.lines[number], nil
}

func (m *memInvoices) ListUnaudited(_ context.Context, _ int) ([]string, error) { return nil, nil }

func (m *memInvoices) Create(_ context.Context, line *entity.InvoiceLine) error {
	if m.lines == nil {
		m.lines = make(map[string][]*entity.InvoiceLine)
	}
	m.lines[line.InvoiceNumber] = append(m.lines[line.InvoiceNumber], line)
	return nil
}

type emptyRates struct{}

func (emptyRates) BracketRate(context.Context, string, entity.ServiceType, entity.RateSection, float64) (*entity.RateCardEntry, error) {
	return nil, nil
}
func (emptyRates) MultiplierRate(context.Context, string, entity.ServiceType, float64) (*entity.RateCardEntry, error) {
	return nil, nil
}
func (emptyRates) NextHigherBracket(context.Context, string, entity.ServiceType, entity.RateSection, float64) (*entity.RateCardEntry, error) {
	return nil, nil
}
func (emptyRates) ZoneByCode(context.Context, string, entity.ServiceType, string) (*entity.ZoneMapping, error) {
	return nil, nil
}
func (emptyRates) ZoneByCountryName(context.Context, string, entity.ServiceType, string) (*entity.ZoneMapping, error) {
	return nil, nil
}
func (emptyRates) SurchargeRules(context.Context, string) ([]*entity.SurchargeRule, error) {
	return nil, nil
}
func (emptyRates) ServiceChargeDefinitions(context.Context, string) ([]*entity.ServiceChargeDefinition, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *memStore, *memInvoices) {
	t.Helper()
	store := &memStore{}
	invoices := &memInvoices{}
	registry, err := audit.NewPolicyRegistry(nil)
	require.NoError(t, err)
	engine := audit.NewEngine(emptyRates{}, invoices, store, registry, nil, zap.NewNop())

	logger := NewZapLogger(zap.NewNop())
	handlers := NewHandlers(engine, invoices, store, nil, nil, logger)
	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second}, handlers, logger)
	return server, store, invoices
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateInvoiceLine(t *testing.T) {
	server, _, invoices := newTestServer(t)

	body := `{"invoice_number":"INV-1","awb":"AWB-1","carrier_program":"dhl-express","service_type":"Export","weight_kg":5}`
	w := doRequest(server, http.MethodPost, "/api/invoices", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, invoices.lines["INV-1"], 1)

	w = doRequest(server, http.MethodPost, "/api/invoices", `{"awb":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditInvoiceNotFound(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(server, http.MethodPost, "/api/audit/invoice/NOPE", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetResults(t *testing.T) {
	server, store, _ := newTestServer(t)
	require.NoError(t, store.Save(context.Background(), &entity.AuditResult{
		InvoiceNumber: "INV-1", AWB: "AWB-1", Status: entity.StatusPass,
	}))

	w := doRequest(server, http.MethodGet, "/api/results/INV-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	w = doRequest(server, http.MethodGet, "/api/results/UNKNOWN", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(server, http.MethodGet, "/api/results/INV-1/AWB-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(server, http.MethodGet, "/api/results/INV-1/AWB-2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSummary(t *testing.T) {
	server, _, _ := newTestServer(t)
	w := doRequest(server, http.MethodGet, "/api/summary", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
