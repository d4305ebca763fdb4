package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/auditcore/freight-audit/internal/domain/entity"
)

// fakeRateRepo is an in-memory rate card snapshot for engine tests.
type fakeRateRepo struct {
	entries        []*entity.RateCardEntry
	zones          []*entity.ZoneMapping
	surcharges     []*entity.SurchargeRule
	serviceCharges []*entity.ServiceChargeDefinition
	err            error
}

func (f *fakeRateRepo) BracketRate(_ context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.entries {
		if e.Program == program && e.ServiceType == st && e.RateSection == section &&
			!e.IsMultiplier && e.WeightFrom <= weightKg && weightKg < e.WeightTo {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeRateRepo) MultiplierRate(_ context.Context, program string, st entity.ServiceType, weightKg float64) (*entity.RateCardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.entries {
		if e.Program == program && e.ServiceType == st && e.IsMultiplier &&
			e.WeightFrom <= weightKg && weightKg <= e.WeightTo {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeRateRepo) NextHigherBracket(_ context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var best *entity.RateCardEntry
	for _, e := range f.entries {
		if e.Program != program || e.ServiceType != st || e.RateSection != section ||
			e.IsMultiplier || e.WeightFrom <= weightKg {
			continue
		}
		if best == nil || e.WeightFrom < best.WeightFrom {
			best = e
		}
	}
	return best, nil
}

func (f *fakeRateRepo) ZoneByCode(_ context.Context, program string, st entity.ServiceType, countryCode string) (*entity.ZoneMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, z := range f.zones {
		if z.Program == program && z.ServiceType == st && z.CountryCode == countryCode {
			return z, nil
		}
	}
	return nil, nil
}

func (f *fakeRateRepo) ZoneByCountryName(_ context.Context, program string, st entity.ServiceType, name string) (*entity.ZoneMapping, error) {
	if f.err != nil {
		return nil, f.err
	}
	needle := strings.ToLower(name)
	for _, z := range f.zones {
		if z.Program == program && z.ServiceType == st &&
			strings.Contains(strings.ToLower(z.CountryName), needle) {
			return z, nil
		}
	}
	return nil, nil
}

func (f *fakeRateRepo) SurchargeRules(_ context.Context, program string) ([]*entity.SurchargeRule, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.SurchargeRule
	for _, r := range f.surcharges {
		if r.Program == program {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRateRepo) ServiceChargeDefinitions(_ context.Context, program string) ([]*entity.ServiceChargeDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.ServiceChargeDefinition
	for _, d := range f.serviceCharges {
		if d.Program == program {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeInvoiceRepo serves invoice lines keyed by invoice number.
type fakeInvoiceRepo struct {
	lines map[string][]*entity.InvoiceLine
	err   error
}

func (f *fakeInvoiceRepo) GetLines(_ context.Context, invoiceNumber string) ([]*entity.InvoiceLine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lines[invoiceNumber], nil
}

func (f *fakeInvoiceRepo) ListUnaudited(_ context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for number := range f.lines {
		out = append(out, number)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) Create(_ context.Context, line *entity.InvoiceLine) error {
	if f.lines == nil {
		f.lines = make(map[string][]*entity.InvoiceLine)
	}
	f.lines[line.InvoiceNumber] = append(f.lines[line.InvoiceNumber], line)
	return nil
}

// fakeResultStore upserts results on (invoice, AWB) like the real store.
type fakeResultStore struct {
	saved map[string]*entity.AuditResult
	err   error
}

func resultKey(invoiceNumber, awb string) string {
	return invoiceNumber + "/" + awb
}

func (f *fakeResultStore) Save(_ context.Context, result *entity.AuditResult) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]*entity.AuditResult)
	}
	f.saved[resultKey(result.InvoiceNumber, result.AWB)] = result
	return nil
}

func (f *fakeResultStore) Get(_ context.Context, invoiceNumber, awb string) (*entity.AuditResult, error) {
	r, ok := f.saved[resultKey(invoiceNumber, awb)]
	if !ok {
		return nil, fmt.Errorf("result not found: %s/%s", invoiceNumber, awb)
	}
	return r, nil
}

func (f *fakeResultStore) GetByInvoice(_ context.Context, invoiceNumber string) ([]*entity.AuditResult, error) {
	var out []*entity.AuditResult
	for _, r := range f.saved {
		if r.InvoiceNumber == invoiceNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResultStore) Summary(_ context.Context) (*entity.StatusSummary, error) {
	s := &entity.StatusSummary{ByStatus: make(map[string]int)}
	for _, r := range f.saved {
		s.AuditedInvoices++
		s.ByStatus[string(r.Status)]++
	}
	return s, nil
}
