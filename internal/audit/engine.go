package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"go.uber.org/zap"
)

// Engine orchestrates one audit: zone resolution, rate lookup,
// surcharge and fuel composition, tax, and classification. Every step
// appends to a structured trail explaining why the final number is what
// it is; the trail is a first-class output, not a debug artifact.
type Engine struct {
	invoices port.InvoiceRepository
	results  port.AuditResultStore
	policies *PolicyRegistry

	zones      *ZoneResolver
	rateLookup *RateLookup
	surcharges *SurchargeCalculator
	matcher    *ServiceChargeMatcher

	logger *zap.Logger
	now    func() time.Time
}

// NewEngine wires the audit engine against its repositories.
func NewEngine(
	rates port.RateCardRepository,
	invoices port.InvoiceRepository,
	results port.AuditResultStore,
	policies *PolicyRegistry,
	aliases map[string]string,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		invoices:   invoices,
		results:    results,
		policies:   policies,
		zones:      NewZoneResolver(rates, aliases, logger),
		rateLookup: NewRateLookup(rates, logger),
		surcharges: NewSurchargeCalculator(rates, logger),
		matcher:    NewServiceChargeMatcher(rates),
		logger:     logger,
		now:        time.Now,
	}
}

// AuditInvoice audits every line of one invoice and persists each line
// result. A line failure never aborts the remaining lines.
func (e *Engine) AuditInvoice(ctx context.Context, invoiceNumber string) (*entity.InvoiceAudit, error) {
	lines, err := e.invoices.GetLines(ctx, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", invoiceNumber, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("invoice %s not found", invoiceNumber)
	}

	agg := &entity.InvoiceAudit{
		InvoiceNumber: invoiceNumber,
		AuditedAt:     e.now(),
	}
	for _, line := range lines {
		result := e.AuditLine(ctx, line)
		agg.Lines = append(agg.Lines, result)

		switch result.Status {
		case entity.StatusPass:
			agg.PassCount++
		case entity.StatusVariance:
			agg.VarianceCount++
		case entity.StatusFail:
			agg.FailCount++
		default:
			agg.ErrorCount++
		}
		agg.TotalExpected += result.TotalExpected
		agg.TotalActual += result.TotalActual

		if err := e.results.Save(ctx, result); err != nil {
			e.logger.Error("failed to save audit result",
				zap.String("invoice", invoiceNumber),
				zap.String("awb", result.AWB),
				zap.Error(err))
			return nil, fmt.Errorf("save result %s/%s: %w", invoiceNumber, result.AWB, err)
		}
	}

	agg.TotalVariance = agg.TotalActual - agg.TotalExpected
	if agg.TotalExpected != 0 {
		agg.VariancePercent = agg.TotalVariance / agg.TotalExpected * 100
	}
	agg.Status = overallStatus(agg)

	e.logger.Info("invoice audited",
		zap.String("invoice", invoiceNumber),
		zap.String("status", string(agg.Status)),
		zap.Int("lines", len(agg.Lines)),
		zap.Float64("variance", agg.TotalVariance))
	return agg, nil
}

func overallStatus(agg *entity.InvoiceAudit) entity.AuditStatus {
	switch {
	case agg.ErrorCount > 0:
		return entity.StatusError
	case agg.FailCount > 0:
		return entity.StatusFail
	case agg.VarianceCount > 0:
		return entity.StatusVariance
	default:
		return entity.StatusPass
	}
}

// AuditLine audits a single invoice line. It never returns an error:
// any failure, including a panic inside a calculation step, becomes an
// ERROR result carrying the cause, so one bad line cannot sink a batch.
func (e *Engine) AuditLine(ctx context.Context, line *entity.InvoiceLine) (result *entity.AuditResult) {
	policy := e.policies.Get(line.CarrierProgram)
	result = &entity.AuditResult{
		InvoiceNumber: line.InvoiceNumber,
		AWB:           line.AWB,
		Program:       policy.Program,
		AuditedAt:     e.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during line audit",
				zap.String("invoice", line.InvoiceNumber),
				zap.String("awb", line.AWB),
				zap.Any("panic", r))
			result.Status = entity.StatusError
			result.ErrorMessage = fmt.Sprintf("audit aborted: %v", r)
			result.AddTrail("error", result.ErrorMessage, nil)
		}
	}()

	if line.WeightKg < 0 || math.IsNaN(line.WeightKg) {
		return e.failLine(result, "data", fmt.Sprintf("invalid weight %.3f kg", line.WeightKg))
	}
	st := line.ServiceType
	if !st.IsValid() {
		return e.failLine(result, "data", fmt.Sprintf("invalid service type %q", st))
	}

	// Zone resolution. Failure here is terminal for the line: no
	// expected cost is ever computed from a missing zone.
	country := line.CountryForZone()
	zone, err := e.zones.Resolve(ctx, policy.Program, st, country)
	if err != nil {
		return e.failLine(result, "zone",
			fmt.Sprintf("could not determine zone for %s (consignor %q, origin %q): %v",
				country, line.ConsignorCountry, line.OriginCode, err))
	}
	result.ZoneUsed = zone
	result.AddTrail("zone", fmt.Sprintf("country %s resolved to zone %s (%s)", country, zone, st),
		map[string]any{"country": country, "zone": zone})

	// Base weight charge.
	quote, err := e.rateLookup.Lookup(ctx, policy.Program, st, entity.SectionNonDocuments, zone, line.WeightKg, policy.HeavyWeightThresholdKg)
	if err != nil {
		result.WeightAudit = &entity.CategoryResult{
			Actual: line.WeightCharge,
			Status: entity.CategoryError,
			Note:   err.Error(),
		}
		return e.failLine(result, "rate",
			fmt.Sprintf("no rate for %.2fkg in zone %s: %v", line.WeightKg, zone, err))
	}
	result.RateCardReference = quote.Reference
	result.WeightAudit = policy.compareCategory(line.WeightCharge, quote.Amount)
	e.describeRate(result, line, quote, policy)

	// Other charges.
	expectedOther, err := e.auditOtherCharges(ctx, result, line, policy)
	if err != nil {
		return e.failLine(result, "other_charges", fmt.Sprintf("surcharge evaluation failed: %v", err))
	}

	// Fuel surcharge.
	expectedFuel, fuelPassThrough, err := e.auditFuel(ctx, result, line, policy, quote.Amount+expectedOther)
	if err != nil {
		return e.failLine(result, "fuel", fmt.Sprintf("fuel surcharge lookup failed: %v", err))
	}

	// Tax on the expected subtotal. A zero program rate means the tax
	// category is pass-through, not a zero-tax assertion.
	subtotal := quote.Amount + expectedOther + expectedFuel
	var expectedTax float64
	taxPassThrough := policy.TaxRatePercent == 0
	if taxPassThrough {
		result.TaxAudit = &entity.CategoryResult{
			Actual:   line.TaxAmount,
			Expected: line.TaxAmount,
			Status:   entity.CategoryPassThrough,
			Note:     "tax not audited for this program",
		}
	} else {
		expectedTax = Tax(subtotal, policy.TaxRatePercent)
		result.TaxAudit = policy.compareCategory(line.TaxAmount, expectedTax)
		result.AddTrail("tax",
			fmt.Sprintf("tax %.2f%% on subtotal %.2f: expected %.2f, actual %.2f",
				policy.TaxRatePercent, subtotal, expectedTax, line.TaxAmount),
			map[string]any{"rate_percent": policy.TaxRatePercent, "expected": expectedTax, "actual": line.TaxAmount})
	}

	// Totals. Pass-through categories are excluded from both sides so
	// they contribute exactly zero variance.
	expectedTotal := subtotal + expectedTax
	actualTotal := line.TotalAmount
	if fuelPassThrough {
		actualTotal -= line.FuelSurcharge
	}
	if taxPassThrough {
		actualTotal -= line.TaxAmount
	}

	decision := policy.Classify(actualTotal, expectedTotal, result.WeightAudit.Status, result.TaxAudit.Status)
	result.TotalExpected = expectedTotal
	result.TotalActual = actualTotal
	result.TotalVariance = decision.Variance
	result.VariancePercent = decision.VariancePercent
	result.Degenerate = decision.Degenerate
	result.Status = decision.Status

	result.AddTrail("totals",
		fmt.Sprintf("expected %.2f, actual %.2f, variance %+.2f (%+.1f%%)",
			expectedTotal, actualTotal, decision.Variance, decision.VariancePercent),
		map[string]any{
			"expected_total": expectedTotal,
			"actual_total":   actualTotal,
			"variance":       decision.Variance,
		})
	if decision.Degenerate {
		result.AddTrail("totals", "expected total is zero; variance percent forced to 0", nil)
	}

	switch {
	case decision.CustomerBenefit:
		result.AddTrail("decision",
			fmt.Sprintf("PASS: variance %.1f%% in customer favor (customer benefit)", math.Abs(decision.VariancePercent)), nil)
	case decision.Status == entity.StatusPass:
		result.AddTrail("decision",
			fmt.Sprintf("PASS: variance %.1f%% within %.1f%% tolerance", math.Abs(decision.VariancePercent), policy.PassTolerancePercent), nil)
	case decision.Status == entity.StatusVariance:
		result.AddTrail("decision",
			fmt.Sprintf("VARIANCE: %.1f%% exceeds %.1f%% tolerance", math.Abs(decision.VariancePercent), policy.PassTolerancePercent), nil)
	default:
		result.AddTrail("decision",
			fmt.Sprintf("FAIL: variance %.1f%% exceeds %.1f%% review band", math.Abs(decision.VariancePercent), policy.ReviewTolerancePercent), nil)
	}
	return result
}

// failLine finalizes a line as ERROR with the cause. No partial
// expected cost survives an upstream lookup failure.
func (e *Engine) failLine(result *entity.AuditResult, step, msg string) *entity.AuditResult {
	result.Status = entity.StatusError
	result.ErrorMessage = msg
	result.AddTrail(step, msg, nil)
	return result
}

func (e *Engine) describeRate(result *entity.AuditResult, line *entity.InvoiceLine, quote *RateQuote, policy Policy) {
	data := map[string]any{
		"weight_kg": line.WeightKg,
		"zone":      result.ZoneUsed,
		"expected":  quote.Amount,
		"actual":    line.WeightCharge,
	}
	result.AddTrail("weight",
		fmt.Sprintf("weight %.2fkg zone %s: expected %.2f, actual %.2f (%+.1f%%)",
			line.WeightKg, result.ZoneUsed, quote.Amount, line.WeightCharge, result.WeightAudit.VariancePercent),
		data)

	if quote.IsPerKg {
		result.AddTrail("weight",
			fmt.Sprintf("over %.0fkg threshold: rounded up to %.0fkg at %.2f/kg",
				policy.HeavyWeightThresholdKg, quote.RoundedWeightKg, quote.PerKgRate),
			map[string]any{"rounded_weight_kg": quote.RoundedWeightKg, "per_kg_rate": quote.PerKgRate})
	}
	if quote.Approximate {
		result.AddTrail("weight",
			fmt.Sprintf("no bracket contains %.2fkg; next higher bracket used as conservative approximation", line.WeightKg),
			map[string]any{"approximate": true})
	}
}

// auditOtherCharges handles the "other charges" category and returns
// the amount folded into the expected subtotal.
//
// Pass-through-fuel programs price other charges by identification: the
// invoiced amount is accepted into the subtotal and the matcher reports
// which named services it plausibly is. Rule-based programs compute the
// expected amount from the surcharge table and compare.
func (e *Engine) auditOtherCharges(ctx context.Context, result *entity.AuditResult, line *entity.InvoiceLine, policy Policy) (float64, error) {
	if policy.FuelPassThrough {
		if line.OtherCharges <= 0 {
			result.OtherAudit = &entity.CategoryResult{Status: entity.CategoryPass}
			result.AddTrail("other_charges", "no additional services charged", nil)
			return 0, nil
		}
		matches, err := e.matcher.FindCandidates(ctx, policy.Program, line.OtherCharges)
		if err != nil {
			result.OtherAudit = &entity.CategoryResult{
				Actual: line.OtherCharges,
				Status: entity.CategoryError,
				Note:   err.Error(),
			}
			return 0, err
		}
		result.ServiceMatches = matches
		if len(matches) == 0 {
			result.OtherAudit = &entity.CategoryResult{
				Actual: line.OtherCharges, Expected: line.OtherCharges,
				Status: entity.CategoryVariance, Note: "no matching service found",
			}
			result.AddTrail("other_charges",
				fmt.Sprintf("other charges %.2f: no matching service found", line.OtherCharges),
				map[string]any{"amount": line.OtherCharges, "match_count": 0})
		} else {
			result.OtherAudit = &entity.CategoryResult{
				Actual: line.OtherCharges, Expected: line.OtherCharges,
				Status: entity.CategoryPass,
			}
			names := make([]string, 0, len(matches))
			for _, m := range matches {
				names = append(names, m.Name)
			}
			result.AddTrail("other_charges",
				fmt.Sprintf("other charges %.2f matched %d service(s)", line.OtherCharges, len(matches)),
				map[string]any{"amount": line.OtherCharges, "services": names})
		}
		return line.OtherCharges, nil
	}

	surcharges, err := e.surcharges.Compute(ctx, policy.Program, line.ServiceType, line.WeightKg, line.DeclaredValue)
	if err != nil {
		result.OtherAudit = &entity.CategoryResult{
			Actual: line.OtherCharges,
			Status: entity.CategoryError,
			Note:   err.Error(),
		}
		return 0, err
	}
	expected := Total(surcharges)
	result.OtherAudit = policy.compareCategory(line.OtherCharges, expected)
	for _, s := range surcharges {
		msg := fmt.Sprintf("surcharge %s (%s): %.2f", s.Code, s.Name, s.Amount)
		if s.Note != "" {
			msg += " (" + s.Note + ")"
		}
		result.AddTrail("other_charges", msg, map[string]any{"code": s.Code, "amount": s.Amount})
	}
	result.AddTrail("other_charges",
		fmt.Sprintf("other charges: expected %.2f, actual %.2f", expected, line.OtherCharges),
		map[string]any{"expected": expected, "actual": line.OtherCharges})
	return expected, nil
}

// auditFuel handles the fuel surcharge category and returns the amount
// folded into the expected subtotal (zero for pass-through programs).
func (e *Engine) auditFuel(ctx context.Context, result *entity.AuditResult, line *entity.InvoiceLine, policy Policy, basePlusSurcharges float64) (float64, bool, error) {
	if policy.FuelPassThrough {
		result.FuelAudit = &entity.CategoryResult{
			Actual:   line.FuelSurcharge,
			Expected: line.FuelSurcharge,
			Status:   entity.CategoryPassThrough,
			Note:     "fuel surcharge passed through from origin; not audited",
		}
		result.AddTrail("fuel",
			fmt.Sprintf("fuel surcharge %.2f accepted as pass-through", line.FuelSurcharge),
			map[string]any{"amount": line.FuelSurcharge, "pass_through": true})
		return 0, true, nil
	}

	expected, rate, err := e.surcharges.FuelSurcharge(ctx, policy.Program, basePlusSurcharges, policy.FuelDefaultRatePercent)
	if err != nil {
		result.FuelAudit = &entity.CategoryResult{
			Actual: line.FuelSurcharge,
			Status: entity.CategoryError,
			Note:   err.Error(),
		}
		return 0, false, err
	}
	result.FuelAudit = policy.compareCategory(line.FuelSurcharge, expected)
	result.AddTrail("fuel",
		fmt.Sprintf("fuel surcharge %.2f%% on %.2f: expected %.2f, actual %.2f",
			rate, basePlusSurcharges, expected, line.FuelSurcharge),
		map[string]any{"rate_percent": rate, "expected": expected, "actual": line.FuelSurcharge})
	return expected, false, nil
}
