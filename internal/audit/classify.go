package audit

import (
	"math"

	"github.com/auditcore/freight-audit/internal/domain/entity"
)

// Tax applies a fixed-rate tax (percent) to a subtotal. The rate is a
// program constant, never derived from the invoice.
func Tax(subtotal, ratePercent float64) float64 {
	return subtotal * ratePercent / 100
}

// Decision is the classified outcome of one invoice line.
type Decision struct {
	Status          entity.AuditStatus
	Variance        float64
	VariancePercent float64

	// Degenerate marks expected total == 0: the percentage is forced
	// to 0 and the condition is flagged rather than divided through.
	Degenerate bool

	// CustomerBenefit marks a negative-variance pass under the
	// customer-benefit override.
	CustomerBenefit bool
}

// Classify folds the per-category checks and total variance into the
// overall status, applying the policy's ordered rules:
//
//  1. an upstream ERROR on the weight check is terminal;
//  2. all checks passing within the pass tolerance is a PASS;
//  3. a passing weight check with negative variance is a PASS under
//     the customer-benefit override (underbilling is not dispute-worthy);
//  4. otherwise the review band decides VARIANCE vs FAIL.
func (p Policy) Classify(actualTotal, expectedTotal float64, weightStatus, taxStatus entity.CategoryStatus) Decision {
	d := Decision{Variance: actualTotal - expectedTotal}

	if expectedTotal == 0 {
		d.Degenerate = true
		d.VariancePercent = 0
	} else {
		d.VariancePercent = d.Variance / expectedTotal * 100
	}

	if weightStatus == entity.CategoryError {
		d.Status = entity.StatusError
		return d
	}

	absPct := math.Abs(d.VariancePercent)
	taxOK := taxStatus == entity.CategoryPass || taxStatus == entity.CategoryPassThrough

	switch {
	case weightStatus == entity.CategoryPass && taxOK && absPct <= p.PassTolerancePercent:
		d.Status = entity.StatusPass
	case weightStatus == entity.CategoryPass && d.VariancePercent < 0 && p.CustomerBenefitOverride:
		d.Status = entity.StatusPass
		d.CustomerBenefit = true
	case absPct <= p.ReviewTolerancePercent:
		d.Status = entity.StatusVariance
	default:
		d.Status = entity.StatusFail
	}
	return d
}

// compareCategory builds a per-category result at the policy's pass
// tolerance, with an absolute epsilon for rounding noise.
func (p Policy) compareCategory(actual, expected float64) *entity.CategoryResult {
	r := &entity.CategoryResult{
		Actual:   actual,
		Expected: expected,
		Variance: actual - expected,
	}
	if expected != 0 {
		r.VariancePercent = r.Variance / expected * 100
	}
	switch {
	case math.Abs(r.Variance) <= p.TaxEpsilon:
		r.Status = entity.CategoryPass
	case expected != 0 && math.Abs(r.VariancePercent) <= p.PassTolerancePercent:
		r.Status = entity.CategoryPass
	default:
		r.Status = entity.CategoryVariance
	}
	return r
}
