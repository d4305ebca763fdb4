package audit

import (
	"context"
	"fmt"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"go.uber.org/zap"
)

// SurchargeAmount is one evaluated surcharge rule.
type SurchargeAmount struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

// SurchargeCalculator evaluates the carrier's surcharge table.
type SurchargeCalculator struct {
	rates  port.RateCardRepository
	logger *zap.Logger
}

// NewSurchargeCalculator creates a surcharge calculator.
func NewSurchargeCalculator(rates port.RateCardRepository, logger *zap.Logger) *SurchargeCalculator {
	return &SurchargeCalculator{rates: rates, logger: logger}
}

// Compute evaluates every applicable non-percentage rule. PERCENTAGE
// rules (notably fuel) are deliberately excluded: they apply to the
// summed base and are handled by FuelSurcharge. VARIABLE rules
// contribute zero and are reported, never guessed.
func (c *SurchargeCalculator) Compute(ctx context.Context, program string, st entity.ServiceType, weightKg, declaredValue float64) ([]SurchargeAmount, error) {
	rules, err := c.rates.SurchargeRules(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("surcharge rules: %w", err)
	}

	var out []SurchargeAmount
	for _, rule := range rules {
		if !rule.Active || !rule.AppliesTo(st) {
			continue
		}
		if rule.Code == entity.FuelSurchargeCode || rule.RateType == entity.SurchargePercentage {
			continue
		}

		amt := SurchargeAmount{Code: rule.Code, Name: rule.Name}
		switch rule.RateType {
		case entity.SurchargeFixed:
			amt.Amount = rule.RateValue

		case entity.SurchargeWeightOrFixed:
			minimum := 0.0
			if rule.MinimumCharge != nil {
				minimum = *rule.MinimumCharge
			}
			amt.Amount = max(weightKg*rule.RateValue, minimum)

		case entity.SurchargeValueOrWeight:
			if declaredValue <= 0 {
				continue
			}
			perKgFloor := 0.0
			if rule.MinimumCharge != nil {
				perKgFloor = *rule.MinimumCharge
			}
			amt.Amount = max((declaredValue/100)*rule.RateValue, weightKg*perKgFloor)

		case entity.SurchargeVariable:
			amt.Amount = 0
			amt.Note = "determined externally"

		default:
			amt.Amount = 0
			amt.Note = fmt.Sprintf("unknown rate type %s", rule.RateType)
			c.logger.Warn("unknown surcharge rate type",
				zap.String("program", program),
				zap.String("code", rule.Code),
				zap.String("rate_type", string(rule.RateType)))
		}

		if rule.MaximumCharge != nil && amt.Amount > *rule.MaximumCharge {
			amt.Amount = *rule.MaximumCharge
			amt.Note = "clamped to maximum"
		}
		out = append(out, amt)
	}
	return out, nil
}

// FuelSurcharge computes the percentage fuel surcharge over the summed
// base cost plus non-fuel surcharges. The rate comes from the rule
// keyed FUEL; defaultRatePercent applies when the rule is absent.
func (c *SurchargeCalculator) FuelSurcharge(ctx context.Context, program string, basePlusSurcharges, defaultRatePercent float64) (amount, ratePercent float64, err error) {
	rules, err := c.rates.SurchargeRules(ctx, program)
	if err != nil {
		return 0, 0, fmt.Errorf("surcharge rules: %w", err)
	}
	ratePercent = defaultRatePercent
	for _, rule := range rules {
		if rule.Active && rule.Code == entity.FuelSurchargeCode {
			ratePercent = rule.RateValue
			break
		}
	}
	return basePlusSurcharges * ratePercent / 100, ratePercent, nil
}

// Total sums evaluated surcharge amounts.
func Total(surcharges []SurchargeAmount) float64 {
	var sum float64
	for _, s := range surcharges {
		sum += s.Amount
	}
	return sum
}
