package audit

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
)

// serviceMatchTolerance is the relative band within which an "other
// charges" amount is considered to match a named service charge.
const serviceMatchTolerance = 0.02

// ServiceChargeMatcher identifies named services behind "other charges"
// lines that are not zone/weight driven.
type ServiceChargeMatcher struct {
	rates port.RateCardRepository
}

// NewServiceChargeMatcher creates a matcher.
func NewServiceChargeMatcher(rates port.RateCardRepository) *ServiceChargeMatcher {
	return &ServiceChargeMatcher{rates: rates}
}

// FindCandidates returns every active service-charge definition whose
// published amount is within 2% of the queried amount, closest first.
// An empty result is a valid, reportable outcome, not an error.
func (m *ServiceChargeMatcher) FindCandidates(ctx context.Context, program string, amount float64) ([]entity.ServiceMatch, error) {
	defs, err := m.rates.ServiceChargeDefinitions(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("service charge definitions: %w", err)
	}

	tolerance := math.Abs(amount) * serviceMatchTolerance
	var matches []entity.ServiceMatch
	for _, def := range defs {
		if !def.Active {
			continue
		}
		diff := math.Abs(def.ChargeAmount - amount)
		if diff <= tolerance {
			matches = append(matches, entity.ServiceMatch{
				Code:         def.Code,
				Name:         def.Name,
				ChargeAmount: def.ChargeAmount,
				Difference:   diff,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Difference < matches[j].Difference
	})
	return matches, nil
}
