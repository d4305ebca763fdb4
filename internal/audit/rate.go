package audit

import (
	"context"
	"fmt"
	"math"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"go.uber.org/zap"
)

// RateQuote is the priced outcome of one rate lookup.
type RateQuote struct {
	Amount float64

	// IsPerKg marks a multiplier-band quote: Amount is PerKgRate times
	// the rounded weight.
	IsPerKg         bool
	PerKgRate       float64
	RoundedWeightKg float64

	// Approximate marks the next-higher-bracket fallback. The value is
	// a conservative approximation and must be surfaced in the trail.
	Approximate bool

	Reference string
}

// RateLookup prices a (weight, zone, service, section) tuple from the
// rate card snapshot.
type RateLookup struct {
	rates  port.RateCardRepository
	logger *zap.Logger
}

// NewRateLookup creates a rate lookup.
func NewRateLookup(rates port.RateCardRepository, logger *zap.Logger) *RateLookup {
	return &RateLookup{rates: rates, logger: logger}
}

// Lookup returns the expected base charge.
//
// Above the heavy-weight threshold the weight is rounded up to the next
// whole kilogram and priced against the per-kilogram multiplier band
// containing the original weight (bounds inclusive). If no band
// matches, the fixed-bracket search below still runs.
//
// Fixed brackets match weight_from <= w < weight_to. When no bracket
// contains the weight, the next higher bracket is used as a flagged
// conservative approximation. A bracket that contains the weight but
// does not price the zone is terminal: the zone is not served at that
// weight, and borrowing a heavier bracket's rate would invent a price.
// ErrRateNotFound otherwise.
func (l *RateLookup) Lookup(ctx context.Context, program string, st entity.ServiceType, section entity.RateSection, zone string, weightKg, heavyThresholdKg float64) (*RateQuote, error) {
	if weightKg > heavyThresholdKg {
		entry, err := l.rates.MultiplierRate(ctx, program, st, weightKg)
		if err != nil {
			return nil, fmt.Errorf("multiplier lookup: %w", err)
		}
		if entry != nil {
			if perKg, ok := entry.ZoneRate(zone); ok {
				rounded := math.Ceil(weightKg)
				return &RateQuote{
					Amount:          perKg * rounded,
					IsPerKg:         true,
					PerKgRate:       perKg,
					RoundedWeightKg: rounded,
					Reference:       entry.Reference(),
				}, nil
			}
			l.logger.Debug("multiplier band has no rate for zone",
				zap.String("program", program), zap.String("zone", zone))
		}
	}

	entry, err := l.rates.BracketRate(ctx, program, st, section, weightKg)
	if err != nil {
		return nil, fmt.Errorf("bracket lookup: %w", err)
	}
	if entry != nil {
		if rate, ok := entry.ZoneRate(zone); ok {
			return &RateQuote{Amount: rate, Reference: entry.Reference()}, nil
		}
		return nil, fmt.Errorf("%w: %.2fkg zone %s %s/%s (zone not priced in bracket %s)",
			ErrRateNotFound, weightKg, zone, st, section, entry.Reference())
	}

	entry, err = l.rates.NextHigherBracket(ctx, program, st, section, weightKg)
	if err != nil {
		return nil, fmt.Errorf("next bracket lookup: %w", err)
	}
	if entry != nil {
		if rate, ok := entry.ZoneRate(zone); ok {
			return &RateQuote{
				Amount:      rate,
				Approximate: true,
				Reference:   entry.Reference(),
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %.2fkg zone %s %s/%s", ErrRateNotFound, weightKg, zone, st, section)
}
