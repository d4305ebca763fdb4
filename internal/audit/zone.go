package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"go.uber.org/zap"
)

// cityAliases maps common city/airport codes appearing on invoices to
// the country code the zone tables are keyed by.
var cityAliases = map[string]string{
	"SYD": "AU", "MEL": "AU",
	"SIN": "SG",
	"HKG": "HK",
	"EIN": "NL", "AMS": "NL",
	"LAX": "US", "JFK": "US",
	"LHR": "GB",
	"CDG": "FR",
	"FRA": "DE",
	"NRT": "JP",
	"BOM": "IN", "DEL": "IN", "CCU": "IN", "MAA": "IN",
}

// ZoneResolver maps an origin/destination code to a carrier zone for a
// service direction.
type ZoneResolver struct {
	rates   port.RateCardRepository
	aliases map[string]string
	logger  *zap.Logger
}

// NewZoneResolver creates a resolver. Extra aliases extend (and may
// override) the built-in city alias table.
func NewZoneResolver(rates port.RateCardRepository, extraAliases map[string]string, logger *zap.Logger) *ZoneResolver {
	aliases := make(map[string]string, len(cityAliases)+len(extraAliases))
	for k, v := range cityAliases {
		aliases[k] = v
	}
	for k, v := range extraAliases {
		aliases[strings.ToUpper(k)] = strings.ToUpper(v)
	}
	return &ZoneResolver{rates: rates, aliases: aliases, logger: logger}
}

// Resolve returns the zone for a country, city, or port code. Lookup
// order is part of the contract: alias substitution, exact code match,
// retry with the original unsubstituted code, then a substring match on
// the country name. Alias substitution must not shadow a legitimate
// direct code match, hence the retry step.
func (z *ZoneResolver) Resolve(ctx context.Context, program string, st entity.ServiceType, code string) (string, error) {
	original := strings.ToUpper(strings.TrimSpace(code))
	if original == "" {
		return "", fmt.Errorf("%w: empty code", ErrZoneNotFound)
	}

	lookup := original
	substituted := false
	if country, ok := z.aliases[original]; ok {
		lookup = country
		substituted = true
	}

	m, err := z.rates.ZoneByCode(ctx, program, st, lookup)
	if err != nil {
		return "", fmt.Errorf("zone lookup %q: %w", lookup, err)
	}
	if m != nil {
		return m.Zone, nil
	}

	if substituted {
		m, err = z.rates.ZoneByCode(ctx, program, st, original)
		if err != nil {
			return "", fmt.Errorf("zone lookup %q: %w", original, err)
		}
		if m != nil {
			return m.Zone, nil
		}
	}

	m, err = z.rates.ZoneByCountryName(ctx, program, st, original)
	if err != nil {
		return "", fmt.Errorf("zone name lookup %q: %w", original, err)
	}
	if m != nil {
		return m.Zone, nil
	}

	z.logger.Debug("zone resolution failed",
		zap.String("program", program),
		zap.String("code", original),
		zap.String("service_type", string(st)))
	return "", fmt.Errorf("%w: %s (%s)", ErrZoneNotFound, original, st)
}
