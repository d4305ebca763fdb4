package audit

import "fmt"

// Policy captures the per-carrier/program behavioral knobs. The three
// shipped programs differ only in these values, not in code paths.
type Policy struct {
	// Program is the carrier program key, e.g. "dhl-express-cn".
	Program string

	// PassTolerancePercent is the variance band (absolute percent)
	// inside which an invoice passes outright.
	PassTolerancePercent float64

	// ReviewTolerancePercent is the wider band that downgrades a miss
	// to VARIANCE instead of FAIL.
	ReviewTolerancePercent float64

	// HeavyWeightThresholdKg is the weight above which per-kilogram
	// multiplier rates apply instead of fixed brackets.
	HeavyWeightThresholdKg float64

	// TaxRatePercent is the program's fixed tax rate (VAT/GST) applied
	// to the expected subtotal. Zero disables the tax check.
	TaxRatePercent float64

	// FuelPassThrough accepts the invoiced fuel amount without
	// verification; the amount contributes zero variance.
	FuelPassThrough bool

	// FuelDefaultRatePercent is used for the fuel surcharge when no
	// FUEL rule exists in the surcharge table.
	FuelDefaultRatePercent float64

	// CustomerBenefitOverride passes an invoice with a passing weight
	// check whenever the total variance is negative (the customer paid
	// less than expected), even if a secondary check shows a minor
	// variance.
	CustomerBenefitOverride bool

	// TaxEpsilon is the absolute amount under which a tax difference is
	// treated as rounding, not variance.
	TaxEpsilon float64
}

// DefaultPolicy returns the generic express program defaults. Programs
// loaded from configuration start here and override what they need.
func DefaultPolicy(program string) Policy {
	return Policy{
		Program:                 program,
		PassTolerancePercent:    5.0,
		ReviewTolerancePercent:  15.0,
		HeavyWeightThresholdKg:  30.0,
		TaxRatePercent:          0,
		FuelPassThrough:         false,
		FuelDefaultRatePercent:  15.5,
		CustomerBenefitOverride: true,
		TaxEpsilon:              0.01,
	}
}

// Validate rejects policies that would make the decision bands overlap
// nonsensically.
func (p Policy) Validate() error {
	if p.Program == "" {
		return fmt.Errorf("policy program must not be empty")
	}
	if p.PassTolerancePercent < 0 {
		return fmt.Errorf("policy %s: pass tolerance must be >= 0", p.Program)
	}
	if p.ReviewTolerancePercent < p.PassTolerancePercent {
		return fmt.Errorf("policy %s: review tolerance %.2f below pass tolerance %.2f",
			p.Program, p.ReviewTolerancePercent, p.PassTolerancePercent)
	}
	if p.HeavyWeightThresholdKg <= 0 {
		return fmt.Errorf("policy %s: heavy weight threshold must be > 0", p.Program)
	}
	return nil
}

// PolicyRegistry holds the configured program policies.
type PolicyRegistry struct {
	policies map[string]Policy
}

// NewPolicyRegistry builds a registry, validating every policy.
func NewPolicyRegistry(policies []Policy) (*PolicyRegistry, error) {
	r := &PolicyRegistry{policies: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		r.policies[p.Program] = p
	}
	return r, nil
}

// Get returns the policy for a program, falling back to defaults for
// unknown programs so a new feed is auditable before it is tuned.
func (r *PolicyRegistry) Get(program string) Policy {
	if p, ok := r.policies[program]; ok {
		return p
	}
	return DefaultPolicy(program)
}
