package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auditcore/freight-audit/internal/application/port"
	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/auditcore/freight-audit/pkg/database"
	"go.uber.org/zap"
)

// RateCardRepository implements port.RateCardRepository and
// port.RateCardWriter over SQLite. Zone rates are stored as a JSON
// object keyed by zone id, so programs with different zone counts share
// one schema.
type RateCardRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRateCardRepository creates a new rate card repository
func NewRateCardRepository(db *database.DB, logger *zap.Logger) *RateCardRepository {
	return &RateCardRepository{db: db, logger: logger}
}

const rateCardColumns = `id, program, service_type, rate_section, weight_from, weight_to, is_multiplier, zone_rates, currency, created_at`

func (r *RateCardRepository) scanEntry(row *sql.Row) (*entity.RateCardEntry, error) {
	var e entity.RateCardEntry
	var zoneRates string
	err := row.Scan(
		&e.ID,
		&e.Program,
		&e.ServiceType,
		&e.RateSection,
		&e.WeightFrom,
		&e.WeightTo,
		&e.IsMultiplier,
		&zoneRates,
		&e.Currency,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rate card entry: %w", err)
	}
	if err := json.Unmarshal([]byte(zoneRates), &e.Rates); err != nil {
		return nil, fmt.Errorf("corrupt zone_rates for entry %d: %w", e.ID, err)
	}
	return &e, nil
}

// BracketRate returns the fixed bracket containing the weight.
func (r *RateCardRepository) BracketRate(ctx context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error) {
	query := `
		SELECT ` + rateCardColumns + `
		FROM rate_card_entries
		WHERE program = ? AND service_type = ? AND rate_section = ?
			AND is_multiplier = 0
			AND weight_from <= ? AND ? < weight_to
		ORDER BY weight_from
		LIMIT 1
	`
	return r.scanEntry(r.db.QueryRowContext(ctx, query, program, string(st), string(section), weightKg, weightKg))
}

// MultiplierRate returns the per-kg band containing the weight. Band
// bounds are inclusive on both ends.
func (r *RateCardRepository) MultiplierRate(ctx context.Context, program string, st entity.ServiceType, weightKg float64) (*entity.RateCardEntry, error) {
	query := `
		SELECT ` + rateCardColumns + `
		FROM rate_card_entries
		WHERE program = ? AND service_type = ?
			AND is_multiplier = 1
			AND weight_from <= ? AND ? <= weight_to
		ORDER BY weight_from
		LIMIT 1
	`
	return r.scanEntry(r.db.QueryRowContext(ctx, query, program, string(st), weightKg, weightKg))
}

// NextHigherBracket returns the closest fixed bracket above the weight.
func (r *RateCardRepository) NextHigherBracket(ctx context.Context, program string, st entity.ServiceType, section entity.RateSection, weightKg float64) (*entity.RateCardEntry, error) {
	query := `
		SELECT ` + rateCardColumns + `
		FROM rate_card_entries
		WHERE program = ? AND service_type = ? AND rate_section = ?
			AND is_multiplier = 0
			AND weight_from > ?
		ORDER BY weight_from
		LIMIT 1
	`
	return r.scanEntry(r.db.QueryRowContext(ctx, query, program, string(st), string(section), weightKg))
}

func (r *RateCardRepository) scanZone(row *sql.Row) (*entity.ZoneMapping, error) {
	var z entity.ZoneMapping
	err := row.Scan(&z.ID, &z.Program, &z.ServiceType, &z.CountryCode, &z.CountryName, &z.Zone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan zone mapping: %w", err)
	}
	return &z, nil
}

// ZoneByCode resolves an exact country code match.
func (r *RateCardRepository) ZoneByCode(ctx context.Context, program string, st entity.ServiceType, countryCode string) (*entity.ZoneMapping, error) {
	query := `
		SELECT id, program, service_type, country_code, country_name, zone
		FROM zone_mappings
		WHERE program = ? AND service_type = ? AND country_code = ?
		LIMIT 1
	`
	return r.scanZone(r.db.QueryRowContext(ctx, query, program, string(st), countryCode))
}

// ZoneByCountryName resolves a case-insensitive substring match.
func (r *RateCardRepository) ZoneByCountryName(ctx context.Context, program string, st entity.ServiceType, name string) (*entity.ZoneMapping, error) {
	query := `
		SELECT id, program, service_type, country_code, country_name, zone
		FROM zone_mappings
		WHERE program = ? AND service_type = ?
			AND country_name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY length(country_name)
		LIMIT 1
	`
	return r.scanZone(r.db.QueryRowContext(ctx, query, program, string(st), name))
}

// SurchargeRules returns every surcharge rule for a program.
func (r *RateCardRepository) SurchargeRules(ctx context.Context, program string) ([]*entity.SurchargeRule, error) {
	query := `
		SELECT id, program, code, name, rate_type, rate_value,
			minimum_charge, maximum_charge, applies_to_service, active
		FROM surcharge_rules
		WHERE program = ?
		ORDER BY code
	`
	rows, err := r.db.QueryContext(ctx, query, program)
	if err != nil {
		return nil, fmt.Errorf("failed to query surcharge rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.SurchargeRule
	for rows.Next() {
		var rule entity.SurchargeRule
		var minCharge, maxCharge sql.NullFloat64
		if err := rows.Scan(
			&rule.ID, &rule.Program, &rule.Code, &rule.Name,
			&rule.RateType, &rule.RateValue,
			&minCharge, &maxCharge,
			&rule.AppliesToService, &rule.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan surcharge rule: %w", err)
		}
		if minCharge.Valid {
			rule.MinimumCharge = &minCharge.Float64
		}
		if maxCharge.Valid {
			rule.MaximumCharge = &maxCharge.Float64
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// ServiceChargeDefinitions returns every named service charge for a program.
func (r *RateCardRepository) ServiceChargeDefinitions(ctx context.Context, program string) ([]*entity.ServiceChargeDefinition, error) {
	query := `
		SELECT id, program, code, name, description, charge_amount,
			minimum_charge, percentage_rate, active
		FROM service_charges
		WHERE program = ?
		ORDER BY code
	`
	rows, err := r.db.QueryContext(ctx, query, program)
	if err != nil {
		return nil, fmt.Errorf("failed to query service charges: %w", err)
	}
	defer rows.Close()

	var defs []*entity.ServiceChargeDefinition
	for rows.Next() {
		var def entity.ServiceChargeDefinition
		var minCharge, pctRate sql.NullFloat64
		if err := rows.Scan(
			&def.ID, &def.Program, &def.Code, &def.Name, &def.Description,
			&def.ChargeAmount, &minCharge, &pctRate, &def.Active,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service charge: %w", err)
		}
		if minCharge.Valid {
			def.MinimumCharge = &minCharge.Float64
		}
		if pctRate.Valid {
			def.PercentageRate = &pctRate.Float64
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

// ReplaceSnapshot swaps a program's whole rate snapshot in one
// transaction, so a half-loaded card is never visible to audits.
func (r *RateCardRepository) ReplaceSnapshot(ctx context.Context, program string, snapshot *port.RateSnapshot) error {
	err := r.db.WithTransaction(func(tx *sql.Tx) error {
		for _, table := range []string{"rate_card_entries", "zone_mappings", "surcharge_rules", "service_charges"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE program = ?", program); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, e := range snapshot.Entries {
			zoneRates, err := json.Marshal(e.Rates)
			if err != nil {
				return fmt.Errorf("failed to encode zone rates: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO rate_card_entries
					(program, service_type, rate_section, weight_from, weight_to, is_multiplier, zone_rates, currency)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				program, string(e.ServiceType), string(e.RateSection),
				e.WeightFrom, e.WeightTo, e.IsMultiplier, string(zoneRates), e.Currency,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rate card entry: %w", err)
			}
		}

		for _, z := range snapshot.Zones {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO zone_mappings (program, service_type, country_code, country_name, zone)
				VALUES (?, ?, ?, ?, ?)`,
				program, string(z.ServiceType), z.CountryCode, z.CountryName, z.Zone,
			)
			if err != nil {
				return fmt.Errorf("failed to insert zone mapping: %w", err)
			}
		}

		for _, rule := range snapshot.Surcharges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO surcharge_rules
					(program, code, name, rate_type, rate_value, minimum_charge, maximum_charge, applies_to_service, active)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				program, rule.Code, rule.Name, string(rule.RateType), rule.RateValue,
				nullableFloat(rule.MinimumCharge), nullableFloat(rule.MaximumCharge),
				rule.AppliesToService, rule.Active,
			)
			if err != nil {
				return fmt.Errorf("failed to insert surcharge rule: %w", err)
			}
		}

		for _, def := range snapshot.ServiceCharges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO service_charges
					(program, code, name, description, charge_amount, minimum_charge, percentage_rate, active)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				program, def.Code, def.Name, def.Description, def.ChargeAmount,
				nullableFloat(def.MinimumCharge), nullableFloat(def.PercentageRate), def.Active,
			)
			if err != nil {
				return fmt.Errorf("failed to insert service charge: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to replace rate snapshot",
			zap.String("program", program), zap.Error(err))
		return err
	}

	r.logger.Info("Rate snapshot replaced",
		zap.String("program", program),
		zap.Int("entries", len(snapshot.Entries)),
		zap.Int("zones", len(snapshot.Zones)),
		zap.Int("surcharges", len(snapshot.Surcharges)),
		zap.Int("service_charges", len(snapshot.ServiceCharges)))
	return nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Verify interface compliance
var (
	_ port.RateCardRepository = (*RateCardRepository)(nil)
	_ port.RateCardWriter     = (*RateCardRepository)(nil)
)
