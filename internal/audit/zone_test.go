package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/auditcore/freight-audit/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testZoneRepo() *fakeRateRepo {
	return &fakeRateRepo{
		zones: []*entity.ZoneMapping{
			{Program: "dhl-express-cn", ServiceType: entity.ServiceExport, CountryCode: "AU", CountryName: "Australia", Zone: "7"},
			{Program: "dhl-express-cn", ServiceType: entity.ServiceExport, CountryCode: "SG", CountryName: "Singapore", Zone: "2"},
			{Program: "dhl-express-cn", ServiceType: entity.ServiceExport, CountryCode: "US", CountryName: "United States of America", Zone: "6"},
			// A code that collides with a city alias: resolution must
			// still honor the direct mapping via the retry step.
			{Program: "dhl-express-cn", ServiceType: entity.ServiceImport, CountryCode: "SIN", CountryName: "Sinland", Zone: "9"},
		},
	}
}

func TestZoneResolver_AliasSubstitution(t *testing.T) {
	r := NewZoneResolver(testZoneRepo(), nil, zap.NewNop())

	tests := []struct {
		name string
		code string
		want string
	}{
		{"city alias to country", "SYD", "7"},
		{"second alias same country", "MEL", "7"},
		{"direct country code", "AU", "7"},
		{"lowercase input", "sg", "2"},
		{"surrounding whitespace", "  US ", "6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceExport, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, zone)
		})
	}
}

func TestZoneResolver_RetryWithOriginalCode(t *testing.T) {
	// "SIN" aliases to "SG", but the Import table maps "SIN" directly
	// and has no "SG" row. The alias must not shadow the real mapping.
	r := NewZoneResolver(testZoneRepo(), nil, zap.NewNop())

	zone, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceImport, "SIN")
	require.NoError(t, err)
	assert.Equal(t, "9", zone)
}

func TestZoneResolver_CountryNameFallback(t *testing.T) {
	r := NewZoneResolver(testZoneRepo(), nil, zap.NewNop())

	zone, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceExport, "Singapore")
	require.NoError(t, err)
	assert.Equal(t, "2", zone)
}

func TestZoneResolver_NotFound(t *testing.T) {
	r := NewZoneResolver(testZoneRepo(), nil, zap.NewNop())

	_, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceExport, "ZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrZoneNotFound))
}

func TestZoneResolver_EmptyCode(t *testing.T) {
	r := NewZoneResolver(testZoneRepo(), nil, zap.NewNop())

	_, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceExport, "   ")
	assert.True(t, errors.Is(err, ErrZoneNotFound))
}

func TestZoneResolver_ExtraAliasesOverride(t *testing.T) {
	r := NewZoneResolver(testZoneRepo(), map[string]string{"bne": "AU"}, zap.NewNop())

	zone, err := r.Resolve(context.Background(), "dhl-express-cn", entity.ServiceExport, "BNE")
	require.NoError(t, err)
	assert.Equal(t, "7", zone)
}
