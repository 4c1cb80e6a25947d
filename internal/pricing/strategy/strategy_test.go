package strategy

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
	"github.com/stretchr/testify/assert"
)

func testProperty(id int64) propertydomain.Property {
	return propertydomain.Property{
		ID:           snowflake.ID(id),
		Tier:         propertydomain.TierCautious,
		FloorPrice:   50,
		BasePrice:    100,
		CeilingPrice: 200,
	}
}

func TestResolveOwnStrategy(t *testing.T) {
	property := testProperty(1)

	resolved := Resolve(property, nil, nil)
	assert.Equal(t, SourceProperty, resolved.Source)
	assert.Equal(t, propertydomain.TierCautious, resolved.Tier)
	assert.Equal(t, 100.0, resolved.BasePrice)
}

func TestResolveIgnoresGroupWithoutSync(t *testing.T) {
	property := testProperty(1)
	group := &groupdomain.Group{
		ID:         snowflake.ID(9),
		SyncPrices: false,
		Tier:       propertydomain.TierAggressive,
		BasePrice:  300,
	}

	resolved := Resolve(property, group, nil)
	assert.Equal(t, SourceProperty, resolved.Source)
	assert.Equal(t, 100.0, resolved.BasePrice)
}

func TestResolveSyncGroupInherits(t *testing.T) {
	property := testProperty(1)
	group := &groupdomain.Group{
		ID:           snowflake.ID(9),
		SyncPrices:   true,
		Tier:         propertydomain.TierAggressive,
		FloorPrice:   80,
		BasePrice:    160,
		CeilingPrice: 320,
	}

	resolved := Resolve(property, group, nil)
	assert.Equal(t, SourceGroup, resolved.Source)
	assert.Equal(t, propertydomain.TierAggressive, resolved.Tier)
	assert.Equal(t, 160.0, resolved.BasePrice)
}

func TestResolveMainPropertyIsAuthoritative(t *testing.T) {
	property := testProperty(1)
	main := testProperty(2)
	main.Tier = propertydomain.TierBalanced
	main.BasePrice = 140

	mainID := main.ID
	group := &groupdomain.Group{
		ID:             snowflake.ID(9),
		SyncPrices:     true,
		MainPropertyID: &mainID,
		BasePrice:      999,
	}

	resolved := Resolve(property, group, &main)
	assert.Equal(t, SourceMain, resolved.Source)
	assert.Equal(t, 140.0, resolved.BasePrice)
}

func TestTierWeight(t *testing.T) {
	assert.Equal(t, 0.25, TierWeight(propertydomain.TierCautious))
	assert.Equal(t, 0.5, TierWeight(propertydomain.TierBalanced))
	assert.Equal(t, 0.75, TierWeight(propertydomain.TierAggressive))
	assert.Equal(t, 0.5, TierWeight(propertydomain.Tier("unknown")))
}
