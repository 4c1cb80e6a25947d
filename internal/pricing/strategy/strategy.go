package strategy

import (
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

// Source records which strategy won the resolution.
type Source string

const (
	SourceProperty Source = "property"
	SourceGroup    Source = "group"
	SourceMain     Source = "main_property"
)

// Resolved is the operative pricing envelope for one (property, date).
type Resolved struct {
	FloorPrice    float64
	BasePrice     float64
	CeilingPrice  float64
	Tier          propertydomain.Tier
	AllowOverride bool
	Source        Source
}

// Weight positions later multipliers between floor and ceiling: cautious
// leans to the floor, aggressive to the ceiling.
func (r Resolved) Weight() float64 {
	return TierWeight(r.Tier)
}

// TierWeight maps an aggressiveness tier onto a blend position in [0, 1].
func TierWeight(tier propertydomain.Tier) float64 {
	switch tier {
	case propertydomain.TierCautious:
		return 0.25
	case propertydomain.TierAggressive:
		return 0.75
	default:
		return 0.5
	}
}

// Resolve picks the strategy for a property. A sync_prices group overrides
// the property's own strategy; when the group names a main property, the
// main's strategy is authoritative for every member.
func Resolve(property propertydomain.Property, group *groupdomain.Group, main *propertydomain.Property) Resolved {
	if group != nil && group.SyncPrices {
		if group.MainPropertyID != nil && main != nil && main.ID == *group.MainPropertyID {
			return fromStrategy(main.StrategyView(), SourceMain)
		}
		return fromStrategy(group.StrategyView(), SourceGroup)
	}
	return fromStrategy(property.StrategyView(), SourceProperty)
}

func fromStrategy(s propertydomain.Strategy, source Source) Resolved {
	tier := s.Tier
	switch tier {
	case propertydomain.TierCautious, propertydomain.TierBalanced, propertydomain.TierAggressive:
	default:
		tier = propertydomain.TierBalanced
	}
	return Resolved{
		FloorPrice:    s.FloorPrice,
		BasePrice:     s.BasePrice,
		CeilingPrice:  s.CeilingPrice,
		Tier:          tier,
		AllowOverride: s.AllowOverride,
		Source:        source,
	}
}
