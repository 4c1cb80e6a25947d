package resolver

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/hostwise/nightly/internal/billing/domain"
	groupdomain "github.com/hostwise/nightly/internal/group/domain"
	propertydomain "github.com/hostwise/nightly/internal/property/domain"
)

// Resolve computes the billable quantity split. Every active grouped
// property bills as a child except one representative per group: the main
// property when set, otherwise the lowest-position member. Ungrouped active
// properties bill as parents. Inactive properties never bill.
func Resolve(properties []*propertydomain.Property, groups []*groupdomain.Group, memberships []*groupdomain.Membership) domain.Quantities {
	active := make(map[snowflake.ID]bool, len(properties))
	for _, property := range properties {
		if property.Status == propertydomain.StatusActive {
			active[property.ID] = true
		}
	}

	grouped := make(map[snowflake.ID]bool, len(memberships))
	byGroup := make(map[snowflake.ID][]*groupdomain.Membership, len(groups))
	for _, member := range memberships {
		grouped[member.PropertyID] = true
		byGroup[member.GroupID] = append(byGroup[member.GroupID], member)
	}

	var q domain.Quantities
	for _, group := range groups {
		members := byGroup[group.ID]
		sort.Slice(members, func(i, j int) bool { return members[i].Position < members[j].Position })

		var actives []snowflake.ID
		for _, member := range members {
			if active[member.PropertyID] {
				actives = append(actives, member.PropertyID)
			}
		}
		if len(actives) == 0 {
			continue
		}

		// The main property only represents the group when it is an
		// active member; a stale reference falls back to the first member.
		representative := actives[0]
		if group.MainPropertyID != nil {
			for _, id := range actives {
				if id == *group.MainPropertyID {
					representative = id
					break
				}
			}
		}

		q.Parent++
		for _, id := range actives {
			if id != representative {
				q.Child++
			}
		}
	}

	for _, property := range properties {
		if active[property.ID] && !grouped[property.ID] {
			q.Parent++
		}
	}
	return q
}
