package engine

import "inboxwars.io/internal/game"

// Reputation zones, highest threshold first. First match wins.
const (
	ZoneExcellent = "excellent"
	ZoneGood      = "good"
	ZoneWarning   = "warning"
	ZonePoor      = "poor"
	ZoneBlacklist = "blacklist"
)

var zoneTable = []struct {
	Min  float64
	Zone string
	Rate float64
}{
	{90, ZoneExcellent, 0.95},
	{70, ZoneGood, 0.85},
	{50, ZoneWarning, 0.70},
	{30, ZonePoor, 0.50},
}

// ZoneFor maps a reputation (clamped to [0,100]) to its zone and base rate.
func ZoneFor(reputation float64) (zone string, baseRate float64) {
	r := clamp(reputation, 0, 100)
	for _, z := range zoneTable {
		if r >= z.Min {
			return z.Zone, z.Rate
		}
	}
	return ZoneBlacklist, 0.05
}

// Delivery computes the per-destination delivery result for one ESP. A nil
// policy (destination never configured one for this ESP) means zero penalty.
func Delivery(reputation float64, policy *game.FilterPolicy) game.DeliveryResult {
	zone, base := ZoneFor(reputation)
	penalty := 0.0
	if policy != nil {
		penalty = policy.FalsePositive / 100
	}
	return game.DeliveryResult{
		Zone:             zone,
		BaseRate:         base,
		FilteringPenalty: penalty,
		FinalRate:        clamp(base-penalty, 0, base),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
