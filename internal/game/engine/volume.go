package engine

import (
	"math"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
)

// ClientVolume is one active client's contribution for the round, after
// modifiers, split across destinations.
type ClientVolume struct {
	ClientID      string
	Volume        int
	ByDestination map[string]int
	Revenue       int
}

// TeamVolumes computes volume and base revenue for every active client of one
// team. Modifier order is fixed: warm-up, then list-hygiene, then incident
// modifiers in slice order. Paused and suspended clients contribute zero.
// Clients referencing an unknown catalog entry are skipped, not fatal.
func TeamVolumes(team *game.ESPTeam, cats *catalogs.Catalogs, round int) (perClient []ClientVolume, skipped []string) {
	for _, id := range team.ClientOrder() {
		cs := team.Clients[id]
		if cs.Status != game.ClientActive {
			continue
		}
		def, ok := cats.Clients.ByID[cs.ClientID]
		if !ok {
			skipped = append(skipped, id)
			continue
		}

		factor := 1.0
		if cs.Warmup && cs.FirstActiveRound == round {
			factor *= 0.5
		}
		if cs.Hygiene {
			factor *= 1 - catalogs.HygieneReduction(def.Risk)
		}
		for _, inc := range cs.Incidents {
			factor *= inc.Factor
		}

		vol := float64(def.BaseVolume) * factor
		byDest := make(map[string]int, len(def.Split))
		total := 0
		for _, dest := range game.DestinationOrder {
			pct := def.Split[dest]
			if pct == 0 {
				continue
			}
			share := int(math.Round(vol * float64(pct) / 100))
			byDest[dest] = share
			total += share
		}

		perClient = append(perClient, ClientVolume{
			ClientID:      id,
			Volume:        total,
			ByDestination: byDest,
			Revenue:       int(math.Round(float64(def.BaseRevenue) * factor)),
		})
	}
	return perClient, skipped
}

// SumVolumes folds per-client volumes into team totals.
func SumVolumes(perClient []ClientVolume) (total int, byDest map[string]int) {
	byDest = map[string]int{}
	for _, cv := range perClient {
		total += cv.Volume
		for dest, v := range cv.ByDestination {
			byDest[dest] += v
		}
	}
	return total, byDest
}
