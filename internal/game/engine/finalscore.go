package engine

import (
	"fmt"
	"math"
	"sort"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
)

// Score maxima. Reputation + revenue + technical = 100 for ESPs; protection
// and satisfaction cap the destination components at 40 each.
const (
	maxReputationScore = 50.0
	maxRevenueScore    = 35.0
	maxTechnicalScore  = 15.0
	maxProtection      = 40.0
	maxSatisfaction    = 40.0

	qualifyThreshold     = 60.0
	technicalFullInvest  = 1200.0
	coordinationPerEntry = 10.0
	collaborativeTarget  = 80.0
)

// WeightedReputation averages the three destination reputations with the
// fixed 50/30/20 market weights, clamping each input to [0,100] first.
func WeightedReputation(rep map[string]float64) float64 {
	w := 0.0
	for _, destID := range game.DestinationOrder {
		w += clamp(rep[destID], 0, 100) * game.DestinationWeights[destID] / 100
	}
	return w
}

// ReputationScore converts weighted reputation to its 50-point component.
func ReputationScore(rep map[string]float64) (weighted, score float64) {
	weighted = WeightedReputation(rep)
	return weighted, weighted / 100 * maxReputationScore
}

// RevenueScores scales every team's revenue against the field maximum. A zero
// maximum yields all zeros, never a division by zero.
func RevenueScores(totals map[string]int) map[string]float64 {
	max := 0
	for _, v := range totals {
		if v > max {
			max = v
		}
	}
	scores := make(map[string]float64, len(totals))
	for id, v := range totals {
		if max == 0 {
			scores[id] = 0
			continue
		}
		scores[id] = float64(v) / float64(max) * maxRevenueScore
	}
	return scores
}

// TechnicalScore converts total upgrade investment to its 15-point component.
func TechnicalScore(investment int) float64 {
	frac := float64(investment) / technicalFullInvest
	if frac > 1 {
		frac = 1
	}
	return frac * maxTechnicalScore
}

// CheckQualification gates winning on holding at least 60 reputation at every
// destination. Failing destinations are listed in canonical order.
func CheckQualification(rep map[string]float64) (qualified bool, failing []string) {
	for _, destID := range game.DestinationOrder {
		if clamp(rep[destID], 0, 100) < qualifyThreshold {
			failing = append(failing, destID)
		}
	}
	return len(failing) == 0, failing
}

// CoordinationBonus credits destinations for every conducted investigation,
// regardless of outcome. No cap here; the collaborative clamp applies later.
func CoordinationBonus(investigations int) float64 {
	return coordinationPerEntry * float64(investigations)
}

// CollaborativeScore combines protection, coordination and satisfaction into
// the shared destination result, clamped to 100.
func CollaborativeScore(totals DestinationTotals, bonus float64) game.DestinationScore {
	protection := 0.0
	if totals.SpamSent > 0 {
		protection = float64(totals.SpamBlocked) / float64(totals.SpamSent) * maxProtection
	}
	satisfaction := 0.0
	if totals.Legitimate > 0 {
		satisfaction = clamp((1-float64(totals.FalsePositives)/float64(totals.Legitimate))*maxSatisfaction, 0, maxSatisfaction)
	}
	score := clamp(protection+bonus+satisfaction, 0, 100)
	return game.DestinationScore{
		TotalSpamBlocked:    totals.SpamBlocked,
		TotalSpamSent:       totals.SpamSent,
		TotalFalsePositives: totals.FalsePositives,
		TotalLegitimate:     totals.Legitimate,
		IndustryProtection:  round2(protection),
		CoordinationBonus:   round2(bonus),
		UserSatisfaction:    round2(satisfaction),
		CollaborativeScore:  round2(score),
		Success:             score > collaborativeTarget,
	}
}

// Investments sums each team's owned upgrade investment values.
func Investments(st *game.State, cats *catalogs.Catalogs) map[string]int {
	out := map[string]int{}
	for id, team := range st.Teams {
		total := 0
		for _, up := range team.Upgrades {
			if def, ok := cats.Upgrades.ByID[up]; ok {
				total += def.Investment
			}
		}
		out[id] = total
	}
	return out
}

// ComputeFinal turns the full session into the end-of-game snapshot:
// qualification, scores, ranking, winner and the collaborative result.
func ComputeFinal(st *game.State, investments map[string]int) *game.FinalScores {
	espIDs := st.TeamOrder()
	histories, destTotals := AggregateHistory(st.History, espIDs)

	revenueTotals := map[string]int{}
	for id, th := range histories {
		revenueTotals[id] = th.TotalRevenue
	}
	revenueScores := RevenueScores(revenueTotals)

	out := &game.FinalScores{}
	for _, id := range espIDs {
		team := st.Teams[id]
		weighted, repScore := ReputationScore(team.Reputation)
		qualified, failing := CheckQualification(team.Reputation)
		tech := TechnicalScore(investments[id])
		total := repScore + revenueScores[id] + tech

		ts := game.TeamScore{
			ESPID:               id,
			Name:                team.Name,
			Qualified:           qualified,
			FailingDestinations: failing,
			WeightedReputation:  round2(weighted),
			ReputationScore:     round2(repScore),
			RevenueScore:        round2(revenueScores[id]),
			TechnicalScore:      round2(tech),
			TotalScore:          round2(total),
			TotalRevenue:        revenueTotals[id],
			Rounds:              histories[id].Rounds,
		}
		if !qualified {
			ts.DisqualifyReason = fmt.Sprintf("reputation below %d at: %s", int(qualifyThreshold), joinIDs(failing))
		}
		out.Teams = append(out.Teams, ts)
	}

	rankTeams(out.Teams)
	out.Winner = pickWinner(out.Teams)
	out.Destinations = CollaborativeScore(destTotals, CoordinationBonus(st.TriggeredInvestigations()))
	return out
}

// rankTeams sorts by total score descending and assigns standard competition
// ranks (ties share a rank; the next distinct score skips ahead).
func rankTeams(teams []game.TeamScore) {
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].TotalScore != teams[j].TotalScore {
			return teams[i].TotalScore > teams[j].TotalScore
		}
		return teams[i].ESPID < teams[j].ESPID
	})
	for i := range teams {
		if i > 0 && teams[i].TotalScore == teams[i-1].TotalScore {
			teams[i].Rank = teams[i-1].Rank
			continue
		}
		teams[i].Rank = i + 1
	}
}

// pickWinner selects among qualified teams only: max total score, ties broken
// by higher weighted reputation, remaining ties shared as joint winners.
func pickWinner(teams []game.TeamScore) *game.WinnerResult {
	var qualified []game.TeamScore
	for _, t := range teams {
		if t.Qualified {
			qualified = append(qualified, t)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	best := qualified[0].TotalScore
	for _, t := range qualified[1:] {
		if t.TotalScore > best {
			best = t.TotalScore
		}
	}
	var top []game.TeamScore
	for _, t := range qualified {
		if t.TotalScore == best {
			top = append(top, t)
		}
	}
	if len(top) == 1 {
		return &game.WinnerResult{ESPIDs: []string{top[0].ESPID}}
	}

	bestRep := top[0].WeightedReputation
	for _, t := range top[1:] {
		if t.WeightedReputation > bestRep {
			bestRep = t.WeightedReputation
		}
	}
	var byRep []string
	for _, t := range top {
		if t.WeightedReputation == bestRep {
			byRep = append(byRep, t.ESPID)
		}
	}
	sort.Strings(byRep)
	if len(byRep) == 1 {
		return &game.WinnerResult{ESPIDs: byRep, TieBreaker: true}
	}
	return &game.WinnerResult{ESPIDs: byRep, TieBreaker: false}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func joinIDs(ids []string) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ", "
		}
		s += id
	}
	return s
}
