package engine

import "inboxwars.io/internal/game"

// TeamHistory is one ESP's fold over all resolved rounds.
type TeamHistory struct {
	TotalRevenue int
	Rounds       []game.RoundSummary
}

// DestinationTotals accumulates the collaborative-score inputs across rounds.
type DestinationTotals struct {
	SpamBlocked    int
	SpamSent       int
	FalsePositives int
	Legitimate     int
}

// AggregateHistory folds the ordered resolution list into per-team totals and
// series plus destination-wide totals. An ESP absent from a round contributes
// zero for that round, not an error. Destination totals prefer the round's
// satisfaction breakdown; rounds without one degrade to counting the teams'
// delivered volume as legitimate traffic.
func AggregateHistory(history []*game.Resolution, espIDs []string) (map[string]*TeamHistory, DestinationTotals) {
	teams := make(map[string]*TeamHistory, len(espIDs))
	for _, id := range espIDs {
		teams[id] = &TeamHistory{}
	}

	var totals DestinationTotals
	for _, res := range history {
		if res == nil {
			continue
		}
		for _, id := range espIDs {
			th := teams[id]
			summary := game.RoundSummary{Round: res.Round, Reputation: map[string]float64{}}
			if tr := res.Teams[id]; tr != nil {
				th.TotalRevenue += tr.ActualRevenue
				summary.Revenue = tr.ActualRevenue
				for destID, rep := range tr.ReputationAfter {
					summary.Reputation[destID] = rep
				}
			}
			th.Rounds = append(th.Rounds, summary)
		}

		if len(res.Satisfaction) > 0 {
			for _, sat := range res.Satisfaction {
				totals.SpamBlocked += sat.SpamBlocked
				totals.SpamSent += sat.SpamSent()
				totals.FalsePositives += sat.FalsePositives
				totals.Legitimate += sat.Legitimate
			}
			continue
		}
		// Degraded path: no breakdown recorded for this round.
		for _, tr := range res.Teams {
			if tr != nil {
				totals.Legitimate += tr.TotalVolume
			}
		}
	}
	return teams, totals
}
