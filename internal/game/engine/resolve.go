package engine

import (
	"fmt"
	"math"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/tuning"
)

// Params are the tuned constants the orchestrator needs. Everything else
// comes from the catalogs and the session snapshot.
type Params struct {
	InvestigationCost   int
	InvestigationQuorum int
	Reputation          tuning.ReputationTuning
}

func ParamsFrom(t tuning.Tuning) Params {
	return Params{
		InvestigationCost:   t.InvestigationCost,
		InvestigationQuorum: t.InvestigationQuorum,
		Reputation:          t.Reputation,
	}
}

// Resolve runs one full round over a session snapshot and returns the
// immutable result plus the investigation outcome. It never mutates st;
// Apply does that in a separate step. Same snapshot in, same result out.
func Resolve(st *game.State, cats *catalogs.Catalogs, p Params) (*game.Resolution, *InvestigationOutcome) {
	res := &game.Resolution{
		Round:        st.Round,
		Teams:        map[string]*game.TeamResolution{},
		Satisfaction: map[string]game.SatisfactionBreakdown{},
	}

	// Investigation is evaluated against the pre-round snapshot so its
	// suspension lands in the same round's consequences via Apply. The
	// suspended client still sent this round's mail.
	inv := EvaluateInvestigation(st, cats, p.InvestigationCost, p.InvestigationQuorum)
	if inv != nil {
		res.Investigation = inv.Entry
	}

	for _, espID := range st.TeamOrder() {
		team := st.Teams[espID]
		tr, satByDest, err := resolveTeam(st, team, cats, p)
		if err != nil {
			if res.TeamErrors == nil {
				res.TeamErrors = map[string]string{}
			}
			res.TeamErrors[espID] = err.Error()
			tr = &game.TeamResolution{
				ESPID:               espID,
				VolumeByDestination: map[string]int{},
				Delivery:            map[string]game.DeliveryResult{},
				ReputationDelta:     map[string]float64{},
			}
			satByDest = nil
		}
		res.Teams[espID] = tr

		for destID, sat := range satByDest {
			agg := res.Satisfaction[destID]
			agg.Add(sat)
			res.Satisfaction[destID] = agg
		}
	}
	return res, inv
}

// resolveTeam computes one ESP's volume, delivery, revenue and reputation
// deltas. A panic anywhere inside is isolated so one malformed team cannot
// take down the round for everyone else.
func resolveTeam(st *game.State, team *game.ESPTeam, cats *catalogs.Catalogs, p Params) (tr *game.TeamResolution, satByDest map[string]game.SatisfactionBreakdown, err error) {
	defer func() {
		if r := recover(); r != nil {
			tr, satByDest = nil, nil
			err = fmt.Errorf("team %s: %v", team.ID, r)
		}
	}()

	perClient, skipped := TeamVolumes(team, cats, st.Round)
	total, byDest := SumVolumes(perClient)

	delivery := map[string]game.DeliveryResult{}
	finalRates := map[string]float64{}
	for _, destID := range game.DestinationOrder {
		dest := st.Destinations[destID]
		var policy *game.FilterPolicy
		if dest != nil {
			if pol, ok := dest.Policies[team.ID]; ok {
				policy = &pol
			}
		}
		d := Delivery(team.Reputation[destID], policy)
		delivery[destID] = d
		finalRates[destID] = d.FinalRate
	}

	baseRevenue := 0
	for _, cv := range perClient {
		baseRevenue += cv.Revenue
	}
	aggregate := AggregateDeliveryRate(byDest, finalRates)

	satByDest = map[string]game.SatisfactionBreakdown{}
	for _, destID := range game.DestinationOrder {
		satByDest[destID] = satisfactionFor(st, team, cats, destID, perClient, byDest[destID])
	}

	deltas := reputationDeltas(team, cats, st.Round, p.Reputation)
	after := map[string]float64{}
	for _, destID := range game.DestinationOrder {
		after[destID] = clamp(team.Reputation[destID]+deltas[destID], 0, 100)
	}

	return &game.TeamResolution{
		ESPID:                 team.ID,
		TotalVolume:           total,
		VolumeByDestination:   byDest,
		Delivery:              delivery,
		AggregateDeliveryRate: aggregate,
		BaseRevenue:           baseRevenue,
		ActualRevenue:         ActualRevenue(baseRevenue, aggregate),
		ReputationDelta:       deltas,
		ReputationAfter:       after,
		SkippedClients:        skipped,
	}, satByDest, nil
}

// reputationDeltas applies the deterministic per-destination delta rule:
// authentication/hygiene/warm-up bonuses minus spam-complaint pressure, each
// clamped so the post-update reputation stays inside [0,100].
func reputationDeltas(team *game.ESPTeam, cats *catalogs.Catalogs, round int, rt tuning.ReputationTuning) map[string]float64 {
	pressure := 0
	hygieneActive := false
	warmupActive := false
	for _, cs := range team.Clients {
		if cs.Status != game.ClientActive {
			continue
		}
		def, ok := cats.Clients.ByID[cs.ClientID]
		if !ok {
			continue
		}
		p := 0
		switch def.Risk {
		case game.RiskMedium:
			p = rt.PressureMedium
		case game.RiskHigh:
			p = rt.PressureHigh
		}
		if cs.Hygiene {
			p /= 2
			hygieneActive = true
		}
		if cs.Warmup && cs.FirstActiveRound == round {
			warmupActive = true
		}
		pressure += p
	}

	auth := 0
	for _, id := range team.Upgrades {
		if def, ok := cats.Upgrades.ByID[id]; ok && def.Auth {
			auth++
		}
	}

	raw := float64(auth*rt.AuthBonusPer - pressure)
	if hygieneActive {
		raw += float64(rt.HygieneBonus)
	}
	if warmupActive {
		raw += float64(rt.WarmupBonus)
	}

	deltas := map[string]float64{}
	for _, destID := range game.DestinationOrder {
		cur := clamp(team.Reputation[destID], 0, 100)
		deltas[destID] = clamp(cur+raw, 0, 100) - cur
	}
	return deltas
}

// satisfactionFor computes what destID saw from this team's traffic. Spam
// share is risk-driven; the destination's policy toward the ESP sets the
// blocking rate and false-positive rate.
func satisfactionFor(st *game.State, team *game.ESPTeam, cats *catalogs.Catalogs, destID string, perClient []ClientVolume, vol int) game.SatisfactionBreakdown {
	if vol == 0 {
		return game.SatisfactionBreakdown{}
	}

	// Split the destination's volume by client risk using each active
	// client's share of traffic to this destination.
	spamSent := 0.0
	for _, cv := range perClient {
		def := cats.Clients.ByID[team.Clients[cv.ClientID].ClientID]
		spamSent += float64(cv.ByDestination[destID]) * catalogs.SpamShare(def.Risk)
	}

	blockingRate := 0.0
	fpRate := 0.0
	if dest := st.Destinations[destID]; dest != nil {
		if pol, ok := dest.Policies[team.ID]; ok {
			blockingRate = clamp(pol.SpamReduction/100, 0, 1)
			fpRate = clamp(pol.FalsePositive/100, 0, 1)
		}
	}

	spam := int(math.Round(spamSent))
	blocked := int(math.Round(spamSent * blockingRate))
	legit := vol - spam
	if legit < 0 {
		legit = 0
	}
	return game.SatisfactionBreakdown{
		SpamBlocked:    blocked,
		SpamDelivered:  spam - blocked,
		FalsePositives: int(math.Round(float64(legit) * fpRate)),
		Legitimate:     legit,
	}
}

// Apply commits a resolution to the mutable session state: investigation
// charges and suspension first, then every team's credits and reputation.
// The caller must not broadcast anything until Apply has returned.
func Apply(st *game.State, res *game.Resolution, inv *InvestigationOutcome) {
	if inv != nil {
		for destID, charge := range inv.Charges {
			if dest := st.Destinations[destID]; dest != nil {
				dest.Budget -= charge
			}
		}
		if inv.SuspendClient != "" {
			if team := st.Teams[inv.Entry.TargetESP]; team != nil {
				if cs := team.Clients[inv.SuspendClient]; cs != nil {
					cs.Status = game.ClientSuspended
				}
			}
		}
		st.Investigations = append(st.Investigations, inv.Entry)
	}

	for _, espID := range st.TeamOrder() {
		tr := res.Teams[espID]
		if tr == nil {
			continue
		}
		team := st.Teams[espID]
		team.Credits += tr.ActualRevenue
		for destID, d := range tr.ReputationDelta {
			team.Reputation[destID] = clamp(team.Reputation[destID]+d, 0, 100)
		}
	}

	st.History = append(st.History, res)
	st.Votes = map[string]string{}
}
