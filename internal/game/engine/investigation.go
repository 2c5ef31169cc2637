package engine

import (
	"fmt"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
)

// InvestigationOutcome is the pure result of evaluating one round's votes.
// Charges and the suspension are applied later by Apply, never here.
type InvestigationOutcome struct {
	Entry *game.InvestigationEntry

	// Charges keyed by destination id (each charged voter pays the full cost).
	Charges map[string]int

	// SuspendClient names the target's client to suspend ("" = none).
	SuspendClient string
}

// EvaluateInvestigation tallies destination votes for the round. Votes whose
// voter cannot cover the cost at lock-in are dropped first. The trigger
// condition is quorum votes for the same target. Destinations are walked in
// canonical order so the outcome is deterministic.
func EvaluateInvestigation(st *game.State, cats *catalogs.Catalogs, cost, quorum int) *InvestigationOutcome {
	if len(st.Votes) == 0 {
		return nil
	}

	var voters, dropped []string
	tally := map[string]int{}
	for _, destID := range game.DestinationOrder {
		target, ok := st.Votes[destID]
		if !ok || target == "" {
			continue
		}
		dest := st.Destinations[destID]
		if dest == nil || dest.Budget < cost {
			dropped = append(dropped, destID)
			continue
		}
		voters = append(voters, destID)
		tally[target]++
	}

	// Highest tally wins; ties broken by sorted ESP id for determinism.
	var target string
	best := 0
	for _, espID := range sortedTallyKeys(tally) {
		if tally[espID] > best {
			best = tally[espID]
			target = espID
		}
	}

	entry := &game.InvestigationEntry{
		Round:         st.Round,
		TargetESP:     target,
		Voters:        voters,
		DroppedVoters: dropped,
	}

	if best < quorum {
		entry.Message = "insufficient votes; no investigation conducted"
		return &InvestigationOutcome{Entry: entry, Charges: map[string]int{}}
	}

	entry.Triggered = true
	// Only the destinations that backed the investigated target fund the
	// investigation; a destination that voted for someone else pays nothing.
	entry.Voters = votersFor(st, voters, target)
	charges := map[string]int{}
	for _, destID := range entry.Voters {
		charges[destID] = cost
	}

	out := &InvestigationOutcome{Entry: entry, Charges: charges}

	// Inspect the target's portfolio: the first active high-risk client with
	// no protective onboarding (neither warm-up nor list-hygiene) violates.
	team := st.Teams[target]
	if team != nil {
		for _, id := range team.ClientOrder() {
			cs := team.Clients[id]
			if cs.Status != game.ClientActive {
				continue
			}
			def, ok := cats.Clients.ByID[cs.ClientID]
			if !ok || def.Risk != game.RiskHigh {
				continue
			}
			if cs.Warmup || cs.Hygiene {
				continue
			}
			entry.ViolationFound = true
			entry.SuspendedClient = id
			entry.Message = fmt.Sprintf("violation found: high-risk client %s operating without protective onboarding", def.Name)
			out.SuspendClient = id
			break
		}
	}
	if !entry.ViolationFound {
		entry.Message = "no violations detected"
	}
	return out
}

// votersFor keeps only the voters who backed the winning target; destinations
// that voted for someone else abstained from the conducted investigation and
// pay nothing.
func votersFor(st *game.State, voters []string, target string) []string {
	if target == "" {
		return voters
	}
	out := make([]string, 0, len(voters))
	for _, destID := range voters {
		if st.Votes[destID] == target {
			out = append(out, destID)
		}
	}
	return out
}

func sortedTallyKeys(tally map[string]int) []string {
	ks := make([]string, 0, len(tally))
	for k := range tally {
		ks = append(ks, k)
	}
	for i := 1; i < len(ks); i++ {
		for j := i; j > 0 && ks[j-1] > ks[j]; j-- {
			ks[j-1], ks[j] = ks[j], ks[j-1]
		}
	}
	return ks
}
