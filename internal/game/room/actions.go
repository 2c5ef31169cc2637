package room

import (
	"encoding/json"
	"errors"
	"fmt"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/engine"
	plog "inboxwars.io/internal/persistence/log"
	"inboxwars.io/internal/persistence/snapshot"
	"inboxwars.io/internal/protocol"
)

// handleActions validates and applies one ACTION batch, acking each request
// in order. Requests inside a batch apply independently: an early failure
// does not roll back earlier successes.
func (r *Room) handleActions(env ActionEnvelope) {
	p := r.players[env.PlayerID]
	if p == nil {
		return
	}

	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok {
		return
	}

	anyAccepted := false
	for _, req := range env.Msg.Actions {
		code, msg := r.applyAction(p, req)
		accepted := code == ""
		if accepted {
			anyAccepted = true
		}
		r.sendJSON(p, protocol.AckMsg{
			Type:            protocol.TypeAck,
			ProtocolVersion: protocol.Version,
			AckFor:          req.ID,
			Accepted:        accepted,
			Code:            code,
			Message:         msg,
			Round:           st.Round,
		})
	}
	if !anyAccepted {
		return
	}

	r.broadcastState()
	if r.allLockedIn() {
		r.resolveRound()
	}
}

func (r *Room) applyAction(p *playerState, req protocol.ActionReq) (code, msg string) {
	err := r.store.Update(r.cfg.RoomID, func(st *game.State) error {
		if st.Phase != game.PhasePlanning {
			return actionErr(protocol.ErrWrongPhase, "actions are only accepted during planning")
		}
		switch p.Role {
		case protocol.RoleESP:
			return r.applyESPAction(st, p, req)
		case protocol.RoleDestination:
			return r.applyDestinationAction(st, p, req)
		}
		return actionErr(protocol.ErrNoPermission, "unknown role")
	})
	if err == nil {
		return "", ""
	}
	var ae *actionError
	if errors.As(err, &ae) {
		return ae.code, ae.message
	}
	return protocol.ErrInternal, err.Error()
}

type actionError struct {
	code    string
	message string
}

func (e *actionError) Error() string { return e.message }

func actionErr(code, format string, args ...any) error {
	return &actionError{code: code, message: fmt.Sprintf(format, args...)}
}

func (r *Room) applyESPAction(st *game.State, p *playerState, req protocol.ActionReq) error {
	team := st.Teams[p.TeamID]
	if team == nil {
		return actionErr(protocol.ErrNoPermission, "no team for player")
	}
	if team.LockedIn {
		return actionErr(protocol.ErrLockedIn, "plan already locked in")
	}

	switch req.Type {
	case protocol.ActAcquireClient:
		def, ok := r.catalogs.Clients.ByID[req.CatalogID]
		if !ok {
			return actionErr(protocol.ErrInvalidTarget, "unknown client %q", req.CatalogID)
		}
		if _, owned := team.Clients[def.ID]; owned {
			return actionErr(protocol.ErrConflict, "client %s already in portfolio", def.ID)
		}
		if team.Credits < def.Cost {
			return actionErr(protocol.ErrNoCredits, "client %s costs %d, have %d", def.ID, def.Cost, team.Credits)
		}
		team.Credits -= def.Cost
		st.NextClientSeq++
		team.Clients[def.ID] = &game.ClientState{
			ClientID:         def.ID,
			Status:           game.ClientActive,
			FirstActiveRound: st.Round,
			AcquiredSeq:      st.NextClientSeq,
		}
		return nil

	case protocol.ActPauseClient:
		cs := team.Clients[req.ClientID]
		if cs == nil {
			return actionErr(protocol.ErrInvalidTarget, "client %q not in portfolio", req.ClientID)
		}
		if cs.Status == game.ClientSuspended {
			return actionErr(protocol.ErrConflict, "client %s is suspended", req.ClientID)
		}
		cs.Status = game.ClientPaused
		return nil

	case protocol.ActResumeClient:
		cs := team.Clients[req.ClientID]
		if cs == nil {
			return actionErr(protocol.ErrInvalidTarget, "client %q not in portfolio", req.ClientID)
		}
		if cs.Status == game.ClientSuspended {
			return actionErr(protocol.ErrConflict, "client %s is suspended", req.ClientID)
		}
		cs.Status = game.ClientActive
		return nil

	case protocol.ActConfigure:
		cs := team.Clients[req.ClientID]
		if cs == nil {
			return actionErr(protocol.ErrInvalidTarget, "client %q not in portfolio", req.ClientID)
		}
		if cs.Status == game.ClientSuspended {
			return actionErr(protocol.ErrConflict, "client %s is suspended", req.ClientID)
		}
		if req.Warmup != nil {
			cs.Warmup = *req.Warmup
		}
		if req.Hygiene != nil {
			cs.Hygiene = *req.Hygiene
		}
		return nil

	case protocol.ActBuyUpgrade:
		def, ok := r.catalogs.Upgrades.ByID[req.CatalogID]
		if !ok {
			return actionErr(protocol.ErrInvalidTarget, "unknown upgrade %q", req.CatalogID)
		}
		if team.HasUpgrade(def.ID) {
			return actionErr(protocol.ErrConflict, "upgrade %s already owned", def.ID)
		}
		if team.Credits < def.Cost {
			return actionErr(protocol.ErrNoCredits, "upgrade %s costs %d, have %d", def.ID, def.Cost, team.Credits)
		}
		team.Credits -= def.Cost
		team.Upgrades = append(team.Upgrades, def.ID)
		return nil

	case protocol.ActLockIn:
		team.LockedIn = true
		return nil
	}
	return actionErr(protocol.ErrBadRequest, "unknown action %q for role ESP", req.Type)
}

func (r *Room) applyDestinationAction(st *game.State, p *playerState, req protocol.ActionReq) error {
	dest := st.Destinations[p.TeamID]
	if dest == nil || dest.ControllerID != p.ID {
		return actionErr(protocol.ErrNoPermission, "not controlling %s", p.TeamID)
	}
	if dest.LockedIn {
		return actionErr(protocol.ErrLockedIn, "plan already locked in")
	}

	switch req.Type {
	case protocol.ActSetPolicy:
		if _, ok := st.Teams[req.ESPID]; !ok {
			return actionErr(protocol.ErrInvalidTarget, "unknown sender %q", req.ESPID)
		}
		def, ok := r.catalogs.Policies.ByLevel[req.Level]
		if !ok {
			return actionErr(protocol.ErrBadRequest, "unknown policy level %q", req.Level)
		}
		dest.Policies[req.ESPID] = r.effectivePolicy(dest, def)
		return nil

	case protocol.ActBuyTool:
		def, ok := r.catalogs.Tools.ByID[req.CatalogID]
		if !ok {
			return actionErr(protocol.ErrInvalidTarget, "unknown tool %q", req.CatalogID)
		}
		for _, owned := range dest.Tools {
			if owned == def.ID {
				return actionErr(protocol.ErrConflict, "tool %s already owned", def.ID)
			}
		}
		if dest.Budget < def.Cost {
			return actionErr(protocol.ErrNoBudget, "tool %s costs %d, have %d", def.ID, def.Cost, dest.Budget)
		}
		dest.Budget -= def.Cost
		dest.Tools = append(dest.Tools, def.ID)
		r.refreshPolicies(dest)
		return nil

	case protocol.ActCastVote:
		if _, ok := st.Teams[req.ESPID]; !ok {
			return actionErr(protocol.ErrInvalidTarget, "unknown sender %q", req.ESPID)
		}
		if dest.Budget < r.cfg.Tuning.InvestigationCost {
			return actionErr(protocol.ErrNoBudget, "investigation costs %d, have %d", r.cfg.Tuning.InvestigationCost, dest.Budget)
		}
		st.Votes[dest.ID] = req.ESPID
		return nil

	case protocol.ActWithdrawVote:
		delete(st.Votes, dest.ID)
		return nil

	case protocol.ActLockIn:
		dest.LockedIn = true
		return nil
	}
	return actionErr(protocol.ErrBadRequest, "unknown action %q for role DESTINATION", req.Type)
}

// effectivePolicy folds owned tool bonuses into a catalog policy level.
func (r *Room) effectivePolicy(dest *game.Destination, def catalogs.PolicyDef) game.FilterPolicy {
	spam := def.SpamReduction
	for _, id := range dest.Tools {
		if tool, ok := r.catalogs.Tools.ByID[id]; ok {
			spam += tool.SpamReductionBonus
		}
	}
	if spam > 100 {
		spam = 100
	}
	return game.FilterPolicy{Level: def.Level, SpamReduction: spam, FalsePositive: def.FalsePositive}
}

// refreshPolicies re-derives every set policy after a tool purchase so the
// bonus applies to levels chosen earlier in the same planning phase.
func (r *Room) refreshPolicies(dest *game.Destination) {
	for espID, pol := range dest.Policies {
		if def, ok := r.catalogs.Policies.ByLevel[pol.Level]; ok {
			dest.Policies[espID] = r.effectivePolicy(dest, def)
		}
	}
}

// allLockedIn reports whether every sender team and every claimed provider
// has locked in. Unclaimed providers never hold up the round.
func (r *Room) allLockedIn() bool {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok || st.Phase != game.PhasePlanning {
		return false
	}
	for _, team := range st.Teams {
		if !team.LockedIn {
			return false
		}
	}
	for _, dest := range st.Destinations {
		if dest.ControllerID != "" && !dest.LockedIn {
			return false
		}
	}
	return true
}

// resolveRound runs the strict end-of-round pipeline: resolve, apply,
// persist, then broadcast. Nothing is sent before the state commit.
func (r *Room) resolveRound() {
	var res *game.Resolution
	var inv *engine.InvestigationOutcome
	var finished bool
	var snap *snapshot.RoomSnapshotV1

	err := r.store.Update(r.cfg.RoomID, func(st *game.State) error {
		st.Phase = game.PhaseResolving

		res, inv = engine.Resolve(st, r.catalogs, r.params)
		engine.Apply(st, res, inv)

		if st.Round >= r.cfg.Tuning.Rounds {
			st.Final = engine.ComputeFinal(st, engine.Investments(st, r.catalogs))
			st.Phase = game.PhaseFinished
			finished = true
		} else {
			st.Round++
			st.Phase = game.PhasePlanning
			for _, team := range st.Teams {
				team.LockedIn = false
			}
			for _, dest := range st.Destinations {
				dest.LockedIn = false
			}
		}

		every := r.cfg.Tuning.SnapshotEveryRounds
		if r.snapshotSink != nil && (finished || (every > 0 && res.Round%every == 0)) {
			if copied := cloneState(st); copied != nil {
				snap = &snapshot.RoomSnapshotV1{
					Header:          snapshot.Header{Version: snapshot.Version, RoomID: st.RoomID, Round: res.Round},
					Rounds:          r.cfg.Tuning.Rounds,
					PlanningSeconds: r.cfg.Tuning.PlanningSeconds,
					State:           copied,
				}
			}
		}
		return nil
	})
	if err != nil {
		return
	}

	digest := engine.ResolutionDigest(res)

	if r.roundLogger != nil {
		_ = r.roundLogger.WriteRound(plog.RoundLogEntry{
			RoomID:     r.cfg.RoomID,
			Round:      res.Round,
			Digest:     digest,
			Resolution: res,
		})
	}
	if r.index != nil {
		r.index.IndexRound(r.cfg.RoomID, res, digest)
		if res.Investigation != nil {
			r.index.IndexInvestigation(r.cfg.RoomID, res.Investigation)
		}
	}
	if snap != nil {
		select {
		case r.snapshotSink <- *snap:
		default:
			// Drop the snapshot if the sink is backed up.
		}
	}

	r.notifyDroppedVoters(res)
	r.broadcast(protocol.ResolutionMsg{
		Type:            protocol.TypeResolution,
		ProtocolVersion: protocol.Version,
		RoomID:          r.cfg.RoomID,
		Round:           res.Round,
		Digest:          digest,
		Resolution:      res,
	})

	if finished {
		st, _ := r.store.Get(r.cfg.RoomID)
		if r.index != nil && st.Final != nil {
			r.index.IndexFinal(r.cfg.RoomID, st.Final)
		}
		r.broadcast(protocol.FinalMsg{
			Type:            protocol.TypeFinal,
			ProtocolVersion: protocol.Version,
			RoomID:          r.cfg.RoomID,
			Scores:          st.Final,
		})
	} else {
		r.planningLeft = r.cfg.Tuning.PlanningSeconds
	}
	r.broadcastState()
}

// notifyDroppedVoters tells a provider's controller that its vote did not
// count because the budget no longer covered the investigation cost.
func (r *Room) notifyDroppedVoters(res *game.Resolution) {
	if res.Investigation == nil {
		return
	}
	for _, destID := range res.Investigation.DroppedVoters {
		p := r.controllerOf(destID)
		if p == nil {
			continue
		}
		r.sendJSON(p, protocol.NoticeMsg{
			Type:            protocol.TypeNotice,
			ProtocolVersion: protocol.Version,
			Round:           res.Round,
			Code:            protocol.ErrNoBudget,
			Message:         fmt.Sprintf("vote dropped: budget below investigation cost %d", r.cfg.Tuning.InvestigationCost),
		})
	}
}

func (r *Room) controllerOf(destID string) *playerState {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok {
		return nil
	}
	dest := st.Destinations[destID]
	if dest == nil || dest.ControllerID == "" {
		return nil
	}
	return r.players[dest.ControllerID]
}

func cloneState(st *game.State) *game.State {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil
	}
	var out game.State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}
