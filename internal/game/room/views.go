package room

import (
	"inboxwars.io/internal/game"
	"inboxwars.io/internal/protocol"
)

func (r *Room) broadcast(v any) {
	for _, p := range r.players {
		r.sendJSON(p, v)
	}
}

func (r *Room) broadcastState() {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok {
		return
	}
	for _, p := range r.players {
		if p.Out == nil {
			continue
		}
		r.sendJSON(p, r.buildStateMsg(st, p))
	}
}

func (r *Room) sendState(p *playerState) {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok {
		return
	}
	r.sendJSON(p, r.buildStateMsg(st, p))
}

// buildStateMsg filters the session down to what one player may see: full
// team detail for the owner, headline counts for everyone else, budgets only
// for the controlling provider.
func (r *Room) buildStateMsg(st *game.State, p *playerState) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		RoomID:          st.RoomID,
		Round:           st.Round,
		Phase:           string(st.Phase),
	}
	if st.Phase == game.PhasePlanning {
		msg.PlanningSecondsLeft = r.planningLeft
	}

	if p.Role == protocol.RoleESP {
		if team := st.Teams[p.TeamID]; team != nil {
			msg.You = teamView(team)
		}
	}

	for _, espID := range st.TeamOrder() {
		team := st.Teams[espID]
		msg.Teams = append(msg.Teams, protocol.TeamPublicView{
			TeamID:   team.ID,
			Name:     team.Name,
			Clients:  len(team.Clients),
			LockedIn: team.LockedIn,
		})
	}

	for _, destID := range game.DestinationOrder {
		dest := st.Destinations[destID]
		dv := protocol.DestinationView{
			ID:       dest.ID,
			Name:     dest.Name,
			Weight:   dest.Weight,
			Claimed:  dest.ControllerID != "",
			LockedIn: dest.LockedIn,
		}
		if dest.ControllerID == p.ID {
			dv.Budget = dest.Budget
		}
		msg.Destinations = append(msg.Destinations, dv)
	}
	return msg
}

func teamView(team *game.ESPTeam) *protocol.TeamView {
	tv := &protocol.TeamView{
		TeamID:     team.ID,
		Credits:    team.Credits,
		Reputation: map[string]float64{},
		Upgrades:   append([]string(nil), team.Upgrades...),
		LockedIn:   team.LockedIn,
	}
	for destID, rep := range team.Reputation {
		tv.Reputation[destID] = rep
	}
	for _, id := range team.ClientOrder() {
		cs := team.Clients[id]
		tv.Clients = append(tv.Clients, protocol.ClientView{
			ID:      id,
			Catalog: cs.ClientID,
			Status:  string(cs.Status),
			Warmup:  cs.Warmup,
			Hygiene: cs.Hygiene,
		})
	}
	return tv
}
