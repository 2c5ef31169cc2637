package game

import "sort"

type Phase string

const (
	PhaseLobby     Phase = "LOBBY"
	PhasePlanning  Phase = "PLANNING"
	PhaseResolving Phase = "RESOLVING"
	PhaseFinished  Phase = "FINISHED"
)

// State is one room's full mutable session. It is owned by the room loop and
// reached through the store interface; the engine only ever reads it.
type State struct {
	RoomID string `json:"room_id"`
	Round  int    `json:"round"`
	Phase  Phase  `json:"phase"`

	Teams        map[string]*ESPTeam     `json:"teams"`
	Destinations map[string]*Destination `json:"destinations"`

	// Votes keyed by destination id, value is the target ESP id. Cleared at
	// the end of every round whether or not an investigation triggered.
	Votes map[string]string `json:"votes,omitempty"`

	History        []*Resolution         `json:"history,omitempty"`
	Investigations []*InvestigationEntry `json:"investigations,omitempty"`

	Final *FinalScores `json:"final,omitempty"`

	NextClientSeq int `json:"next_client_seq"`
}

func NewState(roomID string, startBudget int) *State {
	s := &State{
		RoomID:       roomID,
		Phase:        PhaseLobby,
		Teams:        map[string]*ESPTeam{},
		Destinations: map[string]*Destination{},
		Votes:        map[string]string{},
	}
	names := map[string]string{DestGmail: "Gmail", DestOutlook: "Outlook", DestYahoo: "Yahoo"}
	for _, id := range DestinationOrder {
		s.Destinations[id] = &Destination{
			ID:       id,
			Name:     names[id],
			Budget:   startBudget,
			Weight:   int(DestinationWeights[id]),
			Policies: map[string]FilterPolicy{},
		}
	}
	return s
}

// TeamOrder returns ESP team ids sorted for deterministic iteration.
func (s *State) TeamOrder() []string {
	ids := make([]string, 0, len(s.Teams))
	for id := range s.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TriggeredInvestigations counts entries that actually ran (the coordination
// bonus input).
func (s *State) TriggeredInvestigations() int {
	n := 0
	for _, e := range s.Investigations {
		if e.Triggered {
			n++
		}
	}
	return n
}
