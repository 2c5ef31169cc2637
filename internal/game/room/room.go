package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/engine"
	"inboxwars.io/internal/game/tuning"
	plog "inboxwars.io/internal/persistence/log"
	"inboxwars.io/internal/persistence/snapshot"
	"inboxwars.io/internal/protocol"
)

type Config struct {
	RoomID string
	Tuning tuning.Tuning
}

type JoinRequest struct {
	Name        string
	Role        string
	Destination string // requested provider, RoleDestination only
	Out         chan []byte
	Resp        chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

// JoinResponse carries either a welcome or a refusal code.
type JoinResponse struct {
	ErrCode    string
	ErrMessage string

	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type ActionEnvelope struct {
	PlayerID string
	Msg      protocol.ActionMsg
}

type RoundLogger interface {
	WriteRound(entry plog.RoundLogEntry) error
}

type Indexer interface {
	IndexRound(roomID string, res *game.Resolution, digest string)
	IndexInvestigation(roomID string, entry *game.InvestigationEntry)
	IndexFinal(roomID string, final *game.FinalScores)
}

type playerState struct {
	ID          string
	Name        string
	Role        string
	TeamID      string // ESP team id or destination id
	ResumeToken string
	Out         chan []byte
}

// Room is a single-threaded authoritative game session. All session state is
// reached through the store, and only ever from the room loop goroutine.
type Room struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	params   engine.Params
	store    game.Store

	players       map[string]*playerState
	nextPlayerNum atomic.Uint64
	nextTeamNum   int

	planningLeft int

	inbox  chan ActionEnvelope
	join   chan JoinRequest
	attach chan AttachRequest
	leave  chan string
	stop   chan struct{}

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	roundLogger  RoundLogger
	index        Indexer
	snapshotSink chan<- snapshot.RoomSnapshotV1
}

// New wires a room over an existing session. The caller seeds the store with
// game.NewState before calling.
func New(cfg Config, cats *catalogs.Catalogs, store game.Store) (*Room, error) {
	if _, ok := store.Get(cfg.RoomID); !ok {
		return nil, fmt.Errorf("room %s: no session in store", cfg.RoomID)
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	return &Room{
		cfg:      cfg,
		catalogs: cats,
		params:   engine.ParamsFrom(cfg.Tuning),
		store:    store,
		players:  map[string]*playerState{},
		inbox:    make(chan ActionEnvelope, 256),
		join:     make(chan JoinRequest, 16),
		attach:   make(chan AttachRequest, 16),
		leave:    make(chan string, 16),
		stop:     make(chan struct{}),
	}, nil
}

func (r *Room) SetRoundLogger(l RoundLogger)                      { r.roundLogger = l }
func (r *Room) SetIndexer(ix Indexer)                             { r.index = ix }
func (r *Room) SetSnapshotSink(ch chan<- snapshot.RoomSnapshotV1) { r.snapshotSink = ch }

func (r *Room) ID() string                   { return r.cfg.RoomID }
func (r *Room) Inbox() chan<- ActionEnvelope { return r.inbox }
func (r *Room) Join() chan<- JoinRequest     { return r.join }
func (r *Room) Attach() chan<- AttachRequest { return r.attach }
func (r *Room) Leave() chan<- string         { return r.leave }

func (r *Room) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.join:
			r.handleJoin(req)
		case req := <-r.attach:
			r.handleAttach(req)
		case id := <-r.leave:
			r.handleLeave(id)
		case env := <-r.inbox:
			r.handleActions(env)
		case <-ticker.C:
			r.tickSecond()
		}
	}
}

func (r *Room) Stop() { close(r.stop) }

// tickSecond drives the planning countdown. Hitting zero locks everyone in
// and resolves the round.
func (r *Room) tickSecond() {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok || st.Phase != game.PhasePlanning {
		return
	}
	r.planningLeft--
	if r.planningLeft <= 0 {
		r.resolveRound()
		return
	}
	r.broadcastState()
}

func (r *Room) handleJoin(req JoinRequest) {
	resp := r.joinPlayer(req)
	if req.Resp != nil {
		req.Resp <- resp
	}
	if resp.ErrCode != "" {
		return
	}
	r.maybeStart()
	r.broadcastState()
}

func (r *Room) joinPlayer(req JoinRequest) JoinResponse {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok {
		return JoinResponse{ErrCode: protocol.ErrRoomNotFound, ErrMessage: "room not found"}
	}
	if st.Phase == game.PhaseFinished {
		return JoinResponse{ErrCode: protocol.ErrRoomClosed, ErrMessage: "game already finished"}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "player"
	}

	var teamID string
	switch req.Role {
	case protocol.RoleESP:
		if st.Phase != game.PhaseLobby {
			return JoinResponse{ErrCode: protocol.ErrRoomClosed, ErrMessage: "game already started"}
		}
		if len(st.Teams) >= r.cfg.Tuning.ESPTeams {
			return JoinResponse{ErrCode: protocol.ErrRoomFull, ErrMessage: "all sender seats taken"}
		}
		r.nextTeamNum++
		teamID = fmt.Sprintf("esp_%d", r.nextTeamNum)
		team := &game.ESPTeam{
			ID:         teamID,
			Name:       name,
			Credits:    r.cfg.Tuning.StartingCredits,
			Reputation: map[string]float64{},
			Clients:    map[string]*game.ClientState{},
		}
		for _, destID := range game.DestinationOrder {
			team.Reputation[destID] = float64(r.cfg.Tuning.StartReputation)
		}
		if err := r.store.Update(r.cfg.RoomID, func(st *game.State) error {
			st.Teams[teamID] = team
			return nil
		}); err != nil {
			return JoinResponse{ErrCode: protocol.ErrInternal, ErrMessage: err.Error()}
		}
	case protocol.RoleDestination:
		destID := r.pickDestination(st, req.Destination)
		if destID == "" {
			return JoinResponse{ErrCode: protocol.ErrRoomFull, ErrMessage: "all providers claimed"}
		}
		teamID = destID
	default:
		return JoinResponse{ErrCode: protocol.ErrProtoBadRequest, ErrMessage: fmt.Sprintf("unknown role %q", req.Role)}
	}

	playerID := fmt.Sprintf("P%d", r.nextPlayerNum.Add(1))
	token := fmt.Sprintf("resume_%s_%d", r.cfg.RoomID, time.Now().UnixNano())
	p := &playerState{
		ID:          playerID,
		Name:        name,
		Role:        req.Role,
		TeamID:      teamID,
		ResumeToken: token,
		Out:         req.Out,
	}
	r.players[playerID] = p

	if req.Role == protocol.RoleDestination {
		if err := r.store.Update(r.cfg.RoomID, func(st *game.State) error {
			st.Destinations[teamID].ControllerID = playerID
			return nil
		}); err != nil {
			delete(r.players, playerID)
			return JoinResponse{ErrCode: protocol.ErrInternal, ErrMessage: err.Error()}
		}
	}

	return JoinResponse{Welcome: r.welcomeFor(p), Catalogs: r.catalogMsgs()}
}

func (r *Room) pickDestination(st *game.State, requested string) string {
	if requested != "" {
		d := st.Destinations[requested]
		if d == nil || d.ControllerID != "" {
			return ""
		}
		return requested
	}
	for _, id := range game.DestinationOrder {
		if st.Destinations[id].ControllerID == "" {
			return id
		}
	}
	return ""
}

func (r *Room) handleAttach(req AttachRequest) {
	token := strings.TrimSpace(req.ResumeToken)
	if token == "" || req.Out == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{ErrCode: protocol.ErrProtoBadRequest, ErrMessage: "missing resume token"}
		}
		return
	}

	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var p *playerState
	for _, id := range ids {
		if r.players[id].ResumeToken == token {
			p = r.players[id]
			break
		}
	}
	if p == nil {
		if req.Resp != nil {
			req.Resp <- JoinResponse{ErrCode: protocol.ErrProtoBadRequest, ErrMessage: "unknown resume token"}
		}
		return
	}

	p.Out = req.Out
	// Rotate the token on successful resume.
	p.ResumeToken = fmt.Sprintf("resume_%s_%d", r.cfg.RoomID, time.Now().UnixNano())

	if req.Resp != nil {
		req.Resp <- JoinResponse{Welcome: r.welcomeFor(p), Catalogs: r.catalogMsgs()}
	}
	r.sendState(p)
}

func (r *Room) handleLeave(playerID string) {
	if p := r.players[playerID]; p != nil {
		// The seat survives for resume; only the pipe goes away.
		p.Out = nil
	}
}

// maybeStart opens round 1 once every sender seat is filled. Providers may
// claim their seats before or after the start.
func (r *Room) maybeStart() {
	st, ok := r.store.Get(r.cfg.RoomID)
	if !ok || st.Phase != game.PhaseLobby {
		return
	}
	if len(st.Teams) < r.cfg.Tuning.ESPTeams {
		return
	}
	_ = r.store.Update(r.cfg.RoomID, func(st *game.State) error {
		st.Round = 1
		st.Phase = game.PhasePlanning
		return nil
	})
	r.planningLeft = r.cfg.Tuning.PlanningSeconds
}

func (r *Room) welcomeFor(p *playerState) protocol.WelcomeMsg {
	st, _ := r.store.Get(r.cfg.RoomID)
	refs := make([]protocol.DestinationRef, 0, len(game.DestinationOrder))
	for _, id := range game.DestinationOrder {
		d := st.Destinations[id]
		refs = append(refs, protocol.DestinationRef{ID: d.ID, Name: d.Name, Weight: d.Weight})
	}
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		RoomID:          r.cfg.RoomID,
		PlayerID:        p.ID,
		TeamID:          p.TeamID,
		Role:            p.Role,
		ResumeToken:     p.ResumeToken,
		GameParams: protocol.GameParams{
			Rounds:            r.cfg.Tuning.Rounds,
			PlanningSeconds:   r.cfg.Tuning.PlanningSeconds,
			StartingCredits:   r.cfg.Tuning.StartingCredits,
			StartingBudget:    r.cfg.Tuning.StartingBudget,
			InvestigationCost: r.cfg.Tuning.InvestigationCost,
			Destinations:      refs,
		},
		Catalogs: protocol.CatalogDigests{
			ClientsDigest:  r.catalogs.Clients.Digest,
			UpgradesDigest: r.catalogs.Upgrades.Digest,
			ToolsDigest:    r.catalogs.Tools.Digest,
			PoliciesDigest: r.catalogs.Policies.Digest,
		},
	}
}

func (r *Room) catalogMsgs() []protocol.CatalogMsg {
	mk := func(name, digest string, data interface{}) protocol.CatalogMsg {
		return protocol.CatalogMsg{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            name,
			Digest:          digest,
			Data:            data,
		}
	}
	clients := make([]catalogs.ClientDef, 0, len(r.catalogs.Clients.Order))
	for _, id := range r.catalogs.Clients.Order {
		clients = append(clients, r.catalogs.Clients.ByID[id])
	}
	upgrades := make([]catalogs.UpgradeDef, 0, len(r.catalogs.Upgrades.Order))
	for _, id := range r.catalogs.Upgrades.Order {
		upgrades = append(upgrades, r.catalogs.Upgrades.ByID[id])
	}
	tools := make([]catalogs.ToolDef, 0, len(r.catalogs.Tools.Order))
	for _, id := range r.catalogs.Tools.Order {
		tools = append(tools, r.catalogs.Tools.ByID[id])
	}
	policies := make([]catalogs.PolicyDef, 0, len(r.catalogs.Policies.Order))
	for _, lvl := range r.catalogs.Policies.Order {
		policies = append(policies, r.catalogs.Policies.ByLevel[lvl])
	}
	return []protocol.CatalogMsg{
		mk("clients", r.catalogs.Clients.Digest, clients),
		mk("upgrades", r.catalogs.Upgrades.Digest, upgrades),
		mk("tools", r.catalogs.Tools.Digest, tools),
		mk("policies", r.catalogs.Policies.Digest, policies),
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (r *Room) sendJSON(p *playerState, v any) {
	if p == nil || p.Out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sendLatest(p.Out, b)
}
