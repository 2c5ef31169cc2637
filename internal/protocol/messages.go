package protocol

import "inboxwars.io/internal/game"

// Player roles.
const (
	RoleESP         = "ESP"
	RoleDestination = "DESTINATION"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerName      string     `json:"player_name"`
	Role            string     `json:"role"`
	RoomID          string     `json:"room_id,omitempty"`
	Destination     string     `json:"destination,omitempty"` // requested provider for RoleDestination
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RoomID          string         `json:"room_id"`
	PlayerID        string         `json:"player_id"`
	TeamID          string         `json:"team_id"`
	Role            string         `json:"role"`
	ResumeToken     string         `json:"resume_token"`
	GameParams      GameParams     `json:"game_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type GameParams struct {
	Rounds            int              `json:"rounds"`
	PlanningSeconds   int              `json:"planning_seconds"`
	StartingCredits   int              `json:"starting_credits"`
	StartingBudget    int              `json:"starting_budget"`
	InvestigationCost int              `json:"investigation_cost"`
	Destinations      []DestinationRef `json:"destinations"`
}

type DestinationRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

type CatalogDigests struct {
	ClientsDigest  string `json:"clients_digest"`
	UpgradesDigest string `json:"upgrades_digest"`
	ToolsDigest    string `json:"tools_digest"`
	PoliciesDigest string `json:"policies_digest"`
}

// CATALOG (server -> client): one catalog payload, sent after WELCOME.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // "clients", "upgrades", "tools", "policies"
	Digest          string      `json:"digest"` // sha256 hex
	Data            interface{} `json:"data"`
}

// ACTION (client -> server): a batch of planning-phase requests.
type ActionMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Round           int         `json:"round"`
	PlayerID        string      `json:"player_id"`
	Actions         []ActionReq `json:"actions"`
}

// Action request types.
const (
	ActAcquireClient = "ACQUIRE_CLIENT"
	ActPauseClient   = "PAUSE_CLIENT"
	ActResumeClient  = "RESUME_CLIENT"
	ActConfigure     = "CONFIGURE_ONBOARDING"
	ActBuyUpgrade    = "BUY_UPGRADE"
	ActSetPolicy     = "SET_POLICY"
	ActBuyTool       = "BUY_TOOL"
	ActCastVote      = "CAST_VOTE"
	ActWithdrawVote  = "WITHDRAW_VOTE"
	ActLockIn        = "LOCK_IN"
)

type ActionReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	CatalogID string `json:"catalog_id,omitempty"` // client/upgrade/tool id
	ClientID  string `json:"client_id,omitempty"`  // owned client instance

	Warmup  *bool `json:"warmup,omitempty"`
	Hygiene *bool `json:"hygiene,omitempty"`

	ESPID string `json:"esp_id,omitempty"` // policy/vote target
	Level string `json:"level,omitempty"`  // policy level
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Round           int    `json:"round"`
}

// NOTICE (server -> client): out-of-band event, e.g. a vote dropped at
// lock-in because the budget no longer covered the cost.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Round           int    `json:"round"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message"`
}

// STATE (server -> client): the dashboard snapshot after joins and after
// every resolution. Private fields are filtered per recipient by the room.
type StateMsg struct {
	Type                string `json:"type"`
	ProtocolVersion     string `json:"protocol_version"`
	RoomID              string `json:"room_id"`
	Round               int    `json:"round"`
	Phase               string `json:"phase"`
	PlanningSecondsLeft int    `json:"planning_seconds_left,omitempty"`

	You          *TeamView         `json:"you,omitempty"`
	Teams        []TeamPublicView  `json:"teams"`
	Destinations []DestinationView `json:"destinations"`
}

// TeamView is the owner's private view of their ESP team.
type TeamView struct {
	TeamID     string             `json:"team_id"`
	Credits    int                `json:"credits"`
	Reputation map[string]float64 `json:"reputation"`
	Upgrades   []string           `json:"upgrades,omitempty"`
	Clients    []ClientView       `json:"clients"`
	LockedIn   bool               `json:"locked_in"`
}

type ClientView struct {
	ID      string `json:"id"`
	Catalog string `json:"catalog"`
	Status  string `json:"status"`
	Warmup  bool   `json:"warmup"`
	Hygiene bool   `json:"hygiene"`
}

// TeamPublicView is what everyone else sees of an ESP.
type TeamPublicView struct {
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Clients  int    `json:"clients"`
	LockedIn bool   `json:"locked_in"`
}

type DestinationView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Weight   int    `json:"weight"`
	Budget   int    `json:"budget,omitempty"` // only sent to the controller
	Claimed  bool   `json:"claimed"`
	LockedIn bool   `json:"locked_in"`
}

// RESOLUTION (server -> client): the immutable round result.
type ResolutionMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	RoomID          string           `json:"room_id"`
	Round           int              `json:"round"`
	Digest          string           `json:"digest"`
	Resolution      *game.Resolution `json:"resolution"`
}

// FINAL (server -> client): the end-of-game snapshot.
type FinalMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	RoomID          string            `json:"room_id"`
	Scores          *game.FinalScores `json:"scores"`
}
