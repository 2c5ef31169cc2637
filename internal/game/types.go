package game

// The three receiving providers. Market weights are fixed for this game.
const (
	DestGmail   = "gmail"
	DestOutlook = "outlook"
	DestYahoo   = "yahoo"
)

// DestinationOrder is the canonical iteration order for anything keyed by
// destination (qualification failure lists, vote evaluation, digests).
var DestinationOrder = []string{DestGmail, DestOutlook, DestYahoo}

// DestinationWeights sum to 100 and drive the weighted reputation average.
var DestinationWeights = map[string]float64{
	DestGmail:   50,
	DestOutlook: 30,
	DestYahoo:   20,
}

type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
)

type ClientStatus string

const (
	ClientActive    ClientStatus = "ACTIVE"
	ClientPaused    ClientStatus = "PAUSED"
	ClientSuspended ClientStatus = "SUSPENDED"
)

// IncidentModifier scales a client's volume after warm-up and hygiene.
// Applied last, in slice order.
type IncidentModifier struct {
	ID     string  `json:"id"`
	Factor float64 `json:"factor"`
}

// ClientState is the mutable per-client runtime record owned by an ESP team.
// The immutable catalog entry lives in catalogs.ClientDef.
type ClientState struct {
	ClientID string       `json:"client_id"`
	Status   ClientStatus `json:"status"`

	// Onboarding configuration.
	Warmup  bool `json:"warmup"`
	Hygiene bool `json:"hygiene"`

	Incidents []IncidentModifier `json:"incidents,omitempty"`

	// FirstActiveRound is the round the client first counted as active
	// (warm-up halves volume only in that round). 0 = not yet active.
	FirstActiveRound int `json:"first_active_round"`

	// AcquiredSeq orders clients deterministically (acquisition order).
	AcquiredSeq int `json:"acquired_seq"`
}

type ESPTeam struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`

	// Reputation per destination, nominally 0..100. Values are clamped on
	// every update; only transient intermediate math may exceed the bounds.
	Reputation map[string]float64 `json:"reputation"`

	// Owned technical upgrade ids (SPF, DKIM, ...).
	Upgrades []string `json:"upgrades,omitempty"`

	Clients map[string]*ClientState `json:"clients"`

	LockedIn bool `json:"locked_in"`
}

// FilterPolicy is a destination's stance toward one ESP.
type FilterPolicy struct {
	Level         string  `json:"level"`
	SpamReduction float64 `json:"spam_reduction"` // percent, 0..100
	FalsePositive float64 `json:"false_positive"` // percent, 0..100
}

type Destination struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Budget int    `json:"budget"`
	Weight int    `json:"weight"`

	// Policies keyed by ESP id. Absent entry = permissive (no penalty).
	Policies map[string]FilterPolicy `json:"policies,omitempty"`

	Tools []string `json:"tools,omitempty"`

	// ControllerID is the player controlling this destination ("" = unclaimed).
	ControllerID string `json:"controller_id,omitempty"`

	LockedIn bool `json:"locked_in"`
}

func (t *ESPTeam) HasUpgrade(id string) bool {
	for _, u := range t.Upgrades {
		if u == id {
			return true
		}
	}
	return false
}

// ClientOrder returns the team's client ids in acquisition order.
func (t *ESPTeam) ClientOrder() []string {
	ids := make([]string, 0, len(t.Clients))
	for id := range t.Clients {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && t.Clients[ids[j-1]].AcquiredSeq > t.Clients[ids[j]].AcquiredSeq; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
