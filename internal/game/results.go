package game

// DeliveryResult is the per-(ESP,destination) outcome of the zone calculator.
type DeliveryResult struct {
	Zone             string  `json:"zone"`
	BaseRate         float64 `json:"base_rate"`
	FilteringPenalty float64 `json:"filtering_penalty"`
	FinalRate        float64 `json:"final_rate"`
}

// SatisfactionBreakdown records what one destination saw from one ESP (or,
// aggregated, from all ESPs) in one round. spam_sent = blocked + delivered.
type SatisfactionBreakdown struct {
	SpamBlocked    int `json:"spam_blocked"`
	SpamDelivered  int `json:"spam_delivered"`
	FalsePositives int `json:"false_positives"`
	Legitimate     int `json:"legitimate"`
}

func (s SatisfactionBreakdown) SpamSent() int { return s.SpamBlocked + s.SpamDelivered }

func (s *SatisfactionBreakdown) Add(o SatisfactionBreakdown) {
	s.SpamBlocked += o.SpamBlocked
	s.SpamDelivered += o.SpamDelivered
	s.FalsePositives += o.FalsePositives
	s.Legitimate += o.Legitimate
}

// TeamResolution is one ESP's slice of a round resolution.
type TeamResolution struct {
	ESPID string `json:"esp_id"`

	TotalVolume         int            `json:"total_volume"`
	VolumeByDestination map[string]int `json:"volume_by_destination"`

	Delivery              map[string]DeliveryResult `json:"delivery"`
	AggregateDeliveryRate float64                   `json:"aggregate_delivery_rate"`

	BaseRevenue   int `json:"base_revenue"`
	ActualRevenue int `json:"actual_revenue"`

	ReputationDelta map[string]float64 `json:"reputation_delta"`

	// ReputationAfter is the post-round reputation (current + delta, clamped),
	// recorded so the history series never has to replay deltas.
	ReputationAfter map[string]float64 `json:"reputation_after"`

	// SkippedClients lists client ids dropped as malformed this round.
	SkippedClients []string `json:"skipped_clients,omitempty"`
}

// InvestigationEntry records one round's investigation outcome. Only entries
// with Triggered=true count toward the destinations' coordination bonus.
type InvestigationEntry struct {
	Round     int      `json:"round"`
	TargetESP string   `json:"target_esp"`
	Voters    []string `json:"voters"`

	// DroppedVoters had insufficient budget at lock-in; their votes did not
	// count toward the trigger threshold and they were not charged.
	DroppedVoters []string `json:"dropped_voters,omitempty"`

	Triggered       bool   `json:"triggered"`
	ViolationFound  bool   `json:"violation_found"`
	Message         string `json:"message"`
	SuspendedClient string `json:"suspended_client,omitempty"`
}

// Resolution is the immutable per-round result. It is appended to the room
// history and never mutated afterwards.
type Resolution struct {
	Round int `json:"round"`

	Teams map[string]*TeamResolution `json:"teams"`

	// Investigation is nil when no destination voted this round.
	Investigation *InvestigationEntry `json:"investigation,omitempty"`

	// Satisfaction aggregates per destination across all ESPs.
	Satisfaction map[string]SatisfactionBreakdown `json:"satisfaction,omitempty"`

	// TeamErrors notes ESP ids whose computation failed and was isolated.
	TeamErrors map[string]string `json:"team_errors,omitempty"`
}

// RoundSummary is one point of a team's per-round series.
type RoundSummary struct {
	Round      int                `json:"round"`
	Revenue    int                `json:"revenue"`
	Reputation map[string]float64 `json:"reputation"`
}

// TeamScore is one ESP's final standing.
type TeamScore struct {
	ESPID string `json:"esp_id"`
	Name  string `json:"name,omitempty"`

	Qualified           bool     `json:"qualified"`
	DisqualifyReason    string   `json:"disqualify_reason,omitempty"`
	FailingDestinations []string `json:"failing_destinations,omitempty"`

	WeightedReputation float64 `json:"weighted_reputation"`
	ReputationScore    float64 `json:"reputation_score"`
	RevenueScore       float64 `json:"revenue_score"`
	TechnicalScore     float64 `json:"technical_score"`
	TotalScore         float64 `json:"total_score"`

	TotalRevenue int `json:"total_revenue"`
	Rank         int `json:"rank"`

	Rounds []RoundSummary `json:"rounds"`
}

// WinnerResult names the winning ESP(s). Joint winners share the record with
// TieBreaker=false; a win decided on weighted reputation sets TieBreaker=true.
type WinnerResult struct {
	ESPIDs     []string `json:"esp_ids"`
	TieBreaker bool     `json:"tie_breaker"`
}

// DestinationScore is the collaborative result shared by all destinations.
type DestinationScore struct {
	TotalSpamBlocked    int `json:"total_spam_blocked"`
	TotalSpamSent       int `json:"total_spam_sent"`
	TotalFalsePositives int `json:"total_false_positives"`
	TotalLegitimate     int `json:"total_legitimate"`

	IndustryProtection float64 `json:"industry_protection"`
	CoordinationBonus  float64 `json:"coordination_bonus"`
	UserSatisfaction   float64 `json:"user_satisfaction"`
	CollaborativeScore float64 `json:"collaborative_score"`
	Success            bool    `json:"success"`
}

// FinalScores is the end-of-game snapshot. Computed once, never mutated.
type FinalScores struct {
	Teams        []TeamScore      `json:"teams"`
	Winner       *WinnerResult    `json:"winner,omitempty"`
	Destinations DestinationScore `json:"destinations"`
}
