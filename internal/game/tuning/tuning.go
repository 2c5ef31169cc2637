package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Rounds          int `yaml:"rounds"`
	PlanningSeconds int `yaml:"planning_seconds"`
	ESPTeams        int `yaml:"esp_teams"`

	StartingCredits int `yaml:"starting_credits"`
	StartingBudget  int `yaml:"starting_budget"`
	StartReputation int `yaml:"start_reputation"`

	InvestigationCost   int `yaml:"investigation_cost"`
	InvestigationQuorum int `yaml:"investigation_quorum"`

	Reputation ReputationTuning `yaml:"reputation"`

	SnapshotEveryRounds int `yaml:"snapshot_every_rounds"`
}

// ReputationTuning holds the per-round reputation delta constants.
type ReputationTuning struct {
	PressureMedium int `yaml:"pressure_medium"`
	PressureHigh   int `yaml:"pressure_high"`
	HygieneBonus   int `yaml:"hygiene_bonus"`
	WarmupBonus    int `yaml:"warmup_bonus"`
	AuthBonusPer   int `yaml:"auth_bonus_per"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		Rounds:              6,
		PlanningSeconds:     90,
		ESPTeams:            2,
		StartingCredits:     1000,
		StartingBudget:      500,
		StartReputation:     70,
		InvestigationCost:   50,
		InvestigationQuorum: 2,
		Reputation: ReputationTuning{
			PressureMedium: 1,
			PressureHigh:   3,
			HygieneBonus:   1,
			WarmupBonus:    1,
			AuthBonusPer:   1,
		},
		SnapshotEveryRounds: 1,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Rounds <= 0 {
		return fmt.Errorf("tuning: rounds must be positive")
	}
	if t.ESPTeams <= 0 {
		return fmt.Errorf("tuning: esp_teams must be positive")
	}
	if t.InvestigationQuorum <= 0 {
		return fmt.Errorf("tuning: investigation_quorum must be positive")
	}
	if t.InvestigationCost < 0 {
		return fmt.Errorf("tuning: investigation_cost must not be negative")
	}
	return nil
}
