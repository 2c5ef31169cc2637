package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"inboxwars.io/internal/game"
)

type Catalogs struct {
	Clients  ClientCatalog
	Upgrades UpgradeCatalog
	Tools    ToolCatalog
	Policies PolicyCatalog
}

// ClientDef is the immutable catalog entry for an acquirable client. The
// per-destination split percentages must sum to 100.
type ClientDef struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Risk        game.Risk      `json:"risk"`
	BaseVolume  int            `json:"base_volume"`
	BaseRevenue int            `json:"base_revenue"`
	Cost        int            `json:"cost"`
	Split       map[string]int `json:"split"`
}

type ClientCatalog struct {
	ByID   map[string]ClientDef
	Order  []string
	Digest string
}

// UpgradeDef is an ESP technical upgrade. Investment feeds the technical
// score; Auth marks the authentication stack (SPF/DKIM/DMARC).
type UpgradeDef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Cost       int    `json:"cost"`
	Investment int    `json:"investment"`
	Auth       bool   `json:"auth,omitempty"`
}

type UpgradeCatalog struct {
	ByID   map[string]UpgradeDef
	Order  []string
	Digest string
}

// ToolDef is a destination-side purchase raising that destination's
// spam-reduction ceiling.
type ToolDef struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Cost               int     `json:"cost"`
	SpamReductionBonus float64 `json:"spam_reduction_bonus"`
}

type ToolCatalog struct {
	ByID   map[string]ToolDef
	Order  []string
	Digest string
}

// PolicyDef is a selectable filtering level.
type PolicyDef struct {
	Level         string  `json:"level"`
	SpamReduction float64 `json:"spam_reduction"`
	FalsePositive float64 `json:"false_positive"`
}

type PolicyCatalog struct {
	ByLevel map[string]PolicyDef
	Order   []string
	Digest  string
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadClients(filepath.Join(configDir, "clients.json"), &c.Clients); err != nil {
		return nil, err
	}
	if err := loadUpgrades(filepath.Join(configDir, "upgrades.json"), &c.Upgrades); err != nil {
		return nil, err
	}
	if err := loadTools(filepath.Join(configDir, "tools.json"), &c.Tools); err != nil {
		return nil, err
	}
	if err := loadPolicies(filepath.Join(configDir, "policies.json"), &c.Policies); err != nil {
		return nil, err
	}
	return &c, nil
}

// SpamShare maps client risk to the fraction of its traffic that is spam.
func SpamShare(r game.Risk) float64 {
	switch r {
	case game.RiskHigh:
		return 0.30
	case game.RiskMedium:
		return 0.10
	default:
		return 0.02
	}
}

// HygieneReduction maps client risk to the list-hygiene volume reduction.
func HygieneReduction(r game.Risk) float64 {
	switch r {
	case game.RiskHigh:
		return 0.15
	case game.RiskMedium:
		return 0.10
	default:
		return 0.05
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadClients(path string, out *ClientCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ClientDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("clients.json: %w", err)
	}
	out.ByID = map[string]ClientDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("clients.json: empty id")
		}
		sum := 0
		for dest, pct := range d.Split {
			if _, ok := game.DestinationWeights[dest]; !ok {
				return fmt.Errorf("clients.json: %s: unknown destination %s", d.ID, dest)
			}
			sum += pct
		}
		if sum != 100 {
			return fmt.Errorf("clients.json: %s: split sums to %d, want 100", d.ID, sum)
		}
		switch d.Risk {
		case game.RiskLow, game.RiskMedium, game.RiskHigh:
		default:
			return fmt.Errorf("clients.json: %s: unknown risk %q", d.ID, d.Risk)
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedKeys(out.ByID)
	return nil
}

func loadUpgrades(path string, out *UpgradeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []UpgradeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("upgrades.json: %w", err)
	}
	out.ByID = map[string]UpgradeDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("upgrades.json: empty id")
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedKeys(out.ByID)
	return nil
}

func loadTools(path string, out *ToolCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		// Destination tools are optional content.
		if os.IsNotExist(err) {
			out.ByID = map[string]ToolDef{}
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ToolDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("tools.json: %w", err)
	}
	out.ByID = map[string]ToolDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("tools.json: empty id")
		}
		out.ByID[d.ID] = d
	}
	out.Order = sortedKeys(out.ByID)
	return nil
}

func loadPolicies(path string, out *PolicyCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []PolicyDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("policies.json: %w", err)
	}
	out.ByLevel = map[string]PolicyDef{}
	for _, d := range defs {
		if d.Level == "" {
			return fmt.Errorf("policies.json: empty level")
		}
		out.ByLevel[d.Level] = d
	}
	out.Order = sortedKeys(out.ByLevel)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
