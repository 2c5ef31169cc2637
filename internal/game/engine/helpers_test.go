package engine

import (
	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/tuning"
)

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func testCatalogs() *catalogs.Catalogs {
	return &catalogs.Catalogs{
		Clients: catalogs.ClientCatalog{
			ByID: map[string]catalogs.ClientDef{
				"newsletter": {
					ID: "newsletter", Name: "Newsletter", Risk: game.RiskLow,
					BaseVolume: 10000, BaseRevenue: 200, Cost: 100,
					Split: map[string]int{game.DestGmail: 50, game.DestOutlook: 30, game.DestYahoo: 20},
				},
				"promos": {
					ID: "promos", Name: "Promos", Risk: game.RiskMedium,
					BaseVolume: 40000, BaseRevenue: 800, Cost: 300,
					Split: map[string]int{game.DestGmail: 50, game.DestOutlook: 30, game.DestYahoo: 20},
				},
				"blaster": {
					ID: "blaster", Name: "Blaster", Risk: game.RiskHigh,
					BaseVolume: 100000, BaseRevenue: 2000, Cost: 500,
					Split: map[string]int{game.DestGmail: 60, game.DestOutlook: 20, game.DestYahoo: 20},
				},
			},
			Order: []string{"blaster", "newsletter", "promos"},
		},
		Upgrades: catalogs.UpgradeCatalog{
			ByID: map[string]catalogs.UpgradeDef{
				"spf":   {ID: "spf", Cost: 100, Investment: 100, Auth: true},
				"dkim":  {ID: "dkim", Cost: 150, Investment: 150, Auth: true},
				"dmarc": {ID: "dmarc", Cost: 200, Investment: 200, Auth: true},
			},
			Order: []string{"dkim", "dmarc", "spf"},
		},
		Policies: catalogs.PolicyCatalog{
			ByLevel: map[string]catalogs.PolicyDef{
				"off":      {Level: "off"},
				"strict":   {Level: "strict", SpamReduction: 70, FalsePositive: 5},
				"standard": {Level: "standard", SpamReduction: 40, FalsePositive: 2},
			},
			Order: []string{"off", "standard", "strict"},
		},
	}
}

func testParams() Params {
	return ParamsFrom(tuning.Defaults())
}

func testState(teamIDs ...string) *game.State {
	st := game.NewState("room_test", 500)
	st.Round = 1
	st.Phase = game.PhasePlanning
	for _, id := range teamIDs {
		st.Teams[id] = &game.ESPTeam{
			ID:      id,
			Name:    id,
			Credits: 1000,
			Reputation: map[string]float64{
				game.DestGmail:   70,
				game.DestOutlook: 70,
				game.DestYahoo:   70,
			},
			Clients: map[string]*game.ClientState{},
		}
	}
	return st
}

func addClient(t *game.ESPTeam, id, catalogID string, status game.ClientStatus, firstActive int) *game.ClientState {
	cs := &game.ClientState{
		ClientID:         catalogID,
		Status:           status,
		FirstActiveRound: firstActive,
		AcquiredSeq:      len(t.Clients) + 1,
	}
	t.Clients[id] = cs
	return cs
}
