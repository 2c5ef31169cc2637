package engine

import (
	"testing"

	"inboxwars.io/internal/game"
)

func TestTeamVolumes_SplitAndSum(t *testing.T) {
	st := testState("esp_a")
	team := st.Teams["esp_a"]
	addClient(team, "c1", "newsletter", game.ClientActive, 0)

	perClient, skipped := TeamVolumes(team, testCatalogs(), 1)
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}
	if len(perClient) != 1 {
		t.Fatalf("perClient = %d, want 1", len(perClient))
	}
	cv := perClient[0]
	if cv.ByDestination[game.DestGmail] != 5000 || cv.ByDestination[game.DestOutlook] != 3000 || cv.ByDestination[game.DestYahoo] != 2000 {
		t.Fatalf("split = %v", cv.ByDestination)
	}
	if cv.Volume != 10000 {
		t.Fatalf("volume = %d, want 10000", cv.Volume)
	}
	if cv.Revenue != 200 {
		t.Fatalf("revenue = %d, want 200", cv.Revenue)
	}
}

func TestTeamVolumes_WarmupHalvesFirstActiveRoundOnly(t *testing.T) {
	st := testState("esp_a")
	team := st.Teams["esp_a"]
	cs := addClient(team, "c1", "newsletter", game.ClientActive, 2)
	cs.Warmup = true

	perClient, _ := TeamVolumes(team, testCatalogs(), 2)
	if perClient[0].Volume != 5000 {
		t.Fatalf("warm-up round volume = %d, want 5000", perClient[0].Volume)
	}
	if perClient[0].Revenue != 100 {
		t.Fatalf("warm-up round revenue = %d, want 100", perClient[0].Revenue)
	}

	perClient, _ = TeamVolumes(team, testCatalogs(), 3)
	if perClient[0].Volume != 10000 {
		t.Fatalf("post-warm-up volume = %d, want 10000", perClient[0].Volume)
	}
}

func TestTeamVolumes_HygieneReductionByRisk(t *testing.T) {
	cats := testCatalogs()
	cases := []struct {
		catalogID string
		want      int
	}{
		{"newsletter", 9500}, // low risk: -5%
		{"promos", 36000},    // medium risk: -10%
		{"blaster", 85000},   // high risk: -15%
	}
	for _, c := range cases {
		st := testState("esp_a")
		team := st.Teams["esp_a"]
		cs := addClient(team, "c1", c.catalogID, game.ClientActive, 0)
		cs.Hygiene = true

		perClient, _ := TeamVolumes(team, cats, 1)
		if perClient[0].Volume != c.want {
			t.Errorf("%s hygiene volume = %d, want %d", c.catalogID, perClient[0].Volume, c.want)
		}
	}
}

func TestTeamVolumes_IncidentModifierAppliesLast(t *testing.T) {
	st := testState("esp_a")
	team := st.Teams["esp_a"]
	cs := addClient(team, "c1", "newsletter", game.ClientActive, 1)
	cs.Warmup = true
	cs.Hygiene = true
	cs.Incidents = []game.IncidentModifier{{ID: "spam_trap_hit", Factor: 0.8}}

	// 10000 * 0.5 (warm-up) * 0.95 (hygiene) * 0.8 (incident) = 3800
	perClient, _ := TeamVolumes(team, testCatalogs(), 1)
	if perClient[0].Volume != 3800 {
		t.Fatalf("volume = %d, want 3800", perClient[0].Volume)
	}
}

func TestTeamVolumes_PausedAndSuspendedContributeZero(t *testing.T) {
	st := testState("esp_a")
	team := st.Teams["esp_a"]
	addClient(team, "c1", "newsletter", game.ClientPaused, 0)
	addClient(team, "c2", "promos", game.ClientSuspended, 0)
	addClient(team, "c3", "newsletter", game.ClientActive, 0)

	perClient, _ := TeamVolumes(team, testCatalogs(), 1)
	total, _ := SumVolumes(perClient)
	if total != 10000 {
		t.Fatalf("total = %d, want 10000 (only the active client)", total)
	}
}

func TestTeamVolumes_UnknownCatalogEntrySkipped(t *testing.T) {
	st := testState("esp_a")
	team := st.Teams["esp_a"]
	addClient(team, "c1", "no_such_client", game.ClientActive, 0)
	addClient(team, "c2", "newsletter", game.ClientActive, 0)

	perClient, skipped := TeamVolumes(team, testCatalogs(), 1)
	if len(skipped) != 1 || skipped[0] != "c1" {
		t.Fatalf("skipped = %v, want [c1]", skipped)
	}
	if len(perClient) != 1 || perClient[0].ClientID != "c2" {
		t.Fatalf("perClient = %+v", perClient)
	}
}
