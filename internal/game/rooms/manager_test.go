package rooms

import (
	"path/filepath"
	"testing"

	"inboxwars.io/internal/game"
	"inboxwars.io/internal/game/catalogs"
	"inboxwars.io/internal/game/tuning"
	"inboxwars.io/internal/persistence/snapshot"
)

func testCatalogs() *catalogs.Catalogs {
	c := &catalogs.Catalogs{}
	c.Clients.ByID = map[string]catalogs.ClientDef{
		"newsletter": {
			ID: "newsletter", Name: "Weekly Newsletter", Risk: game.RiskLow,
			BaseVolume: 10000, BaseRevenue: 200, Cost: 100,
			Split: map[string]int{"gmail": 50, "outlook": 30, "yahoo": 20},
		},
	}
	c.Clients.Order = []string{"newsletter"}
	c.Upgrades.ByID = map[string]catalogs.UpgradeDef{}
	c.Tools.ByID = map[string]catalogs.ToolDef{}
	c.Policies.ByLevel = map[string]catalogs.PolicyDef{}
	return c
}

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	m, err := NewManager(Config{DataDir: dir, Tuning: tuning.Defaults(), Catalogs: testCatalogs()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreateAndList(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	defer m.Close()

	if _, err := m.Create("alpha"); err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	if _, err := m.Create("alpha"); err == nil {
		t.Fatal("duplicate create accepted")
	}
	r, err := m.Create("")
	if err != nil {
		t.Fatalf("Create auto: %v", err)
	}
	if r.ID() != "room_1" {
		t.Fatalf("auto id = %q", r.ID())
	}

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("List len = %d", len(infos))
	}
	if infos[0].ID != "alpha" || infos[1].ID != "room_1" {
		t.Fatalf("List order = %v", infos)
	}
	if infos[0].Phase != string(game.PhaseLobby) || infos[0].Round != 0 {
		t.Fatalf("fresh room info = %+v", infos[0])
	}

	if _, ok := m.Get("alpha"); !ok {
		t.Fatal("Get alpha failed")
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatal("Get missing succeeded")
	}
}

func TestManifestSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	if _, err := m.Create("alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create("beta"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.Close()

	m2 := newTestManager(t, dir)
	defer m2.Close()
	infos := m2.List()
	if len(infos) != 2 || infos[0].ID != "alpha" || infos[1].ID != "beta" {
		t.Fatalf("restored rooms = %v", infos)
	}
}

func TestRestoreFromLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, dir)
	if _, err := m.Create("alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.Close()

	st := game.NewState("alpha", 500)
	st.Round = 4
	st.Phase = game.PhasePlanning
	for _, round := range []int{2, 4} {
		_, err := snapshot.WriteSnapshot(filepath.Join(dir, "snapshots"), snapshot.RoomSnapshotV1{
			Header: snapshot.Header{Version: snapshot.Version, RoomID: "alpha", Round: round},
			Rounds: 6,
			State:  st,
		})
		if err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}

	m2 := newTestManager(t, dir)
	defer m2.Close()
	infos := m2.List()
	if len(infos) != 1 || infos[0].Round != 4 {
		t.Fatalf("restored info = %v", infos)
	}
}

func TestVotesReadModel(t *testing.T) {
	m := newTestManager(t, t.TempDir())
	defer m.Close()
	if _, err := m.Create("alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	votes, ok := m.Votes("alpha")
	if !ok || len(votes) != 0 {
		t.Fatalf("fresh votes = %v ok=%v", votes, ok)
	}
	if _, ok := m.Votes("missing"); ok {
		t.Fatal("votes for missing room")
	}
}
