package indexdb

import (
	"path/filepath"
	"testing"

	"inboxwars.io/internal/game"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func sampleResolution(round int) *game.Resolution {
	return &game.Resolution{
		Round: round,
		Teams: map[string]*game.TeamResolution{
			"esp_a": {
				ESPID:                 "esp_a",
				TotalVolume:           46000,
				AggregateDeliveryRate: 0.85,
				BaseRevenue:           920,
				ActualRevenue:         782,
			},
		},
	}
}

func TestIndexRoundAndRevenue(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexRound("room1", sampleResolution(1), "digest-1")
	idx.IndexRound("room1", sampleResolution(2), "digest-2")
	idx.Flush()

	total, err := idx.TeamRevenue("room1", "esp_a")
	if err != nil {
		t.Fatalf("TeamRevenue: %v", err)
	}
	if total != 1564 {
		t.Fatalf("TeamRevenue = %d, want 1564", total)
	}

	d, err := idx.RoundDigest("room1", 2)
	if err != nil {
		t.Fatalf("RoundDigest: %v", err)
	}
	if d != "digest-2" {
		t.Fatalf("RoundDigest = %q, want digest-2", d)
	}
	if d, _ := idx.RoundDigest("room1", 99); d != "" {
		t.Fatalf("missing round digest = %q, want empty", d)
	}
}

func TestIndexRoundReplaceIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexRound("room1", sampleResolution(1), "digest-1")
	idx.IndexRound("room1", sampleResolution(1), "digest-1")
	idx.Flush()

	total, err := idx.TeamRevenue("room1", "esp_a")
	if err != nil {
		t.Fatalf("TeamRevenue: %v", err)
	}
	if total != 782 {
		t.Fatalf("TeamRevenue = %d, want 782 after duplicate index", total)
	}
}

func TestIndexInvestigationAndFinal(t *testing.T) {
	idx := openTestIndex(t)

	idx.IndexInvestigation("room1", &game.InvestigationEntry{
		Round:           2,
		TargetESP:       "esp_b",
		Voters:          []string{"gmail", "yahoo"},
		Triggered:       true,
		ViolationFound:  true,
		SuspendedClient: "crypto_signals",
		Message:         "violation found: client crypto_signals suspended",
	})
	idx.IndexFinal("room1", &game.FinalScores{
		Teams: []game.TeamScore{
			{ESPID: "esp_a", Qualified: true, TotalScore: 84.4, Rank: 1, TotalRevenue: 4000},
			{ESPID: "esp_b", Qualified: false, TotalScore: 51.2, Rank: 2, TotalRevenue: 2500},
		},
	})
	idx.Flush()

	var target string
	var triggered int
	row := idx.db.QueryRow(`SELECT target_esp, triggered FROM investigations WHERE room_id = ? AND round = ?`, "room1", 2)
	if err := row.Scan(&target, &triggered); err != nil {
		t.Fatalf("scan investigation: %v", err)
	}
	if target != "esp_b" || triggered != 1 {
		t.Fatalf("investigation row = (%q, %d)", target, triggered)
	}

	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM finals WHERE room_id = ?`, "room1").Scan(&n); err != nil {
		t.Fatalf("count finals: %v", err)
	}
	if n != 2 {
		t.Fatalf("finals rows = %d, want 2", n)
	}
}

func TestIndexAfterCloseIsNoop(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Must not panic on the closed channel.
	idx.IndexRound("room1", sampleResolution(1), "digest-1")
	idx.Flush()
}
