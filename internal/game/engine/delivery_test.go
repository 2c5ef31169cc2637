package engine

import (
	"testing"

	"inboxwars.io/internal/game"
)

func TestZoneFor_Table(t *testing.T) {
	cases := []struct {
		rep  float64
		zone string
		rate float64
	}{
		{100, ZoneExcellent, 0.95},
		{90, ZoneExcellent, 0.95},
		{89.9, ZoneGood, 0.85},
		{70, ZoneGood, 0.85},
		{69, ZoneWarning, 0.70},
		{50, ZoneWarning, 0.70},
		{49, ZonePoor, 0.50},
		{30, ZonePoor, 0.50},
		{29, ZoneBlacklist, 0.05},
		{0, ZoneBlacklist, 0.05},
		{-10, ZoneBlacklist, 0.05}, // clamped up
		{250, ZoneExcellent, 0.95}, // clamped down
	}
	for _, c := range cases {
		zone, rate := ZoneFor(c.rep)
		if zone != c.zone || rate != c.rate {
			t.Errorf("ZoneFor(%v) = %s/%v, want %s/%v", c.rep, zone, rate, c.zone, c.rate)
		}
	}
}

func TestZoneFor_RateNonDecreasing(t *testing.T) {
	prev := -1.0
	for r := 0; r <= 100; r++ {
		_, rate := ZoneFor(float64(r))
		if rate < prev {
			t.Fatalf("rate decreased at reputation %d: %v < %v", r, rate, prev)
		}
		prev = rate
	}
}

func TestDelivery_NoPolicyNoPenalty(t *testing.T) {
	d := Delivery(75, nil)
	if d.FilteringPenalty != 0 {
		t.Fatalf("penalty = %v, want 0", d.FilteringPenalty)
	}
	if d.FinalRate != d.BaseRate {
		t.Fatalf("final = %v, want base %v", d.FinalRate, d.BaseRate)
	}
}

func TestDelivery_PenaltySubtractsAndClamps(t *testing.T) {
	pol := &game.FilterPolicy{Level: "strict", SpamReduction: 70, FalsePositive: 5}
	d := Delivery(75, pol)
	if !approx(d.FilteringPenalty, 0.05) {
		t.Fatalf("penalty = %v, want 0.05", d.FilteringPenalty)
	}
	if !approx(d.FinalRate, 0.80) {
		t.Fatalf("final = %v, want 0.80", d.FinalRate)
	}

	// A penalty larger than the base rate floors at zero, never negative.
	harsh := &game.FilterPolicy{Level: "max", FalsePositive: 100}
	d = Delivery(10, harsh)
	if d.FinalRate != 0 {
		t.Fatalf("final = %v, want 0", d.FinalRate)
	}
	if d.FinalRate < 0 || d.FinalRate > 1 {
		t.Fatalf("final rate out of [0,1]: %v", d.FinalRate)
	}
}
