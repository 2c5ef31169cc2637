package engine

import "testing"

func TestAggregateDeliveryRate_WeightedMean(t *testing.T) {
	vols := map[string]int{"gmail": 5000, "outlook": 3000, "yahoo": 2000}
	rates := map[string]float64{"gmail": 0.95, "outlook": 0.85, "yahoo": 0.70}

	got := AggregateDeliveryRate(vols, rates)
	want := (5000*0.95 + 3000*0.85 + 2000*0.70) / 10000
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("aggregate = %v, want %v", got, want)
	}
}

func TestAggregateDeliveryRate_BetweenMinAndMax(t *testing.T) {
	splits := []map[string]int{
		{"gmail": 1, "outlook": 0, "yahoo": 0},
		{"gmail": 100, "outlook": 900, "yahoo": 1},
		{"gmail": 33, "outlook": 33, "yahoo": 34},
		{"gmail": 123456, "outlook": 1, "yahoo": 98765},
	}
	rates := map[string]float64{"gmail": 0.95, "outlook": 0.50, "yahoo": 0.05}
	for _, vols := range splits {
		got := AggregateDeliveryRate(vols, rates)
		min, max := 1.0, 0.0
		for dest, v := range vols {
			if v == 0 {
				continue
			}
			if rates[dest] < min {
				min = rates[dest]
			}
			if rates[dest] > max {
				max = rates[dest]
			}
		}
		if got < min-1e-12 || got > max+1e-12 {
			t.Errorf("aggregate %v outside [%v,%v] for %v", got, min, max, vols)
		}
	}
}

func TestAggregateDeliveryRate_ZeroVolumeIsZero(t *testing.T) {
	if got := AggregateDeliveryRate(map[string]int{}, map[string]float64{"gmail": 0.95}); got != 0 {
		t.Fatalf("aggregate = %v, want 0", got)
	}
	if got := AggregateDeliveryRate(map[string]int{"gmail": 0}, map[string]float64{"gmail": 0.95}); got != 0 {
		t.Fatalf("aggregate = %v, want 0", got)
	}
}

func TestActualRevenue_RoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		base int
		rate float64
		want int
	}{
		{5, 0.5, 3},     // 2.5 rounds away from zero
		{7, 0.5, 4},     // 3.5 rounds away from zero
		{1000, 0.85, 850},
		{999, 0.333, 333}, // 332.667 rounds to nearest
		{0, 0.9, 0},
	}
	for _, c := range cases {
		if got := ActualRevenue(c.base, c.rate); got != c.want {
			t.Errorf("ActualRevenue(%d, %v) = %d, want %d", c.base, c.rate, got, c.want)
		}
	}
}

func TestActualRevenue_NeverExceedsBase(t *testing.T) {
	for _, rate := range []float64{0, 0.05, 0.49, 0.5, 0.85, 0.999, 1} {
		got := ActualRevenue(1001, rate)
		if got > 1001 {
			t.Errorf("rate %v: actual %d exceeds base", rate, got)
		}
		if rate == 1 && got != 1001 {
			t.Errorf("rate 1: actual %d, want base 1001", got)
		}
	}
}
