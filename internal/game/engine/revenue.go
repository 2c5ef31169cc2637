package engine

import "math"

// AggregateDeliveryRate is the volume-weighted mean of per-destination final
// rates. Zero total volume yields 0, never NaN.
func AggregateDeliveryRate(volumeByDest map[string]int, finalRates map[string]float64) float64 {
	total := 0
	weighted := 0.0
	for dest, vol := range volumeByDest {
		total += vol
		weighted += float64(vol) * finalRates[dest]
	}
	if total == 0 {
		return 0
	}
	return weighted / float64(total)
}

// ActualRevenue applies the aggregate rate to base revenue, rounded
// half-away-from-zero to the nearest whole credit.
func ActualRevenue(baseRevenue int, aggregateRate float64) int {
	return int(math.Round(float64(baseRevenue) * aggregateRate))
}
