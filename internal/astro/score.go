// Package astro implements the scoring and windowing engine: it converts
// hourly forecast samples into a 0-100 suitability score and scans a scored
// series for contiguous observation windows. Everything here is a pure
// function over in-memory data; no I/O, no shared state between calls.
package astro

import "astroweather/internal/types"

// Penalty parameters. Each factor subtracts an independent, capped penalty
// from a starting score of 100.
const (
	cloudWeight = 0.5 // max -50

	seeingBaseline = 1.0 // arcsec below which seeing costs nothing
	seeingWeight   = 15.0
	seeingCap      = 30.0

	jetHighThreshold = 35.0 // m/s
	jetWeight        = 0.5
	jetCap           = 10.0
	jetLowThreshold  = 5.0 // stagnant air
	jetLowPenalty    = 3.0

	moonlightThreshold = 30.0
	moonlightWeight    = 0.15
	moonlightCap       = 10.0

	precipThreshold = 30.0
	precipWeight    = 0.1
	precipCap       = 10.0
)

// Classification band lower bounds, inclusive.
const (
	excellentMin = 85
	goodMin      = 70
	averageMin   = 50
	poorMin      = 30
)

// Score computes the 0-100 astrophotography suitability score for one
// forecast hour. Penalties are additive and each is derived from the raw
// sample alone, so the function is total and deterministic for any in-range
// input. The result is clamped to [0,100] and truncated to an integer.
func Score(s types.ForecastSample) int {
	score := 100.0

	score -= float64(s.TotalCloud) * cloudWeight

	if s.SeeingArcsec > seeingBaseline {
		score -= min((s.SeeingArcsec-seeingBaseline)*seeingWeight, seeingCap)
	}

	if s.JetstreamSpeed > jetHighThreshold {
		score -= min((s.JetstreamSpeed-jetHighThreshold)*jetWeight, jetCap)
	} else if s.JetstreamSpeed < jetLowThreshold {
		score -= jetLowPenalty
	}

	// Moonlight only matters with the sun below the horizon.
	if s.IsNight() && s.Moonlight > moonlightThreshold {
		score -= min(s.Moonlight*moonlightWeight, moonlightCap)
	}

	if float64(s.PrecipitationProb) > precipThreshold {
		score -= min(float64(s.PrecipitationProb)*precipWeight, precipCap)
	}

	return max(0, min(100, int(score)))
}

// Classify maps a score to its quality band. Band boundaries are inclusive
// on the lower bound.
func Classify(score int) types.QualityClass {
	switch {
	case score >= excellentMin:
		return types.QualityExcellent
	case score >= goodMin:
		return types.QualityGood
	case score >= averageMin:
		return types.QualityAverage
	case score >= poorMin:
		return types.QualityPoor
	default:
		return types.QualityBad
	}
}

// Rate fills in the derived AstroScore and QualityClass fields of a sample
// and returns it. Samples are rated once at decode time and treated as
// immutable afterwards.
func Rate(s types.ForecastSample) types.ForecastSample {
	s.AstroScore = Score(s)
	s.QualityClass = Classify(s.AstroScore)
	return s
}
