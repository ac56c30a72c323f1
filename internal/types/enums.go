package types

// QualityClass is the discrete rating band derived from an hour's astro score.
type QualityClass string

const (
	QualityExcellent QualityClass = "EXCELLENT"
	QualityGood      QualityClass = "GOOD"
	QualityAverage   QualityClass = "AVERAGE"
	QualityPoor      QualityClass = "POOR"
	QualityBad       QualityClass = "BAD"
)

// SkyQuality is the CloudWatcher's own cloud classification of the sky.
type SkyQuality string

const (
	SkyClear   SkyQuality = "CLEAR"
	SkyCloudy  SkyQuality = "CLOUDY"
	SkyUnknown SkyQuality = "UNKNOWN"
)

// APIName identifies an upstream API in the call log.
type APIName string

const (
	APIMeteoblue APIName = "meteoblue"
	APIPushover  APIName = "pushover"
)
