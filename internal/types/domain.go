// Package types defines the shared domain model for the astro weather
// service: hourly forecast samples, sky sensor readings, observation windows
// and the error taxonomy used across all packages.
package types

import "time"

// ForecastSample is one decoded hour of the meteoblue astro forecast.
// The derived AstroScore and QualityClass fields are computed once when the
// sample is built (see the astro package) and never mutated afterwards.
type ForecastSample struct {
	Timestamp time.Time `json:"timestamp"`
	FetchedAt time.Time `json:"fetched_at"`

	// Seeing
	SeeingArcsec   float64 `json:"seeing_arcsec"` // smaller is better
	SeeingIndex1   int     `json:"seeing_index1"` // 1-5, 1 is best
	SeeingIndex2   int     `json:"seeing_index2"`
	JetstreamSpeed float64 `json:"jetstream_speed"` // m/s, ideal 10-25

	// Turbulent layers
	BadLayerBottom   *float64 `json:"badlayer_bottom,omitempty"` // m
	BadLayerTop      *float64 `json:"badlayer_top,omitempty"`    // m
	BadLayerGradient *float64 `json:"badlayer_gradient,omitempty"`

	// Clouds
	TotalCloud     int `json:"totalcloud"` // percent
	LowClouds      int `json:"lowclouds"`
	MidClouds      int `json:"midclouds"`
	HighClouds     int `json:"highclouds"`
	Visibility     int `json:"visibility"` // m
	FogProbability int `json:"fog_probability"`

	// Sky brightness
	NightSkyBrightnessActual   float64 `json:"nightsky_brightness_actual"` // lux
	NightSkyBrightnessClearSky float64 `json:"nightsky_brightness_clearsky"`
	Moonlight                  float64 `json:"moonlight_actual"` // percent of full moon
	ZenithAngle                float64 `json:"zenith_angle"`     // degrees, sun

	// Basic weather
	Temperature       float64 `json:"temperature"` // Celsius
	Humidity          int     `json:"humidity"`
	PrecipitationProb int     `json:"precipitation_prob"`
	WindSpeed         float64 `json:"wind_speed"` // km/h

	// Derived
	AstroScore   int          `json:"astro_score"`
	QualityClass QualityClass `json:"quality_class"`
}

// IsNight reports whether the sun is below the horizon.
func (s ForecastSample) IsNight() bool {
	return s.ZenithAngle > 90
}

// IsAstronomicalNight reports whether the sun is more than 18 degrees below
// the horizon (zenith angle above 108).
func (s ForecastSample) IsAstronomicalNight() bool {
	return s.ZenithAngle > 108
}

// ObservationWindow is a maximal contiguous run of forecast hours that all
// satisfy the window thresholds. Start and End are the timestamps of the
// first and last qualifying hour, inclusive.
type ObservationWindow struct {
	ID    int64     `json:"id,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Hours int       `json:"hours"`

	Scores []int `json:"scores,omitempty"`

	AvgScore        float64 `json:"avg_score"`
	MinScore        int     `json:"min_score"`
	AvgSeeingArcsec float64 `json:"avg_seeing_arcsec"`
	AvgCloudPct     float64 `json:"avg_cloud_pct"`

	Notified           bool       `json:"notified"`
	NotificationSentAt *time.Time `json:"notification_sent_at,omitempty"`
}

// SensorReading is one sample from the CloudWatcher Solo sky sensor.
type SensorReading struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Clouds. SkyMinusAmbient is the IR sky temperature minus the ambient
	// temperature; more negative means clearer.
	SkyMinusAmbient float64 `json:"sky_minus_ambient"`
	CloudsSafe      int     `json:"clouds_safe"` // 1 = clear

	SkyTemp     float64 `json:"sky_temp"` // raw IR reading
	AmbientTemp float64 `json:"ambient_temp"`
	DewPoint    float64 `json:"dew_point"`

	Humidity     int `json:"humidity"`
	HumiditySafe int `json:"humidity_safe"`

	// SQM sky brightness in mag/arcsec^2; higher means darker.
	SkyBrightnessMPSAS float64 `json:"sky_brightness_mpsas"`
	LightSafe          int     `json:"light_safe"`

	Rain     int `json:"rain"` // raw wetness value
	RainSafe int `json:"rain_safe"`

	Wind     float64 `json:"wind"` // km/h, -1 when no anemometer
	Gust     float64 `json:"gust"`
	WindSafe int     `json:"wind_safe"`

	PressureAbs  float64 `json:"pressure_abs"` // hPa
	PressureRel  float64 `json:"pressure_rel"`
	PressureSafe int     `json:"pressure_safe"`

	Safe int `json:"safe"` // device-level aggregate, 1 = safe

	Serial   string `json:"serial"`
	Firmware string `json:"firmware"`
}

// SkyQuality translates the CloudWatcher cloud flag into a label.
func (r SensorReading) SkyQuality() SkyQuality {
	switch r.CloudsSafe {
	case 1:
		return SkyClear
	case 2:
		return SkyCloudy
	default:
		return SkyUnknown
	}
}

// IsSafeForImaging reports whether the sensor considers conditions usable:
// clear, dry, dark and the device aggregate flag set.
func (r SensorReading) IsSafeForImaging() bool {
	return r.CloudsSafe == 1 && r.RainSafe == 1 && r.LightSafe == 1 && r.Safe == 1
}

// BortleEstimate maps the SQM brightness to an approximate Bortle class.
func (r SensorReading) BortleEstimate() int {
	sqm := r.SkyBrightnessMPSAS
	switch {
	case sqm >= 21.75:
		return 1
	case sqm >= 21.5:
		return 2
	case sqm >= 21.25:
		return 3
	case sqm >= 20.5:
		return 4
	case sqm >= 19.5:
		return 5
	case sqm >= 18.5:
		return 6
	case sqm >= 18.0:
		return 7
	default:
		return 8
	}
}

// AccuracyPair matches one forecast hour against the sensor readings taken
// during that hour, for later forecast verification.
type AccuracyPair struct {
	Timestamp time.Time `json:"timestamp"` // truncated to the hour

	ForecastSeeingArcsec float64 `json:"forecast_seeing_arcsec"`
	ForecastTotalCloud   int     `json:"forecast_totalcloud"`
	ForecastAstroScore   int     `json:"forecast_astro_score"`

	ActualSkyTemp         float64    `json:"actual_sky_temp"`
	ActualSkyQuality      SkyQuality `json:"actual_sky_quality"`
	ActualSkyMinusAmbient float64    `json:"actual_sky_minus_ambient"`

	CloudMatch bool `json:"cloud_classification_match"`

	HourOfDay int `json:"hour_of_day"`
	DayOfYear int `json:"day_of_year"`
}

// APICallRecord is one row of the upstream API call log.
type APICallRecord struct {
	API            APIName   `json:"api_name"`
	Endpoint       string    `json:"endpoint"`
	CreditsUsed    int       `json:"credits_used"`
	Success        bool      `json:"success"`
	ResponseTimeMS int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DailySummary aggregates one calendar day of forecast hours.
type DailySummary struct {
	Date       string   `json:"date"`
	TotalHours int      `json:"total_hours"`
	NightHours int      `json:"night_hours"`
	GoodHours  int      `json:"good_hours"`
	BestScore  *int     `json:"best_score,omitempty"`
	BestSeeing *float64 `json:"best_seeing,omitempty"`
	AvgClouds  *float64 `json:"avg_clouds,omitempty"`
}
