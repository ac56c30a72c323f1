// Package meteoblue fetches the hourly astrophotography forecast package
// from the meteoblue API and decodes it into scored ForecastSamples.
package meteoblue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"astroweather/internal/astro"
	"astroweather/internal/config"
	"astroweather/internal/external"
	"astroweather/internal/types"
)

// AstroPackage is the combined meteoblue package covering seeing, clouds,
// moonlight and basic weather at hourly resolution.
const AstroPackage = "seeing-1h_clouds-1h_moonlight-1h_air-1h_basic-1h"

// creditsHeader carries the billing cost of the call.
const creditsHeader = "X-Credits-Used"

// Result is one successful forecast fetch.
type Result struct {
	Samples     []types.ForecastSample
	CreditsUsed int
}

// Client fetches and decodes astro forecasts for a fixed site.
type Client struct {
	http   *external.Client
	cfg    config.MeteoblueConfig
	site   config.SiteConfig
	logger *slog.Logger
	now    func() time.Time // injectable for tests
}

// NewClient creates a meteoblue Client. The external.Client provides circuit
// breaking and retries for the upstream calls.
func NewClient(httpClient *external.Client, cfg config.MeteoblueConfig, site config.SiteConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		site:   site,
		logger: logger,
		now:    time.Now,
	}
}

// FetchForecast retrieves the astro forecast for the configured site. Each
// decoded hour is scored before being returned, so callers always see the
// derived fields populated.
func (c *Client) FetchForecast(ctx context.Context) (*Result, error) {
	days := c.cfg.ForecastDays
	if days < 1 {
		days = 1
	} else if days > 7 {
		days = 7
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.site.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.site.Longitude, 'f', -1, 64))
	q.Set("apikey", c.cfg.APIKey.Unmask())
	q.Set("format", "json")
	q.Set("forecast_days", strconv.Itoa(days))
	q.Set("tz", c.site.Timezone)

	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, AstroPackage, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamMeteoblue, "failed to build forecast request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewAppError(
			types.ErrCodeUpstreamMeteoblue,
			fmt.Sprintf("forecast API returned status %d: %s", resp.StatusCode, string(body)),
			nil)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamMeteoblue, "failed to decode forecast response", err)
	}

	credits, _ := strconv.Atoi(resp.Header.Get(creditsHeader))

	samples := c.decode(payload)
	c.logger.InfoContext(ctx, "forecast fetched",
		"hours", len(samples),
		"credits_used", credits,
	)

	return &Result{Samples: samples, CreditsUsed: credits}, nil
}

// decode converts the columnar data_1h arrays into scored samples. Rows with
// unparseable timestamps are skipped; missing cells fall back to defaults.
func (c *Client) decode(payload response) []types.ForecastSample {
	d := payload.Data1H
	fetchedAt := c.now().UTC()

	samples := make([]types.ForecastSample, 0, len(d.Time))
	for i, raw := range d.Time {
		ts, err := parseLocalTimestamp(raw)
		if err != nil {
			c.logger.Warn("skipping forecast hour with bad timestamp",
				"index", i, "value", raw)
			continue
		}

		s := types.ForecastSample{
			Timestamp: ts,
			FetchedAt: fetchedAt,

			SeeingArcsec:   cell(d.SeeingArcsec, i, 2.0),
			SeeingIndex1:   int(cell(d.Seeing1, i, 3)),
			SeeingIndex2:   int(cell(d.Seeing2, i, 3)),
			JetstreamSpeed: cell(d.Jetstream, i, 20.0),

			BadLayerBottom:   optCell(d.BadLayerBottom, i),
			BadLayerTop:      optCell(d.BadLayerTop, i),
			BadLayerGradient: optCell(d.BadLayerGradient, i),

			TotalCloud:     int(cell(d.TotalCloudCover, i, 0)),
			LowClouds:      int(cell(d.LowClouds, i, 0)),
			MidClouds:      int(cell(d.MidClouds, i, 0)),
			HighClouds:     int(cell(d.HighClouds, i, 0)),
			Visibility:     int(cell(d.Visibility, i, 10000)),
			FogProbability: int(cell(d.FogProbability, i, 0)),

			NightSkyBrightnessActual:   cell(d.NightSkyBrightnessActual, i, 0),
			NightSkyBrightnessClearSky: cell(d.NightSkyBrightnessClearSky, i, 0),
			Moonlight:                  cell(d.MoonlightActual, i, 0),
			ZenithAngle:                cell(d.ZenithAngle, i, 0),

			Temperature:       cell(d.Temperature, i, 10.0),
			Humidity:          int(cell(d.RelativeHumidity, i, 50)),
			PrecipitationProb: int(cell(d.PrecipitationProbability, i, 0)),
			WindSpeed:         cell(d.WindSpeed, i, 0),
		}

		samples = append(samples, astro.Rate(s))
	}

	return samples
}

// response mirrors the meteoblue packages JSON shape. Values arrive as
// parallel arrays indexed by hour; null cells are preserved as nil.
type response struct {
	Data1H data1h `json:"data_1h"`
}

type data1h struct {
	Time []string `json:"time"`

	SeeingArcsec []*float64 `json:"seeing_arcsec"`
	Seeing1      []*float64 `json:"seeing1"`
	Seeing2      []*float64 `json:"seeing2"`
	Jetstream    []*float64 `json:"jetstream"`

	BadLayerBottom   []*float64 `json:"badlayer_bottom"`
	BadLayerTop      []*float64 `json:"badlayer_top"`
	BadLayerGradient []*float64 `json:"badlayer_gradient"`

	TotalCloudCover []*float64 `json:"totalcloudcover"`
	LowClouds       []*float64 `json:"lowclouds"`
	MidClouds       []*float64 `json:"midclouds"`
	HighClouds      []*float64 `json:"highclouds"`
	Visibility      []*float64 `json:"visibility"`
	FogProbability  []*float64 `json:"fog_probability"`

	NightSkyBrightnessActual   []*float64 `json:"nightskybrightness_actual"`
	NightSkyBrightnessClearSky []*float64 `json:"nightskybrightness_clearsky"`
	MoonlightActual            []*float64 `json:"moonlight_actual"`
	ZenithAngle                []*float64 `json:"zenithangle"`

	Temperature              []*float64 `json:"temperature"`
	RelativeHumidity         []*float64 `json:"relativehumidity"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	WindSpeed                []*float64 `json:"windspeed"`
}

// cell returns arr[i] or fallback when the index is out of range or the
// cell is null.
func cell(arr []*float64, i int, fallback float64) float64 {
	if i >= len(arr) || arr[i] == nil {
		return fallback
	}
	return *arr[i]
}

// optCell returns a copy of arr[i] or nil when absent.
func optCell(arr []*float64, i int) *float64 {
	if i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := *arr[i]
	return &v
}
