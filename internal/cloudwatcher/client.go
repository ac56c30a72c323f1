// Package cloudwatcher polls a CloudWatcher Solo sky sensor over HTTP and
// decodes its key=value status report into a SensorReading.
package cloudwatcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"astroweather/internal/types"
)

// dataPath is the CGI endpoint serving the latest sensor values.
const dataPath = "/cgi-bin/cgiLastData"

// gmtTimeLayout is the layout of the dataGMTTime field.
const gmtTimeLayout = "2006/01/02 15:04:05"

// Client fetches readings from a CloudWatcher Solo on the local network.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time // injectable for tests
}

// New creates a Client for the sensor at host:port.
func New(host string, port int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// Fetch retrieves and parses the current sensor values.
func (c *Client) Fetch(ctx context.Context) (*types.SensorReading, error) {
	url := c.baseURL + dataPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamCloudWatcher, "failed to build sensor request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamCloudWatcher, "sensor unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamCloudWatcher,
			fmt.Sprintf("sensor returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamCloudWatcher, "failed to read sensor response", err)
	}

	reading := c.parse(string(body))
	c.logger.DebugContext(ctx, "sensor reading",
		"sky_quality", string(reading.SkyQuality()),
		"sky_minus_ambient", reading.SkyMinusAmbient,
		"safe", reading.IsSafeForImaging(),
	)
	return reading, nil
}

// Reachable reports whether the sensor responds at all.
func (c *Client) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// parse decodes the key=value response body. Example input:
//
//	dataGMTTime=2026/01/23 17:53:25
//	cwinfo=Serial: 2653, FW: 5.89
//	clouds=-8.360000
//
// Missing or malformed numeric fields fall back to defaults; an unparseable
// timestamp falls back to the current time.
func (c *Client) parse(text string) *types.SensorReading {
	fields := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if key, value, ok := strings.Cut(line, "="); ok {
			fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	ts, err := time.Parse(gmtTimeLayout, fields["dataGMTTime"])
	if err != nil {
		c.logger.Warn("could not parse sensor timestamp, using current time",
			"value", fields["dataGMTTime"])
		ts = c.now().UTC()
	} else {
		ts = ts.UTC()
	}

	serial, firmware := parseDeviceInfo(fields["cwinfo"])

	return &types.SensorReading{
		Timestamp:          ts,
		SkyMinusAmbient:    floatField(fields, "clouds", 0),
		CloudsSafe:         intField(fields, "cloudsSafe", 0),
		SkyTemp:            floatField(fields, "rawir", 0), // rawir is the IR measurement
		AmbientTemp:        floatField(fields, "temp", 0),
		DewPoint:           floatField(fields, "dewp", 0),
		Humidity:           intField(fields, "hum", 0),
		HumiditySafe:       intField(fields, "humSafe", 1),
		SkyBrightnessMPSAS: floatField(fields, "lightmpsas", 0),
		LightSafe:          intField(fields, "lightSafe", 1),
		Rain:               intField(fields, "rain", 0),
		RainSafe:           intField(fields, "rainSafe", 1),
		Wind:               floatField(fields, "wind", -1),
		Gust:               floatField(fields, "gust", -1),
		WindSafe:           intField(fields, "windSafe", 1),
		PressureAbs:        floatField(fields, "abspress", 0),
		PressureRel:        floatField(fields, "relpress", 0),
		PressureSafe:       intField(fields, "pressureSafe", 1),
		Safe:               intField(fields, "safe", 1),
		Serial:             serial,
		Firmware:           firmware,
	}
}

// parseDeviceInfo extracts serial and firmware from a cwinfo value of the
// form "Serial: 2653, FW: 5.89".
func parseDeviceInfo(cwinfo string) (serial, firmware string) {
	for _, part := range strings.Split(cwinfo, ",") {
		if _, v, ok := strings.Cut(part, "Serial:"); ok {
			serial = strings.TrimSpace(v)
		} else if _, v, ok := strings.Cut(part, "FW:"); ok {
			firmware = strings.TrimSpace(v)
		}
	}
	return serial, firmware
}

func floatField(fields map[string]string, key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(fields[key], 64)
	if err != nil {
		return fallback
	}
	return v
}

func intField(fields map[string]string, key string, fallback int) int {
	raw := fields[key]
	v, err := strconv.Atoi(raw)
	if err != nil {
		// Some firmware versions emit integer flags as floats.
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return int(f)
		}
		return fallback
	}
	return v
}
