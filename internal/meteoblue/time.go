package meteoblue

import "time"

// forecastLayout is the timestamp format of the data_1h time array when the
// request passes a tz parameter. Values are site-local wall-clock times.
const forecastLayout = "2006-01-02 15:04"

// parseLocalTimestamp converts a site-local forecast timestamp to UTC.
//
// Central European DST is approximated by the month: April through October
// is treated as CEST (UTC+2), the rest of the year as CET (UTC+1). The
// approximation is off by at most a few days around the late-March and
// late-October transitions, which only shifts those hours by one.
func parseLocalTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(forecastLayout, raw)
	if err != nil {
		return time.Time{}, err
	}

	offset := 1
	if m := t.Month(); m >= time.April && m <= time.October {
		offset = 2
	}
	return t.Add(-time.Duration(offset) * time.Hour).UTC(), nil
}
