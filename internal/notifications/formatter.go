package notifications

import (
	"fmt"
	"strings"
	"time"

	"astroweather/internal/types"
)

// FormatWindow renders an observation window as a Pushover title and message.
// Times are shown in the given location so the alert reads in site-local
// wall-clock time.
func FormatWindow(w types.ObservationWindow, loc *time.Location) (title, message string) {
	if loc == nil {
		loc = time.UTC
	}
	start := w.Start.In(loc)
	end := w.End.In(loc)

	title = fmt.Sprintf("Clear skies %s", start.Format("Mon 2 Jan"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s to %s (%dh)\n",
		start.Format("15:04"), end.Format("15:04"), w.Hours)
	fmt.Fprintf(&b, "Avg score %.0f, min %d\n", w.AvgScore, w.MinScore)
	fmt.Fprintf(&b, "Seeing %.1f\"\n", w.AvgSeeingArcsec)
	fmt.Fprintf(&b, "Clouds %.0f%%", w.AvgCloudPct)
	message = b.String()

	return title, message
}
