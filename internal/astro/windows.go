package astro

import (
	"sort"
	"time"

	"astroweather/internal/types"
)

// WindowCriteria holds the thresholds for the window scan.
type WindowCriteria struct {
	MinScore int
	// MinHours is the minimum run length for a window to be emitted.
	// Shorter runs are discarded, never merged across a gap.
	MinHours int
	// OnlyNight restricts qualifying hours to astronomical night.
	OnlyNight bool
}

// qualifies is the validity predicate applied to each sample in input order.
func (c WindowCriteria) qualifies(s types.ForecastSample) bool {
	if s.AstroScore < c.MinScore {
		return false
	}
	return !c.OnlyNight || s.IsAstronomicalNight()
}

// accumulator collects one open run of qualifying samples. A nil accumulator
// is the "no open window" state; the two states and their transitions are
// driven entirely by the per-sample predicate.
type accumulator struct {
	start, end time.Time
	scores     []int
	seeingSum  float64
	cloudSum   float64
}

// extend appends a qualifying sample to the run.
func (a *accumulator) extend(s types.ForecastSample) {
	a.end = s.Timestamp
	a.scores = append(a.scores, s.AstroScore)
	a.seeingSum += s.SeeingArcsec
	a.cloudSum += float64(s.TotalCloud)
}

// open starts a new run at the given sample.
func open(s types.ForecastSample) *accumulator {
	a := &accumulator{start: s.Timestamp}
	a.extend(s)
	return a
}

// close converts the run into a window if it is long enough, computing the
// aggregates as plain arithmetic means over the run's samples.
func (a *accumulator) close(minHours int) (types.ObservationWindow, bool) {
	hours := len(a.scores)
	if hours < minHours {
		return types.ObservationWindow{}, false
	}

	sum := 0
	lowest := a.scores[0]
	for _, sc := range a.scores {
		sum += sc
		if sc < lowest {
			lowest = sc
		}
	}

	n := float64(hours)
	return types.ObservationWindow{
		Start:           a.start,
		End:             a.end,
		Hours:           hours,
		Scores:          a.scores,
		AvgScore:        float64(sum) / n,
		MinScore:        lowest,
		AvgSeeingArcsec: a.seeingSum / n,
		AvgCloudPct:     a.cloudSum / n,
	}, true
}

// FindWindows scans an ordered sequence of scored samples and returns the
// maximal contiguous runs that satisfy the criteria, sorted by average score
// descending. Ties keep chronological emission order (stable sort). A single
// non-qualifying sample always ends the current run; runs are never bridged.
// Empty input or no qualifying run yields an empty result.
func FindWindows(samples []types.ForecastSample, criteria WindowCriteria) []types.ObservationWindow {
	var windows []types.ObservationWindow
	var current *accumulator

	for _, s := range samples {
		switch {
		case criteria.qualifies(s) && current == nil:
			current = open(s)
		case criteria.qualifies(s):
			current.extend(s)
		case current != nil:
			if w, ok := current.close(criteria.MinHours); ok {
				windows = append(windows, w)
			}
			current = nil
		}
	}

	// A qualifying run that reaches the end of the input still closes.
	if current != nil {
		if w, ok := current.close(criteria.MinHours); ok {
			windows = append(windows, w)
		}
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].AvgScore > windows[j].AvgScore
	})

	return windows
}
