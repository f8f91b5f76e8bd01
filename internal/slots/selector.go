// Package slots turns a posting profile into concrete future instants.
package slots

import (
	"sort"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/profile"
)

const (
	// DefaultCount is how many slots TopSlots returns unless asked otherwise.
	DefaultCount = 8
	// windowHours is the rolling future window scanned for candidates.
	windowHours = 48
)

// Slot is one candidate future instant with its grid score.
type Slot struct {
	At    time.Time `json:"at"`
	Day   int       `json:"day"`
	Hour  int       `json:"hour"`
	Score float64   `json:"score"`
}

// TopSlots walks the next 48 whole hours from now (rounded down to the top of
// the hour, 1-indexed so "now" itself is never selected), scores each by the
// profile, and returns up to count slots in chronological order. Selection is
// score-driven; only the final ordering is chronological.
//
// Candidates are deduplicated by (day, hour) bucket rather than by instant:
// across a daylight-saving transition two distinct instants in the window can
// resolve to the same local hour, and only the first occurrence is kept.
func TopSlots(p *profile.PostingProfile, now time.Time, loc *time.Location, count int) []Slot {
	if count <= 0 {
		count = DefaultCount
	}

	// Round down on the local civil clock. Truncate works on the absolute
	// timeline, which lands mid-hour in zones with fractional UTC offsets.
	lt := now.In(loc)
	base := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, loc)
	seen := make(map[[2]int]bool)
	candidates := make([]Slot, 0, windowHours)
	for i := 1; i <= windowHours; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		day, hour := grid.ToLocalDayHour(at, loc)
		score := p.Grid[day][hour]
		if score == 0 {
			// Guardrail hours and zero-signal accounts drop out here.
			continue
		}
		key := [2]int{day, hour}
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, Slot{At: at, Day: day, Hour: hour, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].At.Before(candidates[j].At)
	})
	return candidates
}
