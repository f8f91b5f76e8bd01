// Package grid holds the 7x24 weekly score grid and the pure operations the
// scheduling engine performs on it. Rows are days of week (Sunday=0) and
// columns are local hours 0-23.
package grid

import (
	"math"
	"time"
)

const (
	Days  = 7
	Hours = 24

	// GuardrailEndHour is the first local hour allowed for posting. Hours
	// 0 through 5 are hard-disallowed regardless of computed score.
	GuardrailEndHour = 6
)

// Grid is a weekly score grid: [day][hour].
type Grid [Days][Hours]float64

// Weighted pairs a grid with its blend weight.
type Weighted struct {
	Grid   Grid
	Weight float64
}

// Empty returns an all-zero grid.
func Empty() Grid {
	return Grid{}
}

// FromRows converts a row-slice representation (e.g. decoded JSON) into a
// Grid. It returns ok=false when the shape is not exactly 7x24; callers treat
// that as absent data, not as an error.
func FromRows(rows [][]float64) (Grid, bool) {
	var g Grid
	if len(rows) != Days {
		return g, false
	}
	for d, row := range rows {
		if len(row) != Hours {
			return g, false
		}
		for h, v := range row {
			g[d][h] = v
		}
	}
	return g, true
}

// Rows converts a Grid back to the row-slice representation used for JSON.
func (g Grid) Rows() [][]float64 {
	rows := make([][]float64, Days)
	for d := 0; d < Days; d++ {
		row := make([]float64, Hours)
		copy(row, g[d][:])
		rows[d] = row
	}
	return rows
}

// Max returns the largest cell value in the grid.
func (g Grid) Max() float64 {
	max := 0.0
	for d := 0; d < Days; d++ {
		for h := 0; h < Hours; h++ {
			if g[d][h] > max {
				max = g[d][h]
			}
		}
	}
	return max
}

// Normalize rescales every cell to round(value/max*100). An all-zero grid is
// returned unchanged: no usable signal, not "every hour is best".
func Normalize(g Grid) Grid {
	max := g.Max()
	if max == 0 {
		return g
	}
	var out Grid
	for d := 0; d < Days; d++ {
		for h := 0; h < Hours; h++ {
			out[d][h] = math.Round(g[d][h] / max * 100)
		}
	}
	return out
}

// ApplyGuardrail zeroes local hours 0-5 on every day. Applied after
// normalization so blending can never dilute the rule back to nonzero.
func ApplyGuardrail(g Grid) Grid {
	out := g
	for d := 0; d < Days; d++ {
		for h := 0; h < GuardrailEndHour; h++ {
			out[d][h] = 0
		}
	}
	return out
}

// Blend returns the per-cell weighted sum of the sources. It does not require
// the weights to sum to 1; the profile calculator owns that invariant.
func Blend(sources []Weighted) Grid {
	var out Grid
	for _, s := range sources {
		for d := 0; d < Days; d++ {
			for h := 0; h < Hours; h++ {
				out[d][h] += s.Grid[d][h] * s.Weight
			}
		}
	}
	return out
}

// ToLocalDayHour resolves an instant to its (day-of-week, hour) bucket in the
// destination's civil calendar. Every grid lookup goes through here so DST
// edge cases live in one place.
func ToLocalDayHour(t time.Time, loc *time.Location) (day, hour int) {
	lt := t.In(loc)
	return int(lt.Weekday()), lt.Hour()
}
