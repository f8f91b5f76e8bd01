// Package signals holds the four independent sources of hourly engagement
// evidence blended into a posting profile. Each source either yields a
// complete 7x24 grid or reports itself absent; "absent" is an ordinary
// outcome, never an error.
package signals

import (
	"context"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// Result is the two-variant outcome of a source fetch: Present carries a
// complete grid, Absent carries nothing.
type Result struct {
	Grid grid.Grid
	OK   bool
}

func Present(g grid.Grid) Result {
	return Result{Grid: g, OK: true}
}

func Absent() Result {
	return Result{}
}

// Source is one signal provider. Implementations convert "no usable data"
// into Absent; errors they do return are caught at the calculator boundary
// and likewise folded into Absent.
type Source interface {
	Name() string
	Fetch(ctx context.Context, account models.SocialAccount) (Result, error)
}

// engagementScore is the shared per-post scoring rule: replies weigh the
// most, then shares, then likes.
func engagementScore(likes, shares, replies int) float64 {
	return float64(likes) + 2*float64(shares) + 3*float64(replies)
}

// bucketAverages turns per-bucket (sum, count) accumulators into a normalized
// grid of per-bucket means.
func bucketAverages(sum grid.Grid, count grid.Grid) grid.Grid {
	out := grid.Empty()
	for d := 0; d < grid.Days; d++ {
		for h := 0; h < grid.Hours; h++ {
			if count[d][h] > 0 {
				out[d][h] = sum[d][h] / count[d][h]
			}
		}
	}
	return grid.Normalize(out)
}
