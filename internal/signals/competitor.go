package signals

import (
	"context"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// CompetitorGrids is the slice of the storage repository the competitor
// source needs: stored grids of active competitor accounts by platform.
type CompetitorGrids interface {
	ActiveCompetitorGrids(ctx context.Context, platform models.Platform) ([][][]float64, error)
}

// Competitor averages the stored engagement grids of active competitor
// accounts on the same platform, cell by cell. Competitors are grouped only
// by platform, never tied to a specific account.
type Competitor struct {
	Grids CompetitorGrids
}

func (s *Competitor) Name() string { return "competitor" }

func (s *Competitor) Fetch(ctx context.Context, account models.SocialAccount) (Result, error) {
	rows, err := s.Grids.ActiveCompetitorGrids(ctx, account.Platform)
	if err != nil {
		return Absent(), err
	}

	sum := grid.Empty()
	qualifying := 0
	for _, raw := range rows {
		g, ok := grid.FromRows(raw)
		if !ok {
			// Malformed shape is absent data for that row, not an error.
			continue
		}
		for d := 0; d < grid.Days; d++ {
			for h := 0; h < grid.Hours; h++ {
				sum[d][h] += g[d][h]
			}
		}
		qualifying++
	}
	if qualifying == 0 {
		return Absent(), nil
	}

	avg := grid.Empty()
	for d := 0; d < grid.Days; d++ {
		for h := 0; h < grid.Hours; h++ {
			avg[d][h] = sum[d][h] / float64(qualifying)
		}
	}
	return Present(grid.Normalize(avg)), nil
}
