// Package profile blends the weighted signal sources into one posting
// profile per account. The calculator never fails: every degraded input path
// folds into weight redistribution, and at worst the caller receives the pure
// platform-default curve.
package profile

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/metrics"
	"github.com/pressroomhq/social-scheduler/internal/models"
	"github.com/pressroomhq/social-scheduler/internal/signals"
)

// Source weights. They sum to 1.0 exactly; the weight of any absent source is
// redistributed onto the platform default before blending.
const (
	WeightOwnPerformance = 0.40
	WeightSiteAnalytics  = 0.25
	WeightCompetitor     = 0.20
	WeightDefault        = 0.15
)

// PostingProfile is the derived weekly score grid for one account. It is
// never persisted; callers recompute (or cache) it at their own discretion.
type PostingProfile struct {
	AccountID   string          `json:"accountId"`
	Platform    models.Platform `json:"platform"`
	Grid        grid.Grid       `json:"grid"`
	GeneratedAt time.Time       `json:"generatedAt"`
	// DataPoints counts how many of the three live sources (own performance,
	// site analytics, competitor) actually contributed.
	DataPoints int `json:"dataPoints"`
}

// AccountGetter is the slice of the storage repository the calculator needs.
type AccountGetter interface {
	GetAccount(ctx context.Context, id string) (*models.SocialAccount, error)
}

type Calculator struct {
	Accounts   AccountGetter
	Own        signals.Source
	Analytics  signals.Source
	Competitor signals.Source
	Loc        *time.Location

	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Calculate produces a complete, always-valid profile for the account. A
// failure to resolve the account itself degrades to the pure platform-default
// profile; everything else degrades per source.
func (c *Calculator) Calculate(ctx context.Context, accountID string) *PostingProfile {
	account, err := c.Accounts.GetAccount(ctx, accountID)
	if err != nil {
		log.Printf("[Profile] account lookup failed accountId=%s err=%v, using platform default", accountID, err)
		return c.defaultProfile(accountID, "")
	}

	type fetched struct {
		weight float64
		result signals.Result
	}
	live := []struct {
		source signals.Source
		weight float64
	}{
		{c.Own, WeightOwnPerformance},
		{c.Analytics, WeightSiteAnalytics},
		{c.Competitor, WeightCompetitor},
	}

	// The live sources are independent of each other; fetch them concurrently
	// and combine only after all have resolved or been marked absent.
	results := make([]fetched, len(live))
	var wg sync.WaitGroup
	for i, src := range live {
		wg.Add(1)
		go func(i int, source signals.Source, weight float64) {
			defer wg.Done()
			res, err := source.Fetch(ctx, *account)
			if err != nil {
				// A failing source is absent, never fatal.
				log.Printf("[Profile] source failed accountId=%s source=%s err=%v", accountID, source.Name(), err)
				res = signals.Absent()
			}
			if !res.OK {
				metrics.RecordSourceAbsent(source.Name())
			}
			results[i] = fetched{weight: weight, result: res}
		}(i, src.source, src.weight)
	}
	wg.Wait()

	defaultWeight := WeightDefault
	blendInput := make([]grid.Weighted, 0, len(results)+1)
	dataPoints := 0
	for _, f := range results {
		if !f.result.OK {
			defaultWeight += f.weight
			continue
		}
		blendInput = append(blendInput, grid.Weighted{Grid: f.result.Grid, Weight: f.weight})
		dataPoints++
	}
	blendInput = append(blendInput, grid.Weighted{Grid: signals.DefaultCurve(account.Platform), Weight: defaultWeight})

	blended := grid.ApplyGuardrail(grid.Normalize(grid.Blend(blendInput)))
	metrics.RecordProfileComputed(string(account.Platform), strconv.Itoa(dataPoints))

	return &PostingProfile{
		AccountID:   accountID,
		Platform:    account.Platform,
		Grid:        blended,
		GeneratedAt: c.now(),
		DataPoints:  dataPoints,
	}
}

func (c *Calculator) defaultProfile(accountID string, platform models.Platform) *PostingProfile {
	g := grid.ApplyGuardrail(grid.Normalize(signals.DefaultCurve(platform)))
	return &PostingProfile{
		AccountID:   accountID,
		Platform:    platform,
		Grid:        g,
		GeneratedAt: c.now(),
		DataPoints:  0,
	}
}
