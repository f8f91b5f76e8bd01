package signals

import (
	"context"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/guard"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// HourlyPageviews is one hour of site traffic from the analytics provider.
type HourlyPageviews struct {
	At    time.Time
	Views int
}

// AnalyticsProvider is the site-analytics collaborator: hourly pageviews over
// a trailing 30-day window plus the share of traffic arriving from social
// referrers. Implementations bound their own latency.
type AnalyticsProvider interface {
	HourlyPageviews(ctx context.Context, site string) ([]HourlyPageviews, error)
	SocialTrafficRatio(ctx context.Context, site string) (float64, error)
}

// PublicEngagementSample is one externally visible post of the account on a
// platform that exposes per-post public engagement.
type PublicEngagementSample struct {
	PostedAt time.Time
	Likes    int
	Shares   int
	Replies  int
}

// PublicEngagementProvider supplies the account's public post history for
// platforms where per-post engagement is visible without site analytics.
type PublicEngagementProvider interface {
	PublicPostHistory(ctx context.Context, account models.SocialAccount) ([]PublicEngagementSample, error)
}

// SiteAnalytics scores weekly hours by pageview volume attributable to social
// referral traffic on the account's publish target. For platforms with
// public per-post engagement it substitutes the account's public history,
// scored the same way as own performance.
type SiteAnalytics struct {
	Provider AnalyticsProvider
	Public   PublicEngagementProvider
	Breaker  *guard.Breaker
	Loc      *time.Location
}

func (s *SiteAnalytics) Name() string { return "site-analytics" }

// publicEngagementPlatform reports whether the platform exposes per-post
// public engagement usable instead of generic site analytics.
func publicEngagementPlatform(p models.Platform) bool {
	return p == models.PlatformX
}

func (s *SiteAnalytics) Fetch(ctx context.Context, account models.SocialAccount) (Result, error) {
	if publicEngagementPlatform(account.Platform) && s.Public != nil {
		return s.fetchPublicHistory(ctx, account)
	}

	if account.PublishTarget == nil || *account.PublishTarget == "" {
		return Absent(), nil
	}
	site := *account.PublishTarget

	var samples []HourlyPageviews
	var ratio float64
	attempted, err := s.Breaker.Do(func() error {
		var ferr error
		samples, ferr = s.Provider.HourlyPageviews(ctx, site)
		if ferr != nil {
			return ferr
		}
		ratio, ferr = s.Provider.SocialTrafficRatio(ctx, site)
		return ferr
	})
	if !attempted {
		return Absent(), nil
	}
	if err != nil {
		return Absent(), err
	}
	if len(samples) == 0 {
		return Absent(), nil
	}
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	sum := grid.Empty()
	count := grid.Empty()
	for _, hv := range samples {
		d, h := grid.ToLocalDayHour(hv.At, s.Loc)
		sum[d][h] += float64(hv.Views) * ratio
		count[d][h]++
	}
	return Present(bucketAverages(sum, count)), nil
}

func (s *SiteAnalytics) fetchPublicHistory(ctx context.Context, account models.SocialAccount) (Result, error) {
	var samples []PublicEngagementSample
	attempted, err := s.Breaker.Do(func() error {
		var ferr error
		samples, ferr = s.Public.PublicPostHistory(ctx, account)
		return ferr
	})
	if !attempted {
		return Absent(), nil
	}
	if err != nil {
		return Absent(), err
	}
	if len(samples) == 0 {
		return Absent(), nil
	}

	sum := grid.Empty()
	count := grid.Empty()
	for _, ps := range samples {
		d, h := grid.ToLocalDayHour(ps.PostedAt, s.Loc)
		sum[d][h] += engagementScore(ps.Likes, ps.Shares, ps.Replies)
		count[d][h]++
	}
	return Present(bucketAverages(sum, count)), nil
}
