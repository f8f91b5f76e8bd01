package workers

import (
	"context"
	"log"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/guard"
	"github.com/pressroomhq/social-scheduler/internal/models"
	"github.com/pressroomhq/social-scheduler/internal/store"
)

// EngagementMetrics is one snapshot of a sent post's public numbers.
type EngagementMetrics struct {
	Likes       int
	Shares      int
	Replies     int
	Views       int
	Impressions int
}

// EngagementFetcher pulls a sent post's current metrics from its platform.
type EngagementFetcher interface {
	FetchEngagement(ctx context.Context, account models.SocialAccount, platformPostID string) (EngagementMetrics, error)
}

// EngagementRefreshWorker keeps engagement metrics on sent posts fresh so the
// own-performance signal has something to bucket. Fetches run through a
// per-platform circuit breaker; a broken platform API degrades to stale
// metrics, never to a crashed loop.
type EngagementRefreshWorker struct {
	Store       *store.Store
	Fetcher     EngagementFetcher
	Breakers    *guard.Registry
	MaxAgeHours int // refresh metrics older than this (default 24)
	BatchPerRun int // posts per sweep (default 50)
}

func (w *EngagementRefreshWorker) refresh(ctx context.Context) {
	maxAge := w.MaxAgeHours
	if maxAge <= 0 {
		maxAge = 24
	}
	batch := w.BatchPerRun
	if batch <= 0 {
		batch = 50
	}

	cutoff := time.Now().Add(-time.Duration(maxAge) * time.Hour)
	posts, err := w.Store.SentPostsWithoutFreshEngagement(ctx, cutoff, batch)
	if err != nil {
		log.Printf("[EngagementRefresh] list error: %v", err)
		return
	}

	refreshed := 0
	for _, p := range posts {
		if p.PlatformPostID == nil {
			continue
		}
		account, err := w.Store.GetAccount(ctx, p.AccountID)
		if err != nil {
			log.Printf("[EngagementRefresh] account lookup failed postId=%s err=%v", p.ID, err)
			continue
		}

		var m EngagementMetrics
		breaker := w.Breakers.For("engagement:" + string(account.Platform))
		attempted, err := breaker.Do(func() error {
			var ferr error
			m, ferr = w.Fetcher.FetchEngagement(ctx, *account, *p.PlatformPostID)
			return ferr
		})
		if !attempted {
			continue
		}
		if err != nil {
			log.Printf("[EngagementRefresh] fetch failed postId=%s platform=%s err=%v", p.ID, account.Platform, err)
			continue
		}

		if err := w.Store.UpdateEngagement(ctx, p.ID, m.Likes, m.Shares, m.Replies, m.Views, m.Impressions, time.Now().UTC()); err != nil {
			log.Printf("[EngagementRefresh] update failed postId=%s err=%v", p.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		log.Printf("[EngagementRefresh] refreshed %d posts", refreshed)
	}
}

// Start begins the refresh loop.
func (w *EngagementRefreshWorker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[EngagementRefresh] started (maxAge=%dh, interval=%s)", w.MaxAgeHours, interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[EngagementRefresh] stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}
