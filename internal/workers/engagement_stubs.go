package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/pressroomhq/social-scheduler/internal/models"
)

// StubEngagementFetcher stands in until the platform metric APIs are wired.
// Like the stub dispatchers it fails loudly, so the per-platform breaker opens
// and the refresh loop stops hammering an endpoint that does not exist yet.
type StubEngagementFetcher struct{}

func (StubEngagementFetcher) FetchEngagement(ctx context.Context, account models.SocialAccount, platformPostID string) (EngagementMetrics, error) {
	log.Printf("[EngagementRefresh] %s metrics not implemented yet accountId=%s platformPostId=%s", account.Platform, account.ID, platformPostID)
	return EngagementMetrics{}, fmt.Errorf("%s engagement fetch not implemented", account.Platform)
}

var _ EngagementFetcher = StubEngagementFetcher{}
