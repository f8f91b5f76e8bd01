package signals

import (
	"context"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// minOwnSample is the minimum number of measured posts before the account's
// own history is statistically meaningful.
const minOwnSample = 3

// PostHistory is the slice of the storage repository the own-performance
// source needs: sent posts with fetched engagement metrics.
type PostHistory interface {
	SentPostsWithEngagement(ctx context.Context, accountID string) ([]models.SocialPost, error)
}

// OwnPerformance scores each weekly hour by how the account's own past posts
// performed when sent in that hour.
type OwnPerformance struct {
	History PostHistory
	Loc     *time.Location
}

func (s *OwnPerformance) Name() string { return "own-performance" }

func (s *OwnPerformance) Fetch(ctx context.Context, account models.SocialAccount) (Result, error) {
	posts, err := s.History.SentPostsWithEngagement(ctx, account.ID)
	if err != nil {
		return Absent(), err
	}
	if len(posts) < minOwnSample {
		return Absent(), nil
	}

	sum := grid.Empty()
	count := grid.Empty()
	for _, p := range posts {
		if p.SentAt == nil {
			continue
		}
		d, h := grid.ToLocalDayHour(*p.SentAt, s.Loc)
		sum[d][h] += engagementScore(p.Likes, p.Shares, p.Replies)
		count[d][h]++
	}
	return Present(bucketAverages(sum, count)), nil
}
