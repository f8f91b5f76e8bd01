package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/pressroomhq/social-scheduler/internal/models"
)

const postColumns = `id, account_id, article_id, caption, image_url, scheduled_at, status,
	       platform_post_id, error_message,
	       likes, shares, replies, views, impressions, engagement_fetched_at,
	       sent_at, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.SocialPost, error) {
	var p models.SocialPost
	err := row.Scan(
		&p.ID, &p.AccountID, &p.ArticleID, &p.Caption, &p.ImageURL, &p.ScheduledAt, &p.Status,
		&p.PlatformPostID, &p.ErrorMessage,
		&p.Likes, &p.Shares, &p.Replies, &p.Views, &p.Impressions, &p.EngagementFetchedAt,
		&p.SentAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPost loads one post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		  FROM public.social_posts
		 WHERE id = $1
	`, id))
}

// CreatePost inserts a new post. Status defaults to pending when empty.
func (s *Store) CreatePost(ctx context.Context, p *models.SocialPost) (*models.SocialPost, error) {
	status := p.Status
	if status == "" {
		status = models.StatusPending
	}
	return scanPost(s.db.QueryRowContext(ctx, `
		INSERT INTO public.social_posts
		  (id, account_id, article_id, caption, image_url, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING `+postColumns+`
	`, p.ID, p.AccountID, p.ArticleID, p.Caption, p.ImageURL, p.ScheduledAt, status))
}

// TransitionStatus moves a post from one of the expected statuses to the next
// one, atomically. It returns ErrNotFound when the post either does not exist
// or is not in an expected status; callers that need a descriptive error
// re-read the row to tell the two apart.
func (s *Store) TransitionStatus(ctx context.Context, id string, from []models.PostStatus, to models.PostStatus) (*models.SocialPost, error) {
	expected := make([]string, len(from))
	for i, st := range from {
		expected[i] = string(st)
	}
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET status = $2,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = ANY($3)
		RETURNING `+postColumns+`
	`, id, to, pq.Array(expected)))
}

// RetryToPending moves a failed post back to pending and clears its error.
func (s *Store) RetryToPending(ctx context.Context, id string) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET status = 'pending',
		       error_message = NULL,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = 'failed'
		RETURNING `+postColumns+`
	`, id))
}

// MarkSent finalizes a sending post as sent.
func (s *Store) MarkSent(ctx context.Context, id, platformPostID string, sentAt time.Time) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET status = 'sent',
		       platform_post_id = $2,
		       sent_at = $3,
		       error_message = NULL,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = 'sending'
		RETURNING `+postColumns+`
	`, id, platformPostID, sentAt))
}

// MarkFailed finalizes a sending post as failed with the dispatch error. The
// failure stays visible in the queue instead of being silently reverted.
func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET status = 'failed',
		       error_message = $2,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = 'sending'
		RETURNING `+postColumns+`
	`, id, errMsg))
}

// UpdateCaption edits the caption of a pending or approved post in place.
func (s *Store) UpdateCaption(ctx context.Context, id, caption string) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET caption = $2,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status IN ('pending', 'approved')
		RETURNING `+postColumns+`
	`, id, caption))
}

// UpdateSchedule edits scheduledAt of a pending or approved post in place.
func (s *Store) UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (*models.SocialPost, error) {
	return scanPost(s.db.QueryRowContext(ctx, `
		UPDATE public.social_posts
		   SET scheduled_at = $2,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status IN ('pending', 'approved')
		RETURNING `+postColumns+`
	`, id, scheduledAt))
}

// DeletePost removes a post regardless of status.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM public.social_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveBatch approves every id currently pending and reports how many rows
// actually changed. Already-approved and unknown ids are silently skipped.
func (s *Store) ApproveBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE public.social_posts
		   SET status = 'approved',
		       updated_at = NOW()
		 WHERE id = ANY($1)
		   AND status = 'pending'
	`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteBatch removes every listed post and reports how many rows existed.
func (s *Store) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM public.social_posts
		 WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListPosts returns every post ordered newest-scheduled first, for the
// grouped queue view.
func (s *Store) ListPosts(ctx context.Context) ([]models.SocialPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		  FROM public.social_posts
		 ORDER BY scheduled_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

// SentPostsWithEngagement returns an account's sent posts whose engagement
// metrics have been fetched; the own-performance signal is built from these.
func (s *Store) SentPostsWithEngagement(ctx context.Context, accountID string) ([]models.SocialPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		  FROM public.social_posts
		 WHERE account_id = $1
		   AND status = 'sent'
		   AND engagement_fetched_at IS NOT NULL
		   AND sent_at IS NOT NULL
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

// DueApprovedPosts lists approved posts whose scheduled time has passed, the
// send worker's candidate set. Claiming happens per id via TransitionStatus.
func (s *Store) DueApprovedPosts(ctx context.Context, limit int) ([]models.SocialPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		  FROM public.social_posts
		 WHERE status = 'approved'
		   AND scheduled_at <= NOW()
		 ORDER BY scheduled_at ASC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

// SentPostsWithoutFreshEngagement lists sent posts whose metrics were never
// fetched or are older than the cutoff; the engagement-refresh worker's input.
func (s *Store) SentPostsWithoutFreshEngagement(ctx context.Context, cutoff time.Time, limit int) ([]models.SocialPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		  FROM public.social_posts
		 WHERE status = 'sent'
		   AND platform_post_id IS NOT NULL
		   AND (engagement_fetched_at IS NULL OR engagement_fetched_at < $1)
		 ORDER BY sent_at DESC
		 LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

// UpdateEngagement stores freshly fetched engagement metrics on a sent post.
func (s *Store) UpdateEngagement(ctx context.Context, id string, likes, shares, replies, views, impressions int, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE public.social_posts
		   SET likes = $2, shares = $3, replies = $4, views = $5, impressions = $6,
		       engagement_fetched_at = $7,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = 'sent'
	`, id, likes, shares, replies, views, impressions, fetchedAt)
	return err
}

func collectPosts(rows *sql.Rows) ([]models.SocialPost, error) {
	posts := []models.SocialPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
