package workers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/queue"
	"github.com/pressroomhq/social-scheduler/internal/store"
)

// SendWorker periodically dispatches approved posts whose scheduled time has
// passed. Claiming happens inside SendNow (approved → sending via conditional
// UPDATE), so multiple app instances never double-send the same post.
type SendWorker struct {
	Store *store.Store
	Queue *queue.Orchestrator
	Limit int // max posts per sweep (default 25)
}

func (w *SendWorker) sweepOnce(ctx context.Context) (int, error) {
	limit := w.Limit
	if limit <= 0 {
		limit = 25
	}

	due, err := w.Store.DueApprovedPosts(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	sent := 0
	for _, p := range due {
		log.Printf("[SendWorker] candidate postId=%s accountId=%s scheduledAt=%s",
			p.ID, p.AccountID, p.ScheduledAt.UTC().Format(time.RFC3339))

		out, err := w.Queue.SendNow(ctx, p.ID)
		if err != nil {
			var te *queue.TransitionError
			if errors.As(err, &te) || errors.Is(err, queue.ErrNotFound) {
				// Another instance claimed it between the scan and the send.
				log.Printf("[SendWorker] claim_skipped postId=%s reason=already_claimed", p.ID)
				continue
			}
			log.Printf("[SendWorker] send error postId=%s err=%v", p.ID, err)
			continue
		}
		// A dispatch failure is a normal outcome here: the post is FAILED and
		// visible in the queue, the sweep moves on.
		if out.Status == "sent" {
			sent++
		}
	}
	return sent, nil
}

// Start runs the periodic send loop until the context is canceled.
func (w *SendWorker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	log.Printf("[SendWorker] started interval=%s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Log a lightweight summary periodically even when nothing is due.
	sweepCount := 0
	sweepStats := func() (due int, next sql.NullTime) {
		db := w.Store.DB()
		_ = db.QueryRowContext(ctx, `
			SELECT COUNT(*)
			  FROM public.social_posts
			 WHERE status = 'approved'
			   AND scheduled_at <= NOW()
		`).Scan(&due)
		_ = db.QueryRowContext(ctx, `
			SELECT MIN(scheduled_at)
			  FROM public.social_posts
			 WHERE status = 'approved'
			   AND scheduled_at > NOW()
		`).Scan(&next)
		return due, next
	}

	run := func() {
		sweepCount++
		backoffs := []time.Duration{700 * time.Millisecond, 1500 * time.Millisecond, 3 * time.Second}
		var n int
		var err error
		for attempt := 0; attempt < len(backoffs)+1; attempt++ {
			// Timebox each sweep attempt.
			sweepCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			n, err = w.sweepOnce(sweepCtx)
			cancel()
			if err == nil {
				break
			}
			if attempt < len(backoffs) {
				log.Printf("[SendWorker] sweep error attempt=%d/%d err=%v", attempt+1, len(backoffs)+1, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoffs[attempt]):
				}
				continue
			}
		}
		if err != nil {
			log.Printf("[SendWorker] sweep error final err=%v", err)
			return
		}
		if n > 0 {
			log.Printf("[SendWorker] sent=%d", n)
			return
		}
		// Every ~10 sweeps, print a summary so "nothing happening" is diagnosable.
		if sweepCount%10 == 0 {
			due, next := sweepStats()
			nextStr := ""
			if next.Valid {
				nextStr = next.Time.UTC().Format(time.RFC3339)
			}
			log.Printf("[SendWorker] sweep ok sent=0 due=%d next=%s", due, nextStr)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SendWorker] stopped err=%v", ctx.Err())
			return
		case <-ticker.C:
			run()
		}
	}
}
