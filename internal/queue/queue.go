// Package queue owns the SocialPost lifecycle: pending → approved → sending →
// sent/failed, plus retry, edits, batch operations and the grouped queue
// view. Every transition is enforced with a conditional UPDATE so concurrent
// callers can never double-dispatch the same post.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/dispatch"
	"github.com/pressroomhq/social-scheduler/internal/metrics"
	"github.com/pressroomhq/social-scheduler/internal/models"
	"github.com/pressroomhq/social-scheduler/internal/store"
)

// ErrNotFound mirrors the store sentinel for callers that only import queue.
var ErrNotFound = store.ErrNotFound

// TransitionError rejects an operation on a post whose current status does
// not permit it. The post is left unchanged.
type TransitionError struct {
	PostID string
	Status models.PostStatus
	Op     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s post %s in status %q", e.Op, e.PostID, e.Status)
}

type Orchestrator struct {
	Store       *store.Store
	Dispatchers *dispatch.Registry
}

// checkTransition distinguishes "post missing" from "wrong status" after a
// conditional update matched no row.
func (o *Orchestrator) checkTransition(ctx context.Context, id, op string) error {
	current, err := o.Store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	return &TransitionError{PostID: id, Status: current.Status, Op: op}
}

// Approve moves a pending post to approved.
func (o *Orchestrator) Approve(ctx context.Context, id string) (*models.SocialPost, error) {
	post, err := o.Store.TransitionStatus(ctx, id, []models.PostStatus{models.StatusPending}, models.StatusApproved)
	if errors.Is(err, store.ErrNotFound) {
		return nil, o.checkTransition(ctx, id, "approve")
	}
	return post, err
}

// SendNow dispatches an approved post immediately. The post is moved to
// sending before the platform call so a second concurrent SendNow on the same
// id is rejected, and it lands sent or failed depending on the outcome. A
// dispatch failure stays on the post rather than being silently reverted.
func (o *Orchestrator) SendNow(ctx context.Context, id string) (*models.SocialPost, error) {
	claimed, err := o.Store.TransitionStatus(ctx, id, []models.PostStatus{models.StatusApproved}, models.StatusSending)
	if errors.Is(err, store.ErrNotFound) {
		return nil, o.checkTransition(ctx, id, "send")
	}
	if err != nil {
		return nil, err
	}

	account, err := o.Store.GetAccount(ctx, claimed.AccountID)
	if err != nil {
		return o.failDispatch(ctx, claimed, "unknown", fmt.Sprintf("account lookup failed: %v", err))
	}
	dispatcher, err := o.Dispatchers.For(account.Platform)
	if err != nil {
		return o.failDispatch(ctx, claimed, string(account.Platform), err.Error())
	}

	platformPostID, err := dispatcher.Send(ctx, *account, *claimed)
	if err != nil {
		log.Printf("[Queue] dispatch failed postId=%s platform=%s err=%v", id, account.Platform, err)
		return o.failDispatch(ctx, claimed, string(account.Platform), err.Error())
	}

	sent, err := o.Store.MarkSent(ctx, id, platformPostID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	metrics.RecordPostSent(string(account.Platform))
	log.Printf("[Queue] sent postId=%s platform=%s platformPostId=%s", id, account.Platform, platformPostID)
	return sent, nil
}

func (o *Orchestrator) failDispatch(ctx context.Context, post *models.SocialPost, platform, msg string) (*models.SocialPost, error) {
	failed, err := o.Store.MarkFailed(ctx, post.ID, msg)
	if err != nil {
		return nil, err
	}
	metrics.RecordPostFailed(platform)
	return failed, nil
}

// Retry re-queues a failed post as pending and clears its error. It does not
// re-attempt delivery itself: re-sending requires a fresh approval decision.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*models.SocialPost, error) {
	post, err := o.Store.RetryToPending(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, o.checkTransition(ctx, id, "retry")
	}
	return post, err
}

// Delete removes a post regardless of status.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	return o.Store.DeletePost(ctx, id)
}

// UpdateCaption edits a pending or approved post's caption without changing
// its status.
func (o *Orchestrator) UpdateCaption(ctx context.Context, id, caption string) (*models.SocialPost, error) {
	post, err := o.Store.UpdateCaption(ctx, id, caption)
	if errors.Is(err, store.ErrNotFound) {
		return nil, o.checkTransition(ctx, id, "edit caption of")
	}
	return post, err
}

// UpdateSchedule edits a pending or approved post's scheduled time without
// changing its status.
func (o *Orchestrator) UpdateSchedule(ctx context.Context, id string, scheduledAt time.Time) (*models.SocialPost, error) {
	post, err := o.Store.UpdateSchedule(ctx, id, scheduledAt)
	if errors.Is(err, store.ErrNotFound) {
		return nil, o.checkTransition(ctx, id, "reschedule")
	}
	return post, err
}

// ApproveBatch approves every pending id in the set and reports how many
// actually changed. Already-approved and unknown ids are skipped, not errors.
func (o *Orchestrator) ApproveBatch(ctx context.Context, ids []string) (int, error) {
	return o.Store.ApproveBatch(ctx, ids)
}

// DeleteBatch removes every listed post and reports how many were removed.
func (o *Orchestrator) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	return o.Store.DeleteBatch(ctx, ids)
}

// AccountGroup is one account's slice of the queue for presentation.
type AccountGroup struct {
	Account models.SocialAccount `json:"account"`
	Urgency models.PostStatus    `json:"urgency"`
	Posts   []models.SocialPost  `json:"posts"`
}

// urgencyRank orders statuses by how much operator attention they need.
func urgencyRank(s models.PostStatus) int {
	switch s {
	case models.StatusFailed:
		return 0
	case models.StatusPending:
		return 1
	case models.StatusApproved, models.StatusSending:
		return 2
	default: // sent
		return 3
	}
}

// GroupedByAccount groups every post by its account. Groups are ordered by
// the most severe status they contain, then by account name; posts within a
// group are ordered by scheduledAt descending.
func (o *Orchestrator) GroupedByAccount(ctx context.Context) ([]AccountGroup, error) {
	accounts, err := o.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := o.Store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string][]models.SocialPost)
	for _, p := range posts {
		byAccount[p.AccountID] = append(byAccount[p.AccountID], p)
	}

	groups := make([]AccountGroup, 0, len(accounts))
	for _, a := range accounts {
		ps := byAccount[a.ID]
		if len(ps) == 0 {
			continue
		}
		// ListPosts is already scheduled_at desc; keep that order.
		urgency := ps[0].Status
		for _, p := range ps[1:] {
			if urgencyRank(p.Status) < urgencyRank(urgency) {
				urgency = p.Status
			}
		}
		groups = append(groups, AccountGroup{Account: a, Urgency: urgency, Posts: ps})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := urgencyRank(groups[i].Urgency), urgencyRank(groups[j].Urgency)
		if ri != rj {
			return ri < rj
		}
		return groups[i].Account.Name < groups[j].Account.Name
	})
	return groups, nil
}
