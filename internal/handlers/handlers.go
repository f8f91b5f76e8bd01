package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/models"
	"github.com/pressroomhq/social-scheduler/internal/profile"
	"github.com/pressroomhq/social-scheduler/internal/queue"
	"github.com/pressroomhq/social-scheduler/internal/slots"
	"github.com/pressroomhq/social-scheduler/internal/store"
)

// Handler wires the HTTP surface to the scheduling engine.
type Handler struct {
	store *store.Store
	queue *queue.Orchestrator
	calc  *profile.Calculator
	loc   *time.Location
}

func New(st *store.Store, q *queue.Orchestrator, calc *profile.Calculator, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{store: st, queue: q, calc: calc, loc: loc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// writeQueueError maps engine errors onto HTTP statuses: missing rows are
// 404, rejected transitions are 409, everything else is a 500.
func writeQueueError(w http.ResponseWriter, err error) {
	var te *queue.TransitionError
	switch {
	case errors.As(err, &te):
		writeError(w, http.StatusConflict, te.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetQueue returns every account's posts grouped and ordered for the queue
// screen: most urgent groups first, newest-scheduled posts first inside each.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	groups, err := h.queue.GroupedByAccount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

type createPostRequest struct {
	ID          *string    `json:"id,omitempty"`
	AccountID   string     `json:"accountId"`
	ArticleID   *string    `json:"articleId,omitempty"`
	Caption     string     `json:"caption"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// CreatePost creates a pending post for an account.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.AccountID) == "" {
		writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}
	if strings.TrimSpace(req.Caption) == "" {
		writeError(w, http.StatusBadRequest, "caption is required")
		return
	}
	if req.ScheduledAt == nil {
		writeError(w, http.StatusBadRequest, "scheduledAt is required")
		return
	}
	if _, err := h.store.GetAccount(r.Context(), req.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := ""
	if req.ID != nil {
		id = strings.TrimSpace(*req.ID)
	}
	if id == "" {
		id = randHex(16)
	}

	post, err := h.store.CreatePost(r.Context(), &models.SocialPost{
		ID:          id,
		AccountID:   req.AccountID,
		ArticleID:   req.ArticleID,
		Caption:     req.Caption,
		ImageURL:    req.ImageURL,
		ScheduledAt: *req.ScheduledAt,
		Status:      models.StatusPending,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ApprovePost clears a pending post to send at its scheduled time.
func (h *Handler) ApprovePost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	post, err := h.queue.Approve(r.Context(), id)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// SendPost dispatches an approved post immediately.
func (h *Handler) SendPost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	post, err := h.queue.SendNow(r.Context(), id)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// RetryPost re-queues a failed post as pending.
func (h *Handler) RetryPost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	post, err := h.queue.Retry(r.Context(), id)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost removes a post regardless of status. Destructive; the UI asks
// for confirmation before calling it.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.queue.Delete(r.Context(), id); err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type updateCaptionRequest struct {
	Caption string `json:"caption"`
}

// UpdateCaption edits the caption of a pending or approved post.
func (h *Handler) UpdateCaption(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	var req updateCaptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Caption) == "" {
		writeError(w, http.StatusBadRequest, "caption is required")
		return
	}
	post, err := h.queue.UpdateCaption(r.Context(), id, req.Caption)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type updateScheduleRequest struct {
	ScheduledAt *time.Time `json:"scheduledAt"`
}

// UpdateSchedule edits the scheduled time of a pending or approved post.
// Operators may set any instant here, including guardrail hours: the
// guardrail binds the automated suggestion path, not manual overrides.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(pathVar(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	var req updateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ScheduledAt == nil {
		writeError(w, http.StatusBadRequest, "scheduledAt is required")
		return
	}
	post, err := h.queue.UpdateSchedule(r.Context(), id, *req.ScheduledAt)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// BatchApprove approves every pending id in the set; unknown or
// already-approved ids are skipped, and the response reports how many posts
// actually changed.
func (h *Handler) BatchApprove(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	changed, err := h.queue.ApproveBatch(r.Context(), req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"approved": changed})
}

// BatchDelete removes every listed post and reports how many were removed.
func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	deleted, err := h.queue.DeleteBatch(r.Context(), req.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// GetProfile recomputes and returns the account's posting profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(pathVar(r, "id"))
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	writeJSON(w, http.StatusOK, h.calc.Calculate(r.Context(), accountID))
}

// GetSlots returns the account's top future posting slots in the order they
// will occur.
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(pathVar(r, "id"))
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	count := parseCount(r, slots.DefaultCount)

	p := h.calc.Calculate(r.Context(), accountID)
	writeJSON(w, http.StatusOK, slots.TopSlots(p, time.Now(), h.loc, count))
}

type suggestRequest struct {
	Caption   string  `json:"caption"`
	ArticleID *string `json:"articleId,omitempty"`
	ImageURL  *string `json:"imageUrl,omitempty"`
	Count     int     `json:"count"`
}

// SuggestPosts creates pending posts at the account's top slots, one per
// slot, carrying the given caption. This is the automated scheduling path:
// an editor reviews and approves them from the queue like any other post.
func (h *Handler) SuggestPosts(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(pathVar(r, "id"))
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Caption) == "" {
		writeError(w, http.StatusBadRequest, "caption is required")
		return
	}
	if _, err := h.store.GetAccount(r.Context(), accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}

	p := h.calc.Calculate(r.Context(), accountID)
	top := slots.TopSlots(p, time.Now(), h.loc, count)
	if len(top) == 0 {
		writeError(w, http.StatusConflict, "no usable slots in the next 48 hours")
		return
	}

	created := make([]models.SocialPost, 0, len(top))
	for _, s := range top {
		post, err := h.store.CreatePost(r.Context(), &models.SocialPost{
			ID:          randHex(16),
			AccountID:   accountID,
			ArticleID:   req.ArticleID,
			Caption:     req.Caption,
			ImageURL:    req.ImageURL,
			ScheduledAt: s.At,
			Status:      models.StatusPending,
		})
		if err != nil {
			// Keep going; a failure on one slot must not lose the others.
			log.Printf("[Suggest] create failed accountId=%s slot=%s err=%v", accountID, s.At.Format(time.RFC3339), err)
			continue
		}
		created = append(created, *post)
	}
	if len(created) == 0 {
		writeError(w, http.StatusInternalServerError, "failed to create suggested posts")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// parseCount parses the ?count query param with a sane default and cap.
func parseCount(r *http.Request, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("count"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > 48 {
		return 48
	}
	return n
}
