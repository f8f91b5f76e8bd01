package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"

	"github.com/pressroomhq/social-scheduler/internal/alerts"
	"github.com/pressroomhq/social-scheduler/internal/dispatch"
	"github.com/pressroomhq/social-scheduler/internal/guard"
	"github.com/pressroomhq/social-scheduler/internal/models"
	"github.com/pressroomhq/social-scheduler/internal/profile"
	"github.com/pressroomhq/social-scheduler/internal/queue"
	"github.com/pressroomhq/social-scheduler/internal/signals"
	"github.com/pressroomhq/social-scheduler/internal/store"
)

// absentSource satisfies signals.Source and never contributes data, so the
// calculator degrades to the platform-default curve without touching the db.
type absentSource struct{ name string }

func (s absentSource) Name() string { return s.name }

func (s absentSource) Fetch(ctx context.Context, account models.SocialAccount) (signals.Result, error) {
	return signals.Absent(), nil
}

func newTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db)
	q := &queue.Orchestrator{
		Store:       st,
		Dispatchers: dispatch.NewRegistry(guard.NewRegistry(alerts.LogSink{})),
	}
	calc := &profile.Calculator{
		Accounts:   st,
		Own:        absentSource{"own-performance"},
		Analytics:  absentSource{"site-analytics"},
		Competitor: absentSource{"competitor"},
		Loc:        time.UTC,
	}
	r := mux.NewRouter()
	RegisterRoutes(New(st, q, calc, time.UTC), r)
	return r, mock
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func mockAccountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "platform", "name", "publish_target", "access_token_enc", "created_at", "updated_at",
	})
}

func mockPostRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "account_id", "article_id", "caption", "image_url", "scheduled_at", "status",
		"platform_post_id", "error_message",
		"likes", "shares", "replies", "views", "impressions", "engagement_fetched_at",
		"sent_at", "created_at", "updated_at",
	})
}

func addMockPost(rows *sqlmock.Rows, id string, status models.PostStatus) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "a1", nil, "caption", nil, now, string(status),
		nil, nil, 0, 0, 0, 0, 0, nil, nil, now, now)
}

func TestHealthRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := doJSON(t, r, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCreatePost_ValidationErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doJSON(t, r, http.MethodPost, "/api/posts", map[string]any{
		"accountId": "a1", "scheduledAt": time.Now(),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing caption: expected 400, got %d", rr.Code)
	}

	rr = doJSON(t, r, http.MethodPost, "/api/posts", map[string]any{
		"accountId": "a1", "caption": "hello",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing scheduledAt: expected 400, got %d", rr.Code)
	}
}

func TestCreatePost_UnknownAccount(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM public\.social_accounts`).
		WithArgs("ghost").
		WillReturnRows(mockAccountRows())

	rr := doJSON(t, r, http.MethodPost, "/api/posts", map[string]any{
		"accountId": "ghost", "caption": "hello", "scheduledAt": time.Now(),
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreatePost_HappyPath(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM public\.social_accounts`).
		WithArgs("a1").
		WillReturnRows(mockAccountRows().AddRow("a1", "x", "Newsroom X", nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery(`INSERT INTO public\.social_posts`).
		WithArgs(sqlmock.AnyArg(), "a1", nil, "hello", nil, sqlmock.AnyArg(), models.StatusPending).
		WillReturnRows(addMockPost(mockPostRows(), "p1", models.StatusPending))

	rr := doJSON(t, r, http.MethodPost, "/api/posts", map[string]any{
		"accountId": "a1", "caption": "hello", "scheduledAt": time.Now().Add(time.Hour),
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var post models.SocialPost
	if err := json.Unmarshal(rr.Body.Bytes(), &post); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if post.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", post.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestApprovePost_ConflictOnWrongStatus(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`UPDATE public\.social_posts`).
		WithArgs("p1", models.StatusApproved, sqlmock.AnyArg()).
		WillReturnRows(mockPostRows())
	mock.ExpectQuery(`FROM public\.social_posts`).
		WithArgs("p1").
		WillReturnRows(addMockPost(mockPostRows(), "p1", models.StatusSent))

	rr := doJSON(t, r, http.MethodPost, "/api/posts/p1/approve", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestSendPost_NotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`UPDATE public\.social_posts`).
		WithArgs("nope", models.StatusSending, sqlmock.AnyArg()).
		WillReturnRows(mockPostRows())
	mock.ExpectQuery(`FROM public\.social_posts`).
		WithArgs("nope").
		WillReturnRows(mockPostRows())

	rr := doJSON(t, r, http.MethodPost, "/api/posts/nope/send", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestBatchApprove_ReportsChangedCount(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectExec(`SET status = 'approved'`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rr := doJSON(t, r, http.MethodPost, "/api/posts/batch/approve", map[string]any{
		"ids": []string{"p1", "p2", "ghost"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["approved"] != 2 {
		t.Fatalf("expected 2 approved, got %d", out["approved"])
	}
}

func TestGetProfile_DegradesWithoutData(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM public\.social_accounts`).
		WithArgs("a1").
		WillReturnRows(mockAccountRows().AddRow("a1", "facebook", "Newsroom FB", nil, nil, time.Now(), time.Now()))

	rr := doJSON(t, r, http.MethodGet, "/api/accounts/a1/profile", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var p profile.PostingProfile
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if p.DataPoints != 0 || p.Platform != models.PlatformFacebook {
		t.Fatalf("unexpected profile: dataPoints=%d platform=%s", p.DataPoints, p.Platform)
	}
}

func TestGetSlots_ChronologicalWithCount(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM public\.social_accounts`).
		WithArgs("a1").
		WillReturnRows(mockAccountRows().AddRow("a1", "facebook", "Newsroom FB", nil, nil, time.Now(), time.Now()))

	rr := doJSON(t, r, http.MethodGet, "/api/accounts/a1/slots?count=3", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out []struct {
		At    time.Time `json:"at"`
		Score float64   `json:"score"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if !out[i-1].At.Before(out[i].At) {
			t.Fatalf("slots out of chronological order")
		}
	}
}

func TestSuggestPosts_CreatesPendingAtTopSlots(t *testing.T) {
	r, mock := newTestRouter(t)

	// Account is checked by the handler, then re-read by the calculator.
	accRow := func() *sqlmock.Rows {
		return mockAccountRows().AddRow("a1", "facebook", "Newsroom FB", nil, nil, time.Now(), time.Now())
	}
	mock.ExpectQuery(`FROM public\.social_accounts`).WithArgs("a1").WillReturnRows(accRow())
	mock.ExpectQuery(`FROM public\.social_accounts`).WithArgs("a1").WillReturnRows(accRow())
	mock.ExpectQuery(`INSERT INTO public\.social_posts`).
		WithArgs(sqlmock.AnyArg(), "a1", nil, "Big story", nil, sqlmock.AnyArg(), models.StatusPending).
		WillReturnRows(addMockPost(mockPostRows(), "s1", models.StatusPending))
	mock.ExpectQuery(`INSERT INTO public\.social_posts`).
		WithArgs(sqlmock.AnyArg(), "a1", nil, "Big story", nil, sqlmock.AnyArg(), models.StatusPending).
		WillReturnRows(addMockPost(mockPostRows(), "s2", models.StatusPending))

	rr := doJSON(t, r, http.MethodPost, "/api/accounts/a1/posts/suggest", map[string]any{
		"caption": "Big story", "count": 2,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var created []models.SocialPost
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 suggested posts, got %d", len(created))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
