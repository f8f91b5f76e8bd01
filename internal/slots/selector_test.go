package slots

import (
	"testing"
	"time"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/profile"
)

func profileWith(g grid.Grid) *profile.PostingProfile {
	return &profile.PostingProfile{AccountID: "a1", Grid: g}
}

func filledGrid(fill float64) grid.Grid {
	g := grid.Empty()
	for d := 0; d < grid.Days; d++ {
		for h := 0; h < grid.Hours; h++ {
			g[d][h] = fill
		}
	}
	return g
}

func TestTopSlots_ZeroScoreHoursNeverSelected(t *testing.T) {
	g := grid.Empty()
	g[1][15] = 100 // Monday 15:00 only
	now := time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC) // Monday 08:30

	slots := TopSlots(profileWith(g), now, time.UTC, 10)
	if len(slots) != 1 {
		t.Fatalf("expected exactly the one scored hour, got %d slots", len(slots))
	}
	if slots[0].Day != 1 || slots[0].Hour != 15 {
		t.Fatalf("unexpected slot bucket: day=%d hour=%d", slots[0].Day, slots[0].Hour)
	}
	if zero := TopSlots(profileWith(grid.Empty()), now, time.UTC, 10); len(zero) != 0 {
		t.Fatalf("an all-zero grid must yield no slots, got %d", len(zero))
	}
}

func TestTopSlots_ScoreDrivenSelectionChronologicalOrder(t *testing.T) {
	g := grid.Empty()
	for d := 0; d < grid.Days; d++ {
		g[d][10] = 50
		g[d][15] = 100
		g[d][20] = 80
	}
	now := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC) // Monday 08:00

	slots := TopSlots(profileWith(g), now, time.UTC, 3)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	// Top scores in the window are Mon 15:00 (100), Tue 15:00 (100) and
	// Mon 20:00 (80); the result comes back in time order.
	want := []time.Time{
		time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 6, 20, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 7, 15, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !slots[i].At.Equal(w) {
			t.Fatalf("slot %d: expected %s, got %s", i, w, slots[i].At)
		}
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].At.Before(slots[i].At) {
			t.Fatalf("slots out of chronological order at %d", i)
		}
	}
}

func TestTopSlots_DefaultCountAndNowExcluded(t *testing.T) {
	now := time.Date(2024, 5, 6, 8, 15, 0, 0, time.UTC)
	slots := TopSlots(profileWith(filledGrid(50)), now, time.UTC, 0)
	if len(slots) != DefaultCount {
		t.Fatalf("expected the default %d slots, got %d", DefaultCount, len(slots))
	}
	base := now.Truncate(time.Hour)
	for _, s := range slots {
		if !s.At.After(base) {
			t.Fatalf("slot %s is not strictly in the future of the current hour", s.At)
		}
	}
}

func TestTopSlots_DSTFallBackDeduplicatesByBucket(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 2024-11-03: clocks fall back at 02:00 EDT, so 01:00 local occurs twice.
	g := grid.Empty()
	g[0][1] = 80 // Sunday 01:00
	now := time.Date(2024, 11, 2, 20, 30, 0, 0, loc) // Saturday evening

	slots := TopSlots(profileWith(g), now, loc, 10)
	if len(slots) != 1 {
		t.Fatalf("expected the repeated local hour deduplicated to 1 slot, got %d", len(slots))
	}
	first := time.Date(2024, 11, 2, 20, 0, 0, 0, loc).Add(5 * time.Hour) // 01:00 EDT, the first pass
	if !slots[0].At.Equal(first) {
		t.Fatalf("expected the first occurrence %s, got %s", first, slots[0].At)
	}
}

func TestTopSlots_FractionalOffsetZoneLandsOnLocalHour(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata") // UTC+05:30
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2024, 5, 6, 10, 45, 0, 0, loc)

	slots := TopSlots(profileWith(filledGrid(50)), now, loc, 4)
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	for _, s := range slots {
		local := s.At.In(loc)
		if local.Minute() != 0 || local.Second() != 0 {
			t.Fatalf("slot %s is not on a local hour boundary", local)
		}
	}
	wantFirst := time.Date(2024, 5, 6, 11, 0, 0, 0, loc)
	if !slots[0].At.Equal(wantFirst) {
		t.Fatalf("expected first slot %s, got %s", wantFirst, slots[0].At)
	}
}
