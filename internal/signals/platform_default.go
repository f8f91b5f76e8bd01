package signals

import (
	"context"

	"github.com/pressroomhq/social-scheduler/internal/grid"
	"github.com/pressroomhq/social-scheduler/internal/models"
)

// Hand-authored default curves per platform. These encode broad audience
// habits, not account-specific data, and are the floor every profile can fall
// back to. All curves leave hours 0-5 at zero, so they arrive already
// guardrail-masked.

// hourScores maps local hour to a 0-100 score; unlisted hours stay zero.
type hourScores map[int]float64

// weeklyCurve assembles a grid from a weekday curve (Mon-Fri) and a weekend
// curve (Sat/Sun).
func weeklyCurve(weekday, weekend hourScores) grid.Grid {
	g := grid.Empty()
	for d := 0; d < grid.Days; d++ {
		src := weekday
		if d == 0 || d == 6 {
			src = weekend
		}
		for h, v := range src {
			g[d][h] = v
		}
	}
	return g
}

// xCurve: commuter-shaped. Morning scroll, lunch, evening commute (the
// strongest hour), then prime time. Weekends start later and skip the
// commute spike.
func xCurve() grid.Grid {
	weekday := hourScores{
		7: 45, 8: 80, 9: 85,
		12: 90, 13: 85,
		17: 100, 18: 95,
		20: 85, 21: 90, 22: 70,
	}
	weekend := hourScores{
		9: 55, 10: 70, 11: 75,
		13: 65,
		19: 70, 20: 80, 21: 75,
	}
	return weeklyCurve(weekday, weekend)
}

// facebookCurve: morning, afternoon and evening blocks.
func facebookCurve() grid.Grid {
	weekday := hourScores{
		8: 70, 9: 85, 10: 75,
		13: 90, 14: 100, 15: 90,
		19: 90, 20: 95, 21: 75,
	}
	weekend := hourScores{
		10: 75, 11: 85, 12: 80,
		14: 85, 15: 80,
		19: 80, 20: 85,
	}
	return weeklyCurve(weekday, weekend)
}

// instagramCurve: lunch and evening peaks, softer mornings.
func instagramCurve() grid.Grid {
	weekday := hourScores{
		11: 70, 12: 95, 13: 90,
		17: 75, 18: 85,
		19: 100, 20: 95, 21: 80,
	}
	weekend := hourScores{
		11: 80, 12: 85, 13: 75,
		17: 70, 18: 75,
		19: 85, 20: 90, 21: 70,
	}
	return weeklyCurve(weekday, weekend)
}

// plateauCurve: a broad daytime plateau for platforms without a sharper
// published habit pattern.
func plateauCurve() grid.Grid {
	weekday := hourScores{
		8: 60, 9: 75, 10: 85, 11: 90, 12: 95, 13: 100, 14: 95, 15: 90,
		16: 85, 17: 85, 18: 80, 19: 75, 20: 70, 21: 60,
	}
	weekend := hourScores{
		9: 55, 10: 70, 11: 80, 12: 85, 13: 85, 14: 80, 15: 75,
		16: 70, 17: 65, 18: 65, 19: 60, 20: 55,
	}
	return weeklyCurve(weekday, weekend)
}

// DefaultCurve returns the platform's hand-authored curve. Unknown platforms
// get the plateau, the flattest assumption.
func DefaultCurve(p models.Platform) grid.Grid {
	switch p {
	case models.PlatformX:
		return xCurve()
	case models.PlatformFacebook:
		return facebookCurve()
	case models.PlatformInstagram:
		return instagramCurve()
	default:
		return plateauCurve()
	}
}

// PlatformDefault is the always-present fourth source.
type PlatformDefault struct{}

func (PlatformDefault) Name() string { return "platform-default" }

func (PlatformDefault) Fetch(ctx context.Context, account models.SocialAccount) (Result, error) {
	return Present(DefaultCurve(account.Platform)), nil
}
