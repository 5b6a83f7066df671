package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/steamdash/internal/domain"
)

func TestLibrary_PlaytimeAggregates(t *testing.T) {
	games := []domain.Game{
		{AppID: 10, PlaytimeForever: 120},
		{AppID: 20, PlaytimeForever: 0},
	}

	s := Library(games)

	if s.TotalGames != 2 {
		t.Fatalf("expected 2 total games, got %d", s.TotalGames)
	}
	if s.TotalPlaytimeHrs != 2.0 {
		t.Fatalf("expected 2 hours total playtime, got %v", s.TotalPlaytimeHrs)
	}
	if s.GamesPlayed != 1 {
		t.Fatalf("expected 1 game played, got %d", s.GamesPlayed)
	}
	if s.MostPlayed == nil || s.MostPlayed.AppID != 10 {
		t.Fatalf("expected app 10 as most played, got %+v", s.MostPlayed)
	}
}

func TestLibrary_Empty(t *testing.T) {
	s := Library(nil)
	if s.TotalGames != 0 || s.GamesPlayed != 0 || s.MostPlayed != nil {
		t.Fatalf("expected zero stats for empty library, got %+v", s)
	}
}

func TestLibrary_AllUnplayedHasNoMostPlayed(t *testing.T) {
	s := Library([]domain.Game{{AppID: 1}, {AppID: 2}})
	if s.MostPlayed != nil {
		t.Fatalf("expected no most-played for unplayed library, got %+v", s.MostPlayed)
	}
}

func TestMostRecentlyPlayed(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if g := MostRecentlyPlayed(nil, rng); g != nil {
		t.Fatalf("expected nil pick from empty list, got %+v", g)
	}

	recent := []domain.Game{{AppID: 1}, {AppID: 2}, {AppID: 3}}
	ids := map[int64]bool{1: true, 2: true, 3: true}
	for i := 0; i < 20; i++ {
		g := MostRecentlyPlayed(recent, rng)
		if g == nil || !ids[g.AppID] {
			t.Fatalf("pick %d not from recent list: %+v", i, g)
		}
	}
}

func TestGenreDistribution(t *testing.T) {
	games := []domain.Game{
		{AppID: 1, Genres: []domain.Genre{{ID: "1", Description: "Action"}, {ID: "23", Description: "Indie"}}},
		{AppID: 2, Genres: []domain.Genre{{ID: "1", Description: "Action"}}},
		{AppID: 3},
	}

	dist := GenreDistribution(games)

	if len(dist) != 2 {
		t.Fatalf("expected 2 genres, got %d", len(dist))
	}
	if dist[0].Genre != "Action" || dist[0].Count != 2 {
		t.Fatalf("expected Action=2 first, got %+v", dist[0])
	}
	if dist[1].Genre != "Indie" || dist[1].Count != 1 {
		t.Fatalf("expected Indie=1 second, got %+v", dist[1])
	}
}

func TestUnlockPatterns(t *testing.T) {
	unlock := time.Date(2023, 11, 14, 22, 13, 0, 0, time.Local) // a Tuesday
	games := []domain.Game{
		{AppID: 1, Achievements: []domain.Achievement{
			{APIName: "a1", Achieved: true, UnlockTime: unlock.Unix()},
			{APIName: "a2", Achieved: false},
			{APIName: "a3", Achieved: true}, // achieved but no timestamp
		}},
	}

	p := UnlockPatterns(games)

	if p.Hours[unlock.Hour()] != 1 {
		t.Fatalf("expected 1 unlock in hour %d, got %+v", unlock.Hour(), p.Hours)
	}
	if p.Weekdays[int(unlock.Weekday())] != 1 {
		t.Fatalf("expected 1 unlock on weekday %d, got %+v", unlock.Weekday(), p.Weekdays)
	}

	var total int
	for _, n := range p.Hours {
		total += n
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 bucketed unlock, got %d", total)
	}
}

func TestCompletion(t *testing.T) {
	games := []domain.Game{
		{AppID: 1, Name: "Half Done", Achievements: []domain.Achievement{
			{APIName: "a", Achieved: true},
			{APIName: "b", Achieved: false},
			{APIName: "c", Achieved: true},
			{APIName: "d", Achieved: false},
		}},
		{AppID: 2, Name: "No Achievements"},
	}

	ratios := Completion(games)

	if len(ratios) != 1 {
		t.Fatalf("expected 1 completion entry, got %d", len(ratios))
	}
	c := ratios[0]
	if c.AppID != 1 || c.Earned != 2 || c.Total != 4 || c.Fraction != 0.5 {
		t.Fatalf("unexpected completion: %+v", c)
	}
}

func TestRecentAchievements(t *testing.T) {
	games := []domain.Game{
		{AppID: 1, Name: "One", Achievements: []domain.Achievement{
			{APIName: "old", Achieved: true, UnlockTime: 1600000000},
			{APIName: "locked", Achieved: false},
		}},
		{AppID: 2, Name: "Two", Achievements: []domain.Achievement{
			{APIName: "new", Achieved: true, UnlockTime: 1700000000},
			{APIName: "mid", Achieved: true, UnlockTime: 1650000000},
		}},
	}

	feed := RecentAchievements(games, 2)

	if len(feed) != 2 {
		t.Fatalf("expected feed of 2, got %d", len(feed))
	}
	if feed[0].Achievement.APIName != "new" || feed[0].AppID != 2 {
		t.Fatalf("expected newest first, got %+v", feed[0])
	}
	if feed[1].Achievement.APIName != "mid" {
		t.Fatalf("expected mid second, got %+v", feed[1])
	}
}
