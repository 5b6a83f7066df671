// Package stats computes the derived aggregates behind the dashboard
// charts. Everything here is pure: no I/O, recomputed whenever the
// underlying games or achievements change, never persisted as source
// of truth.
package stats

import (
	"math/rand"
	"sort"
	"time"

	"github.com/steamdash/internal/domain"
)

// Library computes the whole-library aggregates over the full
// owned-games list.
func Library(games []domain.Game) domain.LibraryStats {
	s := domain.LibraryStats{TotalGames: len(games)}

	var totalMinutes int64
	var mostPlayed *domain.Game
	for i := range games {
		g := &games[i]
		totalMinutes += g.PlaytimeForever
		if g.PlaytimeForever > 0 {
			s.GamesPlayed++
		}
		if mostPlayed == nil || g.PlaytimeForever > mostPlayed.PlaytimeForever {
			mostPlayed = g
		}
	}

	s.TotalPlaytimeHrs = float64(totalMinutes) / 60.0
	if mostPlayed != nil && mostPlayed.PlaytimeForever > 0 {
		mp := *mostPlayed
		s.MostPlayed = &mp
	}
	return s
}

// MostRecentlyPlayed picks a random game from the recently-played
// list. The random choice is intentional display variety, not a bug.
func MostRecentlyPlayed(recent []domain.Game, rng *rand.Rand) *domain.Game {
	if len(recent) == 0 {
		return nil
	}
	g := recent[rng.Intn(len(recent))]
	return &g
}

// GenreDistribution counts games per genre across the resolved
// library, most common first.
func GenreDistribution(games []domain.Game) []domain.GenreCount {
	counts := make(map[string]int)
	for _, g := range games {
		for _, genre := range g.Genres {
			counts[genre.Description]++
		}
	}

	out := make([]domain.GenreCount, 0, len(counts))
	for genre, count := range counts {
		out = append(out, domain.GenreCount{Genre: genre, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	return out
}

// UnlockPatterns buckets achieved achievements by local hour-of-day
// and day-of-week of their unlock timestamps.
func UnlockPatterns(games []domain.Game) domain.UnlockPatterns {
	var p domain.UnlockPatterns
	for _, g := range games {
		for _, a := range g.Achievements {
			if !a.Achieved || a.UnlockTime == 0 {
				continue
			}
			t := time.Unix(a.UnlockTime, 0)
			p.Hours[t.Hour()]++
			p.Weekdays[int(t.Weekday())]++
		}
	}
	return p
}

// Completion computes per-game earned/total achievement ratios. Games
// without achievements are skipped.
func Completion(games []domain.Game) []domain.GameCompletion {
	var out []domain.GameCompletion
	for _, g := range games {
		if len(g.Achievements) == 0 {
			continue
		}
		c := domain.GameCompletion{
			AppID: g.AppID,
			Name:  g.Name,
			Total: len(g.Achievements),
		}
		for _, a := range g.Achievements {
			if a.Achieved {
				c.Earned++
			}
		}
		c.Fraction = float64(c.Earned) / float64(c.Total)
		out = append(out, c)
	}
	return out
}

// RecentAchievements returns the top n achieved achievements across
// the library, newest unlock first.
func RecentAchievements(games []domain.Game, n int) []domain.UnlockedAchievement {
	var all []domain.UnlockedAchievement
	for _, g := range games {
		for _, a := range g.Achievements {
			if !a.Achieved {
				continue
			}
			all = append(all, domain.UnlockedAchievement{
				AppID:       g.AppID,
				GameName:    g.Name,
				Achievement: a,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Achievement.UnlockTime > all[j].Achievement.UnlockTime
	})

	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
