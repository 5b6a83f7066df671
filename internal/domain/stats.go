package domain

// LibraryStats holds the aggregates computed over the entire owned
// library. Derived data: recomputed on every sync, never the source
// of truth.
type LibraryStats struct {
	TotalGames       int     `json:"total_games"`
	TotalPlaytimeHrs float64 `json:"total_playtime_hours"`
	GamesPlayed      int     `json:"games_played"`
	MostPlayed       *Game   `json:"most_played,omitempty"`
	MostRecent       *Game   `json:"most_recent,omitempty"`
}

// GenreCount is one slice of the genre-distribution chart.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// UnlockPatterns buckets achievement unlocks for the time-of-day and
// day-of-week charts. Hours is indexed 0-23, Weekdays 0-6 starting at
// Sunday, matching time.Weekday.
type UnlockPatterns struct {
	Hours    [24]int `json:"hours"`
	Weekdays [7]int  `json:"weekdays"`
}

// GameCompletion is the earned/total achievement ratio for one game.
type GameCompletion struct {
	AppID    int64   `json:"app_id"`
	Name     string  `json:"name,omitempty"`
	Earned   int     `json:"earned"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}
