package domain

// Achievement joins a player's unlock state with the game's schema
// entry for the same API name. APIName is unique within a game; the
// global identity of an achievement is (app id, api name).
type Achievement struct {
	APIName     string `json:"api_name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IconGray    string `json:"icon_gray,omitempty"`
	Achieved    bool   `json:"achieved"`
	UnlockTime  int64  `json:"unlock_time,omitempty"`
}

// Merge overlays the fields of next onto a previously cached
// achievement. New data wins, but fields the new response omitted keep
// their cached value so a degraded response never erases richer
// previously-known data.
func (cached Achievement) Merge(next Achievement) Achievement {
	out := cached
	out.Achieved = next.Achieved
	if next.UnlockTime != 0 {
		out.UnlockTime = next.UnlockTime
	}
	if next.DisplayName != "" {
		out.DisplayName = next.DisplayName
	}
	if next.Description != "" {
		out.Description = next.Description
	}
	if next.Icon != "" {
		out.Icon = next.Icon
	}
	if next.IconGray != "" {
		out.IconGray = next.IconGray
	}
	return out
}

// GameAchievements is the document-store record for one game's
// achievement list, keyed by app id.
type GameAchievements struct {
	AppID        int64         `json:"app_id"`
	Achievements []Achievement `json:"achievements"`
}

// UnlockedAchievement ties an achievement back to the game it belongs
// to, for the global recent-achievements feed.
type UnlockedAchievement struct {
	AppID       int64       `json:"app_id"`
	GameName    string      `json:"game_name,omitempty"`
	Achievement Achievement `json:"achievement"`
}
