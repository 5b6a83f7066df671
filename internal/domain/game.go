package domain

import "fmt"

// Genre is a single genre tag attached to a game by the store catalog.
type Genre struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Game represents one entry in a player's library. Only AppID and the
// playtime counters are known after the owned-games call; everything
// else is filled in by the detail resolver and achievement syncer.
type Game struct {
	AppID           int64         `json:"app_id"`
	Name            string        `json:"name,omitempty"`
	HeaderImage     string        `json:"header_image,omitempty"`
	Genres          []Genre       `json:"genres,omitempty"`
	Developers      []string      `json:"developers,omitempty"`
	PlaytimeForever int64         `json:"playtime_forever"`
	Playtime2Weeks  int64         `json:"playtime_2weeks,omitempty"`
	Achievements    []Achievement `json:"achievements,omitempty"`
}

// PlaceholderName is the display name used when a game's store detail
// lookup fails or the store reports success=false for the app.
func PlaceholderName(appID int64) string {
	return fmt.Sprintf("Game ID: %d", appID)
}

// GameDetail is the cacheable slice of store metadata for one app.
type GameDetail struct {
	AppID       int64    `json:"app_id"`
	Name        string   `json:"name"`
	HeaderImage string   `json:"header_image"`
	Genres      []Genre  `json:"genres,omitempty"`
	Developers  []string `json:"developers,omitempty"`
}

// ApplyTo copies the resolved detail fields onto a library game.
func (d *GameDetail) ApplyTo(g *Game) {
	g.Name = d.Name
	g.HeaderImage = d.HeaderImage
	if len(d.Genres) > 0 {
		g.Genres = d.Genres
	}
	if len(d.Developers) > 0 {
		g.Developers = d.Developers
	}
}

// Profile is the public player summary returned by the platform.
type Profile struct {
	SteamID     string `json:"steam_id"`
	PersonaName string `json:"persona_name"`
	ProfileURL  string `json:"profile_url"`
	AvatarURL   string `json:"avatar_url"`
}
