package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
)

// Fetcher issues rate-limited HTTP requests. Satisfied by
// *gateway.Gateway.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client is a typed client for the Steam Web API and the store
// appdetails API. The server-held API key is attached to every call;
// it never reaches API consumers.
type Client struct {
	fetcher Fetcher
	apiBase string
	store   string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a new Steam API client
func NewClient(cfg *config.SteamConfig, fetcher Fetcher, logger *slog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		apiBase: cfg.APIBaseURL,
		store:   cfg.StoreAPIURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// OwnedGame is one entry of the owned-games response
type OwnedGame struct {
	AppID           int64 `json:"appid"`
	PlaytimeForever int64 `json:"playtime_forever"`
	Playtime2Weeks  int64 `json:"playtime_2weeks,omitempty"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []OwnedGame `json:"games"`
	} `json:"response"`
}

// GetOwnedGames returns the full owned-games list for a player
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]domain.Game, error) {
	u := c.apiURL("/IPlayerService/GetOwnedGames/v1/", url.Values{
		"steamid":                   {steamID},
		"include_played_free_games": {"1"},
	})

	var out ownedGamesResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting owned games: %w", err)
	}

	games := make([]domain.Game, len(out.Response.Games))
	for i, g := range out.Response.Games {
		games[i] = domain.Game{
			AppID:           g.AppID,
			PlaytimeForever: g.PlaytimeForever,
			Playtime2Weeks:  g.Playtime2Weeks,
		}
	}
	return games, nil
}

// GetRecentlyPlayedGames returns the recently-played list for a player
func (c *Client) GetRecentlyPlayedGames(ctx context.Context, steamID string) ([]domain.Game, error) {
	u := c.apiURL("/IPlayerService/GetRecentlyPlayedGames/v1/", url.Values{
		"steamid": {steamID},
	})

	var out ownedGamesResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting recently played games: %w", err)
	}

	games := make([]domain.Game, len(out.Response.Games))
	for i, g := range out.Response.Games {
		games[i] = domain.Game{
			AppID:           g.AppID,
			PlaytimeForever: g.PlaytimeForever,
			Playtime2Weeks:  g.Playtime2Weeks,
		}
	}
	return games, nil
}

type appDetailsEntry struct {
	Success bool `json:"success"`
	Data    struct {
		Name        string         `json:"name"`
		HeaderImage string         `json:"header_image"`
		Genres      []domain.Genre `json:"genres,omitempty"`
		Developers  []string       `json:"developers,omitempty"`
	} `json:"data"`
}

// GetAppDetails returns store metadata for a single app. The store API
// only supports single-id queries; the response is a map keyed by the
// requested id with a per-entry success flag.
func (c *Client) GetAppDetails(ctx context.Context, appID int64) (*domain.GameDetail, error) {
	id := strconv.FormatInt(appID, 10)
	u := fmt.Sprintf("%s/appdetails?appids=%s", c.store, id)

	var out map[string]appDetailsEntry
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting app details: %w", err)
	}

	entry, ok := out[id]
	if !ok || !entry.Success {
		return nil, fmt.Errorf("app %d: %w", appID, domain.ErrRemoteFailure)
	}

	return &domain.GameDetail{
		AppID:       appID,
		Name:        entry.Data.Name,
		HeaderImage: entry.Data.HeaderImage,
		Genres:      entry.Data.Genres,
		Developers:  entry.Data.Developers,
	}, nil
}

// PlayerAchievement is one entry of the unlock-state response
type PlayerAchievement struct {
	APIName    string `json:"apiname"`
	Achieved   int    `json:"achieved"`
	UnlockTime int64  `json:"unlocktime"`
}

type playerAchievementsResponse struct {
	PlayerStats struct {
		Achievements []PlayerAchievement `json:"achievements"`
	} `json:"playerstats"`
}

// GetPlayerAchievements returns the player's unlock state for one game
func (c *Client) GetPlayerAchievements(ctx context.Context, steamID string, appID int64) ([]PlayerAchievement, error) {
	u := c.apiURL("/ISteamUserStats/GetPlayerAchievements/v1/", url.Values{
		"steamid": {steamID},
		"appid":   {strconv.FormatInt(appID, 10)},
	})

	var out playerAchievementsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting player achievements: %w", err)
	}
	return out.PlayerStats.Achievements, nil
}

// SchemaAchievement is one entry of the achievement-schema response
type SchemaAchievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconGray    string `json:"icongray"`
}

type schemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats struct {
			Achievements []SchemaAchievement `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// GetSchemaForGame returns the achievement schema for one game
func (c *Client) GetSchemaForGame(ctx context.Context, appID int64) ([]SchemaAchievement, error) {
	u := c.apiURL("/ISteamUserStats/GetSchemaForGame/v2/", url.Values{
		"appid": {strconv.FormatInt(appID, 10)},
	})

	var out schemaResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting game schema: %w", err)
	}
	return out.Game.AvailableGameStats.Achievements, nil
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
			ProfileURL  string `json:"profileurl"`
			AvatarFull  string `json:"avatarfull"`
		} `json:"players"`
	} `json:"response"`
}

// GetPlayerSummary returns the profile summary for a player
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*domain.Profile, error) {
	u := c.apiURL("/ISteamUser/GetPlayerSummaries/v2/", url.Values{
		"steamids": {steamID},
	})

	var out playerSummariesResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("getting player summary: %w", err)
	}

	if len(out.Response.Players) == 0 {
		return nil, domain.ErrNotFound
	}

	p := out.Response.Players[0]
	return &domain.Profile{
		SteamID:     p.SteamID,
		PersonaName: p.PersonaName,
		ProfileURL:  p.ProfileURL,
		AvatarURL:   p.AvatarFull,
	}, nil
}

func (c *Client) apiURL(path string, params url.Values) string {
	params.Set("key", c.apiKey)
	params.Set("format", "json")
	return c.apiBase + path + "?" + params.Encode()
}

func (c *Client) getJSON(ctx context.Context, url string, dest any) error {
	resp, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrRemoteFailure)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
