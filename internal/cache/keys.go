package cache

import (
	"fmt"
	"strconv"
)

// Namespace prefixes every cache key. The typed builders below are
// the only way to mint a key, so two components can't collide or
// drift apart on naming.
const Namespace = "steamdash"

// Key is a namespaced cache key. Only the builders in this file
// produce them.
type Key string

// OwnedGamesKey holds a player's full owned-games list
func OwnedGamesKey(steamID string) Key {
	return Key(fmt.Sprintf("%s:owned:%s", Namespace, steamID))
}

// GameDetailKey holds store metadata for one app. App details are
// identity-independent and shared across players.
func GameDetailKey(appID int64) Key {
	return Key(fmt.Sprintf("%s:detail:%s", Namespace, strconv.FormatInt(appID, 10)))
}

// AchievementsKey holds the merged achievement list for one player
// and game. This is the fast tier in front of the document store.
func AchievementsKey(steamID string, appID int64) Key {
	return Key(fmt.Sprintf("%s:ach:%s:%d", Namespace, steamID, appID))
}

// ProfileKey holds a player's profile summary
func ProfileKey(steamID string) Key {
	return Key(fmt.Sprintf("%s:profile:%s", Namespace, steamID))
}

// RecentGamesKey holds a player's recently-played list
func RecentGamesKey(steamID string) Key {
	return Key(fmt.Sprintf("%s:recent:%s", Namespace, steamID))
}
