package domain

import "time"

// SyncKind identifies which orchestrator path produced a sync.
type SyncKind string

const (
	SyncKindFreshLoad  SyncKind = "fresh_load"
	SyncKindLoadMore   SyncKind = "load_more"
	SyncKindFullResync SyncKind = "full_resync"
)

// SyncReport summarizes one completed sync pass.
type SyncReport struct {
	TaskID      string        `json:"task_id"`
	Kind        SyncKind      `json:"kind"`
	SteamID     string        `json:"steam_id"`
	FromCache   bool          `json:"from_cache"`
	GamesSynced int           `json:"games_synced"`
	Duration    time.Duration `json:"duration"`
}

// LibraryView is the displayed state exposed to API consumers: the
// resolved slice of the library plus whole-library aggregates.
type LibraryView struct {
	SteamID   string       `json:"steam_id"`
	Games     []Game       `json:"games"`
	Total     int          `json:"total"`
	Displayed int          `json:"displayed"`
	HasMore   bool         `json:"has_more"`
	Stats     LibraryStats `json:"stats"`
	Report    *SyncReport  `json:"report,omitempty"`
}
