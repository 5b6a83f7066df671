package cache

import (
	"strings"
	"testing"
	"time"
)

func TestKeys_Namespaced(t *testing.T) {
	keys := []Key{
		OwnedGamesKey("76561197960287930"),
		GameDetailKey(620),
		AchievementsKey("76561197960287930", 620),
		ProfileKey("76561197960287930"),
		RecentGamesKey("76561197960287930"),
	}

	seen := make(map[Key]bool)
	for _, k := range keys {
		if !strings.HasPrefix(string(k), Namespace+":") {
			t.Fatalf("key %q is outside the namespace", k)
		}
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestKeys_ScopedByIdentityAndApp(t *testing.T) {
	if OwnedGamesKey("a") == OwnedGamesKey("b") {
		t.Fatal("owned-games keys must differ per identity")
	}
	if GameDetailKey(620) == GameDetailKey(630) {
		t.Fatal("detail keys must differ per app")
	}
	if AchievementsKey("a", 620) == AchievementsKey("b", 620) {
		t.Fatal("achievement keys must differ per identity")
	}
	if AchievementsKey("a", 620) == AchievementsKey("a", 630) {
		t.Fatal("achievement keys must differ per app")
	}
}

func TestFresh(t *testing.T) {
	now := time.Now()
	if !Fresh(now.Add(-time.Hour), 12*time.Hour) {
		t.Fatal("entry within TTL must be fresh")
	}
	if Fresh(now.Add(-13*time.Hour), 12*time.Hour) {
		t.Fatal("entry past TTL must be stale")
	}
	if Fresh(time.Time{}, 12*time.Hour) {
		t.Fatal("zero timestamp must never be fresh")
	}
}
