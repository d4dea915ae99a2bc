package state

import "fmt"

// Key identifies a slot in the store. The vocabulary is closed; levels and
// collaborators address state only through these constants.
type Key int

const (
	KeyPlayerHealth Key = iota + 1
	KeyPlayerStatus
	KeyPlayerPosition
	KeyPlayerDied
	KeyEnemyDied
	KeyEnemySpawned
	KeySpawnEnemy
	KeySpawnCount
	KeyEnemyCount
	KeyKillCount
	KeyScreenTouch
	KeyCountdown
	KeyTimeRemaining
	KeyMessage
	KeyPhase
	KeyLevelReset
	KeyLevelComplete
	KeySceneTransition
)

// ProgressKey holds the player's accrued progress. It is the only key whose
// value is deep-copied by Snapshot and partially carried forward by Restore.
const ProgressKey = KeyPlayerStatus

type keyInfo struct {
	name string
	kind Kind
}

var keyTable = map[Key]keyInfo{
	KeyPlayerHealth:    {"player_health", KindFloat},
	KeyPlayerStatus:    {"player_status", KindProgress},
	KeyPlayerPosition:  {"player_position", KindPoint},
	KeyPlayerDied:      {"player_died", KindBool},
	KeyEnemyDied:       {"enemy_died", KindBool},
	KeyEnemySpawned:    {"enemy_spawned", KindBool},
	KeySpawnEnemy:      {"spawn_enemy", KindPayload},
	KeySpawnCount:      {"spawn_count", KindInt},
	KeyEnemyCount:      {"enemy_count", KindInt},
	KeyKillCount:       {"kill_count", KindInt},
	KeyScreenTouch:     {"screen_touch", KindPayload},
	KeyCountdown:       {"countdown", KindInt},
	KeyTimeRemaining:   {"time_remaining", KindDuration},
	KeyMessage:         {"message", KindPayload},
	KeyPhase:           {"phase", KindPayload},
	KeyLevelReset:      {"level_reset", KindBool},
	KeyLevelComplete:   {"level_complete", KindBool},
	KeySceneTransition: {"scene_transition", KindPayload},
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, len(keyTable))
	for k, info := range keyTable {
		m[info.name] = k
	}
	return m
}()

// String returns the wire name of the key.
func (k Key) String() string {
	if info, ok := keyTable[k]; ok {
		return info.name
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// Kind returns the conventional value kind for the key.
// Keys outside the vocabulary report KindInvalid.
func (k Key) Kind() Kind {
	return keyTable[k].kind
}

// Valid reports whether k is part of the vocabulary.
func (k Key) Valid() bool {
	_, ok := keyTable[k]
	return ok
}

// ParseKey resolves a wire name such as "spawn_count".
func ParseKey(name string) (Key, error) {
	if k, ok := keysByName[name]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown state key: %s", name)
}

// Keys lists the vocabulary in declaration order.
func Keys() []Key {
	out := make([]Key, 0, len(keyTable))
	for k := KeyPlayerHealth; k <= KeySceneTransition; k++ {
		out = append(out, k)
	}
	return out
}
