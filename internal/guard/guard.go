// Package guard remembers whether the weekly banner was already shown today.
package guard

import (
	"context"
	"errors"

	"holidayd/internal/clock"
	appLog "holidayd/internal/log"
	"holidayd/internal/model"
	"holidayd/internal/store"
)

// KeyPrefix namespaces the per-day flags in the store.
const KeyPrefix = "holiday_shown_"

// Guard is a per-day shown flag over a KeyValueStore.
//
// Storage failures never propagate: a failed read counts as "not yet
// shown" and a failed write is logged and dropped.
type Guard struct {
	kv    store.KeyValueStore
	clock clock.Clock
}

func New(kv store.KeyValueStore, c clock.Clock) *Guard {
	return &Guard{kv: kv, clock: c}
}

// TodayKey is the store key for the clock's current calendar day.
func (g *Guard) TodayKey() string {
	return KeyPrefix + g.clock.Now().Format(model.DateLayout)
}

func (g *Guard) HasShownToday(ctx context.Context) bool {
	key := g.TodayKey()
	v, err := g.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			appLog.Error("guard read failed; assuming not shown", err, "key", key)
		}
		return false
	}
	return v == "true"
}

func (g *Guard) MarkShownToday(ctx context.Context) {
	key := g.TodayKey()
	if err := g.kv.Set(ctx, key, "true"); err != nil {
		appLog.Error("guard write failed", err, "key", key)
	}
}

// Sweep deletes every shown flag except today's and returns how many were
// removed.
func (g *Guard) Sweep(ctx context.Context) int {
	keys, err := g.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		appLog.Error("guard sweep list failed", err)
		return 0
	}

	today := g.TodayKey()
	stale := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != today {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	if err := g.kv.Delete(ctx, stale...); err != nil {
		appLog.Error("guard sweep delete failed", err, "count", len(stale))
		return 0
	}
	appLog.Info("guard sweep completed", "removed", len(stale), "kept", today)
	return len(stale)
}
