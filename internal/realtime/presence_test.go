package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPresence(t *testing.T) (*PresenceTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewPresenceTracker(rdb, DefaultTypingTTL), mr
}

func TestTypingPresenceRoundTrip(t *testing.T) {
	tracker, _ := setupPresence(t)
	ctx := context.Background()

	require.NoError(t, tracker.SetTyping(ctx, "chn-1", "guest-1", true))
	require.NoError(t, tracker.SetTyping(ctx, "chn-1", "host-1", true))
	require.NoError(t, tracker.SetTyping(ctx, "chn-2", "guest-9", true))

	users, err := tracker.ActiveTypists(ctx, "chn-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"guest-1", "host-1"}, users)

	// explicit stop removes the indicator immediately
	require.NoError(t, tracker.SetTyping(ctx, "chn-1", "host-1", false))
	users, err = tracker.ActiveTypists(ctx, "chn-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"guest-1"}, users)
}

func TestTypingPresenceExpires(t *testing.T) {
	tracker, mr := setupPresence(t)
	ctx := context.Background()

	require.NoError(t, tracker.SetTyping(ctx, "chn-1", "guest-1", true))

	// no refresh within the TTL: the stuck indicator clears on its own
	mr.FastForward(DefaultTypingTTL + time.Second)

	users, err := tracker.ActiveTypists(ctx, "chn-1")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestNilTrackerIsInert(t *testing.T) {
	var tracker *PresenceTracker
	ctx := context.Background()

	assert.NoError(t, tracker.SetTyping(ctx, "chn-1", "guest-1", true))
	users, err := tracker.ActiveTypists(ctx, "chn-1")
	assert.NoError(t, err)
	assert.Empty(t, users)
}
