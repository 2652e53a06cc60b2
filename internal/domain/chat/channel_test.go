package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChannel(now time.Time) *Channel {
	return NewChannel("chn-1", "bkg-1", "host-1", "guest-1", now)
}

func TestPostOrderingWithClockTies(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)

	// same wall-clock instant: sequence must break the tie
	for i := 0; i < 5; i++ {
		_, err := c.Post("guest-1", fmt.Sprintf("m%d", i), fmt.Sprintf("msg %d", i), now)
		require.NoError(t, err)
	}
	// clock steps backwards: timestamp must not regress
	msg, err := c.Post("host-1", "m5", "late clock", now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, now, msg.CreatedAt)

	var prevSeq int64
	for _, m := range c.Messages {
		assert.Greater(t, m.Seq, prevSeq)
		prevSeq = m.Seq
	}
}

func TestPostValidation(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)

	_, err := c.Post("stranger", "m1", "hello", now)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = c.Post("guest-1", "m2", "   ", now)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestPostGraceWindowBoundary(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)
	c.Close(now)

	// just inside the grace window
	_, err := c.Post("guest-1", "m1", "thanks anyway", now.Add(PostGracePeriod-time.Second))
	assert.NoError(t, err)

	// exactly at the boundary the window is over
	_, err = c.Post("guest-1", "m2", "too late", now.Add(PostGracePeriod))
	assert.ErrorIs(t, err, ErrChannelClosed)

	_, err = c.Post("guest-1", "m3", "way too late", now.Add(PostGracePeriod+time.Second))
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestSystemMessageIgnoresClosedState(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)
	c.Close(now)

	msg := c.PostSystem("m1", "Booking cancelled: plans changed", now.Add(48*time.Hour))
	assert.Equal(t, KindSystem, msg.Kind)
	assert.Equal(t, SystemSender, msg.SenderID)
}

func TestMarkReadOnlyFlipsCounterpartMessages(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)

	_, err := c.Post("host-1", "h1", "hi there", now)
	require.NoError(t, err)
	_, err = c.Post("host-1", "h2", "does 6pm work?", now.Add(time.Minute))
	require.NoError(t, err)
	_, err = c.Post("guest-1", "g1", "checking", now.Add(2*time.Minute))
	require.NoError(t, err)

	n, err := c.MarkRead("guest-1", now.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, m := range c.Messages {
		if m.SenderID == "host-1" {
			assert.True(t, m.Read)
		} else {
			assert.False(t, m.Read, "own messages must stay untouched")
		}
	}

	// idempotent
	n, err = c.MarkRead("guest-1", now.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = c.MarkRead("stranger", now)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestUnreadCountFor(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)

	for i := 0; i < 3; i++ {
		_, err := c.Post("host-1", fmt.Sprintf("h%d", i), "ping", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	_, err := c.Post("guest-1", "g1", "pong", now.Add(time.Minute))
	require.NoError(t, err)

	n, err := c.UnreadCountFor("guest-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = c.UnreadCountFor("host-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.MarkRead("guest-1", now.Add(2*time.Minute))
	require.NoError(t, err)
	n, _ = c.UnreadCountFor("guest-1")
	assert.Zero(t, n)
}

func TestMessagesAfter(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := testChannel(now)
	for i := 0; i < 10; i++ {
		_, err := c.Post("guest-1", fmt.Sprintf("g%d", i), fmt.Sprintf("msg %d", i), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	page := c.MessagesAfter(0, 4)
	require.Len(t, page, 4)
	assert.Equal(t, int64(1), page[0].Seq)

	page = c.MessagesAfter(page[len(page)-1].Seq, 4)
	require.Len(t, page, 4)
	assert.Equal(t, int64(5), page[0].Seq)

	page = c.MessagesAfter(8, 50)
	require.Len(t, page, 2)
}
