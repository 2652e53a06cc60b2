package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainchat "datecraft/internal/domain/chat"
	"datecraft/internal/domain/shared/events"
	"datecraft/internal/infra/storage/memory"
	"datecraft/internal/realtime"
)

type recordingSink struct {
	events []events.DomainEvent
}

func (s *recordingSink) Dispatch(ctx context.Context, evs ...events.DomainEvent) {
	s.events = append(s.events, evs...)
}

type fixture struct {
	svc  *Service
	sink *recordingSink
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sink: &recordingSink{},
		now:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	channels := memory.NewChannelRepository()
	require.NoError(t, channels.Create(context.Background(),
		domainchat.NewChannel("ch-1", "bkg-1", "host-1", "guest-1", f.now)))
	f.svc = &Service{
		Channels: channels,
		Hub:      realtime.NewHub(),
		Events:   f.sink,
		Now:      func() time.Time { return f.now },
	}
	return f
}

func TestPostDeliversToSubscribersInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	defer sub.Cancel()

	first, err := f.svc.Post(ctx, "ch-1", "guest-1", "hi, is Saturday still on?")
	require.NoError(t, err)
	second, err := f.svc.Post(ctx, "ch-1", "host-1", "yes, see you at noon")
	require.NoError(t, err)
	assert.Less(t, first.Seq, second.Seq)

	ev := <-sub.C
	assert.Equal(t, realtime.KindMessagePosted, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, first.ID, ev.Message.ID)
	ev = <-sub.C
	assert.Equal(t, second.ID, ev.Message.ID)

	// the message event carries the counterpart as recipient
	require.Len(t, f.sink.events, 2)
	posted, ok := f.sink.events[0].(domainchat.MessagePosted)
	require.True(t, ok)
	assert.Equal(t, "host-1", posted.RecipientID)
	assert.Equal(t, "bkg-1", posted.BookingID)
}

func TestPostValidations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, "ch-1", "stranger", "hello")
	assert.ErrorIs(t, err, domainchat.ErrNotParticipant)

	_, err = f.svc.Post(ctx, "ch-1", "guest-1", "   ")
	assert.ErrorIs(t, err, domainchat.ErrEmptyContent)

	_, err = f.svc.Post(ctx, "ch-missing", "guest-1", "hello")
	assert.ErrorIs(t, err, domainchat.ErrChannelNotFound)
}

func TestMarkReadEmitsReceiptOnlyWhenSomethingChanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Post(ctx, "ch-1", "guest-1", "ping")
	require.NoError(t, err)

	sub, err := f.svc.Subscribe(ctx, "ch-1", "guest-1")
	require.NoError(t, err)
	defer sub.Cancel()

	newlyRead, err := f.svc.MarkRead(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	assert.Equal(t, 1, newlyRead)
	ev := <-sub.C
	assert.Equal(t, realtime.KindReadReceipt, ev.Kind)
	assert.Equal(t, "host-1", ev.ReaderID)

	// nothing new to read, no second receipt
	newlyRead, err = f.svc.MarkRead(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	assert.Zero(t, newlyRead)
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event %q", ev.Kind)
	default:
	}

	count, err := f.svc.UnreadCount(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTypingPresenceRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f.svc.Presence = realtime.NewPresenceTracker(rdb, realtime.DefaultTypingTTL)

	sub, err := f.svc.Subscribe(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, f.svc.SetTyping(ctx, "ch-1", "guest-1", true))
	ev := <-sub.C
	assert.Equal(t, realtime.KindTypingChanged, ev.Kind)
	assert.Equal(t, "guest-1", ev.UserID)
	assert.True(t, ev.Typing)

	typists, err := f.svc.Typists(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"guest-1"}, typists)

	// an abandoned indicator expires on its own
	mr.FastForward(realtime.DefaultTypingTTL + time.Second)
	typists, err = f.svc.Typists(ctx, "ch-1", "host-1")
	require.NoError(t, err)
	assert.Empty(t, typists)

	assert.ErrorIs(t, f.svc.SetTyping(ctx, "ch-1", "stranger", true), domainchat.ErrNotParticipant)
}

func TestHistoryPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.svc.Post(ctx, "ch-1", "guest-1", "message")
		require.NoError(t, err)
		f.now = f.now.Add(time.Second)
	}

	page, err := f.svc.History(ctx, "ch-1", "host-1", 0, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, int64(1), page[0].Seq)

	rest, err := f.svc.History(ctx, "ch-1", "host-1", page[len(page)-1].Seq, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, int64(4), rest[0].Seq)

	_, err = f.svc.History(ctx, "ch-1", "stranger", 0, 10)
	assert.ErrorIs(t, err, domainchat.ErrNotParticipant)
}

func TestCloseWithNoticePostsSystemMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, "ch-1", "guest-1")
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, f.svc.CloseWithNotice(ctx, "ch-1", "Booking cancelled: plans changed", f.now))

	ev := <-sub.C
	assert.Equal(t, realtime.KindMessagePosted, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, domainchat.KindSystem, ev.Message.Kind)
	assert.Equal(t, domainchat.SystemSender, ev.Message.SenderID)
	ev = <-sub.C
	assert.Equal(t, realtime.KindChannelClosed, ev.Kind)

	// inside the grace window participants can still settle logistics
	_, err = f.svc.Post(ctx, "ch-1", "guest-1", "thanks, refund received")
	require.NoError(t, err)

	f.now = f.now.Add(domainchat.PostGracePeriod + time.Minute)
	_, err = f.svc.Post(ctx, "ch-1", "guest-1", "anyone there?")
	assert.ErrorIs(t, err, domainchat.ErrChannelClosed)

	// history outlives the close
	page, err := f.svc.History(ctx, "ch-1", "host-1", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
