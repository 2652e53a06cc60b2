package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"datecraft/internal/domain/chat"
)

// DefaultTypingTTL keeps a typing indicator alive between client refreshes.
// A dropped connection stops refreshing and the key simply expires, so no
// indicator ever sticks.
const DefaultTypingTTL = 7 * time.Second

// PresenceTracker stores ephemeral typing state in Redis TTL keys. Nothing
// here is durable and nothing here may fail a chat operation.
type PresenceTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceTracker(rdb *redis.Client, ttl time.Duration) *PresenceTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &PresenceTracker{rdb: rdb, ttl: ttl}
}

func typingKey(channelID chat.ChannelID, userID string) string {
	return fmt.Sprintf("typing:%s:%s", channelID, userID)
}

// SetTyping refreshes or clears the user's typing key.
func (p *PresenceTracker) SetTyping(ctx context.Context, channelID chat.ChannelID, userID string, isTyping bool) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	key := typingKey(channelID, userID)
	if isTyping {
		return p.rdb.Set(ctx, key, "1", p.ttl).Err()
	}
	return p.rdb.Del(ctx, key).Err()
}

// ActiveTypists lists users currently typing in the channel.
func (p *PresenceTracker) ActiveTypists(ctx context.Context, channelID chat.ChannelID) ([]string, error) {
	if p == nil || p.rdb == nil {
		return nil, nil
	}
	prefix := fmt.Sprintf("typing:%s:", channelID)
	var (
		users  []string
		cursor uint64
	)
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			users = append(users, strings.TrimPrefix(key, prefix))
		}
		if next == 0 {
			return users, nil
		}
		cursor = next
	}
}
