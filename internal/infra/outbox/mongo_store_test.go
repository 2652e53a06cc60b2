package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestClaimFilterCoversDueAndAbandonedEntries(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	filter := claimFilter(now)

	branches, ok := filter["$or"].([]bson.M)
	require.True(t, ok)
	require.Len(t, branches, 2)

	due := branches[0]
	assert.Equal(t, bson.M{"$in": []string{stateNew, stateFailed}}, due["state"])
	assert.Equal(t, bson.M{"$lte": now}, due["next_attempt_at"])

	// claimed rows come back into rotation only after the cutoff, so a
	// live worker's claim is never stolen
	abandoned := branches[1]
	assert.Equal(t, stateClaimed, abandoned["state"])
	assert.Equal(t, bson.M{"$lte": now.Add(-staleClaimCutoff)}, abandoned["claimed_at"])
}
