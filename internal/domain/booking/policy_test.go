package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"datecraft/internal/domain/offer"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name  string
		tier  offer.CancellationTier
		hours int
		want  RefundOutcome
	}{
		{"flexible well ahead", offer.TierFlexible, 100, RefundOutcome{RefundFree, 100}},
		{"flexible at boundary", offer.TierFlexible, 24, RefundOutcome{RefundFree, 100}},
		{"flexible just inside", offer.TierFlexible, 23, RefundOutcome{RefundPartial, 50}},
		{"flexible last minute", offer.TierFlexible, 0, RefundOutcome{RefundPartial, 50}},
		{"moderate free boundary", offer.TierModerate, 48, RefundOutcome{RefundFree, 100}},
		{"moderate above free", offer.TierModerate, 50, RefundOutcome{RefundFree, 100}},
		{"moderate partial window", offer.TierModerate, 30, RefundOutcome{RefundPartial, 50}},
		{"moderate partial boundary", offer.TierModerate, 24, RefundOutcome{RefundPartial, 50}},
		{"moderate too late", offer.TierModerate, 23, RefundOutcome{RefundNone, 0}},
		{"strict free boundary", offer.TierStrict, 72, RefundOutcome{RefundFree, 100}},
		{"strict below boundary", offer.TierStrict, 71, RefundOutcome{RefundNone, 0}},
		{"strict too late", offer.TierStrict, 10, RefundOutcome{RefundNone, 0}},
		{"event already happened flexible", offer.TierFlexible, -1, RefundOutcome{RefundNone, 0}},
		{"event already happened strict", offer.TierStrict, -30, RefundOutcome{RefundNone, 0}},
		{"unknown tier", offer.CancellationTier("mystery"), 100, RefundOutcome{RefundNone, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.tier, tc.hours))
		})
	}
}

func TestHoursUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 24, HoursUntil(now.Add(24*time.Hour), now))
	// 23h59m floors to 23, keeping the boundary strict
	assert.Equal(t, 23, HoursUntil(now.Add(24*time.Hour-time.Minute), now))
	assert.Equal(t, 0, HoursUntil(now.Add(30*time.Minute), now))
	assert.Equal(t, 0, HoursUntil(now, now))
	// any elapsed time counts as negative, even under an hour
	assert.Equal(t, -1, HoursUntil(now.Add(-time.Minute), now))
	assert.Equal(t, -2, HoursUntil(now.Add(-90*time.Minute), now))
}
