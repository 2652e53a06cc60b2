package booking

import (
	"time"

	"datecraft/internal/domain/offer"
)

// RefundKind classifies a cancellation outcome.
type RefundKind string

const (
	RefundFree    RefundKind = "FREE"
	RefundPartial RefundKind = "PARTIAL"
	RefundNone    RefundKind = "NONE"
)

// RefundOutcome is the result of evaluating a cancellation policy tier
// against the remaining lead time.
type RefundOutcome struct {
	Kind    RefundKind
	Percent int
}

func freeRefund() RefundOutcome    { return RefundOutcome{Kind: RefundFree, Percent: 100} }
func partialRefund() RefundOutcome { return RefundOutcome{Kind: RefundPartial, Percent: 50} }
func noRefund() RefundOutcome      { return RefundOutcome{Kind: RefundNone, Percent: 0} }

// Evaluate computes refund eligibility from the policy tier and the whole
// hours remaining until the event. Pure: no clock, no side effects.
//
//	flexible: >=24h free, otherwise 50%
//	moderate: >=48h free, >=24h 50%, otherwise nothing
//	strict:   >=72h free, otherwise nothing
//
// A negative lead time means the event already happened: nothing is
// refunded regardless of tier.
func Evaluate(tier offer.CancellationTier, hoursUntilEvent int) RefundOutcome {
	if hoursUntilEvent < 0 {
		return noRefund()
	}
	switch tier {
	case offer.TierFlexible:
		if hoursUntilEvent >= 24 {
			return freeRefund()
		}
		return partialRefund()
	case offer.TierModerate:
		if hoursUntilEvent >= 48 {
			return freeRefund()
		}
		if hoursUntilEvent >= 24 {
			return partialRefund()
		}
		return noRefund()
	case offer.TierStrict:
		if hoursUntilEvent >= 72 {
			return freeRefund()
		}
		return noRefund()
	default:
		return noRefund()
	}
}

// HoursUntil returns floor((event - now) / 1h). The result is negative once
// the event has passed.
func HoursUntil(event, now time.Time) int {
	d := event.Sub(now)
	hours := int(d / time.Hour)
	if d < 0 && d%time.Hour != 0 {
		hours--
	}
	return hours
}
