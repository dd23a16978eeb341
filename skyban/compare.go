package skyban

import (
	"math"
	"time"
)

// Decision is the outcome of comparing a candidate price with a record
type Decision int

const (
	// Leave the record as is
	Keep Decision = iota

	// Set both price and timestamp of the record
	Replace

	// Only move the timestamp forward, the recorded price is still valid
	Refresh
)

func (d Decision) String() string {
	switch d {
	case Replace:
		return "replace"
	case Refresh:
		return "refresh"
	}
	return "keep"
}

// WithinPercent reports whether a and b are at most percent apart,
// relative to the larger of the two
func WithinPercent(a, b, percent float64) bool {
	return math.Abs(a-b) <= percent/100*math.Max(math.Abs(a), math.Abs(b))
}

// Compare decides what to do with current when a listing at candidate is
// observed at now. Cheaper prices always replace the record, and so does
// anything once the record is stale. A price close enough to the recorded
// one only refreshes it.
func (o Options) Compare(current *PriceRecord, candidate float64, now time.Time) Decision {
	switch {
	case current == nil || !current.HasPrice():
		return Replace
	case candidate < current.LowestPrice:
		return Replace
	case !current.LastUpdated.IsZero() && current.LastUpdated.Add(o.StaleWindow).Before(now):
		return Replace
	case WithinPercent(candidate, current.LowestPrice, o.TolerancePercent):
		return Refresh
	}
	return Keep
}

// ShouldReplace reports whether current needs to be touched at all
func (o Options) ShouldReplace(current *PriceRecord, candidate float64, now time.Time) bool {
	return o.Compare(current, candidate, now) != Keep
}

func (r *PriceRecord) apply(decision Decision, price float64, now time.Time) bool {
	switch decision {
	case Replace:
		r.LowestPrice = price
		r.LastUpdated = stamp(now)
	case Refresh:
		r.LastUpdated = stamp(now)
	default:
		return false
	}
	return true
}

// Update a child of records under key, creating it if missing
func (o Options) updateChild(records map[string]*PriceRecord, key string, price float64, now time.Time) bool {
	current, found := records[key]
	if !found || current == nil {
		records[key] = NewPriceRecord(price, now)
		return true
	}
	return current.apply(o.Compare(current, price, now), price, now)
}
