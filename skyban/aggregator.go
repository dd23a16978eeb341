package skyban

import (
	"errors"
	"time"
)

// PassReport counts what happened to the listings of a single pass
type PassReport struct {
	// Listings handed to the pass
	Seen int

	// Listings that were not buy-it-now
	NotBIN int

	// Listings skipped because they could not be decoded or were malformed
	Skipped int

	// Listings applied to the index
	Applied int
}

// Aggregator runs update passes over batches of listings, accumulating
// into the same Store
type Aggregator struct {
	LogCallback LogCallbackFunc

	// Used for listings without a decoded Payload
	Decoder Decoder

	// Source of the update timestamps, defaults to time.Now
	Clock func() time.Time

	store  *Store
	report PassReport
}

// Return an Aggregator updating store, decoding listings with decoder
func NewAggregator(store *Store, decoder Decoder) *Aggregator {
	agg := Aggregator{}
	agg.store = store
	agg.Decoder = decoder
	agg.Clock = time.Now
	return &agg
}

func (agg *Aggregator) printf(format string, a ...interface{}) {
	if agg.LogCallback != nil {
		agg.LogCallback("[LBIN] "+format, a...)
	}
}

// Return the Store updated by the Aggregator
func (agg *Aggregator) Store() *Store {
	return agg.store
}

// Return the counters of the last pass
func (agg *Aggregator) Report() PassReport {
	return agg.report
}

// RunPass applies every buy-it-now listing of the batch to the index, in
// order. Listings that fail to decode or resolve are skipped and never
// stop the pass.
func (agg *Aggregator) RunPass(listings []ListingRecord) PriceIndex {
	agg.report = PassReport{}

	for i := range listings {
		agg.report.Seen++

		listing := &listings[i]
		if !listing.BuyItNow {
			agg.report.NotBIN++
			continue
		}

		err := agg.apply(listing)
		if err != nil {
			agg.report.Skipped++
			if errors.Is(err, ErrMalformedItem) || errors.Is(err, ErrDecodeFailure) {
				agg.printf("skipping listing %d: %v", i, err)
			} else {
				agg.printf("unexpected error on listing %d: %v", i, err)
			}
			continue
		}
		agg.report.Applied++
	}

	agg.printf("pass done: %d seen, %d not bin, %d skipped, %d applied",
		agg.report.Seen, agg.report.NotBIN, agg.report.Skipped, agg.report.Applied)

	return agg.store.Index()
}

func (agg *Aggregator) apply(listing *ListingRecord) error {
	payload := listing.Payload
	if payload == nil {
		if agg.Decoder == nil {
			return errors.New("no decoder configured")
		}
		var err error
		payload, err = agg.Decoder.Decode(listing.ItemBytes)
		if err != nil {
			return err
		}
	}

	now := time.Now()
	if agg.Clock != nil {
		now = agg.Clock()
	}

	_, err := agg.store.Upsert(payload, listing.Price, now)
	return err
}
