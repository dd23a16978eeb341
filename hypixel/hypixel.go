// Package hypixel fetches listing batches from the public SkyBlock API.
package hypixel

import (
	"context"
	"time"

	"github.com/skyban/go-skyban/skyban"
)

// ActiveFeed scans the active auctions, newest first, stopping as soon as
// it reaches the listings that were already seen in a previous scan
type ActiveFeed struct {
	LogCallback skyban.LogCallbackFunc

	// Listings started at or before this time are not returned,
	// a zero value scans everything
	Since time.Time

	client *Client
	newest time.Time
}

func NewActiveFeed(client *Client, since time.Time) *ActiveFeed {
	feed := ActiveFeed{}
	feed.client = client
	feed.Since = since
	return &feed
}

func (f *ActiveFeed) printf(format string, a ...interface{}) {
	if f.LogCallback != nil {
		f.LogCallback("[HYP] "+format, a...)
	}
}

// Newest returns the start time of the most recent buy-it-now listing found
// by the last successful scan, or Since if none was found
func (f *ActiveFeed) Newest() time.Time {
	if f.newest.IsZero() {
		return f.Since
	}
	return f.newest
}

func (f *ActiveFeed) seen(auction Auction) bool {
	return !f.Since.IsZero() && !time.UnixMilli(auction.Start).After(f.Since)
}

// Listings walks all pages in order and returns the new listings.
// On error nothing is returned and the cutoff is left untouched, so that
// the next scan covers the same range again.
func (f *ActiveFeed) Listings(ctx context.Context) ([]skyban.ListingRecord, error) {
	var listings []skyban.ListingRecord
	var newest time.Time

	totalPages := 1
	for page := 0; page < totalPages; page++ {
		response, err := f.client.Auctions(ctx, page)
		if err != nil {
			return nil, err
		}
		totalPages = response.TotalPages
		f.printf("Parsing page %d/%d (%d auctions)", page+1, totalPages, len(response.Auctions))

		for _, auction := range response.Auctions {
			if f.seen(auction) {
				f.printf("Reached the last scanned auction on page %d", page)
				f.commit(newest)
				return listings, nil
			}

			listing := auction.Listing()
			if listing.BuyItNow && listing.ObservedAt.After(newest) {
				newest = listing.ObservedAt
			}
			listings = append(listings, listing)
		}
	}

	f.commit(newest)
	return listings, nil
}

func (f *ActiveFeed) commit(newest time.Time) {
	if newest.After(f.Since) {
		f.newest = newest
	}
}
