package hypixel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/corpix/uarand"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/skyban/go-skyban/skyban"
)

const (
	defaultAPIRetry = 3

	DefaultBaseURL = "https://api.hypixel.net/v2"

	auctionsPath      = "/skyblock/auctions"
	endedAuctionsPath = "/skyblock/auctions_ended"
	bazaarPath        = "/skyblock/bazaar"
)

// Auction is a listing as returned by both the active and the ended feeds,
// each feed only fills its own subset of fields
type Auction struct {
	UUID        string  `json:"uuid"`
	AuctionID   string  `json:"auction_id"`
	Auctioneer  string  `json:"auctioneer"`
	Seller      string  `json:"seller"`
	Buyer       string  `json:"buyer"`
	Start       int64   `json:"start"`
	End         int64   `json:"end"`
	Timestamp   int64   `json:"timestamp"`
	ItemName    string  `json:"item_name"`
	ItemBytes   string  `json:"item_bytes"`
	StartingBid float64 `json:"starting_bid"`
	Price       float64 `json:"price"`
	BIN         bool    `json:"bin"`
}

// Listing converts the auction to the format used by the aggregator.
// Sold listings carry a final price and a timestamp, active ones a starting
// bid and a start time, both in milliseconds.
func (a Auction) Listing() skyban.ListingRecord {
	price := a.Price
	if price == 0 {
		price = a.StartingBid
	}
	observed := a.Start
	if observed == 0 {
		observed = a.Timestamp
	}
	return skyban.ListingRecord{
		BuyItNow:   a.BIN,
		Price:      price,
		ObservedAt: time.UnixMilli(observed),
		ItemBytes:  a.ItemBytes,
	}
}

// Listings converts a slice of auctions
func Listings(auctions []Auction) []skyban.ListingRecord {
	out := make([]skyban.ListingRecord, 0, len(auctions))
	for _, auction := range auctions {
		out = append(out, auction.Listing())
	}
	return out
}

type AuctionsPage struct {
	Success       bool      `json:"success"`
	Cause         string    `json:"cause"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalAuctions int       `json:"totalAuctions"`
	LastUpdated   int64     `json:"lastUpdated"`
	Auctions      []Auction `json:"auctions"`
}

// BazaarQuote holds the instant sell and buy prices of a product, it is
// encoded as a two-element array
type BazaarQuote [2]float64

func (q BazaarQuote) Sell() float64 {
	return q[0]
}

func (q BazaarQuote) Buy() float64 {
	return q[1]
}

// BazaarIndex maps a product id to its quote
type BazaarIndex map[string]BazaarQuote

type Client struct {
	BaseURL string

	client *retryablehttp.Client
}

func NewClient() *Client {
	hc := Client{}
	hc.BaseURL = DefaultBaseURL
	hc.client = retryablehttp.NewClient()
	hc.client.Logger = nil
	hc.client.RetryMax = defaultAPIRetry
	hc.client.HTTPClient.Transport = &uaTransport{
		Parent:    hc.client.HTTPClient.Transport,
		UserAgent: uarand.GetRandom(),

		// The public endpoints are cached upstream, there is no point
		// in hammering them
		Limiter: rate.NewLimiter(10, 5),
	}
	return &hc
}

type uaTransport struct {
	Parent    http.RoundTripper
	UserAgent string
	Limiter   *rate.Limiter
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	err := t.Limiter.Wait(req.Context())
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Parent.RoundTrip(req)
}

func (hc *Client) get(ctx context.Context, path string, params url.Values, v interface{}) error {
	link := hc.BaseURL + path
	if len(params) > 0 {
		link += "?" + params.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return err
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", skyban.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", skyban.ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %s", skyban.ErrSourceUnavailable, path, resp.Status)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("%w: unmarshal error for %s: %v", skyban.ErrSourceUnavailable, path, err)
	}
	return nil
}

// Auctions retrieves a single page of the active auctions
func (hc *Client) Auctions(ctx context.Context, page int) (*AuctionsPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var response AuctionsPage
	err := hc.get(ctx, auctionsPath, params, &response)
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("%w: page %d: %s", skyban.ErrSourceUnavailable, page, response.Cause)
	}
	return &response, nil
}

// EndedAuctions retrieves the auctions that ended in the last minute
func (hc *Client) EndedAuctions(ctx context.Context) ([]Auction, error) {
	var response AuctionsPage
	err := hc.get(ctx, endedAuctionsPath, nil, &response)
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("%w: ended auctions: %s", skyban.ErrSourceUnavailable, response.Cause)
	}
	return response.Auctions, nil
}

// Bazaar retrieves the instant prices of all the bazaar products
func (hc *Client) Bazaar(ctx context.Context) (BazaarIndex, error) {
	var response struct {
		Success     bool   `json:"success"`
		Cause       string `json:"cause"`
		LastUpdated int64  `json:"lastUpdated"`
		Products    map[string]struct {
			ProductID   string `json:"product_id"`
			QuickStatus struct {
				SellPrice float64 `json:"sellPrice"`
				BuyPrice  float64 `json:"buyPrice"`
			} `json:"quick_status"`
		} `json:"products"`
	}
	err := hc.get(ctx, bazaarPath, nil, &response)
	if err != nil {
		return nil, err
	}
	if !response.Success {
		return nil, fmt.Errorf("%w: bazaar: %s", skyban.ErrSourceUnavailable, response.Cause)
	}

	bazaar := BazaarIndex{}
	for product, item := range response.Products {
		bazaar[product] = BazaarQuote{item.QuickStatus.SellPrice, item.QuickStatus.BuyPrice}
	}
	return bazaar, nil
}
