// Package skyban defines the types and operations used to track the lowest
// buy-it-now price of the items traded on the auction house.
package skyban

import (
	"errors"
	"time"
)

const (
	// Records older than this are force-refreshed on update and evicted by
	// the decay sweep
	DefaultStaleWindow = 7 * 24 * time.Hour

	// A candidate price within this percentage of the recorded one keeps the
	// record alive
	DefaultTolerancePercent = 5.0

	// Listings carrying an attribute above this tier are not used for combos
	DefaultComboMaxTier = 5

	// Records priced above this value are skipped by the decay sweep
	DefaultValueCeiling = 100_000_000

	// Combo records below this price are dropped on export
	DefaultComboFloor = 10_000_000
)

var (
	// A listing is missing a mandatory field or carries an invalid one
	ErrMalformedItem = errors.New("malformed item")

	// The encoded item data of a listing could not be decoded
	ErrDecodeFailure = errors.New("item decode failure")

	// The listing source could not provide a batch
	ErrSourceUnavailable = errors.New("listing source unavailable")
)

// ListingRecord represents a single auction listing as seen on the market
type ListingRecord struct {
	// Whether the listing can be bought immediately at Price
	BuyItNow bool `json:"bin"`

	// The asking price (or the final price for sold listings)
	Price float64 `json:"price"`

	// When the listing was started or sold
	ObservedAt time.Time `json:"observed_at"`

	// Encoded item data, handed to a Decoder when Payload is not set
	ItemBytes string `json:"item_bytes,omitempty"`

	// Already decoded item data
	Payload *ItemPayload `json:"-"`
}

// ItemPayload contains the decoded item fields relevant for pricing
type ItemPayload struct {
	// Raw item type, such as "HYPERION", "PET" or "RUNE"
	ID string

	// JSON-encoded companion information, only present on pets
	PetInfo string

	// Rune name pointing to its level
	Runes map[string]int

	// Attribute name pointing to its tier
	Attributes map[string]int

	// Display name of the item, such as "[Lvl 100] Wolf"
	DisplayName string
}

// Decoder is the interface used to turn the encoded item data of a listing
// into an ItemPayload
type Decoder interface {
	Decode(itemBytes string) (*ItemPayload, error)
}

// PriceRecord holds the lowest price seen for an item or for one of its
// sub-signals, along with the nested records of the sub-signals.
// A record with no price is a container, only its children carry data.
type PriceRecord struct {
	LowestPrice float64
	LastUpdated time.Time

	// Companion level pointing to its price
	Levels map[string]*PriceRecord

	// Attribute name pointing to the price of a single tier-1 attribute
	Attributes map[string]*PriceRecord

	// Space-separated sorted attribute names pointing to the bundle price
	AttributeCombos map[string]*PriceRecord
}

// Timestamps are kept at microsecond precision so that they survive the
// float seconds of the snapshot format
func stamp(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// Return a new record with all its maps initialized
func NewPriceRecord(price float64, now time.Time) *PriceRecord {
	return &PriceRecord{
		LowestPrice:     price,
		LastUpdated:     stamp(now),
		Levels:          map[string]*PriceRecord{},
		Attributes:      map[string]*PriceRecord{},
		AttributeCombos: map[string]*PriceRecord{},
	}
}

func (r *PriceRecord) HasPrice() bool {
	return r.LowestPrice > 0
}

func (r *PriceRecord) hasChildren() bool {
	return len(r.Levels) > 0 || len(r.Attributes) > 0 || len(r.AttributeCombos) > 0
}

func (r *PriceRecord) ensureMaps() {
	if r.Levels == nil {
		r.Levels = map[string]*PriceRecord{}
	}
	if r.Attributes == nil {
		r.Attributes = map[string]*PriceRecord{}
	}
	if r.AttributeCombos == nil {
		r.AttributeCombos = map[string]*PriceRecord{}
	}
}

// Clone returns a deep copy of the record
func (r *PriceRecord) Clone() *PriceRecord {
	out := NewPriceRecord(r.LowestPrice, r.LastUpdated)
	for key, child := range r.Levels {
		out.Levels[key] = child.Clone()
	}
	for key, child := range r.Attributes {
		out.Attributes[key] = child.Clone()
	}
	for key, child := range r.AttributeCombos {
		out.AttributeCombos[key] = child.Clone()
	}
	return out
}

// Upgrade stamps every priced record of the tree that has no timestamp,
// such as the bare numbers found in legacy snapshots
func (r *PriceRecord) Upgrade(now time.Time) {
	if r.HasPrice() && r.LastUpdated.IsZero() {
		r.LastUpdated = stamp(now)
	}
	for _, children := range []map[string]*PriceRecord{r.Levels, r.Attributes, r.AttributeCombos} {
		for _, child := range children {
			child.Upgrade(now)
		}
	}
}

// The base map containing an item identity pointing to its price record tree
type PriceIndex map[string]*PriceRecord

// Upgrade stamps all records of the index lacking a timestamp
func (idx PriceIndex) Upgrade(now time.Time) {
	for _, record := range idx {
		record.Upgrade(now)
	}
}

// Options tune the comparator and the decay sweep. Every field is used as
// set, so start from DefaultOptions and override what differs: a zero
// TolerancePercent only refreshes on an exact match.
type Options struct {
	// Age after which a record is considered stale
	StaleWindow time.Duration

	// Percentage within which a candidate price refreshes a record
	TolerancePercent float64

	// Highest attribute tier allowed in a combo
	ComboMaxTier int

	// Amount added to every surviving record by the decay sweep
	Increment float64

	// Records priced above this value are skipped by the decay sweep,
	// a non-positive value disables the check
	ValueCeiling float64
}

// Return the default options, with no inflation increment
func DefaultOptions() Options {
	return Options{
		StaleWindow:      DefaultStaleWindow,
		TolerancePercent: DefaultTolerancePercent,
		ComboMaxTier:     DefaultComboMaxTier,
		ValueCeiling:     DefaultValueCeiling,
	}
}

// Clone returns a deep copy of the index
func (idx PriceIndex) Clone() PriceIndex {
	out := make(PriceIndex, len(idx))
	for identity, record := range idx {
		if record == nil {
			continue
		}
		out[identity] = record.Clone()
	}
	return out
}
