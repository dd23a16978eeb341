package skyban

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type attributeCost struct {
	Name string
	Cost float64
}

// observation is everything an update needs, computed before any record is
// touched so that a malformed listing never leaves a partial update behind
type observation struct {
	Identity string
	Price    float64

	// Companion level, empty for anything that is not a companion
	Level string

	// Sorted by name
	Attributes []attributeCost

	// Combo key, empty when the listing does not qualify
	Combo string

	// Slot name receiving the attribute prices too, if any
	Linked string
}

// Return the price of a single attribute out of a bundle price, assuming
// every tier doubles the value of the previous one
func AttributeCost(price float64, tier int) float64 {
	return price / math.Pow(2, float64(tier-1))
}

// ComboKey returns the order-independent key of a set of attributes
func ComboKey(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func (o Options) observe(payload *ItemPayload, price float64) (*observation, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive price %v", ErrMalformedItem, price)
	}

	identity, err := ResolveIdentity(payload)
	if err != nil {
		return nil, err
	}

	obs := &observation{
		Identity: identity,
		Price:    price,
	}

	if payload.PetInfo != "" {
		obs.Level, err = CompanionLevel(payload.DisplayName)
		if err != nil {
			return nil, err
		}
	}

	if len(payload.Attributes) == 0 {
		return obs, nil
	}

	names := make([]string, 0, len(payload.Attributes))
	for name := range payload.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	checkCombo := true
	for _, name := range names {
		tier := payload.Attributes[name]
		if tier < 1 {
			return nil, fmt.Errorf("%w: attribute %s has tier %d", ErrMalformedItem, name, tier)
		}
		if tier > o.ComboMaxTier {
			checkCombo = false
		}
		obs.Attributes = append(obs.Attributes, attributeCost{
			Name: name,
			Cost: AttributeCost(price, tier),
		})
	}

	if checkCombo && len(names) > 1 {
		obs.Combo = ComboKey(names)
	}
	obs.Linked = linkedComponent(identity)

	return obs, nil
}

// Apply the attribute sub-signals of an observation to record, and to the
// linked slot record when there is one
func (o Options) decompose(idx PriceIndex, record *PriceRecord, obs *observation, now time.Time) {
	if len(obs.Attributes) == 0 {
		return
	}

	var linked *PriceRecord
	if obs.Linked != "" {
		linked = idx[obs.Linked]
		if linked == nil {
			linked = NewPriceRecord(0, time.Time{})
			idx[obs.Linked] = linked
		}
		linked.ensureMaps()
	}

	for _, attr := range obs.Attributes {
		o.updateChild(record.Attributes, attr.Name, attr.Cost, now)
		if linked != nil {
			o.updateChild(linked.Attributes, attr.Name, attr.Cost, now)
		}
	}

	if obs.Combo != "" {
		o.updateChild(record.AttributeCombos, obs.Combo, obs.Price, now)
	}
}
