package skyban

import (
	"time"
)

// Store wraps a PriceIndex with the options used to mutate it.
// It has no internal locking, passes need to be serialized by the caller.
type Store struct {
	Options

	index PriceIndex
}

// Return a Store operating on index, a nil index starts empty and nil
// options mean DefaultOptions
func NewStore(index PriceIndex, opts *Options) *Store {
	store := Store{
		Options: DefaultOptions(),
	}
	if opts != nil {
		store.Options = *opts
	}
	if index == nil {
		index = PriceIndex{}
	}
	store.index = index
	return &store
}

// Return the index managed by the Store
func (s *Store) Index() PriceIndex {
	return s.index
}

// Upsert records a listing of payload at price, observed at now, and
// returns the identity that was updated. On error nothing is modified.
func (s *Store) Upsert(payload *ItemPayload, price float64, now time.Time) (string, error) {
	obs, err := s.observe(payload, price)
	if err != nil {
		return "", err
	}

	record := s.index[obs.Identity]
	if record == nil {
		record = NewPriceRecord(price, now)
		s.index[obs.Identity] = record
	} else {
		record.ensureMaps()
		record.apply(s.Compare(record, price, now), price, now)
	}

	if obs.Level != "" {
		s.updateChild(record.Levels, obs.Level, price, now)
	}

	s.decompose(s.index, record, obs, now)

	return obs.Identity, nil
}

// DecaySweep evicts records that have not been updated within the stale
// window and raises the price of the others by the configured increment.
// Records above the value ceiling are left untouched.
func (s *Store) DecaySweep(now time.Time) {
	for identity, record := range s.index {
		if record == nil || s.decay(record, now) {
			delete(s.index, identity)
			continue
		}

		s.decayChildren(record.Levels, now)
		s.decayChildren(record.Attributes, now)
		s.decayChildren(record.AttributeCombos, now)

		if !record.HasPrice() && !record.hasChildren() {
			delete(s.index, identity)
		}
	}
}

func (s *Store) decayChildren(records map[string]*PriceRecord, now time.Time) {
	for key, record := range records {
		if record == nil || s.decay(record, now) {
			delete(records, key)
		}
	}
}

// Return true if record needs to be evicted, otherwise inflate its price
func (s *Store) decay(record *PriceRecord, now time.Time) bool {
	if !record.HasPrice() {
		return false
	}
	if s.ValueCeiling > 0 && record.LowestPrice > s.ValueCeiling {
		return false
	}
	if !record.LastUpdated.IsZero() && now.Sub(record.LastUpdated) > s.StaleWindow {
		return true
	}
	record.LowestPrice += s.Increment
	return false
}

// MergeSnapshot folds a secondary index, such as the currently active
// listings, into the Store. Priced records replace the existing ones
// wholesale when the comparator picks them and only refresh the timestamp
// on a near tie, while containers are merged child by child. Returns the
// number of records that were taken.
func (s *Store) MergeSnapshot(secondary PriceIndex, now time.Time) int {
	var merged int
	for identity, incoming := range secondary {
		if incoming == nil {
			continue
		}

		if !incoming.HasPrice() {
			current := s.index[identity]
			if current == nil {
				current = NewPriceRecord(0, time.Time{})
				s.index[identity] = current
			}
			current.ensureMaps()
			merged += s.mergeChildren(current.Levels, incoming.Levels, now)
			merged += s.mergeChildren(current.Attributes, incoming.Attributes, now)
			merged += s.mergeChildren(current.AttributeCombos, incoming.AttributeCombos, now)
			continue
		}

		if s.mergeRecord(s.index, identity, incoming, now) {
			merged++
		}
	}
	return merged
}

func (s *Store) mergeChildren(dst, src map[string]*PriceRecord, now time.Time) int {
	var merged int
	for key, incoming := range src {
		if incoming == nil || !incoming.HasPrice() {
			continue
		}
		if s.mergeRecord(dst, key, incoming, now) {
			merged++
		}
	}
	return merged
}

// Copy incoming under key if the comparator replaces the current record
func (s *Store) mergeRecord(records map[string]*PriceRecord, key string, incoming *PriceRecord, now time.Time) bool {
	current := records[key]
	switch s.Compare(current, incoming.LowestPrice, now) {
	case Keep:
		return false
	case Refresh:
		current.LastUpdated = stamp(now)
		return false
	}

	record := incoming.Clone()
	record.Upgrade(now)
	record.LastUpdated = stamp(now)
	records[key] = record
	return true
}
