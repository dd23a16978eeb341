package skyban

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

// Decodes item bytes looking them up in a table
type tableDecoder map[string]*ItemPayload

func (d tableDecoder) Decode(itemBytes string) (*ItemPayload, error) {
	payload, found := d[itemBytes]
	if !found {
		return nil, fmt.Errorf("%w: unknown bytes %q", ErrDecodeFailure, itemBytes)
	}
	return payload, nil
}

var testDecoder = tableDecoder{
	"hyperion": {ID: "HYPERION"},
	"helmet": {
		ID:         "FERVOR_HELMET",
		Attributes: map[string]int{"speed": 3, "breeze": 1},
	},
	"wolf": {
		ID:          "PET",
		PetInfo:     `{"tier":"LEGENDARY","type":"WOLF"}`,
		DisplayName: "[Lvl 100] Wolf",
	},
	"broken_wolf": {
		ID:      "PET",
		PetInfo: `{"tier":"LEGENDARY"}`,
	},
}

var testListings = []ListingRecord{
	{BuyItNow: true, Price: 800_000_000, ItemBytes: "hyperion"},
	{BuyItNow: false, Price: 1, ItemBytes: "hyperion"},
	{BuyItNow: true, Price: 1_000_000, ItemBytes: "helmet"},
	{BuyItNow: true, Price: 5_000_000, ItemBytes: "wolf"},
	{BuyItNow: true, Price: 100, ItemBytes: "garbage"},
	{BuyItNow: true, Price: 100, ItemBytes: "broken_wolf"},
	{BuyItNow: true, Price: 750_000_000, Payload: &ItemPayload{ID: "HYPERION"}},
}

func newTestAggregator() *Aggregator {
	agg := NewAggregator(NewStore(nil, nil), testDecoder)
	agg.Clock = func() time.Time {
		return testNow
	}
	return agg
}

func TestRunPass(t *testing.T) {
	agg := newTestAggregator()
	var logs []string
	agg.LogCallback = func(format string, a ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, a...))
	}

	index := agg.RunPass(testListings)

	report := agg.Report()
	expected := PassReport{Seen: 7, NotBIN: 1, Skipped: 2, Applied: 4}
	if report != expected {
		t.Errorf("FAIL: unexpected report %+v, expected %+v", report, expected)
		return
	}
	if len(logs) != 3 {
		t.Errorf("FAIL: expected 3 log lines, got %d: %v", len(logs), logs)
		return
	}

	if !checkPrice(t, "hyperion", index["HYPERION"], 750_000_000) {
		return
	}
	if !checkPrice(t, "wolf", index["LEGENDARY_WOLF"].Levels["100"], 5_000_000) {
		return
	}
	if !checkPrice(t, "linked speed", index["HELMET"].Attributes["speed"], 250_000) {
		return
	}
	if len(index) != 4 {
		t.Errorf("FAIL: expected 4 records, got %d", len(index))
		return
	}
	t.Log("PASS: RunPass")
}

func TestRunPassNotBIN(t *testing.T) {
	agg := newTestAggregator()
	index := agg.RunPass([]ListingRecord{
		{BuyItNow: false, Price: 1, ItemBytes: "hyperion"},
		{BuyItNow: false, Price: 2, ItemBytes: "helmet"},
	})
	if len(index) != 0 {
		t.Errorf("FAIL: auction listings modified the index")
		return
	}
	t.Log("PASS: not bin")
}

func TestRunPassDeterminism(t *testing.T) {
	first := newTestAggregator().RunPass(testListings)
	second := newTestAggregator().RunPass(testListings)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("FAIL: two passes over the same batch differ")
		return
	}
	t.Log("PASS: determinism")
}

func TestRunPassAccumulates(t *testing.T) {
	agg := newTestAggregator()
	agg.RunPass(testListings[:1])
	index := agg.RunPass([]ListingRecord{
		{BuyItNow: true, Price: 700_000_000, ItemBytes: "hyperion"},
	})
	if agg.Report().Applied != 1 {
		t.Errorf("FAIL: report was not reset between passes")
		return
	}
	if !checkPrice(t, "hyperion", index["HYPERION"], 700_000_000) {
		return
	}
	t.Log("PASS: accumulation")
}

func TestRunPassNoDecoder(t *testing.T) {
	agg := NewAggregator(NewStore(nil, nil), nil)
	index := agg.RunPass(testListings)
	if agg.Report().Applied != 1 || len(index) != 1 {
		t.Errorf("FAIL: only pre-decoded listings should be applied, got %+v", agg.Report())
		return
	}
	t.Log("PASS: no decoder")
}
