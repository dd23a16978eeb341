package skyban

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestIndexJSON(t *testing.T) {
	store := NewStore(nil, nil)
	store.Upsert(&ItemPayload{
		ID:         "FERVOR_HELMET",
		Attributes: map[string]int{"speed": 3, "breeze": 1},
	}, 1_000_000, testNow)
	store.Upsert(&ItemPayload{
		ID:          "PET",
		PetInfo:     `{"tier":"LEGENDARY","type":"WOLF"}`,
		DisplayName: "[Lvl 100] Wolf",
	}, 5_000_000, testNow.Add(1500*time.Millisecond))

	var buf bytes.Buffer
	err := WriteIndexToJSON(store.Index(), &buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	index, err := ReadIndexFromJSON(&buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	for identity, record := range store.Index() {
		loaded := index[identity]
		if loaded == nil {
			t.Errorf("FAIL: %s lost in the round trip", identity)
			return
		}
		if loaded.LowestPrice != record.LowestPrice || !loaded.LastUpdated.Equal(record.LastUpdated) {
			t.Errorf("FAIL: %s changed in the round trip: %+v vs %+v", identity, loaded, record)
			return
		}
	}
	if !checkPrice(t, "speed", index["HELMET"].Attributes["speed"], 250_000) {
		return
	}
	if !index["LEGENDARY_WOLF"].Levels["100"].LastUpdated.Equal(testNow.Add(1500 * time.Millisecond)) {
		t.Errorf("FAIL: fractional timestamp not preserved")
		return
	}
	t.Log("PASS: index json")
}

func TestIndexJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteIndexToJSON(PriceIndex{
		"HELMET": NewPriceRecord(0, time.Time{}),
		"PLAIN":  NewPriceRecord(100, time.Unix(1_700_000_000, 0)),
	}, &buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	out := strings.TrimSpace(buf.String())
	expected := `{"HELMET":{},"PLAIN":{"lbin":100,"timestamp":1700000000}}`
	if out != expected {
		t.Errorf("FAIL: Expected %s got %s", expected, out)
		return
	}
	t.Log("PASS: index json format")
}

func TestIndexJSONLegacy(t *testing.T) {
	legacy := `{
		"HYPERION": {"lbin": 800000000, "timestamp": 1700000000.5},
		"CRIMSON_BOOTS": {"lbin": 2000000, "attributes": {"veteran": 500000, "vitality": null}},
		"MISSING": null
	}`

	index, err := ReadIndexFromJSON(strings.NewReader(legacy))
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}
	if _, found := index["MISSING"]; found {
		t.Errorf("FAIL: null record was kept")
		return
	}
	if !index["HYPERION"].LastUpdated.Equal(time.Unix(1_700_000_000, 500_000_000)) {
		t.Errorf("FAIL: unexpected timestamp %v", index["HYPERION"].LastUpdated)
		return
	}

	boots := index["CRIMSON_BOOTS"]
	if !checkPrice(t, "veteran", boots.Attributes["veteran"], 500_000) {
		return
	}
	if _, found := boots.Attributes["vitality"]; found {
		t.Errorf("FAIL: null attribute was kept")
		return
	}
	if !boots.LastUpdated.IsZero() || !boots.Attributes["veteran"].LastUpdated.IsZero() {
		t.Errorf("FAIL: legacy values should have no timestamp")
		return
	}
	if boots.Levels == nil || boots.AttributeCombos == nil {
		t.Errorf("FAIL: maps not initialized")
		return
	}

	index.Upgrade(testNow)
	if !boots.LastUpdated.Equal(testNow) || !boots.Attributes["veteran"].LastUpdated.Equal(testNow) {
		t.Errorf("FAIL: legacy values were not upgraded")
		return
	}
	if !index["HYPERION"].LastUpdated.Equal(time.Unix(1_700_000_000, 500_000_000)) {
		t.Errorf("FAIL: upgrade changed an existing timestamp")
		return
	}
	t.Log("PASS: legacy json")
}

func TestIndexJSONEmpty(t *testing.T) {
	index, err := ReadIndexFromJSON(strings.NewReader("null"))
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}
	if index == nil || len(index) != 0 {
		t.Errorf("FAIL: expected an empty index")
		return
	}

	_, err = ReadIndexFromJSON(strings.NewReader("{"))
	if err == nil {
		t.Errorf("FAIL: truncated input was accepted")
		return
	}
	t.Log("PASS: empty json")
}

func TestExportJSON(t *testing.T) {
	item := NewPriceRecord(50_000_000, testNow)
	item.Attributes["speed"] = NewPriceRecord(1_000, testNow)

	var buf bytes.Buffer
	err := WriteExportToJSON(PriceIndex{"FERVOR_HELMET": item}.PruneForExport(0, 0), &buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	out := strings.TrimSpace(buf.String())
	expected := `{"FERVOR_HELMET":{"lbin":50000000,"attributes":{"speed":{"lbin":1000}}}}`
	if out != expected {
		t.Errorf("FAIL: Expected %s got %s", expected, out)
		return
	}
	t.Log("PASS: export json")
}

func TestIndexJSONPrecision(t *testing.T) {
	observed := time.Unix(1_700_000_000, 123_456_789)
	store := NewStore(nil, nil)
	store.Upsert(&ItemPayload{ID: "HYPERION"}, 800_000_000, observed)

	var buf bytes.Buffer
	err := WriteIndexToJSON(store.Index(), &buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}
	index, err := ReadIndexFromJSON(&buf)
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}

	stored := store.Index()["HYPERION"].LastUpdated
	if !stored.Equal(time.Unix(1_700_000_000, 123_456_000)) {
		t.Errorf("FAIL: timestamp not kept at microseconds: %v", stored)
		return
	}
	if !index["HYPERION"].LastUpdated.Equal(stored) {
		t.Errorf("FAIL: timestamp changed in the round trip: %v vs %v", index["HYPERION"].LastUpdated, stored)
		return
	}
	t.Log("PASS: json precision")
}
