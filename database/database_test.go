package database

import (
	"testing"
	"time"

	"github.com/skyban/go-skyban/skyban"
)

var testTime = time.Unix(1_700_000_000, 0).UTC()

func testIndex() skyban.PriceIndex {
	store := skyban.NewStore(nil, nil)
	store.Upsert(&skyban.ItemPayload{
		ID:         "FERVOR_HELMET",
		Attributes: map[string]int{"speed": 3, "breeze": 1},
	}, 1_000_000, testTime)
	store.Upsert(&skyban.ItemPayload{
		ID:          "PET",
		PetInfo:     `{"tier":"LEGENDARY","type":"WOLF"}`,
		DisplayName: "[Lvl 100] Wolf",
	}, 5_000_000, testTime)

	index := store.Index()
	index["MUSIC_3"] = skyban.NewPriceRecord(12_000, time.Time{})
	return index
}

func TestFlattenIndex(t *testing.T) {
	rows := FlattenIndex("active", testIndex())

	// helmet: item, 2 attributes, 1 combo; slot: 2 attributes;
	// wolf: item, 1 level; rune: item
	if len(rows) != 9 {
		t.Errorf("FAIL: expected 9 rows, got %d", len(rows))
		return
	}
	for _, row := range rows {
		if row.IndexName != "active" {
			t.Errorf("FAIL: unexpected index name %s", row.IndexName)
			return
		}
	}
	first := rows[0]
	if first.Identity != "FERVOR_HELMET" || first.Kind != skyban.KindAttribute || first.Name != "breeze" {
		t.Errorf("FAIL: unexpected first row %+v", first)
		return
	}
	last := rows[len(rows)-1]
	if last.Identity != "MUSIC_3" || last.LastUpdated != nil {
		t.Errorf("FAIL: unexpected last row %+v", last)
		return
	}
	t.Log("PASS: flatten")
}

func TestBuildIndex(t *testing.T) {
	index := testIndex()
	rebuilt, err := BuildIndex(FlattenIndex("active", index))
	if err != nil {
		t.Errorf("FAIL: Unexpected error: %s", err.Error())
		return
	}
	if len(rebuilt) != len(index) {
		t.Errorf("FAIL: expected %d records, got %d", len(index), len(rebuilt))
		return
	}

	slot := rebuilt["HELMET"]
	if slot == nil || slot.HasPrice() {
		t.Errorf("FAIL: container not rebuilt: %+v", slot)
		return
	}
	if slot.Attributes["speed"].LowestPrice != 250_000 {
		t.Errorf("FAIL: unexpected slot price %v", slot.Attributes["speed"].LowestPrice)
		return
	}
	if !rebuilt["LEGENDARY_WOLF"].Levels["100"].LastUpdated.Equal(testTime) {
		t.Errorf("FAIL: timestamp lost")
		return
	}
	if !rebuilt["MUSIC_3"].LastUpdated.IsZero() {
		t.Errorf("FAIL: missing timestamp was filled")
		return
	}
	if rebuilt["FERVOR_HELMET"].AttributeCombos["breeze speed"].LowestPrice != 1_000_000 {
		t.Errorf("FAIL: combo lost")
		return
	}
	t.Log("PASS: build")
}

func TestBuildIndexUnknownKind(t *testing.T) {
	_, err := BuildIndex([]PriceRow{{Identity: "HYPERION", Kind: "enchant", Price: 1}})
	if err == nil {
		t.Errorf("FAIL: unknown kind accepted")
		return
	}
	t.Log("PASS: unknown kind")
}
