package skyban

import (
	"errors"
	"testing"
)

type IdentityTest struct {
	Name    string
	Payload *ItemPayload
	Out     string
	Err     bool
}

var IdentityTests = []IdentityTest{
	{
		Name:    "plain item",
		Payload: &ItemPayload{ID: "HYPERION"},
		Out:     "HYPERION",
	},
	{
		Name: "companion",
		Payload: &ItemPayload{
			ID:      "PET",
			PetInfo: `{"type":"WOLF","active":false,"exp":0.0,"tier":"LEGENDARY"}`,
		},
		Out: "LEGENDARY_WOLF",
	},
	{
		Name: "companion with unusual id",
		Payload: &ItemPayload{
			ID:      "SOMETHING_ELSE",
			PetInfo: `{"tier":"LEGENDARY","type":"WOLF"}`,
		},
		Out: "LEGENDARY_WOLF",
	},
	{
		Name: "rune",
		Payload: &ItemPayload{
			ID:    "RUNE",
			Runes: map[string]int{"MUSIC": 3},
		},
		Out: "MUSIC_3",
	},
	{
		Name:    "missing id",
		Payload: &ItemPayload{PetInfo: `{"tier":"LEGENDARY","type":"WOLF"}`},
		Err:     true,
	},
	{
		Name:    "nil payload",
		Payload: nil,
		Err:     true,
	},
	{
		Name:    "companion without info",
		Payload: &ItemPayload{ID: "PET"},
		Err:     true,
	},
	{
		Name:    "companion with broken info",
		Payload: &ItemPayload{ID: "PET", PetInfo: `{"tier":`},
		Err:     true,
	},
	{
		Name:    "companion missing species",
		Payload: &ItemPayload{ID: "PET", PetInfo: `{"tier":"EPIC"}`},
		Err:     true,
	},
	{
		Name:    "rune without runes",
		Payload: &ItemPayload{ID: "RUNE"},
		Err:     true,
	},
}

func TestResolveIdentity(t *testing.T) {
	for _, probe := range IdentityTests {
		test := probe
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			out, err := ResolveIdentity(test.Payload)
			if test.Err {
				if !errors.Is(err, ErrMalformedItem) {
					t.Errorf("FAIL %s: Expected a malformed item error, got %v", test.Name, err)
				}
				return
			}
			if err != nil {
				t.Errorf("FAIL %s: Unexpected error: %s", test.Name, err.Error())
				return
			}
			if out != test.Out {
				t.Errorf("FAIL %s: Expected '%s' got '%s'", test.Name, test.Out, out)
				return
			}
			t.Log("PASS:", test.Name)
		})
	}
}

type ExtractTest struct {
	In  string
	Out string
}

var LevelTests = []ExtractTest{
	{In: "[Lvl 100] Wolf", Out: "100"},
	{In: "[Lvl 1] Golden Dragon", Out: "1"},
	{In: "§7[Lvl 57] §6Ender Dragon", Out: "57"},
	{In: "Wolf", Out: ""},
	{In: "[Lvl ] Wolf", Out: ""},
}

func TestCompanionLevel(t *testing.T) {
	for _, test := range LevelTests {
		out, err := CompanionLevel(test.In)
		if test.Out == "" {
			if err == nil {
				t.Errorf("FAIL %s: Expected an error, got '%s'", test.In, out)
			}
			continue
		}
		if err != nil {
			t.Errorf("FAIL %s: Unexpected error: %s", test.In, err.Error())
			continue
		}
		if out != test.Out {
			t.Errorf("FAIL %s: Expected '%s' got '%s'", test.In, test.Out, out)
		}
	}
	t.Log("PASS: CompanionLevel")
}

var LinkedTests = []ExtractTest{
	{In: "FERVOR_HELMET", Out: "HELMET"},
	{In: "CRIMSON_CHESTPLATE", Out: "CHESTPLATE"},
	{In: "HOT_TERROR_BOOTS", Out: ""},
	{In: "FERVOR", Out: ""},
	{In: "FERVOR_", Out: ""},
	{In: "HYPERION", Out: ""},
}

func TestLinkedComponent(t *testing.T) {
	for _, test := range LinkedTests {
		out := linkedComponent(test.In)
		if out != test.Out {
			t.Errorf("FAIL %s: Expected '%s' got '%s'", test.In, test.Out, out)
		}
	}
	t.Log("PASS: linkedComponent")
}
