package skyban

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	companionItemId = "PET"
	runeItemId      = "RUNE"
)

type companionInfo struct {
	Tier string `json:"tier"`
	Type string `json:"type"`
}

// ResolveIdentity derives the key under which an item is priced.
// Companions and runes get a derived key, anything else uses the raw item id.
func ResolveIdentity(payload *ItemPayload) (string, error) {
	if payload == nil || payload.ID == "" {
		return "", fmt.Errorf("%w: missing item id", ErrMalformedItem)
	}

	if payload.PetInfo != "" || payload.ID == companionItemId {
		info, err := parseCompanionInfo(payload.PetInfo)
		if err != nil {
			return "", err
		}
		return info.Tier + "_" + info.Type, nil
	}

	if payload.ID == runeItemId {
		if len(payload.Runes) == 0 {
			return "", fmt.Errorf("%w: rune without runes entry", ErrMalformedItem)
		}
		// Runes carry a single entry, sort anyway to stay deterministic
		names := make([]string, 0, len(payload.Runes))
		for name := range payload.Runes {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Sprintf("%s_%d", names[0], payload.Runes[names[0]]), nil
	}

	return payload.ID, nil
}

func parseCompanionInfo(petInfo string) (*companionInfo, error) {
	if petInfo == "" {
		return nil, fmt.Errorf("%w: companion without petInfo", ErrMalformedItem)
	}

	var info companionInfo
	err := json.Unmarshal([]byte(petInfo), &info)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable petInfo: %v", ErrMalformedItem, err)
	}
	if info.Tier == "" || info.Type == "" {
		return nil, fmt.Errorf("%w: petInfo missing tier or type", ErrMalformedItem)
	}
	return &info, nil
}

// CompanionLevel extracts the level out of a companion display name,
// "[Lvl 100] Wolf" yields "100"
func CompanionLevel(displayName string) (string, error) {
	fields := strings.Split(displayName, " ")
	if len(fields) < 2 || len(fields[1]) < 2 {
		return "", fmt.Errorf("%w: no level in display name %q", ErrMalformedItem, displayName)
	}
	return fields[1][:len(fields[1])-1], nil
}

// Return the slot name of a multi-piece equipment identity, or an empty
// string if the identity is not one of the known sets
func linkedComponent(identity string) string {
	fields := strings.Split(identity, "_")
	if len(fields) < 2 || fields[1] == "" {
		return ""
	}
	if !sliceStringHas(LinkedSets, fields[0]) {
		return ""
	}
	return fields[1]
}

// Equipment sets whose pieces also contribute to a per-slot price
var LinkedSets = []string{
	"FERVOR", "AURORA", "TERROR", "CRIMSON", "HOLLOW", "MOLTEN",
}
