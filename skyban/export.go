package skyban

import (
	"sort"
)

// ExportRecord is a PriceRecord stripped of its bookkeeping, as sent to
// remote aggregators
type ExportRecord struct {
	LowestPrice     float64                 `json:"lbin,omitempty"`
	Levels          map[string]ExportRecord `json:"levels,omitempty"`
	Attributes      map[string]ExportRecord `json:"attributes,omitempty"`
	AttributeCombos map[string]ExportRecord `json:"attribute_combos,omitempty"`
}

// The base map containing an item identity pointing to its exported record
type ExportIndex map[string]ExportRecord

// PruneForExport returns a copy of the index without timestamps, dropping
// any record priced below low, or below comboLow for combo records.
// Empty maps and records left with no data are omitted.
func (idx PriceIndex) PruneForExport(low, comboLow float64) ExportIndex {
	out := ExportIndex{}
	for identity, record := range idx {
		if record == nil {
			continue
		}
		if record.HasPrice() && record.LowestPrice < low {
			continue
		}

		entry := ExportRecord{
			LowestPrice:     record.LowestPrice,
			Levels:          pruneLeaves(record.Levels, low),
			Attributes:      pruneLeaves(record.Attributes, low),
			AttributeCombos: pruneLeaves(record.AttributeCombos, comboLow),
		}
		if !record.HasPrice() && entry.Levels == nil && entry.Attributes == nil && entry.AttributeCombos == nil {
			continue
		}
		out[identity] = entry
	}
	return out
}

func pruneLeaves(records map[string]*PriceRecord, low float64) map[string]ExportRecord {
	var out map[string]ExportRecord
	for key, record := range records {
		if record == nil || !record.HasPrice() || record.LowestPrice < low {
			continue
		}
		if out == nil {
			out = map[string]ExportRecord{}
		}
		out[key] = ExportRecord{
			LowestPrice: record.LowestPrice,
		}
	}
	return out
}

const (
	KindItem      = "item"
	KindLevel     = "level"
	KindAttribute = "attribute"
	KindCombo     = "combo"
)

// ExportRow is a single flattened price of an ExportIndex
type ExportRow struct {
	Key   string  `json:"key"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price"`
}

// Rows flattens the index into one row per price, sorted by key, kind
// and name
func (idx ExportIndex) Rows() []ExportRow {
	var rows []ExportRow
	for key, record := range idx {
		if record.LowestPrice > 0 {
			rows = append(rows, ExportRow{Key: key, Kind: KindItem, Price: record.LowestPrice})
		}
		for name, child := range record.Levels {
			rows = append(rows, ExportRow{Key: key, Kind: KindLevel, Name: name, Price: child.LowestPrice})
		}
		for name, child := range record.Attributes {
			rows = append(rows, ExportRow{Key: key, Kind: KindAttribute, Name: name, Price: child.LowestPrice})
		}
		for name, child := range record.AttributeCombos {
			rows = append(rows, ExportRow{Key: key, Kind: KindCombo, Name: name, Price: child.LowestPrice})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
