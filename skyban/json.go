package skyban

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"time"
)

type priceRecordJSON struct {
	LowestPrice     float64                 `json:"lbin,omitempty"`
	Timestamp       float64                 `json:"timestamp,omitempty"`
	Levels          map[string]*PriceRecord `json:"levels,omitempty"`
	Attributes      map[string]*PriceRecord `json:"attributes,omitempty"`
	AttributeCombos map[string]*PriceRecord `json:"attribute_combos,omitempty"`
}

func toUnixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromUnixSeconds(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3)
}

func (r PriceRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(&priceRecordJSON{
		LowestPrice:     r.LowestPrice,
		Timestamp:       toUnixSeconds(r.LastUpdated),
		Levels:          r.Levels,
		Attributes:      r.Attributes,
		AttributeCombos: r.AttributeCombos,
	})
}

// UnmarshalJSON accepts both the object form and the bare number that older
// snapshots used for nested prices; the latter has no timestamp until the
// record is upgraded.
func (r *PriceRecord) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var price float64
		err := json.Unmarshal(data, &price)
		if err != nil {
			return err
		}
		*r = *NewPriceRecord(price, time.Time{})
		return nil
	}

	var aux priceRecordJSON
	err := json.Unmarshal(data, &aux)
	if err != nil {
		return err
	}

	*r = PriceRecord{
		LowestPrice:     aux.LowestPrice,
		LastUpdated:     fromUnixSeconds(aux.Timestamp),
		Levels:          dropNil(aux.Levels),
		Attributes:      dropNil(aux.Attributes),
		AttributeCombos: dropNil(aux.AttributeCombos),
	}
	r.ensureMaps()
	return nil
}

func dropNil(records map[string]*PriceRecord) map[string]*PriceRecord {
	for key, record := range records {
		if record == nil {
			delete(records, key)
		}
	}
	return records
}

func WriteIndexToJSON(index PriceIndex, w io.Writer) error {
	return json.NewEncoder(w).Encode(index)
}

func ReadIndexFromJSON(r io.Reader) (PriceIndex, error) {
	var index PriceIndex

	err := json.NewDecoder(r).Decode(&index)
	if err != nil {
		return nil, err
	}
	if index == nil {
		index = PriceIndex{}
	}
	for identity, record := range index {
		if record == nil {
			delete(index, identity)
		}
	}

	return index, nil
}

func WriteExportToJSON(export ExportIndex, w io.Writer) error {
	return json.NewEncoder(w).Encode(export)
}
