// Package itemdata decodes the item blobs attached to auction listings.
// A blob is a base64 string wrapping a gzip-compressed NBT document, whose
// root holds a list of items under the "i" key.
package itemdata

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"

	"github.com/skyban/go-skyban/skyban"
)

type nbtRoot struct {
	Items []nbtItem `nbt:"i"`
}

type nbtItem struct {
	ID    int16  `nbt:"id"`
	Count int8   `nbt:"Count"`
	Tag   nbtTag `nbt:"tag"`
}

type nbtTag struct {
	ExtraAttributes nbtExtra   `nbt:"ExtraAttributes"`
	Display         nbtDisplay `nbt:"display"`
}

type nbtExtra struct {
	ID         string           `nbt:"id"`
	PetInfo    string           `nbt:"petInfo"`
	Runes      map[string]int32 `nbt:"runes"`
	Attributes map[string]int32 `nbt:"attributes"`
}

type nbtDisplay struct {
	Name string `nbt:"Name"`
}

// Decoder implements skyban.Decoder for auction item blobs
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode returns the payload of the first item of the blob
func (d *Decoder) Decode(itemBytes string) (*skyban.ItemPayload, error) {
	items, err := DecodeAll(itemBytes)
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// DecodeAll returns the payloads of all the items of the blob, failing if
// there are none
func DecodeAll(itemBytes string) ([]*skyban.ItemPayload, error) {
	if itemBytes == "" {
		return nil, fmt.Errorf("%w: empty item data", skyban.ErrDecodeFailure)
	}

	raw, err := base64.StdEncoding.DecodeString(itemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", skyban.ErrDecodeFailure, err)
	}

	root, err := readRoot(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", skyban.ErrDecodeFailure, err)
	}
	if len(root.Items) == 0 {
		return nil, fmt.Errorf("%w: no items found", skyban.ErrDecodeFailure)
	}

	var out []*skyban.ItemPayload
	for _, item := range root.Items {
		out = append(out, item.payload())
	}
	return out, nil
}

func readRoot(r io.Reader) (*nbtRoot, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var root nbtRoot
	_, err = nbt.NewDecoder(gz).Decode(&root)
	if err != nil {
		return nil, err
	}
	return &root, nil
}

func (item nbtItem) payload() *skyban.ItemPayload {
	extra := item.Tag.ExtraAttributes
	return &skyban.ItemPayload{
		ID:          extra.ID,
		PetInfo:     extra.PetInfo,
		Runes:       toInts(extra.Runes),
		Attributes:  toInts(extra.Attributes),
		DisplayName: item.Tag.Display.Name,
	}
}

func toInts(in map[string]int32) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for key, value := range in {
		out[key] = int(value)
	}
	return out
}

// Encode builds an item blob out of payloads, the reverse of DecodeAll
func Encode(payloads ...*skyban.ItemPayload) (string, error) {
	var root nbtRoot
	for _, payload := range payloads {
		root.Items = append(root.Items, nbtItem{
			ID:    1,
			Count: 1,
			Tag: nbtTag{
				ExtraAttributes: nbtExtra{
					ID:         payload.ID,
					PetInfo:    payload.PetInfo,
					Runes:      toInt32s(payload.Runes),
					Attributes: toInt32s(payload.Attributes),
				},
				Display: nbtDisplay{
					Name: payload.DisplayName,
				},
			},
		})
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	err := nbt.NewEncoder(gz).Encode(root, "")
	if err != nil {
		return "", err
	}
	err = gz.Close()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func toInt32s(in map[string]int) map[string]int32 {
	out := make(map[string]int32, len(in))
	for key, value := range in {
		out[key] = int32(value)
	}
	return out
}
