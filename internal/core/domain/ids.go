package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// noVariant renders an absent variant in cap record keys. Variant ids equal
// to it are rejected by Key.Validate so the rendering stays unambiguous.
const noVariant = "nosize"

var ErrInvalidKey = errors.New("invalid cart key")

type ItemID string

type VariantID string

type CategoryID string

// NoVariant identifies a line sold without a variant.
const NoVariant VariantID = ""

func (id *ItemID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = ItemID(s)
	return err
}

func (id *VariantID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = VariantID(s)
	return err
}

func (id *CategoryID) UnmarshalJSON(data []byte) error {
	s, err := decodeID(data)
	*id = CategoryID(s)
	return err
}

// decodeID accepts ids written either as JSON strings or as JSON numbers.
func decodeID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}

// Key is the identity of a cart line and of a stock cap.
type Key struct {
	ItemID    ItemID
	VariantID VariantID
}

func NewKey(itemID ItemID, variantID VariantID) Key {
	return Key{ItemID: itemID, VariantID: variantID}
}

// String renders "<itemId>:<variantId>" with "nosize" standing in for an
// absent variant.
func (k Key) String() string {
	if !k.HasVariant() {
		return string(k.ItemID) + ":" + noVariant
	}
	return string(k.ItemID) + ":" + string(k.VariantID)
}

func (k Key) HasVariant() bool {
	return k.VariantID != NoVariant
}

func (k Key) Validate() error {
	switch {
	case k.ItemID == "":
		return fmt.Errorf("%w: item id is required", ErrInvalidKey)
	case strings.Contains(string(k.ItemID), ":"):
		return fmt.Errorf("%w: item id %q contains ':'", ErrInvalidKey, k.ItemID)
	case k.VariantID == noVariant:
		return fmt.Errorf("%w: variant id %q is reserved", ErrInvalidKey, k.VariantID)
	}
	return nil
}
