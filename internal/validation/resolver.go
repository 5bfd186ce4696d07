package validation

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/fjod/go_cart/cart-api/internal/domain"
)

// lineIdentity is the canonical input to the line key hash. JSON encoding
// sorts map keys, so identical identities always serialize identically.
type lineIdentity struct {
	ProductID   int64                  `json:"product_id"`
	VariationID int64                  `json:"variation_id"`
	Variation   map[string]string      `json:"variation,omitempty"`
	ExtraData   map[string]interface{} `json:"extra_data,omitempty"`
}

// GenerateLineKey returns the deterministic identity of a cart line for a
// given combination of product, variation, attributes and extra data.
// Identical inputs always produce the identical key.
func GenerateLineKey(productID, variationID int64, variation map[string]string, extraData map[string]interface{}) string {
	identity := lineIdentity{
		ProductID:   productID,
		VariationID: variationID,
		Variation:   variation,
		ExtraData:   extraData,
	}

	data, err := json.Marshal(identity)
	if err != nil {
		// Only unserializable extra data can land here; fall back to the
		// product identity alone so the key stays stable.
		data, _ = json.Marshal(lineIdentity{ProductID: productID, VariationID: variationID})
	}

	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Resolve computes the line key for the given identity and reports whether a
// line with that key already exists in the cart, so the caller can merge
// quantities instead of inserting a duplicate line. Resolve is idempotent
// against an unchanged cart.
func Resolve(cart *domain.Cart, productID, variationID int64, variation map[string]string, extraData map[string]interface{}) (string, *domain.CartLine) {
	key := GenerateLineKey(productID, variationID, variation, extraData)
	if cart == nil {
		return key, nil
	}
	return key, cart.LineByKey(key)
}
