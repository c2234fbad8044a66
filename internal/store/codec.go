package store

import (
	"encoding/json"
	"time"

	"cedra_checkout/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"
)

// toCQLDecimal convertit vers le type CQL decimal sans perte de précision
func toCQLDecimal(d decimal.Decimal) *inf.Dec {
	return inf.NewDecBig(d.Coefficient(), inf.Scale(-d.Exponent()))
}

func fromCQLDecimal(d *inf.Dec) decimal.Decimal {
	if d == nil || d.UnscaledBig() == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledBig(), -int32(d.Scale()))
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func encodeShipping(s models.ShippingDetails) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

func decodeShipping(raw string) (models.ShippingDetails, error) {
	var s models.ShippingDetails
	if raw == "" {
		return s, nil
	}
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}

func encodeItems(items []models.CartItem) (string, error) {
	b, err := json.Marshal(items)
	return string(b), err
}

func decodeItems(raw string) ([]models.CartItem, error) {
	var items []models.CartItem
	if raw == "" {
		return items, nil
	}
	err := json.Unmarshal([]byte(raw), &items)
	return items, err
}
