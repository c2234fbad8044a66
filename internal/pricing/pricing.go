// Package pricing calcule le montant d'un panier : total, remise, taxe et net à payer.
package pricing

import (
	"time"

	"cedra_checkout/internal/models"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultTaxRate est la TVA appliquée quand aucun taux n'est configuré
	DefaultTaxRate = decimal.RequireFromString("0.09")
)

type Breakdown struct {
	Total         decimal.Decimal `json:"total"`
	Discount      decimal.Decimal `json:"discount"`
	AfterDiscount decimal.Decimal `json:"afterDiscount"`
	Tax           decimal.Decimal `json:"tax"`
	Payable       decimal.Decimal `json:"payable"`
}

// Rounded retourne la même ventilation arrondie au centime
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		Total:         b.Total.Round(2),
		Discount:      b.Discount.Round(2),
		AfterDiscount: b.AfterDiscount.Round(2),
		Tax:           b.Tax.Round(2),
		Payable:       b.Payable.Round(2),
	}
}

// Calculate est pur : aucune lecture d'horloge ni de stockage.
// Les quantités négatives sont ignorées, le pourcentage est borné à [0,100].
func Calculate(items []models.CartItem, taxRate decimal.Decimal) Breakdown {
	total := decimal.Zero
	discount := decimal.Zero

	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(gross)
		discount = discount.Add(gross.Mul(clampPercent(item.DiscountPercent)).Div(hundred))
	}

	after := total.Sub(discount)
	tax := after.Mul(taxRate)

	return Breakdown{
		Total:         total,
		Discount:      discount,
		AfterDiscount: after,
		Tax:           tax,
		Payable:       after.Add(tax),
	}
}

// EffectiveDiscountPercent retourne la remise applicable à l'instant now.
// Sans fenêtre de dates la remise s'applique toujours (comportement historique, à confirmer).
func EffectiveDiscountPercent(percent decimal.Decimal, start, end *time.Time, now time.Time) decimal.Decimal {
	if start == nil && end == nil {
		return clampPercent(percent)
	}
	if start != nil && now.Before(*start) {
		return decimal.Zero
	}
	if end != nil && now.After(*end) {
		return decimal.Zero
	}
	return clampPercent(percent)
}

func clampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
