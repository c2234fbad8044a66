package store

import (
	"errors"

	"cedra_checkout/internal/models"
)

var (
	errDuplicateRef   = errors.New("external reference already exists")
	errStockContended = errors.New("stock update lost too many races")
)

// maxStockAttempts borne la boucle compare-and-set sur le stock
const maxStockAttempts = 8

// saleRefTTLSeconds : durée de conservation d'un paiement appliqué au stock (90 jours).
// Au-delà, la bascule materialized de la transaction suffit à bloquer une reprise.
const saleRefTTLSeconds = 90 * 24 * 60 * 60

// applyDecrement calcule le stock restant, borné à zéro, et le manque éventuel
func applyDecrement(stock, qty int) models.StockResult {
	if qty <= 0 {
		return models.StockResult{Remaining: stock}
	}
	if stock >= qty {
		return models.StockResult{Remaining: stock - qty}
	}
	if stock < 0 {
		stock = 0
	}
	return models.StockResult{Remaining: 0, Backordered: qty - stock}
}
