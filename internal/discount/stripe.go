package discount

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cedra_checkout/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/coupon"
)

// StripeSource lit les coupons Stripe dont l'identifiant est le code promo.
// stripe.Key doit être renseignée au démarrage.
type StripeSource struct{}

func NewStripeSource() *StripeSource {
	return &StripeSource{}
}

func (s *StripeSource) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	params := &stripe.CouponParams{}
	params.Context = ctx

	c, err := coupon.Get(code, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, models.ErrNotFound
		}
		return nil, models.Storage("stripe coupon", err)
	}
	return fromStripeCoupon(code, c), nil
}

func fromStripeCoupon(code string, c *stripe.Coupon) *models.Discount {
	d := &models.Discount{
		ID:      c.ID,
		Code:    code,
		Percent: decimal.NewFromFloat(c.PercentOff).Round(2),
		Active:  c.Valid,
	}
	// Un coupon à montant fixe devient un plafond de remise
	if c.AmountOff > 0 {
		d.MaxDiscountAmount = decimal.New(c.AmountOff, -2)
	}
	if c.Created > 0 {
		start := time.Unix(c.Created, 0).UTC()
		d.StartsAt = &start
	}
	if c.RedeemBy > 0 {
		end := time.Unix(c.RedeemBy, 0).UTC()
		d.ExpiresAt = &end
	}
	return d
}
