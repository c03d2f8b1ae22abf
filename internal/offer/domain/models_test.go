package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscountText(t *testing.T) {
	assert.Equal(t, "15% OFF", Offer{DiscountType: DiscountPercentage, DiscountValue: 15}.DiscountText())
	assert.Equal(t, "NPR 250 OFF", Offer{DiscountType: DiscountFixedAmount, DiscountValue: 250}.DiscountText())
	assert.Equal(t, "Free Item", Offer{DiscountType: DiscountFreeItem}.DiscountText())
	assert.Equal(t, "Buy 1 Get 1", Offer{DiscountType: DiscountBuyOneGetOne}.DiscountText())
	assert.Equal(t, "Special Offer", Offer{DiscountType: "unknown"}.DiscountText())
}

func TestOfferAvailability(t *testing.T) {
	now := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	max := int64(2)

	offer := Offer{
		Active:     true,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: now.Add(time.Hour),
	}
	assert.True(t, offer.Available(now))

	expired := offer
	expired.ValidUntil = now.Add(-time.Minute)
	assert.True(t, expired.Expired(now))
	assert.False(t, expired.Available(now))

	inactive := offer
	inactive.Active = false
	assert.False(t, inactive.Available(now))

	soldOut := offer
	soldOut.MaxRedemptions = &max
	soldOut.CurrentRedemptions = 2
	assert.True(t, soldOut.SoldOut())
	assert.False(t, soldOut.Available(now))

	uncapped := offer
	uncapped.CurrentRedemptions = 1_000_000
	assert.False(t, uncapped.SoldOut())
}
