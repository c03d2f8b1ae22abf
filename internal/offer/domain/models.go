package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryFood          Category = "food"
	CategoryRetail        Category = "retail"
	CategoryEntertainment Category = "entertainment"
	CategoryServices      Category = "services"
	CategoryHealth        Category = "health"
	CategoryTravel        Category = "travel"
	CategoryOthers        Category = "others"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryRetail, CategoryEntertainment,
		CategoryServices, CategoryHealth, CategoryTravel, CategoryOthers:
		return true
	default:
		return false
	}
}

type DiscountType string

const (
	DiscountPercentage   DiscountType = "percentage"
	DiscountFixedAmount  DiscountType = "fixed_amount"
	DiscountFreeItem     DiscountType = "free_item"
	DiscountBuyOneGetOne DiscountType = "buy_one_get_one"
)

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountPercentage, DiscountFixedAmount, DiscountFreeItem, DiscountBuyOneGetOne:
		return true
	default:
		return false
	}
}

// Offer is a partner reward that members buy with points. CurrentRedemptions
// is a counter cell with the same atomic increment-with-check discipline as an
// account balance: it only moves inside the redemption transaction, under a
// row lock, after the cap re-check.
type Offer struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	Title              string            `gorm:"not null" json:"title"`
	Description        string            `gorm:"not null" json:"description"`
	BusinessName       string            `gorm:"not null" json:"business_name"`
	Category           Category          `gorm:"not null;default:'others'" json:"category"`
	DiscountType       DiscountType      `gorm:"not null" json:"discount_type"`
	DiscountValue      float64           `gorm:"not null" json:"discount_value"`
	PointsRequired     int64             `gorm:"not null" json:"points_required"`
	TermsAndConditions string            `json:"terms_and_conditions,omitempty"`
	ValidFrom          time.Time         `gorm:"not null" json:"valid_from"`
	ValidUntil         time.Time         `gorm:"not null" json:"valid_until"`
	MaxRedemptions     *int64            `json:"max_redemptions,omitempty"`
	CurrentRedemptions int64             `gorm:"not null;default:0" json:"current_redemptions"`
	Active             bool              `gorm:"not null;default:true" json:"active"`
	CreatedBy          snowflake.ID      `gorm:"not null;index" json:"created_by"`
	ContactInfo        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"contact_info,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o Offer) Expired(now time.Time) bool {
	return now.After(o.ValidUntil)
}

func (o Offer) SoldOut() bool {
	return o.MaxRedemptions != nil && o.CurrentRedemptions >= *o.MaxRedemptions
}

func (o Offer) Available(now time.Time) bool {
	return o.Active && !o.Expired(now) && !o.SoldOut()
}

// DiscountText renders the human-readable discount label.
func (o Offer) DiscountText() string {
	switch o.DiscountType {
	case DiscountPercentage:
		return fmt.Sprintf("%g%% OFF", o.DiscountValue)
	case DiscountFixedAmount:
		return fmt.Sprintf("NPR %g OFF", o.DiscountValue)
	case DiscountFreeItem:
		return "Free Item"
	case DiscountBuyOneGetOne:
		return "Buy 1 Get 1"
	default:
		return "Special Offer"
	}
}

// Redemption records one successful offer redemption, linked to the ledger
// entry that debited the points.
type Redemption struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OfferID     snowflake.ID `gorm:"not null;index" json:"offer_id"`
	AccountID   snowflake.ID `gorm:"not null;index" json:"account_id"`
	EntryID     snowflake.ID `gorm:"not null" json:"entry_id"`
	Code        string       `gorm:"not null;uniqueIndex" json:"code"`
	PointsSpent int64        `gorm:"not null" json:"points_spent"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Redemption) TableName() string {
	return "offer_redemptions"
}
