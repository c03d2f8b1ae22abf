package domain

import (
	"context"
	"errors"
	"time"
)

type CreateOfferRequest struct {
	Title              string
	Description        string
	BusinessName       string
	Category           Category
	DiscountType       DiscountType
	DiscountValue      float64
	PointsRequired     int64
	TermsAndConditions string
	ValidFrom          *time.Time
	ValidUntil         time.Time
	MaxRedemptions     *int64
	CreatedBy          string
	ContactInfo        map[string]any
}

// UpdateOfferRequest patches mutable offer fields. Nil means "leave as is".
type UpdateOfferRequest struct {
	ID                 string
	Title              *string
	Description        *string
	Category           *Category
	DiscountType       *DiscountType
	DiscountValue      *float64
	PointsRequired     *int64
	TermsAndConditions *string
	ValidUntil         *time.Time
	MaxRedemptions     *int64
	Active             *bool
}

type ListOfferRequest struct {
	Category      Category
	MinPoints     *int64
	MaxPoints     *int64
	AvailableOnly bool
	Limit         int
	Offset        int
}

type ListOfferFilter struct {
	Category  Category
	MinPoints *int64
	MaxPoints *int64
	Active    *bool
}

type ListOfferResponse struct {
	Offers  []Offer `json:"offers"`
	HasMore bool    `json:"has_more"`
}

type GetOfferRequest struct {
	ID string
}

type RedeemOfferRequest struct {
	OfferID   string
	AccountID string
}

// RedeemOfferResult reports the committed redemption: debit and counter
// increment landed in one atomic unit.
type RedeemOfferResult struct {
	OfferTitle     string `json:"offer_title"`
	BusinessName   string `json:"business_name"`
	DiscountText   string `json:"discount_text"`
	PointsDeducted int64  `json:"points_deducted"`
	NewBalance     int64  `json:"new_balance"`
	RedemptionCode string `json:"redemption_code"`
}

type ListRedemptionsRequest struct {
	OfferID string
	Limit   int
	Offset  int
}

type ListRedemptionsResponse struct {
	Redemptions []Redemption `json:"redemptions"`
	HasMore     bool         `json:"has_more"`
}

type Service interface {
	Create(context.Context, CreateOfferRequest) (Offer, error)
	Update(context.Context, UpdateOfferRequest) (Offer, error)
	Deactivate(ctx context.Context, id string) error
	List(context.Context, ListOfferRequest) (ListOfferResponse, error)
	GetByID(context.Context, GetOfferRequest) (Offer, error)
	Redeem(context.Context, RedeemOfferRequest) (RedeemOfferResult, error)
	ListRedemptions(context.Context, ListRedemptionsRequest) (ListRedemptionsResponse, error)
}

var (
	ErrNotFound               = errors.New("offer_not_found")
	ErrInvalidID              = errors.New("invalid_offer_id")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrInvalidDescription     = errors.New("invalid_description")
	ErrInvalidBusinessName    = errors.New("invalid_business_name")
	ErrInvalidCategory        = errors.New("invalid_category")
	ErrInvalidDiscountType    = errors.New("invalid_discount_type")
	ErrInvalidDiscountValue   = errors.New("invalid_discount_value")
	ErrInvalidPointsRequired  = errors.New("invalid_points_required")
	ErrInvalidValidUntil      = errors.New("invalid_valid_until")
	ErrInvalidMaxRedemptions = errors.New("invalid_max_redemptions")
	ErrInvalidCreatedBy      = errors.New("invalid_created_by")

	ErrOfferInactive = errors.New("offer_inactive")
	ErrOfferExpired  = errors.New("offer_expired")
	// ErrOfferSoldOut is final: the cap is re-read under the offer row lock in
	// the same transaction that increments the counter.
	ErrOfferSoldOut = errors.New("offer_sold_out")
)
