package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	offerdomain "github.com/smallbiznis/perks/internal/offer/domain"
	"github.com/smallbiznis/perks/pkg/db/pagination"
)

type createOfferRequest struct {
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	BusinessName       string         `json:"business_name"`
	Category           string         `json:"category"`
	DiscountType       string         `json:"discount_type"`
	DiscountValue      float64        `json:"discount_value"`
	PointsRequired     int64          `json:"points_required"`
	TermsAndConditions string         `json:"terms_and_conditions"`
	ValidFrom          *time.Time     `json:"valid_from"`
	ValidUntil         time.Time      `json:"valid_until"`
	MaxRedemptions     *int64         `json:"max_redemptions"`
	CreatedBy          string         `json:"created_by"`
	ContactInfo        map[string]any `json:"contact_info"`
}

type updateOfferRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	Category           *string    `json:"category"`
	DiscountType       *string    `json:"discount_type"`
	DiscountValue      *float64   `json:"discount_value"`
	PointsRequired     *int64     `json:"points_required"`
	TermsAndConditions *string    `json:"terms_and_conditions"`
	ValidUntil         *time.Time `json:"valid_until"`
	MaxRedemptions     *int64     `json:"max_redemptions"`
	Active             *bool      `json:"active"`
}

type redeemOfferRequest struct {
	AccountID string `json:"account_id"`
}

func (s *Server) CreateOffer(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.offerSvc.Create(c.Request.Context(), offerdomain.CreateOfferRequest{
		Title:              req.Title,
		Description:        req.Description,
		BusinessName:       req.BusinessName,
		Category:           offerdomain.Category(strings.TrimSpace(req.Category)),
		DiscountType:       offerdomain.DiscountType(strings.TrimSpace(req.DiscountType)),
		DiscountValue:      req.DiscountValue,
		PointsRequired:     req.PointsRequired,
		TermsAndConditions: req.TermsAndConditions,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		MaxRedemptions:     req.MaxRedemptions,
		CreatedBy:          req.CreatedBy,
		ContactInfo:        req.ContactInfo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOffers(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Category      string `form:"category"`
		MinPoints     string `form:"min_points"`
		MaxPoints     string `form:"max_points"`
		AvailableOnly string `form:"available_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	minPoints, err := parseOptionalInt64(query.MinPoints)
	if err != nil {
		AbortWithError(c, newValidationError("min_points", "invalid_min_points", "invalid min_points"))
		return
	}
	maxPoints, err := parseOptionalInt64(query.MaxPoints)
	if err != nil {
		AbortWithError(c, newValidationError("max_points", "invalid_max_points", "invalid max_points"))
		return
	}
	availableOnly, err := parseOptionalBool(query.AvailableOnly)
	if err != nil {
		AbortWithError(c, newValidationError("available_only", "invalid_available_only", "invalid available_only"))
		return
	}

	resp, err := s.offerSvc.List(c.Request.Context(), offerdomain.ListOfferRequest{
		Category:      offerdomain.Category(strings.TrimSpace(query.Category)),
		MinPoints:     minPoints,
		MaxPoints:     maxPoints,
		AvailableOnly: availableOnly != nil && *availableOnly,
		Limit:         query.Limit,
		Offset:        query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOfferByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.offerSvc.GetByID(c.Request.Context(), offerdomain.GetOfferRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateOffer(c *gin.Context) {
	var req updateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := offerdomain.UpdateOfferRequest{
		ID:                 strings.TrimSpace(c.Param("id")),
		Title:              req.Title,
		Description:        req.Description,
		DiscountValue:      req.DiscountValue,
		PointsRequired:     req.PointsRequired,
		TermsAndConditions: req.TermsAndConditions,
		ValidUntil:         req.ValidUntil,
		MaxRedemptions:     req.MaxRedemptions,
		Active:             req.Active,
	}
	if req.Category != nil {
		category := offerdomain.Category(strings.TrimSpace(*req.Category))
		update.Category = &category
	}
	if req.DiscountType != nil {
		discountType := offerdomain.DiscountType(strings.TrimSpace(*req.DiscountType))
		update.DiscountType = &discountType
	}

	resp, err := s.offerSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateOffer(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.offerSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "active": false}})
}

func (s *Server) RedeemOffer(c *gin.Context) {
	var req redeemOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.offerSvc.Redeem(c.Request.Context(), offerdomain.RedeemOfferRequest{
		OfferID:   strings.TrimSpace(c.Param("id")),
		AccountID: strings.TrimSpace(req.AccountID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOfferRedemptions(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.offerSvc.ListRedemptions(c.Request.Context(), offerdomain.ListRedemptionsRequest{
		OfferID: strings.TrimSpace(c.Param("id")),
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isOfferValidationError(err error) bool {
	switch err {
	case offerdomain.ErrInvalidID,
		offerdomain.ErrInvalidTitle,
		offerdomain.ErrInvalidDescription,
		offerdomain.ErrInvalidBusinessName,
		offerdomain.ErrInvalidCategory,
		offerdomain.ErrInvalidDiscountType,
		offerdomain.ErrInvalidDiscountValue,
		offerdomain.ErrInvalidPointsRequired,
		offerdomain.ErrInvalidValidUntil,
		offerdomain.ErrInvalidMaxRedemptions,
		offerdomain.ErrInvalidCreatedBy:
		return true
	default:
		return false
	}
}
