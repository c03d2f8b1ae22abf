package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	"github.com/smallbiznis/perks/internal/clock"
	obsmetrics "github.com/smallbiznis/perks/internal/observability/metrics"
	"github.com/smallbiznis/perks/internal/offer/domain"
	rewarddomain "github.com/smallbiznis/perks/internal/reward/domain"
	"github.com/smallbiznis/perks/pkg/db"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Rewards rewarddomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	rewards rewarddomain.Service
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("offer.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		rewards: p.Rewards,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOfferRequest) (domain.Offer, error) {
	createdBy, err := snowflake.ParseString(strings.TrimSpace(req.CreatedBy))
	if err != nil || createdBy == 0 {
		return domain.Offer{}, domain.ErrInvalidCreatedBy
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Offer{}, domain.ErrInvalidTitle
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Offer{}, domain.ErrInvalidDescription
	}
	businessName := strings.TrimSpace(req.BusinessName)
	if businessName == "" {
		return domain.Offer{}, domain.ErrInvalidBusinessName
	}

	category := req.Category
	if category == "" {
		category = domain.CategoryOthers
	}
	if !category.Valid() {
		return domain.Offer{}, domain.ErrInvalidCategory
	}
	if !req.DiscountType.Valid() {
		return domain.Offer{}, domain.ErrInvalidDiscountType
	}
	if req.DiscountValue < 0 {
		return domain.Offer{}, domain.ErrInvalidDiscountValue
	}
	if req.PointsRequired < 1 {
		return domain.Offer{}, domain.ErrInvalidPointsRequired
	}
	if req.MaxRedemptions != nil && *req.MaxRedemptions < 1 {
		return domain.Offer{}, domain.ErrInvalidMaxRedemptions
	}

	now := s.clock.Now()
	validFrom := now
	if req.ValidFrom != nil {
		validFrom = req.ValidFrom.UTC()
	}
	if req.ValidUntil.IsZero() || !req.ValidUntil.After(validFrom) {
		return domain.Offer{}, domain.ErrInvalidValidUntil
	}

	offer := domain.Offer{
		ID:                 s.genID.Generate(),
		Title:              title,
		Description:        description,
		BusinessName:       businessName,
		Category:           category,
		DiscountType:       req.DiscountType,
		DiscountValue:      req.DiscountValue,
		PointsRequired:     req.PointsRequired,
		TermsAndConditions: strings.TrimSpace(req.TermsAndConditions),
		ValidFrom:          validFrom,
		ValidUntil:         req.ValidUntil.UTC(),
		MaxRedemptions:     req.MaxRedemptions,
		Active:             true,
		CreatedBy:          createdBy,
		ContactInfo:        toJSONMap(req.ContactInfo),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &offer); err != nil {
		return domain.Offer{}, err
	}

	s.log.Info("offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("business_name", offer.BusinessName),
		zap.Int64("points_required", offer.PointsRequired),
	)
	return offer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOfferRequest) (domain.Offer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Offer{}, err
	}

	offer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Offer{}, err
	}
	if offer == nil {
		return domain.Offer{}, domain.ErrNotFound
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Offer{}, domain.ErrInvalidTitle
		}
		offer.Title = title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return domain.Offer{}, domain.ErrInvalidDescription
		}
		offer.Description = description
	}
	if req.Category != nil {
		if !req.Category.Valid() {
			return domain.Offer{}, domain.ErrInvalidCategory
		}
		offer.Category = *req.Category
	}
	if req.DiscountType != nil {
		if !req.DiscountType.Valid() {
			return domain.Offer{}, domain.ErrInvalidDiscountType
		}
		offer.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		if *req.DiscountValue < 0 {
			return domain.Offer{}, domain.ErrInvalidDiscountValue
		}
		offer.DiscountValue = *req.DiscountValue
	}
	if req.PointsRequired != nil {
		if *req.PointsRequired < 1 {
			return domain.Offer{}, domain.ErrInvalidPointsRequired
		}
		offer.PointsRequired = *req.PointsRequired
	}
	if req.TermsAndConditions != nil {
		offer.TermsAndConditions = strings.TrimSpace(*req.TermsAndConditions)
	}
	if req.ValidUntil != nil {
		if !req.ValidUntil.After(offer.ValidFrom) {
			return domain.Offer{}, domain.ErrInvalidValidUntil
		}
		offer.ValidUntil = req.ValidUntil.UTC()
	}
	if req.MaxRedemptions != nil {
		if *req.MaxRedemptions < 1 {
			return domain.Offer{}, domain.ErrInvalidMaxRedemptions
		}
		offer.MaxRedemptions = req.MaxRedemptions
	}
	if req.Active != nil {
		offer.Active = *req.Active
	}

	offer.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, offer); err != nil {
		return domain.Offer{}, err
	}

	return *offer, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	inactive := false
	_, err := s.Update(ctx, domain.UpdateOfferRequest{ID: id, Active: &inactive})
	return err
}

func (s *Service) List(ctx context.Context, req domain.ListOfferRequest) (domain.ListOfferResponse, error) {
	page := pagination.Pagination{Limit: req.Limit, Offset: req.Offset}.Normalize(20, 100)

	if req.Category != "" && !req.Category.Valid() {
		return domain.ListOfferResponse{}, domain.ErrInvalidCategory
	}

	filter := domain.ListOfferFilter{
		Category:  req.Category,
		MinPoints: req.MinPoints,
		MaxPoints: req.MaxPoints,
	}
	if req.AvailableOnly {
		active := true
		filter.Active = &active
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListOfferResponse{}, err
	}

	items, info := pagination.BuildPageInfo(items, page)

	now := s.clock.Now()
	offers := make([]domain.Offer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if req.AvailableOnly && !item.Available(now) {
			continue
		}
		offers = append(offers, *item)
	}

	return domain.ListOfferResponse{Offers: offers, HasMore: info.HasMore}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetOfferRequest) (domain.Offer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Offer{}, err
	}

	offer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Offer{}, err
	}
	if offer == nil {
		return domain.Offer{}, domain.ErrNotFound
	}

	return *offer, nil
}

// Redeem debits the member and increments the redemption counter in one
// transaction. The offer row lock makes the cap re-check authoritative: two
// concurrent redemptions of the last slot serialize here, and the loser gets
// ErrOfferSoldOut with no debit.
func (s *Service) Redeem(ctx context.Context, req domain.RedeemOfferRequest) (domain.RedeemOfferResult, error) {
	offerID, err := s.parseID(req.OfferID)
	if err != nil {
		return domain.RedeemOfferResult{}, err
	}

	result, category, err := s.redeemOnce(ctx, offerID, req)
	if db.IsDuplicateKeyErr(err) {
		// The generated code collided with an existing row on the unique
		// index. The transaction rolled back, so rerun with a fresh code.
		result, category, err = s.redeemOnce(ctx, offerID, req)
	}
	if err != nil {
		return domain.RedeemOfferResult{}, s.classify(err)
	}

	if s.metrics != nil {
		s.metrics.RecordOfferRedemption(ctx, string(category))
	}
	s.log.Info("offer redeemed",
		zap.String("offer_id", req.OfferID),
		zap.String("account_id", req.AccountID),
		zap.Int64("points", result.PointsDeducted),
		zap.String("code", result.RedemptionCode),
	)
	return result, nil
}

func (s *Service) redeemOnce(ctx context.Context, offerID snowflake.ID, req domain.RedeemOfferRequest) (domain.RedeemOfferResult, domain.Category, error) {
	var result domain.RedeemOfferResult
	var category domain.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offer, err := s.repo.FindByIDForUpdate(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		switch {
		case !offer.Active:
			return domain.ErrOfferInactive
		case offer.Expired(now):
			return domain.ErrOfferExpired
		case offer.SoldOut():
			return domain.ErrOfferSoldOut
		}

		mutation, err := s.rewards.DeductPointsTx(ctx, tx, rewarddomain.MutationRequest{
			AccountID:   req.AccountID,
			Amount:      offer.PointsRequired,
			Source:      rewarddomain.SourcePartnerRedemption,
			Description: fmt.Sprintf("Redeemed %s at %s", offer.DiscountText(), offer.BusinessName),
			Metadata: map[string]any{
				"partner_name":      offer.BusinessName,
				"offer_description": offer.Title,
			},
		})
		if err != nil {
			return err
		}

		if err := s.repo.IncrementRedemptions(ctx, tx, offer.ID); err != nil {
			return err
		}

		redemption := domain.Redemption{
			ID:          s.genID.Generate(),
			OfferID:     offer.ID,
			AccountID:   mutation.Entry.AccountID,
			EntryID:     mutation.Entry.ID,
			Code:        "RDM-" + ulid.Make().String(),
			PointsSpent: offer.PointsRequired,
			CreatedAt:   now,
		}
		if err := s.repo.InsertRedemption(ctx, tx, &redemption); err != nil {
			return err
		}

		category = offer.Category
		result = domain.RedeemOfferResult{
			OfferTitle:     offer.Title,
			BusinessName:   offer.BusinessName,
			DiscountText:   offer.DiscountText(),
			PointsDeducted: offer.PointsRequired,
			NewBalance:     mutation.NewBalance,
			RedemptionCode: redemption.Code,
		}
		return nil
	})
	return result, category, err
}

func (s *Service) ListRedemptions(ctx context.Context, req domain.ListRedemptionsRequest) (domain.ListRedemptionsResponse, error) {
	id, err := s.parseID(req.OfferID)
	if err != nil {
		return domain.ListRedemptionsResponse{}, err
	}

	page := pagination.Pagination{Limit: req.Limit, Offset: req.Offset}.Normalize(20, 100)
	items, err := s.repo.ListRedemptions(ctx, s.db, id, page)
	if err != nil {
		return domain.ListRedemptionsResponse{}, err
	}

	items, info := pagination.BuildPageInfo(items, page)
	redemptions := make([]domain.Redemption, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		redemptions = append(redemptions, *item)
	}

	return domain.ListRedemptionsResponse{Redemptions: redemptions, HasMore: info.HasMore}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// classify keeps domain errors intact and wraps storage failures so callers
// see the same retryable taxonomy as direct ledger mutations.
func (s *Service) classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := rewarddomain.IsInsufficientBalance(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrOfferInactive),
		errors.Is(err, domain.ErrOfferExpired),
		errors.Is(err, domain.ErrOfferSoldOut),
		errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, rewarddomain.ErrInvalidAccountID),
		errors.Is(err, rewarddomain.ErrInvalidAmount),
		errors.Is(err, rewarddomain.ErrCorruptBalance):
		return err
	default:
		return fmt.Errorf("%w: %v", rewarddomain.ErrTransactionFailed, err)
	}
}

func toJSONMap(in map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range in {
		out[k] = v
	}
	return out
}
