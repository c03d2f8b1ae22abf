package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/internal/offer/domain"
	"github.com/smallbiznis/perks/pkg/db"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Create(offer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	err := db.WithContext(ctx).Take(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	err := db.RowLock(tx.WithContext(ctx)).
		Take(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ?", offer.ID).
		Select("title", "description", "category", "discount_type", "discount_value",
			"points_required", "terms_and_conditions", "valid_until", "max_redemptions",
			"active", "updated_at").
		Updates(offer).Error
}

func (r *repo) IncrementRedemptions(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE offers SET current_redemptions = current_redemptions + 1 WHERE id = ?`,
		id,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOfferFilter, page pagination.Pagination) ([]*domain.Offer, error) {
	var offers []*domain.Offer
	stmt := db.WithContext(ctx).Model(&domain.Offer{})
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", string(filter.Category))
	}
	if filter.MinPoints != nil {
		stmt = stmt.Where("points_required >= ?", *filter.MinPoints)
	}
	if filter.MaxPoints != nil {
		stmt = stmt.Where("points_required <= ?", *filter.MaxPoints)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(page.Limit + 1).
		Offset(page.Offset).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repo) InsertRedemption(ctx context.Context, tx *gorm.DB, redemption *domain.Redemption) error {
	return tx.WithContext(ctx).Create(redemption).Error
}

func (r *repo) ListRedemptions(ctx context.Context, db *gorm.DB, offerID snowflake.ID, page pagination.Pagination) ([]*domain.Redemption, error) {
	var redemptions []*domain.Redemption
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("offer_id = ?", offerID).
		Order("created_at desc, id desc").
		Limit(page.Limit + 1).
		Offset(page.Offset).
		Find(&redemptions).Error
	if err != nil {
		return nil, err
	}
	return redemptions, nil
}
