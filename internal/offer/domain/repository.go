package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, offer *Offer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Offer, error)
	// FindByIDForUpdate locks the offer row for the duration of the caller's
	// transaction.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Offer, error)
	Update(ctx context.Context, db *gorm.DB, offer *Offer) error
	IncrementRedemptions(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListOfferFilter, page pagination.Pagination) ([]*Offer, error)

	InsertRedemption(ctx context.Context, tx *gorm.DB, redemption *Redemption) error
	ListRedemptions(ctx context.Context, db *gorm.DB, offerID snowflake.ID, page pagination.Pagination) ([]*Redemption, error)
}
