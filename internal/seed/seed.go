package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	offerdomain "github.com/smallbiznis/perks/internal/offer/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoAccountName = "Demo Member"

// EnsureDemoData seeds a demo account and a few sample offers so a local
// instance is explorable without any manual setup. Idempotent: it only writes
// when the tables are empty.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, err := ensureDemoAccountTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureSampleOffersTx(ctx, tx, node, creator)
	})
}

func ensureDemoAccountTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (snowflake.ID, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&accountdomain.Account{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		var existing accountdomain.Account
		if err := tx.WithContext(ctx).Order("created_at asc").First(&existing).Error; err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	now := time.Now().UTC()
	account := accountdomain.Account{
		ID:          node.Generate(),
		DisplayName: demoAccountName,
		Balance:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}

func ensureSampleOffersTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, createdBy snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&offerdomain.Offer{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	maxCoffee := int64(100)
	offers := []offerdomain.Offer{
		{
			ID:             node.Generate(),
			Title:          "Free Coffee",
			Description:    "One free coffee of any size",
			BusinessName:   "Himalayan Java",
			Category:       offerdomain.CategoryFood,
			DiscountType:   offerdomain.DiscountFreeItem,
			PointsRequired: 50,
			ValidFrom:      now,
			ValidUntil:     now.AddDate(0, 3, 0),
			MaxRedemptions: &maxCoffee,
			Active:         true,
			CreatedBy:      createdBy,
			ContactInfo:    datatypes.JSONMap{"phone": "01-4444444"},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             node.Generate(),
			Title:          "Movie Night Discount",
			Description:    "15% off any movie ticket",
			BusinessName:   "QFX Cinemas",
			Category:       offerdomain.CategoryEntertainment,
			DiscountType:   offerdomain.DiscountPercentage,
			DiscountValue:  15,
			PointsRequired: 120,
			ValidFrom:      now,
			ValidUntil:     now.AddDate(0, 6, 0),
			Active:         true,
			CreatedBy:      createdBy,
			ContactInfo:    datatypes.JSONMap{},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	return tx.WithContext(ctx).Create(&offers).Error
}
