package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository is the append-only entry store. There is deliberately no update
// or delete operation.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *Entry) error
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]*Entry, error)
	SumByDirection(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (earned, redeemed int64, err error)
	SumEarnedSince(ctx context.Context, db *gorm.DB, accountID snowflake.ID, since time.Time) (int64, error)
}
