package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/internal/reward/domain"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries
		 (id, account_id, direction, source, amount, description, related_event_id, related_payment_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AccountID,
		string(entry.Direction),
		string(entry.Source),
		entry.Amount,
		entry.Description,
		entry.RelatedEventID,
		entry.RelatedPaymentID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID, page pagination.Pagination) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("account_id = ?", accountID).
		Order("created_at desc, id desc").
		Limit(page.Limit + 1).
		Offset(page.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumByDirection(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, int64, error) {
	var rows []struct {
		Direction string
		Total     int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT direction, COALESCE(SUM(amount), 0) AS total
		 FROM ledger_entries WHERE account_id = ?
		 GROUP BY direction`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var earned, redeemed int64
	for _, row := range rows {
		switch domain.Direction(row.Direction) {
		case domain.DirectionEarned:
			earned = row.Total
		case domain.DirectionRedeemed:
			redeemed = row.Total
		}
	}
	return earned, redeemed, nil
}

func (r *repo) SumEarnedSince(ctx context.Context, db *gorm.DB, accountID snowflake.ID, since time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM ledger_entries
		 WHERE account_id = ? AND direction = ? AND created_at >= ?`,
		accountID,
		string(domain.DirectionEarned),
		since,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
