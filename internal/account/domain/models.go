package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account holds a user's current reward-point balance. The balance is mutated
// only through the reward service, inside the same transaction that appends
// the matching ledger entry.
type Account struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	DisplayName string       `gorm:"not null" json:"display_name"`
	Balance     int64        `gorm:"not null;default:0" json:"balance"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
