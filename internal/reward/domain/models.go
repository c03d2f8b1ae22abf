package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Direction says whether an entry credits or debits the account balance.
type Direction string

const (
	DirectionEarned   Direction = "earned"
	DirectionRedeemed Direction = "redeemed"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionEarned, DirectionRedeemed:
		return true
	default:
		return false
	}
}

// Source is the business reason an entry exists.
type Source string

const (
	SourceTicketPurchase    Source = "ticket_purchase"
	SourceEventAttendance   Source = "event_attendance"
	SourceEventHosting      Source = "event_hosting"
	SourcePartnerRedemption Source = "partner_redemption"
	SourceAdminAdjustment   Source = "admin_adjustment"
)

func (s Source) Valid() bool {
	switch s {
	case SourceTicketPurchase, SourceEventAttendance, SourceEventHosting,
		SourcePartnerRedemption, SourceAdminAdjustment:
		return true
	default:
		return false
	}
}

// Entry is one immutable record in the append-only points ledger. Entries are
// never updated or deleted; corrections are made with offsetting entries.
// Snowflake IDs are time-ordered, so insertion order is causal order per account.
type Entry struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID        snowflake.ID      `gorm:"not null;index:idx_ledger_entries_account,priority:1" json:"account_id"`
	Direction        Direction         `gorm:"not null" json:"direction"`
	Source           Source            `gorm:"not null" json:"source"`
	Amount           int64             `gorm:"not null" json:"amount"`
	Description      string            `gorm:"not null" json:"description"`
	RelatedEventID   *snowflake.ID     `json:"related_event_id,omitempty"`
	RelatedPaymentID *snowflake.ID     `json:"related_payment_id,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_ledger_entries_account,priority:2,sort:desc" json:"created_at"`
}

func (Entry) TableName() string {
	return "ledger_entries"
}

// SignedAmount is the entry's contribution to the account balance.
func (e Entry) SignedAmount() int64 {
	if e.Direction == DirectionRedeemed {
		return -e.Amount
	}
	return e.Amount
}
