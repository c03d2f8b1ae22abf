package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MutationRequest describes one balance change. Callers that need retry
// deduplication can put their own key in Metadata; the ledger itself does not
// dedupe.
type MutationRequest struct {
	AccountID        string
	Amount           int64
	Source           Source
	Description      string
	Metadata         map[string]any
	RelatedEventID   *snowflake.ID
	RelatedPaymentID *snowflake.ID
}

// MutationResult returns the new balance together with the entry that caused
// it, so callers can display both.
type MutationResult struct {
	NewBalance int64 `json:"new_balance"`
	Entry      Entry `json:"entry"`
}

type TicketPurchaseRequest struct {
	AccountID    string
	TicketAmount int64
	TicketCount  int
	TierLabel    string
	EventID      *snowflake.ID
	PaymentID    *snowflake.ID
}

// TicketPurchaseResult reports the credited points. PointsEarned of zero means
// the purchase was below the earn threshold and no entry was written.
type TicketPurchaseResult struct {
	PointsEarned int64  `json:"points_earned"`
	NewBalance   int64  `json:"new_balance"`
	Entry        *Entry `json:"entry,omitempty"`
}

type HistoryRequest struct {
	AccountID string
	Limit     int
	Offset    int
}

type HistoryResponse struct {
	Entries []Entry `json:"entries"`
	HasMore bool    `json:"has_more"`
}

type Stats struct {
	CurrentBalance int64 `json:"current_balance"`
	MonthlyEarned  int64 `json:"monthly_earned"`
	TotalEarned    int64 `json:"total_earned"`
	TotalRedeemed  int64 `json:"total_redeemed"`
}

type Dashboard struct {
	Stats
	RecentActivity []Entry `json:"recent_activity"`
}

// Service is the balance mutator, redemption engine and statistics aggregator
// over the points ledger.
type Service interface {
	// AddPoints atomically increments the balance and appends an earned entry.
	AddPoints(context.Context, MutationRequest) (MutationResult, error)
	// DeductPoints atomically checks sufficiency, decrements the balance and
	// appends a redeemed entry. The check and the decrement share one
	// transaction, so concurrent debits cannot jointly overdraw.
	DeductPoints(context.Context, MutationRequest) (MutationResult, error)

	// DeductPointsTx is DeductPoints running inside the caller's transaction,
	// for flows that need the debit atomic with their own writes.
	DeductPointsTx(ctx context.Context, tx *gorm.DB, req MutationRequest) (MutationResult, error)
	// AddPointsTx is the credit-path equivalent of DeductPointsTx.
	AddPointsTx(ctx context.Context, tx *gorm.DB, req MutationRequest) (MutationResult, error)

	// ConfirmTicketPurchase applies the earn policy to a confirmed purchase and
	// credits the resulting points.
	ConfirmTicketPurchase(context.Context, TicketPurchaseRequest) (TicketPurchaseResult, error)

	Balance(ctx context.Context, accountID string) (int64, error)
	History(context.Context, HistoryRequest) (HistoryResponse, error)
	Stats(ctx context.Context, accountID string) (Stats, error)
	Dashboard(ctx context.Context, accountID string) (Dashboard, error)
}

var (
	ErrInvalidAccountID   = errors.New("invalid_account_id")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidSource      = errors.New("invalid_source")
	ErrInvalidDescription = errors.New("invalid_description")

	// ErrCorruptBalance marks an account whose stored balance is negative.
	// Debits against such an account are refused until it is reconciled.
	ErrCorruptBalance = errors.New("corrupt_balance")

	// ErrTransactionFailed wraps storage failures inside the atomic unit. The
	// unit rolls back completely, so the whole operation is safe to retry.
	ErrTransactionFailed = errors.New("transaction_failed")
)

// InsufficientBalanceError carries the amounts the caller needs for UX.
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient_balance: required %d, available %d", e.Required, e.Available)
}

func IsInsufficientBalance(err error) (*InsufficientBalanceError, bool) {
	var target *InsufficientBalanceError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
