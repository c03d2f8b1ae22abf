package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	"github.com/smallbiznis/perks/internal/clock"
	"github.com/smallbiznis/perks/internal/config"
	"github.com/smallbiznis/perks/internal/lock"
	obsmetrics "github.com/smallbiznis/perks/internal/observability/metrics"
	"github.com/smallbiznis/perks/internal/reward/domain"
	"github.com/smallbiznis/perks/pkg/db"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// accountLockTTL bounds how long a crashed replica can hold the advisory lock.
const accountLockTTL = 5 * time.Second

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PolicyHolder
	Repo     domain.Repository
	Accounts accountdomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Locker   *lock.Locker        `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PolicyHolder
	repo     domain.Repository
	accounts accountdomain.Repository
	metrics  *obsmetrics.Metrics
	locker   *lock.Locker
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reward.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		accounts: p.Accounts,
		metrics:  p.Metrics,
		locker:   p.Locker,
	}
}

func (s *Service) AddPoints(ctx context.Context, req domain.MutationRequest) (domain.MutationResult, error) {
	return s.mutate(ctx, req, domain.DirectionEarned)
}

func (s *Service) DeductPoints(ctx context.Context, req domain.MutationRequest) (domain.MutationResult, error) {
	return s.mutate(ctx, req, domain.DirectionRedeemed)
}

func (s *Service) AddPointsTx(ctx context.Context, tx *gorm.DB, req domain.MutationRequest) (domain.MutationResult, error) {
	accountID, err := s.validate(req)
	if err != nil {
		return domain.MutationResult{}, err
	}
	return s.apply(ctx, tx, accountID, req, domain.DirectionEarned)
}

func (s *Service) DeductPointsTx(ctx context.Context, tx *gorm.DB, req domain.MutationRequest) (domain.MutationResult, error) {
	accountID, err := s.validate(req)
	if err != nil {
		return domain.MutationResult{}, err
	}
	return s.apply(ctx, tx, accountID, req, domain.DirectionRedeemed)
}

// mutate runs one balance change as its own transaction. The account row lock
// taken inside apply serializes concurrent mutations per account; operations
// on different accounts do not block each other.
func (s *Service) mutate(ctx context.Context, req domain.MutationRequest, direction domain.Direction) (domain.MutationResult, error) {
	accountID, err := s.validate(req)
	if err != nil {
		return domain.MutationResult{}, err
	}

	// Best-effort advisory lock across replicas. The row lock below is the
	// correctness authority; this only reduces lock contention in the store.
	if s.locker != nil {
		key := "reward:account:" + accountID.String()
		if token, ok, lockErr := s.locker.TryLock(ctx, key, accountLockTTL); lockErr == nil && ok {
			defer func() {
				_ = s.locker.Release(context.WithoutCancel(ctx), key, token)
			}()
		}
	}

	var result domain.MutationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applyErr error
		result, applyErr = s.apply(ctx, tx, accountID, req, direction)
		return applyErr
	})
	if err != nil {
		return domain.MutationResult{}, s.classify(err)
	}

	s.record(ctx, direction, req.Source)
	return result, nil
}

// apply performs the two writes of the atomic unit: the balance update on the
// row-locked account and the ledger entry append. Callers own the transaction.
func (s *Service) apply(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, req domain.MutationRequest, direction domain.Direction) (domain.MutationResult, error) {
	var account accountdomain.Account
	err := db.RowLock(tx.WithContext(ctx)).
		Take(&account, "id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.MutationResult{}, accountdomain.ErrNotFound
	}
	if err != nil {
		return domain.MutationResult{}, err
	}

	if account.Balance < 0 {
		s.log.Error("account balance is negative, refusing mutation",
			zap.String("account_id", account.ID.String()),
			zap.Int64("balance", account.Balance),
		)
		return domain.MutationResult{}, domain.ErrCorruptBalance
	}

	newBalance := account.Balance + req.Amount
	if direction == domain.DirectionRedeemed {
		if account.Balance < req.Amount {
			s.recordInsufficient(ctx, req.Source)
			return domain.MutationResult{}, &domain.InsufficientBalanceError{
				Required:  req.Amount,
				Available: account.Balance,
			}
		}
		newBalance = account.Balance - req.Amount
	}

	now := s.clock.Now()
	if err := tx.WithContext(ctx).Exec(
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		newBalance, now, account.ID,
	).Error; err != nil {
		return domain.MutationResult{}, err
	}

	entry := domain.Entry{
		ID:               s.genID.Generate(),
		AccountID:        account.ID,
		Direction:        direction,
		Source:           req.Source,
		Amount:           req.Amount,
		Description:      strings.TrimSpace(req.Description),
		RelatedEventID:   req.RelatedEventID,
		RelatedPaymentID: req.RelatedPaymentID,
		Metadata:         toJSONMap(req.Metadata),
		CreatedAt:        now,
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return domain.MutationResult{}, err
	}

	s.log.Info("ledger entry appended",
		zap.String("account_id", account.ID.String()),
		zap.String("entry_id", entry.ID.String()),
		zap.String("direction", string(direction)),
		zap.String("source", string(req.Source)),
		zap.Int64("amount", req.Amount),
		zap.Int64("new_balance", newBalance),
	)

	return domain.MutationResult{NewBalance: newBalance, Entry: entry}, nil
}

func (s *Service) ConfirmTicketPurchase(ctx context.Context, req domain.TicketPurchaseRequest) (domain.TicketPurchaseResult, error) {
	accountID, err := s.parseID(req.AccountID)
	if err != nil {
		return domain.TicketPurchaseResult{}, err
	}
	if req.TicketAmount <= 0 {
		return domain.TicketPurchaseResult{}, domain.ErrInvalidAmount
	}

	ticketCount := req.TicketCount
	if ticketCount <= 0 {
		ticketCount = 1
	}

	points := domain.TicketPoints(req.TicketAmount, s.policy.Get().TicketEarnRate)
	if points == 0 {
		// Below the earn threshold. Not an error, and no entry is written.
		account, err := s.accounts.FindByID(ctx, s.db, accountID)
		if err != nil {
			return domain.TicketPurchaseResult{}, s.classify(err)
		}
		if account == nil {
			return domain.TicketPurchaseResult{}, accountdomain.ErrNotFound
		}
		return domain.TicketPurchaseResult{PointsEarned: 0, NewBalance: account.Balance}, nil
	}

	metadata := map[string]any{
		"ticket_amount": req.TicketAmount,
		"ticket_count":  ticketCount,
	}
	if tier := strings.TrimSpace(req.TierLabel); tier != "" {
		metadata["tier_label"] = tier
	}

	result, err := s.AddPoints(ctx, domain.MutationRequest{
		AccountID:        req.AccountID,
		Amount:           points,
		Source:           domain.SourceTicketPurchase,
		Description:      fmt.Sprintf("Earned %d points for purchasing %d ticket(s)", points, ticketCount),
		Metadata:         metadata,
		RelatedEventID:   req.EventID,
		RelatedPaymentID: req.PaymentID,
	})
	if err != nil {
		return domain.TicketPurchaseResult{}, err
	}

	return domain.TicketPurchaseResult{
		PointsEarned: points,
		NewBalance:   result.NewBalance,
		Entry:        &result.Entry,
	}, nil
}

func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryResponse, error) {
	id, err := s.parseID(req.AccountID)
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	policy := s.policy.Get()
	page := pagination.Pagination{Limit: req.Limit, Offset: req.Offset}.
		Normalize(policy.HistoryDefaultLimit, policy.HistoryMaxLimit)

	items, err := s.repo.ListByAccount(ctx, s.db, id, page)
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	items, info := pagination.BuildPageInfo(items, page)
	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	return domain.HistoryResponse{Entries: entries, HasMore: info.HasMore}, nil
}

func (s *Service) Stats(ctx context.Context, accountID string) (domain.Stats, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return domain.Stats{}, err
	}

	earned, redeemed, err := s.repo.SumByDirection(ctx, s.db, account.ID)
	if err != nil {
		return domain.Stats{}, err
	}

	now := s.clock.Now()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := s.repo.SumEarnedSince(ctx, s.db, account.ID, firstOfMonth)
	if err != nil {
		return domain.Stats{}, err
	}

	return domain.Stats{
		CurrentBalance: account.Balance,
		MonthlyEarned:  monthly,
		TotalEarned:    earned,
		TotalRedeemed:  redeemed,
	}, nil
}

func (s *Service) Dashboard(ctx context.Context, accountID string) (domain.Dashboard, error) {
	stats, err := s.Stats(ctx, accountID)
	if err != nil {
		return domain.Dashboard{}, err
	}

	recent, err := s.History(ctx, domain.HistoryRequest{
		AccountID: accountID,
		Limit:     s.policy.Get().DashboardRecentSize,
	})
	if err != nil {
		return domain.Dashboard{}, err
	}

	return domain.Dashboard{Stats: stats, RecentActivity: recent.Entries}, nil
}

func (s *Service) validate(req domain.MutationRequest) (snowflake.ID, error) {
	accountID, err := s.parseID(req.AccountID)
	if err != nil {
		return 0, err
	}
	if req.Amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	if !req.Source.Valid() {
		return 0, domain.ErrInvalidSource
	}
	if strings.TrimSpace(req.Description) == "" {
		return 0, domain.ErrInvalidDescription
	}
	return accountID, nil
}

func (s *Service) findAccount(ctx context.Context, accountID string) (*accountdomain.Account, error) {
	id, err := s.parseID(accountID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrNotFound
	}
	return account, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidAccountID
	}
	return id, nil
}

// classify keeps domain errors intact and wraps everything else as a
// transaction failure, which the whole-unit rollback makes safe to retry.
func (s *Service) classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.IsInsufficientBalance(err); ok {
		return err
	}
	switch {
	case errors.Is(err, accountdomain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidAccountID),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrCorruptBalance):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrTransactionFailed, err)
	}
}

func (s *Service) record(ctx context.Context, direction domain.Direction, source domain.Source) {
	if s.metrics == nil {
		return
	}
	switch direction {
	case domain.DirectionEarned:
		s.metrics.RecordCredit(ctx, string(source))
	case domain.DirectionRedeemed:
		s.metrics.RecordDebit(ctx, string(source))
	}
}

func (s *Service) recordInsufficient(ctx context.Context, source domain.Source) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordInsufficientBalance(ctx, string(source))
}

func toJSONMap(in map[string]any) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range in {
		out[k] = v
	}
	return out
}
