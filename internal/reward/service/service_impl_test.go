package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	accountdomain "github.com/smallbiznis/perks/internal/account/domain"
	accountrepo "github.com/smallbiznis/perks/internal/account/repository"
	"github.com/smallbiznis/perks/internal/clock"
	"github.com/smallbiznis/perks/internal/config"
	"github.com/smallbiznis/perks/internal/reward/domain"
	rewardrepo "github.com/smallbiznis/perks/internal/reward/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&accountdomain.Account{}, &domain.Entry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Policy:   config.NewStaticPolicyHolder(config.DefaultPolicyConfig()),
		Repo:     rewardrepo.Provide(),
		Accounts: accountrepo.Provide(),
	})

	return &testEnv{db: db, node: node, clock: fake, svc: svc}
}

func (e *testEnv) createAccount(t *testing.T, balance int64) accountdomain.Account {
	t.Helper()

	now := e.clock.Now()
	account := accountdomain.Account{
		ID:          e.node.Generate(),
		DisplayName: "Test Member",
		Balance:     balance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.db.Create(&account).Error)
	return account
}

func (e *testEnv) balance(t *testing.T, id snowflake.ID) int64 {
	t.Helper()

	var account accountdomain.Account
	require.NoError(t, e.db.Take(&account, "id = ?", id).Error)
	return account.Balance
}

func (e *testEnv) entryCount(t *testing.T, id snowflake.ID) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&domain.Entry{}).Where("account_id = ?", id).Count(&count).Error)
	return count
}

func TestAddPointsCreditsBalanceAndAppendsEntry(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)

	result, err := env.svc.AddPoints(context.Background(), domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      500,
		Source:      domain.SourceAdminAdjustment,
		Description: "signup bonus",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(500), result.NewBalance)
	assert.Equal(t, domain.DirectionEarned, result.Entry.Direction)
	assert.Equal(t, int64(500), result.Entry.Amount)
	assert.Equal(t, int64(500), env.balance(t, account.ID))
	assert.Equal(t, int64(1), env.entryCount(t, account.ID))
}

func TestDeductPointsToZero(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 200)

	result, err := env.svc.DeductPoints(context.Background(), domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      200,
		Source:      domain.SourcePartnerRedemption,
		Description: "full redemption",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.NewBalance)
	assert.Equal(t, int64(0), env.balance(t, account.ID))
	assert.Equal(t, int64(-200), result.Entry.SignedAmount())
}

func TestDeductPointsInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 100)

	_, err := env.svc.DeductPoints(context.Background(), domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      150,
		Source:      domain.SourcePartnerRedemption,
		Description: "over-redeem",
	})
	require.Error(t, err)

	insufficient, ok := domain.IsInsufficientBalance(err)
	require.True(t, ok)
	assert.Equal(t, int64(150), insufficient.Required)
	assert.Equal(t, int64(100), insufficient.Available)

	assert.Equal(t, int64(100), env.balance(t, account.ID))
	assert.Equal(t, int64(0), env.entryCount(t, account.ID))
}

func TestMutationValidation(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 100)

	cases := []struct {
		name string
		req  domain.MutationRequest
		want error
	}{
		{
			name: "bad account id",
			req: domain.MutationRequest{
				AccountID: "not-a-snowflake", Amount: 10,
				Source: domain.SourceAdminAdjustment, Description: "x",
			},
			want: domain.ErrInvalidAccountID,
		},
		{
			name: "zero amount",
			req: domain.MutationRequest{
				AccountID: account.ID.String(), Amount: 0,
				Source: domain.SourceAdminAdjustment, Description: "x",
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req: domain.MutationRequest{
				AccountID: account.ID.String(), Amount: -5,
				Source: domain.SourceAdminAdjustment, Description: "x",
			},
			want: domain.ErrInvalidAmount,
		},
		{
			name: "unknown source",
			req: domain.MutationRequest{
				AccountID: account.ID.String(), Amount: 10,
				Source: "mystery", Description: "x",
			},
			want: domain.ErrInvalidSource,
		},
		{
			name: "blank description",
			req: domain.MutationRequest{
				AccountID: account.ID.String(), Amount: 10,
				Source: domain.SourceAdminAdjustment, Description: "   ",
			},
			want: domain.ErrInvalidDescription,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.AddPoints(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, int64(100), env.balance(t, account.ID))
	assert.Equal(t, int64(0), env.entryCount(t, account.ID))
}

func TestMutationUnknownAccount(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AddPoints(context.Background(), domain.MutationRequest{
		AccountID:   env.node.Generate().String(),
		Amount:      10,
		Source:      domain.SourceAdminAdjustment,
		Description: "ghost",
	})
	assert.ErrorIs(t, err, accountdomain.ErrNotFound)
}

func TestConcurrentDeductsCannotJointlyOverdraw(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 500)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.DeductPoints(context.Background(), domain.MutationRequest{
				AccountID:   account.ID.String(),
				Amount:      300,
				Source:      domain.SourcePartnerRedemption,
				Description: "concurrent redemption",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			_, ok := domain.IsInsufficientBalance(err)
			assert.True(t, ok, "loser must fail with insufficient balance, got %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(200), env.balance(t, account.ID))
	assert.Equal(t, int64(1), env.entryCount(t, account.ID))
}

func TestConfirmTicketPurchaseCreditsPolicyPoints(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)

	result, err := env.svc.ConfirmTicketPurchase(context.Background(), domain.TicketPurchaseRequest{
		AccountID:    account.ID.String(),
		TicketAmount: 10000,
		TicketCount:  2,
		TierLabel:    "VIP",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50), result.PointsEarned)
	assert.Equal(t, int64(50), result.NewBalance)
	require.NotNil(t, result.Entry)
	assert.Equal(t, domain.SourceTicketPurchase, result.Entry.Source)
	assert.Equal(t, "Earned 50 points for purchasing 2 ticket(s)", result.Entry.Description)
}

func TestConfirmTicketPurchaseZeroPointsIsANoOp(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 30)

	// 150 * 0.005 floors to 0.
	result, err := env.svc.ConfirmTicketPurchase(context.Background(), domain.TicketPurchaseRequest{
		AccountID:    account.ID.String(),
		TicketAmount: 150,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.PointsEarned)
	assert.Equal(t, int64(30), result.NewBalance)
	assert.Nil(t, result.Entry)
	assert.Equal(t, int64(0), env.entryCount(t, account.ID))
}

func TestConfirmTicketPurchaseInvalidAmount(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)

	_, err := env.svc.ConfirmTicketPurchase(context.Background(), domain.TicketPurchaseRequest{
		AccountID:    account.ID.String(),
		TicketAmount: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestStatsAggregation(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)
	ctx := context.Background()

	// Two credits in a previous month.
	env.clock.Set(time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC))
	for _, amount := range []int64{100, 40} {
		_, err := env.svc.AddPoints(ctx, domain.MutationRequest{
			AccountID:   account.ID.String(),
			Amount:      amount,
			Source:      domain.SourceEventAttendance,
			Description: "january activity",
		})
		require.NoError(t, err)
	}

	// One credit and one debit in the current month.
	env.clock.Set(time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC))
	_, err := env.svc.AddPoints(ctx, domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      60,
		Source:      domain.SourceEventHosting,
		Description: "march hosting",
	})
	require.NoError(t, err)
	_, err = env.svc.DeductPoints(ctx, domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      50,
		Source:      domain.SourcePartnerRedemption,
		Description: "march redemption",
	})
	require.NoError(t, err)

	env.clock.Set(time.Date(2026, time.March, 20, 9, 0, 0, 0, time.UTC))
	stats, err := env.svc.Stats(ctx, account.ID.String())
	require.NoError(t, err)

	assert.Equal(t, int64(150), stats.CurrentBalance)
	assert.Equal(t, int64(60), stats.MonthlyEarned)
	assert.Equal(t, int64(200), stats.TotalEarned)
	assert.Equal(t, int64(50), stats.TotalRedeemed)
}

func TestHistoryPaginationIsStable(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := env.svc.AddPoints(ctx, domain.MutationRequest{
			AccountID:   account.ID.String(),
			Amount:      int64(i + 1),
			Source:      domain.SourceEventAttendance,
			Description: "activity",
		})
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	first, err := env.svc.History(ctx, domain.HistoryRequest{
		AccountID: account.ID.String(),
	})
	require.NoError(t, err)
	assert.Len(t, first.Entries, 20)
	assert.True(t, first.HasMore)

	second, err := env.svc.History(ctx, domain.HistoryRequest{
		AccountID: account.ID.String(),
		Offset:    20,
	})
	require.NoError(t, err)
	assert.Len(t, second.Entries, 5)
	assert.False(t, second.HasMore)

	seen := make(map[snowflake.ID]bool)
	var all []domain.Entry
	all = append(all, first.Entries...)
	all = append(all, second.Entries...)
	for i, entry := range all {
		assert.False(t, seen[entry.ID], "entry %s appeared twice", entry.ID)
		seen[entry.ID] = true
		if i > 0 {
			assert.False(t, entry.CreatedAt.After(all[i-1].CreatedAt), "history must be newest first")
		}
	}

	// Newest entry carries the largest amount.
	assert.Equal(t, int64(25), first.Entries[0].Amount)
}

func TestHistoryClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)

	resp, err := env.svc.History(context.Background(), domain.HistoryRequest{
		AccountID: account.ID.String(),
		Limit:     10_000,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Entries)
	assert.False(t, resp.HasMore)
}

func TestDashboardReturnsStatsAndRecentActivity(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := env.svc.AddPoints(ctx, domain.MutationRequest{
			AccountID:   account.ID.String(),
			Amount:      10,
			Source:      domain.SourceEventAttendance,
			Description: "activity",
		})
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}

	dashboard, err := env.svc.Dashboard(ctx, account.ID.String())
	require.NoError(t, err)

	assert.Equal(t, int64(120), dashboard.CurrentBalance)
	assert.Len(t, dashboard.RecentActivity, 10)
}

func TestCorruptBalanceIsRefused(t *testing.T) {
	env := newTestEnv(t)
	account := env.createAccount(t, 0)
	require.NoError(t, env.db.Exec(
		`UPDATE accounts SET balance = -10 WHERE id = ?`, account.ID,
	).Error)

	_, err := env.svc.DeductPoints(context.Background(), domain.MutationRequest{
		AccountID:   account.ID.String(),
		Amount:      5,
		Source:      domain.SourceAdminAdjustment,
		Description: "reconcile attempt",
	})
	assert.ErrorIs(t, err, domain.ErrCorruptBalance)
}
