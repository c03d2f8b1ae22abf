package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/perks/internal/account/domain"
	"github.com/smallbiznis/perks/internal/account/repository"
	"github.com/smallbiznis/perks/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testClockStart = time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Account{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(testClockStart),
		Repo:  repository.Provide(),
	})
	return svc, node
}

func TestCreateAccount(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.Create(context.Background(), domain.CreateAccountRequest{
		DisplayName: "  Aaradhya  ",
	})
	require.NoError(t, err)

	assert.NotZero(t, account.ID)
	assert.Equal(t, "Aaradhya", account.DisplayName)
	assert.Equal(t, int64(0), account.Balance)
	assert.Equal(t, testClockStart, account.CreatedAt)
	assert.Equal(t, testClockStart, account.UpdatedAt)

	fetched, err := svc.GetByID(context.Background(), domain.GetAccountRequest{
		ID: account.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, fetched.ID)
}

func TestCreateAccountBlankName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateAccountRequest{
		DisplayName: "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDisplayName)
}

func TestGetAccountByID(t *testing.T) {
	svc, node := newTestService(t)

	_, err := svc.GetByID(context.Background(), domain.GetAccountRequest{ID: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByID(context.Background(), domain.GetAccountRequest{
		ID: node.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAccountsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, domain.CreateAccountRequest{
			DisplayName: fmt.Sprintf("Member %02d", i),
		})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListAccountRequest{})
	require.NoError(t, err)
	assert.Len(t, first.Accounts, 20)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListAccountRequest{Offset: 20})
	require.NoError(t, err)
	assert.Len(t, second.Accounts, 5)
	assert.False(t, second.HasMore)

	seen := make(map[snowflake.ID]bool)
	for _, account := range append(first.Accounts, second.Accounts...) {
		assert.False(t, seen[account.ID])
		seen[account.ID] = true
	}
}
