package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/internal/account/domain"
	"github.com/smallbiznis/perks/internal/clock"
	"github.com/smallbiznis/perks/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return domain.Account{}, domain.ErrInvalidDisplayName
	}

	now := s.clock.Now()
	account := domain.Account{
		ID:          s.genID.Generate(),
		DisplayName: name,
		Balance:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		return domain.Account{}, err
	}

	s.log.Info("account created", zap.String("account_id", account.ID.String()))
	return account, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetAccountRequest) (domain.Account, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Account{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Account{}, err
	}
	if item == nil {
		return domain.Account{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListAccountRequest) (domain.ListAccountResponse, error) {
	page := pagination.Pagination{Limit: req.Limit, Offset: req.Offset}.Normalize(20, 100)

	items, err := s.repo.List(ctx, s.db, page)
	if err != nil {
		return domain.ListAccountResponse{}, err
	}

	items, info := pagination.BuildPageInfo(items, page)
	accounts := make([]domain.Account, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		accounts = append(accounts, *item)
	}

	return domain.ListAccountResponse{Accounts: accounts, HasMore: info.HasMore}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
