package mocks

import (
	"context"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type ReferralServiceMock struct {
	mock.Mock
}

func NewReferralServiceMock() *ReferralServiceMock {
	return &ReferralServiceMock{}
}

func (m *ReferralServiceMock) GetByCode(ctx context.Context, code string) (*model.Referral, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Referral), args.Error(1)
}

func (m *ReferralServiceMock) RegisterClick(ctx context.Context, code string) (*model.Referral, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Referral), args.Error(1)
}

func (m *ReferralServiceMock) Redeem(ctx context.Context, code string, userID int64) (*model.Referral, error) {
	args := m.Called(ctx, code, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Referral), args.Error(1)
}

func (m *ReferralServiceMock) ListByInviter(ctx context.Context, inviterID int64) ([]*model.Referral, error) {
	args := m.Called(ctx, inviterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Referral), args.Error(1)
}

func (m *ReferralServiceMock) CascadeBonuses(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, order *model.Order) (*service.BonusGrants, error) {
	args := m.Called(ctx, tx, raffle, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BonusGrants), args.Error(1)
}

func (m *ReferralServiceMock) CreateForBuyer(ctx context.Context, tx pgx.Tx, raffleID, userID int64) (*model.Referral, error) {
	args := m.Called(ctx, tx, raffleID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Referral), args.Error(1)
}
