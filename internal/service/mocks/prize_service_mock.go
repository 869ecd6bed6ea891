package mocks

import (
	"context"

	"go-raffle-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type PrizeServiceMock struct {
	mock.Mock
}

func NewPrizeServiceMock() *PrizeServiceMock {
	return &PrizeServiceMock{}
}

func (m *PrizeServiceMock) AddPrizeNumber(ctx context.Context, raffleID int64, req model.CreatePrizeNumberRequest) (*model.PrizeNumber, error) {
	args := m.Called(ctx, raffleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PrizeNumber), args.Error(1)
}

func (m *PrizeServiceMock) ListByRaffle(ctx context.Context, raffleID int64) ([]*model.PrizeNumber, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PrizeNumber), args.Error(1)
}

func (m *PrizeServiceMock) Evaluate(ctx context.Context, tx pgx.Tx, raffle *model.Raffle) error {
	args := m.Called(ctx, tx, raffle)
	return args.Error(0)
}

func (m *PrizeServiceMock) CheckWon(ctx context.Context, tx pgx.Tx, raffle *model.Raffle, orderID, userID int64) ([]model.WonPrize, error) {
	args := m.Called(ctx, tx, raffle, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WonPrize), args.Error(1)
}
