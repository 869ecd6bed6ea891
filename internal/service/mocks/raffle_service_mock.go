package mocks

import (
	"context"

	"go-raffle-engine/internal/model"

	"github.com/stretchr/testify/mock"
)

type RaffleServiceMock struct {
	mock.Mock
}

func NewRaffleServiceMock() *RaffleServiceMock {
	return &RaffleServiceMock{}
}

func (m *RaffleServiceMock) Create(ctx context.Context, req model.CreateRaffleRequest) (*model.Raffle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) Activate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RaffleServiceMock) Expand(ctx context.Context, id int64, additional int) (*model.Raffle, error) {
	args := m.Called(ctx, id, additional)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) GetByID(ctx context.Context, id int64) (*model.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) GetCounts(ctx context.Context, id int64) (model.RaffleCounts, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.RaffleCounts), args.Error(1)
}

func (m *RaffleServiceMock) GetUserNumbers(ctx context.Context, id, userID int64) ([]*model.RaffleNumber, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RaffleNumber), args.Error(1)
}

func (m *RaffleServiceMock) ListActive(ctx context.Context) ([]*model.Raffle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Raffle), args.Error(1)
}

func (m *RaffleServiceMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
