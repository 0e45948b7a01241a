package service_test

import (
	"context"
	service "github.com/fsdevblog/groph-credits/internal/service"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service/mocks"
	"github.com/fsdevblog/groph-credits/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-credits/pkg/uow/mocks"
)

type AlertServiceTestSuite struct {
	suite.Suite
	mockCtrl            *gomock.Controller
	mockUOW             *uowmocks.MockUOW
	mockAccountRepo     *mocks.MockAccountRepository
	mockTransactionRepo *mocks.MockTransactionRepository
	service             *service.AlertService
}

func TestAlertServiceSuite(t *testing.T) {
	suite.Run(t, new(AlertServiceTestSuite))
}

func (s *AlertServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockAccountRepo = mocks.NewMockAccountRepository(s.mockCtrl)
	s.mockTransactionRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransactionRepo, nil).AnyTimes()

	var err error
	s.service, err = service.NewAlertService(service.AlertServiceArgs{
		UOW:                 s.mockUOW,
		LowBalanceThreshold: decimal.NewFromInt(100),
		AnomalyThreshold:    decimal.NewFromInt(500),
	})
	s.Require().NoError(err)
}

func (s *AlertServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *AlertServiceTestSuite) TestEvaluate() {
	cases := []struct {
		name           string
		base           int64
		velocity       int64
		isLowBalance   bool
		canUseServices bool
		isUsageAnomaly bool
	}{
		{
			name: "healthy account", base: 1000, velocity: 100,
			isLowBalance: false, canUseServices: true, isUsageAnomaly: false,
		},
		{
			name: "low balance", base: 50, velocity: 10,
			isLowBalance: true, canUseServices: true, isUsageAnomaly: false,
		},
		{
			name: "on threshold counts as low", base: 100, velocity: 0,
			isLowBalance: true, canUseServices: true, isUsageAnomaly: false,
		},
		{
			name: "zero balance blocks usage", base: 0, velocity: 0,
			isLowBalance: true, canUseServices: false, isUsageAnomaly: false,
		},
		{
			name: "negative balance blocks usage", base: -20, velocity: 0,
			isLowBalance: true, canUseServices: false, isUsageAnomaly: false,
		},
		{
			name: "usage anomaly", base: 1000, velocity: 501,
			isLowBalance: false, canUseServices: true, isUsageAnomaly: true,
		},
		{
			name: "velocity on threshold is not an anomaly", base: 1000, velocity: 500,
			isLowBalance: false, canUseServices: true, isUsageAnomaly: false,
		},
	}

	for _, c := range cases {
		s.mockAccountRepo.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.Account{
			ID:          1,
			BaseCredits: decimal.NewFromInt(c.base),
		}, nil)
		s.mockTransactionRepo.EXPECT().
			SumUsageSince(gomock.Any(), int64(1), gomock.Any()).
			Return(decimal.NewFromInt(c.velocity), nil)

		status, err := s.service.Evaluate(s.T().Context(), 1)
		s.Require().NoError(err, c.name)
		s.Equal(c.isLowBalance, status.IsLowBalance, c.name)
		s.Equal(c.canUseServices, status.CanUseServices, c.name)
		s.Equal(c.isUsageAnomaly, status.IsUsageAnomaly, c.name)
	}
}

func (s *AlertServiceTestSuite) TestEvaluate_AnomalyCheckDisabled() {
	service, err := service.NewAlertService(service.AlertServiceArgs{
		UOW:                 s.mockUOW,
		LowBalanceThreshold: decimal.NewFromInt(100),
		AnomalyThreshold:    decimal.Zero,
	})
	s.Require().NoError(err)

	s.mockAccountRepo.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.Account{
		ID:          1,
		BaseCredits: decimal.NewFromInt(1000),
	}, nil)
	// SumUsageSince не вызывается вовсе.

	status, evalErr := service.Evaluate(s.T().Context(), 1)
	s.Require().NoError(evalErr)
	s.False(status.IsUsageAnomaly)
}

func (s *AlertServiceTestSuite) TestRecentlyActiveAccounts() {
	expected := []int64{3, 1, 2}

	s.mockAccountRepo.EXPECT().
		GetRecentlyActive(gomock.Any(), gomock.Any(), uint(50)).
		DoAndReturn(func(_ context.Context, since time.Time, _ uint) ([]int64, error) {
			// окно активности - последний час.
			s.WithinDuration(time.Now().Add(-time.Hour), since, 5*time.Second)
			return expected, nil
		})

	ids, err := s.service.RecentlyActiveAccounts(s.T().Context(), 50)
	s.Require().NoError(err)
	s.Equal(expected, ids)
}
