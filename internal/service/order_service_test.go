package service_test

import (
	"context"
	service "github.com/fsdevblog/groph-credits/internal/service"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/catalog"
	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service/mocks"
	"github.com/fsdevblog/groph-credits/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-credits/pkg/uow/mocks"
)

type OrderServiceTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUOW       *uowmocks.MockUOW
	mockOrderRepo *mocks.MockOrderRepository
	mockGateway   *mocks.MockGatewayClient
	service       *service.OrderService
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockOrderRepo = mocks.NewMockOrderRepository(s.mockCtrl)
	s.mockGateway = mocks.NewMockGatewayClient(s.mockCtrl)

	// Мок получения репозитория из uow. Выполняется в инициализации сервиса.
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()

	cat := catalog.New(catalog.Args{
		CustomMin: decimal.NewFromInt(100),
		CustomMax: decimal.NewFromInt(100000),
	})

	var err error
	s.service, err = service.NewOrderService(s.mockUOW, cat, s.mockGateway)
	s.Require().NoError(err)
}

func (s *OrderServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *OrderServiceTestSuite) TestCreateOrder_FixedPackage() {
	args := service.CreateOrderArgs{
		AccountID: 1,
		PackageID: "standard",
		Quantity:  1,
	}

	s.mockGateway.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any(), "acc-1-standard").
		DoAndReturn(func(_ context.Context, amount decimal.Decimal, _ string) (*service.GatewayOrder, error) {
			s.True(amount.Equal(decimal.NewFromInt(1000)))
			return &service.GatewayOrder{ProviderOrderID: "prov-1"}, nil
		})
	s.mockGateway.EXPECT().KeyID().Return("key-1")

	s.mockOrderRepo.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a repoargs.CreateOrder) (*domain.Order, error) {
			s.Equal(args.AccountID, a.AccountID)
			s.Equal("prov-1", a.ProviderOrderID)
			s.True(a.CreditedBase.Equal(decimal.NewFromInt(1000)))
			// пакет за 1000 попадает в порог 15%.
			s.True(a.CreditedBonus.Equal(decimal.NewFromInt(150)))
			return &domain.Order{
				ID:              7,
				AccountID:       a.AccountID,
				PackageID:       a.PackageID,
				RequestedAmount: a.RequestedAmount,
				CreditedBase:    a.CreditedBase,
				CreditedBonus:   a.CreditedBonus,
				Status:          domain.OrderStatusPending,
				ProviderOrderID: a.ProviderOrderID,
			}, nil
		})

	order, checkout, err := s.service.CreateOrder(s.T().Context(), args)
	s.Require().NoError(err)

	s.Equal(domain.OrderStatusPending, order.Status)
	s.Equal(int64(7), checkout.OrderID)
	s.Equal("prov-1", checkout.ProviderOrderID)
	s.Equal("key-1", checkout.GatewayKeyID)
	s.True(checkout.Amount.Equal(decimal.NewFromInt(1000)))
}

func (s *OrderServiceTestSuite) TestCreateOrder_BonusTiers() {
	cases := []struct {
		packageID string
		base      int64
		bonus     int64
	}{
		{packageID: "starter", base: 500, bonus: 50},
		{packageID: "standard", base: 1000, bonus: 150},
		{packageID: "pro", base: 2000, bonus: 400},
		{packageID: "enterprise", base: 5000, bonus: 1250},
	}

	for _, c := range cases {
		s.mockGateway.EXPECT().
			CreateOrder(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&service.GatewayOrder{ProviderOrderID: "prov-" + c.packageID}, nil)
		s.mockGateway.EXPECT().KeyID().Return("key-1")

		s.mockOrderRepo.EXPECT().
			CreateOrder(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, a repoargs.CreateOrder) (*domain.Order, error) {
				s.True(a.CreditedBase.Equal(decimal.NewFromInt(c.base)), "package %s", c.packageID)
				s.True(a.CreditedBonus.Equal(decimal.NewFromInt(c.bonus)), "package %s", c.packageID)
				return &domain.Order{ID: 1, Status: domain.OrderStatusPending}, nil
			})

		_, _, err := s.service.CreateOrder(s.T().Context(), service.CreateOrderArgs{
			AccountID: 1,
			PackageID: c.packageID,
			Quantity:  1,
		})
		s.Require().NoError(err)
	}
}

func (s *OrderServiceTestSuite) TestCreateOrder_CustomAmountBelowTier() {
	// произвольная сумма ниже первого порога не дает бонуса.
	s.mockGateway.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&service.GatewayOrder{ProviderOrderID: "prov-c"}, nil)
	s.mockGateway.EXPECT().KeyID().Return("key-1")

	s.mockOrderRepo.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a repoargs.CreateOrder) (*domain.Order, error) {
			s.True(a.CreditedBase.Equal(decimal.NewFromInt(300)))
			s.True(a.CreditedBonus.IsZero())
			return &domain.Order{ID: 2, Status: domain.OrderStatusPending}, nil
		})

	_, _, err := s.service.CreateOrder(s.T().Context(), service.CreateOrderArgs{
		AccountID:    1,
		PackageID:    domain.PackageCustomID,
		CustomAmount: decimal.NewFromInt(300),
		Quantity:     1,
	})
	s.Require().NoError(err)
}

func (s *OrderServiceTestSuite) TestCreateOrder_InvalidArgs() {
	cases := []struct {
		name string
		args service.CreateOrderArgs
	}{
		{
			name: "unknown package",
			args: service.CreateOrderArgs{AccountID: 1, PackageID: "nonexistent", Quantity: 1},
		},
		{
			name: "zero quantity",
			args: service.CreateOrderArgs{AccountID: 1, PackageID: "starter", Quantity: 0},
		},
		{
			name: "custom amount below minimum",
			args: service.CreateOrderArgs{
				AccountID:    1,
				PackageID:    domain.PackageCustomID,
				CustomAmount: decimal.NewFromInt(50),
				Quantity:     1,
			},
		},
		{
			name: "custom amount above maximum",
			args: service.CreateOrderArgs{
				AccountID:    1,
				PackageID:    domain.PackageCustomID,
				CustomAmount: decimal.NewFromInt(200000),
				Quantity:     1,
			},
		},
	}

	for _, c := range cases {
		_, _, err := s.service.CreateOrder(s.T().Context(), c.args)
		s.Require().ErrorIs(err, domain.ErrInvalidAmount, c.name)
	}
}

func (s *OrderServiceTestSuite) TestCreateOrder_GatewayUnavailable() {
	s.mockGateway.EXPECT().
		CreateOrder(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.Wrap(domain.ErrGatewayUnavailable, "dial tcp"))

	// заказ в БД не создается, частичного состояния не остается.
	_, _, err := s.service.CreateOrder(s.T().Context(), service.CreateOrderArgs{
		AccountID: 1,
		PackageID: "starter",
		Quantity:  1,
	})
	s.Require().ErrorIs(err, domain.ErrGatewayUnavailable)
}

func (s *OrderServiceTestSuite) TestGetByAccountID() {
	expected := []domain.Order{
		{ID: 2, AccountID: 1, Status: domain.OrderStatusCompleted},
		{ID: 1, AccountID: 1, Status: domain.OrderStatusFailed},
	}

	s.mockOrderRepo.EXPECT().
		GetByAccountID(gomock.Any(), int64(1), uint(10)).
		Return(expected, nil)

	orders, err := s.service.GetByAccountID(s.T().Context(), 1, 10)
	s.Require().NoError(err)
	s.Equal(expected, orders)
}
