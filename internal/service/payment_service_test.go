package service_test

import (
	"context"
	service "github.com/fsdevblog/groph-credits/internal/service"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service/mocks"
	"github.com/fsdevblog/groph-credits/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-credits/pkg/uow/mocks"
)

type PaymentServiceTestSuite struct {
	suite.Suite
	mockCtrl            *gomock.Controller
	mockUOW             *uowmocks.MockUOW
	mockTX              *uowmocks.MockTX
	mockAccountRepo     *mocks.MockAccountRepository
	mockTransactionRepo *mocks.MockTransactionRepository
	mockOrderRepo       *mocks.MockOrderRepository
	service             *service.PaymentService
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceTestSuite))
}

func (s *PaymentServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockAccountRepo = mocks.NewMockAccountRepository(s.mockCtrl)
	s.mockTransactionRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockOrderRepo = mocks.NewMockOrderRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransactionRepo, nil).AnyTimes()

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	ledger, ledgerErr := service.NewLedgerService(s.mockUOW)
	s.Require().NoError(ledgerErr)
	s.service = service.NewPaymentService(s.mockUOW, ledger, l)
}

func (s *PaymentServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PaymentServiceTestSuite) expectTXRepos() {
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransactionRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.OrderRepoName)).
		Return(s.mockOrderRepo, nil).AnyTimes()
}

func (s *PaymentServiceTestSuite) expectUOWDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		},
	)
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:              7,
		AccountID:       1,
		PackageID:       "standard",
		RequestedAmount: decimal.NewFromInt(1000),
		CreditedBase:    decimal.NewFromInt(1000),
		CreditedBonus:   decimal.NewFromInt(150),
		Status:          domain.OrderStatusPending,
		ProviderOrderID: "prov-7",
	}
}

func (s *PaymentServiceTestSuite) TestHandleEvent_Captured() {
	order := pendingOrder()
	account := &domain.Account{ID: order.AccountID, BaseCredits: decimal.Zero, BonusCredits: decimal.Zero}
	event := service.PaymentCapturedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
		Amount:          order.RequestedAmount,
	}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)

	// purchase и bonus проводятся отдельными записями журнала.
	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), order.AccountID).Return(account, nil).Times(2)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), order.AccountID, "pay-1").
		Return(nil, domain.ErrRecordNotFound)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), order.AccountID, "pay-1:bonus").
		Return(nil, domain.ErrRecordNotFound)

	var created []repoargs.ApplyTransaction
	s.mockTransactionRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a repoargs.ApplyTransaction, balanceAfter decimal.Decimal) (*domain.Transaction, error) {
			created = append(created, a)
			return &domain.Transaction{ID: int64(len(created)), BalanceAfter: balanceAfter}, nil
		}).Times(2)

	s.mockAccountRepo.EXPECT().
		UpdateBalances(gomock.Any(), order.AccountID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, base, bonus decimal.Decimal) error {
			account.BaseCredits, account.BonusCredits = base, bonus
			return nil
		}).Times(2)

	completedAt := time.Now()
	s.mockOrderRepo.EXPECT().
		MarkCompleted(gomock.Any(), order.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, id int64, _ time.Time) (*domain.Order, error) {
			completed := *order
			completed.Status = domain.OrderStatusCompleted
			completed.CompletedAt = &completedAt
			return &completed, nil
		})

	result, err := s.service.HandleEvent(s.T().Context(), event)
	s.Require().NoError(err)

	s.False(result.Duplicate)
	s.Equal(domain.OrderStatusCompleted, result.Order.Status)

	s.Require().Len(created, 2)
	s.Equal(domain.TransactionPurchase, created[0].Type)
	s.True(created[0].Amount.Equal(decimal.NewFromInt(1000)))
	s.Equal(domain.TransactionBonus, created[1].Type)
	s.True(created[1].Amount.Equal(decimal.NewFromInt(150)))

	// обе корзины пополнены в одной транзакции БД.
	s.True(account.BaseCredits.Equal(decimal.NewFromInt(1000)))
	s.True(account.BonusCredits.Equal(decimal.NewFromInt(150)))
}

func (s *PaymentServiceTestSuite) TestHandleEvent_CapturedNoBonus() {
	order := pendingOrder()
	order.CreditedBonus = decimal.Zero
	account := &domain.Account{ID: order.AccountID, BaseCredits: decimal.Zero, BonusCredits: decimal.Zero}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)
	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), order.AccountID).Return(account, nil)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), order.AccountID, "pay-1").
		Return(nil, domain.ErrRecordNotFound)

	// бонусная запись не создается вовсе.
	s.mockTransactionRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 1}, nil).Times(1)
	s.mockAccountRepo.EXPECT().
		UpdateBalances(gomock.Any(), order.AccountID, gomock.Any(), gomock.Any()).
		Return(nil).Times(1)
	s.mockOrderRepo.EXPECT().
		MarkCompleted(gomock.Any(), order.ID, gomock.Any()).
		Return(order, nil)

	_, err := s.service.HandleEvent(s.T().Context(), service.PaymentCapturedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
	})
	s.Require().NoError(err)
}

func (s *PaymentServiceTestSuite) TestHandleEvent_CapturedDuplicate() {
	order := pendingOrder()
	order.Status = domain.OrderStatusCompleted

	s.expectTXRepos()
	s.expectUOWDo()

	// конечный статус: повторная доставка разрешается в no-op без записей журнала.
	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)

	result, err := s.service.HandleEvent(s.T().Context(), service.PaymentCapturedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
	})
	s.Require().NoError(err)
	s.True(result.Duplicate)
}

func (s *PaymentServiceTestSuite) TestHandleEvent_CapturedAfterFailed() {
	order := pendingOrder()
	order.Status = domain.OrderStatusFailed

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)

	// заказ уже FAILED: капча после отказа не зачисляет кредиты.
	result, err := s.service.HandleEvent(s.T().Context(), service.PaymentCapturedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
	})
	s.Require().NoError(err)
	s.True(result.Duplicate)
	s.Equal(domain.OrderStatusFailed, result.Order.Status)
}

func (s *PaymentServiceTestSuite) TestHandleEvent_Failed() {
	order := pendingOrder()

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)
	s.mockOrderRepo.EXPECT().
		MarkFailed(gomock.Any(), order.ID).
		DoAndReturn(func(_ context.Context, _ int64) (*domain.Order, error) {
			failed := *order
			failed.Status = domain.OrderStatusFailed
			return &failed, nil
		})

	result, err := s.service.HandleEvent(s.T().Context(), service.PaymentFailedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
		Reason:          "card declined",
	})
	s.Require().NoError(err)
	s.False(result.Duplicate)
	s.Equal(domain.OrderStatusFailed, result.Order.Status)
}

func (s *PaymentServiceTestSuite) TestHandleEvent_Unrecognized() {
	// незнакомое событие игнорируется без обращений к БД.
	result, err := s.service.HandleEvent(s.T().Context(), service.UnrecognizedEvent{Type: "payment.chargeback"})
	s.Require().NoError(err)
	s.True(result.Ignored)
}

func (s *PaymentServiceTestSuite) TestHandleEvent_CapturedLostTransitionRace() {
	order := pendingOrder()
	account := &domain.Account{ID: order.AccountID, BaseCredits: decimal.Zero, BonusCredits: decimal.Zero}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockOrderRepo.EXPECT().
		FindByProviderOrderID(gomock.Any(), order.ProviderOrderID).
		Return(order, nil)
	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), order.AccountID).Return(account, nil).Times(2)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), order.AccountID, gomock.Any()).
		Return(nil, domain.ErrRecordNotFound).Times(2)
	s.mockTransactionRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.Transaction{ID: 1}, nil).Times(2)
	s.mockAccountRepo.EXPECT().
		UpdateBalances(gomock.Any(), order.AccountID, gomock.Any(), gomock.Any()).
		Return(nil).Times(2)

	// конкурент успел финализировать заказ: исход тот же, что у дубликата.
	s.mockOrderRepo.EXPECT().
		MarkCompleted(gomock.Any(), order.ID, gomock.Any()).
		Return(nil, domain.ErrOrderFinalized)

	result, err := s.service.HandleEvent(s.T().Context(), service.PaymentCapturedEvent{
		PaymentID:       "pay-1",
		ProviderOrderID: order.ProviderOrderID,
	})
	s.Require().NoError(err)
	s.True(result.Duplicate)
}
