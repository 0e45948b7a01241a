package service_test

import (
	"context"
	service "github.com/fsdevblog/groph-credits/internal/service"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/internal/service/mocks"
	"github.com/fsdevblog/groph-credits/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-credits/pkg/uow/mocks"
)

type UsageServiceTestSuite struct {
	suite.Suite
	mockCtrl            *gomock.Controller
	mockUOW             *uowmocks.MockUOW
	mockTX              *uowmocks.MockTX
	mockAccountRepo     *mocks.MockAccountRepository
	mockTransactionRepo *mocks.MockTransactionRepository
	service             *service.UsageService
}

func TestUsageServiceSuite(t *testing.T) {
	suite.Run(t, new(UsageServiceTestSuite))
}

func (s *UsageServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockAccountRepo = mocks.NewMockAccountRepository(s.mockCtrl)
	s.mockTransactionRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransactionRepo, nil).AnyTimes()

	ledger, ledgerErr := service.NewLedgerService(s.mockUOW)
	s.Require().NoError(ledgerErr)

	s.service = service.NewUsageService(service.UsageServiceArgs{
		Ledger: ledger,
		CostFn: service.PerUnitCost(decimal.NewFromInt(2)),
	})
}

func (s *UsageServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *UsageServiceTestSuite) expectTXRepos() {
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.AccountRepoName)).
		Return(s.mockAccountRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransactionRepo, nil).AnyTimes()
}

func (s *UsageServiceTestSuite) expectUOWDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		},
	)
}

func (s *UsageServiceTestSuite) TestCanConsume() {
	cases := []struct {
		name     string
		base     int64
		bonus    int64
		estimate int64
		allowed  bool
	}{
		{name: "enough balance", base: 100, bonus: 0, estimate: 50, allowed: true},
		{name: "exact balance", base: 30, bonus: 20, estimate: 50, allowed: true},
		{name: "not enough", base: 10, bonus: 0, estimate: 50, allowed: false},
		{name: "zero balance", base: 0, bonus: 0, estimate: 0, allowed: false},
		{name: "negative balance", base: -10, bonus: 0, estimate: 0, allowed: false},
	}

	for _, c := range cases {
		s.mockAccountRepo.EXPECT().FindByID(gomock.Any(), int64(1)).Return(&domain.Account{
			ID:           1,
			BaseCredits:  decimal.NewFromInt(c.base),
			BonusCredits: decimal.NewFromInt(c.bonus),
		}, nil)

		allowed, err := s.service.CanConsume(s.T().Context(), 1, decimal.NewFromInt(c.estimate))
		s.Require().NoError(err, c.name)
		s.Equal(c.allowed, allowed, c.name)
	}
}

func (s *UsageServiceTestSuite) TestChargeUsage() {
	account := &domain.Account{
		ID:           1,
		BaseCredits:  decimal.NewFromInt(100),
		BonusCredits: decimal.Zero,
	}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), account.ID).Return(account, nil)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), account.ID, "req-42").
		Return(nil, domain.ErrRecordNotFound)

	s.mockTransactionRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a repoargs.ApplyTransaction, balanceAfter decimal.Decimal) (*domain.Transaction, error) {
			s.Equal(domain.TransactionUsage, a.Type)
			// 7 единиц по ставке 2: списание на 14.
			s.True(a.Amount.Equal(decimal.NewFromInt(14).Neg()))
			s.True(balanceAfter.Equal(decimal.NewFromInt(86)))
			return &domain.Transaction{ID: 5, Amount: a.Amount, BalanceAfter: balanceAfter}, nil
		})
	s.mockAccountRepo.EXPECT().
		UpdateBalances(gomock.Any(), account.ID, gomock.Any(), gomock.Any()).
		Return(nil)

	transaction, err := s.service.ChargeUsage(s.T().Context(), account.ID, decimal.NewFromInt(7), "req-42")
	s.Require().NoError(err)
	s.True(transaction.BalanceAfter.Equal(decimal.NewFromInt(86)))
}

func (s *UsageServiceTestSuite) TestChargeUsage_NotEnoughBalance() {
	account := &domain.Account{
		ID:           1,
		BaseCredits:  decimal.NewFromInt(10),
		BonusCredits: decimal.Zero,
	}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), account.ID).Return(account, nil)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), account.ID, "req-43").
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.service.ChargeUsage(s.T().Context(), account.ID, decimal.NewFromInt(7), "req-43")
	s.Require().ErrorIs(err, domain.ErrNotEnoughBalance)
}

func (s *UsageServiceTestSuite) TestChargeUsage_OverdraftAllowed() {
	ledger, ledgerErr := service.NewLedgerService(s.mockUOW)
	s.Require().NoError(ledgerErr)

	overdraftService := service.NewUsageService(service.UsageServiceArgs{
		Ledger:         ledger,
		CostFn:         service.PerUnitCost(decimal.NewFromInt(2)),
		AllowOverdraft: true,
	})

	account := &domain.Account{
		ID:           1,
		BaseCredits:  decimal.NewFromInt(10),
		BonusCredits: decimal.Zero,
	}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), account.ID).Return(account, nil)
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), account.ID, "req-44").
		Return(nil, domain.ErrRecordNotFound)
	s.mockTransactionRepo.EXPECT().
		Create(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a repoargs.ApplyTransaction, balanceAfter decimal.Decimal) (*domain.Transaction, error) {
			// услуга оказана: баланс уходит в минус.
			s.True(balanceAfter.Equal(decimal.NewFromInt(-4)))
			return &domain.Transaction{ID: 6, BalanceAfter: balanceAfter}, nil
		})
	s.mockAccountRepo.EXPECT().
		UpdateBalances(gomock.Any(), account.ID, gomock.Any(), gomock.Any()).
		Return(nil)

	transaction, err := overdraftService.ChargeUsage(s.T().Context(), account.ID, decimal.NewFromInt(7), "req-44")
	s.Require().NoError(err)
	s.True(transaction.BalanceAfter.IsNegative())
}

func (s *UsageServiceTestSuite) TestChargeUsage_IdempotentRetry() {
	account := &domain.Account{
		ID:           1,
		BaseCredits:  decimal.NewFromInt(86),
		BonusCredits: decimal.Zero,
	}
	existing := &domain.Transaction{
		ID:             5,
		AccountID:      account.ID,
		Type:           domain.TransactionUsage,
		Amount:         decimal.NewFromInt(14).Neg(),
		BalanceAfter:   decimal.NewFromInt(86),
		IdempotencyKey: "req-42",
	}

	s.expectTXRepos()
	s.expectUOWDo()

	s.mockAccountRepo.EXPECT().GetForUpdate(gomock.Any(), account.ID).Return(account, nil)
	// ретрай отчета: списание не дублируется.
	s.mockTransactionRepo.EXPECT().
		FindByIdempotencyKey(gomock.Any(), account.ID, existing.IdempotencyKey).
		Return(existing, nil)

	transaction, err := s.service.ChargeUsage(s.T().Context(), account.ID, decimal.NewFromInt(7), "req-42")
	s.Require().NoError(err)
	s.Equal(existing.ID, transaction.ID)
}

func (s *UsageServiceTestSuite) TestChargeUsageWithCost_NegativeCost() {
	badCost := func(units decimal.Decimal) decimal.Decimal {
		return decimal.NewFromInt(-1)
	}

	_, err := s.service.ChargeUsageWithCost(s.T().Context(), 1, decimal.NewFromInt(1), badCost, "req-45")
	s.Require().ErrorIs(err, domain.ErrInvalidAmount)
}
