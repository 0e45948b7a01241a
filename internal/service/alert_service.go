package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

const usageVelocityWindow = time.Hour

// AlertStatus флаги, выведенные из текущего баланса и скорости расхода. Чистая
// проекция состояния: доставка уведомлений - забота внешнего коллаборатора.
type AlertStatus struct {
	IsLowBalance   bool
	CanUseServices bool
	IsUsageAnomaly bool
}

type AlertServiceArgs struct {
	UOW uow.UOW
	// LowBalanceThreshold порог низкого баланса.
	LowBalanceThreshold decimal.Decimal
	// AnomalyThreshold объем usage-списаний за час, выше которого расход считается
	// аномальным. Ноль отключает проверку.
	AnomalyThreshold decimal.Decimal
}

type AlertService struct {
	accountRepo         AccountRepository
	transactionRepo     TransactionRepository
	lowBalanceThreshold decimal.Decimal
	anomalyThreshold    decimal.Decimal
}

func NewAlertService(args AlertServiceArgs) (*AlertService, error) {
	accountRepo, accountRepoErr :=
		uow.GetRepositoryAs[AccountRepository](args.UOW, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, accountRepoErr
	}
	transactionRepo, transactionRepoErr :=
		uow.GetRepositoryAs[TransactionRepository](args.UOW, uow.RepositoryName(repoargs.TransactionRepoName))
	if transactionRepoErr != nil {
		return nil, transactionRepoErr
	}
	return &AlertService{
		accountRepo:         accountRepo,
		transactionRepo:     transactionRepo,
		lowBalanceThreshold: args.LowBalanceThreshold,
		anomalyThreshold:    args.AnomalyThreshold,
	}, nil
}

// Evaluate вычисляет флаги для аккаунта. Баланс <= 0 жестко запрещает потребление.
func (a *AlertService) Evaluate(ctx context.Context, accountID int64) (*AlertStatus, error) {
	account, accErr := a.accountRepo.FindByID(ctx, accountID)
	if accErr != nil {
		return nil, accErr //nolint:wrapcheck
	}
	total := account.TotalCredits()

	status := AlertStatus{
		IsLowBalance:   total.LessThanOrEqual(a.lowBalanceThreshold),
		CanUseServices: total.IsPositive(),
	}

	if a.anomalyThreshold.IsPositive() {
		velocity, velErr := a.transactionRepo.SumUsageSince(ctx, accountID, time.Now().Add(-usageVelocityWindow))
		if velErr != nil {
			return nil, velErr //nolint:wrapcheck
		}
		status.IsUsageAnomaly = velocity.GreaterThan(a.anomalyThreshold)
	}

	return &status, nil
}

// RecentlyActiveAccounts возвращает аккаунты с usage-активностью за окно скорости.
// Используется фоновым обработчиком оповещений.
func (a *AlertService) RecentlyActiveAccounts(ctx context.Context, limit uint) ([]int64, error) {
	ids, err := a.accountRepo.GetRecentlyActive(ctx, time.Now().Add(-usageVelocityWindow), limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return ids, nil
}
