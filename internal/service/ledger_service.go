package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

// LedgerService единственный писатель баланса. Каждая запись журнала и обновление
// материализованного баланса выполняются в одной транзакции БД под блокировкой строки
// аккаунта, поэтому конкурентные списания по одному аккаунту линеаризуются, а
// операции по разным аккаунтам не конкурируют.
type LedgerService struct {
	uow             uow.UOW
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	accountRepo, accountRepoErr :=
		uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, accountRepoErr
	}
	transactionRepo, transactionRepoErr :=
		uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if transactionRepoErr != nil {
		return nil, transactionRepoErr
	}
	return &LedgerService{
		uow:             u,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
	}, nil
}

// GetBalance читает материализованный баланс аккаунта.
func (l *LedgerService) GetBalance(ctx context.Context, accountID int64) (*domain.Balance, error) {
	account, err := l.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &domain.Balance{
		BaseCredits:  account.BaseCredits,
		BonusCredits: account.BonusCredits,
		TotalCredits: account.TotalCredits(),
	}, nil
}

// GetTransactions возвращает транзакции аккаунта по убыванию даты создания.
func (l *LedgerService) GetTransactions(
	ctx context.Context,
	accountID int64,
	limit uint,
) ([]domain.Transaction, error) {
	transactions, err := l.transactionRepo.GetByAccountID(ctx, accountID, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}

// ApplyTransaction атомарно добавляет запись в журнал и обновляет баланс.
//
// Гарантии:
//   - Повтор идемпотентного ключа возвращает ранее созданную транзакцию без новой
//     записи. Это механизм защиты от двойного зачисления при редоставке уведомлений
//     платежного шлюза и двойного списания при ретрае отчета об использовании.
//   - Списание, уводящее баланс ниже нуля, отклоняется с domain.ErrNotEnoughBalance,
//     кроме типа adjustment и явного args.AllowNegative.
//   - Конфликт конкурентной записи повторяется прозрачно ограниченное число раз,
//     после чего наружу выходит domain.ErrWriteConflict.
func (l *LedgerService) ApplyTransaction(
	ctx context.Context,
	args repoargs.ApplyTransaction,
) (*domain.Transaction, error) {
	var result *domain.Transaction

	retryErr := withWriteRetry(ctx, func() error {
		return l.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
			transaction, applyErr := l.ApplyInTransaction(c, tx, args)
			if applyErr != nil {
				return applyErr
			}
			result = transaction
			return nil
		})
	})

	if retryErr != nil {
		// Гонка двух носителей одного ключа: проигравший перечитывает победителя.
		var duplicateErr *domain.DuplicateTransactionError
		if errors.As(retryErr, &duplicateErr) {
			return duplicateErr.Transaction, nil
		}
		if errors.Is(retryErr, domain.ErrDuplicateKey) {
			existing, findErr := l.transactionRepo.FindByIdempotencyKey(ctx, args.AccountID, args.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("applying transaction: %w", findErr)
			}
			return existing, nil
		}
		if errors.Is(retryErr, domain.ErrNotEnoughBalance) {
			return nil, retryErr
		}
		return nil, fmt.Errorf("applying transaction: %w", retryErr)
	}
	return result, nil
}

// ApplyInTransaction выполняет ту же запись внутри уже открытой транзакции tx.
// Используется обработчиком платежных событий, чтобы зачисление и перевод заказа
// в конечный статус происходили в одной транзакции БД.
//
// Повтор идемпотентного ключа возвращает *domain.DuplicateTransactionError с ранее
// созданной транзакцией; вызывающий обязан трактовать её как успешный результат.
func (l *LedgerService) ApplyInTransaction(
	ctx context.Context,
	tx uow.TX,
	args repoargs.ApplyTransaction,
) (*domain.Transaction, error) {
	accountRepo, accountRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if accountRepoErr != nil {
		return nil, accountRepoErr //nolint:wrapcheck
	}
	transactionRepo, transactionRepoErr :=
		uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if transactionRepoErr != nil {
		return nil, transactionRepoErr //nolint:wrapcheck
	}

	// Блокировка строки аккаунта: критическая секция на аккаунт.
	account, lockErr := accountRepo.GetForUpdate(ctx, args.AccountID)
	if lockErr != nil {
		return nil, lockErr //nolint:wrapcheck
	}

	// Проверка идемпотентности под блокировкой.
	existing, findErr := transactionRepo.FindByIdempotencyKey(ctx, args.AccountID, args.IdempotencyKey)
	if findErr == nil {
		return nil, domain.NewDuplicateTransactionError(existing)
	}
	if !errors.Is(findErr, domain.ErrRecordNotFound) {
		return nil, findErr //nolint:wrapcheck
	}

	newBase, newBonus := applyToBuckets(account, args)
	newTotal := newBase.Add(newBonus)

	if newTotal.IsNegative() && !debitMayGoNegative(args) {
		return nil, domain.ErrNotEnoughBalance
	}

	transaction, createErr := transactionRepo.Create(ctx, args, newTotal)
	if createErr != nil {
		return nil, createErr //nolint:wrapcheck
	}

	if updErr := accountRepo.UpdateBalances(ctx, args.AccountID, newBase, newBonus); updErr != nil {
		return nil, updErr //nolint:wrapcheck
	}
	return transaction, nil
}

// Audit сверяет материализованный баланс с суммой журнала. Возвращает true при
// совпадении.
func (l *LedgerService) Audit(ctx context.Context, accountID int64) (bool, error) {
	account, accErr := l.accountRepo.FindByID(ctx, accountID)
	if accErr != nil {
		return false, accErr //nolint:wrapcheck
	}
	sum, sumErr := l.transactionRepo.SumByAccountID(ctx, accountID)
	if sumErr != nil {
		return false, sumErr //nolint:wrapcheck
	}
	return account.TotalCredits().Equal(sum), nil
}

// applyToBuckets распределяет сумму по корзинам базовых и бонусных кредитов.
// Зачисление попадает в корзину по типу транзакции (bonus -> бонусная, остальные ->
// базовая). Списание сначала тратит бонусные кредиты, затем базовые.
func applyToBuckets(account *domain.Account, args repoargs.ApplyTransaction) (decimal.Decimal, decimal.Decimal) {
	base, bonus := account.BaseCredits, account.BonusCredits

	if !args.Amount.IsNegative() {
		if args.Type == domain.TransactionBonus {
			return base, bonus.Add(args.Amount)
		}
		return base.Add(args.Amount), bonus
	}

	debit := args.Amount.Neg()
	fromBonus := decimal.Min(bonus, debit)
	return base.Sub(debit.Sub(fromBonus)), bonus.Sub(fromBonus)
}

func debitMayGoNegative(args repoargs.ApplyTransaction) bool {
	return args.AllowNegative || args.Type == domain.TransactionAdjustment
}
