package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-credits/internal/domain"
	"github.com/fsdevblog/groph-credits/internal/repository/repoargs"
	"github.com/fsdevblog/groph-credits/pkg/uow"
)

// PaymentService превращает проверенные платежные события в зачисления журнала
// ровно один раз. Провайдер доставляет события минимум однажды и в произвольном
// порядке; корректность держится на идемпотентном ключе журнала (ID платежа) и на
// том, что статус заказа двигается только вперед из PENDING.
type PaymentService struct {
	uow    uow.UOW
	ledger *LedgerService
	l      *logrus.Entry
}

func NewPaymentService(u uow.UOW, ledger *LedgerService, l *logrus.Logger) *PaymentService {
	return &PaymentService{
		uow:    u,
		ledger: ledger,
		l:      l.WithField("component", "payment"),
	}
}

// HandleEventResult итог обработки события.
type HandleEventResult struct {
	// Duplicate взведен, если событие уже было обработано ранее (no-op).
	Duplicate bool
	// Ignored взведен для нераспознанных событий.
	Ignored bool
	Order   *domain.Order
}

// HandleEvent диспетчеризует событие по варианту. Нераспознанные события логируются
// и игнорируются без побочных эффектов.
func (p *PaymentService) HandleEvent(ctx context.Context, event PaymentEvent) (*HandleEventResult, error) {
	switch e := event.(type) {
	case PaymentCapturedEvent:
		return p.handleCaptured(ctx, e)
	case PaymentFailedEvent:
		return p.handleFailed(ctx, e)
	case UnrecognizedEvent:
		p.l.WithField("eventType", e.Type).Warn("unrecognized payment event, ignoring")
		return &HandleEventResult{Ignored: true}, nil
	default:
		p.l.Warnf("unexpected payment event variant %T, ignoring", event)
		return &HandleEventResult{Ignored: true}, nil
	}
}

// handleCaptured зачисляет кредиты по оплаченному заказу и переводит его в COMPLETED.
// Зачисления и перевод статуса выполняются в одной транзакции БД. Повтор события
// (тот же ID платежа) разрешается в no-op с тем же видимым результатом.
func (p *PaymentService) handleCaptured(ctx context.Context, event PaymentCapturedEvent) (*HandleEventResult, error) {
	var result HandleEventResult

	retryErr := withWriteRetry(ctx, func() error {
		return p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
			orderRepo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
			if repoErr != nil {
				return repoErr //nolint:wrapcheck
			}

			order, findErr := orderRepo.FindByProviderOrderID(c, event.ProviderOrderID)
			if findErr != nil {
				return findErr //nolint:wrapcheck
			}

			if order.Status.IsTerminal() {
				// Редоставка или повторная попытка после FAILED: конечный статус
				// финален, наружу уходит успех-no-op.
				result = HandleEventResult{Duplicate: true, Order: order}
				return nil
			}

			if creditErr := p.creditOrder(c, tx, order, event.PaymentID); creditErr != nil {
				return creditErr
			}

			completed, completeErr := orderRepo.MarkCompleted(c, order.ID, time.Now())
			if completeErr != nil {
				if errors.Is(completeErr, domain.ErrOrderFinalized) {
					result = HandleEventResult{Duplicate: true, Order: order}
					return nil
				}
				return completeErr //nolint:wrapcheck
			}
			result = HandleEventResult{Order: completed}
			return nil
		})
	})

	if retryErr != nil {
		return nil, fmt.Errorf("handling captured payment `%s`: %w", event.PaymentID, retryErr)
	}
	if result.Duplicate {
		p.l.WithFields(logrus.Fields{
			"paymentID":       event.PaymentID,
			"providerOrderID": event.ProviderOrderID,
		}).Debug("duplicate payment event, no-op")
	}
	return &result, nil
}

// creditOrder проводит purchase-транзакцию на базовую часть и, при наличии бонуса,
// bonus-транзакцию. Идемпотентные ключи выводятся из ID платежа, поэтому повтор
// внутри недокоммиченной ранее обработки безопасен.
func (p *PaymentService) creditOrder(ctx context.Context, tx uow.TX, order *domain.Order, paymentID string) error {
	orderID := order.ID

	_, purchaseErr := p.ledger.ApplyInTransaction(ctx, tx, repoargs.ApplyTransaction{
		AccountID:      order.AccountID,
		OrderID:        &orderID,
		Type:           domain.TransactionPurchase,
		Amount:         order.CreditedBase,
		IdempotencyKey: paymentID,
		Description:    fmt.Sprintf("purchase of package %s", order.PackageID),
	})
	if purchaseErr != nil && !isDuplicateTransaction(purchaseErr) {
		return purchaseErr
	}

	if !order.CreditedBonus.IsPositive() {
		return nil
	}

	_, bonusErr := p.ledger.ApplyInTransaction(ctx, tx, repoargs.ApplyTransaction{
		AccountID:      order.AccountID,
		OrderID:        &orderID,
		Type:           domain.TransactionBonus,
		Amount:         order.CreditedBonus,
		IdempotencyKey: paymentID + ":bonus",
		Description:    fmt.Sprintf("bonus credits for package %s", order.PackageID),
	})
	if bonusErr != nil && !isDuplicateTransaction(bonusErr) {
		return bonusErr
	}
	return nil
}

// handleFailed переводит заказ в FAILED. Журнал не затрагивается, баланс остается
// нетронутым.
func (p *PaymentService) handleFailed(ctx context.Context, event PaymentFailedEvent) (*HandleEventResult, error) {
	var result HandleEventResult

	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		orderRepo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}

		order, findErr := orderRepo.FindByProviderOrderID(c, event.ProviderOrderID)
		if findErr != nil {
			return findErr //nolint:wrapcheck
		}

		if order.Status.IsTerminal() {
			result = HandleEventResult{Duplicate: true, Order: order}
			return nil
		}

		failed, failErr := orderRepo.MarkFailed(c, order.ID)
		if failErr != nil {
			if errors.Is(failErr, domain.ErrOrderFinalized) {
				result = HandleEventResult{Duplicate: true, Order: order}
				return nil
			}
			return failErr //nolint:wrapcheck
		}
		result = HandleEventResult{Order: failed}
		return nil
	})

	if txErr != nil {
		return nil, fmt.Errorf("handling failed payment `%s`: %w", event.PaymentID, txErr)
	}
	p.l.WithFields(logrus.Fields{
		"paymentID": event.PaymentID,
		"reason":    event.Reason,
	}).Info("payment failed, order closed without credit")
	return &result, nil
}

func isDuplicateTransaction(err error) bool {
	var duplicateErr *domain.DuplicateTransactionError
	return errors.As(err, &duplicateErr)
}
