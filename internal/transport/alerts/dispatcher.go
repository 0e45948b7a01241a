// Package alerts периодически оценивает активные аккаунты и рассылает оповещения
// о низком балансе и аномальном расходе.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultServiceTimeout         = 3 * time.Second
	defaultPollInterval           = time.Minute
	defaultLimitPerIteration uint = 100
	defaultEvaluationWorkers uint = 10
)

// NotificationKind тип оповещения.
type NotificationKind string

const (
	NotificationLowBalance   NotificationKind = "low_balance"
	NotificationUsageAnomaly NotificationKind = "usage_anomaly"
)

// Notification оповещение для конкретного аккаунта.
type Notification struct {
	AccountID int64
	Kind      NotificationKind
}

// Dispatcher фоновый обработчик оповещений. В каждой итерации запрашивает аккаунты
// с недавней usage-активностью и оценивает их флаги параллельными воркерами.
type Dispatcher struct {
	svs               Servicer
	notifier          Notifier
	l                 *logrus.Entry
	pollInterval      time.Duration
	limitPerIteration uint
	evaluationWorkers uint
}

// New создает новый экземпляр обработчика оповещений.
func New(svs Servicer, notifier Notifier, l *logrus.Logger) *Dispatcher {
	loggerEntry := l.WithFields(logrus.Fields{
		"component": "alerts",
		"module":    "dispatcher",
	})

	return &Dispatcher{
		svs:               svs,
		notifier:          notifier,
		l:                 loggerEntry,
		pollInterval:      defaultPollInterval,
		limitPerIteration: defaultLimitPerIteration,
		evaluationWorkers: defaultEvaluationWorkers,
	}
}

// SetPollInterval устанавливает паузу между итерациями обработчика.
func (d *Dispatcher) SetPollInterval(interval time.Duration) *Dispatcher {
	d.pollInterval = interval
	return d
}

// SetLimitPerIteration устанавливает кол-во аккаунтов, оцениваемых в одной итерации.
func (d *Dispatcher) SetLimitPerIteration(limit uint) *Dispatcher {
	d.limitPerIteration = limit
	return d
}

// SetEvaluationWorkers устанавливает кол-во воркеров, оценивающих аккаунты.
func (d *Dispatcher) SetEvaluationWorkers(workers uint) *Dispatcher {
	d.evaluationWorkers = workers
	return d
}

// Run запускает обработку оповещений в бесконечном цикле до отмены контекста.
//
// Алгоритм работы:
//  1. В каждой итерации запрашивает через сервисный слой аккаунты с недавней
//     активностью. Объем списка лимитируется через SetLimitPerIteration.
//  2. Для каждой итерации создаются N воркеров (кол-во настраивается через
//     SetEvaluationWorkers), которые оценивают флаги по каждому аккаунту.
//  3. По каждому взведенному флагу уведомление уходит через Notifier.
func (d *Dispatcher) Run(ctx context.Context) {
	d.l.WithFields(logrus.Fields{
		"pollInterval":      d.pollInterval,
		"limitPerIteration": d.limitPerIteration,
		"evaluationWorkers": d.evaluationWorkers,
	}).Info("Starting")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.l.Info("Got stop signal, exiting...")
			return
		case <-ticker.C:
			if err := d.process(ctx); err != nil {
				if !errors.Is(err, ErrNoAccounts) {
					d.l.WithError(err).Error("process error")
				}
			}
		}
	}
}

// process выполняет одну итерацию: получение списка аккаунтов, оценка воркерами и
// рассылка уведомлений. Возвращает ErrNoAccounts если активных аккаунтов нет.
func (d *Dispatcher) process(ctx context.Context) error {
	accountIDs, produceErr := d.produce(ctx)
	if produceErr != nil {
		return fmt.Errorf("process: %w", produceErr)
	}

	results := d.runWorkers(ctx, accountIDs)

	for _, result := range results {
		for _, kind := range result.Alerts {
			notifyCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
			notifyErr := d.notifier.Notify(notifyCtx, Notification{
				AccountID: result.AccountID,
				Kind:      kind,
			})
			cancel()
			if notifyErr != nil {
				d.l.WithError(notifyErr).WithFields(logrus.Fields{
					"accountID": result.AccountID,
					"kind":      kind,
				}).Error("notify")
			}
		}
	}
	return nil
}

// workerResult результат оценки одного аккаунта.
type workerResult struct {
	WorkerID  uint
	AccountID int64
	Alerts    []NotificationKind
	Error     error
}

// runWorkers запускает параллельных воркеров для оценки аккаунтов и ожидает конца их
// работы. Реализует паттерн fan-out/fan-in.
func (d *Dispatcher) runWorkers(ctx context.Context, accountIDs []int64) []workerResult {
	var taskCh = make(chan int64, len(accountIDs))

	for _, id := range accountIDs {
		taskCh <- id
	}
	close(taskCh)

	wg := new(sync.WaitGroup)
	wg.Add(int(d.evaluationWorkers)) // nolint:gosec

	var resultCh = make(chan *workerResult, len(accountIDs))

	for i := range d.evaluationWorkers {
		go d.worker(ctx, wg, i+1, taskCh, resultCh)
	}
	wg.Wait()

	close(resultCh)

	var results = make([]workerResult, 0, len(accountIDs))
	for result := range resultCh {
		l := d.l.WithFields(logrus.Fields{
			"worker":    result.WorkerID,
			"accountID": result.AccountID,
		})
		if result.Error != nil {
			l.WithError(result.Error).Error("evaluate account")
			continue
		}
		if len(result.Alerts) > 0 {
			l.WithField("alerts", result.Alerts).Info("alerts raised")
			results = append(results, *result)
		}
	}
	return results
}

// worker оценивает аккаунты из канала и отправляет результаты.
func (d *Dispatcher) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	workerID uint,
	taskCh <-chan int64,
	resultCh chan<- *workerResult,
) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case accountID, ok := <-taskCh:
			if !ok {
				return
			}
			resultCh <- d.evaluateAccount(ctx, workerID, accountID)
		}
	}
}

func (d *Dispatcher) evaluateAccount(ctx context.Context, workerID uint, accountID int64) *workerResult {
	reqCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	result := workerResult{
		WorkerID:  workerID,
		AccountID: accountID,
	}

	status, evalErr := d.svs.Evaluate(reqCtx, accountID)
	if evalErr != nil {
		result.Error = evalErr
		return &result
	}

	if status.IsLowBalance {
		result.Alerts = append(result.Alerts, NotificationLowBalance)
	}
	if status.IsUsageAnomaly {
		result.Alerts = append(result.Alerts, NotificationUsageAnomaly)
	}
	return &result
}

// produce получает аккаунты с недавней активностью для оценки.
// Возвращает ErrNoAccounts, если таких нет.
func (d *Dispatcher) produce(ctx context.Context) ([]int64, error) {
	produceCtx, cancel := context.WithTimeout(ctx, defaultServiceTimeout)
	defer cancel()

	accountIDs, idsErr := d.svs.RecentlyActiveAccounts(produceCtx, d.limitPerIteration)
	if idsErr != nil {
		return nil, fmt.Errorf("produce: %w", idsErr)
	}

	if len(accountIDs) == 0 {
		return nil, ErrNoAccounts
	}
	return accountIDs, nil
}
